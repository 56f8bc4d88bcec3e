// SPDX-License-Identifier: GPL-2.0-or-later

package bspfile

import "fmt"

const (
	LumpEntities             = 0
	LumpPlanes               = 1
	LumpTexData              = 2
	LumpVertexes             = 3
	LumpVisibility           = 4
	LumpNodes                = 5
	LumpTexInfo              = 6
	LumpFaces                = 7
	LumpLighting             = 8
	LumpOcclusion            = 9
	LumpLeafs                = 10
	LumpFaceIDs              = 11
	LumpEdges                = 12
	LumpSurfEdges            = 13
	LumpModels               = 14
	LumpWorldLights          = 15
	LumpLeafFaces            = 16
	LumpLeafBrushes          = 17
	LumpBrushes              = 18
	LumpBrushSides           = 19
	LumpAreas                = 20
	LumpAreaportals          = 21
	LumpDispInfo             = 26
	LumpOriginalFaces        = 27
	LumpGameLump             = 35
	LumpClipPortalVerts      = 41
	LumpCubemaps             = 42
	LumpTexDataStringData    = 43
	LumpTexDataStringTable   = 44
	LumpOverlays             = 45
	LumpPakfile              = 40
)

// LumpType describes one slot of the lump directory. The name of a few
// slots depends on the BSP version, and some slots only carry data from a
// minimum version onward.
type LumpType struct {
	Index int
	Name  string
	// MinVersion is the lowest BSP version at which the slot carries data,
	// or -1 when it always does.
	MinVersion int
}

type lumpName struct {
	old, new string // new applies from version 20 on, empty means no rename
	min      int
}

var lumpNames = [headerLumps]lumpName{
	0:  {old: "LUMP_ENTITIES", min: -1},
	1:  {old: "LUMP_PLANES", min: -1},
	2:  {old: "LUMP_TEXDATA", min: -1},
	3:  {old: "LUMP_VERTEXES", min: -1},
	4:  {old: "LUMP_VISIBILITY", min: -1},
	5:  {old: "LUMP_NODES", min: -1},
	6:  {old: "LUMP_TEXINFO", min: -1},
	7:  {old: "LUMP_FACES", min: -1},
	8:  {old: "LUMP_LIGHTING", min: -1},
	9:  {old: "LUMP_OCCLUSION", min: -1},
	10: {old: "LUMP_LEAFS", min: -1},
	11: {old: "LUMP_FACEIDS", min: -1},
	12: {old: "LUMP_EDGES", min: -1},
	13: {old: "LUMP_SURFEDGES", min: -1},
	14: {old: "LUMP_MODELS", min: -1},
	15: {old: "LUMP_WORLDLIGHTS", min: -1},
	16: {old: "LUMP_LEAFFACES", min: -1},
	17: {old: "LUMP_LEAFBRUSHES", min: -1},
	18: {old: "LUMP_BRUSHES", min: -1},
	19: {old: "LUMP_BRUSHSIDES", min: -1},
	20: {old: "LUMP_AREAS", min: -1},
	21: {old: "LUMP_AREAPORTALS", min: -1},
	22: {old: "LUMP_PORTALS", new: "LUMP_PROPCOLLISION", min: -1},
	23: {old: "LUMP_CLUSTERS", new: "LUMP_PROPHULLS", min: -1},
	24: {old: "LUMP_PORTALVERTS", new: "LUMP_PROPHULLVERTS", min: -1},
	25: {old: "LUMP_CLUSTERPORTALS", new: "LUMP_PROPTRIS", min: -1},
	26: {old: "LUMP_DISPINFO", min: -1},
	27: {old: "LUMP_ORIGINALFACES", min: -1},
	28: {old: "LUMP_PHYSDISP", min: -1},
	29: {old: "LUMP_PHYSCOLLIDE", min: -1},
	30: {old: "LUMP_VERTNORMALS", min: -1},
	31: {old: "LUMP_VERTNORMALINDICES", min: -1},
	32: {old: "LUMP_DISP_LIGHTMAP_ALPHAS", min: -1},
	33: {old: "LUMP_DISP_VERTS", min: -1},
	34: {old: "LUMP_DISP_LIGHTMAP_SAMPLE_POSITIONS", min: -1},
	35: {old: "LUMP_GAME_LUMP", min: -1},
	36: {old: "LUMP_LEAFWATERDATA", min: -1},
	37: {old: "LUMP_PRIMITIVES", min: -1},
	38: {old: "LUMP_PRIMVERTS", min: -1},
	39: {old: "LUMP_PRIMINDICES", min: -1},
	40: {old: "LUMP_PAKFILE", min: -1},
	41: {old: "LUMP_CLIPPORTALVERTS", min: -1},
	42: {old: "LUMP_CUBEMAPS", min: -1},
	43: {old: "LUMP_TEXDATA_STRING_DATA", min: -1},
	44: {old: "LUMP_TEXDATA_STRING_TABLE", min: -1},
	45: {old: "LUMP_OVERLAYS", min: -1},
	46: {old: "LUMP_LEAFMINDISTTOWATER", min: -1},
	47: {old: "LUMP_FACE_MACRO_TEXTURE_INFO", min: -1},
	48: {old: "LUMP_DISP_TRIS", min: -1},
	49: {old: "LUMP_PHYSCOLLIDESURFACE", new: "LUMP_PROP_BLOB", min: -1},
	50: {old: "LUMP_WATEROVERLAYS", min: -1},
	51: {old: "LUMP_LIGHTMAPPAGES", new: "LUMP_LEAF_AMBIENT_INDEX_HDR", min: -1},
	52: {old: "LUMP_LIGHTMAPPAGEINFOS", new: "LUMP_LEAF_AMBIENT_INDEX", min: -1},
	53: {old: "LUMP_LIGHTING_HDR", min: 20},
	54: {old: "LUMP_WORLDLIGHTS_HDR", min: 20},
	55: {old: "LUMP_LEAF_AMBIENT_LIGHTING_HDR", min: 20},
	56: {old: "LUMP_LEAF_AMBIENT_LIGHTING", min: 20},
	57: {old: "LUMP_XZIPPAKFILE", min: -1},
	58: {old: "LUMP_FACES_HDR", min: 20},
	59: {old: "LUMP_MAP_FLAGS", min: 20},
	60: {old: "LUMP_OVERLAY_FADES", min: 20},
	61: {old: "LUMP_OVERLAY_SYSTEM_LEVELS", min: 20},
	62: {old: "LUMP_PHYSLEVEL", min: 20},
	63: {old: "LUMP_DISP_MULTIBLEND", min: 20},
}

// TypeForIndex resolves a lump slot for the given BSP version. Slots past
// the generic table (Titanfall) get a synthetic name.
func TypeForIndex(index, version int) LumpType {
	if index < 0 || index >= headerLumps {
		return LumpType{Index: index, Name: fmt.Sprintf("LUMP_%d", index), MinVersion: -1}
	}
	n := lumpNames[index]
	name := n.old
	if n.new != "" && version >= 20 {
		name = n.new
	}
	return LumpType{Index: index, Name: name, MinVersion: n.min}
}

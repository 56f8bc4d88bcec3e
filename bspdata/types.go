// SPDX-License-Identifier: GPL-2.0-or-later

// Package bspdata decodes the geometry tables out of a parsed container
// into index-addressed slices. All tables are read-only after Load.
package bspdata

import (
	"gobsp/math/vec"
)

// Brush content flags, a subset of the engine's contents mask.
const (
	ContentsSolid       = 0x1
	ContentsWindow      = 0x2
	ContentsAreaportal  = 0x8000
	ContentsPlayerClip  = 0x10000
	ContentsMonsterClip = 0x20000
	ContentsOrigin      = 0x1000000
	ContentsDetail      = 0x8000000
	ContentsTranslucent = 0x10000000
	ContentsLadder      = 0x20000000
)

// DPlane is a half-space {p : Normal*p <= Dist}.
type DPlane struct {
	Normal vec.Vec3
	Dist   float32
	Type   int32
}

type DEdge struct {
	V [2]int32
}

type DBrush struct {
	FstSide  int32
	NumSides int32
	Contents int32
}

func (b *DBrush) IsFlagSet(flag int32) bool { return b.Contents&flag != 0 }
func (b *DBrush) IsSolid() bool             { return b.IsFlagSet(ContentsSolid) }
func (b *DBrush) IsDetail() bool            { return b.IsFlagSet(ContentsDetail) }
func (b *DBrush) IsLadder() bool            { return b.IsFlagSet(ContentsLadder) }
func (b *DBrush) IsAreaportal() bool        { return b.IsFlagSet(ContentsAreaportal) }
func (b *DBrush) IsTranslucent() bool       { return b.IsFlagSet(ContentsTranslucent) }

type DBrushSide struct {
	PNum    int32
	TexInfo int32
	DispInfo int32
	Bevel   bool
}

type DModel struct {
	Mins, Maxs vec.Vec3
	Origin     vec.Vec3
	HeadNode   int32
	FstFace    int32
	NumFaces   int32
}

type DNode struct {
	PlaneNum int32
	Children [2]int32
	Mins     vec.Vec3
	Maxs     vec.Vec3
	FstFace  int32
	NumFaces int32
	Area     int32
}

type DLeaf struct {
	Contents     int32
	Cluster      int32
	AreaFlags    int32
	Mins, Maxs   vec.Vec3
	FstLeafFace  int32
	NumLeafFaces int32
	FstLeafBrush int32
	NumLeafBrushes int32
	LeafWaterID  int32
}

// TexInfo carries the texture and lightmap axis rows. The W component of
// each axis row is the texel offset.
type TexInfo struct {
	TextureVecs  [2]vec.Vec4
	LightmapVecs [2]vec.Vec4
	Flags        int32
	TexData      int32
}

type DFace struct {
	PNum            int32
	Side            uint8
	OnNode          bool
	FstEdge         int32
	NumEdges        int32
	TexInfo         int32
	DispInfo        int32
	SurfFogVolumeID int32
	Styles          [4]uint8
	LightOfs        int32
	Area            float32
	LightmapMins    [2]int32
	LightmapSize    [2]int32
	OrigFace        int32
	NumPrims        int32
	FstPrimID       int32
	SmoothingGroups uint32
}

type DOccluderData struct {
	Flags    int32
	FstPoly  int32
	PolyCount int32
	Mins, Maxs vec.Vec3
	Area     int32 // lump version 1 and later
}

type DOccluderPolyData struct {
	FstVertexIndex int32
	VertexCount    int32
	PlaneNum       int32
}

type DAreaportal struct {
	PortalKey        int32
	OtherPortal      int32
	FstClipPortalVert int32
	ClipPortalVerts  int32
	PlaneNum         int32
}

// Data is the read-only table view handed to the reconstruction passes.
type Data struct {
	Planes          []DPlane
	Vertexes        []vec.Vec3
	Edges           []DEdge
	SurfEdges       []int32
	Brushes         []DBrush
	BrushSides      []DBrushSide
	Models          []DModel
	Nodes           []DNode
	Leaves          []DLeaf
	LeafBrushes     []int32
	TexInfos        []TexInfo
	OrigFaces       []DFace
	Faces           []DFace
	Occluders       []DOccluderData
	OccluderPolys   []DOccluderPolyData
	OccluderVerts   []int32
	Areaportals     []DAreaportal
	ClipPortalVerts []vec.Vec3
}

// SPDX-License-Identifier: GPL-2.0-or-later

package bspdata

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gobsp/bspfile"
	"gobsp/bytebuf"
	"gobsp/math/vec"
)

// tableReader wraps a lump buffer with a sticky error so record loops can
// read fields without checking each one.
type tableReader struct {
	b   *bytebuf.Buffer
	err error
}

func (r *tableReader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	var v []byte
	v, r.err = r.b.ReadBytes(1)
	if r.err != nil {
		return 0
	}
	return v[0]
}

func (r *tableReader) i16() int16 {
	if r.err != nil {
		return 0
	}
	var v int16
	v, r.err = r.b.ReadInt16()
	return v
}

func (r *tableReader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	var v uint16
	v, r.err = r.b.ReadUint16()
	return v
}

func (r *tableReader) i32() int32 {
	if r.err != nil {
		return 0
	}
	var v int32
	v, r.err = r.b.ReadInt32()
	return v
}

func (r *tableReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	var v uint32
	v, r.err = r.b.ReadUint32()
	return v
}

func (r *tableReader) f32() float32 {
	if r.err != nil {
		return 0
	}
	var v float32
	v, r.err = r.b.ReadFloat32()
	return v
}

func (r *tableReader) vec3() vec.Vec3 {
	return vec.Vec3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *tableReader) vec3i16() vec.Vec3 {
	return vec.Vec3{X: float32(r.i16()), Y: float32(r.i16()), Z: float32(r.i16())}
}

func (r *tableReader) vec3i32() vec.Vec3 {
	return vec.Vec3{X: float32(r.i32()), Y: float32(r.i32()), Z: float32(r.i32())}
}

func (r *tableReader) vec4() vec.Vec4 {
	return vec.Vec4{X: r.f32(), Y: r.f32(), Z: r.f32(), W: r.f32()}
}

func (r *tableReader) skip(n int) {
	if r.err != nil {
		return
	}
	_, r.err = r.b.ReadBytes(n)
}

// Load decodes the geometry tables needed for brush reconstruction from
// an already parsed container. Layout variants are selected by the file's
// dialect and version.
func Load(f *bspfile.BspFile) (*Data, error) {
	d := &Data{}
	vin := f.AppID == bspfile.Vindictus

	type table struct {
		index int
		read  func(r *tableReader, version int32) error
	}
	tables := []table{
		{bspfile.LumpPlanes, d.readPlanes},
		{bspfile.LumpVertexes, d.readVertexes},
		{bspfile.LumpEdges, d.edgeReader(vin)},
		{bspfile.LumpSurfEdges, d.readSurfEdges},
		{bspfile.LumpBrushes, d.readBrushes},
		{bspfile.LumpBrushSides, d.brushSideReader(vin)},
		{bspfile.LumpModels, d.readModels},
		{bspfile.LumpNodes, d.nodeReader(vin)},
		{bspfile.LumpLeafs, d.leafReader(vin, f.Version)},
		{bspfile.LumpLeafBrushes, d.leafBrushReader(vin)},
		{bspfile.LumpTexInfo, d.readTexInfos},
		{bspfile.LumpOriginalFaces, d.readOrigFaces},
		{bspfile.LumpFaces, d.readFaces},
		{bspfile.LumpOcclusion, d.readOccluders},
		{bspfile.LumpAreaportals, d.areaportalReader(vin)},
		{bspfile.LumpClipPortalVerts, d.readClipPortalVerts},
	}
	for _, t := range tables {
		l := f.Lump(t.index)
		if l == nil || l.Length() == 0 || !f.CanReadLump(t.index) {
			continue
		}
		b, err := l.ContentBuffer()
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", l.Name(f.Version))
		}
		r := &tableReader{b: b}
		if err := t.read(r, l.Version); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", l.Name(f.Version))
		}
		if r.err != nil {
			return nil, errors.Wrapf(r.err, "decoding %s", l.Name(f.Version))
		}
	}
	log.Debugf("loaded %d planes, %d brushes, %d sides, %d models",
		len(d.Planes), len(d.Brushes), len(d.BrushSides), len(d.Models))
	return d, nil
}

func (d *Data) readPlanes(r *tableReader, _ int32) error {
	n := r.b.Cap() / 20
	d.Planes = make([]DPlane, 0, n)
	for i := 0; i < n; i++ {
		d.Planes = append(d.Planes, DPlane{
			Normal: r.vec3(),
			Dist:   r.f32(),
			Type:   r.i32(),
		})
	}
	return nil
}

func (d *Data) readVertexes(r *tableReader, _ int32) error {
	n := r.b.Cap() / 12
	d.Vertexes = make([]vec.Vec3, 0, n)
	for i := 0; i < n; i++ {
		d.Vertexes = append(d.Vertexes, r.vec3())
	}
	return nil
}

func (d *Data) edgeReader(vin bool) func(*tableReader, int32) error {
	return func(r *tableReader, _ int32) error {
		size := 4
		if vin {
			size = 8
		}
		n := r.b.Cap() / size
		d.Edges = make([]DEdge, 0, n)
		for i := 0; i < n; i++ {
			var e DEdge
			if vin {
				e.V[0], e.V[1] = r.i32(), r.i32()
			} else {
				e.V[0], e.V[1] = int32(r.u16()), int32(r.u16())
			}
			d.Edges = append(d.Edges, e)
		}
		return nil
	}
}

func (d *Data) readSurfEdges(r *tableReader, _ int32) error {
	n := r.b.Cap() / 4
	d.SurfEdges = make([]int32, 0, n)
	for i := 0; i < n; i++ {
		d.SurfEdges = append(d.SurfEdges, r.i32())
	}
	return nil
}

func (d *Data) readBrushes(r *tableReader, _ int32) error {
	n := r.b.Cap() / 12
	d.Brushes = make([]DBrush, 0, n)
	for i := 0; i < n; i++ {
		d.Brushes = append(d.Brushes, DBrush{
			FstSide:  r.i32(),
			NumSides: r.i32(),
			Contents: r.i32(),
		})
	}
	return nil
}

func (d *Data) brushSideReader(vin bool) func(*tableReader, int32) error {
	return func(r *tableReader, _ int32) error {
		size := 8
		if vin {
			size = 16
		}
		n := r.b.Cap() / size
		d.BrushSides = make([]DBrushSide, 0, n)
		for i := 0; i < n; i++ {
			var s DBrushSide
			if vin {
				s.PNum = r.i32()
				s.TexInfo = r.i32()
				s.DispInfo = r.i32()
				s.Bevel = r.i32() != 0
			} else {
				s.PNum = int32(r.u16())
				s.TexInfo = int32(r.i16())
				s.DispInfo = int32(r.i16())
				s.Bevel = r.i16() != 0
			}
			d.BrushSides = append(d.BrushSides, s)
		}
		return nil
	}
}

func (d *Data) readModels(r *tableReader, _ int32) error {
	n := r.b.Cap() / 48
	d.Models = make([]DModel, 0, n)
	for i := 0; i < n; i++ {
		d.Models = append(d.Models, DModel{
			Mins:     r.vec3(),
			Maxs:     r.vec3(),
			Origin:   r.vec3(),
			HeadNode: r.i32(),
			FstFace:  r.i32(),
			NumFaces: r.i32(),
		})
	}
	return nil
}

func (d *Data) nodeReader(vin bool) func(*tableReader, int32) error {
	return func(r *tableReader, _ int32) error {
		size := 32
		if vin {
			size = 48
		}
		n := r.b.Cap() / size
		d.Nodes = make([]DNode, 0, n)
		for i := 0; i < n; i++ {
			var dn DNode
			dn.PlaneNum = r.i32()
			dn.Children[0] = r.i32()
			dn.Children[1] = r.i32()
			if vin {
				dn.Mins = r.vec3i32()
				dn.Maxs = r.vec3i32()
				dn.FstFace = r.i32()
				dn.NumFaces = r.i32()
				dn.Area = r.i32()
			} else {
				dn.Mins = r.vec3i16()
				dn.Maxs = r.vec3i16()
				dn.FstFace = int32(r.u16())
				dn.NumFaces = int32(r.u16())
				dn.Area = int32(r.i16())
				r.skip(2)
			}
			d.Nodes = append(d.Nodes, dn)
		}
		return nil
	}
}

func (d *Data) leafReader(vin bool, bspVersion int) func(*tableReader, int32) error {
	return func(r *tableReader, _ int32) error {
		// leaves carried a light cube before version 20
		ambient := !vin && bspVersion < 20
		size := 32
		switch {
		case vin:
			size = 56
		case ambient:
			size = 56
		}
		n := r.b.Cap() / size
		d.Leaves = make([]DLeaf, 0, n)
		for i := 0; i < n; i++ {
			var lf DLeaf
			lf.Contents = r.i32()
			if vin {
				lf.Cluster = r.i32()
				lf.AreaFlags = r.i32()
				lf.Mins = r.vec3i32()
				lf.Maxs = r.vec3i32()
				lf.FstLeafFace = r.i32()
				lf.NumLeafFaces = r.i32()
				lf.FstLeafBrush = r.i32()
				lf.NumLeafBrushes = r.i32()
				lf.LeafWaterID = r.i32()
			} else {
				lf.Cluster = int32(r.i16())
				lf.AreaFlags = int32(r.i16())
				lf.Mins = r.vec3i16()
				lf.Maxs = r.vec3i16()
				lf.FstLeafFace = int32(r.u16())
				lf.NumLeafFaces = int32(r.u16())
				lf.FstLeafBrush = int32(r.u16())
				lf.NumLeafBrushes = int32(r.u16())
				lf.LeafWaterID = int32(r.i16())
				if ambient {
					r.skip(24)
				}
				r.skip(2)
			}
			d.Leaves = append(d.Leaves, lf)
		}
		return nil
	}
}

func (d *Data) leafBrushReader(vin bool) func(*tableReader, int32) error {
	return func(r *tableReader, _ int32) error {
		size := 2
		if vin {
			size = 4
		}
		n := r.b.Cap() / size
		d.LeafBrushes = make([]int32, 0, n)
		for i := 0; i < n; i++ {
			if vin {
				d.LeafBrushes = append(d.LeafBrushes, r.i32())
			} else {
				d.LeafBrushes = append(d.LeafBrushes, int32(r.u16()))
			}
		}
		return nil
	}
}

func (d *Data) readTexInfos(r *tableReader, _ int32) error {
	n := r.b.Cap() / 72
	d.TexInfos = make([]TexInfo, 0, n)
	for i := 0; i < n; i++ {
		var t TexInfo
		t.TextureVecs[0] = r.vec4()
		t.TextureVecs[1] = r.vec4()
		t.LightmapVecs[0] = r.vec4()
		t.LightmapVecs[1] = r.vec4()
		t.Flags = r.i32()
		t.TexData = r.i32()
		d.TexInfos = append(d.TexInfos, t)
	}
	return nil
}

func readFaceTable(r *tableReader) []DFace {
	n := r.b.Cap() / 56
	faces := make([]DFace, 0, n)
	for i := 0; i < n; i++ {
		var f DFace
		f.PNum = int32(r.u16())
		f.Side = r.u8()
		f.OnNode = r.u8() != 0
		f.FstEdge = r.i32()
		f.NumEdges = int32(r.i16())
		f.TexInfo = int32(r.i16())
		f.DispInfo = int32(r.i16())
		f.SurfFogVolumeID = int32(r.i16())
		for j := range f.Styles {
			f.Styles[j] = r.u8()
		}
		f.LightOfs = r.i32()
		f.Area = r.f32()
		f.LightmapMins[0] = r.i32()
		f.LightmapMins[1] = r.i32()
		f.LightmapSize[0] = r.i32()
		f.LightmapSize[1] = r.i32()
		f.OrigFace = r.i32()
		f.NumPrims = int32(r.u16())
		f.FstPrimID = int32(r.u16())
		f.SmoothingGroups = r.u32()
		faces = append(faces, f)
	}
	return faces
}

func (d *Data) readOrigFaces(r *tableReader, _ int32) error {
	d.OrigFaces = readFaceTable(r)
	return nil
}

func (d *Data) readFaces(r *tableReader, _ int32) error {
	d.Faces = readFaceTable(r)
	return nil
}

// readOccluders decodes the three packed occlusion arrays. The area field
// joined the per-occluder record in lump version 1.
func (d *Data) readOccluders(r *tableReader, version int32) error {
	count := r.i32()
	if r.err != nil || count < 0 {
		return errors.New("bad occluder count")
	}
	d.Occluders = make([]DOccluderData, 0, count)
	for i := int32(0); i < count; i++ {
		var o DOccluderData
		o.Flags = r.i32()
		o.FstPoly = r.i32()
		o.PolyCount = r.i32()
		o.Mins = r.vec3()
		o.Maxs = r.vec3()
		if version >= 1 {
			o.Area = r.i32()
		}
		d.Occluders = append(d.Occluders, o)
	}
	polyCount := r.i32()
	if r.err != nil || polyCount < 0 {
		return errors.New("bad occluder poly count")
	}
	d.OccluderPolys = make([]DOccluderPolyData, 0, polyCount)
	for i := int32(0); i < polyCount; i++ {
		d.OccluderPolys = append(d.OccluderPolys, DOccluderPolyData{
			FstVertexIndex: r.i32(),
			VertexCount:    r.i32(),
			PlaneNum:       r.i32(),
		})
	}
	vertCount := r.i32()
	if r.err != nil || vertCount < 0 {
		return errors.New("bad occluder vertex count")
	}
	d.OccluderVerts = make([]int32, 0, vertCount)
	for i := int32(0); i < vertCount; i++ {
		d.OccluderVerts = append(d.OccluderVerts, r.i32())
	}
	return nil
}

func (d *Data) areaportalReader(vin bool) func(*tableReader, int32) error {
	return func(r *tableReader, _ int32) error {
		size := 12
		if vin {
			size = 20
		}
		n := r.b.Cap() / size
		d.Areaportals = make([]DAreaportal, 0, n)
		for i := 0; i < n; i++ {
			var a DAreaportal
			if vin {
				a.PortalKey = r.i32()
				a.OtherPortal = r.i32()
				a.FstClipPortalVert = r.i32()
				a.ClipPortalVerts = r.i32()
				a.PlaneNum = r.i32()
			} else {
				a.PortalKey = int32(r.u16())
				a.OtherPortal = int32(r.u16())
				a.FstClipPortalVert = int32(r.u16())
				a.ClipPortalVerts = int32(r.u16())
				a.PlaneNum = r.i32()
			}
			d.Areaportals = append(d.Areaportals, a)
		}
		return nil
	}
}

func (d *Data) readClipPortalVerts(r *tableReader, _ int32) error {
	n := r.b.Cap() / 12
	d.ClipPortalVerts = make([]vec.Vec3, 0, n)
	for i := 0; i < n; i++ {
		d.ClipPortalVerts = append(d.ClipPortalVerts, r.vec3())
	}
	return nil
}

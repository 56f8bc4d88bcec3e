// SPDX-License-Identifier: GPL-2.0-or-later

package winding

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"gobsp/bspdata"
	"gobsp/bspfile"
)

// Factory builds windings from the geometry tables and memoizes them by
// their stable table indices. Caches are write-once for the lifetime of
// one reconstruction run.
type Factory struct {
	data     *bspdata.Data
	maxCoord float32
	maxLen   float32

	faceCache     map[int]Winding
	origFaceCache map[int]Winding
	sideCache     map[[2]int]Winding
	apCache       map[int]Winding
	occCache      map[int]Winding
	planeCache    map[int]Winding
}

// CoordSize returns the world half-extent of a dialect.
func CoordSize(app bspfile.AppID) float32 {
	if app == bspfile.StrataSource {
		return MaxCoordStrata
	}
	return MaxCoord
}

func NewFactory(data *bspdata.Data, maxCoord float32) *Factory {
	return &Factory{
		data:          data,
		maxCoord:      maxCoord,
		maxLen:        math32.Ceil(math32.Sqrt(3) * maxCoord),
		faceCache:     make(map[int]Winding),
		origFaceCache: make(map[int]Winding),
		sideCache:     make(map[[2]int]Winding),
		apCache:       make(map[int]Winding),
		occCache:      make(map[int]Winding),
		planeCache:    make(map[int]Winding),
	}
}

func (f *Factory) MaxCoord() float32 { return f.maxCoord }
func (f *Factory) MaxLen() float32   { return f.maxLen }

// IsHuge checks the winding against this factory's world extent.
func (f *Factory) IsHuge(w Winding) bool { return w.IsHuge(f.maxCoord) }

// FromPlane returns the base winding spanning the indexed plane.
func (f *Factory) FromPlane(pnum int) Winding {
	if w, ok := f.planeCache[pnum]; ok {
		return w
	}
	w := BaseForPlane(f.data.Planes[pnum], f.maxLen)
	f.planeCache[pnum] = w
	return w
}

// FromSide rebuilds the winding of one brush side by clipping its base
// winding against the flipped planes of all other non-bevel sides. The
// side must belong to the brush, anything else means the brush data is
// malformed.
func (f *Factory) FromSide(ibrush, iside int) (Winding, error) {
	key := [2]int{ibrush, iside}
	if w, ok := f.sideCache[key]; ok {
		return w, nil
	}
	brush := &f.data.Brushes[ibrush]
	if iside < int(brush.FstSide) || iside >= int(brush.FstSide+brush.NumSides) {
		return nil, errors.Errorf("side %d is not part of brush %d", iside, ibrush)
	}
	side := &f.data.BrushSides[iside]

	w := f.FromPlane(int(side.PNum))
	for i := int(brush.FstSide); i < int(brush.FstSide+brush.NumSides); i++ {
		if i == iside {
			continue
		}
		other := &f.data.BrushSides[i]
		if other.Bevel {
			continue
		}
		p := f.data.Planes[other.PNum]
		flipped := bspdata.DPlane{Normal: p.Normal.Scale(-1), Dist: -p.Dist}
		w = w.Clip(flipped, false)
		if len(w) == 0 {
			break
		}
	}
	f.sideCache[key] = w
	return w, nil
}

// FromFace rebuilds a face winding from the edge loop.
func (f *Factory) FromFace(iface int) Winding {
	if w, ok := f.faceCache[iface]; ok {
		return w
	}
	w := f.edgeLoop(&f.data.Faces[iface])
	f.faceCache[iface] = w
	return w
}

// FromOrigFace rebuilds the winding of an uncut original face.
func (f *Factory) FromOrigFace(iface int) Winding {
	if w, ok := f.origFaceCache[iface]; ok {
		return w
	}
	w := f.edgeLoop(&f.data.OrigFaces[iface])
	f.origFaceCache[iface] = w
	return w
}

func (f *Factory) edgeLoop(face *bspdata.DFace) Winding {
	w := make(Winding, 0, face.NumEdges)
	for i := 0; i < int(face.NumEdges); i++ {
		se := f.data.SurfEdges[int(face.FstEdge)+i]
		// the sign selects the edge direction
		if se >= 0 {
			w = append(w, f.data.Vertexes[f.data.Edges[se].V[0]])
		} else {
			w = append(w, f.data.Vertexes[f.data.Edges[-se].V[1]])
		}
	}
	return w
}

// FromAreaportal rebuilds the portal polygon from the clip vertex run.
func (f *Factory) FromAreaportal(iap int) Winding {
	if w, ok := f.apCache[iap]; ok {
		return w
	}
	ap := &f.data.Areaportals[iap]
	w := make(Winding, 0, ap.ClipPortalVerts)
	for i := 0; i < int(ap.ClipPortalVerts); i++ {
		w = append(w, f.data.ClipPortalVerts[int(ap.FstClipPortalVert)+i])
	}
	f.apCache[iap] = w
	return w
}

// FromOccluder rebuilds the polygon of one occluder poly record.
func (f *Factory) FromOccluder(ipoly int) Winding {
	if w, ok := f.occCache[ipoly]; ok {
		return w
	}
	poly := &f.data.OccluderPolys[ipoly]
	w := make(Winding, 0, poly.VertexCount)
	for i := 0; i < int(poly.VertexCount); i++ {
		vi := f.data.OccluderVerts[int(poly.FstVertexIndex)+i]
		w = append(w, f.data.Vertexes[vi])
	}
	f.occCache[ipoly] = w
	return w
}

// SPDX-License-Identifier: GPL-2.0-or-later

// Package brush rebuilds editable convex solids from the compiled
// half-space representation and hands them to an external emitter.
package brush

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"gobsp/bspdata"
	"gobsp/math/vec"
	"gobsp/winding"
)

// Side is one reconstructed face of a solid.
type Side struct {
	ID          int
	PlanePoints [3]vec.Vec3
	Normal      vec.Vec3
	Winding     winding.Winding
	Material    string
	UAxis       vec.Vec4
	VAxis       vec.Vec4
	Smoothing   uint32
}

// Writer receives reconstructed solids. The VMF emitter implements this.
type Writer interface {
	BeginSolid(id int)
	Side(s *Side)
	EndSolid()
}

// TextureBuilder supplies material name and texture axes for a brush
// side. Axis computation lives outside the core.
type TextureBuilder interface {
	Texture(iside int, normal vec.Vec3) (material string, uaxis, vaxis vec.Vec4)
}

// IDAllocator hands out unique editor IDs for solids and sides.
type IDAllocator interface {
	Next() int
}

// OrigFaceMapper resolves a brush side to its original face, the carrier
// of the smoothing group bits.
type OrigFaceMapper interface {
	OrigFaceForSide(iside int) (int, bool)
}

// Config selects which brush classes are emitted.
type Config struct {
	WriteDetails     bool
	WriteAreaportals bool
	WriteLadders     bool
}

// MalformedBrushError reports brush data that contradicts itself, such
// as a side that is not part of its own brush.
type MalformedBrushError struct {
	Brush int
	Side  int
	Err   error
}

func (e *MalformedBrushError) Error() string {
	return fmt.Sprintf("malformed brush %d: %v", e.Brush, e.Err)
}

func (e *MalformedBrushError) Unwrap() error { return e.Err }

type model struct {
	fstBrush int
	numBrush int
}

// Source drives the reconstruction. It owns the per-run winding caches
// and the index to editor ID maps.
type Source struct {
	data *bspdata.Data
	fac  *winding.Factory
	cfg  Config
	out  Writer
	tex  TextureBuilder
	ids  IDAllocator
	ofm  OrigFaceMapper

	models       []model
	worldBrushes int

	brushToID map[int]int
	sideToID  map[int]int
}

func NewSource(data *bspdata.Data, fac *winding.Factory, cfg Config, out Writer, tex TextureBuilder, ids IDAllocator, ofm OrigFaceMapper) *Source {
	s := &Source{
		data:      data,
		fac:       fac,
		cfg:       cfg,
		out:       out,
		tex:       tex,
		ids:       ids,
		ofm:       ofm,
		brushToID: make(map[int]int),
		sideToID:  make(map[int]int),
	}
	s.assignBrushes()
	return s
}

// assignBrushes walks the BSP tree of every model once to find the brush
// range each model owns. Model 0's range fixes the world brush count.
func (s *Source) assignBrushes() {
	t := NewTreeStats(s.data)
	s.models = make([]model, len(s.data.Models))
	for i := range s.data.Models {
		t.Reset()
		t.Walk(s.data.Models[i].HeadNode)
		fst, num := t.BrushRange()
		s.models[i] = model{fstBrush: fst, numBrush: num}
		if i == 0 {
			s.worldBrushes = t.MaxBrush() + 1
		}
	}
	log.Debugf("%d world brushes in %d models", s.worldBrushes, len(s.models))
}

// WorldBrushCount returns the number of brushes belonging to the world.
func (s *Source) WorldBrushCount() int { return s.worldBrushes }

// WriteBrushes emits all world brushes.
func (s *Source) WriteBrushes() error {
	for i := 0; i < s.worldBrushes; i++ {
		if _, err := s.writeBrush(i, vec.Vec3{}, vec.Vec3{}); err != nil {
			return err
		}
	}
	return nil
}

// WriteModel emits the brushes of one sub-model, transformed by the
// instance's origin and angles.
func (s *Source) WriteModel(imodel int, origin, angles vec.Vec3) error {
	if imodel < 0 || imodel >= len(s.models) {
		log.Warnf("invalid model index %d", imodel)
		return nil
	}
	m := s.models[imodel]
	for i := m.fstBrush; i < m.fstBrush+m.numBrush; i++ {
		if _, err := s.writeBrush(i, origin, angles); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) accepts(brush *bspdata.DBrush) bool {
	switch {
	case brush.IsDetail() && !s.cfg.WriteDetails:
		return false
	case brush.IsAreaportal() && !s.cfg.WriteAreaportals:
		return false
	case brush.IsLadder() && !s.cfg.WriteLadders:
		return false
	}
	return true
}

// writeBrush rebuilds one brush and emits it when at least three sides
// survive validation. It reports whether the brush was emitted.
func (s *Source) writeBrush(ibrush int, origin, angles vec.Vec3) (bool, error) {
	brush := &s.data.Brushes[ibrush]
	if !s.accepts(brush) {
		return false, nil
	}

	type validSide struct {
		index int
		w     winding.Winding
	}
	var valid []validSide

	for i := int(brush.FstSide); i < int(brush.FstSide+brush.NumSides); i++ {
		side := &s.data.BrushSides[i]
		if side.Bevel {
			continue
		}
		w, err := s.fac.FromSide(ibrush, i)
		if err != nil {
			return false, &MalformedBrushError{Brush: ibrush, Side: i, Err: err}
		}
		w = w.RemoveDegenerated()

		switch {
		case w.IsEmpty():
			log.Debugf("side %d of brush %d: no vertices left", i, ibrush)
			continue
		case len(w) < 3:
			log.Warnf("side %d of brush %d: less than 3 vertices", i, ibrush)
			continue
		case s.fac.IsHuge(w):
			log.Warnf("side %d of brush %d: too big", i, ibrush)
			continue
		}
		pts, ok := w.BuildPlane()
		if !ok {
			log.Warnf("side %d of brush %d: duplicate plane points", i, ibrush)
			continue
		}
		if !pts[0].IsValid() || !pts[1].IsValid() || !pts[2].IsValid() {
			log.Warnf("side %d of brush %d: invalid plane", i, ibrush)
			continue
		}

		w = w.Rotate(angles).Translate(origin)
		valid = append(valid, validSide{index: i, w: w})
	}

	if len(valid) < 3 {
		log.Warnf("brush %d: less than 3 valid sides, skipping", ibrush)
		return false, nil
	}

	id := s.ids.Next()
	s.brushToID[ibrush] = id
	s.out.BeginSolid(id)
	for _, v := range valid {
		s.writeSide(v.index, v.w)
	}
	s.out.EndSolid()
	return true, nil
}

func (s *Side) computeNormal() {
	e1 := vec.Sub(s.PlanePoints[1], s.PlanePoints[0])
	e2 := vec.Sub(s.PlanePoints[2], s.PlanePoints[0])
	c := vec.Cross(e1, e2)
	s.Normal = c.Normalize()
}

func (s *Source) writeSide(iside int, w winding.Winding) {
	id := s.ids.Next()
	s.sideToID[iside] = id

	side := &Side{ID: id, Winding: w}
	side.PlanePoints, _ = w.BuildPlane()
	side.computeNormal()
	side.Smoothing = s.smoothingGroups(iside)
	if s.tex != nil {
		side.Material, side.UAxis, side.VAxis = s.tex.Texture(iside, side.Normal)
	}
	s.out.Side(side)
}

func (s *Source) smoothingGroups(iside int) uint32 {
	if s.ofm == nil {
		return 0
	}
	iface, ok := s.ofm.OrigFaceForSide(iside)
	if !ok || iface < 0 || iface >= len(s.data.OrigFaces) {
		return 0
	}
	return s.data.OrigFaces[iface].SmoothingGroups
}

// BrushIDForIndex returns the editor ID assigned to a brush index.
func (s *Source) BrushIDForIndex(ibrush int) (int, bool) {
	id, ok := s.brushToID[ibrush]
	return id, ok
}

// SideIDForIndex returns the editor ID assigned to a brush side index.
func (s *Source) SideIDForIndex(iside int) (int, bool) {
	id, ok := s.sideToID[iside]
	return id, ok
}

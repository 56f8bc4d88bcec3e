// SPDX-License-Identifier: GPL-2.0-or-later

package brush

import (
	log "github.com/sirupsen/logrus"

	"gobsp/bspdata"
	"gobsp/math/vec"
	"gobsp/winding"
)

// faceMatchDist bounds the center distance between a side winding and an
// original face winding for the two to count as the same surface.
const faceMatchDist = 1.0

// FaceMapper resolves brush sides to the original face that carries
// their smoothing group bits. A side and its face share a plane number,
// so candidates are the original faces on the side's plane; among those
// the face whose polygon center lies closest to the side's reconstructed
// winding center wins. Results are memoized per side.
type FaceMapper struct {
	data *bspdata.Data
	fac  *winding.Factory

	sideBrush map[int]int
	byPlane   map[int32][]int
	memo      map[int]int // face index, -1 when no face matched
}

func NewFaceMapper(data *bspdata.Data, fac *winding.Factory) *FaceMapper {
	m := &FaceMapper{
		data:      data,
		fac:       fac,
		sideBrush: make(map[int]int, len(data.BrushSides)),
		byPlane:   make(map[int32][]int),
		memo:      make(map[int]int),
	}
	for ibrush := range data.Brushes {
		b := &data.Brushes[ibrush]
		for i := int(b.FstSide); i < int(b.FstSide+b.NumSides); i++ {
			if _, taken := m.sideBrush[i]; !taken {
				m.sideBrush[i] = ibrush
			}
		}
	}
	for iface := range data.OrigFaces {
		pnum := data.OrigFaces[iface].PNum
		m.byPlane[pnum] = append(m.byPlane[pnum], iface)
	}
	return m
}

func (m *FaceMapper) OrigFaceForSide(iside int) (int, bool) {
	if iface, ok := m.memo[iside]; ok {
		return iface, iface >= 0
	}
	iface := m.match(iside)
	m.memo[iside] = iface
	return iface, iface >= 0
}

func (m *FaceMapper) match(iside int) int {
	if iside < 0 || iside >= len(m.data.BrushSides) {
		return -1
	}
	ibrush, ok := m.sideBrush[iside]
	if !ok {
		return -1
	}
	candidates := m.byPlane[m.data.BrushSides[iside].PNum]
	if len(candidates) == 0 {
		return -1
	}

	w, err := m.fac.FromSide(ibrush, iside)
	if err != nil || len(w) < 3 {
		return -1
	}
	center := w.Center()

	best := -1
	bestDist := float32(faceMatchDist)
	for _, iface := range candidates {
		fw := m.fac.FromOrigFace(iface)
		if len(fw) < 3 {
			continue
		}
		if d := vec.Sub(fw.Center(), center).Length(); d < bestDist {
			best, bestDist = iface, d
		}
	}
	if best < 0 {
		log.Debugf("side %d: no original face on plane %d nearby", iside, m.data.BrushSides[iside].PNum)
	}
	return best
}

// SPDX-License-Identifier: GPL-2.0-or-later

// Package winding builds and clips the convex planar polygons used to
// recover brush faces from their compiled half-space form.
package winding

import (
	"github.com/chewxy/math32"

	"gobsp/bspdata"
	"gobsp/math/vec"
)

const (
	// MaxCoord is the world half-extent. Anything outside is a failed clip.
	MaxCoord       = 32768
	MaxCoordStrata = 131072

	epsClip  = 0.01
	epsDegen = 0.1
	epsPoint = 0.01
)

// Winding is an ordered convex planar polygon. Operations return new
// windings, shared instances must not be modified in place.
type Winding []vec.Vec3

func (w Winding) IsEmpty() bool { return len(w) == 0 }

const (
	sideFront = iota
	sideBack
	sideOn
)

// BaseForPlane spans a huge square on the plane, centered on its closest
// point to the origin. maxLen must cover the world diagonal.
func BaseForPlane(p bspdata.DPlane, maxLen float32) Winding {
	org := p.Normal.Scale(p.Dist)

	// pick the major axis and a vector not parallel to it
	up := vec.Vec3{Z: 1}
	if math32.Abs(p.Normal.Z) > math32.Abs(p.Normal.X) &&
		math32.Abs(p.Normal.Z) > math32.Abs(p.Normal.Y) {
		up = vec.Vec3{X: 1}
	}

	up = vec.Sub(up, p.Normal.Scale(vec.Dot(up, p.Normal)))
	up = up.Normalize()
	right := vec.Cross(up, p.Normal)

	up = up.Scale(maxLen)
	right = right.Scale(maxLen)

	return Winding{
		vec.Add(vec.Sub(org, right), up),
		vec.Add(vec.Add(org, right), up),
		vec.Sub(vec.Add(org, right), up),
		vec.Sub(vec.Sub(org, right), up),
	}
}

// Clip cuts the winding against a half-space, keeping the part in front
// of or on the plane. A winding lying entirely on the plane survives only
// with keepOn.
func (w Winding) Clip(p bspdata.DPlane, keepOn bool) Winding {
	if len(w) == 0 {
		return nil
	}
	dists := make([]float32, len(w))
	sides := make([]int, len(w))
	var counts [3]int
	for i, v := range w {
		d := vec.Dot(p.Normal, v) - p.Dist
		dists[i] = d
		switch {
		case d > epsClip:
			sides[i] = sideFront
		case d < -epsClip:
			sides[i] = sideBack
		default:
			sides[i] = sideOn
		}
		counts[sides[i]]++
	}

	if counts[sideFront] == 0 {
		if keepOn && counts[sideOn] == len(w) {
			return w
		}
		return nil
	}
	if counts[sideBack] == 0 {
		return w
	}

	out := make(Winding, 0, len(w)+4)
	for i, v := range w {
		j := (i + 1) % len(w)
		if sides[i] == sideOn {
			out = append(out, v)
			continue
		}
		if sides[i] == sideFront {
			out = append(out, v)
		}
		if sides[j] == sideOn || sides[j] == sides[i] {
			continue
		}

		t := dists[i] / (dists[i] - dists[j])
		v2 := w[j]
		a, b := v.Array(), v2.Array()
		n := p.Normal.Array()
		var mid [3]float32
		for k := range mid {
			// keep axial planes exact
			switch {
			case n[k] == 1:
				mid[k] = p.Dist
			case n[k] == -1:
				mid[k] = -p.Dist
			default:
				mid[k] = a[k] + t*(b[k]-a[k])
			}
		}
		out = append(out, vec.VFromA(mid))
	}
	return out
}

// RemoveDegenerated drops vertices that coincide with their neighbor.
func (w Winding) RemoveDegenerated() Winding {
	if len(w) == 0 {
		return w
	}
	out := make(Winding, 0, len(w))
	for i, v := range w {
		next := w[(i+1)%len(w)]
		d := vec.Sub(v, next)
		if d.Length() > epsDegen {
			out = append(out, v)
		}
	}
	return out
}

// IsHuge reports whether any vertex escapes the given world extent.
func (w Winding) IsHuge(maxCoord float32) bool {
	for _, v := range w {
		if math32.Abs(v.X) > maxCoord || math32.Abs(v.Y) > maxCoord || math32.Abs(v.Z) > maxCoord {
			return true
		}
	}
	return false
}

// IsValid reports whether every vertex is finite.
func (w Winding) IsValid() bool {
	for i := range w {
		if !w[i].IsValid() {
			return false
		}
	}
	return true
}

// BuildPlane picks the first three non-collinear vertices, the triple the
// map editor expects as a plane definition. ok is false when the winding
// is degenerate.
func (w Winding) BuildPlane() (pts [3]vec.Vec3, ok bool) {
	if len(w) < 3 {
		return pts, false
	}
	pts[0] = w[0]
	i := 1
	for ; i < len(w); i++ {
		d := vec.Sub(w[i], pts[0])
		if d.Length() > epsPoint {
			pts[1] = w[i]
			break
		}
	}
	if i == len(w) {
		return pts, false
	}
	e1 := vec.Sub(pts[1], pts[0])
	for i++; i < len(w); i++ {
		e2 := vec.Sub(w[i], pts[0])
		c := vec.Cross(e1, e2)
		if c.Length() > epsPoint {
			pts[2] = w[i]
			return pts, true
		}
	}
	return pts, false
}

// Rotate turns every vertex by euler angles in degrees.
func (w Winding) Rotate(angles vec.Vec3) Winding {
	if vec.Equal(angles, vec.Vec3{}) {
		return w
	}
	out := make(Winding, len(w))
	for i, v := range w {
		out[i] = vec.Rotate(v, angles)
	}
	return out
}

// Translate shifts every vertex by offset.
func (w Winding) Translate(offset vec.Vec3) Winding {
	if vec.Equal(offset, vec.Vec3{}) {
		return w
	}
	out := make(Winding, len(w))
	for i, v := range w {
		out[i] = vec.Translate(v, offset)
	}
	return out
}

// Bounds returns the axis-aligned box enclosing the winding.
func (w Winding) Bounds() (mins, maxs vec.Vec3) {
	if len(w) == 0 {
		return
	}
	mins, maxs = w[0], w[0]
	for _, v := range w[1:] {
		mins = vec.Min(mins, v)
		maxs = vec.Max(maxs, v)
	}
	return mins, maxs
}

// Center returns the vertex average.
func (w Winding) Center() vec.Vec3 {
	var c vec.Vec3
	if len(w) == 0 {
		return c
	}
	for _, v := range w {
		c = vec.Add(c, v)
	}
	return c.Scale(1 / float32(len(w)))
}

// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"io"

	"github.com/chewxy/math32"

	"gobsp/brush"
	"gobsp/math/vec"
)

var vec3Zero = vec.Vec3{}

// counter hands out sequential editor IDs starting at 1.
type counter struct {
	n int
}

func (c *counter) Next() int {
	c.n++
	return c.n
}

// flatTexture paints every side with one material and world-aligned
// axes derived from the face normal.
type flatTexture struct {
	material string
}

func (t flatTexture) Texture(_ int, normal vec.Vec3) (string, vec.Vec4, vec.Vec4) {
	// world alignment: project the dominant axis out of the uv basis
	au := vec.Vec3{X: 1}
	av := vec.Vec3{Y: -1}
	ax := math32.Abs(normal.X)
	ay := math32.Abs(normal.Y)
	az := math32.Abs(normal.Z)
	switch {
	case ax >= ay && ax >= az:
		au = vec.Vec3{Y: 1}
		av = vec.Vec3{Z: -1}
	case ay >= ax && ay >= az:
		au = vec.Vec3{X: 1}
		av = vec.Vec3{Z: -1}
	}
	return t.material,
		vec.Vec4{X: au.X, Y: au.Y, Z: au.Z},
		vec.Vec4{X: av.X, Y: av.Y, Z: av.Z}
}

// textWriter dumps solids in VMF-style blocks.
type textWriter struct {
	w io.Writer
}

func (t *textWriter) BeginSolid(id int) {
	fmt.Fprintf(t.w, "solid\n{\n\t\"id\" \"%d\"\n", id)
}

func (t *textWriter) EndSolid() {
	fmt.Fprintf(t.w, "}\n")
}

func (t *textWriter) Side(s *brush.Side) {
	fmt.Fprintf(t.w, "\tside\n\t{\n")
	fmt.Fprintf(t.w, "\t\t\"id\" \"%d\"\n", s.ID)
	fmt.Fprintf(t.w, "\t\t\"plane\" \"(%s) (%s) (%s)\"\n",
		fmtVec(s.PlanePoints[0]), fmtVec(s.PlanePoints[1]), fmtVec(s.PlanePoints[2]))
	fmt.Fprintf(t.w, "\t\t\"material\" \"%s\"\n", s.Material)
	fmt.Fprintf(t.w, "\t\t\"uaxis\" \"[%g %g %g %g] 0.25\"\n", s.UAxis.X, s.UAxis.Y, s.UAxis.Z, s.UAxis.W)
	fmt.Fprintf(t.w, "\t\t\"vaxis\" \"[%g %g %g %g] 0.25\"\n", s.VAxis.X, s.VAxis.Y, s.VAxis.Z, s.VAxis.W)
	fmt.Fprintf(t.w, "\t\t\"smoothing_groups\" \"%d\"\n", s.Smoothing)
	fmt.Fprintf(t.w, "\t}\n")
}

func fmtVec(v vec.Vec3) string {
	return fmt.Sprintf("%g %g %g", v.X, v.Y, v.Z)
}

// Package vec holds the small float32 vector types the geometry code is
// built on.
package vec

import (
	"github.com/chewxy/math32"
)

// Vec3 is a point or direction in map units.
type Vec3 struct {
	X, Y, Z float32
}

// VFromA builds a vector from a component array.
func VFromA(a [3]float32) Vec3 {
	return Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// Array returns the components in index form.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func (v Vec3) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Scale multiplies every component by s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Normalize returns the unit vector of v. The null vector stays null.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Snap rounds each component to the nearest multiple of grid. A grid of 0
// returns the vector unchanged.
func (v Vec3) Snap(grid float32) Vec3 {
	if grid == 0 {
		return v
	}
	return Vec3{
		X: math32.Round(v.X/grid) * grid,
		Y: math32.Round(v.Y/grid) * grid,
		Z: math32.Round(v.Z/grid) * grid,
	}
}

// IsValid reports whether no component is NaN or infinite.
func (v Vec3) IsValid() bool {
	for _, f := range v.Array() {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func Add(a, b Vec3) Vec3 {
	return Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

func Sub(a, b Vec3) Vec3 {
	return Vec3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

func Dot(a, b Vec3) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// DoublePrecDot computes the dot product in float64 and rounds once at
// the end, for computations where float32 drift matters.
func DoublePrecDot(a, b Vec3) float32 {
	x := float64(a.X) * float64(b.X)
	y := float64(a.Y) * float64(b.Y)
	z := float64(a.Z) * float64(b.Z)
	return float32(x + y + z)
}

func Cross(a, b Vec3) Vec3 {
	return Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// Equal reports exact component equality.
func Equal(a, b Vec3) bool {
	return a == b
}

// Min returns the componentwise minimum of a and b.
func Min(a, b Vec3) Vec3 {
	return Vec3{
		X: math32.Min(a.X, b.X),
		Y: math32.Min(a.Y, b.Y),
		Z: math32.Min(a.Z, b.Z),
	}
}

// Max returns the componentwise maximum of a and b.
func Max(a, b Vec3) Vec3 {
	return Vec3{
		X: math32.Max(a.X, b.X),
		Y: math32.Max(a.Y, b.Y),
		Z: math32.Max(a.Z, b.Z),
	}
}

// Rotate turns v by euler angles (pitch, yaw, roll) in degrees, applied
// in roll, pitch, yaw order as the engine does for entity angles.
func Rotate(v, angles Vec3) Vec3 {
	deg := math32.Pi * 2 / 360
	sp, cp := math32.Sincos(angles.X * deg) // pitch, about y
	sy, cy := math32.Sincos(angles.Y * deg) // yaw, about z
	sr, cr := math32.Sincos(angles.Z * deg) // roll, about x

	v = Vec3{X: v.X, Y: v.Y*cr - v.Z*sr, Z: v.Y*sr + v.Z*cr}
	v = Vec3{X: v.X*cp + v.Z*sp, Y: v.Y, Z: -v.X*sp + v.Z*cp}
	return Vec3{X: v.X*cy - v.Y*sy, Y: v.X*sy + v.Y*cy, Z: v.Z}
}

// Translate returns v + offset.
func Translate(v, offset Vec3) Vec3 {
	return Add(v, offset)
}

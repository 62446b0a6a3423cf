// Package orbit implements an orbiting camera around a target point.
package orbit

import "github.com/chewxy/math32"

const (
	minDistance = 0.05
	// Keeps the camera from flipping over the poles
	maxPitch = math32.Pi/2 - 0.01
)

// Vec3 is a point or direction in world space
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Camera orbits Target at Distance, with Yaw around the Y axis and Pitch above
// the XZ plane, both in radians
type Camera struct {
	Target   Vec3
	Yaw      float32
	Pitch    float32
	Distance float32
}

// FromPosition builds the orbit that places the camera at pos looking at target
func FromPosition(pos, target Vec3) Camera {
	offset := pos.Sub(target)
	dist := offset.Length()
	if dist < minDistance {
		return Camera{Target: target, Distance: minDistance}
	}

	return Camera{
		Target:   target,
		Yaw:      math32.Atan2(offset.X, offset.Z),
		Pitch:    clamp(math32.Asin(offset.Y/dist), -maxPitch, maxPitch),
		Distance: dist,
	}
}

// Position returns the camera position in world space
func (c Camera) Position() Vec3 {
	cp := math32.Cos(c.Pitch)
	offset := Vec3{
		X: c.Distance * cp * math32.Sin(c.Yaw),
		Y: c.Distance * math32.Sin(c.Pitch),
		Z: c.Distance * cp * math32.Cos(c.Yaw),
	}
	return c.Target.Add(offset)
}

// Rotate applies a mouse drag of (dx, dy) pixels
func (c *Camera) Rotate(dx, dy, sensX, sensY float32) {
	c.Yaw -= dx * sensX
	c.Pitch = clamp(c.Pitch+dy*sensY, -maxPitch, maxPitch)
}

// Zoom moves the camera toward the target for positive wheel values
func (c *Camera) Zoom(wheel, sensitivity float32) {
	if wheel == 0 {
		return
	}
	c.Distance = c.Distance * (1 - wheel*sensitivity)
	if c.Distance < minDistance {
		c.Distance = minDistance
	}
}

// Pan shifts the target sideways and vertically relative to the view
func (c *Camera) Pan(dx, dy, sensitivity float32) {
	right := Vec3{X: math32.Cos(c.Yaw), Z: -math32.Sin(c.Yaw)}
	up := Vec3{Y: 1}
	scale := sensitivity * c.Distance

	c.Target = c.Target.Add(right.Scale(-dx * scale)).Add(up.Scale(dy * scale))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

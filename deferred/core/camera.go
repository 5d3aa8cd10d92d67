package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera holds the pose and lens of the viewer. Y is up; the camera looks
// down -Z in its own space (right-handed, mgl32 conventions).
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32 // radians, 0 looks down -Z
	Pitch    float32 // radians, positive looks down
	FOV      float32 // vertical, radians
	Aspect   float32
	NearClip float32
	FarClip  float32

	world    mgl32.Mat4
	view     mgl32.Mat4
	proj     mgl32.Mat4
	viewProj mgl32.Mat4
}

func NewCamera() *Camera {
	c := &Camera{
		Position: mgl32.Vec3{-320, 70, 100},
		Yaw:      mgl32.DegToRad(73),
		Pitch:    mgl32.DegToRad(8),
		FOV:      math.Pi / 4,
		Aspect:   4.0 / 3.0,
		NearClip: 1,
		FarClip:  50000,
	}
	c.UpdateMatrices()
	return c
}

func (c *Camera) GetForward() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(-math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
	}
}

func (c *Camera) GetRight() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

// UpdateMatrices rebuilds the cached matrices. Call after changing any field.
func (c *Camera) UpdateMatrices() {
	if c.Aspect <= 0 {
		c.Aspect = 1
	}
	eye := c.Position
	target := eye.Add(c.GetForward())
	c.view = mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
	c.world = c.view.Inv()
	c.proj = mgl32.Perspective(c.FOV, c.Aspect, c.NearClip, c.FarClip)
	c.viewProj = c.proj.Mul4(c.view)
}

func (c *Camera) ViewMatrix() mgl32.Mat4           { return c.view }
func (c *Camera) ProjectionMatrix() mgl32.Mat4     { return c.proj }
func (c *Camera) ViewProjectionMatrix() mgl32.Mat4 { return c.viewProj }

// WorldMatrix is the inverse of the view matrix (the camera's own transform).
func (c *Camera) WorldMatrix() mgl32.Mat4 { return c.world }

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
// Returns planes in order: Left, Right, Bottom, Top, Near, Far.
// Plane is Ax + By + Cz + D = 0 with the normal pointing inside.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	var planes [6]mgl32.Vec4
	row := func(i int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(i, 0), vp.At(i, 1), vp.At(i, 2), vp.At(i, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes[0] = r3.Add(r0) // left
	planes[1] = r3.Sub(r0) // right
	planes[2] = r3.Add(r1) // bottom
	planes[3] = r3.Sub(r1) // top
	planes[4] = r3.Add(r2) // near, GL clip z in -1..1
	planes[5] = r3.Sub(r2) // far

	for i := 0; i < 6; i++ {
		length := planes[i].Vec3().Len()
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}
	return planes
}

// AABBInFrustum checks if an AABB is at least partially inside the frustum.
func AABBInFrustum(aabb [2]mgl32.Vec3, planes [6]mgl32.Vec4) bool {
	for _, plane := range planes {
		// Most-inside corner along the plane normal. If even that one is
		// behind the plane, the whole box is outside.
		var p mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane[axis] > 0 {
				p[axis] = aabb[1][axis]
			} else {
				p[axis] = aabb[0][axis]
			}
		}
		if plane.Vec3().Dot(p)+plane[3] < 0 {
			return false
		}
	}
	return true
}

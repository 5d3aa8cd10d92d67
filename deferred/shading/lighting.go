package shading

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/deferred/core"
)

// Attenuation is the linear falloff: 1 at the light, 0 at and beyond radius.
func Attenuation(distance, radius float32) float32 {
	if radius <= 0 {
		return 0
	}
	return mgl32.Clamp(1-distance/radius, 0, 1)
}

func normalizeOr(v, fallback mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return fallback
	}
	return v.Mul(1 / l)
}

func hadamard(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// ShadePointLight returns the Blinn-Phong contribution of one light to the
// pixel. ok is false when the pixel is outside the light's radius.
func ShadePointLight(rec PixelRecord, light core.PointLight, cameraPos mgl32.Vec3) (c mgl32.Vec3, ok bool) {
	toLight := light.Position.Sub(rec.WorldPosition)
	dist := toLight.Len()
	intensity := Attenuation(dist, light.Radius)
	if intensity == 0 {
		return mgl32.Vec3{}, false
	}

	n := normalizeOr(rec.WorldNormal, mgl32.Vec3{0, 1, 0})
	l := normalizeOr(toLight, n)
	v := normalizeOr(cameraPos.Sub(rec.WorldPosition), n)
	h := normalizeOr(l.Add(v), n)

	power := rec.SpecularPower
	if power <= 0 {
		power = core.DefaultSpecularPower
	}
	diffuse := max(n.Dot(l), 0)
	specular := float32(math.Pow(float64(max(n.Dot(h), 0)), float64(power)))

	radiance := light.Color.Mul(intensity)
	c = hadamard(rec.Albedo, radiance.Mul(diffuse)).Add(radiance.Mul(specular * rec.SpecularIntensity))
	return c, true
}

func ShadeAmbient(rec PixelRecord, ambient mgl32.Vec3) mgl32.Vec3 {
	return hadamard(rec.Albedo, ambient)
}

// ShadeForward lights a surface against the whole light list in one go.
func ShadeForward(rec PixelRecord, lights []core.PointLight, ambient, cameraPos mgl32.Vec3) mgl32.Vec3 {
	c := ShadeAmbient(rec, ambient)
	for _, light := range lights {
		if lc, ok := ShadePointLight(rec, light, cameraPos); ok {
			c = c.Add(lc)
		}
	}
	return c
}

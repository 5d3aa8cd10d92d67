package core

import "github.com/go-gl/mathgl/mgl32"

// DefaultSpecularPower is used when a material does not set one.
const DefaultSpecularPower = 32

type Material struct {
	Diffuse       mgl32.Vec3
	Specular      mgl32.Vec3
	SpecularPower float32
}

func NewMaterial(diffuse, specular mgl32.Vec3, power float32) Material {
	return Material{
		Diffuse:       diffuse,
		Specular:      specular,
		SpecularPower: power,
	}
}

// Helper for default white
func DefaultMaterial() Material {
	return Material{
		Diffuse:       mgl32.Vec3{1, 1, 1},
		Specular:      mgl32.Vec3{0.5, 0.5, 0.5},
		SpecularPower: DefaultSpecularPower,
	}
}

// SpecularIntensity collapses the specular colour to the single scalar the
// G-buffer has room for.
func (m Material) SpecularIntensity() float32 {
	return (m.Specular[0] + m.Specular[1] + m.Specular[2]) / 3
}

// Power returns SpecularPower, falling back to the default when unset.
func (m Material) Power() float32 {
	if m.SpecularPower <= 0 {
		return DefaultSpecularPower
	}
	return m.SpecularPower
}

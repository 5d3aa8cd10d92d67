package shading

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/deferred/core"
)

// PixelRecord is what the surface pass stores for one covered pixel.
// WorldNormal is stored as interpolated and must be renormalised by readers.
type PixelRecord struct {
	Albedo            mgl32.Vec3
	SpecularIntensity float32
	WorldPosition     mgl32.Vec3
	WorldNormal       mgl32.Vec3
	SpecularPower     float32
}

// SurfaceRecord builds the record for a fragment of a draw using material m.
func SurfaceRecord(m core.Material, vertexColor, worldPos, worldNormal mgl32.Vec3) PixelRecord {
	return PixelRecord{
		Albedo: mgl32.Vec3{
			m.Diffuse[0] * vertexColor[0],
			m.Diffuse[1] * vertexColor[1],
			m.Diffuse[2] * vertexColor[2],
		},
		SpecularIntensity: m.SpecularIntensity(),
		WorldPosition:     worldPos,
		WorldNormal:       worldNormal,
		SpecularPower:     m.Power(),
	}
}

// EncodeSurface lays a record out across the three G-buffer targets:
//
//	0: albedo.rgb, specular intensity
//	1: world position.xyz, specular power
//	2: world normal.xyz, unused
func EncodeSurface(rec PixelRecord) [3]mgl32.Vec4 {
	return [3]mgl32.Vec4{
		rec.Albedo.Vec4(rec.SpecularIntensity),
		rec.WorldPosition.Vec4(rec.SpecularPower),
		rec.WorldNormal.Vec4(0),
	}
}

func DecodeSurface(texels [3]mgl32.Vec4) PixelRecord {
	return PixelRecord{
		Albedo:            texels[0].Vec3(),
		SpecularIntensity: texels[0].W(),
		WorldPosition:     texels[1].Vec3(),
		WorldNormal:       texels[2].Vec3(),
		SpecularPower:     texels[1].W(),
	}
}

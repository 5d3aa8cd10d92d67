package shading

import (
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lumen/deferred/core"
)

func TestAttenuationBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		distance float32
		radius   float32
		want     float32
	}{
		{name: "at the light", distance: 0, radius: 30, want: 1},
		{name: "at the radius", distance: 30, radius: 30, want: 0},
		{name: "beyond the radius", distance: 45, radius: 30, want: 0},
		{name: "half way", distance: 15, radius: 30, want: 0.5},
		{name: "zero radius", distance: 0, radius: 0, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Attenuation(tc.distance, tc.radius))
		})
	}
}

func TestShadePointLightHeadOn(t *testing.T) {
	rec := PixelRecord{
		Albedo:            mgl32.Vec3{0.5, 0.25, 1},
		SpecularIntensity: 0.2,
		WorldPosition:     mgl32.Vec3{0, 0, 0},
		WorldNormal:       mgl32.Vec3{0, 3, 0}, // unnormalised on purpose
		SpecularPower:     16,
	}
	light := core.PointLight{Position: mgl32.Vec3{0, 10, 0}, Radius: 40, Color: mgl32.Vec3{1, 1, 0.5}}

	c, ok := ShadePointLight(rec, light, mgl32.Vec3{0, 100, 0})
	require.True(t, ok)

	// N·L = N·H = 1, intensity 0.75.
	want := mgl32.Vec3{
		0.75 * (0.5*1 + 0.2*1),
		0.75 * (0.25*1 + 0.2*1),
		0.75 * (1*0.5 + 0.2*0.5),
	}
	assert.True(t, want.ApproxEqualThreshold(c, 1e-5), "got %v want %v", c, want)
}

func TestShadePointLightOutOfRange(t *testing.T) {
	rec := PixelRecord{Albedo: mgl32.Vec3{1, 1, 1}, WorldNormal: mgl32.Vec3{0, 1, 0}}
	light := core.PointLight{Position: mgl32.Vec3{0, 30, 0}, Radius: 30, Color: mgl32.Vec3{1, 1, 1}}
	_, ok := ShadePointLight(rec, light, mgl32.Vec3{0, 10, 0})
	assert.False(t, ok)
}

func TestShadePointLightFacingAway(t *testing.T) {
	rec := PixelRecord{Albedo: mgl32.Vec3{1, 1, 1}, WorldNormal: mgl32.Vec3{0, -1, 0}, SpecularPower: 8}
	light := core.PointLight{Position: mgl32.Vec3{0, 5, 0}, Radius: 30, Color: mgl32.Vec3{1, 1, 1}}
	c, ok := ShadePointLight(rec, light, mgl32.Vec3{0, 10, 0})
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{}, c)
}

func TestAmbientIsAlbedoTimesAmbient(t *testing.T) {
	rec := PixelRecord{Albedo: mgl32.Vec3{0.5, 1, 0.2}}
	got := ShadeAmbient(rec, mgl32.Vec3{0.1, 0.1, 0.15})
	assert.True(t, got.ApproxEqualThreshold(mgl32.Vec3{0.05, 0.1, 0.03}, 1e-6), "got %v", got)
}

func TestAccumulationOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	rec := PixelRecord{
		Albedo:            mgl32.Vec3{0.8, 0.7, 0.6},
		SpecularIntensity: 0.5,
		WorldPosition:     mgl32.Vec3{1, 0, 2},
		WorldNormal:       mgl32.Vec3{0.1, 0.9, 0.05},
		SpecularPower:     32,
	}
	camera := mgl32.Vec3{-20, 15, 30}

	lights := make([]core.PointLight, 64)
	for i := range lights {
		lights[i] = core.PointLight{
			Position: mgl32.Vec3{rng.Float32()*40 - 20, rng.Float32() * 20, rng.Float32()*40 - 20},
			Radius:   20 + rng.Float32()*20,
			Color:    mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()},
		}
	}

	accumulate := func(order []core.PointLight) mgl32.Vec3 {
		acc := ShadeAmbient(rec, mgl32.Vec3{0.1, 0.1, 0.15})
		for _, l := range order {
			if c, ok := ShadePointLight(rec, l, camera); ok {
				acc = acc.Add(c)
			}
		}
		return acc
	}

	reference := accumulate(lights)
	assert.True(t, reference.ApproxEqualThreshold(ShadeForward(rec, lights, mgl32.Vec3{0.1, 0.1, 0.15}, camera), 1e-5))
	for i := 0; i < 10; i++ {
		shuffled := append([]core.PointLight(nil), lights...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := accumulate(shuffled)
		assert.True(t, reference.ApproxEqualThreshold(got, 1e-4), "shuffle %d: %v vs %v", i, got, reference)
	}
}

func TestSurfaceRecordEncoding(t *testing.T) {
	m := core.NewMaterial(mgl32.Vec3{0.5, 0.5, 1}, mgl32.Vec3{0.3, 0.3, 0.6}, 24)
	rec := SurfaceRecord(m, mgl32.Vec3{1, 0.5, 0.5}, mgl32.Vec3{10, -2, 300}, mgl32.Vec3{0, 0.9, 0.1})

	assert.Equal(t, mgl32.Vec3{0.5, 0.25, 0.5}, rec.Albedo)
	assert.InDelta(t, 0.4, rec.SpecularIntensity, 1e-6)
	assert.Equal(t, float32(24), rec.SpecularPower)

	texels := EncodeSurface(rec)
	assert.Equal(t, mgl32.Vec4{10, -2, 300, 24}, texels[1])
	assert.Equal(t, rec, DecodeSurface(texels))
}

package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// PointLight is a light with linear falloff that reaches zero at Radius.
type PointLight struct {
	Position mgl32.Vec3
	Radius   float32
	Color    mgl32.Vec3
}

// LightGPU is the GPU representation of a point light.
// struct PointLight { position: vec3<f32>, radius: f32, color: vec3<f32>, pad: f32 }
type LightGPU struct {
	Position [3]float32
	Radius   float32
	Color    [3]float32
	Pad      float32
}

// LightGPUSize is the byte stride of one LightGPU record.
const LightGPUSize = 32

func (l PointLight) GPU() LightGPU {
	return LightGPU{
		Position: l.Position,
		Radius:   l.Radius,
		Color:    l.Color,
	}
}

// AppendBytes appends the little-endian encoding of the record to buf.
func (g LightGPU) AppendBytes(buf []byte) []byte {
	for _, v := range [8]float32{
		g.Position[0], g.Position[1], g.Position[2], g.Radius,
		g.Color[0], g.Color[1], g.Color[2], g.Pad,
	} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// LightMirror receives a full copy of the active lights once per frame.
type LightMirror interface {
	UploadLights(lights []PointLight)
}

// LightBuffer is a CPU-side mirror with the same layout the GPU consumes.
// The software renderer reads lights back from here so both devices see
// exactly what was synced, never the live store.
type LightBuffer struct {
	Records []LightGPU
	Count   int
}

func NewLightBuffer(capacity int) *LightBuffer {
	return &LightBuffer{Records: make([]LightGPU, 0, capacity)}
}

func (b *LightBuffer) UploadLights(lights []PointLight) {
	b.Records = b.Records[:0]
	for _, l := range lights {
		b.Records = append(b.Records, l.GPU())
	}
	b.Count = len(lights)
}

// Lights decodes the mirrored records.
func (b *LightBuffer) Lights() []PointLight {
	out := make([]PointLight, b.Count)
	for i := 0; i < b.Count; i++ {
		r := b.Records[i]
		out[i] = PointLight{Position: r.Position, Radius: r.Radius, Color: r.Color}
	}
	return out
}

// Bytes packs the active records for a buffer upload.
func (b *LightBuffer) Bytes() []byte {
	buf := make([]byte, 0, b.Count*LightGPUSize)
	for i := 0; i < b.Count; i++ {
		buf = b.Records[i].AppendBytes(buf)
	}
	return buf
}

package gpu

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/deferred/core"
)

// Byte sizes of the uniform and vertex records shared with the shaders.
const (
	cameraUniformSize   = 208
	objectUniformSize   = 160
	meshVertexSize      = 36
	billboardVertexSize = 32
)

func appendFloats(buf []byte, vs ...float32) []byte {
	for _, v := range vs {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

func appendMat4(buf []byte, m mgl32.Mat4) []byte {
	// mgl32 is column-major, as is WGSL.
	return appendFloats(buf, m[:]...)
}

// CameraUniform is the per-frame data every pass binds at group 0.
//
//	struct Camera {
//	  view_proj: mat4x4<f32>,      // 0
//	  inv_view_proj: mat4x4<f32>,  // 64
//	  cam_pos: vec4<f32>,          // 128
//	  ambient: vec4<f32>,          // 144
//	  horizon: vec4<f32>,          // 160
//	  zenith: vec4<f32>,           // 176
//	  params: vec4<f32>,           // 192: billboard scale, light count, viewport
//	}
type CameraUniform struct {
	ViewProj       mgl32.Mat4
	CameraPosition mgl32.Vec3
	Ambient        mgl32.Vec3
	Sky            core.Sky
	BillboardScale float32
	LightCount     int
	Width, Height  int
}

func (u CameraUniform) Bytes() []byte {
	buf := make([]byte, 0, cameraUniformSize)
	buf = appendMat4(buf, u.ViewProj)
	buf = appendMat4(buf, u.ViewProj.Inv())
	buf = appendFloats(buf, u.CameraPosition[0], u.CameraPosition[1], u.CameraPosition[2], 1)
	buf = appendFloats(buf, u.Ambient[0], u.Ambient[1], u.Ambient[2], 1)
	buf = appendFloats(buf, u.Sky.Horizon[0], u.Sky.Horizon[1], u.Sky.Horizon[2], 1)
	buf = appendFloats(buf, u.Sky.Zenith[0], u.Sky.Zenith[1], u.Sky.Zenith[2], 1)
	buf = appendFloats(buf, u.BillboardScale, float32(u.LightCount), float32(u.Width), float32(u.Height))
	return buf
}

// objectUniformBytes packs the per-batch uniform.
//
//	struct Object { model: mat4x4, normal: mat4x4, diffuse: vec4, specular: vec4 }
//
// specular.w carries the material's specular power.
func objectUniformBytes(b *core.DrawBatch) []byte {
	buf := make([]byte, 0, objectUniformSize)
	buf = appendMat4(buf, b.Transform.ObjectToWorld())
	buf = appendMat4(buf, b.Transform.NormalMatrix().Mat4())
	m := b.Material
	buf = appendFloats(buf, m.Diffuse[0], m.Diffuse[1], m.Diffuse[2], 1)
	buf = appendFloats(buf, m.Specular[0], m.Specular[1], m.Specular[2], m.Power())
	return buf
}

// meshVertexBytes packs position, normal and colour for every vertex.
func meshVertexBytes(m *core.Mesh) []byte {
	buf := make([]byte, 0, len(m.Vertices)*meshVertexSize)
	for _, v := range m.Vertices {
		buf = appendFloats(buf, v.Position[0], v.Position[1], v.Position[2])
		buf = appendFloats(buf, v.Normal[0], v.Normal[1], v.Normal[2])
		buf = appendFloats(buf, v.Color[0], v.Color[1], v.Color[2])
	}
	return buf
}

func indexBytes(indices []uint32) []byte {
	buf := make([]byte, 0, len(indices)*4)
	for _, i := range indices {
		buf = binary.LittleEndian.AppendUint32(buf, i)
	}
	return buf
}

// billboardVertexBytes builds four camera-facing corners per light, in the
// same corner order as the light quads so QuadIndexList applies.
func billboardVertexBytes(lights []core.PointLight, right, up mgl32.Vec3, scale float32) []byte {
	corners := [4][2]float32{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	buf := make([]byte, 0, len(lights)*4*billboardVertexSize)
	for _, l := range lights {
		size := l.Radius * scale
		for _, c := range corners {
			p := l.Position.Add(right.Mul(c[0] * size)).Add(up.Mul(c[1] * size))
			buf = appendFloats(buf, p[0], p[1], p[2], c[0], c[1], l.Color[0], l.Color[1], l.Color[2])
		}
	}
	return buf
}

// ensureBuffer grows *buf to fit data plus headroom and uploads data. It
// reports whether the buffer was recreated, in which case bind groups that
// reference it must be rebuilt.
func (d *Device) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) (bool, error) {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}
	if neededSize == 0 {
		neededSize = 4
	}

	recreated := false
	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
		}
		newBuf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            name,
			Size:             neededSize,
			Usage:            usage | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			*buf = nil
			return false, err
		}
		*buf = newBuf
		recreated = true
	}
	if len(data) > 0 {
		if err := d.queue.WriteBuffer(*buf, 0, data); err != nil {
			return recreated, err
		}
	}
	return recreated, nil
}

package core

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type BatchId string

func makeBatchId() BatchId {
	return BatchId(uuid.NewString())
}

// DrawBatch is one mesh drawn with one material and one transform.
type DrawBatch struct {
	Id        BatchId
	Mesh      *Mesh
	Material  Material
	Transform *Transform
	WorldAABB *[2]mgl32.Vec3 // Min, Max
}

func NewDrawBatch(mesh *Mesh, material Material) *DrawBatch {
	return &DrawBatch{
		Id:        makeBatchId(),
		Mesh:      mesh,
		Material:  material,
		Transform: NewTransform(),
	}
}

func (b *DrawBatch) UpdateWorldAABB() bool {
	if !b.Transform.Dirty && b.WorldAABB != nil {
		return false
	}

	bounds := b.Mesh.Bounds()
	minB, maxB := bounds[0], bounds[1]
	if minB.X() > maxB.X() {
		b.WorldAABB = nil
	} else {
		corners := [8]mgl32.Vec3{
			{minB.X(), minB.Y(), minB.Z()},
			{maxB.X(), minB.Y(), minB.Z()},
			{minB.X(), maxB.Y(), minB.Z()},
			{maxB.X(), maxB.Y(), minB.Z()},
			{minB.X(), minB.Y(), maxB.Z()},
			{maxB.X(), minB.Y(), maxB.Z()},
			{minB.X(), maxB.Y(), maxB.Z()},
			{maxB.X(), maxB.Y(), maxB.Z()},
		}

		o2w := b.Transform.ObjectToWorld()

		inf := float32(1e20)
		wMin := mgl32.Vec3{inf, inf, inf}
		wMax := mgl32.Vec3{-inf, -inf, -inf}
		for _, c := range corners {
			wc := o2w.Mul4x1(c.Vec4(1.0)).Vec3()
			wMin = mgl32.Vec3{min(wMin.X(), wc.X()), min(wMin.Y(), wc.Y()), min(wMin.Z(), wc.Z())}
			wMax = mgl32.Vec3{max(wMax.X(), wc.X()), max(wMax.Y(), wc.Y()), max(wMax.Z(), wc.Z())}
		}
		b.WorldAABB = &[2]mgl32.Vec3{wMin, wMax}
	}

	b.Transform.Dirty = false
	return true
}

// Sky is the vertical gradient drawn behind all geometry.
type Sky struct {
	Horizon mgl32.Vec3
	Zenith  mgl32.Vec3
}

func DefaultSky() Sky {
	return Sky{
		Horizon: mgl32.Vec3{0.12, 0.12, 0.18},
		Zenith:  mgl32.Vec3{0.02, 0.02, 0.06},
	}
}

type Scene struct {
	Batches        []*DrawBatch
	VisibleBatches []*DrawBatch
	Ambient        mgl32.Vec3
	Sky            Sky
}

func NewScene() *Scene {
	return &Scene{
		Batches: []*DrawBatch{},
		Ambient: mgl32.Vec3{0.1, 0.1, 0.15},
		Sky:     DefaultSky(),
	}
}

func (s *Scene) AddBatch(b *DrawBatch) {
	s.Batches = append(s.Batches, b)
}

func (s *Scene) RemoveBatch(id BatchId) {
	for i, b := range s.Batches {
		if b.Id == id {
			s.Batches = append(s.Batches[:i], s.Batches[i+1:]...)
			return
		}
	}
}

// Commit refreshes world bounds and rebuilds VisibleBatches against the
// given frustum planes.
func (s *Scene) Commit(planes [6]mgl32.Vec4) {
	for _, b := range s.Batches {
		b.UpdateWorldAABB()
	}

	s.VisibleBatches = s.VisibleBatches[:0]
	for _, b := range s.Batches {
		if b.WorldAABB != nil && AABBInFrustum(*b.WorldAABB, planes) {
			s.VisibleBatches = append(s.VisibleBatches, b)
		}
	}
}

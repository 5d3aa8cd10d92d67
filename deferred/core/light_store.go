package core

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

// Spawn counts are taken as floor(acc + spawnEpsilon) so that an
// accumulator that should hold an exact integer but drifted just below it
// through float summation still releases the light.
const spawnEpsilon = 1e-6

// EmitterConfig describes where and how fast new lights appear.
type EmitterConfig struct {
	SpawnRate  float64 // lights per second
	MaxLights  int     // hard cap, key light included
	AreaMin    mgl32.Vec3
	AreaMax    mgl32.Vec3
	RadiusMin  float32
	RadiusMax  float32
	ColorMin   float32
	ColorMax   float32
	KeyLight   PointLight
	Seed       uint64
	NoKeyLight bool
}

func DefaultEmitterConfig() EmitterConfig {
	return EmitterConfig{
		SpawnRate: 5000,
		MaxLights: 25600,
		AreaMin:   mgl32.Vec3{-600, 5, -600},
		AreaMax:   mgl32.Vec3{600, 40, 600},
		RadiusMin: 20,
		RadiusMax: 40,
		ColorMin:  0.4,
		ColorMax:  1.0,
		KeyLight: PointLight{
			Position: mgl32.Vec3{-18000, 4000, 6000},
			Radius:   25000,
			Color:    mgl32.Vec3{0.4, 0.4, 0.7},
		},
		Seed: 1,
	}
}

// LightStore owns the authoritative, append-only list of point lights.
// Only the simulation phase mutates it; rendering reads it through Sync.
type LightStore struct {
	cfg    EmitterConfig
	lights []PointLight
	rng    *rand.Rand
	acc    float64 // fractional spawns carried between frames
}

func NewLightStore(cfg EmitterConfig) *LightStore {
	return NewLightStoreWithSource(cfg, rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
}

func NewLightStoreWithSource(cfg EmitterConfig, src rand.Source) *LightStore {
	if cfg.MaxLights < 0 {
		cfg.MaxLights = 0
	}
	s := &LightStore{
		cfg:    cfg,
		lights: make([]PointLight, 0, cfg.MaxLights),
		rng:    rand.New(src),
	}
	if !cfg.NoKeyLight && cfg.MaxLights > 0 {
		s.lights = append(s.lights, cfg.KeyLight)
	}
	return s
}

func (s *LightStore) Len() int              { return len(s.lights) }
func (s *LightStore) Cap() int              { return s.cfg.MaxLights }
func (s *LightStore) Config() EmitterConfig { return s.cfg }

// At returns the light at index i in insertion order.
func (s *LightStore) At(i int) PointLight { return s.lights[i] }

// All iterates lights in insertion order.
func (s *LightStore) All(yield func(int, PointLight) bool) {
	for i, l := range s.lights {
		if !yield(i, l) {
			return
		}
	}
}

// Snapshot returns a copy of the active lights.
func (s *LightStore) Snapshot() []PointLight {
	out := make([]PointLight, len(s.lights))
	copy(out, s.lights)
	return out
}

// Add appends a light directly, bypassing the emitter. Returns false once
// the cap has been reached.
func (s *LightStore) Add(l PointLight) bool {
	if len(s.lights) >= s.cfg.MaxLights {
		return false
	}
	s.lights = append(s.lights, l)
	return true
}

// Emit advances the spawn accumulator by dt seconds and appends the lights
// that became due. It returns how many were actually added; spawns past
// the cap are dropped without error.
func (s *LightStore) Emit(dt float64) int {
	if dt <= 0 || s.cfg.SpawnRate <= 0 {
		return 0
	}
	s.acc += dt * s.cfg.SpawnRate
	due := math.Floor(s.acc + spawnEpsilon)
	s.acc -= due

	added := 0
	for n := int(due); n > 0; n-- {
		if len(s.lights) >= s.cfg.MaxLights {
			break
		}
		s.lights = append(s.lights, s.randomLight())
		added++
	}
	return added
}

func (s *LightStore) randomLight() PointLight {
	c := s.cfg
	return PointLight{
		Position: mgl32.Vec3{
			s.uniform(c.AreaMin.X(), c.AreaMax.X()),
			s.uniform(c.AreaMin.Y(), c.AreaMax.Y()),
			s.uniform(c.AreaMin.Z(), c.AreaMax.Z()),
		},
		Radius: s.uniform(c.RadiusMin, c.RadiusMax),
		Color: mgl32.Vec3{
			s.uniform(c.ColorMin, c.ColorMax),
			s.uniform(c.ColorMin, c.ColorMax),
			s.uniform(c.ColorMin, c.ColorMax),
		},
	}
}

func (s *LightStore) uniform(lo, hi float32) float32 {
	return lo + (hi-lo)*s.rng.Float32()
}

// OrbitSpeed is the angular speed (radians/second) around the up axis for
// a light at the given distance from the origin.
func OrbitSpeed(dist float32) float32 {
	frac := dist - float32(math.Floor(float64(dist)))
	return (frac - 0.5) * 200 / (dist + 0.1)
}

// Update rotates every light except the key light around the Y axis.
func (s *LightStore) Update(dt float64) {
	if dt == 0 {
		return
	}
	for i := 1; i < len(s.lights); i++ {
		p := s.lights[i].Position
		angle := OrbitSpeed(p.Len()) * float32(dt)
		s.lights[i].Position = mgl32.Rotate3DY(angle).Mul3x1(p)
	}
}

// Sync copies every active light into the mirror. There is no dirty
// tracking; the whole list goes across each frame.
func (s *LightStore) Sync(mirror LightMirror) {
	mirror.UploadLights(s.lights)
}

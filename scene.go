package lumen

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/deferred/core"
)

// SceneDef defines the initial state of a scene.
type SceneDef struct {
	Ambient [3]float32  `yaml:"ambient"`
	Sky     SkyDef      `yaml:"sky"`
	Objects []ObjectDef `yaml:"objects"`
}

type SkyDef struct {
	Horizon [3]float32 `yaml:"horizon"`
	Zenith  [3]float32 `yaml:"zenith"`
}

// ObjectDef defines a procedural mesh instantiation.
type ObjectDef struct {
	Name     string      `yaml:"name"`
	Shape    string      `yaml:"shape"`  // "plane", "box", "sphere"
	Params   []float32   `yaml:"params"` // plane: sx, sz; box: sx, sy, sz; sphere: radius
	Segments int         `yaml:"segments"`
	Color    [3]float32  `yaml:"color"`
	Position [3]float32  `yaml:"position"`
	Rotation [3]float32  `yaml:"rotation"` // euler degrees, applied Y then X then Z
	Scale    [3]float32  `yaml:"scale"`
	Material MaterialDef `yaml:"material"`
}

// MaterialDef leaves the diffuse colour white when it is all zero.
type MaterialDef struct {
	Diffuse  [3]float32 `yaml:"diffuse"`
	Specular [3]float32 `yaml:"specular"`
	Power    float32    `yaml:"power"`
}

// DefaultSceneDef is the demo arrangement: a wide floor with a ring of
// boxes and spheres for the lights to play over.
func DefaultSceneDef() SceneDef {
	def := SceneDef{
		Ambient: [3]float32{0.1, 0.1, 0.15},
		Sky: SkyDef{
			Horizon: [3]float32{0.12, 0.12, 0.18},
			Zenith:  [3]float32{0.02, 0.02, 0.06},
		},
		Objects: []ObjectDef{{
			Name:     "floor",
			Shape:    "plane",
			Params:   []float32{1400, 1400},
			Segments: 8,
			Color:    [3]float32{0.8, 0.8, 0.8},
			Material: MaterialDef{Diffuse: [3]float32{1, 1, 1}, Specular: [3]float32{0.3, 0.3, 0.3}, Power: 16},
		}},
	}
	for i := 0; i < 8; i++ {
		angle := float32(i) * 45
		pos := mgl32.Rotate3DY(mgl32.DegToRad(angle)).Mul3x1(mgl32.Vec3{0, 0, 300})
		obj := ObjectDef{
			Position: [3]float32{pos.X(), 0, pos.Z()},
			Rotation: [3]float32{0, angle, 0},
			Material: MaterialDef{Diffuse: [3]float32{1, 1, 1}, Specular: [3]float32{0.8, 0.8, 0.8}, Power: 48},
		}
		if i%2 == 0 {
			obj.Name = fmt.Sprintf("pillar-%d", i/2)
			obj.Shape = "box"
			obj.Params = []float32{40, 120, 40}
			obj.Position[1] = 60
			obj.Color = [3]float32{0.9, 0.85, 0.7}
		} else {
			obj.Name = fmt.Sprintf("orb-%d", i/2)
			obj.Shape = "sphere"
			obj.Params = []float32{35}
			obj.Segments = 24
			obj.Position[1] = 35
			obj.Color = [3]float32{0.7, 0.8, 0.9}
		}
		def.Objects = append(def.Objects, obj)
	}
	return def
}

func vec3(v [3]float32) mgl32.Vec3 { return mgl32.Vec3(v) }

func (def ObjectDef) mesh() (*core.Mesh, error) {
	color := vec3(def.Color)
	if color == (mgl32.Vec3{}) {
		color = mgl32.Vec3{1, 1, 1}
	}
	need := map[string]int{"plane": 2, "box": 3, "sphere": 1}
	n, ok := need[def.Shape]
	if !ok {
		return nil, fmt.Errorf("object %q: unknown shape %q", def.Name, def.Shape)
	}
	if len(def.Params) != n {
		return nil, fmt.Errorf("object %q: %s takes %d params, got %d", def.Name, def.Shape, n, len(def.Params))
	}
	for _, p := range def.Params {
		if !(p > 0) {
			return nil, fmt.Errorf("object %q: params must be positive, got %v", def.Name, def.Params)
		}
	}

	switch def.Shape {
	case "plane":
		return core.CreatePlaneMesh(def.Params[0], def.Params[1], max(def.Segments, 1), color), nil
	case "box":
		return core.CreateBoxMesh(def.Params[0], def.Params[1], def.Params[2], color), nil
	default:
		segments := def.Segments
		if segments < 3 {
			segments = 16
		}
		return core.CreateSphereMesh(def.Params[0], segments, segments/2+1, color), nil
	}
}

func (def ObjectDef) batch() (*core.DrawBatch, error) {
	mesh, err := def.mesh()
	if err != nil {
		return nil, err
	}
	m := def.Material
	material := core.DefaultMaterial()
	if vec3(m.Diffuse) != (mgl32.Vec3{}) {
		material.Diffuse = vec3(m.Diffuse)
	}
	material.Specular = vec3(m.Specular)
	material.SpecularPower = m.Power

	b := core.NewDrawBatch(mesh, material)
	b.Transform.Position = vec3(def.Position)
	r := def.Rotation
	b.Transform.Rotation = mgl32.AnglesToQuat(
		mgl32.DegToRad(r[1]), mgl32.DegToRad(r[0]), mgl32.DegToRad(r[2]), mgl32.YXZ)
	if s := vec3(def.Scale); s != (mgl32.Vec3{}) {
		b.Transform.Scale = s
	}
	return b, nil
}

// BuildScene creates the draw batches for def.
func BuildScene(def SceneDef) (*core.Scene, error) {
	scene := core.NewScene()
	scene.Ambient = vec3(def.Ambient)
	scene.Sky = core.Sky{Horizon: vec3(def.Sky.Horizon), Zenith: vec3(def.Sky.Zenith)}
	for _, obj := range def.Objects {
		b, err := obj.batch()
		if err != nil {
			return nil, err
		}
		scene.AddBatch(b)
	}
	return scene, nil
}

// SceneModule provides the Scene and Camera resources and keeps the
// camera matrices and visible batch list current before rendering.
type SceneModule struct {
	Scene  *core.Scene
	Camera *core.Camera
}

func (m SceneModule) Install(app *App, cmd *Commands) {
	scene, cam := m.Scene, m.Camera
	if scene == nil {
		var err error
		if scene, err = BuildScene(DefaultSceneDef()); err != nil {
			app.reportStartupError("scene", err)
			return
		}
	}
	if cam == nil {
		cam = core.NewCamera()
	}
	cmd.AddResources(scene, cam)
	app.Logger().Infof("scene: %d batches", len(scene.Batches))

	app.UseSystem(
		System(sceneCommitSystem).
			InStage(PreRender).
			RunAlways(),
	)
}

func sceneCommitSystem(cam *core.Camera, scene *core.Scene) {
	cam.UpdateMatrices()
	scene.Commit(core.ExtractFrustum(cam.ViewProjectionMatrix()))
}

package lumen

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/gekko3d/lumen/deferred/core"
	"github.com/gekko3d/lumen/deferred/pipeline"
)

// Config is everything cmd/lumen can be told from a YAML file. Fields left
// out of the file keep the values from DefaultConfig.
type Config struct {
	Window WindowConfig `yaml:"window"`
	Render RenderConfig `yaml:"render"`
	Camera CameraConfig `yaml:"camera"`
	Lights LightsConfig `yaml:"lights"`
	Scene  SceneDef     `yaml:"scene"`
}

type WindowConfig struct {
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Title    string `yaml:"title"`
	Headless bool   `yaml:"headless"`
}

type RenderConfig struct {
	Mode       string        `yaml:"mode"` // "deferred" or "forward"
	Billboards bool          `yaml:"billboards"`
	HUD        bool          `yaml:"hud"`
	Frames     uint64        `yaml:"frames"`   // stop after this many frames, 0 runs until closed
	FixedDt    time.Duration `yaml:"fixed_dt"` // e.g. "16ms"; 0 uses the wall clock
	Output     string        `yaml:"output"`   // PNG written on exit (software device only)
}

type CameraConfig struct {
	Position    [3]float32 `yaml:"position"`
	Yaw         float32    `yaml:"yaw"`   // degrees
	Pitch       float32    `yaml:"pitch"` // degrees, positive looks down
	FOV         float32    `yaml:"fov"`   // vertical, degrees
	Near        float32    `yaml:"near"`
	Far         float32    `yaml:"far"`
	MoveSpeed   float32    `yaml:"move_speed"`
	RotateSpeed float32    `yaml:"rotate_speed"`
}

type LightDef struct {
	Position [3]float32 `yaml:"position"`
	Radius   float32    `yaml:"radius"`
	Color    [3]float32 `yaml:"color"`
}

type LightsConfig struct {
	SpawnRate  float64    `yaml:"spawn_rate"`
	MaxLights  int        `yaml:"max_lights"`
	Seed       uint64     `yaml:"seed"`
	AreaMin    [3]float32 `yaml:"area_min"`
	AreaMax    [3]float32 `yaml:"area_max"`
	RadiusMin  float32    `yaml:"radius_min"`
	RadiusMax  float32    `yaml:"radius_max"`
	ColorMin   float32    `yaml:"color_min"`
	ColorMax   float32    `yaml:"color_max"`
	KeyLight   *LightDef  `yaml:"key_light"` // null disables it
	NoKeyLight bool       `yaml:"no_key_light"`
}

func DefaultConfig() Config {
	emitter := core.DefaultEmitterConfig()
	cam := core.NewCamera()
	key := emitter.KeyLight
	return Config{
		Window: WindowConfig{Width: 1280, Height: 720, Title: "lumen"},
		Render: RenderConfig{Mode: pipeline.Deferred.String(), Billboards: true, HUD: true},
		Camera: CameraConfig{
			Position:    cam.Position,
			Yaw:         mgl32.RadToDeg(cam.Yaw),
			Pitch:       mgl32.RadToDeg(cam.Pitch),
			FOV:         mgl32.RadToDeg(cam.FOV),
			Near:        cam.NearClip,
			Far:         cam.FarClip,
			MoveSpeed:   120,
			RotateSpeed: 1.3,
		},
		Lights: LightsConfig{
			SpawnRate: emitter.SpawnRate,
			MaxLights: emitter.MaxLights,
			Seed:      emitter.Seed,
			AreaMin:   emitter.AreaMin,
			AreaMax:   emitter.AreaMax,
			RadiusMin: emitter.RadiusMin,
			RadiusMax: emitter.RadiusMax,
			ColorMin:  emitter.ColorMin,
			ColorMax:  emitter.ColorMax,
			KeyLight:  &LightDef{Position: key.Position, Radius: key.Radius, Color: key.Color},
		},
		Scene: DefaultSceneDef(),
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := ParseConfig(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML into cfg, keeping any field the document omits.
func ParseConfig(data []byte, cfg *Config) error {
	// Replace the default object list only when the document names one.
	var probe struct {
		Scene struct {
			Objects *[]ObjectDef `yaml:"objects"`
		} `yaml:"scene"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if probe.Scene.Objects != nil {
		cfg.Scene.Objects = nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if _, err := pipeline.ParseMode(c.Render.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Render.FixedDt < 0 {
		errs = append(errs, fmt.Errorf("fixed_dt must not be negative, got %v", c.Render.FixedDt))
	}
	if !(c.Camera.Near > 0) || !(c.Camera.Far > c.Camera.Near) {
		errs = append(errs, fmt.Errorf("camera clip range must satisfy 0 < near < far, got %v..%v", c.Camera.Near, c.Camera.Far))
	}
	if !(c.Camera.FOV > 0 && c.Camera.FOV < 180) {
		errs = append(errs, fmt.Errorf("camera fov must be within (0, 180) degrees, got %v", c.Camera.FOV))
	}
	l := c.Lights
	if l.SpawnRate < 0 || l.MaxLights < 0 {
		errs = append(errs, fmt.Errorf("lights: spawn_rate and max_lights must not be negative"))
	}
	if l.RadiusMin > l.RadiusMax || l.ColorMin > l.ColorMax {
		errs = append(errs, fmt.Errorf("lights: min must not exceed max"))
	}
	for a := 0; a < 3; a++ {
		if l.AreaMin[a] > l.AreaMax[a] {
			errs = append(errs, fmt.Errorf("lights: area_min exceeds area_max on axis %d", a))
		}
	}
	for _, obj := range c.Scene.Objects {
		if _, err := obj.mesh(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c Config) RenderMode() pipeline.Mode {
	mode, _ := pipeline.ParseMode(c.Render.Mode)
	return mode
}

// NewCamera builds the camera described by the config for the given
// viewport.
func (c Config) NewCamera(width, height int) *core.Camera {
	cam := core.NewCamera()
	cam.Position = vec3(c.Camera.Position)
	cam.Yaw = mgl32.DegToRad(c.Camera.Yaw)
	cam.Pitch = mgl32.DegToRad(c.Camera.Pitch)
	cam.FOV = mgl32.DegToRad(c.Camera.FOV)
	cam.NearClip = c.Camera.Near
	cam.FarClip = c.Camera.Far
	if height > 0 {
		cam.Aspect = float32(width) / float32(height)
	}
	cam.UpdateMatrices()
	return cam
}

func (c Config) EmitterConfig() core.EmitterConfig {
	l := c.Lights
	cfg := core.EmitterConfig{
		SpawnRate:  l.SpawnRate,
		MaxLights:  l.MaxLights,
		AreaMin:    vec3(l.AreaMin),
		AreaMax:    vec3(l.AreaMax),
		RadiusMin:  l.RadiusMin,
		RadiusMax:  l.RadiusMax,
		ColorMin:   l.ColorMin,
		ColorMax:   l.ColorMax,
		Seed:       l.Seed,
		NoKeyLight: l.NoKeyLight || l.KeyLight == nil,
	}
	if l.KeyLight != nil {
		cfg.KeyLight = core.PointLight{
			Position: vec3(l.KeyLight.Position),
			Radius:   l.KeyLight.Radius,
			Color:    vec3(l.KeyLight.Color),
		}
	}
	return cfg
}

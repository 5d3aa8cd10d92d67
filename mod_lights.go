package lumen

import (
	"github.com/gekko3d/lumen/deferred/core"
)

// LightsModule owns the light store. Lights are spawned and moved in
// Update and mirrored into the LightBuffer resource in PreRender, so the
// passes only ever see a complete frame's worth of lights.
type LightsModule struct {
	Emitter core.EmitterConfig
	// Static lights are added once, after the key light.
	Static []core.PointLight
}

func (m LightsModule) Install(app *App, cmd *Commands) {
	store := core.NewLightStore(m.Emitter)
	for _, l := range m.Static {
		if !store.Add(l) {
			app.Logger().Warnf("lights: cap of %d reached, static light at %v dropped", store.Cap(), l.Position)
		}
	}
	cmd.AddResources(store, core.NewLightBuffer(store.Cap()))
	app.Logger().Infof("lights: rate %.0f/s, cap %d, seed %d", m.Emitter.SpawnRate, store.Cap(), m.Emitter.Seed)

	app.UseSystem(System(lightEmitSystem).InStage(Update).RunAlways())
	app.UseSystem(System(lightOrbitSystem).InStage(Update).RunAlways())
	app.UseSystem(System(lightSyncSystem).InStage(PreRender).RunAlways())
}

func lightEmitSystem(time *Time, store *core.LightStore) {
	store.Emit(time.Seconds())
}

func lightOrbitSystem(time *Time, store *core.LightStore) {
	store.Update(time.Seconds())
}

func lightSyncSystem(store *core.LightStore, mirror *core.LightBuffer) {
	store.Sync(mirror)
}

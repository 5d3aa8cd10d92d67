package lumen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureSingleRenderer(t *testing.T) {
	app := newApp()
	ensureSingleRenderer(app, RendererSoftware)
	assert.NotPanics(t, func() { ensureSingleRenderer(app, RendererSoftware) })

	tag, ok := Resource[RendererTag](app)
	assert.True(t, ok)
	assert.Equal(t, RendererSoftware, tag.Name)

	assert.PanicsWithValue(t, "Multiple renderers installed: software and wgpu", func() {
		ensureSingleRenderer(app, RendererWGPU)
	})
}

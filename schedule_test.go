package lumen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageNames(app *App) []string {
	var names []string
	for _, s := range app.stages {
		names = append(names, s.Name)
	}
	return names
}

func TestUseStage(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseStage(Stage{Name: "Early"}, BeforeStage(Update))
	app.UseStage(Stage{Name: "Late"}, AfterStage(Finale))

	names := stageNames(app)
	assert.Equal(t, "Early", names[2])
	assert.Equal(t, "Update", names[3])
	assert.Equal(t, "Late", names[len(names)-1])

	assert.PanicsWithValue(t, "Stage Missing not found", func() {
		app.UseStage(Stage{Name: "X"}, AfterStage(Stage{Name: "Missing"}))
	})
}

func TestUseSystem_StageOrder(t *testing.T) {
	app := NewAppBuilder().Build()
	var order []string
	app.UseSystem(System(func() { order = append(order, "render") }).InStage(Render))
	app.UseSystem(System(func() { order = append(order, "prelude") }).InStage(Prelude))
	app.UseSystem(System(func() { order = append(order, "update") }))

	app.callSystems(0, execute)
	assert.Equal(t, []string{"prelude", "update", "render"}, order)
}

func TestUseSystem_Errors(t *testing.T) {
	stateless := NewAppBuilder().Build()
	assert.PanicsWithValue(t, "Trying to use a stateful system in a stateless app.", func() {
		stateless.UseSystem(System(func() {}).InState(OnEnter(StateRunning)))
	})
	assert.PanicsWithValue(t, "Stage Nowhere doesn't exist", func() {
		stateless.UseSystem(System(func() {}).InStage(Stage{Name: "Nowhere"}))
	})

	stateful := NewAppBuilder().UseStates(StateRunning, StateExiting).Build()
	assert.PanicsWithValue(t, "State 7 doesn't exist", func() {
		stateful.UseSystem(System(func() {}).InState(OnExecute(7)))
	})
}

func TestAlwaysRunsInEveryState(t *testing.T) {
	app := NewAppBuilder().UseStates(StateRunning, StateExiting).Build()
	calls := 0
	app.UseSystem(System(func() { calls++ }).InState(Always()))
	app.callSystems(StateRunning, execute)
	app.callSystems(StateExiting, execute)
	app.callSystems(StateExiting, enter)
	require.Equal(t, 2, calls)
}

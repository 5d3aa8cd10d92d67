package lumen

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_changeState(t *testing.T) {
	app := &App{
		stateful:     true,
		initialState: 1,
		state:        1,
		finalState:   2,
	}

	// Test changing state
	app.changeState(2)
	if app.nextState != State(2) {
		t.Errorf("The nextState should be set correctly.")
	}
	if !app.stateTransitioning {
		t.Errorf("The stateTransitioning flag should be true.")
	}

	// Test executing state change
	app.executeChangeState(2)
	if app.state != State(2) {
		t.Errorf("The app state should change correctly.")
	}
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")
}

func TestResource(t *testing.T) {
	app := newApp()
	_, ok := Resource[MockResource1](app)
	assert.False(t, ok)

	app.addResources(NewMockResource1("a"))
	r, ok := Resource[MockResource1](app)
	require.True(t, ok)
	assert.Equal(t, "a", r.name)
}

func TestApp_callSystemInjectsResources(t *testing.T) {
	app := newApp()
	app.addResources(NewMockResource1("one"), NewMockResource2("two"))

	var got string
	app.callSystem(func(r1 *MockResource1, cmd *Commands, r2 *MockResource2) {
		require.NotNil(t, cmd)
		got = r1.name + "+" + r2.name
	})
	assert.Equal(t, "one+two", got)
}

func TestApp_callSystemPanicsOnMissingResource(t *testing.T) {
	app := newApp()
	assert.Panics(t, func() {
		app.callSystem(func(r *MockResource1) {})
	})
}

func TestApp_RunStopsAfterExit(t *testing.T) {
	type counter struct{ execute, enter, exit int }
	c := &counter{}

	app := NewAppBuilder().UseStates(StateRunning, StateExiting).Build()
	app.addResources(c)
	app.UseSystem(System(func(c *counter) { c.enter++ }).InState(OnEnter(StateRunning)))
	app.UseSystem(System(func(c *counter) { c.exit++ }).InState(OnExit(StateRunning)))
	app.UseSystem(System(func(c *counter, cmd *Commands) {
		c.execute++
		if c.execute == 3 {
			cmd.Exit()
		}
	}).InState(OnExecute(StateRunning)))

	app.Run()

	assert.Equal(t, 3, c.execute)
	assert.Equal(t, 1, c.enter)
	assert.Equal(t, 1, c.exit)
	assert.Equal(t, uint64(3), app.Frames())
	assert.Equal(t, StateExiting, app.State())
}

func TestApp_StartupError(t *testing.T) {
	app := newApp()
	require.NoError(t, app.StartupError())

	boom := errors.New("boom")
	app.reportStartupError("window", boom)
	app.reportStartupError("gpu", errors.New("no adapter"))

	err := app.StartupError()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "window: boom")
	assert.Contains(t, err.Error(), "gpu: no adapter")
}

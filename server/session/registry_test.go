package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibidi/schengen-visa-bot/server/provider"
)

// registryFixture records every runner and scheduler the factory produced,
// in creation order.
type registryFixture struct {
	schedulers []*fakeScheduler
	runners    []*Runner
}

// newRegistryFixture builds a registry whose factory produces runners on
// fake schedulers, so nothing actually polls.
func newRegistryFixture(t *testing.T) (*Registry, *registryFixture) {
	t.Helper()

	fix := &registryFixture{}
	registry := NewRegistry(func(config Config) (*Runner, error) {
		scheduler := &fakeScheduler{}
		fix.schedulers = append(fix.schedulers, scheduler)

		runner := NewRunner(
			newTestClient(t),
			config,
			func(string) provider.Adapter { return &fakeAdapter{} },
			&fakeDispatcher{},
			&fakeNotifier{},
			nil,
			nil,
		)
		runner.SetScheduler(scheduler)
		fix.runners = append(fix.runners, runner)
		return runner, nil
	})

	return registry, fix
}

func TestRegistry_StartAndStatus(t *testing.T) {
	registry, _ := newRegistryFixture(t)
	config := testConfig()

	require.NoError(t, registry.Start(config))

	state, got, active := registry.Status(config.UserID)
	assert.Equal(t, StateActive, state)
	assert.Equal(t, config, got)
	assert.True(t, active)
	assert.True(t, registry.Active(config.UserID))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_StartRejectsInvalidConfig(t *testing.T) {
	registry, _ := newRegistryFixture(t)

	err := registry.Start(Config{UserID: "user-1"})
	require.Error(t, err)
	assert.False(t, registry.Active("user-1"))
}

func TestRegistry_StartReplacesRunningSession(t *testing.T) {
	registry, fix := newRegistryFixture(t)
	config := testConfig()

	require.NoError(t, registry.Start(config))

	config.City = "Ankara"
	require.NoError(t, registry.Start(config))

	// The first runner's job was closed before the second started
	require.Len(t, fix.schedulers, 2)
	assert.True(t, fix.schedulers[0].job.closed)
	assert.False(t, fix.schedulers[1].job.closed)

	_, got, _ := registry.Status(config.UserID)
	assert.Equal(t, "Ankara", got.City)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_Stop(t *testing.T) {
	registry, fix := newRegistryFixture(t)
	config := testConfig()

	require.NoError(t, registry.Start(config))

	stopped, err := registry.Stop(config.UserID)
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.True(t, fix.schedulers[0].job.closed)

	state, got, active := registry.Status(config.UserID)
	assert.Equal(t, StateIdle, state)
	assert.Equal(t, Config{}, got)
	assert.False(t, active)
}

func TestRegistry_StopInactiveIsReportedNotFailed(t *testing.T) {
	registry, _ := newRegistryFixture(t)

	stopped, err := registry.Stop("nobody")
	require.NoError(t, err)
	assert.False(t, stopped)
}

func TestRegistry_MarkStopped(t *testing.T) {
	registry, fix := newRegistryFixture(t)
	config := testConfig()

	require.NoError(t, registry.Start(config))
	registry.MarkStopped(fix.runners[0])

	state, _, active := registry.Status(config.UserID)
	assert.Equal(t, StateStopped, state)
	assert.False(t, active)

	// A stopped session can be reconfigured and restarted
	require.NoError(t, registry.Start(config))
	assert.True(t, registry.Active(config.UserID))
}

func TestRegistry_MarkStoppedIgnoresReplacedRunner(t *testing.T) {
	registry, fix := newRegistryFixture(t)
	config := testConfig()

	require.NoError(t, registry.Start(config))

	// The user reconfigures before the terminated runner's callback lands.
	config.City = "Ankara"
	require.NoError(t, registry.Start(config))
	registry.MarkStopped(fix.runners[0])

	state, got, active := registry.Status(config.UserID)
	assert.Equal(t, StateActive, state)
	assert.Equal(t, "Ankara", got.City)
	assert.True(t, active)
	assert.False(t, fix.schedulers[1].job.closed)
}

func TestRegistry_MarkStoppedAfterStopKeepsIdle(t *testing.T) {
	registry, fix := newRegistryFixture(t)
	config := testConfig()

	require.NoError(t, registry.Start(config))

	stopped, err := registry.Stop(config.UserID)
	require.NoError(t, err)
	require.True(t, stopped)

	// A late callback from the reaped runner must not resurrect the entry.
	registry.MarkStopped(fix.runners[0])

	state, _, active := registry.Status(config.UserID)
	assert.Equal(t, StateIdle, state)
	assert.False(t, active)
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	registry, _ := newRegistryFixture(t)

	first := testConfig()
	second := testConfig()
	second.UserID = "user-2"

	require.NoError(t, registry.Start(first))
	require.NoError(t, registry.Start(second))
	assert.Equal(t, 2, registry.Count())

	stopped, err := registry.Stop(first.UserID)
	require.NoError(t, err)
	assert.True(t, stopped)

	assert.False(t, registry.Active(first.UserID))
	assert.True(t, registry.Active(second.UserID))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_StopAll(t *testing.T) {
	registry, fix := newRegistryFixture(t)

	for i := 0; i < 3; i++ {
		config := testConfig()
		config.UserID = fmt.Sprintf("user-%d", i)
		require.NoError(t, registry.Start(config))
	}

	require.NoError(t, registry.StopAll())

	assert.Equal(t, 0, registry.Count())
	for _, scheduler := range fix.schedulers {
		assert.True(t, scheduler.job.closed)
	}
}

func TestRegistry_FactoryErrorSurfaced(t *testing.T) {
	registry := NewRegistry(func(Config) (*Runner, error) {
		return nil, fmt.Errorf("no adapter available")
	})

	err := registry.Start(testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create session runner")
}

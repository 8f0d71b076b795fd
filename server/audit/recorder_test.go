package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin/plugintest"
	"github.com/mattermost/mattermost/server/public/pluginapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testLogger wires a permissive plugin API mock into a LogService.
func testLogger(api *plugintest.API) pluginapi.LogService {
	args := make([]any, 0, 12)
	for i := 0; i < 12; i++ {
		args = append(args, mock.Anything)
		for _, method := range []string{"LogDebug", "LogInfo", "LogWarn", "LogError"} {
			api.On(method, args...).Maybe()
		}
	}
	return pluginapi.NewClient(api, &plugintest.Driver{}).Log
}

func result(cycle int, outcome Outcome) CycleResult {
	return CycleResult{
		UserID:    "user-1",
		Cycle:     cycle,
		Outcome:   outcome,
		Timestamp: time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestRecord_PersistsToKVStore(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	api.On("KVGet", "audit_user-1").Return(nil, nil).Once()

	var stored []byte
	api.On("KVSet", "audit_user-1", mock.MatchedBy(func(data []byte) bool {
		stored = data
		return true
	})).Return(nil).Once()

	recorder := NewRecorder(api, testLogger(api))
	recorder.Record(result(1, OutcomeSlots))
	recorder.Stop()

	var history []CycleResult
	require.NoError(t, json.Unmarshal(stored, &history))
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Cycle)
	assert.Equal(t, OutcomeSlots, history[0].Outcome)
}

func TestRecord_AppendsToExistingHistory(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	existing, err := json.Marshal([]CycleResult{result(1, OutcomeEmpty)})
	require.NoError(t, err)
	api.On("KVGet", "audit_user-1").Return(existing, nil).Once()

	var stored []byte
	api.On("KVSet", "audit_user-1", mock.MatchedBy(func(data []byte) bool {
		stored = data
		return true
	})).Return(nil).Once()

	recorder := NewRecorder(api, testLogger(api))
	recorder.Record(result(2, OutcomeSlots))
	recorder.Stop()

	var history []CycleResult
	require.NoError(t, json.Unmarshal(stored, &history))
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[1].Cycle)
}

func TestRecord_HistoryCapped(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	full := make([]CycleResult, historyLimit)
	for i := range full {
		full[i] = result(i+1, OutcomeEmpty)
	}
	existing, err := json.Marshal(full)
	require.NoError(t, err)
	api.On("KVGet", "audit_user-1").Return(existing, nil).Once()

	var stored []byte
	api.On("KVSet", "audit_user-1", mock.MatchedBy(func(data []byte) bool {
		stored = data
		return true
	})).Return(nil).Once()

	recorder := NewRecorder(api, testLogger(api))
	recorder.Record(result(historyLimit+1, OutcomeSlots))
	recorder.Stop()

	var history []CycleResult
	require.NoError(t, json.Unmarshal(stored, &history))
	require.Len(t, history, historyLimit, "oldest entry dropped")
	assert.Equal(t, 2, history[0].Cycle)
	assert.Equal(t, historyLimit+1, history[len(history)-1].Cycle)
}

func TestHistory_Empty(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	api.On("KVGet", "audit_user-1").Return(nil, nil).Once()

	recorder := NewRecorder(api, testLogger(api))
	defer recorder.Stop()

	history, err := recorder.History("user-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistory_CorruptDataSurfaces(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	api.On("KVGet", "audit_user-1").Return([]byte("not json"), nil).Once()

	recorder := NewRecorder(api, testLogger(api))
	defer recorder.Stop()

	_, err := recorder.History("user-1")
	require.Error(t, err)
}

func TestRecord_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	api := &plugintest.API{}

	// Never expect KV calls: the sink is held shut by not running yet, so
	// we only exercise the non-blocking offer.
	recorder := &Recorder{
		api:    api,
		logger: testLogger(api),
		events: make(chan CycleResult, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	recorder.Record(result(1, OutcomeEmpty))

	done := make(chan struct{})
	go func() {
		recorder.Record(result(2, OutcomeEmpty))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}

func TestRecord_KVFailureOnlyLogged(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	api.On("KVGet", "audit_user-1").Return(nil, nil).Once()
	api.On("KVSet", "audit_user-1", mock.Anything).Return(&model.AppError{Message: "store gone"}).Once()

	recorder := NewRecorder(api, testLogger(api))
	recorder.Record(result(1, OutcomeEmpty))

	// Stop returns normally; the failed write was only logged
	recorder.Stop()
}

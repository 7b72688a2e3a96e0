package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventWithDataRoundTrip(t *testing.T) {
	original := &EventWithData{
		Type:      RunCompleted,
		Timestamp: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
		Module:    "monitor",
		Data: &RunCompletedData{
			RunID:       "run-1",
			AssetCount:  12,
			Regime:      "GOLDILOCKS",
			MarketBias:  "RISK_ON",
			MeanScore:   68.5,
			TopPicks:    3,
			DurationSec: 1.2,
		},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded EventWithData
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, RunCompleted, decoded.Type)
	assert.Equal(t, "monitor", decoded.Module)

	data, ok := decoded.Data.(*RunCompletedData)
	require.True(t, ok, "data should decode to RunCompletedData")
	assert.Equal(t, "run-1", data.RunID)
	assert.Equal(t, 12, data.AssetCount)
	assert.Equal(t, "RISK_ON", data.MarketBias)
}

func TestEventWithDataUnknownType(t *testing.T) {
	raw := []byte(`{"type":"custom_thing","timestamp":"2025-06-02T14:30:00Z","module":"x","data":{"k":"v"}}`)

	var decoded EventWithData
	require.NoError(t, json.Unmarshal(raw, &decoded))

	generic, ok := decoded.Data.(*GenericEventData)
	require.True(t, ok, "unknown types should fall back to GenericEventData")
	assert.Equal(t, "v", generic.Data["k"])
}

func TestEventDataTypes(t *testing.T) {
	tests := []struct {
		data EventData
		want EventType
	}{
		{&RunStartedData{}, RunStarted},
		{&RunCompletedData{}, RunCompleted},
		{&RunFailedData{}, RunFailed},
		{&RegimeChangedData{}, RegimeChanged},
		{&ArchiveUploadedData{}, ArchiveUploaded},
		{&ErrorEventData{}, ErrorOccurred},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.data.EventType())
	}
}

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var received []*Event
	bus.Subscribe(RunStarted, func(e *Event) {
		received = append(received, e)
	})

	bus.Publish("monitor", &RunStartedData{RunID: "run-1", AssetCount: 3})
	bus.Publish("monitor", &RunCompletedData{RunID: "run-1"}) // no subscriber

	require.Len(t, received, 1)
	assert.Equal(t, RunStarted, received[0].Type)
	assert.Equal(t, "monitor", received[0].Module)
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	count := 0
	bus.SubscribeAll([]EventType{RunStarted, RunCompleted, RunFailed}, func(e *Event) {
		count++
	})

	bus.Publish("monitor", &RunStartedData{RunID: "r"})
	bus.Publish("monitor", &RunCompletedData{RunID: "r"})
	bus.Publish("monitor", &RunFailedData{RunID: "r", Error: "boom"})

	assert.Equal(t, 3, count)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	kept := 0
	removed := 0
	bus.Subscribe(RunStarted, func(e *Event) { kept++ })
	unsubscribe := bus.Subscribe(RunStarted, func(e *Event) { removed++ })

	bus.Publish("monitor", &RunStartedData{RunID: "r"})
	unsubscribe()
	unsubscribe() // second call is a no-op
	bus.Publish("monitor", &RunStartedData{RunID: "r"})

	assert.Equal(t, 2, kept)
	assert.Equal(t, 1, removed)
}

func TestBusHandlerPanicIsContained(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	bus.Subscribe(RunFailed, func(e *Event) {
		panic("handler bug")
	})
	reached := false
	bus.Subscribe(RunFailed, func(e *Event) {
		reached = true
	})

	assert.NotPanics(t, func() {
		bus.Publish("monitor", &RunFailedData{RunID: "r", Error: "x"})
	})
	assert.True(t, reached, "later handlers must still run after a panic")
}

package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// RunStartedData contains data for RunStarted events
type RunStartedData struct {
	RunID      string `json:"run_id"`
	AssetCount int    `json:"asset_count"`
	Regime     string `json:"regime"`
	Trigger    string `json:"trigger"` // "scheduled" or "manual"
}

// EventType returns the event type for RunStartedData
func (d *RunStartedData) EventType() EventType {
	return RunStarted
}

// RunCompletedData contains data for RunCompleted events
type RunCompletedData struct {
	RunID       string  `json:"run_id"`
	AssetCount  int     `json:"asset_count"`
	Regime      string  `json:"regime"`
	MarketBias  string  `json:"market_bias"`
	MeanScore   float64 `json:"mean_score"`
	TopPicks    int     `json:"top_picks"`
	DurationSec float64 `json:"duration_sec"`
}

// EventType returns the event type for RunCompletedData
func (d *RunCompletedData) EventType() EventType {
	return RunCompleted
}

// RunFailedData contains data for RunFailed events
type RunFailedData struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// EventType returns the event type for RunFailedData
func (d *RunFailedData) EventType() EventType {
	return RunFailed
}

// RegimeChangedData contains data for RegimeChanged events
type RegimeChangedData struct {
	OldRegime string `json:"old_regime"`
	NewRegime string `json:"new_regime"`
}

// EventType returns the event type for RegimeChangedData
func (d *RegimeChangedData) EventType() EventType {
	return RegimeChanged
}

// ArchiveUploadedData contains data for ArchiveUploaded events
type ArchiveUploadedData struct {
	RunID     string `json:"run_id"`
	Key       string `json:"key"`
	SizeBytes int    `json:"size_bytes"`
}

// EventType returns the event type for ArchiveUploadedData
func (d *ArchiveUploadedData) EventType() EventType {
	return ArchiveUploaded
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// EventWithData represents an event with typed data
type EventWithData struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// MarshalJSON customizes JSON serialization for EventWithData
func (e *EventWithData) MarshalJSON() ([]byte, error) {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for EventWithData
func (e *EventWithData) UnmarshalJSON(data []byte) error {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if len(aux.Data) > 0 {
		var eventData EventData
		switch aux.Type {
		case RunStarted:
			eventData = &RunStartedData{}
		case RunCompleted:
			eventData = &RunCompletedData{}
		case RunFailed:
			eventData = &RunFailedData{}
		case RegimeChanged:
			eventData = &RegimeChangedData{}
		case ArchiveUploaded:
			eventData = &ArchiveUploadedData{}
		case ErrorOccurred:
			eventData = &ErrorEventData{}
		default:
			// For unknown types, fall back to a raw map
			var rawData map[string]interface{}
			if err := json.Unmarshal(aux.Data, &rawData); err != nil {
				return err
			}
			eventData = &GenericEventData{Type: aux.Type, Data: rawData}
		}

		if err := json.Unmarshal(aux.Data, eventData); err != nil {
			return err
		}
		e.Data = eventData
	}

	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringSlice is a []string persisted as a jsonb column. Used for fields
// like Meeting.Attendees and DraftSummary.KeyPoints/Decisions/NextSteps.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, err := toBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, s)
}

// StringMap is a map[string]string persisted as a jsonb column. Used for
// CallBotSession.SpeakerMapping.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, err := toBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, m)
}

// JSONColumn wraps an arbitrary JSON-serializable value as a jsonb column.
// Used where the shape is nested or per-CRM-system keyed data: DraftSummary's
// SuggestedCRMUpdates, ValidationSession's Questions/Responses/
// ApprovedCRMUpdates.
type JSONColumn[T any] struct {
	Data T
}

func (j JSONColumn[T]) Value() (driver.Value, error) {
	return json.Marshal(j.Data)
}

func (j *JSONColumn[T]) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, err := toBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, &j.Data)
}

func toBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("models: unsupported scan type for jsonb column")
	}
}

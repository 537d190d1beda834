package utils

import (
	"encoding/json"
	"errors"
)

// NullableInt distinguishes "field absent" from "field explicitly null" in
// PATCH-style settings updates.
type NullableInt struct {
	Set   bool
	Value *int
}

func (n *NullableInt) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n NullableInt) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// DatasetSettings is the JSON blob stored as TEXT on a dataset.
type DatasetSettings struct {
	// Anonymize hides respondent names on share-token access.
	Anonymize *bool `json:"anonymize,omitempty"`
	// MinGroupSize suppresses distribution buckets smaller than this
	// (nil = no suppression).
	MinGroupSize NullableInt `json:"min_group_size,omitempty"`
	Language     string      `json:"language,omitempty"` // "zh", "en"
}

func ValidateSettings(s *DatasetSettings) error {
	if s == nil {
		return errors.New("empty settings")
	}
	if s.MinGroupSize.Set && s.MinGroupSize.Value != nil {
		if *s.MinGroupSize.Value < 1 {
			v := 1
			s.MinGroupSize.Value = &v
		}
	}
	return nil
}

func ParseSettings(raw []byte) (*DatasetSettings, error) {
	if len(raw) == 0 {
		return &DatasetSettings{}, nil
	}
	var s DatasetSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("settings is not valid JSON")
	}
	if err := ValidateSettings(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func SettingsJSON(s *DatasetSettings) (string, error) {
	if s == nil {
		s = &DatasetSettings{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MergeSettings overlays patch onto base; only fields the client sent win.
func MergeSettings(base *DatasetSettings, patch *DatasetSettings) *DatasetSettings {
	if base == nil {
		base = &DatasetSettings{}
	}
	if patch == nil {
		patch = &DatasetSettings{}
	}
	out := *base
	if patch.Anonymize != nil {
		out.Anonymize = patch.Anonymize
	}
	if patch.MinGroupSize.Set {
		out.MinGroupSize = patch.MinGroupSize
	}
	if patch.Language != "" {
		out.Language = patch.Language
	}
	return &out
}

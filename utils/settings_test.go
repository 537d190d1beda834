package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullableIntDistinguishesAbsentAndNull(t *testing.T) {
	var s DatasetSettings
	require.NoError(t, json.Unmarshal([]byte(`{"language":"zh"}`), &s))
	assert.False(t, s.MinGroupSize.Set)

	var s2 DatasetSettings
	require.NoError(t, json.Unmarshal([]byte(`{"min_group_size":null}`), &s2))
	assert.True(t, s2.MinGroupSize.Set)
	assert.Nil(t, s2.MinGroupSize.Value)

	var s3 DatasetSettings
	require.NoError(t, json.Unmarshal([]byte(`{"min_group_size":3}`), &s3))
	assert.True(t, s3.MinGroupSize.Set)
	require.NotNil(t, s3.MinGroupSize.Value)
	assert.Equal(t, 3, *s3.MinGroupSize.Value)
}

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings([]byte(`{"anonymize":true,"min_group_size":0}`))
	require.NoError(t, err)
	require.NotNil(t, s.Anonymize)
	assert.True(t, *s.Anonymize)
	// values below 1 are clamped
	require.NotNil(t, s.MinGroupSize.Value)
	assert.Equal(t, 1, *s.MinGroupSize.Value)

	_, err = ParseSettings([]byte(`{not json`))
	assert.Error(t, err)

	empty, err := ParseSettings(nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Anonymize)
}

func TestMergeSettings(t *testing.T) {
	anon := true
	base := &DatasetSettings{Anonymize: &anon, Language: "zh"}

	three := 3
	patch := &DatasetSettings{MinGroupSize: NullableInt{Set: true, Value: &three}}

	merged := MergeSettings(base, patch)
	require.NotNil(t, merged.Anonymize)
	assert.True(t, *merged.Anonymize, "untouched fields survive")
	assert.Equal(t, "zh", merged.Language)
	require.NotNil(t, merged.MinGroupSize.Value)
	assert.Equal(t, 3, *merged.MinGroupSize.Value)

	// explicit null clears the value
	cleared := MergeSettings(merged, &DatasetSettings{MinGroupSize: NullableInt{Set: true}})
	assert.True(t, cleared.MinGroupSize.Set)
	assert.Nil(t, cleared.MinGroupSize.Value)
}

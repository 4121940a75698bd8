package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessFieldRoundTrip(t *testing.T) {
	b := &BusinessData{}
	for _, f := range []BusinessField{FieldCoreValues, FieldPurpose, FieldVision, FieldGoals} {
		require.NoError(t, b.SetValue(f, "val-"+string(f)))
		got, err := b.Value(f)
		require.NoError(t, err)
		assert.Equal(t, "val-"+string(f), got)
	}
}

func TestBusinessFieldRejectsUnknown(t *testing.T) {
	b := &BusinessData{}
	assert.Error(t, b.SetValue("favorite_color", "blue"))
	_, err := b.Value("favorite_color")
	assert.Error(t, err)

	_, err = ParseBusinessField("favorite_color")
	assert.Error(t, err)

	f, err := ParseBusinessField("purpose")
	require.NoError(t, err)
	assert.Equal(t, FieldPurpose, f)
}

func TestNextVersion(t *testing.T) {
	assert.Equal(t, "v1", NextVersion(""))
	assert.Equal(t, "v2", NextVersion("v1"))
	assert.Equal(t, "v10", NextVersion("v9"))
	// Garbage resets rather than panics.
	assert.Equal(t, "v1", NextVersion("not-a-version"))
}

func TestTopicFieldMapping(t *testing.T) {
	spec, ok := LookupTopic(TopicPurpose)
	require.True(t, ok)
	assert.Equal(t, FieldPurpose, spec.BusinessField)
	assert.NotEmpty(t, spec.OpeningMessage)
	assert.NotEmpty(t, spec.SystemPrompt)

	_, ok = LookupTopic("juggling")
	assert.False(t, ok)
}

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingFields(t *testing.T) {
	full := map[string]interface{}{
		"landmark_id":   "LP-00001",
		"source_type":   "wikipedia",
		"chunk_index":   0,
		"text":          "...",
		"article_title": "Empire State Building",
		"article_url":   "https://en.wikipedia.org/wiki/Empire_State_Building",
	}

	assert.Empty(t, MissingFields(full, true))
	assert.Empty(t, MissingFields(full, false))

	partial := map[string]interface{}{"landmark_id": "LP-00001"}
	assert.Equal(t, []string{"source_type", "chunk_index", "text"}, MissingFields(partial, false))
	assert.Equal(t,
		[]string{"source_type", "chunk_index", "text", "article_title", "article_url"},
		MissingFields(partial, true))

	assert.Equal(t, []string{"landmark_id", "source_type", "chunk_index", "text"},
		MissingFields(map[string]interface{}{}, false))
}

func TestMissingFieldsMonotonic(t *testing.T) {
	full := map[string]interface{}{
		"landmark_id": "LP-00001",
		"source_type": "pdf",
		"chunk_index": 0,
		"text":        "...",
	}
	for _, field := range RequiredCommonFields {
		reduced := make(map[string]interface{}, len(full))
		for k, v := range full {
			reduced[k] = v
		}
		delete(reduced, field)
		assert.Len(t, MissingFields(reduced, false), 1, "removing %s", field)
	}
}

func TestHasValidEmbedding(t *testing.T) {
	assert.False(t, HasValidEmbedding(nil))
	assert.False(t, HasValidEmbedding([]float32{}))
	assert.False(t, HasValidEmbedding(make([]float32, 1536)))
	assert.False(t, HasValidEmbedding([]float32{1e-12, -1e-15}))
	assert.True(t, HasValidEmbedding([]float32{0, 0, 0.1}))
	assert.True(t, HasValidEmbedding([]float32{-0.5}))
}

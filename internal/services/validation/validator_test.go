package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vestigo/internal/models"
)

func constantEmbedding(value float32, dim int) []float32 {
	values := make([]float32, dim)
	for i := range values {
		values[i] = value
	}
	return values
}

func TestValidatePdfRecord(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("LP-00029-chunk-0", &models.VectorRecord{
		ID:     "LP-00029-chunk-0",
		Values: constantEmbedding(0.1, 1536),
		Metadata: map[string]interface{}{
			"landmark_id": "LP-00029",
			"source_type": "pdf",
			"chunk_index": 0,
			"text":        "The Wyckoff House is the oldest structure in the city.",
		},
	})
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Violations)
}

func TestValidateMalformedID(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("pdf-LP00002-chunk001", &models.VectorRecord{
		Values: constantEmbedding(0.1, 8),
		Metadata: map[string]interface{}{
			"landmark_id": "LP-00002",
		},
	})
	assert.False(t, report.IsValid)
	assert.Contains(t, report.Violations, "Missing required field: source_type")
	assert.Contains(t, report.Violations, "Missing required field: chunk_index")
	assert.Contains(t, report.Violations, "Missing required field: text")
	assert.Contains(t, report.Violations, "Invalid vector ID format")
	assert.Len(t, report.Violations, 4)
}

func TestValidateWikipediaRecord(t *testing.T) {
	v := NewValidator(nil)
	metadata := map[string]interface{}{
		"landmark_id":   "LP-00001",
		"source_type":   "wikipedia",
		"chunk_index":   0,
		"text":          "The Empire State Building is a 102-story skyscraper.",
		"article_title": "Empire State Building",
		"article_url":   "https://en.wikipedia.org/wiki/Empire_State_Building",
	}

	report := v.Validate("wiki-Empire_State_Building-LP-00001-chunk-0", &models.VectorRecord{
		Values:   constantEmbedding(0.2, 1536),
		Metadata: metadata,
	})
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Violations)
}

func TestValidateWikipediaMissingFields(t *testing.T) {
	v := NewValidator(nil)
	report := v.ValidateMetadataOnly("wiki-Flatiron_Building-LP-00023-chunk-0", map[string]interface{}{
		"landmark_id": "LP-00023",
		"source_type": "wikipedia",
		"chunk_index": 0,
		"text":        "...",
	})
	assert.False(t, report.IsValid)
	assert.Contains(t, report.Violations, "Missing required Wikipedia field: article_title")
	assert.Contains(t, report.Violations, "Missing required Wikipedia field: article_url")
}

func TestValidateChunkIndexMismatch(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("wiki-Empire_State_Building-LP-00001-chunk-0", &models.VectorRecord{
		Values: constantEmbedding(0.2, 1536),
		Metadata: map[string]interface{}{
			"landmark_id":   "LP-00001",
			"source_type":   "wikipedia",
			"chunk_index":   1,
			"text":          "...",
			"article_title": "Empire State Building",
			"article_url":   "https://en.wikipedia.org/wiki/Empire_State_Building",
		},
	})
	assert.False(t, report.IsValid)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "Chunk index mismatch: ID has '0' but metadata has '1'", report.Violations[0])
}

func TestValidateNilRecord(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("LP-00001-chunk-0", nil)
	assert.False(t, report.IsValid)
	assert.Equal(t, []string{"Vector with ID 'LP-00001-chunk-0' not found"}, report.Violations)
}

func TestValidateSourceTypeMismatch(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("LP-00005-chunk-2", &models.VectorRecord{
		Values: constantEmbedding(0.1, 8),
		Metadata: map[string]interface{}{
			"landmark_id": "LP-00005",
			"source_type": "wikipedia",
			"chunk_index": 2,
			"text":        "...",
		},
	})
	assert.False(t, report.IsValid)
	assert.Contains(t, report.Violations,
		"Source type mismatch: ID indicates 'pdf' but metadata has 'wikipedia'")
}

func TestValidateLandmarkMismatch(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("LP-00005-chunk-2", &models.VectorRecord{
		Values: constantEmbedding(0.1, 8),
		Metadata: map[string]interface{}{
			"landmark_id": "LP-00006",
			"source_type": "pdf",
			"chunk_index": 2,
			"text":        "...",
		},
	})
	assert.False(t, report.IsValid)
	assert.Contains(t, report.Violations,
		"Landmark ID mismatch: ID has 'LP-00005' but metadata has 'LP-00006'")
}

func TestValidateArticleTitleMismatch(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("wiki-Flatiron_Building-LP-00023-chunk-0", &models.VectorRecord{
		Values: constantEmbedding(0.1, 8),
		Metadata: map[string]interface{}{
			"landmark_id":   "LP-00023",
			"source_type":   "wikipedia",
			"chunk_index":   0,
			"text":          "...",
			"article_title": "Chrysler Building",
			"article_url":   "https://en.wikipedia.org/wiki/Chrysler_Building",
		},
	})
	assert.False(t, report.IsValid)
	assert.Contains(t, report.Violations, "Article title in ID does not match metadata")
}

func TestValidateEmbeddings(t *testing.T) {
	v := NewValidator(nil)
	metadata := map[string]interface{}{
		"landmark_id": "LP-00001",
		"source_type": "pdf",
		"chunk_index": 0,
		"text":        "...",
	}

	empty := v.Validate("LP-00001-chunk-0", &models.VectorRecord{Metadata: metadata})
	assert.Contains(t, empty.Violations, "Missing or empty embeddings")

	zeros := v.Validate("LP-00001-chunk-0", &models.VectorRecord{
		Metadata: metadata,
		Values:   make([]float32, 1536),
	})
	assert.Contains(t, zeros.Violations, "All-zero embeddings detected")
}

func TestValidateMetadataOnlySkipsEmbeddingCheck(t *testing.T) {
	v := NewValidator(nil)
	report := v.ValidateMetadataOnly("pdf-LP00003-chunk001", map[string]interface{}{
		"landmark_id": "LP-00003",
		"source_type": "pdf",
		"chunk_index": 1,
		"text":        "...",
	})
	assert.False(t, report.IsValid)
	assert.Equal(t, []string{"Invalid vector ID format"}, report.Violations)
}

func TestValidateEmptyID(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("", &models.VectorRecord{
		Values: constantEmbedding(0.1, 8),
		Metadata: map[string]interface{}{
			"landmark_id": "LP-00001",
			"source_type": "pdf",
			"chunk_index": 0,
			"text":        "...",
		},
	})
	assert.False(t, report.IsValid)
	assert.Contains(t, report.Violations, "Invalid vector ID format")
}

func TestValidateChunkIndexCoercion(t *testing.T) {
	v := NewValidator(nil)
	for _, raw := range []interface{}{2, int64(2), float64(2), "2", " 2 "} {
		report := v.ValidateMetadataOnly("LP-00042-chunk-2", map[string]interface{}{
			"landmark_id": "LP-00042",
			"source_type": "pdf",
			"chunk_index": raw,
			"text":        "...",
		})
		assert.True(t, report.IsValid, "chunk_index %#v should coerce to 2", raw)
	}
}

func TestValidateMonotonicity(t *testing.T) {
	v := NewValidator(nil)
	full := map[string]interface{}{
		"landmark_id": "LP-00029",
		"source_type": "pdf",
		"chunk_index": 0,
		"text":        "...",
	}
	base := v.ValidateMetadataOnly("LP-00029-chunk-0", full)
	assert.True(t, base.IsValid)

	for _, field := range RequiredCommonFields {
		reduced := make(map[string]interface{}, len(full))
		for k, val := range full {
			reduced[k] = val
		}
		delete(reduced, field)
		report := v.ValidateMetadataOnly("LP-00029-chunk-0", reduced)
		assert.False(t, report.IsValid, "removing %s", field)
		assert.Greater(t, len(report.Violations), len(base.Violations), "removing %s", field)
	}
}

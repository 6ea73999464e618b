// Package validation checks stored vector records against the identifier
// grammar and the required metadata schema. Violations are data, not errors:
// callers always receive a report, never a panic or a propagated failure.
package validation

import (
	"math"

	"github.com/ternarybob/vestigo/internal/models"
)

// Required metadata fields, in the order violations are reported.
var (
	RequiredCommonFields = []string{
		models.FieldLandmarkID,
		models.FieldSourceType,
		models.FieldChunkIndex,
		models.FieldText,
	}
	RequiredWikipediaFields = []string{
		models.FieldArticleTitle,
		models.FieldArticleURL,
	}
)

// zeroTolerance treats elements within this absolute bound as zero when
// deciding whether an embedding is numerically all-zero.
const zeroTolerance = 1e-9

// MissingFields returns the required field names absent from metadata, common
// fields first, then the Wikipedia extras when isWikipedia is set.
func MissingFields(metadata map[string]interface{}, isWikipedia bool) []string {
	var missing []string
	for _, field := range RequiredCommonFields {
		if _, ok := metadata[field]; !ok {
			missing = append(missing, field)
		}
	}
	if isWikipedia {
		for _, field := range RequiredWikipediaFields {
			if _, ok := metadata[field]; !ok {
				missing = append(missing, field)
			}
		}
	}
	return missing
}

// HasValidEmbedding reports whether values is non-empty and not numerically
// all-zero.
func HasValidEmbedding(values []float32) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if math.Abs(float64(v)) >= zeroTolerance {
			return true
		}
	}
	return false
}

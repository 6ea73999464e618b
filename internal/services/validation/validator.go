package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/services/identifiers"
)

// Validator produces a ValidationReport for one stored vector record. It is
// the authority on "is this vector correctly stored": every applicable check
// runs and contributes to the report, nothing short-circuits, and nothing
// escapes as a panic or error.
type Validator struct {
	logger arbor.ILogger
}

func NewValidator(logger arbor.ILogger) *Validator {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Validator{logger: logger}
}

// Validate runs the full check set, including the embedding check. A nil
// record yields the single not-found violation.
func (v *Validator) Validate(id string, record *models.VectorRecord) models.ValidationReport {
	if record == nil {
		return models.ValidationReport{
			ID:         id,
			IsValid:    false,
			Violations: []string{fmt.Sprintf("Vector with ID '%s' not found", id)},
		}
	}
	report := v.checkMetadata(id, record.Metadata)
	report.Violations = append(report.Violations, checkEmbedding(record.Values)...)
	report.IsValid = len(report.Violations) == 0
	return report
}

// ValidateMetadataOnly runs the same checks minus the embedding check, for
// records fetched without their values.
func (v *Validator) ValidateMetadataOnly(id string, metadata map[string]interface{}) models.ValidationReport {
	report := v.checkMetadata(id, metadata)
	report.IsValid = len(report.Violations) == 0
	return report
}

func (v *Validator) checkMetadata(id string, metadata map[string]interface{}) (report models.ValidationReport) {
	report.ID = id
	report.Violations = []string{}

	// Unexpected panics from coercion or collaborators become one violation;
	// the validator always returns a report.
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn().Str("id", id).Msgf("validation panic recovered: %v", r)
			report.Violations = append(report.Violations, fmt.Sprintf("Internal validation error: %v", r))
			report.IsValid = false
		}
	}()

	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	// Missing-field classification keys off the literal prefix, not the shape
	// classifier, so test-prefixed IDs stay on the common field set.
	isWikipedia := strings.HasPrefix(id, "wiki-")
	for _, field := range MissingFields(metadata, isWikipedia) {
		if isWikipedia && (field == models.FieldArticleTitle || field == models.FieldArticleURL) {
			report.Violations = append(report.Violations, fmt.Sprintf("Missing required Wikipedia field: %s", field))
		} else {
			report.Violations = append(report.Violations, fmt.Sprintf("Missing required field: %s", field))
		}
	}

	if !identifiers.MatchesPdfShape(id) && !identifiers.MatchesWikiShape(id) {
		report.Violations = append(report.Violations, "Invalid vector ID format")
	}

	idType := identifiers.ClassifySourceType(id)
	if metaType, ok := metadata[models.FieldSourceType].(string); ok {
		if idType != models.SourceTypeUnknown && idType != metaType {
			report.Violations = append(report.Violations,
				fmt.Sprintf("Source type mismatch: ID indicates '%s' but metadata has '%s'", idType, metaType))
		}
	}

	if landmarkID, chunkIndex, ok := identifiers.ExtractLandmarkAndChunk(id); ok {
		if metaLandmark, present := metadata[models.FieldLandmarkID].(string); present && metaLandmark != landmarkID {
			report.Violations = append(report.Violations,
				fmt.Sprintf("Landmark ID mismatch: ID has '%s' but metadata has '%s'", landmarkID, metaLandmark))
		}
		if raw, present := metadata[models.FieldChunkIndex]; present {
			if metaChunk, numeric := coerceInt(raw); numeric && metaChunk != chunkIndex {
				report.Violations = append(report.Violations,
					fmt.Sprintf("Chunk index mismatch: ID has '%d' but metadata has '%d'", chunkIndex, metaChunk))
			}
		}
	}

	if isWikipedia {
		if title, ok := identifiers.ExtractWikiArticleTitle(id); ok {
			if metaTitle, present := metadata[models.FieldArticleTitle].(string); present && metaTitle != title {
				report.Violations = append(report.Violations, "Article title in ID does not match metadata")
			}
		}
	}

	return report
}

func checkEmbedding(values []float32) []string {
	if len(values) == 0 {
		return []string{"Missing or empty embeddings"}
	}
	if !HasValidEmbedding(values) {
		return []string{"All-zero embeddings detected"}
	}
	return nil
}

// coerceInt accepts the numeric shapes metadata values arrive in after JSON
// decoding or provider SDK normalization.
func coerceInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

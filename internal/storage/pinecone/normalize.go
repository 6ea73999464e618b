package pinecone

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/vestigo/internal/models"
)

// rawVector accepts the union of the shapes the data plane emits: fetch
// responses key records by ID and may omit the id field, query matches carry
// a score, list entries carry only the id. Older deployments returned
// metadata under "metadata" or inline; values may be absent entirely when
// not requested.
type rawVector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    *float64               `json:"score"`
}

// normalizeRecord converts one raw payload into the canonical VectorRecord.
// fallbackID fills the ID when the payload omits it (fetch responses key by
// ID instead of repeating it).
func normalizeRecord(fallbackID string, raw json.RawMessage) (*models.VectorRecord, error) {
	var rv rawVector
	if err := json.Unmarshal(raw, &rv); err != nil {
		return nil, fmt.Errorf("could not parse vector payload: %w", err)
	}

	id := rv.ID
	if id == "" {
		id = fallbackID
	}
	if id == "" {
		return nil, fmt.Errorf("vector payload has no id")
	}

	record := &models.VectorRecord{
		ID:       id,
		Values:   rv.Values,
		Metadata: rv.Metadata,
	}
	if record.Metadata == nil {
		record.Metadata = map[string]interface{}{}
	}
	if rv.Score != nil {
		record.Score = float32(*rv.Score)
	}
	return record, nil
}

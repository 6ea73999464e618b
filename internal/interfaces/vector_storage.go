package interfaces

import (
	"context"

	"github.com/ternarybob/vestigo/internal/models"
)

// VectorStorage is the boundary to the hosted vector index. Implementations
// normalize provider response shapes into models.VectorRecord so validation
// logic never sees raw API payloads.
type VectorStorage interface {
	// FetchByID returns the record for the given vector ID. Missing IDs
	// return a not-found error distinguishable via errors.Is.
	FetchByID(ctx context.Context, id string) (*models.VectorRecord, error)

	// FetchByIDs returns the records present in the index for the given IDs.
	// Absent IDs are simply omitted from the result, not errors.
	FetchByIDs(ctx context.Context, ids []string) (map[string]*models.VectorRecord, error)

	// Query performs a similarity search against the index.
	Query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]*models.VectorRecord, error)

	// QueryByFilter enumerates records matching a metadata filter using a
	// zero query vector. Ordering is not meaningful for enumeration use.
	QueryByFilter(ctx context.Context, filter map[string]interface{}, pageSize int, includeEmbedding bool) ([]*models.VectorRecord, error)

	// ListBySourceType pages through vector IDs whose metadata matches the
	// source type. An empty sourceType lists everything. Returns the IDs for
	// the page and the pagination token for the next page ("" when done).
	ListBySourceType(ctx context.Context, sourceType string, limit int, paginationToken string) ([]string, string, error)

	// UpsertBatch writes records to the index. Implementations enforce the
	// provider's per-call batch ceiling by splitting internally.
	UpsertBatch(ctx context.Context, records []*models.VectorRecord) (int, error)

	// UpdateMetadata patches the metadata of an existing vector without
	// touching its values.
	UpdateMetadata(ctx context.Context, id string, metadata map[string]interface{}) error

	// DeleteByIDs removes the given vectors.
	DeleteByIDs(ctx context.Context, ids []string) error

	// DeleteByFilter removes all vectors whose metadata matches the filter.
	DeleteByFilter(ctx context.Context, filter map[string]interface{}) error

	// Stats returns the total vector count and index dimension.
	Stats(ctx context.Context) (int, int, error)
}

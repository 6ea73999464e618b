// Package pinecone implements the vector index boundary against a hosted
// Pinecone-style data plane over plain HTTP. Every response shape the API
// returns is normalized to models.VectorRecord here; nothing above this
// package handles raw index payloads.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/httpclient"
	"github.com/ternarybob/vestigo/internal/models"
)

// ErrNotFound is returned by FetchByID when the index has no such vector.
var ErrNotFound = errors.New("vector not found")

// maxUpsertBatch is the provider's per-call record ceiling.
const maxUpsertBatch = 100

// Client talks to one Pinecone index data plane.
type Client struct {
	host       string
	apiKey     string
	namespace  string
	dimension  int
	batchSize  int
	listPage   int
	httpClient *http.Client
	retry      *httpclient.RetryPolicy
	logger     arbor.ILogger
}

// NewClient builds a client from configuration. The API key is resolved by
// the caller (env → KV store → config) before construction.
func NewClient(cfg common.PineconeConfig, apiKey string, logger arbor.ILogger) *Client {
	if logger == nil {
		logger = common.GetLogger()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	batch := cfg.UpsertBatch
	if batch <= 0 || batch > maxUpsertBatch {
		batch = maxUpsertBatch
	}
	listPage := cfg.ListPageSize
	if listPage <= 0 {
		listPage = 100
	}
	return &Client{
		host:       cfg.IndexHost,
		apiKey:     apiKey,
		namespace:  cfg.Namespace,
		dimension:  cfg.Dimension,
		batchSize:  batch,
		listPage:   listPage,
		httpClient: &http.Client{Timeout: timeout},
		retry:      httpclient.NewRetryPolicy().WithMaxAttempts(cfg.MaxRetries),
		logger:     logger,
	}
}

// FetchByID returns one record, or ErrNotFound when absent.
func (c *Client) FetchByID(ctx context.Context, id string) (*models.VectorRecord, error) {
	records, err := c.FetchByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	record, ok := records[id]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", id, ErrNotFound)
	}
	return record, nil
}

// FetchByIDs returns the records present in the index; absent IDs are omitted.
func (c *Client) FetchByIDs(ctx context.Context, ids []string) (map[string]*models.VectorRecord, error) {
	if len(ids) == 0 {
		return map[string]*models.VectorRecord{}, nil
	}

	params := url.Values{}
	for _, id := range ids {
		params.Add("ids", id)
	}
	if c.namespace != "" {
		params.Set("namespace", c.namespace)
	}

	var response struct {
		Vectors map[string]json.RawMessage `json:"vectors"`
	}
	if err := c.do(ctx, http.MethodGet, "/vectors/fetch?"+params.Encode(), nil, &response); err != nil {
		return nil, fmt.Errorf("fetch vectors: %w", err)
	}

	records := make(map[string]*models.VectorRecord, len(response.Vectors))
	for id, raw := range response.Vectors {
		record, err := normalizeRecord(id, raw)
		if err != nil {
			c.logger.Warn().Str("id", id).Err(err).Msg("Skipping unparseable vector payload")
			continue
		}
		records[id] = record
	}
	return records, nil
}

// Query performs a similarity search.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]*models.VectorRecord, error) {
	return c.query(ctx, vector, topK, filter, false)
}

// QueryByFilter enumerates records matching a metadata filter using a zero
// query vector. Result ordering carries no meaning.
func (c *Client) QueryByFilter(ctx context.Context, filter map[string]interface{}, pageSize int, includeEmbedding bool) ([]*models.VectorRecord, error) {
	zero := make([]float32, c.dimension)
	return c.query(ctx, zero, pageSize, filter, includeEmbedding)
}

func (c *Client) query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}, includeValues bool) ([]*models.VectorRecord, error) {
	body := map[string]interface{}{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
		"includeValues":   includeValues,
	}
	if len(filter) > 0 {
		body["filter"] = filter
	}
	if c.namespace != "" {
		body["namespace"] = c.namespace
	}

	var response struct {
		Matches []json.RawMessage `json:"matches"`
	}
	if err := c.do(ctx, http.MethodPost, "/query", body, &response); err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	records := make([]*models.VectorRecord, 0, len(response.Matches))
	for _, raw := range response.Matches {
		record, err := normalizeRecord("", raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Skipping unparseable query match")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// ListBySourceType pages vector IDs by source type. The index's list endpoint
// filters by ID prefix, and source types map onto the ID grammar's prefixes:
// wikipedia chunks start with "wiki-", PDF chunks with "LP-", test fixtures
// with "test-". An empty sourceType lists every ID.
func (c *Client) ListBySourceType(ctx context.Context, sourceType string, limit int, paginationToken string) ([]string, string, error) {
	params := url.Values{}
	if prefix := sourceTypePrefix(sourceType); prefix != "" {
		params.Set("prefix", prefix)
	}
	pageSize := c.listPage
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}
	params.Set("limit", strconv.Itoa(pageSize))
	if paginationToken != "" {
		params.Set("paginationToken", paginationToken)
	}
	if c.namespace != "" {
		params.Set("namespace", c.namespace)
	}

	var response struct {
		Vectors []struct {
			ID string `json:"id"`
		} `json:"vectors"`
		Pagination struct {
			Next string `json:"next"`
		} `json:"pagination"`
	}
	if err := c.do(ctx, http.MethodGet, "/vectors/list?"+params.Encode(), nil, &response); err != nil {
		return nil, "", fmt.Errorf("list vectors: %w", err)
	}

	ids := make([]string, 0, len(response.Vectors))
	for _, v := range response.Vectors {
		ids = append(ids, v.ID)
	}
	return ids, response.Pagination.Next, nil
}

// UpsertBatch writes records in chunks of at most 100 per network call, each
// chunk retried on transient failure. A failed chunk is logged and skipped so
// later chunks still land; the returned count tells the caller how many
// records actually made it.
func (c *Client) UpsertBatch(ctx context.Context, records []*models.VectorRecord) (int, error) {
	upserted := 0
	var lastErr error

	for start := 0; start < len(records); start += c.batchSize {
		end := start + c.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		body := map[string]interface{}{"vectors": batch}
		if c.namespace != "" {
			body["namespace"] = c.namespace
		}

		_, err := c.retry.ExecuteWithRetry(ctx, c.logger, func() (int, error) {
			return c.doStatus(ctx, http.MethodPost, "/vectors/upsert", body, nil)
		})
		if err != nil {
			lastErr = err
			c.logger.Warn().
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Err(err).
				Msg("Upsert batch failed, continuing with next batch")
			continue
		}
		upserted += len(batch)
	}

	if upserted < len(records) && lastErr != nil {
		return upserted, fmt.Errorf("upserted %d of %d records: %w", upserted, len(records), lastErr)
	}
	return upserted, nil
}

// UpdateMetadata patches a vector's metadata, leaving its values unchanged.
func (c *Client) UpdateMetadata(ctx context.Context, id string, metadata map[string]interface{}) error {
	body := map[string]interface{}{
		"id":          id,
		"setMetadata": metadata,
	}
	if c.namespace != "" {
		body["namespace"] = c.namespace
	}
	if err := c.do(ctx, http.MethodPost, "/vectors/update", body, nil); err != nil {
		return fmt.Errorf("update metadata for %s: %w", id, err)
	}
	return nil
}

// DeleteByIDs removes the given vectors.
func (c *Client) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]interface{}{"ids": ids}
	if c.namespace != "" {
		body["namespace"] = c.namespace
	}
	if err := c.do(ctx, http.MethodPost, "/vectors/delete", body, nil); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

// DeleteByFilter removes all vectors whose metadata matches the filter.
func (c *Client) DeleteByFilter(ctx context.Context, filter map[string]interface{}) error {
	if len(filter) == 0 {
		return fmt.Errorf("delete by filter requires a non-empty filter")
	}
	body := map[string]interface{}{"filter": filter}
	if c.namespace != "" {
		body["namespace"] = c.namespace
	}
	if err := c.do(ctx, http.MethodPost, "/vectors/delete", body, nil); err != nil {
		return fmt.Errorf("delete by filter: %w", err)
	}
	return nil
}

// Stats returns the total vector count and the index dimension.
func (c *Client) Stats(ctx context.Context) (int, int, error) {
	var response struct {
		TotalVectorCount int `json:"totalVectorCount"`
		Dimension        int `json:"dimension"`
	}
	if err := c.do(ctx, http.MethodPost, "/describe_index_stats", map[string]interface{}{}, &response); err != nil {
		return 0, 0, fmt.Errorf("index stats: %w", err)
	}
	return response.TotalVectorCount, response.Dimension, nil
}

func sourceTypePrefix(sourceType string) string {
	switch sourceType {
	case models.SourceTypeWikipedia:
		return "wiki-"
	case models.SourceTypePDF:
		return "LP-"
	case models.SourceTypeTest:
		return "test-"
	default:
		return ""
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	_, err := c.doStatus(ctx, method, path, body, out)
	return err
}

// doStatus performs one request and returns the HTTP status alongside the
// error, for use inside the retry loop.
func (c *Client) doStatus(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("index returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

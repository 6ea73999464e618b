// Package landmarks serves NYC landmark reference data from the city open
// data API, with per-call rate limiting, bounded retry, and a Badger-backed
// response cache.
package landmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/httpclient"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
)

const cacheKeyPrefix = "landmark:"

// socrataRow is the open data API's row shape for a designated landmark.
type socrataRow struct {
	LPNumber   string `json:"lp_number"`
	Name       string `json:"area_name"`
	Borough    string `json:"borough"`
	ObjectType string `json:"object_type"`
	Address    string `json:"address"`
	DateDesig  string `json:"date_desig"`
}

// Service implements interfaces.LandmarkService.
type Service struct {
	config     common.LandmarksConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      *httpclient.RetryPolicy
	cache      interfaces.KeyValueStorage
	logger     arbor.ILogger
}

// NewService creates the landmark client. cache may be nil to disable
// caching (used by tests).
func NewService(cfg common.LandmarksConfig, cache interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := cfg.RateLimit
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		retry:      httpclient.NewRetryPolicy().WithMaxAttempts(cfg.MaxRetries),
		cache:      cache,
		logger:     logger,
	}
}

// GetLandmark returns one landmark by LP number, from cache when fresh.
func (s *Service) GetLandmark(ctx context.Context, lpNumber string) (*models.Landmark, error) {
	if lpNumber == "" {
		return nil, fmt.Errorf("lp number is required")
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(cacheKeyPrefix + lpNumber); err == nil {
			var landmark models.Landmark
			if err := json.Unmarshal([]byte(cached), &landmark); err == nil {
				return &landmark, nil
			}
		}
	}

	params := url.Values{}
	params.Set("lp_number", lpNumber)
	params.Set("$limit", "1")

	rows, err := s.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("landmark %s not found", lpNumber)
	}

	landmark := rowToLandmark(rows[0])
	s.cacheLandmark(landmark)
	return landmark, nil
}

// ListLandmarks returns landmarks matching the filter.
func (s *Service) ListLandmarks(ctx context.Context, filter models.LandmarkFilter) ([]*models.Landmark, error) {
	params := url.Values{}
	if filter.Borough != "" {
		params.Set("borough", filter.Borough)
	}
	if filter.ObjectType != "" {
		params.Set("object_type", filter.ObjectType)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	params.Set("$limit", strconv.Itoa(limit))
	if filter.Offset > 0 {
		params.Set("$offset", strconv.Itoa(filter.Offset))
	}

	rows, err := s.fetch(ctx, params)
	if err != nil {
		return nil, err
	}

	landmarks := make([]*models.Landmark, 0, len(rows))
	for _, row := range rows {
		landmarks = append(landmarks, rowToLandmark(row))
	}
	return landmarks, nil
}

// KnownLandmarkIDs returns the set of designated LP numbers. Pages through
// the full dataset; the result is used by reconciliation to cross-check
// landmark_id metadata against reality.
func (s *Service) KnownLandmarkIDs(ctx context.Context) (map[string]bool, error) {
	known := make(map[string]bool)
	const pageSize = 1000

	for offset := 0; ; offset += pageSize {
		params := url.Values{}
		params.Set("$select", "lp_number")
		params.Set("$limit", strconv.Itoa(pageSize))
		params.Set("$offset", strconv.Itoa(offset))

		rows, err := s.fetch(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.LPNumber != "" {
				known[row.LPNumber] = true
			}
		}
		if len(rows) < pageSize {
			break
		}
	}
	return known, nil
}

func (s *Service) fetch(ctx context.Context, params url.Values) ([]socrataRow, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var rows []socrataRow
	_, err := s.retry.ExecuteWithRetry(ctx, s.logger, func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return 0, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if s.config.AppToken != "" {
			req.Header.Set("X-App-Token", s.config.AppToken)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, fmt.Errorf("landmark API returned %d", resp.StatusCode)
		}

		rows = nil
		if err := json.Unmarshal(data, &rows); err != nil {
			return resp.StatusCode, fmt.Errorf("decode landmark response: %w", err)
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) cacheLandmark(landmark *models.Landmark) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(landmark)
	if err != nil {
		return
	}
	ttl := s.config.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := s.cache.SetWithTTL(cacheKeyPrefix+landmark.LPNumber, string(payload), ttl); err != nil {
		s.logger.Warn().Str("lp_number", landmark.LPNumber).Err(err).Msg("Failed to cache landmark")
	}
}

func rowToLandmark(row socrataRow) *models.Landmark {
	landmark := &models.Landmark{
		LPNumber:   row.LPNumber,
		Name:       row.Name,
		Borough:    row.Borough,
		ObjectType: row.ObjectType,
		Address:    row.Address,
		FetchedAt:  time.Now(),
	}
	if row.DateDesig != "" {
		if t, err := time.Parse("2006-01-02T15:04:05.000", row.DateDesig); err == nil {
			landmark.DateDesig = t
		}
	}
	return landmark
}

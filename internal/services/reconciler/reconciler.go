// Package reconciler drives the record validator across the hosted index:
// paged scans with aggregate reporting, targeted ID checks, and the metadata
// repair pass for Wikipedia chunks that lost their article fields.
package reconciler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/services/identifiers"
	"github.com/ternarybob/vestigo/internal/services/validation"
	"github.com/ternarybob/vestigo/internal/services/workers"
)

// wikipediaBaseURL is the prefix for repaired article URLs.
const wikipediaBaseURL = "https://en.wikipedia.org/wiki/"

// ScanOptions narrows and bounds one scan.
type ScanOptions struct {
	// SourceType limits the scan to one source type ("" scans everything).
	SourceType string
	// LandmarkID limits the scan to records whose ID decodes to this
	// landmark. Records with undecodable IDs are excluded from filtered
	// scans; an unfiltered scan still reaches them.
	LandmarkID string
	// Limit caps the number of records scanned (0 = no cap).
	Limit int
	// CheckEmbeddings fetches vector values and runs the embedding check.
	CheckEmbeddings bool
	// Concurrency enables parallel per-page validation when > 1. Results
	// merge commutatively, so page completion order does not matter.
	Concurrency int
}

// Service is the batch reconciler.
type Service struct {
	storage   interfaces.VectorStorage
	validator *validation.Validator
	logger    arbor.ILogger
}

func NewService(storage interfaces.VectorStorage, validator *validation.Validator, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	if validator == nil {
		validator = validation.NewValidator(logger)
	}
	return &Service{
		storage:   storage,
		validator: validator,
		logger:    logger,
	}
}

// Scan pages records out of the index and validates each one. A single bad
// record is data in the summary, never an error; only storage connectivity
// failures between pages abort the scan. Cancellation is honored between
// pages, not mid-page.
func (s *Service) Scan(ctx context.Context, opts ScanOptions) (*models.BatchSummary, error) {
	summary, _, err := s.ScanWithCoverage(ctx, opts)
	return summary, err
}

// ScanWithCoverage runs Scan while also classifying per-landmark coverage.
func (s *Service) ScanWithCoverage(ctx context.Context, opts ScanOptions) (*models.BatchSummary, *models.CoverageReport, error) {
	summary := &models.BatchSummary{PerRecordViolations: map[string][]string{}}
	coverage := newCoverageAccumulator()

	var mu sync.Mutex
	var pool *workers.Pool
	if opts.Concurrency > 1 {
		pool = workers.NewPool(opts.Concurrency, s.logger)
		pool.Start()
	}

	scanned := 0
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			if pool != nil {
				pool.Wait()
			}
			return summary, coverage.report(), err
		}

		pageLimit := 0
		if opts.Limit > 0 {
			pageLimit = opts.Limit - scanned
			if pageLimit <= 0 {
				break
			}
		}

		ids, next, err := s.storage.ListBySourceType(ctx, opts.SourceType, pageLimit, token)
		if err != nil {
			if pool != nil {
				pool.Wait()
			}
			return summary, coverage.report(), fmt.Errorf("scan aborted while listing page: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		if opts.Limit > 0 && scanned+len(ids) > opts.Limit {
			ids = ids[:opts.Limit-scanned]
		}
		scanned += len(ids)

		ids = filterByLandmark(ids, opts.LandmarkID)

		page := ids
		validatePage := func(ctx context.Context) error {
			pageSummary, results, err := s.validateIDs(ctx, page, opts.CheckEmbeddings, false)
			if err != nil {
				return err
			}
			mu.Lock()
			summary.Merge(pageSummary)
			for _, r := range results {
				coverage.foldRecord(r.id, r.valid)
			}
			mu.Unlock()
			return nil
		}

		if pool != nil {
			if err := pool.Submit(validatePage); err != nil {
				break
			}
		} else if err := validatePage(ctx); err != nil {
			return summary, coverage.report(), err
		}

		if next == "" {
			break
		}
		token = next
	}

	if pool != nil {
		pool.Wait()
		if errs := pool.Errors(); len(errs) > 0 {
			return summary, coverage.report(), errs[0]
		}
	}

	s.logger.Info().
		Int("total", summary.Total).
		Int("passed", summary.Passed).
		Int("failed", summary.Failed).
		Msg("Scan complete")

	return summary, coverage.report(), nil
}

// ScanIDs validates an explicit ID list. Missing IDs are tracked as NotFound
// and excluded from passed/failed.
func (s *Service) ScanIDs(ctx context.Context, ids []string, checkEmbeddings bool) (*models.BatchSummary, error) {
	summary, _, err := s.validateIDs(ctx, ids, checkEmbeddings, true)
	return summary, err
}

// recordResult is the per-record outcome used for coverage grouping.
type recordResult struct {
	id    string
	valid bool
}

// validateIDs fetches and validates one batch of IDs. When trackNotFound is
// false, missing IDs validate as nil records and land in Failed with the
// not-found violation; when true they are counted separately. A batch fetch
// failure returns an error, which aborts the enclosing scan.
func (s *Service) validateIDs(ctx context.Context, ids []string, checkEmbeddings, trackNotFound bool) (*models.BatchSummary, []recordResult, error) {
	summary := &models.BatchSummary{PerRecordViolations: map[string][]string{}}
	if len(ids) == 0 {
		return summary, nil, nil
	}

	// A batch fetch failure is connectivity, not record data; reporting the
	// page as not-found would corrupt the pass rate.
	records, err := s.storage.FetchByIDs(ctx, ids)
	if err != nil {
		return summary, nil, fmt.Errorf("scan aborted while fetching page: %w", err)
	}

	results := make([]recordResult, 0, len(ids))
	for _, id := range ids {
		record, found := records[id]
		if !found && trackNotFound {
			summary.Total++
			summary.NotFound++
			continue
		}

		var report models.ValidationReport
		if checkEmbeddings || record == nil {
			report = s.validator.Validate(id, record)
		} else {
			report = s.validator.ValidateMetadataOnly(id, record.Metadata)
		}

		summary.Total++
		if report.IsValid {
			summary.Passed++
		} else {
			summary.Failed++
			summary.PerRecordViolations[id] = report.Violations
		}
		results = append(results, recordResult{id: id, valid: report.IsValid})
	}
	return summary, results, nil
}

// RepairWikipediaTitles derives missing article_title/article_url metadata
// from wiki-form IDs and writes the patch back unless dryRun. Embedding
// values are never touched, and records that already carry both fields are
// left alone, so re-running the repair is a no-op.
func (s *Service) RepairWikipediaTitles(ctx context.Context, dryRun bool) (*models.RepairSummary, error) {
	summary := &models.RepairSummary{DryRun: dryRun}

	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		ids, next, err := s.storage.ListBySourceType(ctx, models.SourceTypeWikipedia, 0, token)
		if err != nil {
			return summary, fmt.Errorf("repair aborted while listing page: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		records, err := s.storage.FetchByIDs(ctx, ids)
		if err != nil {
			return summary, fmt.Errorf("repair aborted while fetching page: %w", err)
		}

		for _, id := range ids {
			record, found := records[id]
			if !found {
				continue
			}
			summary.Scanned++

			action, patch := buildRepairPatch(id, record.Metadata)
			if patch == nil {
				summary.Skipped++
				continue
			}

			if !dryRun {
				if err := s.storage.UpdateMetadata(ctx, id, patch); err != nil {
					s.logger.Warn().Str("id", id).Err(err).Msg("Repair write failed, continuing")
					summary.Skipped++
					continue
				}
				action.Applied = true
			}
			summary.Repaired++
			summary.Actions = append(summary.Actions, *action)
		}

		if next == "" {
			break
		}
		token = next
	}

	s.logger.Info().
		Int("scanned", summary.Scanned).
		Int("repaired", summary.Repaired).
		Bool("dry_run", dryRun).
		Msg("Repair pass complete")

	return summary, nil
}

// buildRepairPatch returns the metadata patch for a record missing article
// fields, or nil when nothing needs repair or the title cannot be derived.
func buildRepairPatch(id string, metadata map[string]interface{}) (*models.RepairAction, map[string]interface{}) {
	hasTitle := hasNonEmptyString(metadata, models.FieldArticleTitle)
	hasURL := hasNonEmptyString(metadata, models.FieldArticleURL)
	if hasTitle && hasURL {
		return nil, nil
	}

	title, ok := identifiers.ExtractWikiArticleTitle(id)
	if !ok || title == "" {
		return nil, nil
	}

	patch := map[string]interface{}{}
	action := &models.RepairAction{ID: id}
	if !hasTitle {
		patch[models.FieldArticleTitle] = title
		action.ArticleTitle = title
	}
	if !hasURL {
		url := wikipediaBaseURL + strings.ReplaceAll(title, " ", "_")
		patch[models.FieldArticleURL] = url
		action.ArticleURL = url
	}
	return action, patch
}

func hasNonEmptyString(metadata map[string]interface{}, field string) bool {
	if metadata == nil {
		return false
	}
	value, ok := metadata[field].(string)
	return ok && value != ""
}

// filterByLandmark keeps the IDs that decode to the given landmark.
func filterByLandmark(ids []string, landmarkID string) []string {
	if landmarkID == "" {
		return ids
	}
	filtered := ids[:0:0]
	for _, id := range ids {
		if decoded, _, ok := identifiers.ExtractLandmarkAndChunk(id); ok && decoded == landmarkID {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

// coverageAccumulator tracks per-landmark valid/total counts across pages.
type coverageAccumulator struct {
	totals map[string]int
	valids map[string]int
}

func newCoverageAccumulator() *coverageAccumulator {
	return &coverageAccumulator{
		totals: map[string]int{},
		valids: map[string]int{},
	}
}

// foldRecord registers one validated record for coverage grouping. Records
// whose IDs do not decode to a landmark are excluded from the grouping.
func (c *coverageAccumulator) foldRecord(id string, valid bool) {
	landmark, _, ok := identifiers.ExtractLandmarkAndChunk(id)
	if !ok {
		return
	}
	c.totals[landmark]++
	if valid {
		c.valids[landmark]++
	}
}

func (c *coverageAccumulator) report() *models.CoverageReport {
	report := &models.CoverageReport{}
	landmarks := make([]string, 0, len(c.totals))
	for landmark := range c.totals {
		landmarks = append(landmarks, landmark)
	}
	sort.Strings(landmarks)

	for _, landmark := range landmarks {
		total := c.totals[landmark]
		valid := c.valids[landmark]
		entry := models.LandmarkCoverage{
			LandmarkID: landmark,
			Total:      total,
			Valid:      valid,
		}
		switch {
		case valid == total:
			entry.Coverage = models.CoverageFull
			report.FullCoverage++
		case valid > 0:
			entry.Coverage = models.CoveragePartial
			report.PartialCoverage++
		default:
			entry.Coverage = models.CoverageNone
			report.NoCoverage++
		}
		report.Landmarks = append(report.Landmarks, entry)
	}

	if len(report.Landmarks) > 0 {
		report.CoveragePercent = float64(report.FullCoverage) / float64(len(report.Landmarks)) * 100
	}
	return report
}

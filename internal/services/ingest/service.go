package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/services/identifiers"
	"github.com/ternarybob/vestigo/internal/services/validation"
)

// Service ingests landmark source documents: fetch, chunk, embed, validate,
// and upsert. Records that fail metadata validation are never written.
type Service struct {
	storage    interfaces.VectorStorage
	embeddings interfaces.EmbeddingService
	fetcher    *WikipediaFetcher
	extractor  *PDFExtractor
	chunker    *Chunker
	validator  *validation.Validator
	logger     arbor.ILogger
}

// Summary reports the outcome of one ingestion run.
type Summary struct {
	Sources  int `json:"sources"`
	Chunks   int `json:"chunks"`
	Upserted int `json:"upserted"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
}

func NewService(
	storage interfaces.VectorStorage,
	embeddings interfaces.EmbeddingService,
	cfg common.IngestConfig,
	logger arbor.ILogger,
) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		storage:    storage,
		embeddings: embeddings,
		fetcher:    NewWikipediaFetcher(cfg, logger),
		extractor:  NewPDFExtractor(logger),
		chunker:    NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		validator:  validation.NewValidator(logger),
		logger:     logger,
	}
}

// IngestManifest processes every source in the manifest. A failing source is
// logged and counted but does not abort the run.
func (s *Service) IngestManifest(ctx context.Context, manifest *Manifest) (*Summary, error) {
	summary := &Summary{Sources: len(manifest.Sources)}
	for _, source := range manifest.Sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		partial, err := s.ingestSource(ctx, source)
		if partial != nil {
			summary.Chunks += partial.Chunks
			summary.Upserted += partial.Upserted
			summary.Rejected += partial.Rejected
		}
		if err != nil {
			summary.Failed++
			s.logger.Error().
				Str("landmark_id", source.LandmarkID).
				Str("type", source.Type).
				Err(err).
				Msg("Source ingestion failed")
		}
	}
	s.logger.Info().
		Int("sources", summary.Sources).
		Int("upserted", summary.Upserted).
		Int("rejected", summary.Rejected).
		Int("failed", summary.Failed).
		Msg("Ingestion run completed")
	return summary, nil
}

// IngestWikipedia fetches one article and indexes it for the landmark.
func (s *Service) IngestWikipedia(ctx context.Context, landmarkID, articleTitle string) (*Summary, error) {
	return s.ingestSource(ctx, ManifestSource{
		LandmarkID:   landmarkID,
		Type:         models.SourceTypeWikipedia,
		ArticleTitle: articleTitle,
	})
}

// IngestPDF extracts one designation report and indexes it for the landmark.
func (s *Service) IngestPDF(ctx context.Context, landmarkID, path string) (*Summary, error) {
	return s.ingestSource(ctx, ManifestSource{
		LandmarkID: landmarkID,
		Type:       models.SourceTypePDF,
		Path:       path,
	})
}

func (s *Service) ingestSource(ctx context.Context, source ManifestSource) (*Summary, error) {
	if err := source.validate(); err != nil {
		return nil, err
	}

	var (
		text    string
		article *Article
		err     error
	)
	switch source.Type {
	case models.SourceTypeWikipedia:
		article, err = s.fetcher.FetchArticle(ctx, source.ArticleTitle)
		if err != nil {
			return nil, err
		}
		text = article.Text
	case models.SourceTypePDF:
		text, err = s.extractor.ExtractText(source.Path)
		if err != nil {
			return nil, err
		}
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("source for '%s' produced no text", source.LandmarkID)
	}

	records, rejected, err := s.buildRecords(ctx, source, article, chunks)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Sources: 1, Chunks: len(chunks), Rejected: rejected}
	if len(records) == 0 {
		return summary, fmt.Errorf("all %d chunks for '%s' failed validation", len(chunks), source.LandmarkID)
	}

	upserted, err := s.storage.UpsertBatch(ctx, records)
	summary.Upserted = upserted
	if err != nil {
		return summary, fmt.Errorf("upsert for '%s' incomplete: %w", source.LandmarkID, err)
	}

	s.logger.Info().
		Str("landmark_id", source.LandmarkID).
		Str("type", source.Type).
		Int("chunks", len(chunks)).
		Int("upserted", upserted).
		Msg("Source ingested")
	return summary, nil
}

// buildRecords embeds chunks and assembles records, validating each against
// the metadata schema before it is allowed into the batch.
func (s *Service) buildRecords(ctx context.Context, source ManifestSource, article *Article, chunks []string) ([]*models.VectorRecord, int, error) {
	vectors, err := s.embeddings.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, 0, fmt.Errorf("embedding failed for '%s': %w", source.LandmarkID, err)
	}

	records := make([]*models.VectorRecord, 0, len(chunks))
	rejected := 0
	for i, chunk := range chunks {
		record := s.buildRecord(source, article, i, chunk, vectors[i])

		// Self-check: the built ID must decode back to this landmark and
		// chunk before the record is considered at all
		if !identifiers.MatchesExpected(record.ID, source.LandmarkID, i) {
			rejected++
			s.logger.Warn().
				Str("id", record.ID).
				Str("landmark_id", source.LandmarkID).
				Msg("Built ID does not encode the expected landmark and chunk")
			continue
		}

		report := s.validator.Validate(record.ID, record)
		if !report.IsValid {
			rejected++
			s.logger.Warn().
				Str("id", record.ID).
				Strs("violations", report.Violations).
				Msg("Chunk rejected by validation")
			continue
		}
		records = append(records, record)
	}
	return records, rejected, nil
}

func (s *Service) buildRecord(source ManifestSource, article *Article, chunkIndex int, text string, values []float32) *models.VectorRecord {
	metadata := map[string]interface{}{
		models.FieldLandmarkID: source.LandmarkID,
		models.FieldSourceType: source.Type,
		models.FieldChunkIndex: chunkIndex,
		models.FieldText:       text,
		"ingested_at":          time.Now().UTC().Format(time.RFC3339),
	}

	var id string
	switch source.Type {
	case models.SourceTypeWikipedia:
		id = identifiers.BuildWikiID(article.Title, source.LandmarkID, chunkIndex)
		metadata[models.FieldArticleTitle] = article.Title
		metadata[models.FieldArticleURL] = article.URL
	default:
		id = identifiers.BuildPdfID(source.LandmarkID, chunkIndex)
	}

	return &models.VectorRecord{
		ID:       id,
		Values:   values,
		Metadata: metadata,
	}
}

package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/vestigo/internal/models"
)

// Manifest lists the sources to ingest for a set of landmarks.
type Manifest struct {
	Sources []ManifestSource `yaml:"sources"`
}

// ManifestSource is one document to ingest. PDF sources name a local file,
// Wikipedia sources name an article title.
type ManifestSource struct {
	LandmarkID   string `yaml:"landmark_id"`
	Type         string `yaml:"type"`
	Path         string `yaml:"path,omitempty"`
	ArticleTitle string `yaml:"article_title,omitempty"`
}

// LoadManifest reads and validates a YAML ingestion manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest '%s': %w", path, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest '%s': %w", path, err)
	}

	if len(manifest.Sources) == 0 {
		return nil, fmt.Errorf("manifest '%s' lists no sources", path)
	}
	for i, source := range manifest.Sources {
		if err := source.validate(); err != nil {
			return nil, fmt.Errorf("manifest '%s' source %d: %w", path, i+1, err)
		}
	}
	return &manifest, nil
}

func (s ManifestSource) validate() error {
	if s.LandmarkID == "" {
		return fmt.Errorf("landmark_id is required")
	}
	switch s.Type {
	case models.SourceTypePDF:
		if s.Path == "" {
			return fmt.Errorf("pdf source requires a path")
		}
	case models.SourceTypeWikipedia:
		if s.ArticleTitle == "" {
			return fmt.Errorf("wikipedia source requires an article_title")
		}
	default:
		return fmt.Errorf("unknown source type '%s'", s.Type)
	}
	return nil
}

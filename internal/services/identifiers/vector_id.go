// Package identifiers defines the vector ID grammar that ties each stored
// embedding chunk to a landmark, a source type, and a chunk index.
//
// Two ID shapes exist:
//
//	LP-00001-chunk-0                       (PDF designation report chunk)
//	wiki-Empire_State_Building-LP-00001-chunk-0  (Wikipedia article chunk)
//
// The wiki slug may itself contain hyphens; only the trailing
// -{landmark}-chunk-{n} suffix is structurally anchored.
package identifiers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/vestigo/internal/models"
)

var (
	pdfIDPattern  = regexp.MustCompile(`^(LP-\d{5})-chunk-(\d+)$`)
	wikiIDPattern = regexp.MustCompile(`^wiki-(.+)-(LP-\d{5})-chunk-(\d+)$`)
)

// ClassifySourceType classifies an ID by shape. The "test" source type is
// metadata-only and never assigned from shape.
func ClassifySourceType(id string) string {
	if strings.HasPrefix(id, "wiki-") {
		return models.SourceTypeWikipedia
	}
	if pdfIDPattern.MatchString(id) {
		return models.SourceTypePDF
	}
	return models.SourceTypeUnknown
}

// MatchesPdfShape reports whether id is a well-formed PDF chunk ID.
func MatchesPdfShape(id string) bool {
	return pdfIDPattern.MatchString(id)
}

// MatchesWikiShape reports whether id is a well-formed Wikipedia chunk ID.
func MatchesWikiShape(id string) bool {
	return wikiIDPattern.MatchString(id)
}

// ExtractLandmarkAndChunk decodes the landmark ID and chunk index from either
// ID shape, trying the PDF form first. ok is false when neither matches.
func ExtractLandmarkAndChunk(id string) (string, int, bool) {
	if m := pdfIDPattern.FindStringSubmatch(id); m != nil {
		chunk, err := strconv.Atoi(m[2])
		if err != nil {
			return "", 0, false
		}
		return m[1], chunk, true
	}
	if m := wikiIDPattern.FindStringSubmatch(id); m != nil {
		chunk, err := strconv.Atoi(m[3])
		if err != nil {
			return "", 0, false
		}
		return m[2], chunk, true
	}
	return "", 0, false
}

// MatchesExpected reports whether id encodes exactly the given landmark and
// chunk index, in either shape. Used as an ingestion-time self-check.
func MatchesExpected(id, landmarkID string, chunkIndex int) bool {
	if id == BuildPdfID(landmarkID, chunkIndex) {
		return true
	}
	if m := wikiIDPattern.FindStringSubmatch(id); m != nil {
		chunk, err := strconv.Atoi(m[3])
		if err != nil {
			return false
		}
		return m[2] == landmarkID && chunk == chunkIndex
	}
	return false
}

// ExtractWikiArticleTitle recovers the article title from a wiki-form ID using
// the historical loose parse: split on "-", take the second segment, replace
// underscores with spaces. Slugs containing hyphens lose everything after the
// first hyphen under this parse. Both this and the anchored regex are kept
// because stored data was produced under both assumptions.
func ExtractWikiArticleTitle(id string) (string, bool) {
	if !strings.HasPrefix(id, "wiki-") {
		return "", false
	}
	parts := strings.Split(id, "-")
	if len(parts) < 4 {
		return "", false
	}
	return strings.ReplaceAll(parts[1], "_", " "), true
}

// BuildPdfID constructs the PDF-form ID for a landmark chunk.
func BuildPdfID(landmarkID string, chunkIndex int) string {
	return fmt.Sprintf("%s-chunk-%d", landmarkID, chunkIndex)
}

// BuildWikiID constructs the wiki-form ID for an article chunk. Spaces in the
// title become underscores in the slug.
func BuildWikiID(articleTitle, landmarkID string, chunkIndex int) string {
	slug := strings.ReplaceAll(articleTitle, " ", "_")
	return fmt.Sprintf("wiki-%s-%s-chunk-%d", slug, landmarkID, chunkIndex)
}

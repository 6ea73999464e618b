package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/httpclient"
)

const wikipediaBase = "https://en.wikipedia.org/wiki/"

// WikipediaFetcher downloads an article and reduces it to markdown text
// suitable for chunking. Fetches are rate limited and retried.
type WikipediaFetcher struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	retry      *httpclient.RetryPolicy
	logger     arbor.ILogger
}

// Article is the fetched content of one Wikipedia page.
type Article struct {
	Title string
	URL   string
	Text  string
}

func NewWikipediaFetcher(cfg common.IngestConfig, logger arbor.ILogger) *WikipediaFetcher {
	if logger == nil {
		logger = common.GetLogger()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	delay := cfg.RequestDelay
	if delay <= 0 {
		delay = time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "vestigo/1.0 (landmark research tool)"
	}
	return &WikipediaFetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		retry:      httpclient.NewRetryPolicy(),
		logger:     logger,
	}
}

// FetchArticle downloads the article for the given title. The title uses
// spaces; the URL form with underscores is derived here.
func (f *WikipediaFetcher) FetchArticle(ctx context.Context, title string) (*Article, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("article title cannot be empty")
	}

	slug := strings.ReplaceAll(title, " ", "_")
	articleURL := wikipediaBase + url.PathEscape(slug)

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body []byte
	_, err := f.retry.ExecuteWithRetry(ctx, f.logger, func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, fmt.Errorf("wikipedia returned status %d for %s", resp.StatusCode, articleURL)
		}
		body, err = io.ReadAll(resp.Body)
		return resp.StatusCode, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article '%s': %w", title, err)
	}

	text, err := extractArticleText(body, articleURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse article '%s': %w", title, err)
	}

	f.logger.Info().
		Str("title", title).
		Int("chars", len(text)).
		Msg("Wikipedia article fetched")

	return &Article{Title: title, URL: articleURL, Text: text}, nil
}

// extractArticleText isolates the article body and converts it to markdown.
// Navigation chrome, infoboxes, citations, and edit links are stripped so
// chunks carry prose only.
func extractArticleText(html []byte, baseURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return "", err
	}

	content := doc.Find("#mw-content-text .mw-parser-output").First()
	if content.Length() == 0 {
		return "", fmt.Errorf("article body not found")
	}

	content.Find("table, .infobox, .navbox, .sidebar, .mw-editsection, .reference, .reflist, sup.reference, style, script, figure, .thumb, .hatnote, .shortdescription").Remove()

	inner, err := content.Html()
	if err != nil {
		return "", err
	}

	converter := md.NewConverter(baseURL, true, nil)
	markdown, err := converter.ConvertString(inner)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(markdown), nil
}

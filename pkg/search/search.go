package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/newton/internal/logger"
	"github.com/xhad/newton/internal/models"
	"golang.org/x/time/rate"
)

type SearchConfig struct {
	Endpoint   string
	MaxResults int
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	UserAgent  string
}

// Searcher queries the DuckDuckGo HTML endpoint.
type Searcher struct {
	config  SearchConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config SearchConfig) (*Searcher, error) {
	if config.Endpoint == "" {
		config.Endpoint = "https://html.duckduckgo.com/html/"
	}
	if config.MaxResults == 0 {
		config.MaxResults = 2
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}

	if _, err := url.Parse(config.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}

	return &Searcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Search returns at most MaxResults results for query.
func (s *Searcher) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(s.config.Endpoint)
	if err != nil {
		return nil, err
	}
	params := endpoint.Query()
	params.Set("q", query)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for query %q", resp.StatusCode, query)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	return s.extractResults(doc), nil
}

func (s *Searcher) extractResults(doc *goquery.Document) []models.SearchResult {
	var results []models.SearchResult

	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		// Sponsored results carry the result--ad class.
		if sel.HasClass("result--ad") {
			return true
		}

		body := cleanText(sel.Find(".result__snippet").Text())
		if body == "" {
			return true
		}

		link := sel.Find("a.result__a")
		href, _ := link.Attr("href")
		results = append(results, models.SearchResult{
			Title: cleanText(link.Text()),
			URL:   resolveRedirect(href),
			Body:  body,
		})
		return len(results) < s.config.MaxResults
	})

	return results
}

// WebContext joins the bodies of the top results with newlines. Every
// failure yields an empty string.
func (s *Searcher) WebContext(ctx context.Context, query string) string {
	results, err := s.Search(ctx, query)
	if err != nil {
		logger.Warn.Printf("web search failed: %v", err)
		return ""
	}

	bodies := make([]string, 0, len(results))
	for _, r := range results {
		bodies = append(bodies, r.Body)
	}
	return strings.Join(bodies, "\n")
}

func cleanText(content string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(content), " "))
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

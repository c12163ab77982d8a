package crawl

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bull/site-search/internal/storage"
)

// DefaultContentSelector scopes extraction to the page's main content
// element, skipping navigation and chrome.
const DefaultContentSelector = "article"

// DefaultConcurrency is the page worker pool size.
const DefaultConcurrency = 10

// PageFetcher fetches and parses one page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// Crawler turns site pages into line and section records. Pages are
// independent: workers share no mutable state, and section identity is
// content-derived, so aggregate output order across pages is
// unspecified while order within a page is preserved.
type Crawler struct {
	Fetcher         PageFetcher
	Limiter         *rate.Limiter // optional request rate limit
	ContentSelector string        // defaults to DefaultContentSelector
	RelativeURLs    bool          // store URL path only, domain stripped
	Concurrency     int
	Logger          *slog.Logger
}

// PageResult holds all records extracted from one page.
type PageResult struct {
	URL      string
	Lines    []storage.PageLine
	Sections []SectionRecord
}

// Result aggregates a site crawl.
type Result struct {
	Pages    int // pages crawled, including empty ones
	Failed   int // pages skipped on fetch failure
	Lines    int
	Sections int
}

// CrawlPage fetches one page and extracts its records. A page whose
// content selector matches nothing yields an empty result; a fetch
// failure is returned as an error for the caller to skip.
func (c *Crawler) CrawlPage(ctx context.Context, pageURL string) (*PageResult, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	doc, err := c.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	saveURL := pageURL
	if c.RelativeURLs {
		if parsed, err := url.Parse(pageURL); err == nil {
			saveURL = parsed.Path
		}
	}

	selector := c.ContentSelector
	if selector == "" {
		selector = DefaultContentSelector
	}

	units := ExtractUnits(doc, selector)
	title := PageTitle(doc)
	scopes := PathHierarchy(pageURL)

	return &PageResult{
		URL:      saveURL,
		Lines:    PageLines(units, saveURL, title, scopes),
		Sections: AssembleSections(units, saveURL, title, scopes),
	}, nil
}

type pageOutcome struct {
	url    string
	result *PageResult
	err    error
}

// CrawlSite crawls every URL with a bounded worker pool, invoking emit
// once per successfully crawled page. emit runs on the collecting
// goroutine, so it may write to unsynchronized sinks. Failed pages are
// logged and counted, never escalated.
func (c *Crawler) CrawlSite(ctx context.Context, urls []string, emit func(PageResult)) (*Result, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	outcomes := make(chan pageOutcome, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	go func() {
		for _, pageURL := range urls {
			g.Go(func() error {
				result, err := c.CrawlPage(gctx, pageURL)
				outcomes <- pageOutcome{url: pageURL, result: result, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(outcomes)
	}()

	result := &Result{}
	for outcome := range outcomes {
		if outcome.err != nil {
			logger.Warn("page skipped", "url", outcome.url, "error", outcome.err)
			result.Failed++
			continue
		}
		result.Pages++
		result.Lines += len(outcome.result.Lines)
		result.Sections += len(outcome.result.Sections)
		if emit != nil {
			emit(*outcome.result)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// Package main provides the site-sync CLI for crawling a website and
// building its search index.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/bull/site-search/internal/crawl"
	"github.com/bull/site-search/internal/embedding"
	"github.com/bull/site-search/internal/indexer"
	"github.com/bull/site-search/internal/search"
	"github.com/bull/site-search/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "site-sync",
	Short: "Website search index management tool",
	Long:  "CLI tool for crawling a website into line/section records and indexing them in Qdrant",
}

var (
	crawlSite     string
	crawlSitemap  string
	crawlOut      string
	crawlSelector string
	crawlWorkers  int
	crawlRPS      float64
	crawlAbsolute bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a site's pages into JSONL record files",
	Long: `Discovers page URLs from the site's sitemap, fetches each page,
extracts heading/paragraph/list-item lines and heading-delimited
sections, and writes the records as newline-delimited JSON:

  lines.jsonl          one record per page line
  sections.jsonl       one record per heading-delimited section
  section_lines.jsonl  one record per section body line

Failed pages are skipped; a best-effort site index tolerates gaps.`,
	RunE: runCrawl,
}

var (
	indexData  string
	indexBatch int
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the search collections from crawled records",
	Long: `Drops and recreates the Qdrant collections, embeds every record text
and uploads vectors with payloads.

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)`,
	RunE: runIndex,
}

var searchSection string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one hybrid search against the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	crawlCmd.Flags().StringVar(&crawlSite, "site", "", "site root URL (required)")
	crawlCmd.Flags().StringVar(&crawlSitemap, "sitemap", "", "explicit sitemap URL (default: robots.txt, then /sitemap.xml)")
	crawlCmd.Flags().StringVar(&crawlOut, "out", "data", "output directory for record files")
	crawlCmd.Flags().StringVar(&crawlSelector, "selector", crawl.DefaultContentSelector, "CSS selector scoping page content")
	crawlCmd.Flags().IntVar(&crawlWorkers, "concurrency", crawl.DefaultConcurrency, "page worker pool size")
	crawlCmd.Flags().Float64Var(&crawlRPS, "rps", 0, "request rate limit, 0 for unlimited")
	crawlCmd.Flags().BoolVar(&crawlAbsolute, "absolute-urls", false, "store absolute page URLs instead of paths")
	_ = crawlCmd.MarkFlagRequired("site")

	indexCmd.Flags().StringVar(&indexData, "data", "data", "directory with crawled record files")
	indexCmd.Flags().IntVar(&indexBatch, "batch", 0, "embedding batch size, 0 for default")

	searchCmd.Flags().StringVar(&searchSection, "section", "", "path-hierarchy section scope")

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	fmt.Printf("Discovering URLs for %s...\n", crawlSite)
	sitemap := crawl.NewSitemap(nil)
	urls, err := sitemap.DiscoverURLs(ctx, crawlSite, crawlSitemap)
	if err != nil {
		return fmt.Errorf("sitemap discovery failed: %w", err)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no page URLs found for %s", crawlSite)
	}
	fmt.Printf("Found %d pages\n", len(urls))

	if err := os.MkdirAll(crawlOut, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	linesOut, err := os.Create(filepath.Join(crawlOut, indexer.LinesFile))
	if err != nil {
		return err
	}
	defer linesOut.Close()
	sectionsOut, err := os.Create(filepath.Join(crawlOut, indexer.SectionsFile))
	if err != nil {
		return err
	}
	defer sectionsOut.Close()
	sectionLinesOut, err := os.Create(filepath.Join(crawlOut, indexer.SectionLinesFile))
	if err != nil {
		return err
	}
	defer sectionLinesOut.Close()

	linesWriter := crawl.NewJSONLWriter(linesOut)
	sectionsWriter := crawl.NewJSONLWriter(sectionsOut)
	sectionLinesWriter := crawl.NewJSONLWriter(sectionLinesOut)

	crawler := &crawl.Crawler{
		Fetcher:         crawl.NewHTTPFetcher(),
		ContentSelector: crawlSelector,
		RelativeURLs:    !crawlAbsolute,
		Concurrency:     crawlWorkers,
		Logger:          slog.Default(),
	}
	if crawlRPS > 0 {
		crawler.Limiter = rate.NewLimiter(rate.Limit(crawlRPS), 1)
	}

	var writeErr error
	result, err := crawler.CrawlSite(ctx, urls, func(page crawl.PageResult) {
		for _, line := range page.Lines {
			if err := linesWriter.Write(line); err != nil {
				writeErr = err
				return
			}
		}
		for _, record := range page.Sections {
			if err := sectionsWriter.Write(record.Section); err != nil {
				writeErr = err
				return
			}
			for _, line := range record.Lines {
				if err := sectionLinesWriter.Write(line); err != nil {
					writeErr = err
					return
				}
			}
		}
	})
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	if writeErr != nil {
		return fmt.Errorf("write records: %w", writeErr)
	}
	for _, w := range []*crawl.JSONLWriter{linesWriter, sectionsWriter, sectionLinesWriter} {
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush records: %w", err)
		}
	}

	fmt.Println()
	fmt.Println("Crawl complete!")
	fmt.Printf("  Pages: %d (%d failed)\n", result.Pages, result.Failed)
	fmt.Printf("  Lines: %d\n", result.Lines)
	fmt.Printf("  Sections: %d\n", result.Sections)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	qdrantHost := getEnv("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", qdrantHost, qdrantPort)
	store, err := storage.NewStore(qdrantHost, qdrantPort)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, indexBatch)

	fmt.Printf("Indexing records from %s...\n", indexData)
	pipeline := indexer.NewPipeline(embedder, store, slog.Default())
	result, err := pipeline.IndexAll(ctx, indexData)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Index complete!")
	fmt.Printf("  Lines: %d\n", result.Lines)
	fmt.Printf("  Sections: %d\n", result.Sections)
	fmt.Printf("  Section lines: %d\n", result.SectionLines)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := storage.NewStore(getEnv("QDRANT_HOST", "localhost"), getEnvInt("QDRANT_PORT", 6334))
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)

	exact := search.NewExactMatcher(store, storage.LineCollection)
	semantic := search.NewSemanticMatcher(store, embedder, storage.LineCollection)
	searcher := search.NewHybridSearcher(exact, semantic, getEnvInt("SEARCH_LIMIT", search.DefaultBudget))

	hits, err := searcher.Search(ctx, args[0], searchSection)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, hit := range hits {
		if err := enc.Encode(hit); err != nil {
			return err
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

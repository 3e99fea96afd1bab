package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/embedding"
	"github.com/pable/go-subchurn/internal/keywords"
	"github.com/pable/go-subchurn/internal/parser"
	"github.com/pable/go-subchurn/internal/preprocess"
	"github.com/pable/go-subchurn/internal/report"
	"github.com/pable/go-subchurn/internal/search"
	"github.com/pable/go-subchurn/internal/storage"
)

// Corpus flags, shared by search, span, shell and analyze search.
var (
	corpusMerge    bool
	corpusMergeGap float64
	corpusSplit    bool
	keywordsPath   string
	embedderName   string
)

// Scoring flags.
var (
	searchTopK       int
	semanticWeight   float64
	directWeight     float64
	productWeight    float64
	normalizeWeights bool
	searchContext    int
)

var searchCmd = &cobra.Command{
	Use:   "search <subtitles> <query...>",
	Short: "Rank subtitle segments against a query",
	Long: `Rank the segments of a transcript (subtitle JSON or .srt, optionally .gz/.zst)
by a weighted blend of semantic similarity, direct text match and product-keyword
density. With --context N, each hit is printed with N neighbouring segments.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	addCorpusFlags(searchCmd)
	addWeightFlags(searchCmd)
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 5, "number of results")
	searchCmd.Flags().IntVar(&searchContext, "context", 0, "neighbouring segments to show on each side of a hit")
}

func addCorpusFlags(c *cobra.Command) {
	c.Flags().BoolVar(&corpusMerge, "merge", false, "merge temporally adjacent subtitle entries first")
	c.Flags().Float64Var(&corpusMergeGap, "merge-gap", 1.0, "max gap in seconds between entries merged by --merge")
	c.Flags().BoolVar(&corpusSplit, "split", false, "index one segment per sentence")
	c.Flags().StringVar(&keywordsPath, "keywords", "", "YAML keyword dictionary (default $KEYWORDS_FILE or built-in)")
	c.Flags().StringVar(&embedderName, "embedder", "", "embedding backend: hash or openai (default $EMBEDDING_BACKEND)")
}

func addWeightFlags(c *cobra.Command) {
	d := search.DefaultWeights()
	c.Flags().Float64Var(&semanticWeight, "semantic-weight", d.Semantic, "weight of the semantic score")
	c.Flags().Float64Var(&directWeight, "direct-weight", d.Direct, "weight of the direct-match score")
	c.Flags().Float64Var(&productWeight, "product-weight", d.Product, "weight of the product-keyword score")
	c.Flags().BoolVar(&normalizeWeights, "normalize-weights", false, "rescale the weights to sum to 1")
}

// flagWeights returns the weights selected on the command line.
func flagWeights() (search.Weights, error) {
	w := search.Weights{Semantic: semanticWeight, Direct: directWeight, Product: productWeight}
	if err := w.Validate(); err != nil {
		return search.Weights{}, err
	}
	if normalizeWeights {
		w = w.Normalized()
	}
	return w, nil
}

// corpus is a built index plus the store backing its embedding cache.
type corpus struct {
	index *search.Index
	db    *storage.DB
	name  string
}

func (c *corpus) Close() error { return c.db.Close() }

// loadCorpus parses a transcript, segments it and builds a search index.
func loadCorpus(ctx context.Context, path string) (*corpus, error) {
	doc, err := parser.ParseSubtitles(path)
	if err != nil {
		return nil, fmt.Errorf("parse subtitles: %w", err)
	}
	segs := preprocess.Segments(*doc, preprocess.Options{
		Merge:  corpusMerge,
		MaxGap: corpusMergeGap,
		Split:  corpusSplit,
	})
	logger.Debug("transcript segmented", "entries", len(doc.Entries), "segments", len(segs))

	matcher, err := loadMatcher()
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	emb, err := newEmbedder(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	idx := search.NewIndex(search.IndexParams{Embedder: emb, Matcher: matcher, Logger: logger})
	if err := idx.Build(ctx, segs); err != nil {
		db.Close()
		return nil, err
	}
	name := doc.VideoID
	if name == "" {
		name = path
	}
	return &corpus{index: idx, db: db, name: name}, nil
}

func loadMatcher() (*keywords.Matcher, error) {
	path := keywordsPath
	if path == "" {
		path = cfg.KeywordsFile
	}
	dict := keywords.Default()
	if path != "" {
		d, err := keywords.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load keywords: %w", err)
		}
		dict = d
	}
	m, err := keywords.NewMatcher(dict)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	return m, nil
}

func newEmbedder(store embedding.Store) (*embedding.Cached, error) {
	backend := embedderName
	if backend == "" {
		backend = cfg.EmbeddingBackend
	}
	return embedding.New(embedding.Config{
		Backend:    backend,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
		BatchSize:  cfg.EmbeddingBatchSize,
		CacheSize:  cfg.QueryCacheSize,
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Store:      store,
		Logger:     logger,
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	w, err := flagWeights()
	if err != nil {
		return err
	}
	query := strings.Join(args[1:], " ")

	c, err := loadCorpus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	if searchContext > 0 {
		windows, err := c.index.WithContext(cmd.Context(), query, w, searchTopK, searchContext)
		if err != nil {
			return searchError(err)
		}
		report.PrintContextWindows(os.Stdout, query, windows)
		return nil
	}

	results, err := c.index.Rank(cmd.Context(), query, w, searchTopK)
	if err != nil {
		return searchError(err)
	}
	report.PrintSearchResults(os.Stdout, query, results)
	return nil
}

// searchError turns the user-facing search failures into plain messages.
func searchError(err error) error {
	switch {
	case errors.Is(err, search.ErrEmptyCorpus):
		return errors.New("transcript has no searchable segments")
	case errors.Is(err, search.ErrEmptyQuery):
		return errors.New("query is empty after cleaning")
	}
	return fmt.Errorf("search: %w", err)
}

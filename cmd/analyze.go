package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/model"
	"github.com/pable/go-subchurn/internal/search"
	"github.com/pable/go-subchurn/internal/storage"
)

const analyzeSystemPrompt = `You are a data analyst for a small tool with two pipelines: subtitle search
over video transcripts, and player churn (retention) analysis for an online game.
You are given structured JSON computed by the tool and a question from the user.

Rules:
- Answer ONLY from the data provided. Never invent or estimate numbers.
- Always cite specific numbers or timestamps when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise and actionable.

Glossary:
- label: 1 if the player played again inside the observation window that follows
  their activation window (retained), 0 otherwise (churned).
- activation window: the first N days after a player's first match.
- winning_streak / losing_streak: longest run of consecutive wins / losses.
- semantic: cosine similarity between query and segment embeddings.
- direct: 1.0 for a literal substring match, 0.9 ignoring spaces, else fuzzy ratio.
- product: product-keyword density relative to the densest segment.
- final: weighted sum of the three; it may exceed 1 when weights sum above 1.`

var (
	analyzeModel  string
	analyzeAPIKey string
	analyzeTopK   int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "AI-powered grounded analysis (requires ANTHROPIC_API_KEY)",
}

var analyzeChurnCmd = &cobra.Command{
	Use:   "churn <question>",
	Short: "Ask about retained vs churned players",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeChurn,
}

var analyzeSearchCmd = &cobra.Command{
	Use:   "search <subtitles> <query> <question>",
	Short: "Ask about the transcript segments matching a query",
	Args:  cobra.ExactArgs(3),
	RunE:  runAnalyzeSearch,
}

func init() {
	analyzeCmd.PersistentFlags().StringVar(&analyzeModel, "model", "", "Anthropic model to use (default $ANALYZE_MODEL)")
	analyzeCmd.PersistentFlags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")

	addWindowFlags(analyzeChurnCmd)

	addCorpusFlags(analyzeSearchCmd)
	addWeightFlags(analyzeSearchCmd)
	analyzeSearchCmd.Flags().IntVarP(&analyzeTopK, "top-k", "k", 10, "number of ranked segments to send")
	analyzeSearchCmd.Flags().Float64Var(&spanThreshold, "threshold", 0.5, "span threshold")
	analyzeSearchCmd.Flags().Float64Var(&spanMaxGap, "max-gap", 2.0, "span max gap in seconds")

	analyzeCmd.AddCommand(analyzeChurnCmd)
	analyzeCmd.AddCommand(analyzeSearchCmd)
}

func runAnalyzeChurn(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	feats, err := loadFeatures(db)
	if err != nil {
		return err
	}
	contextJSON, err := buildChurnContext(feats)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(cmd.Context(), contextJSON, args[0])
}

func runAnalyzeSearch(cmd *cobra.Command, args []string) error {
	w, err := flagWeights()
	if err != nil {
		return err
	}
	c, err := loadCorpus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	query := args[1]
	ranked, err := c.index.Rank(cmd.Context(), query, w, analyzeTopK)
	if err != nil {
		return searchError(err)
	}
	span, err := c.index.BestSpan(cmd.Context(), query, w, spanThreshold, spanMaxGap)
	if err != nil {
		return searchError(err)
	}
	contextJSON, err := buildSearchContext(c.name, query, w, ranked, span)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(cmd.Context(), contextJSON, args[2])
}

// labelGroup holds feature means over the players sharing one label.
type labelGroup struct {
	Players       int     `json:"players"`
	Matches       float64 `json:"avg_matches"`
	Score         float64 `json:"avg_score"`
	Points        float64 `json:"avg_points"`
	Degree        float64 `json:"avg_degree"`
	WinRate       float64 `json:"avg_win_rate"`
	FlairPct      float64 `json:"flair_pct"`
	WinningStreak float64 `json:"avg_winning_streak"`
	LosingStreak  float64 `json:"avg_losing_streak"`
}

// buildChurnContext serialises label counts and per-label feature means.
func buildChurnContext(feats []model.PlayerFeatureRow) (string, error) {
	groups := map[int]*labelGroup{0: {}, 1: {}}
	for _, f := range feats {
		g, ok := groups[f.Label]
		if !ok {
			g = &labelGroup{}
			groups[f.Label] = g
		}
		g.Players++
		g.Matches += float64(f.Matches)
		g.Score += f.Score
		g.Points += f.Points
		g.Degree += f.Degree
		g.WinRate += f.Win
		g.FlairPct += float64(f.Flair)
		g.WinningStreak += float64(f.WinningStreak)
		g.LosingStreak += float64(f.LosingStreak)
	}
	for _, g := range groups {
		if g.Players == 0 {
			continue
		}
		n := float64(g.Players)
		g.Matches = round2(g.Matches / n)
		g.Score = round2(g.Score / n)
		g.Points = round2(g.Points / n)
		g.Degree = round2(g.Degree / n)
		g.WinRate = round2(g.WinRate / n)
		g.FlairPct = round2(100 * g.FlairPct / n)
		g.WinningStreak = round2(g.WinningStreak / n)
		g.LosingStreak = round2(g.LosingStreak / n)
	}

	doc := map[string]interface{}{
		"subject": "churn",
		"windows": map[string]interface{}{
			"activation_days":  activationDays,
			"observation_days": observationDays,
			"activation_only":  activationOnly,
		},
		"players":  len(feats),
		"retained": groups[1],
		"churned":  groups[0],
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

// buildSearchContext serialises ranked hits and the best span for one query.
func buildSearchContext(source, query string, w search.Weights, ranked []model.ScoredSegment, span model.Span) (string, error) {
	type hit struct {
		Start    float64 `json:"start"`
		End      float64 `json:"end"`
		Text     string  `json:"text"`
		Final    float64 `json:"final"`
		Semantic float64 `json:"semantic"`
		Direct   float64 `json:"direct"`
		Product  float64 `json:"product"`
	}
	hits := make([]hit, 0, len(ranked))
	for _, r := range ranked {
		hits = append(hits, hit{
			Start:    round2(r.Start),
			End:      round2(r.End()),
			Text:     r.OriginalText,
			Final:    round2(r.FinalSimilarity),
			Semantic: round2(r.SemanticSimilarity),
			Direct:   round2(r.DirectScore),
			Product:  round2(r.ProductScore),
		})
	}

	doc := map[string]interface{}{
		"subject": "search",
		"source":  source,
		"query":   query,
		"weights": map[string]float64{"semantic": w.Semantic, "direct": w.Direct, "product": w.Product},
		"results": hits,
		"best_span": map[string]interface{}{
			"start":      round2(span.Start),
			"end":        round2(span.End()),
			"text":       span.Text,
			"similarity": round2(span.Similarity),
		},
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

// round2 rounds a float64 to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, dataJSON, question string) error {
	apiKey := analyzeAPIKey
	if apiKey == "" {
		apiKey = cfg.AnthropicAPIKey
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}
	modelID := analyzeModel
	if modelID == "" {
		modelID = cfg.AnalyzeModel
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)
	logger.Debug("calling anthropic", "model", modelID, "context_bytes", len(dataJSON))

	fmt.Fprintln(os.Stdout, "\n─── AI Analysis ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed, check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}

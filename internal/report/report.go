package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-subchurn/internal/classify"
	"github.com/pable/go-subchurn/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// FormatTimestamp renders seconds as m:ss.s (or h:mm:ss.s past an hour).
func FormatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	h := int(sec) / 3600
	m := (int(sec) % 3600) / 60
	s := sec - float64(h*3600+m*60)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%04.1f", h, m, s)
	}
	return fmt.Sprintf("%d:%04.1f", m, s)
}

// truncate shortens s to n runes, marking the cut with "…".
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ---- Pipeline A ----

// PrintSearchResults prints ranked segments with their score breakdown.
func PrintSearchResults(w io.Writer, query string, results []model.ScoredSegment) {
	fmt.Fprintf(w, "\nQuery: %q  |  %d result(s)\n\n", query, len(results))
	if len(results) == 0 {
		return
	}
	table := newTable(w)
	table.Header("#", "TIME", "FINAL", "SEMANTIC", "DIRECT", "PRODUCT", "KW", "TEXT")
	for i, r := range results {
		table.Append(
			strconv.Itoa(i+1),
			FormatTimestamp(r.Start),
			fmt.Sprintf("%.3f", r.FinalSimilarity),
			fmt.Sprintf("%.3f", r.SemanticSimilarity),
			fmt.Sprintf("%.2f", r.DirectScore),
			fmt.Sprintf("%.2f", r.ProductScore),
			strconv.Itoa(r.ProductKeywordCount),
			truncate(r.OriginalText, 60),
		)
	}
	table.Render()
}

// PrintContextWindows prints each result with its neighbouring segments.
// The matched segment is marked with ">".
func PrintContextWindows(w io.Writer, query string, windows []model.ContextWindow) {
	fmt.Fprintf(w, "\nQuery: %q  |  %d result(s)\n", query, len(windows))
	for i, cw := range windows {
		fmt.Fprintf(w, "\n--- #%d  final %.3f  (semantic %.3f, direct %.2f, product %.2f) ---\n\n",
			i+1, cw.Main.FinalSimilarity, cw.Main.SemanticSimilarity, cw.Main.DirectScore, cw.Main.ProductScore)
		table := newTable(w)
		table.Header(" ", "TIME", "TEXT")
		for _, s := range cw.Before {
			table.Append(" ", FormatTimestamp(s.Start), truncate(s.OriginalText, 80))
		}
		table.Append(">", FormatTimestamp(cw.Main.Start), truncate(cw.Main.OriginalText, 80))
		for _, s := range cw.After {
			table.Append(" ", FormatTimestamp(s.Start), truncate(s.OriginalText, 80))
		}
		table.Render()
	}
}

// PrintSpan prints the best contiguous span.
func PrintSpan(w io.Writer, query string, span model.Span) {
	fmt.Fprintf(w, "\nQuery: %q\n", query)
	fmt.Fprintf(w, "Span : %s → %s  (%.1fs, segments %d–%d, best %.3f)\n\n",
		FormatTimestamp(span.Start), FormatTimestamp(span.End()), span.Duration,
		span.FirstIndex, span.LastIndex, span.Similarity)
	fmt.Fprintln(w, span.Text)
}

// ---- Pipeline B ----

// PrintFeatures prints the per-player feature table.
func PrintFeatures(w io.Writer, rows []model.PlayerFeatureRow) {
	table := newTable(w)
	table.Header("NAME", "MATCHES", "SCORE", "POINTS", "DEGREE", "FLAIR", "WIN%", "W", "L", "W_STREAK", "L_STREAK", "LABEL")
	for _, r := range rows {
		table.Append(
			r.Name,
			strconv.Itoa(r.Matches),
			fmt.Sprintf("%.2f", r.Score),
			fmt.Sprintf("%.2f", r.Points),
			fmt.Sprintf("%.2f", r.Degree),
			strconv.Itoa(r.Flair),
			fmt.Sprintf("%.0f%%", 100*r.Win),
			strconv.Itoa(r.WinCount),
			strconv.Itoa(r.LoseCount),
			strconv.Itoa(r.WinningStreak),
			strconv.Itoa(r.LosingStreak),
			strconv.Itoa(r.Label),
		)
	}
	table.Render()

	retained := 0
	for _, r := range rows {
		retained += r.Label
	}
	if len(rows) > 0 {
		fmt.Fprintf(w, "\n%d players, %d retained (%.0f%%)\n", len(rows), retained, 100*float64(retained)/float64(len(rows)))
	}
}

// PrintPlayerHistory prints one player's labelled rows with running streaks.
func PrintPlayerHistory(w io.Writer, rows []model.LabeledRow) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\nPlayer: %s  |  First login: %s  |  Label: %d\n\n",
		rows[0].Name, rows[0].FirstLogin.Format("2006-01-02 15:04"), rows[0].Label)
	table := newTable(w)
	table.Header("DATE", "MATCH", "TEAM", "RESULT", "SCORE", "POINTS", "DEGREE", "W_STREAK", "L_STREAK", "PHASE")
	for _, r := range rows {
		result := "L"
		if r.Win != 0 {
			result = "W"
		}
		table.Append(
			r.Date.Format("2006-01-02 15:04"),
			r.MatchID,
			r.Team.String(),
			result,
			fmt.Sprintf("%.0f", r.Score),
			fmt.Sprintf("%.0f", r.Points),
			fmt.Sprintf("%.1f", r.Degree),
			strconv.Itoa(r.WinStreak),
			strconv.Itoa(r.LoseStreak),
			r.Phase.String(),
		)
	}
	table.Render()
}

func sampleFlag(n int) string {
	switch {
	case n >= 50:
		return "OK"
	case n >= 20:
		return "LOW"
	default:
		return "VERY_LOW"
	}
}

// PrintClassificationReport prints accuracy plus per-class precision/recall/F1.
func PrintClassificationReport(w io.Writer, r classify.Report) {
	fmt.Fprintf(w, "\n=== %s ===  accuracy %.3f\n\n", r.Model, r.Accuracy)
	table := newTable(w)
	table.Header("CLASS", "PRECISION", "RECALL", "F1", "SUPPORT", "SAMPLE")
	for _, c := range r.Classes {
		table.Append(
			strconv.Itoa(c.Label),
			fmt.Sprintf("%.3f", c.Precision),
			fmt.Sprintf("%.3f", c.Recall),
			fmt.Sprintf("%.3f", c.F1),
			strconv.Itoa(c.Support),
			sampleFlag(c.Support),
		)
	}
	table.Append(
		"macro avg",
		fmt.Sprintf("%.3f", r.Macro.Precision),
		fmt.Sprintf("%.3f", r.Macro.Recall),
		fmt.Sprintf("%.3f", r.Macro.F1),
		strconv.Itoa(r.Macro.Support),
		sampleFlag(r.Macro.Support),
	)
	table.Render()
}

// PrintKSelection prints cross-validated accuracy per k, marking the chosen k.
func PrintKSelection(w io.Writer, scores []float64, best int) {
	fmt.Fprintf(w, "\n--- kNN: cross-validated accuracy by k ---\n\n")
	table := newTable(w)
	table.Header("K", "ACCURACY", " ")
	for i, s := range scores {
		marker := " "
		if i+1 == best {
			marker = "*"
		}
		table.Append(strconv.Itoa(i+1), fmt.Sprintf("%.3f", s), marker)
	}
	table.Render()
}

// ---- Store ----

// PrintImports prints the import history.
func PrintImports(w io.Writer, imports []model.ImportSummary) {
	table := newTable(w)
	table.Header("ID", "SOURCE", "IMPORTED", "MATCHES", "ROWS")
	for _, s := range imports {
		id := s.ID
		if len(id) > 8 {
			id = id[:8]
		}
		table.Append(id, s.Source, s.ImportedAt, strconv.Itoa(s.Matches), strconv.Itoa(s.Rows))
	}
	table.Render()
}

// PrintOverview prints store-wide counts and the most active players.
func PrintOverview(w io.Writer, ov model.DBOverview, players []model.PlayerActivity) {
	fmt.Fprintf(w, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(w, "  Imports        : %d\n", ov.Imports)
	fmt.Fprintf(w, "  Matches        : %d\n", ov.Matches)
	fmt.Fprintf(w, "  Player rows    : %d\n", ov.Rows)
	fmt.Fprintf(w, "  Players seen   : %d\n", ov.UniquePlayers)
	fmt.Fprintf(w, "  Date range     : %s → %s\n", ov.EarliestMatch, ov.LatestMatch)
	fmt.Fprintf(w, "  Cached vectors : %d\n", ov.Embeddings)

	if len(players) == 0 {
		return
	}
	fmt.Fprintf(w, "\n--- Most Active Players ---\n\n")
	table := newTable(w)
	table.Header("NAME", "MATCHES", "WIN%", "FIRST", "LAST")
	for _, p := range players {
		table.Append(p.Name, strconv.Itoa(p.Matches), fmt.Sprintf("%.0f%%", 100*p.WinRate), p.First, p.Last)
	}
	table.Render()
}

// PrintRaw prints column/row string data from an ad-hoc query.
func PrintRaw(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = strings.ToUpper(c)
	}
	table.Header(colsAny...)
	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
}

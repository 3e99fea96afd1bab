package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/report"
	"github.com/pable/go-subchurn/internal/search"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell <subtitles>",
	Short: "Start an interactive search session over one transcript",
	Long:  "Build the index once and run queries interactively. Type ':help' for available commands.",
	Args:  cobra.ExactArgs(1),
	RunE:  runShell,
}

func init() {
	addCorpusFlags(shellCmd)
	addWeightFlags(shellCmd)
	shellCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 5, "number of results")
	shellCmd.Flags().IntVar(&searchContext, "context", 0, "neighbouring segments to show on each side of a hit")
	shellCmd.Flags().Float64Var(&spanThreshold, "threshold", 0.5, "span threshold used by :span")
	shellCmd.Flags().Float64Var(&spanMaxGap, "max-gap", 2.0, "span max gap used by :span")
}

// shellState is the mutable session configuration.
type shellState struct {
	k       int
	context int
	weights search.Weights
}

func runShell(cmd *cobra.Command, args []string) error {
	w, err := flagWeights()
	if err != nil {
		return err
	}
	c, err := loadCorpus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	st := &shellState{k: searchTopK, context: searchContext, weights: w}

	cGreeting.Printf("subchurn shell  |  %s  |  %d segments\n", c.name, c.index.Len())
	cMuted.Println("type a query, ':help' or ':quit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("subchurn")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ":") {
			shellQuery(cmd.Context(), c.index, st, line)
			continue
		}

		tokens := strings.Fields(line)
		name, rest := tokens[0], tokens[1:]
		switch name {
		case ":quit", ":exit", ":q":
			return nil
		case ":help":
			shellHelp()
		case ":k":
			st.k = shellInt(rest, st.k, "k")
		case ":context":
			st.context = shellInt(rest, st.context, "context")
		case ":weights":
			shellWeights(st, rest)
		case ":span":
			if len(rest) == 0 {
				cError.Fprintln(os.Stderr, "usage: :span <query>")
				continue
			}
			query := strings.Join(rest, " ")
			span, err := c.index.BestSpan(cmd.Context(), query, st.weights, spanThreshold, spanMaxGap)
			if err != nil {
				cError.Fprintf(os.Stderr, "error: %v\n", searchError(err))
				continue
			}
			report.PrintSpan(os.Stdout, query, span)
			fmt.Println()
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type ':help'\n", name)
		}
	}
	return scanner.Err()
}

func shellQuery(ctx context.Context, idx *search.Index, st *shellState, query string) {
	if st.context > 0 {
		windows, err := idx.WithContext(ctx, query, st.weights, st.k, st.context)
		if err != nil {
			cError.Fprintf(os.Stderr, "error: %v\n", searchError(err))
			return
		}
		report.PrintContextWindows(os.Stdout, query, windows)
	} else {
		results, err := idx.Rank(ctx, query, st.weights, st.k)
		if err != nil {
			cError.Fprintf(os.Stderr, "error: %v\n", searchError(err))
			return
		}
		report.PrintSearchResults(os.Stdout, query, results)
	}
	fmt.Println()
}

// shellInt parses a single non-negative integer argument, keeping cur on error.
func shellInt(args []string, cur int, name string) int {
	if len(args) == 0 {
		cMuted.Printf("%s = %d\n", name, cur)
		return cur
	}
	v, err := strconv.Atoi(args[0])
	if err != nil || v < 0 {
		cWarn.Fprintf(os.Stderr, "invalid %s %q, keeping %d\n", name, args[0], cur)
		return cur
	}
	cMuted.Printf("%s = %d\n", name, v)
	return v
}

// shellWeights sets the weights from three values. Any invalid value falls
// back to the default weights.
func shellWeights(st *shellState, args []string) {
	if len(args) == 0 {
		cMuted.Println(st.weights.String())
		return
	}
	if len(args) != 3 {
		cError.Fprintln(os.Stderr, "usage: :weights <semantic> <direct> <product>")
		return
	}
	var vals [3]float64
	for i, a := range args {
		v, err := search.ParseWeight(a)
		if err != nil {
			st.weights = search.DefaultWeights()
			cWarn.Fprintf(os.Stderr, "%v, using defaults (%s)\n", err, st.weights)
			return
		}
		vals[i] = v
	}
	st.weights = search.Weights{Semantic: vals[0], Direct: vals[1], Product: vals[2]}
	if normalizeWeights {
		st.weights = st.weights.Normalized()
	}
	cMuted.Println(st.weights.String())
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"<query>", "rank segments for the query"},
		{":k [n]", "show or set the number of results"},
		{":context [n]", "show or set neighbours shown around each hit (0 = off)"},
		{":weights [s d p]", "show or set semantic/direct/product weights"},
		{":span <query>", "best contiguous span for the query"},
		{":help", "show this message"},
		{":quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-22s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/report"
)

var (
	spanThreshold float64
	spanMaxGap    float64
)

var spanCmd = &cobra.Command{
	Use:   "span <subtitles> <query...>",
	Short: "Find the best contiguous span of segments for a query",
	Long: `Score every segment, then grow a span around the best one while neighbours
stay above --threshold and are no more than --max-gap seconds apart.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSpan,
}

func init() {
	addCorpusFlags(spanCmd)
	addWeightFlags(spanCmd)
	spanCmd.Flags().Float64Var(&spanThreshold, "threshold", 0.5, "minimum final score for a neighbour to join the span")
	spanCmd.Flags().Float64Var(&spanMaxGap, "max-gap", 2.0, "maximum silence in seconds between joined segments")
}

func runSpan(cmd *cobra.Command, args []string) error {
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

	span, err := c.index.BestSpan(cmd.Context(), query, w, spanThreshold, spanMaxGap)
	if err != nil {
		return searchError(err)
	}
	report.PrintSpan(os.Stdout, query, span)
	return nil
}

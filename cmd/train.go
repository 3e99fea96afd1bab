package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-subchurn/internal/classify"
	"github.com/pable/go-subchurn/internal/report"
	"github.com/pable/go-subchurn/internal/storage"
)

var (
	trainModels   []string
	trainTestSize float64
	trainSeed     uint64
	trainMaxK     int
	trainFolds    int
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and evaluate churn classifiers on the feature table",
	Long: `Split the feature table into train/test sets, fit each selected model and
print accuracy with per-class precision, recall and F1. For knn, k is chosen by
cross-validated accuracy over 1..--max-k.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	addWindowFlags(trainCmd)
	trainCmd.Flags().StringSliceVar(&trainModels, "models", []string{"knn", "rf", "nb", "svm"}, "models to train: knn, rf, nb, svm")
	trainCmd.Flags().Float64Var(&trainTestSize, "test-size", 0.3, "fraction of players held out for evaluation")
	trainCmd.Flags().Uint64Var(&trainSeed, "seed", 4, "random seed for the split and seeded models")
	trainCmd.Flags().IntVar(&trainMaxK, "max-k", 16, "largest k tried for knn")
	trainCmd.Flags().IntVar(&trainFolds, "folds", 7, "cross-validation folds for knn k selection")
}

func runTrain(cmd *cobra.Command, args []string) error {
	if trainTestSize <= 0 || trainTestSize >= 1 {
		return fmt.Errorf("--test-size must be in (0, 1), got %v", trainTestSize)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	feats, err := loadFeatures(db)
	if err != nil {
		return err
	}
	ds := classify.FromFeatures(feats)
	train, test, err := classify.Split(ds, trainTestSize, trainSeed)
	if err != nil {
		return fmt.Errorf("split dataset: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n%d players  |  train %d  |  test %d  |  features: %s\n",
		ds.Len(), train.Len(), test.Len(), strings.Join(ds.Columns, ", "))

	for _, name := range trainModels {
		name = strings.ToLower(strings.TrimSpace(name))
		c, err := classify.New(name, trainSeed)
		if err != nil {
			return err
		}
		if knn, ok := c.(*classify.KNN); ok {
			best, scores, err := classify.SelectK(train.X, train.Y, trainMaxK, trainFolds)
			if err != nil {
				return fmt.Errorf("select k: %w", err)
			}
			report.PrintKSelection(os.Stdout, scores, best)
			knn.K = best
		}

		r, err := classify.TrainEvaluate(c, train, test)
		if err != nil {
			return fmt.Errorf("train %s: %w", name, err)
		}
		logger.Info("model evaluated", "model", r.Model, "accuracy", r.Accuracy)
		report.PrintClassificationReport(os.Stdout, r)
	}
	return nil
}

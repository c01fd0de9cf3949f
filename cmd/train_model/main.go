package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lungsurv/config"
	"lungsurv/logging"
	"lungsurv/ml"
	"lungsurv/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		labelColumn string
		modelPath   string
		encoding    string
		maxDepth    int
		testRatio   float64
	)
	cmd := &cobra.Command{
		Use:          "train-model <csv-path>",
		Short:        "Fit a decision tree on the preprocessed export and write a model artifact",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Must(config.Default().Log)
			defer logger.Sync()

			table, err := pipeline.ReadCSV(args[0], encoding)
			if err != nil {
				return err
			}
			names := ml.FeatureNames()
			rows, labels, err := buildTrainingData(table, names, labelColumn)
			if err != nil {
				return err
			}

			trainX, trainY, testX, testY := splitDataset(rows, labels, testRatio)
			model, err := ml.TrainDecisionTree(trainX, trainY, maxDepth)
			if err != nil {
				return fmt.Errorf("train: %w", err)
			}

			predicted := make([]float64, len(testX))
			for i, row := range testX {
				if predicted[i], err = model.Classify(row); err != nil {
					return err
				}
			}
			m := ml.Evaluate(predicted, testY)
			logger.Info("model evaluated",
				zap.Int("train_rows", len(trainX)),
				zap.Int("test_rows", m.Samples),
				zap.Int("nodes", len(model.Nodes)),
				zap.Float64("accuracy", m.Accuracy),
				zap.Float64("precision", m.Precision),
				zap.Float64("recall", m.Recall))

			if dir := filepath.Dir(modelPath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create model dir: %w", err)
				}
			}
			if err := ml.SaveArtifact(modelPath, ml.TypeDecisionTree, names, model); err != nil {
				return fmt.Errorf("save model: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model saved to %s\n", modelPath)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&labelColumn, "label", "survived", "label column, 1 for survival")
	flags.StringVar(&modelPath, "model-path", "best_lung_cancer_model.json", "artifact output path")
	flags.StringVar(&encoding, "encoding", "utf-8", "csv character encoding")
	flags.IntVar(&maxDepth, "max-depth", 10, "max tree depth")
	flags.Float64Var(&testRatio, "test-ratio", 0.2, "share of rows held out for evaluation")
	return cmd
}

// buildTrainingData pulls the model columns and the label out of table.
func buildTrainingData(table *pipeline.Table, names []string, labelColumn string) ([][]float64, []float64, error) {
	index := make(map[string]int, len(table.Columns))
	for i, col := range table.Columns {
		index[col] = i
	}
	label, ok := index[labelColumn]
	if !ok {
		return nil, nil, fmt.Errorf("label column %q not found", labelColumn)
	}
	cols := make([]int, len(names))
	for i, name := range names {
		if cols[i], ok = index[name]; !ok {
			return nil, nil, fmt.Errorf("feature column %q not found", name)
		}
	}

	rows := make([][]float64, 0, len(table.Rows))
	labels := make([]float64, 0, len(table.Rows))
	for n, record := range table.Rows {
		row := make([]float64, len(cols))
		for i, c := range cols {
			v, err := cellValue(record[c])
			if err != nil {
				return nil, nil, fmt.Errorf("row %d column %s: %w", n+1, names[i], err)
			}
			row[i] = v
		}
		y, err := cellValue(record[label])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d label: %w", n+1, err)
		}
		rows = append(rows, row)
		labels = append(labels, y)
	}
	return rows, labels, nil
}

func cellValue(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	return strconv.ParseFloat(cell, 64)
}

func splitDataset(rows [][]float64, labels []float64, testRatio float64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	split := int(float64(len(rows)) * (1 - testRatio))
	return rows[:split], labels[:split], rows[split:], labels[split:]
}

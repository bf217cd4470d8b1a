package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"StockPredictor/internal/app"
	"StockPredictor/internal/config"
	"StockPredictor/internal/domain"
	"StockPredictor/internal/infrastructure/ann"
	"StockPredictor/internal/usecase"
)

func newRootCmd(cfg config.Config, application *app.Application, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "stockpredictor",
		Short:         "Train and serve a feed-forward regressor over tabular CSV data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newTrainCmd(cfg, application),
		newEvaluateCmd(application),
		newPredictCmd(application),
		newServeCmd(application, logger),
	)
	return root
}

func newTrainCmd(cfg config.Config, application *app.Application) *cobra.Command {
	var (
		dataPath  string
		modelPath string
		epochs    int
		batchSize int
		testSplit float64
		features  string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model from a CSV file and optionally save the artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(dataPath)
			if err != nil {
				return fmt.Errorf("open data file: %w", err)
			}
			defer file.Close()

			handle, summary, err := application.Workbench().Train(cmd.Context(), file,
				usecase.TrainOptions{Epochs: epochs, BatchSize: batchSize, TestSplit: testSplit})
			if err != nil {
				return err
			}

			fmt.Printf("Evaluation Results - Loss: %.4f, MAE: %.4f\n",
				summary.Info.Loss, summary.Info.MAE)
			fmt.Printf("Model %s trained on %d samples (%d features), tested on %d\n",
				summary.Info.ID, summary.Info.TrainSamples,
				summary.Info.InputFeatures, summary.Info.TestSamples)
			printReport(summary)

			if modelPath != "" {
				if err := handle.Model.Save(modelPath); err != nil {
					return fmt.Errorf("save model: %w", err)
				}
				fmt.Printf("Model saved to %s\n", modelPath)
			}

			if features != "" {
				vector, err := parseFeatures(features)
				if err != nil {
					return err
				}
				pred, err := application.Workbench().Predict(cmd.Context(), handle, vector)
				if err != nil {
					return err
				}
				fmt.Printf("Predicted value: %.4f\n", pred)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "path to the CSV data file")
	cmd.Flags().StringVar(&modelPath, "model", cfg.Model.Path, "path to save the model artifact")
	cmd.Flags().IntVar(&epochs, "epochs", cfg.Training.Epochs, "number of training epochs")
	cmd.Flags().IntVar(&batchSize, "batch-size", cfg.Training.BatchSize, "batch size for training")
	cmd.Flags().Float64Var(&testSplit, "test-split", 1-cfg.Training.TrainSplit, "fraction of data held out for testing")
	cmd.Flags().StringVar(&features, "features", "", "comma-separated feature values for an ad-hoc prediction")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newEvaluateCmd(application *app.Application) *cobra.Command {
	var (
		dataPath  string
		modelPath string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a saved model against a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := loadHandle(modelPath)
			if err != nil {
				return err
			}

			file, err := os.Open(dataPath)
			if err != nil {
				return fmt.Errorf("open data file: %w", err)
			}
			defer file.Close()

			summary, err := application.Workbench().EvaluateCSV(cmd.Context(), handle, file)
			if err != nil {
				return err
			}
			fmt.Printf("Evaluation Results - Loss: %.4f, MAE: %.4f (%d samples)\n",
				summary.Loss, summary.MAE, summary.TestSamples)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "path to the CSV data file")
	cmd.Flags().StringVar(&modelPath, "model", "ann_model.json", "path to the model artifact")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newPredictCmd(application *app.Application) *cobra.Command {
	var (
		modelPath string
		features  string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict a single value from a saved model",
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := loadHandle(modelPath)
			if err != nil {
				return err
			}

			vector, err := parseFeatures(features)
			if err != nil {
				return err
			}

			pred, err := application.Workbench().Predict(cmd.Context(), handle, vector)
			if err != nil {
				return err
			}
			fmt.Printf("Predicted value: %.4f\n", pred)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "ann_model.json", "path to the model artifact")
	cmd.Flags().StringVar(&features, "features", "", "comma-separated feature values")
	_ = cmd.MarkFlagRequired("features")
	return cmd
}

func newServeCmd(application *app.Application, logger *slog.Logger) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting server", "addr", addr)
			return application.Serve(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to configuration)")
	return cmd
}

// loadHandle reconstructs a caller-owned model handle from an artifact file.
func loadHandle(path string) (*usecase.ModelHandle, error) {
	model, err := ann.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	handle := &usecase.ModelHandle{Model: model}
	handle.Info.ID = "loaded_" + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	handle.Info.InputFeatures = model.InputDim()
	return handle, nil
}

func parseFeatures(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	vector := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid feature value %q: %w", part, err)
		}
		vector = append(vector, v)
	}
	return vector, nil
}

// printReport surfaces what the sanitizer removed so CLI users see why the
// trained shape differs from the uploaded file.
func printReport(summary domain.TrainingSummary) {
	report := summary.Report
	if len(report.DroppedDateColumns) > 0 {
		fmt.Printf("Dropped date-like columns: %s\n", strings.Join(report.DroppedDateColumns, ", "))
	}
	if len(report.DroppedSparseColumns) > 0 {
		fmt.Printf("Dropped sparse columns: %s\n", strings.Join(report.DroppedSparseColumns, ", "))
	}
	if report.DroppedRows > 0 {
		fmt.Printf("Dropped %d rows with missing values\n", report.DroppedRows)
	}
	for _, warning := range report.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}
}

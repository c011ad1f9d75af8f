package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/khmer-text-classifier/internal/bootstrap"
	"github.com/kirillkom/khmer-text-classifier/internal/config"
	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
	"github.com/kirillkom/khmer-text-classifier/internal/core/ports"
	"github.com/kirillkom/khmer-text-classifier/internal/core/usecase"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/tabular"
)

func newRootCommand(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "classifyctl",
		Short:         "Offline tools for the Khmer text classifier",
		SilenceUsage:  true,
		SilenceErrors: false,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVarP(&cfg.ModelManifest, "manifest", "m", cfg.ModelManifest, "model manifest path")

	root.AddCommand(
		newPredictCommand(&cfg),
		newBatchCommand(&cfg),
		newReplayCommand(&cfg),
		newSchemaCommand(&cfg),
	)
	return root
}

func newPredictCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "predict [text...]",
		Short: "Print the top 3 categories for text given as arguments or on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(raw)
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("text content is required")
			}

			model, err := bootstrap.LoadModel(*cfg)
			if err != nil {
				return err
			}
			preds, err := model.Predict(text)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(preds)
		},
	}
}

func newBatchCommand(cfg *config.Config) *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Classify every row of a .xlsx or .csv file, one JSON line per row",
		Long: "Classify every row of a spreadsheet. Rows are printed as JSON lines followed by a summary line.\n" +
			"Without --persist nothing is written to the store.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			classifier, closeFn, err := batchClassifier(ctx, *cfg, persist)
			if err != nil {
				return err
			}
			defer closeFn()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()

			uc := usecase.NewBatchUseCase(classifier, nil, tabular.NewXLSXReader(), tabular.NewCSVReader())
			input, err := uc.OpenBatch(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			return runBatch(ctx, cmd.OutOrStdout(), uc, input)
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "store every prediction in the configured database")
	return cmd
}

func newReplayCommand(cfg *config.Config) *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:   "replay KEY",
		Short: "Classify an upload kept in UPLOAD_ARCHIVE_PATH again",
		Long: "Re-run a bulk upload archived by the API, addressed by its archive key.\n" +
			"Output matches the batch command. Without --persist nothing is written to the store.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.UploadArchivePath == "" {
				return errors.New("UPLOAD_ARCHIVE_PATH is not set")
			}
			archive, err := localfs.New(cfg.UploadArchivePath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			classifier, closeFn, err := batchClassifier(ctx, *cfg, persist)
			if err != nil {
				return err
			}
			defer closeFn()

			uc := usecase.NewBatchUseCase(classifier, archive, tabular.NewXLSXReader(), tabular.NewCSVReader())
			input, err := uc.OpenArchived(ctx, args[0])
			if err != nil {
				return err
			}
			return runBatch(ctx, cmd.OutOrStdout(), uc, input)
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "store every prediction in the configured database")
	return cmd
}

// runBatch prints one JSON line per row, then the summary without results.
func runBatch(ctx context.Context, w io.Writer, uc *usecase.BatchUseCase, input *domain.BatchInput) error {
	enc := json.NewEncoder(w)
	summary, err := uc.RunBatch(ctx, input, func(p domain.BatchProgress) {
		if err := enc.Encode(p.Result); err != nil {
			slog.Warn("batch_output_failed", "row", p.Result.Row, "error", err)
		}
	})
	if err != nil {
		return err
	}
	summary.Results = nil
	return enc.Encode(summary)
}

func batchClassifier(ctx context.Context, cfg config.Config, persist bool) (ports.TextClassifier, func(), error) {
	if persist {
		app, err := bootstrap.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return app.ClassifyUC, app.Close, nil
	}
	model, err := bootstrap.LoadModel(cfg)
	if err != nil {
		return nil, nil, err
	}
	return dryRunClassifier{predictor: model}, func() {}, nil
}

func newSchemaCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create tables, seed categories and install the history trigger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, closeDB, err := bootstrap.OpenStore(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.StoreDriver)
			return nil
		},
	}
}

// dryRunClassifier predicts without touching the store.
type dryRunClassifier struct {
	predictor ports.Predictor
}

func (c dryRunClassifier) ClassifyText(_ context.Context, text string) (*domain.ClassificationResult, error) {
	preds, err := c.predictor.Predict(text)
	if err != nil {
		return nil, err
	}
	return &domain.ClassificationResult{
		Status:          "success",
		PrimaryCategory: preds[0].CategoryName,
		TopPredictions:  preds,
	}, nil
}

func (c dryRunClassifier) ClassifyDocumentFile(context.Context, string, io.Reader) (*domain.ClassificationResult, error) {
	return nil, errors.New("document classification is not available offline")
}

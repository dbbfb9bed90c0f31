package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/adapters/history"
	"github.com/mikey/llm-support-triage/internal/adapters/intake"
	"github.com/mikey/llm-support-triage/internal/adapters/knowledge"
	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
	"github.com/mikey/llm-support-triage/internal/di"
	"github.com/mikey/llm-support-triage/internal/factory"
)

var (
	historyLimit int
	indexSeed    bool
)

// runCmd triages one RFC 5322 message
var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Triage a single email message",
	Long: `Parses one RFC 5322 message from a file (or stdin when no file is given)
and runs it through the pipeline.

Example:
  triage run message.eml
  cat message.eml | triage run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSingle,
}

// batchCmd triages JSON emails
var batchCmd = &cobra.Command{
	Use:   "batch [path]",
	Short: "Triage JSON emails from a file or directory",
	Long: `Loads emails from a JSON file or a directory of *.json files and processes
them in parallel. Each file holds one email object or an array of them, with
the fields id, subject, body and from. Defaults to intake.json.path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

// mboxCmd triages every message in an mbox file
var mboxCmd = &cobra.Command{
	Use:   "mbox <file>",
	Short: "Triage every message in an mbox file",
	Args:  cobra.ExactArgs(1),
	RunE:  runMbox,
}

// indexCmd adds documents to the knowledge base
var indexCmd = &cobra.Command{
	Use:   "index [files...]",
	Short: "Chunk, embed and store documents in the knowledge base",
	RunE:  runIndex,
}

// historyCmd prints a sender's interaction history
var historyCmd = &cobra.Command{
	Use:   "history <sender>",
	Short: "Show the recorded history for a sender",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

// invoke builds the CLI container and calls fn with its dependencies injected
func invoke(fn interface{}) error {
	if err := validateFormat(output); err != nil {
		return err
	}
	container, err := di.BuildCLIContainer(&opts)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	return container.Invoke(fn)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runSingle(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	fallbackID := "stdin"
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open message: %w", err)
		}
		defer f.Close()
		r = f
		fallbackID = filepath.Base(args[0])
	}

	raw, err := intake.ParseMessage(r, fallbackID)
	if err != nil {
		return err
	}

	return invoke(func(logger *zap.Logger, service *core.TriageService, store history.Store, retriever core.Retriever) error {
		defer logger.Sync()
		defer store.Close()
		defer closeRetriever(retriever)

		ctx, stop := signalContext()
		defer stop()

		result := service.Process(ctx, raw)
		return writeReport(cmd.OutOrStdout(), output, []core.PipelineResult{result})
	})
}

func runBatch(cmd *cobra.Command, args []string) error {
	return invoke(func(logger *zap.Logger, cfg *config.Config, service *core.TriageService, store history.Store, retriever core.Retriever) error {
		defer logger.Sync()
		defer store.Close()
		defer closeRetriever(retriever)

		path := cfg.GetIntake().JSONPath
		if len(args) == 1 {
			path = args[0]
		}
		emails, err := intake.LoadJSON(path)
		if err != nil {
			return err
		}
		if len(emails) == 0 {
			return fmt.Errorf("no emails found in %s", path)
		}
		logger.Info("Processing batch", zap.String("path", path), zap.Int("count", len(emails)))

		ctx, stop := signalContext()
		defer stop()

		return writeReport(cmd.OutOrStdout(), output, service.ProcessBatch(ctx, emails))
	})
}

func runMbox(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open mbox: %w", err)
	}
	defer f.Close()

	return invoke(func(logger *zap.Logger, service *core.TriageService, store history.Store, retriever core.Retriever) error {
		defer logger.Sync()
		defer store.Close()
		defer closeRetriever(retriever)

		emails, err := intake.ReadMbox(f, filepath.Base(args[0]), logger)
		if err != nil {
			return err
		}
		logger.Info("Processing mbox", zap.String("file", args[0]), zap.Int("count", len(emails)))

		ctx, stop := signalContext()
		defer stop()

		return writeReport(cmd.OutOrStdout(), output, service.ProcessBatch(ctx, emails))
	})
}

func runIndex(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !indexSeed {
		return fmt.Errorf("nothing to index: pass files or --seed")
	}

	return invoke(func(logger *zap.Logger, cfg *config.Config, f *factory.KnowledgeFactory) error {
		defer logger.Sync()

		store, err := f.CreateStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signalContext()
		defer stop()

		kc := cfg.GetKnowledge()
		if indexSeed {
			n, err := store.Add(ctx, "seed", knowledge.SeedDocuments)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed: %d chunks\n", n)
		}
		for _, path := range args {
			n, err := store.IndexFile(ctx, path, kc.ChunkSize, kc.ChunkOverlap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks\n", path, n)
		}

		total, err := store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "knowledge base holds %d chunks\n", total)
		return nil
	})
}

func runHistory(cmd *cobra.Command, args []string) error {
	sender, err := core.NormalizeAddress(args[0])
	if err != nil {
		return fmt.Errorf("sender %w", err)
	}

	return invoke(func(logger *zap.Logger, cfg *config.Config, store history.Store) error {
		defer logger.Sync()
		defer store.Close()

		limit := historyLimit
		if limit <= 0 {
			limit = cfg.GetHistory().Limit
		}

		entries, err := store.Fetch(cmd.Context(), sender, limit)
		if err != nil {
			return err
		}
		return writeHistory(cmd.OutOrStdout(), output, entries)
	})
}

// closeRetriever releases the knowledge base handle when one is open
func closeRetriever(r core.Retriever) {
	if closer, ok := r.(io.Closer); ok {
		_ = closer.Close()
	}
}

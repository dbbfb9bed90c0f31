package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/adapters/history"
	"github.com/mikey/llm-support-triage/internal/core"
	"github.com/mikey/llm-support-triage/internal/di"
	"github.com/mikey/llm-support-triage/internal/observability"
	"github.com/mikey/llm-support-triage/internal/ports"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	intake ports.EmailIntake,
	metrics *observability.Server,
	llmClient core.LLMClient,
	historyStore history.Store,
	retriever core.Retriever,
) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metrics != nil {
		metrics.Start()
	}

	// Start the intake
	if err := intake.Start(ctx); err != nil {
		logger.Error("Failed to start email intake", zap.Error(err))
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down...")

	// Stop the intake first; it lets emails already received finish
	if err := intake.Stop(); err != nil {
		logger.Error("Failed to stop email intake", zap.Error(err))
	}

	if metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metrics.Stop(shutdownCtx); err != nil {
			logger.Error("Failed to stop metrics server", zap.Error(err))
		}
		cancel()
	}

	// Close any resources that need closing
	closeResource(logger, "LLM client", llmClient)
	closeResource(logger, "knowledge base", retriever)
	closeResource(logger, "history store", historyStore)

	logger.Info("Shutdown complete")
	return nil
}

// closeResource closes r when it holds resources and logs any failure
func closeResource(logger *zap.Logger, name string, r interface{}) {
	closer, ok := r.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Error("Failed to close "+name, zap.Error(err))
	}
}

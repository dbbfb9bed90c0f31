package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/adapters/history"
	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
	"github.com/mikey/llm-support-triage/internal/factory"
	"github.com/mikey/llm-support-triage/internal/logging"
	"github.com/mikey/llm-support-triage/internal/observability"
	"github.com/mikey/llm-support-triage/internal/ports"
	"github.com/mikey/llm-support-triage/internal/utils"
)

// BuildContainer creates and configures a dependency injection container for the daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register email intake
	if err := container.Provide(factory.NewIntakeFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IntakeFactory) (ports.EmailIntake, error) {
		return f.CreateEmailIntake()
	}); err != nil {
		return nil, err
	}

	// Register metrics server
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *observability.Server {
		mc := cfg.GetMetrics()
		if !mc.Enabled {
			return nil
		}
		return observability.NewServer(mc.ListenAddress, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// providePipeline registers the factories and every component of the triage
// pipeline. It expects *config.Config and *zap.Logger to be provided.
func providePipeline(container *dig.Container) error {
	// Register factories
	for _, ctor := range []interface{}{
		factory.NewLLMFactory,
		factory.NewHistoryFactory,
		factory.NewKnowledgeFactory,
		factory.NewDownstreamFactory,
		factory.NewTextProcessorFactory,
		factory.NewPipelineFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	// Register LLM client and the gateway in front of it
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.PipelineFactory, client core.LLMClient) core.Completer {
		return f.CreateGateway(client)
	}); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register history store
	if err := container.Provide(func(f *factory.HistoryFactory) (history.Store, error) {
		return f.CreateHistoryStore()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(s history.Store) core.HistoryStore {
		return s
	}); err != nil {
		return err
	}

	// Register knowledge retriever and sender profiles
	if err := container.Provide(func(f *factory.KnowledgeFactory) (core.Retriever, error) {
		return f.CreateRetriever()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.DownstreamFactory) (core.ProfileDirectory, error) {
		return f.CreateProfileDirectory()
	}); err != nil {
		return err
	}

	// Register catalog and canned replies
	if err := container.Provide(func(f *factory.PipelineFactory) *core.CategoryCatalog {
		return f.CreateCatalog()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.PipelineFactory) (*core.FallbackPool, error) {
		return f.CreateFallbackPool()
	}); err != nil {
		return err
	}

	// Register pipeline stages
	if err := container.Provide(func(
		f *factory.PipelineFactory,
		completer core.Completer,
		catalog *core.CategoryCatalog,
		text *utils.TextProcessor,
	) *core.Classifier {
		return f.CreateClassifier(completer, catalog, text)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		f *factory.PipelineFactory,
		retriever core.Retriever,
		store core.HistoryStore,
		profiles core.ProfileDirectory,
	) *core.ContextAssembler {
		return f.CreateAssembler(retriever, store, profiles)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		f *factory.PipelineFactory,
		completer core.Completer,
		assembler *core.ContextAssembler,
		store core.HistoryStore,
		catalog *core.CategoryCatalog,
		fallbacks *core.FallbackPool,
		text *utils.TextProcessor,
	) *core.ResponseGenerator {
		return f.CreateGenerator(completer, assembler, store, catalog, fallbacks, text)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.DownstreamFactory) (*core.Dispatcher, error) {
		return f.CreateDispatcher()
	}); err != nil {
		return err
	}

	// Register triage service
	return container.Provide(func(
		f *factory.PipelineFactory,
		classifier *core.Classifier,
		generator *core.ResponseGenerator,
		dispatcher *core.Dispatcher,
	) *core.TriageService {
		return f.CreateService(classifier, generator, dispatcher)
	})
}

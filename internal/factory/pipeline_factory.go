package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
	"github.com/mikey/llm-support-triage/internal/utils"
)

// PipelineFactory creates the triage pipeline components from configuration
type PipelineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger) *PipelineFactory {
	return &PipelineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCatalog builds the category catalog with configured overrides
func (f *PipelineFactory) CreateCatalog() *core.CategoryCatalog {
	overrides := make(map[core.Category]core.CategoryDefinition)
	for name, cc := range f.cfg.GetCategories() {
		if c, ok := core.ParseCategory(name); ok {
			overrides[c] = core.CategoryDefinition{Definition: cc.Definition, Guidance: cc.Guidance}
		}
	}
	return core.NewCategoryCatalog(overrides)
}

// CreateFallbackPool builds the canned reply pool, overlaid with responses.fallback_dir
func (f *PipelineFactory) CreateFallbackPool() (*core.FallbackPool, error) {
	pool := core.NewFallbackPool()
	if dir := f.cfg.GetFallbackDir(); dir != "" {
		if err := pool.LoadDir(dir); err != nil {
			return nil, err
		}
		f.logger.Info("Loaded fallback responses", zap.String("dir", dir))
	}
	return pool, nil
}

// CreateGateway wraps the LLM client with retry, accounting and the optional breaker
func (f *PipelineFactory) CreateGateway(client core.LLMClient) *core.Gateway {
	lc := f.cfg.GetLLM()
	opts := core.DefaultGatewayOptions()
	opts.RetryDelay = lc.RetryDelay
	opts.CostPer1KTokens = lc.CostPer1KTokens
	opts.MaxTokens = lc.MaxTokens
	opts.BreakerEnabled = lc.BreakerEnabled
	if lc.BreakerFailures > 0 {
		opts.BreakerFailures = uint32(lc.BreakerFailures)
	}
	if lc.BreakerTimeout > 0 {
		opts.BreakerTimeout = lc.BreakerTimeout
	}
	return core.NewGateway(client, opts, f.logger.Named("gateway"))
}

// CreateClassifier creates the classifier
func (f *PipelineFactory) CreateClassifier(completer core.Completer, catalog *core.CategoryCatalog, text *utils.TextProcessor) *core.Classifier {
	lc := f.cfg.GetLLM()
	return core.NewClassifier(completer, catalog, text, core.ClassifierOptions{
		Temperature: lc.ClassifyTemperature,
		MaxRetries:  lc.MaxAttempts,
		Threshold:   f.cfg.GetPipeline().ConfidenceThreshold,
	}, f.logger.Named("classifier"))
}

// CreateAssembler creates the context assembler
func (f *PipelineFactory) CreateAssembler(retriever core.Retriever, history core.HistoryStore, profiles core.ProfileDirectory) *core.ContextAssembler {
	return core.NewContextAssembler(retriever, history, profiles, core.AssemblerOptions{
		TopK:         f.cfg.GetKnowledge().TopK,
		HistoryLimit: f.cfg.GetHistory().Limit,
	}, f.logger.Named("assembler"))
}

// CreateGenerator creates the response generator
func (f *PipelineFactory) CreateGenerator(
	completer core.Completer,
	assembler *core.ContextAssembler,
	history core.HistoryStore,
	catalog *core.CategoryCatalog,
	fallbacks *core.FallbackPool,
	text *utils.TextProcessor,
) *core.ResponseGenerator {
	lc := f.cfg.GetLLM()
	return core.NewResponseGenerator(completer, assembler, history, catalog, fallbacks, text, core.GeneratorOptions{
		Temperature: lc.RespondTemperature,
		MaxRetries:  lc.MaxAttempts,
	}, f.logger.Named("generator"))
}

// CreateService creates the triage service
func (f *PipelineFactory) CreateService(classifier *core.Classifier, generator *core.ResponseGenerator, dispatcher *core.Dispatcher) *core.TriageService {
	pc := f.cfg.GetPipeline()
	return core.NewTriageService(classifier, generator, dispatcher, core.ServiceOptions{
		Workers:      pc.Workers,
		EmailTimeout: pc.EmailTimeout,
	}, f.logger.Named("service"))
}

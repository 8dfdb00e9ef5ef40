package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"smartshop-be/internal/config"
	"smartshop-be/internal/model"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/internal/repository/contract"
	"smartshop-be/internal/repository/implementation"
	"smartshop-be/pkg/agent"
	"smartshop-be/pkg/agent/intent"
	"smartshop-be/pkg/agent/tools"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/commerce"
	"smartshop-be/pkg/database"
	"smartshop-be/pkg/embedding"
	"smartshop-be/pkg/embedding/jina"
	"smartshop-be/pkg/llm"
	"smartshop-be/pkg/llm/factory"
	"smartshop-be/pkg/retrieval"
	"smartshop-be/pkg/vectorstore"
	vsMemory "smartshop-be/pkg/vectorstore/memory"
	"smartshop-be/pkg/vectorstore/pgvector"
	"smartshop-be/pkg/vectorstore/qdrant"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const bootModule = "BOOTSTRAP"

// Core holds the conversational engine without any transport around it.
// The REST server and shopctl both start from here.
type Core struct {
	Config   *config.Config
	Logger   *logger.ZapLogger
	DB       *gorm.DB
	Redis    *redis.Client
	Catalog  catalog.Store
	Products contract.ProductRepository
	Embedder embedding.Provider
	Vectors  vectorstore.Store
	Engine   *retrieval.Engine
	LLM      llm.ChatProvider
	Router   *intent.Router
	Toolkit  *tools.Toolkit
}

// NewCore builds the engine. db may be nil unless the vector store or the
// catalog source needs postgres.
func NewCore(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logger.ZapLogger) (*Core, error) {
	c := &Core{Config: cfg, Logger: log, DB: db}

	if cfg.App.RedisURL != "" {
		c.Redis = newRedis(ctx, cfg.App.RedisURL, log)
	}

	store, err := c.buildCatalog()
	if err != nil {
		return nil, err
	}
	c.Catalog = store

	c.Embedder, err = buildEmbedder(cfg.Ai)
	if err != nil {
		return nil, err
	}
	if c.Redis != nil && cfg.Ai.EmbeddingCacheTTL > 0 {
		c.Embedder = embedding.NewCachedProvider(c.Embedder, c.Redis, cfg.Ai.EmbeddingCacheTTL)
	}
	log.Info(bootModule, "Embedding provider ready", map[string]interface{}{
		"provider": cfg.Ai.EmbeddingProvider,
		"name":     c.Embedder.Name(),
		"cached":   c.Redis != nil,
	})

	c.Vectors, err = c.buildVectorStore(ctx)
	if err != nil {
		return nil, err
	}

	c.Engine = retrieval.NewEngine(c.Embedder, c.Vectors, c.Catalog, log, retrieval.Config{
		TopK:               cfg.Retrieval.TopK,
		ScoreThreshold:     cfg.Retrieval.ScoreThreshold,
		NameFuzzThreshold:  cfg.Retrieval.NameFuzzThreshold,
		ChunkFuzzThreshold: cfg.Retrieval.ChunkFuzzThreshold,
		EmbedTimeout:       cfg.Ai.EmbeddingTimeout,
		QueryTimeout:       cfg.Retrieval.QueryTimeout,
	})

	c.LLM, err = c.BuildChatProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	log.Info(bootModule, "LLM provider ready", map[string]interface{}{
		"provider":       c.LLM.Name(),
		"model":          cfg.Ai.LLMModel,
		"supports_tools": c.LLM.SupportsTools(),
	})

	c.Router = intent.NewRouter(c.LLM, log)
	c.Toolkit = tools.NewToolkit(c.Engine, commerce.ContactCard{
		Name:     cfg.Contact.Name,
		Phone:    cfg.Contact.Phone,
		WhatsApp: cfg.Contact.WhatsApp,
		Email:    cfg.Contact.Email,
		Rating:   cfg.Contact.Rating,
	})
	return c, nil
}

// NewOrchestrator assembles the dialogue orchestrator over the core.
func (c *Core) NewOrchestrator(opts ...agent.Option) *agent.Orchestrator {
	return agent.New(c.LLM, c.Router, c.Toolkit, c.Logger, agent.Config{
		Temperature: c.Config.Ai.Temperature,
		LLMTimeout:  c.Config.Ai.LLMTimeout,
	}, opts...)
}

func (c *Core) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = c.Logger.Sync()
}

func (c *Core) buildCatalog() (catalog.Store, error) {
	cfg := c.Config.Retrieval
	if cfg.CatalogSource == "database" {
		if c.DB == nil {
			return nil, errors.New("CATALOG_SOURCE=database requires DB_CONNECTION_STRING")
		}
		if err := c.DB.AutoMigrate(&model.Product{}); err != nil {
			return nil, fmt.Errorf("migrate products: %w", err)
		}
		c.Products = implementation.NewProductRepository(c.DB)
		c.Logger.Info(bootModule, "Catalog loaded from postgres", nil)
		return implementation.NewProductCatalog(c.Products), nil
	}

	store, err := catalog.NewFileStore(cfg.CatalogPath)
	if errors.Is(err, os.ErrNotExist) {
		c.Logger.Warn(bootModule, "Catalog file not found, starting with an empty catalog", map[string]interface{}{"path": cfg.CatalogPath})
		return catalog.NewStaticStore(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c.Logger.Info(bootModule, "Catalog loaded from file", map[string]interface{}{"path": cfg.CatalogPath})
	return store, nil
}

func buildEmbedder(cfg config.AIConfig) (embedding.Provider, error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		baseURL := cfg.EmbeddingBaseURL
		if baseURL == "" {
			baseURL = cfg.OllamaBaseURL
		}
		return embedding.NewOllamaProvider(baseURL, cfg.EmbeddingModel), nil
	case "jina":
		if cfg.EmbeddingAPIKey == "" {
			return nil, errors.New("jina embeddings require EMBEDDING_API_KEY")
		}
		return jina.NewJinaProvider(cfg.EmbeddingAPIKey, cfg.EmbeddingModel), nil
	case "openai":
		key := cfg.EmbeddingAPIKey
		if key == "" {
			key = cfg.OpenAIAPIKey
		}
		return embedding.NewOpenAIProvider(cfg.EmbeddingBaseURL, key, cfg.EmbeddingModel), nil
	case "gemini":
		if cfg.EmbeddingAPIKey == "" {
			return nil, errors.New("gemini embeddings require EMBEDDING_API_KEY")
		}
		return embedding.NewGeminiProvider(cfg.EmbeddingAPIKey, cfg.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

func (c *Core) buildVectorStore(ctx context.Context) (vectorstore.Store, error) {
	cfg := c.Config.Retrieval
	switch cfg.VectorStore {
	case "", "memory":
		return vsMemory.New(), nil
	case "pgvector":
		if c.DB == nil {
			return nil, errors.New("VECTOR_STORE=pgvector requires DB_CONNECTION_STRING")
		}
		if err := database.EnableVector(c.DB); err != nil {
			return nil, err
		}
		s := pgvector.New(c.DB)
		if err := s.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate pgvector: %w", err)
		}
		return s, nil
	case "qdrant":
		s := qdrant.New(qdrant.Config{URL: cfg.QdrantURL, APIKey: cfg.QdrantAPIKey, Collection: cfg.QdrantCollection})
		if err := s.EnsureCollection(ctx, c.Config.Ai.EmbeddingDimension); err != nil {
			return nil, fmt.Errorf("qdrant collection: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.VectorStore)
	}
}

// BuildChatProvider creates a chat backend with the credentials configured
// for provider. It also serves runtime model switches.
func (c *Core) BuildChatProvider(provider, model string) (llm.ChatProvider, error) {
	return factory.NewChatProvider(provider, model, llmBaseURL(c.Config.Ai, provider), llmAPIKey(c.Config.Ai, provider))
}

func llmAPIKey(cfg config.AIConfig, provider string) string {
	switch provider {
	case "mistral":
		return cfg.MistralAPIKey
	case "groq":
		return cfg.GroqAPIKey
	case "openai":
		return cfg.OpenAIAPIKey
	case "huggingface":
		return cfg.HuggingFaceAPIKey
	default:
		return ""
	}
}

// llmBaseURL applies LLM_BASE_URL only to the provider it was configured for.
func llmBaseURL(cfg config.AIConfig, provider string) string {
	if cfg.LLMBaseURL != "" && provider == cfg.LLMProvider {
		return cfg.LLMBaseURL
	}
	if provider == "ollama" {
		return cfg.OllamaBaseURL
	}
	return ""
}

func newRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn(bootModule, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn(bootModule, "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	return rdb
}

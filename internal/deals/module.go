// Package deals provides the deal insights bounded context: health
// analytics, cached insights and recommendations, and communication
// summaries.
package deals

import (
	"crypto/tls"
	"fmt"
	"time"

	"deal_insights_backend/internal/adapters"
	"deal_insights_backend/internal/deals/featuregate"
	"deal_insights_backend/internal/deals/insights"
	"deal_insights_backend/internal/deals/ports"
	"deal_insights_backend/internal/deals/repository"
	"deal_insights_backend/internal/deals/snapshots"
	"deal_insights_backend/platform/ai/moonshot"
	"deal_insights_backend/platform/ai/textgen"
	"deal_insights_backend/platform/config"
	"deal_insights_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ModuleConfig is the configuration the deals module reads.
type ModuleConfig interface {
	config.RedisConfig
	config.TextGenerationConfig
	config.InsightsConfig
}

// Snapshot store backends.
const (
	SnapshotStorePostgres = "postgres"
	SnapshotStoreRedis    = "redis"
	SnapshotStoreMemory   = "memory"
)

const textGenerationTimeout = 45 * time.Second

// Module represents the deals domain module
type Module struct {
	repo          *repository.Repository
	service       *insights.Service
	snapshotStore ports.SnapshotStore
	redisClient   *redis.Client
}

// NewModule creates a new deals module with all dependencies wired
func NewModule(pool *pgxpool.Pool, cfg ModuleConfig, log *logger.Logger) (*Module, error) {
	insightsPolicy, err := insights.ParseFailurePolicy(cfg.GetInsightsFailurePolicy())
	if err != nil {
		return nil, err
	}

	m := &Module{repo: repository.New(pool)}

	switch cfg.GetInsightsSnapshotStore() {
	case SnapshotStorePostgres, "":
		m.snapshotStore = repository.NewSnapshotStore(pool)
	case SnapshotStoreRedis:
		client, err := newRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		m.redisClient = client
		m.snapshotStore = snapshots.NewRedisStore(client)
	case SnapshotStoreMemory:
		m.snapshotStore = snapshots.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown snapshot store %q", cfg.GetInsightsSnapshotStore())
	}

	var generator ports.TextGenerator
	if cfg.IsTextGenerationEnabled() {
		llm := moonshot.NewModel(moonshot.Config{
			APIKey:  cfg.GetMoonshotAPIKey(),
			BaseURL: cfg.GetMoonshotBaseURL(),
			Model:   cfg.GetMoonshotModel(),
			Timeout: textGenerationTimeout,
		})
		generator = adapters.NewTextGeneratorAdapter(textgen.New(llm))
	}

	gate := featuregate.New(cfg.GetAIInsightsEnabled(), m.repo.GetWorkspaceAISettings, log)

	m.service = insights.New(insights.Deps{
		Deals:      m.repo,
		Activities: m.repo,
		Snapshots:  m.snapshotStore,
		Generator:  generator,
		Gate:       gate,
		Log:        log,
	}, insights.Config{
		InsightsPolicy: insightsPolicy,
		SummaryPolicy:  insights.PolicyFallback,
		SnapshotTTL:    cfg.GetInsightsSnapshotTTL(),
	})

	log.Info("deals module initialized",
		"snapshotStore", cfg.GetInsightsSnapshotStore(),
		"textGeneration", generator != nil,
		"insightsFailurePolicy", insightsPolicy,
	)

	return m, nil
}

// Service returns the insights orchestrator for external use
func (m *Module) Service() *insights.Service {
	return m.service
}

// Repository returns the pgx-backed deal reader
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// PostgresSnapshots returns the Postgres snapshot store, or nil when
// snapshots live elsewhere.
func (m *Module) PostgresSnapshots() *repository.SnapshotStore {
	store, _ := m.snapshotStore.(*repository.SnapshotStore)
	return store
}

// Close releases connections the module opened itself.
func (m *Module) Close() error {
	if m.redisClient == nil {
		return nil
	}
	return m.redisClient.Close()
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

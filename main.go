package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	modelx "github.com/pattarawat/docassist/agent/agents/model"
	orchestratorx "github.com/pattarawat/docassist/agent/agents/orchestrator"
	auditx "github.com/pattarawat/docassist/agent/audit"
	catalogx "github.com/pattarawat/docassist/agent/catalog"
	contractx "github.com/pattarawat/docassist/agent/contract"
	llmx "github.com/pattarawat/docassist/agent/llm"
	statex "github.com/pattarawat/docassist/agent/state"
	configx "github.com/pattarawat/docassist/pkg/config"
	_ "github.com/pattarawat/docassist/pkg/logger/autoload"
	openrouterx "github.com/pattarawat/docassist/pkg/openrouter"
	serverx "github.com/pattarawat/docassist/server"
)

// AppConfig selects the storage backend and document source.
type AppConfig struct {
	StoreBackend string `envconfig:"STORE_BACKEND" split_words:"true" default:"sqlite"`
	SQLiteDSN    string `envconfig:"SQLITE_DSN" split_words:"true" default:"file:docassist.db?_fk=1"`
	DocDir       string `envconfig:"DOC_DIR" split_words:"true"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("APP")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	orchCfg := configx.MustNew[orchestratorx.Config]("ORCHESTRATOR")
	serverCfg := configx.MustNew[serverx.Config]("SERVER")

	catalog := buildCatalog(ctx, appCfg)
	store, audit := buildStore(ctx, appCfg)

	models, err := modelx.NewRegistry(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build model registry")
	}
	probeProvider(ctx, llmCfg)

	orch, err := orchestratorx.New(ctx, *orchCfg, store, models, catalog, audit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	srv := serverx.New(*serverCfg, orch)
	log.Info().Str("addr", serverCfg.Addr).Str("store", appCfg.StoreBackend).Msg("starting")
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// probeProvider verifies the OpenRouter credentials at startup so a bad key
// shows up in the logs instead of on the first user turn.
func probeProvider(ctx context.Context, cfg *llmx.Config) {
	client := openrouterx.NewClient(cfg.OpenRouterFor(contractx.RoleComposer))
	if client == nil {
		return
	}
	if _, err := client.Models.List(ctx); err != nil {
		log.Warn().Err(err).Msg("llm provider check failed")
		return
	}
	log.Info().Msg("llm provider reachable")
}

func buildCatalog(ctx context.Context, cfg *AppConfig) contractx.DocumentCatalog {
	if cfg.DocDir == "" {
		log.Info().Msg("using seeded document catalog")
		return catalogx.Seeded()
	}

	catalog, err := catalogx.NewFileCatalog(cfg.DocDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DocDir).Msg("failed to load document catalog")
	}
	if err := catalog.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("catalog hot reload unavailable")
	}
	return catalog
}

func buildStore(ctx context.Context, cfg *AppConfig) (statex.Store, contractx.AuditLog) {
	switch cfg.StoreBackend {
	case "upstash":
		redisCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH")
		store, err := statex.NewUpstashRedisStore(*redisCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build redis store")
		}
		// No shared SQL database on this backend; audit is disabled.
		return store, auditx.Noop{}
	default:
		store, err := statex.NewSQLiteStore(ctx, cfg.SQLiteDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build sqlite store")
		}
		audit, err := auditx.NewBunAuditLog(ctx, store.DB())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build audit log")
		}
		return store, audit
	}
}

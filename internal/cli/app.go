package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tatianab/clinical-sim/internal/config"
	"github.com/tatianab/clinical-sim/internal/engine"
	"github.com/tatianab/clinical-sim/internal/llm"
	"github.com/tatianab/clinical-sim/internal/quota"
	"github.com/tatianab/clinical-sim/internal/scenario"
	"github.com/tatianab/clinical-sim/internal/store"
	"github.com/tatianab/clinical-sim/internal/tutor"
)

// app is the fully wired service shared by serve, mcp and simulate.
type app struct {
	cfg    *config.Config
	store  *store.Store
	client llm.Client
	engine *engine.Engine
	tutor  *tutor.Service
	guard  *quota.Guard
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	client, err := llm.New(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create model client: %w", err)
	}

	log := logrus.StandardLogger()
	a := &app{
		cfg:    cfg,
		store:  st,
		client: client,
		engine: engine.NewEngine(st, scenario.NewGenerator(), client,
			engine.WithTemperature(cfg.SimTemperature),
			engine.WithLogger(log),
		),
		tutor: tutor.NewService(st, client,
			tutor.WithCacheTTL(cfg.CacheTTL),
			tutor.WithTemperatures(cfg.TutorTemperature, cfg.ProcedureTemperature),
			tutor.WithLogger(log),
		),
		guard: quota.NewGuard(st,
			quota.WithLimit(cfg.QuotaLimit),
			quota.WithWindow(cfg.QuotaWindow),
			quota.WithAllowlist(cfg.Allowlist),
		),
	}
	logrus.WithFields(logrus.Fields{
		"provider": cfg.LLMProvider,
		"model":    cfg.ModelName(),
		"db":       cfg.DBPath,
	}).Info("service ready")
	return a, nil
}

func (a *app) Close() error {
	return errors.Join(llm.Close(a.client), a.store.Close())
}

// openStore opens only the database, for commands that never call a model.
func openStore() (*store.Store, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}
	return store.NewStore(cfg.DBPath)
}

package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trialwatch/internal/config"
	"github.com/sells-group/trialwatch/internal/store"
	"github.com/sells-group/trialwatch/pkg/ctgov"
	"github.com/sells-group/trialwatch/pkg/pubmed"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "trialwatch.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initRegistry() ctgov.Client {
	return ctgov.NewClient(
		ctgov.WithBaseURL(cfg.CTGov.BaseURL),
		ctgov.WithUserAgent(cfg.CTGov.UserAgent),
		ctgov.WithPageDelay(time.Duration(cfg.CTGov.PageDelayMS)*time.Millisecond),
	)
}

func initPubMed() pubmed.Client {
	return pubmed.NewClient(
		pubmed.WithBaseURL(cfg.PubMed.BaseURL),
		pubmed.WithIdentity(cfg.PubMed.Tool, cfg.PubMed.Email),
		pubmed.WithDelay(time.Duration(cfg.PubMed.DelayMS)*time.Millisecond),
		pubmed.WithRetMax(cfg.PubMed.RetMax),
	)
}

// actionableWindow is the shared day-window for link selection and the
// digest query.
func actionableWindow(p config.PipelineConfig) store.Window {
	return store.Window{
		ReadoutDays: p.ReadoutWindowDays,
		RecentDays:  p.RecentlyCompletedDays,
	}
}

func loadTopics(names []string) ([]config.Topic, error) {
	topics, err := config.LoadTopics(cfg.Topics.Path)
	if err != nil {
		return nil, err
	}
	return config.SelectTopics(topics, names)
}

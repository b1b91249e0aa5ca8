package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/crmsync"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
	"github.com/fulqrun/meddpicc-cli/internal/registry"
	"github.com/fulqrun/meddpicc-cli/internal/resilience"
	"github.com/fulqrun/meddpicc-cli/internal/session"
	"github.com/fulqrun/meddpicc-cli/internal/store"
	"github.com/fulqrun/meddpicc-cli/pkg/notion"
	"github.com/fulqrun/meddpicc-cli/pkg/salesforce"
)

// questionsFile, when set, overlays registry questions from a local snapshot
// instead of Notion.
var questionsFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&questionsFile, "questions", "", "overlay questions from a registry snapshot file (YAML or JSON)")
}

// appEnv holds the dependencies shared by commands.
type appEnv struct {
	Store   store.Store
	Service *session.Service
}

// Close releases the store.
func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// initStore opens the configured store. SQLite databases are migrated on
// open; Postgres needs an explicit `migrate`.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Driver == "sqlite" {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	return st, nil
}

// baseCatalog returns the configured catalog file, or the built-in default.
func baseCatalog() (*qualify.Catalog, error) {
	if cfg.Scoring.CatalogPath != "" {
		return qualify.LoadCatalogFile(cfg.Scoring.CatalogPath)
	}
	return qualify.DefaultCatalog(), nil
}

// initCatalog builds the question catalog: the base catalog overlaid with
// registry questions when a snapshot file or a Notion question database is
// configured.
func initCatalog(ctx context.Context) (*qualify.Catalog, error) {
	c, err := baseCatalog()
	if err != nil {
		return nil, err
	}

	var entries []registry.Entry
	switch {
	case questionsFile != "":
		es, err := registry.LoadEntriesFromFile(questionsFile)
		if err != nil {
			return nil, err
		}
		entries = es
	case cfg.Notion.Token != "" && cfg.Notion.QuestionDB != "":
		es, err := registry.LoadQuestions(ctx, initNotion(), cfg.Notion.QuestionDB)
		if err != nil {
			return nil, err
		}
		entries = es
	}
	if len(entries) > 0 {
		zap.L().Info("overlaying registry questions", zap.Int("questions", len(entries)))
	}
	return registry.Overlay(c, entries)
}

// initScorer validates the scoring config and builds a scorer over the
// configured catalog.
func initScorer(ctx context.Context) (*qualify.Scorer, error) {
	if err := qualify.ValidateScoringConfig(cfg.Scoring); err != nil {
		return nil, err
	}
	c, err := initCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return qualify.NewScorer(c, cfg.Scoring), nil
}

func initEnv(ctx context.Context) (*appEnv, error) {
	scorer, err := initScorer(ctx)
	if err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	svc := session.NewService(st, scorer, resilience.FromSyncConfig(cfg.Sync))
	return &appEnv{Store: st, Service: svc}, nil
}

func initNotion() notion.Client {
	return notion.NewClient(cfg.Notion.Token)
}

func initSalesforce() (salesforce.Client, error) {
	if err := cfg.Validate("salesforce"); err != nil {
		return nil, err
	}
	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}
	return salesforce.Connect(salesforce.JWTCreds{
		LoginURL: cfg.Salesforce.LoginURL,
		Username: cfg.Salesforce.Username,
		ClientID: cfg.Salesforce.ClientID,
		KeyPEM:   string(pemData),
	}, salesforce.WithRateLimit(cfg.Salesforce.RateLimit))
}

// syncFields resolves the Opportunity field mapping: defaults, then the
// Notion field registry, then config overrides.
func syncFields(ctx context.Context, c *qualify.Catalog) (map[string]string, error) {
	var fromRegistry map[string]string
	if cfg.Notion.Token != "" && cfg.Notion.FieldDB != "" {
		m, err := registry.LoadFieldMap(ctx, initNotion(), cfg.Notion.FieldDB)
		if err != nil {
			return nil, err
		}
		fromRegistry = m
	}
	return crmsync.MergeFields(crmsync.DefaultFields(c), fromRegistry, cfg.Salesforce.Fields), nil
}

package main

import (
	"context"
	"io"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/crm"
	"github.com/sells-group/lead-cli/internal/llm"
	"github.com/sells-group/lead-cli/internal/pipeline"
	"github.com/sells-group/lead-cli/internal/store"
	"github.com/sells-group/lead-cli/pkg/notion"
	sfpkg "github.com/sells-group/lead-cli/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leads.db"
		}
		return store.NewSQLite(dsn, cfg.Store.Table)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Table, &store.PoolConfig{MaxConns: cfg.Store.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initNotion() (notion.Client, error) {
	if cfg.Notion.Token == "" {
		return nil, eris.New("notion token is required (LEADS_NOTION_TOKEN)")
	}
	if cfg.Notion.LeadDB == "" {
		return nil, eris.New("notion lead DB ID is required (LEADS_NOTION_LEAD_DB)")
	}
	return notion.NewClient(cfg.Notion.Token), nil
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (LEADS_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}

// initSinks returns the store followed by every configured CRM. A CRM that
// cannot be initialised is logged and left out; the snapshot still holds
// the run.
func initSinks(st store.Store) []pipeline.Sink {
	sinks := []pipeline.Sink{st}

	if cfg.Notion.Token != "" && cfg.Notion.LeadDB != "" {
		nc, err := initNotion()
		if err != nil {
			zap.L().Warn("notion sink disabled", zap.Error(err))
		} else {
			sinks = append(sinks, crm.NewNotionSink(nc, cfg.Notion.LeadDB))
		}
	}

	if cfg.Salesforce.Enabled {
		sc, err := initSalesforce()
		if err != nil {
			zap.L().Warn("salesforce sink disabled", zap.Error(err))
		} else {
			sinks = append(sinks, crm.NewSalesforceSink(sc, cfg.Lead.PlaceholderEmailDomain))
		}
	}

	return sinks
}

// initLLM builds the evaluation provider client. The returned func releases
// provider connections.
func initLLM(ctx context.Context) (llm.Client, func(), error) {
	c := llm.Config{Provider: cfg.Evaluation.Provider}
	switch cfg.Evaluation.Provider {
	case "anthropic":
		c.APIKey = cfg.Anthropic.Key
	case "gemini":
		c.APIKey = cfg.Gemini.Key
	default:
		c.APIKey = cfg.OpenAI.Key
		c.BaseURL = cfg.OpenAI.BaseURL
		c.RateLimit = cfg.OpenAI.RateLimit
	}

	client, err := llm.New(ctx, c)
	if err != nil {
		return nil, nil, eris.Wrap(err, "init llm")
	}
	cleanup := func() {}
	if closer, ok := client.(io.Closer); ok {
		cleanup = func() { _ = closer.Close() }
	}
	return client, cleanup, nil
}

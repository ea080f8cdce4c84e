package enrich

import (
	"ledger/pkg/bitrix"
	"ledger/pkg/config"

	"github.com/redis/go-redis/v9"
)

// CRM bundles the Bitrix24 client with its two resolvers.
type CRM struct {
	Client     *bitrix.Client
	Categories *bitrix.CategoryResolver
	Projects   *bitrix.ProjectFieldResolver
}

// NewCRM builds the CRM side from configuration. rdb may be nil; when set the
// category snapshot is shared through redis.
func NewCRM(cfg config.BitrixConfig, rdb *redis.Client) *CRM {
	client := bitrix.NewClient(cfg.WebhookURL, bitrix.WithTimeout(cfg.Timeout))

	opts := []bitrix.CategoryOption{bitrix.WithGeneralName(cfg.GeneralCategory)}
	if cfg.CategoryTTL > 0 {
		opts = append(opts, bitrix.WithCategoryTTL(cfg.CategoryTTL))
	}
	if rdb != nil {
		ttl := cfg.CategoryTTL
		if ttl <= 0 {
			ttl = bitrix.DefaultCategoryTTL
		}
		src := bitrix.NewRedisSnapshotSource(rdb, bitrix.NewCRMCategorySource(client), ttl)
		opts = append(opts, bitrix.WithCategorySource(src))
	}

	return &CRM{
		Client:     client,
		Categories: bitrix.NewCategoryResolver(client, opts...),
		Projects:   bitrix.NewProjectFieldResolver(client, bitrix.NormalizeFieldCode(cfg.DealProjectField)),
	}
}

func (c *CRM) Ready() bool { return c.Client.Ready() }

// Enricher returns an orchestrator persisting through store.
func (c *CRM) Enricher(store Store) *Enricher {
	return New(c.Client, c.Projects, c.Categories, store)
}

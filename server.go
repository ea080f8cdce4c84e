package main

import (
	"context"
	"time"

	"ledger/models"
	"ledger/pkg/auth"
	"ledger/pkg/config"
	"ledger/pkg/database"
	"ledger/pkg/enrich"
	"ledger/pkg/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type paymentStore interface {
	List(ctx context.Context, f store.PaymentFilter) ([]models.Payment, error)
	Get(ctx context.Context, id uint) (*models.Payment, error)
	Create(ctx context.Context, p *models.Payment) error
	Update(ctx context.Context, id uint, columns map[string]any) (*models.Payment, error)
	Delete(ctx context.Context, id uint) (*models.Payment, error)
	Balance(ctx context.Context, f store.PaymentFilter) (store.Totals, error)
	Pending(ctx context.Context, day models.Date) ([]models.Payment, error)
}

type linkEnricher interface {
	Enrich(ctx context.Context, id uint, links enrich.Links) (*models.Payment, error)
}

type crmStatus interface {
	Ready() bool
}

type tokenService interface {
	Login(ctx context.Context, username, password string) (auth.Tokens, error)
	Refresh(ctx context.Context, raw string) (auth.Tokens, error)
	Revoke(ctx context.Context, raw string) error
	ParseAccess(token string) (auth.Claims, error)
}

type dictRepo[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, id uint, item *T) error
}

type server struct {
	cfg *config.Config
	log *zap.Logger

	payments   paymentStore
	enricher   linkEnricher
	crm        crmStatus
	categories enrich.CategoryNamer

	categoryDict dictRepo[models.Category]
	projects     dictRepo[models.Project]
	accounts     dictRepo[models.Account]
	contractors  dictRepo[models.Contractor]
	transfers    dictRepo[models.Transfer]

	// nil when AUTH_ENABLED is off
	auth tokenService
	ping func(ctx context.Context) error
	now  func() time.Time
}

func newServer(cfg *config.Config, log *zap.Logger, db *gorm.DB, rdb *redis.Client) *server {
	payments := store.NewPayments(db)
	crm := enrich.NewCRM(cfg.Bitrix, rdb)

	s := &server{
		cfg:          cfg,
		log:          log,
		payments:     payments,
		enricher:     crm.Enricher(payments),
		crm:          crm,
		categories:   crm.Categories,
		categoryDict: store.NewDictionary[models.Category](db),
		projects:     store.NewDictionary[models.Project](db).OrderBy("name"),
		accounts:     store.NewDictionary[models.Account](db).OrderBy("name"),
		contractors:  store.NewDictionary[models.Contractor](db).OrderBy("name"),
		transfers:    store.NewDictionary[models.Transfer](db).OrderBy("date desc, id desc"),
		ping:         func(ctx context.Context) error { return database.Ping(db.WithContext(ctx)) },
		now:          time.Now,
	}
	if cfg.Auth.Enabled {
		s.auth = auth.NewService(db, cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	}
	return s
}

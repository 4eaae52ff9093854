// Package platform owns the marketplace-wide billing settings. Core
// operations never read these as ambient globals; handlers load a Settings
// value per request and pass it in explicitly.
package platform

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// Settings are the knobs the transactional core consults. Amounts in cents.
type Settings struct {
	ClickFeeCents            int64 `json:"click_fee_cents"`
	MinOfferBalanceCents     int64 `json:"min_offer_balance_cents"`
	MaxOffersPerRequest      int   `json:"max_offers_per_request"`
	LowBalanceThresholdCents int64 `json:"low_balance_threshold_cents"`
}

// Defaults are used until an admin persists a settings row.
func Defaults() Settings {
	return Settings{
		ClickFeeCents:            10,
		MinOfferBalanceCents:     200,
		MaxOffersPerRequest:      10,
		LowBalanceThresholdCents: 200,
	}
}

// Store loads and saves the singleton settings row.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// Cache is a best-effort settings cache with explicit invalidation.
type Cache interface {
	Get(ctx context.Context) (Settings, bool)
	Set(ctx context.Context, s Settings)
	Invalidate(ctx context.Context)
}

type Service struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

func NewService(store Store, cache Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// Current returns the effective settings: cache, then the DB row, then
// compiled-in defaults when no row has been saved yet.
func (s *Service) Current(ctx context.Context) (Settings, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}
	loaded, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Defaults(), nil
		}
		return Settings{}, err
	}
	s.cache.Set(ctx, loaded)
	return loaded, nil
}

// Update persists new settings and invalidates the cache so the next
// request observes them.
func (s *Service) Update(ctx context.Context, next Settings) error {
	if next.ClickFeeCents < 0 || next.MinOfferBalanceCents < 0 || next.LowBalanceThresholdCents < 0 {
		return errors.New("settings amounts must not be negative")
	}
	if next.MaxOffersPerRequest < 1 {
		return errors.New("max offers per request must be at least 1")
	}
	if err := s.store.Save(ctx, next); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("platform settings updated",
		"click_fee_cents", next.ClickFeeCents,
		"min_offer_balance_cents", next.MinOfferBalanceCents,
		"max_offers_per_request", next.MaxOffersPerRequest)
	return nil
}

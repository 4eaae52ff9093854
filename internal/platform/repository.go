package platform

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) Load(ctx context.Context) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `
		SELECT click_fee_cents, min_offer_balance_cents, max_offers_per_request, low_balance_threshold_cents
		FROM platform_settings WHERE id = 1
	`).Scan(&s.ClickFeeCents, &s.MinOfferBalanceCents, &s.MaxOffersPerRequest, &s.LowBalanceThresholdCents)
	return s, err
}

func (r *Repository) Save(ctx context.Context, s Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO platform_settings (id, click_fee_cents, min_offer_balance_cents, max_offers_per_request, low_balance_threshold_cents)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			click_fee_cents = EXCLUDED.click_fee_cents,
			min_offer_balance_cents = EXCLUDED.min_offer_balance_cents,
			max_offers_per_request = EXCLUDED.max_offers_per_request,
			low_balance_threshold_cents = EXCLUDED.low_balance_threshold_cents,
			updated_at = now()
	`, s.ClickFeeCents, s.MinOfferBalanceCents, s.MaxOffersPerRequest, s.LowBalanceThresholdCents)
	return err
}

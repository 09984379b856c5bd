package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/cards-api/internal/platform/logger"
)

// CardExpirer marks cards past their validity as EXPIRED.
type CardExpirer interface {
	ExpireCards(ctx context.Context, now time.Time) (int64, error)
}

// TokenPurger deletes refresh-token records that expired before now.
type TokenPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweep expires ACTIVE and BLOCKED cards whose expiry date has passed.
type ExpirySweep struct {
	cards CardExpirer
}

// NewExpirySweep creates the card expiry job.
func NewExpirySweep(cards CardExpirer) *ExpirySweep {
	return &ExpirySweep{cards: cards}
}

// Name implements Job.
func (j *ExpirySweep) Name() string { return "card_expiry_sweep" }

// Run implements Job.
func (j *ExpirySweep) Run(ctx context.Context, now time.Time) error {
	if j.cards == nil {
		return errors.New("expiry sweep: no card service")
	}
	n, err := j.cards.ExpireCards(ctx, now)
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}
	if n > 0 {
		logger.FromContext(ctx).Info("cards expired", slog.Int64("count", n))
	}
	return nil
}

// TokenPurge removes refresh-token records past their expiry.
type TokenPurge struct {
	tokens TokenPurger
}

// NewTokenPurge creates the refresh-token purge job.
func NewTokenPurge(tokens TokenPurger) *TokenPurge {
	return &TokenPurge{tokens: tokens}
}

// Name implements Job.
func (j *TokenPurge) Name() string { return "refresh_token_purge" }

// Run implements Job.
func (j *TokenPurge) Run(ctx context.Context, now time.Time) error {
	if j.tokens == nil {
		return errors.New("token purge: no token store")
	}
	n, err := j.tokens.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("token purge: %w", err)
	}
	if n > 0 {
		logger.FromContext(ctx).Info("expired refresh tokens purged", slog.Int64("count", n))
	}
	return nil
}

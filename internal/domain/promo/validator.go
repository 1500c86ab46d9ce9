package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator validates a promo code against a set of cart items and returns
// the computed discount.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item) (*Discount, error)
}

// RepoValidator implements Validator by looking up promo rules from a
// Repository and applying them via Apply.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the rule for the given code, checks temporal validity
// and usage limits, applies it to the cart items, and increments the usage
// counter on success.
func (v *RepoValidator) Validate(ctx context.Context, code string, items []Item) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, errors.Wrap(err, "lookup promo code")
	}

	now := v.now()

	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil, ErrExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil, ErrExpired
	}

	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return nil, ErrUsageLimitReached
	}

	d, err := Apply(rule, items)
	if err != nil {
		return nil, err
	}

	if err := v.repo.IncrementUses(ctx, code); err != nil {
		return nil, errors.Wrap(err, "increment promo code uses")
	}

	return &d, nil
}

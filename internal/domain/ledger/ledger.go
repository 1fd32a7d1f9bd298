// Package ledger keeps per-user token balances and badges fed by completed
// validations.
package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/scoring"
)

// Sentinel kinds for ledger errors.
var (
	ErrAlreadyCredited = errors.New("reward already credited")
	ErrInvalidUser     = errors.New("invalid user id")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithValidatorBonus credits each validator of a completed validation with
// tokens. Zero disables bonuses.
func WithValidatorBonus(tokens int) Option {
	return func(l *Ledger) {
		if tokens >= 0 {
			l.validatorBonus = tokens
		}
	}
}

type account struct {
	balance model.TokenBalance
	txs     []model.TokenTransaction
	badges  []model.Badge
}

// payout is one user's share of a reward event.
type payout struct {
	userID string
	amount int
	kind   model.TransactionType
}

// Ledger is an in-memory token ledger. Rewards are first reserved as pending
// and later credited exactly once per validation.
type Ledger struct {
	mu             sync.RWMutex
	accounts       map[string]*account
	credited       map[string]string   // validation id -> reward transaction id
	reserved       map[string][]payout // validation id -> pending payouts
	validatorBonus int
	now            func() time.Time
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[string]*account),
		credited: make(map[string]string),
		reserved: make(map[string][]payout),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) accountFor(userID string) *account {
	a, ok := l.accounts[userID]
	if !ok {
		a = &account{balance: model.TokenBalance{UserID: userID}}
		l.accounts[userID] = a
	}
	return a
}

// Reserve adds a reward to the pending balances of the skater and, with
// bonuses on, of every validator. Reserving the same validation twice has no
// further effect.
func (l *Ledger) Reserve(_ context.Context, e model.RewardEvent) error {
	if err := checkEvent(e); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, done := l.credited[e.ValidationID]; done {
		return ErrAlreadyCredited
	}
	if _, ok := l.reserved[e.ValidationID]; ok {
		return nil
	}
	now := l.now().UTC()
	payouts := l.payouts(e)
	for _, p := range payouts {
		a := l.accountFor(p.userID)
		a.balance.PendingBalance += p.amount
		a.balance.LastUpdated = now
	}
	l.reserved[e.ValidationID] = payouts
	return nil
}

func (l *Ledger) payouts(e model.RewardEvent) []payout {
	out := []payout{{userID: e.SkaterID, amount: e.Tokens, kind: model.TransactionTrickReward}}
	if l.validatorBonus == 0 {
		return out
	}
	for _, id := range e.ValidatorIDs {
		if id = strings.TrimSpace(id); id != "" && id != e.SkaterID {
			out = append(out, payout{userID: id, amount: l.validatorBonus, kind: model.TransactionValidatorBonus})
		}
	}
	return out
}

// Credit settles a reward: the skater's trick reward, each validator's
// bonus and the skater's badge when the final score earns one. Reserved
// amounts move out of pending. A second credit for the same validation
// returns ErrAlreadyCredited.
func (l *Ledger) Credit(_ context.Context, e model.RewardEvent) (model.RewardReceipt, error) {
	if err := checkEvent(e); err != nil {
		return model.RewardReceipt{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, done := l.credited[e.ValidationID]; done {
		return model.RewardReceipt{}, ErrAlreadyCredited
	}

	now := l.now().UTC()
	payouts, reserved := l.reserved[e.ValidationID]
	if !reserved {
		payouts = l.payouts(e)
	}
	delete(l.reserved, e.ValidationID)

	var receipt model.RewardReceipt
	for _, p := range payouts {
		a := l.accountFor(p.userID)
		if reserved {
			a.balance.PendingBalance -= p.amount
		}
		a.balance.Balance += p.amount
		a.balance.LastUpdated = now

		tx := model.TokenTransaction{
			ID:           uuid.NewString(),
			UserID:       p.userID,
			Amount:       p.amount,
			Type:         p.kind,
			ValidationID: e.ValidationID,
			CreatedAt:    now,
		}
		a.txs = append(a.txs, tx)
		if p.kind == model.TransactionTrickReward {
			receipt.Reward = tx
		} else {
			receipt.Bonuses = append(receipt.Bonuses, tx)
		}
	}

	if tier, ok := scoring.BadgeFor(e.FinalScore); ok {
		badge := model.Badge{
			ID:           uuid.NewString(),
			UserID:       e.SkaterID,
			Tier:         tier,
			ValidationID: e.ValidationID,
			TrickType:    e.TrickType,
			FinalScore:   e.FinalScore,
			AwardedAt:    now,
		}
		a := l.accountFor(e.SkaterID)
		a.badges = append(a.badges, badge)
		receipt.Badge = &badge
	}

	l.credited[e.ValidationID] = receipt.Reward.ID
	return receipt, nil
}

// Credited reports whether the validation's reward has been credited.
func (l *Ledger) Credited(validationID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.credited[validationID]
	return ok
}

// Balance returns the user's balance. Unknown users have a zero balance.
func (l *Ledger) Balance(_ context.Context, userID string) (model.TokenBalance, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.TokenBalance{}, ErrInvalidUser
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.accounts[userID]; ok {
		return a.balance, nil
	}
	return model.TokenBalance{UserID: userID}, nil
}

// Transactions returns the user's transactions, newest first.
func (l *Ledger) Transactions(_ context.Context, userID string) ([]model.TokenTransaction, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	l.mu.RLock()
	a, ok := l.accounts[userID]
	var out []model.TokenTransaction
	if ok {
		out = append(out, a.txs...)
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if out == nil {
		out = []model.TokenTransaction{}
	}
	return out, nil
}

// Badges returns the user's badges, newest first.
func (l *Ledger) Badges(_ context.Context, userID string) ([]model.Badge, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	l.mu.RLock()
	var out []model.Badge
	if a, ok := l.accounts[userID]; ok {
		out = append(out, a.badges...)
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].AwardedAt.After(out[j].AwardedAt) })
	if out == nil {
		out = []model.Badge{}
	}
	return out, nil
}

// Totals returns the number of credited rewards and pending reservations.
func (l *Ledger) Totals() (credited, pending int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.credited), len(l.reserved)
}

func checkEvent(e model.RewardEvent) error {
	if strings.TrimSpace(e.SkaterID) == "" || strings.TrimSpace(e.ValidationID) == "" {
		return ErrInvalidUser
	}
	if e.Tokens < 0 {
		return ErrInvalidAmount
	}
	return nil
}

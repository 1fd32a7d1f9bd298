package model

import (
	"time"

	"github.com/tricktrack/tricktrack/internal/domain/types"
)

// TransactionType classifies a ledger entry.
type TransactionType string

// Ledger transaction kinds.
const (
	TransactionTrickReward    TransactionType = "trick-reward"
	TransactionValidatorBonus TransactionType = "validator-bonus"
)

// BadgeTier is the off-chain badge earned by a completed trick.
type BadgeTier string

// Badge tiers, lowest first.
const (
	BadgeBronze BadgeTier = "bronze"
	BadgeSilver BadgeTier = "silver"
	BadgeGold   BadgeTier = "gold"
)

// RewardEvent is published once a validation completes.
type RewardEvent struct {
	ValidationID string
	SkaterID     string
	ValidatorIDs []string // validators whose scores made up the final score
	TrickType    types.TrickType
	FinalScore   int
	Tokens       int
	CompletedAt  time.Time
}

// TokenTransaction records a credited amount.
type TokenTransaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Amount       int             `json:"amount"`
	Type         TransactionType `json:"type"`
	ValidationID string          `json:"validationId,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// TokenBalance is a user's credited and queued tokens.
type TokenBalance struct {
	UserID         string    `json:"userId"`
	Balance        int       `json:"balance"`
	PendingBalance int       `json:"pendingBalance"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Badge records a tier awarded for one completed validation.
type Badge struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Tier         BadgeTier       `json:"tier"`
	ValidationID string          `json:"validationId"`
	TrickType    types.TrickType `json:"trickType"`
	FinalScore   int             `json:"finalScore"`
	AwardedAt    time.Time       `json:"awardedAt"`
}

// RewardReceipt is everything one credit produced.
type RewardReceipt struct {
	Reward  TokenTransaction   // the skater's trick reward
	Bonuses []TokenTransaction // one per validator; empty when bonuses are off
	Badge   *Badge             // nil when the final score earns no tier
}

// Package types contains the enumerations shared across the application.
package types

import "strings"

// TrickType names a recognised skateboard trick.
type TrickType string

// Recognised tricks.
const (
	TrickOllie          TrickType = "ollie"
	TrickKickflip       TrickType = "kickflip"
	TrickHeelflip       TrickType = "heelflip"
	TrickShuvit         TrickType = "shuvit"
	TrickPopShuvit      TrickType = "pop-shuvit"
	TrickFrontside180   TrickType = "frontside-180"
	TrickBackside180    TrickType = "backside-180"
	TrickVarialKickflip TrickType = "varial-kickflip"
	TrickHardflip       TrickType = "hardflip"
	TrickTreflip        TrickType = "treflip"
)

var allTricks = []TrickType{
	TrickOllie,
	TrickKickflip,
	TrickHeelflip,
	TrickShuvit,
	TrickPopShuvit,
	TrickFrontside180,
	TrickBackside180,
	TrickVarialKickflip,
	TrickHardflip,
	TrickTreflip,
}

// Tricks returns every recognised trick in declaration order.
func Tricks() []TrickType {
	out := make([]TrickType, len(allTricks))
	copy(out, allTricks)
	return out
}

// Valid reports whether t is a recognised trick.
func (t TrickType) Valid() bool {
	for _, known := range allTricks {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTrickType normalises s and returns the matching trick.
func ParseTrickType(s string) (TrickType, bool) {
	t := TrickType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Status is the lifecycle state of a validation.
type Status string

// Lifecycle states.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the lifecycle permits moving from s to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusFailed
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// ParseStatus normalises s and returns the matching status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Sub-score upper bounds. Lower bound is zero for all three.
const (
	MaxLanding    = 50
	MaxStyle      = 30
	MaxDifficulty = 20
	MaxTotal      = MaxLanding + MaxStyle + MaxDifficulty
)

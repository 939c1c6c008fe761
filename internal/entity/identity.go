package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

// Identity is the read-only account snapshot a connection plays under.
type Identity struct {
	ID      string `json:"id" redis:"id"`
	Handle  string `json:"handle" redis:"handle"`
	IsAdmin bool   `json:"isAdmin" redis:"is_admin"`
	Wins    int    `json:"wins" redis:"wins"`
	Losses  int    `json:"losses" redis:"losses"`
	Draws   int    `json:"draws" redis:"draws"`
}

// Session binds one live connection to the identity it announced.
type Session struct {
	ConnectionID string
	Identity     Identity
	AdmittedAt   time.Time
}

// RosterEntry is what other players see about an online user.
type RosterEntry struct {
	Handle string `json:"handle"`
	ID     string `json:"id"`
}

type OutcomeKind string

const (
	OutcomeWin  OutcomeKind = "win"
	OutcomeLoss OutcomeKind = "loss"
	OutcomeDraw OutcomeKind = "draw"
)

// Field returns the counter name the outcome increments.
func (that OutcomeKind) Field() (string, error) {
	switch that {
	case OutcomeWin:
		return "wins", nil
	case OutcomeLoss:
		return "losses", nil
	case OutcomeDraw:
		return "draws", nil
	default:
		return "", fmt.Errorf("%w: %q", apperror.ErrUnknownOutcome, string(that))
	}
}

// Apply increments the matching counter on an in-memory snapshot.
func (that *Identity) Apply(kind OutcomeKind) {
	switch kind {
	case OutcomeWin:
		that.Wins++
	case OutcomeLoss:
		that.Losses++
	case OutcomeDraw:
		that.Draws++
	}
}

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type outcomeRecorder interface {
	IncrementOutcome(ctx context.Context, id string, kind entity.OutcomeKind) error
}

type matchAppender interface {
	Append(ctx context.Context, record *entity.MatchRecord) error
}

// Settlement writes counters and history for a finished room. Store failures are
// logged and swallowed: a lost stat never blocks the match flow.
type Settlement struct {
	logger     *slog.Logger
	identities outcomeRecorder
	matches    matchAppender
	timeout    time.Duration
	now        func() time.Time
}

func NewSettlement(logger *slog.Logger, identities outcomeRecorder, matches matchAppender, timeout time.Duration, now func() time.Time) *Settlement {
	return &Settlement{
		logger:     logger.With("component", "settlement"),
		identities: identities,
		matches:    matches,
		timeout:    timeout,
		now:        now,
	}
}

// Settle - records the result of a finished room. Callers run it exactly once per room.
func (that *Settlement) Settle(ctx context.Context, room *entity.Room) {
	log := that.logger.With("method", "Settle", "room", room.ID)

	if !room.IsFinished() {
		log.Error("refusing to settle an unfinished room", "status", room.Status)
		return
	}

	// settlement outlives the request that finished the room
	ctx = context.WithoutCancel(ctx)

	if winner, ok := room.WinnerParticipant(); ok {
		that.record(ctx, log, winner.ID, entity.OutcomeWin)

		for _, p := range room.Participants {
			if p.Mark != winner.Mark {
				that.record(ctx, log, p.ID, entity.OutcomeLoss)
			}
		}
	} else {
		for _, p := range room.Participants {
			that.record(ctx, log, p.ID, entity.OutcomeDraw)
		}
	}

	record := room.Record(that.now())

	appendCtx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	if err := that.matches.Append(appendCtx, record); err != nil {
		log.Error("failed to append match record", "error", err)
		return
	}

	log.Info("room settled", "outcome", record.Outcome, "reason", record.Reason)
}

func (that *Settlement) record(ctx context.Context, log *slog.Logger, id string, kind entity.OutcomeKind) {
	ctx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	if err := that.identities.IncrementOutcome(ctx, id, kind); err != nil {
		log.Error("failed to record outcome", "identity", id, "outcome", kind, "error", err)
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var errStoreDown = errors.New("store unreachable")

func finishedRoom(t *testing.T, winner string) *entity.Room {
	t.Helper()

	room := entity.NewRoom("room-1", entity.Participant{ConnectionID: "conn-a", ID: "id-a", Handle: "alice"}, time.Now())
	require.NoError(t, room.Seat(entity.Participant{ConnectionID: "conn-b", ID: "id-b", Handle: "bob"}))

	if winner != "" {
		loser := "conn-a"
		if winner == "conn-a" {
			loser = "conn-b"
		}
		_, err := room.Forfeit(loser)
		require.NoError(t, err)
		return room
	}

	for _, m := range []move{
		{"conn-a", 0}, {"conn-b", 1}, {"conn-a", 2},
		{"conn-b", 4}, {"conn-a", 3}, {"conn-b", 5},
		{"conn-a", 7}, {"conn-b", 6}, {"conn-a", 8},
	} {
		_, err := room.MakeTurn(m.conn, m.cell)
		require.NoError(t, err)
	}

	return room
}

func hasDeadline(ctx context.Context) bool {
	_, ok := ctx.Deadline()
	return ok
}

func TestSettlement_Settle(t *testing.T) {
	clock := newFakeClock()
	logger := newFixture(t).logger

	t.Run("Win records a win and a loss then appends history", func(t *testing.T) {
		store := &failingStore{}
		store.On("IncrementOutcome", mock.MatchedBy(hasDeadline), "id-a", entity.OutcomeWin).Return(nil).Once()
		store.On("IncrementOutcome", mock.MatchedBy(hasDeadline), "id-b", entity.OutcomeLoss).Return(nil).Once()
		store.On("Append", mock.MatchedBy(hasDeadline), mock.MatchedBy(func(record *entity.MatchRecord) bool {
			return record.RoomID == "room-1" && record.WinnerID == "id-a" && record.Reason == entity.ReasonForfeit
		})).Return(nil).Once()

		NewSettlement(logger, store, store, time.Second, clock.Now).Settle(context.Background(), finishedRoom(t, "conn-a"))

		store.AssertExpectations(t)
	})

	t.Run("Draw records a draw for every seat", func(t *testing.T) {
		store := &failingStore{}
		store.On("IncrementOutcome", mock.Anything, "id-a", entity.OutcomeDraw).Return(nil).Once()
		store.On("IncrementOutcome", mock.Anything, "id-b", entity.OutcomeDraw).Return(nil).Once()
		store.On("Append", mock.Anything, mock.MatchedBy(func(record *entity.MatchRecord) bool {
			return record.IsDraw()
		})).Return(nil).Once()

		NewSettlement(logger, store, store, time.Second, clock.Now).Settle(context.Background(), finishedRoom(t, ""))

		store.AssertExpectations(t)
	})

	t.Run("Store failures do not stop the remaining writes", func(t *testing.T) {
		store := &failingStore{}
		store.On("IncrementOutcome", mock.Anything, mock.Anything, mock.Anything).Return(errStoreDown).Twice()
		store.On("Append", mock.Anything, mock.Anything).Return(errStoreDown).Once()

		NewSettlement(logger, store, store, time.Second, clock.Now).Settle(context.Background(), finishedRoom(t, "conn-b"))

		store.AssertExpectations(t)
	})

	t.Run("Survives a cancelled caller context", func(t *testing.T) {
		store := &failingStore{}
		store.On("IncrementOutcome", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything, mock.Anything).Return(nil).Twice()
		store.On("Append", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).Return(nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		NewSettlement(logger, store, store, time.Second, clock.Now).Settle(ctx, finishedRoom(t, "conn-a"))

		store.AssertExpectations(t)
	})

	t.Run("Ignores a room that has not finished", func(t *testing.T) {
		store := &failingStore{}
		room := entity.NewRoom("room-1", entity.Participant{ConnectionID: "conn-a", ID: "id-a"}, time.Now())

		NewSettlement(logger, store, store, time.Second, clock.Now).Settle(context.Background(), room)

		store.AssertNotCalled(t, "IncrementOutcome", mock.Anything, mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestGameplay_SettlementFailureKeepsGameFlowing(t *testing.T) {
	// Given: a gameplay whose store is down
	f := newFixture(t)
	store := &failingStore{}
	store.On("IncrementOutcome", mock.Anything, mock.Anything, mock.Anything).Return(errStoreDown)
	store.On("Append", mock.Anything, mock.Anything).Return(errStoreDown)
	f.gameplay = NewGameplay(f.logger, f.directory, f.fanout, NewSettlement(f.logger, store, store, time.Second, f.clock.Now))

	f.join("conn-a", "alice")
	f.join("conn-b", "bob")
	roomID := f.startMatch("conn-a", "conn-b")

	// When: alice wins
	f.play(roomID,
		move{"conn-a", 0}, move{"conn-b", 3},
		move{"conn-a", 1}, move{"conn-b", 4},
		move{"conn-a", 2},
	)

	// Then: players still see the end and the room is still disposed
	assert.Len(t, f.sender.received("conn-a", EventMatchEnd), 1)
	assert.Len(t, f.sender.received("conn-b", EventMatchEnd), 1)
	_, ok := f.directory.Lookup(roomID)
	assert.False(t, ok)
	store.AssertNumberOfCalls(t, "Append", 1)
}

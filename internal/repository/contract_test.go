package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// runIdentityContract exercises behaviour every IdentityRepository driver must share.
func runIdentityContract(t *testing.T, ctx context.Context, repo IdentityRepository) {
	t.Helper()

	t.Run("Create_GetByHandle", func(t *testing.T) {
		// Given: a fresh identity
		identity := &entity.Identity{ID: uuid.NewString(), Handle: "alice-" + uuid.NewString()[:8]}

		// When: it is created and resolved by handle
		require.NoError(t, repo.Create(ctx, identity))
		found, err := repo.GetByHandle(ctx, identity.Handle)

		// Then: the stored identity is returned with zero counters
		require.NoError(t, err)
		assert.Equal(t, identity, found)
	})

	t.Run("Create_DuplicateHandle", func(t *testing.T) {
		handle := "bob-" + uuid.NewString()[:8]
		require.NoError(t, repo.Create(ctx, &entity.Identity{ID: uuid.NewString(), Handle: handle}))

		err := repo.Create(ctx, &entity.Identity{ID: uuid.NewString(), Handle: handle})

		require.ErrorIs(t, err, apperror.ErrIdentityConflict)
	})

	t.Run("Create_DuplicateID", func(t *testing.T) {
		// Given: an identity with a win on record
		owner := &entity.Identity{ID: uuid.NewString(), Handle: "dan-" + uuid.NewString()[:8]}
		require.NoError(t, repo.Create(ctx, owner))
		require.NoError(t, repo.IncrementOutcome(ctx, owner.ID, entity.OutcomeWin))

		// When: a second identity reuses its id under a new handle
		intruder := &entity.Identity{ID: owner.ID, Handle: "erin-" + uuid.NewString()[:8]}
		err := repo.Create(ctx, intruder)

		// Then: the create is refused and the owner is untouched
		require.ErrorIs(t, err, apperror.ErrIdentityIDTaken)

		found, err := repo.GetByID(ctx, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, owner.Handle, found.Handle)
		assert.Equal(t, 1, found.Wins)

		_, err = repo.GetByHandle(ctx, intruder.Handle)
		require.ErrorIs(t, err, apperror.ErrIdentityNotFound)
	})

	t.Run("GetByHandle_NotFound", func(t *testing.T) {
		found, err := repo.GetByHandle(ctx, "nobody-"+uuid.NewString())

		require.ErrorIs(t, err, apperror.ErrIdentityNotFound)
		assert.Nil(t, found)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())

		require.ErrorIs(t, err, apperror.ErrIdentityNotFound)
	})

	t.Run("IncrementOutcome", func(t *testing.T) {
		// Given: an identity with an admin flag
		identity := &entity.Identity{ID: uuid.NewString(), Handle: "carol-" + uuid.NewString()[:8], IsAdmin: true}
		require.NoError(t, repo.Create(ctx, identity))

		// When: every counter is incremented, wins twice
		require.NoError(t, repo.IncrementOutcome(ctx, identity.ID, entity.OutcomeWin))
		require.NoError(t, repo.IncrementOutcome(ctx, identity.ID, entity.OutcomeWin))
		require.NoError(t, repo.IncrementOutcome(ctx, identity.ID, entity.OutcomeLoss))
		require.NoError(t, repo.IncrementOutcome(ctx, identity.ID, entity.OutcomeDraw))

		// Then: each counter reflects its increments
		found, err := repo.GetByID(ctx, identity.ID)
		require.NoError(t, err)
		assert.True(t, found.IsAdmin)
		assert.Equal(t, 2, found.Wins)
		assert.Equal(t, 1, found.Losses)
		assert.Equal(t, 1, found.Draws)
	})

	t.Run("IncrementOutcome_UnknownIdentity", func(t *testing.T) {
		err := repo.IncrementOutcome(ctx, uuid.NewString(), entity.OutcomeWin)

		require.ErrorIs(t, err, apperror.ErrIdentityNotFound)
	})

	t.Run("IncrementOutcome_UnknownKind", func(t *testing.T) {
		err := repo.IncrementOutcome(ctx, uuid.NewString(), entity.OutcomeKind("tie"))

		require.ErrorIs(t, err, apperror.ErrUnknownOutcome)
	})
}

// runMatchContract exercises behaviour every MatchRepository driver must share.
func runMatchContract(t *testing.T, ctx context.Context, identities IdentityRepository, matches MatchRepository) {
	t.Helper()

	alice := &entity.Identity{ID: uuid.NewString(), Handle: "alice-" + uuid.NewString()[:8]}
	bob := &entity.Identity{ID: uuid.NewString(), Handle: "bob-" + uuid.NewString()[:8]}
	require.NoError(t, identities.Create(ctx, alice))
	require.NoError(t, identities.Create(ctx, bob))

	t.Run("Append_GetByRoomID", func(t *testing.T) {
		// Given: a finished win record
		record := &entity.MatchRecord{
			RoomID: uuid.NewString(),
			Participants: []entity.MatchParticipant{
				{ID: alice.ID, Handle: alice.Handle, Mark: entity.MarkFirst},
				{ID: bob.ID, Handle: bob.Handle, Mark: entity.MarkSecond},
			},
			Outcome:  alice.Handle,
			WinnerID: alice.ID,
			Reason:   entity.ReasonLine,
			Board: entity.Board{
				entity.MarkFirst, entity.MarkFirst, entity.MarkFirst,
				entity.MarkSecond, entity.MarkSecond, entity.MarkEmpty,
				entity.MarkEmpty, entity.MarkEmpty, entity.MarkEmpty,
			},
			FinishedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		}

		// When: it is appended and read back
		require.NoError(t, matches.Append(ctx, record))
		found, err := matches.GetByRoomID(ctx, record.RoomID)

		// Then: the record round-trips unchanged
		require.NoError(t, err)
		assert.Equal(t, record, found)
	})

	t.Run("Append_Draw", func(t *testing.T) {
		record := &entity.MatchRecord{
			RoomID: uuid.NewString(),
			Participants: []entity.MatchParticipant{
				{ID: alice.ID, Handle: alice.Handle, Mark: entity.MarkFirst},
				{ID: bob.ID, Handle: bob.Handle, Mark: entity.MarkSecond},
			},
			Outcome:    entity.DrawOutcome,
			Reason:     entity.ReasonBoardFull,
			FinishedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		}

		require.NoError(t, matches.Append(ctx, record))
		found, err := matches.GetByRoomID(ctx, record.RoomID)

		require.NoError(t, err)
		assert.True(t, found.IsDraw())
		assert.Empty(t, found.WinnerID)
	})

	t.Run("GetByRoomID_NotFound", func(t *testing.T) {
		found, err := matches.GetByRoomID(ctx, uuid.NewString())

		require.ErrorIs(t, err, apperror.ErrMatchNotFound)
		assert.Nil(t, found)
	})
}

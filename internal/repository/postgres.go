package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	pgUniqueViolation = "23505"
	pgIdentityIDPkey  = "identities_pkey"
)

type pgIdentity struct {
	pool *pgxpool.Pool
}

func NewPostgresIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &pgIdentity{
		pool: pool,
	}
}

func (that *pgIdentity) Create(ctx context.Context, identity *entity.Identity) error {
	query := `INSERT INTO identities (id, handle, is_admin, wins, losses, draws) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := that.pool.Exec(ctx, query,
		identity.ID, identity.Handle, identity.IsAdmin, identity.Wins, identity.Losses, identity.Draws)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if pgErr.ConstraintName == pgIdentityIDPkey {
			return fmt.Errorf("%w: %s", apperror.ErrIdentityIDTaken, identity.ID)
		}

		return fmt.Errorf("%w: %s", apperror.ErrIdentityConflict, identity.Handle)
	}

	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	return nil
}

func (that *pgIdentity) GetByHandle(ctx context.Context, handle string) (*entity.Identity, error) {
	query := `SELECT id, handle, is_admin, wins, losses, draws FROM identities WHERE handle = $1`

	return that.scanOne(ctx, query, handle)
}

func (that *pgIdentity) GetByID(ctx context.Context, id string) (*entity.Identity, error) {
	query := `SELECT id, handle, is_admin, wins, losses, draws FROM identities WHERE id = $1`

	return that.scanOne(ctx, query, id)
}

func (that *pgIdentity) scanOne(ctx context.Context, query string, arg string) (*entity.Identity, error) {
	var identity entity.Identity

	err := that.pool.QueryRow(ctx, query, arg).Scan(
		&identity.ID, &identity.Handle, &identity.IsAdmin, &identity.Wins, &identity.Losses, &identity.Draws)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrIdentityNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to select identity: %w", err)
	}

	return &identity, nil
}

func (that *pgIdentity) IncrementOutcome(ctx context.Context, id string, kind entity.OutcomeKind) error {
	field, err := kind.Field()
	if err != nil {
		return err
	}

	// field comes from a closed set, never from input
	query := fmt.Sprintf(`UPDATE identities SET %[1]s = %[1]s + 1 WHERE id = $1`, field)

	tag, err := that.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", field, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", apperror.ErrIdentityNotFound, id)
	}

	return nil
}

type pgMatch struct {
	pool *pgxpool.Pool
}

func NewPostgresMatchRepository(pool *pgxpool.Pool) MatchRepository {
	return &pgMatch{
		pool: pool,
	}
}

func (that *pgMatch) Append(ctx context.Context, record *entity.MatchRecord) error {
	participants, err := json.Marshal(record.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}

	board, err := json.Marshal(record.Board)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	var winnerID *string
	if record.WinnerID != "" {
		winnerID = &record.WinnerID
	}

	query := `INSERT INTO match_records (room_id, participants, outcome, winner_id, reason, board, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = that.pool.Exec(ctx, query,
		record.RoomID, participants, record.Outcome, winnerID, record.Reason, board, record.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match record: %w", err)
	}

	return nil
}

func (that *pgMatch) GetByRoomID(ctx context.Context, roomID string) (*entity.MatchRecord, error) {
	query := `SELECT room_id, participants, outcome, winner_id, reason, board, finished_at
		FROM match_records WHERE room_id = $1`

	var (
		record       entity.MatchRecord
		participants []byte
		board        []byte
		winnerID     *string
	)

	err := that.pool.QueryRow(ctx, query, roomID).Scan(
		&record.RoomID, &participants, &record.Outcome, &winnerID, &record.Reason, &board, &record.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to select match record: %w", err)
	}

	if err = json.Unmarshal(participants, &record.Participants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
	}

	if err = json.Unmarshal(board, &record.Board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if winnerID != nil {
		record.WinnerID = *winnerID
	}
	record.FinishedAt = record.FinishedAt.UTC()

	return &record, nil
}

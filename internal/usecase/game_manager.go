package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
)

const (
	rejectUnknownIdentity = "unknown-identity"
	rejectMissingHandle   = "missing-handle"
	rejectStoreFailure    = "identity-unavailable"
)

type identityRepo interface {
	Create(ctx context.Context, identity *entity.Identity) error
	GetByHandle(ctx context.Context, handle string) (*entity.Identity, error)
}

type matchRepo interface {
	GetByRoomID(ctx context.Context, roomID string) (*entity.MatchRecord, error)
}

// Options tune identity resolution and the pending room sweeper.
type Options struct {
	AutoProvision  bool
	PendingRoomTTL time.Duration
	SweepInterval  time.Duration
}

// GameManager is the entry point every transport talks to. It resolves
// identities against the store and routes the rest to the in-memory services.
type GameManager struct {
	logger *slog.Logger

	identityRepo identityRepo
	matchRepo    matchRepo

	registry   *service.Registry
	matchmaker *service.Matchmaker
	gameplay   *service.Gameplay
	fanout     *service.Fanout

	options Options
}

func NewGameManager(
	logger *slog.Logger,
	identityRepo identityRepo,
	matchRepo matchRepo,
	registry *service.Registry,
	matchmaker *service.Matchmaker,
	gameplay *service.Gameplay,
	fanout *service.Fanout,
	options Options,
) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		identityRepo: identityRepo,
		matchRepo:    matchRepo,

		registry:   registry,
		matchmaker: matchmaker,
		gameplay:   gameplay,
		fanout:     fanout,

		options: options,
	}
}

// AnnounceIdentity - binds connID to the stored identity behind handle.
// Unknown handles are provisioned under a server generated id when auto provisioning is on.
func (that *GameManager) AnnounceIdentity(ctx context.Context, connID, handle string) (*entity.Identity, error) {
	log := that.logger.With("method", "AnnounceIdentity", "connection", connID)

	handle = strings.TrimSpace(handle)
	if handle == "" {
		that.fanout.IdentityRejected(connID, rejectMissingHandle)
		return nil, fmt.Errorf("failed to announce identity: %w", apperror.ErrIdentityNotFound)
	}

	identity, err := that.resolveIdentity(ctx, handle)
	if err != nil {
		reason := rejectStoreFailure
		if errors.Is(err, apperror.ErrIdentityNotFound) {
			reason = rejectUnknownIdentity
		}

		log.Info("identity rejected", "handle", handle, "error", err)
		that.fanout.IdentityRejected(connID, reason)

		return nil, fmt.Errorf("failed to announce identity: %w", err)
	}

	that.registry.Admit(connID, *identity)
	that.fanout.IdentityAck(connID, identity.Handle)

	log.Info("identity admitted", "handle", identity.Handle, "id", identity.ID)

	return identity, nil
}

func (that *GameManager) resolveIdentity(ctx context.Context, handle string) (*entity.Identity, error) {
	identity, err := that.identityRepo.GetByHandle(ctx, handle)
	if err == nil {
		return identity, nil
	}

	if !errors.Is(err, apperror.ErrIdentityNotFound) || !that.options.AutoProvision {
		return nil, fmt.Errorf("failed to get identity by handle: %w", err)
	}

	return that.provisionIdentity(ctx, handle)
}

func (that *GameManager) provisionIdentity(ctx context.Context, handle string) (*entity.Identity, error) {
	identity := &entity.Identity{ID: uuid.NewString(), Handle: handle}

	err := that.identityRepo.Create(ctx, identity)
	if errors.Is(err, apperror.ErrIdentityConflict) {
		// another connection provisioned the same handle first
		return that.identityRepo.GetByHandle(ctx, handle)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	that.logger.Info("identity provisioned", "handle", handle, "id", identity.ID)

	return identity, nil
}

// RequestMatch - pairs connID with a waiting room or opens a new one.
func (that *GameManager) RequestMatch(connID string) (string, error) {
	roomID, err := that.matchmaker.RequestMatch(connID)
	if err != nil {
		return "", fmt.Errorf("failed to request match: %w", err)
	}

	return roomID, nil
}

// AcceptMatch - joins the room roomID as its second participant.
// Misses are reported to the caller only; the client hears nothing.
func (that *GameManager) AcceptMatch(connID, roomID string) error {
	log := that.logger.With("method", "AcceptMatch")

	if err := that.matchmaker.CompleteRoom(roomID, connID); err != nil {
		log.Debug("accept ignored", "room", roomID, "connection", connID, "error", err)
		return fmt.Errorf("failed to accept match: %w", err)
	}

	return nil
}

// SubmitMove - applies a move; rejected moves are already reported to connID.
func (that *GameManager) SubmitMove(ctx context.Context, connID, roomID string, position int) error {
	if err := that.gameplay.ApplyMove(ctx, roomID, connID, position); err != nil {
		return fmt.Errorf("failed to submit move: %w", err)
	}

	return nil
}

// Disconnect - releases everything connID holds: its roster entry and its room.
func (that *GameManager) Disconnect(ctx context.Context, connID string) {
	log := that.logger.With("method", "Disconnect", "connection", connID)

	if roomID, released := that.gameplay.Forfeit(ctx, connID); released {
		log.Info("room released on disconnect", "room", roomID)
	}

	if session, ok := that.registry.Evict(connID); ok {
		log.Info("session closed", "handle", session.Identity.Handle)
	}
}

// OnlineUsers - returns the current roster.
func (that *GameManager) OnlineUsers() []entity.RosterEntry {
	return that.registry.Snapshot()
}

// GetMatch - returns the stored record of a finished match.
func (that *GameManager) GetMatch(ctx context.Context, roomID string) (*entity.MatchRecord, error) {
	record, err := that.matchRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return record, nil
}

// Run - sweeps expired waiting rooms until ctx is done.
func (that *GameManager) Run(ctx context.Context) {
	log := that.logger.With("method", "Run")

	ticker := time.NewTicker(that.options.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			if expired := that.matchmaker.ExpirePending(that.options.PendingRoomTTL); len(expired) > 0 {
				log.Debug("swept waiting rooms", "rooms", expired)
			}
		}
	}
}

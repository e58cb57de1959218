package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gatherly/participation-api/internal/domain"
	"github.com/gatherly/participation-api/internal/models"
)

// Store bundles the repositories over one underlying database handle. The
// composition root builds a plain Store for reads; TxRunner hands callbacks a
// transaction-scoped Store whose repositories share the same transaction.
type Store struct {
	Activities    ActivityRepository
	Participants  ParticipantRepository
	Waitlist      WaitlistRepository
	Invitations   InvitationRepository
	Confirmations ConfirmationRepository
	Logs          ParticipationLogRepository
}

// TxRunner executes units of work against the participation store. Mutations
// that touch an activity's capacity or waitlist must go through InActivityTx,
// which locks the activity row for the duration of the transaction so
// concurrent joins and promotions for one activity are serialized.
type TxRunner interface {
	InActivityTx(ctx context.Context, activityID uuid.UUID, fn func(store Store, activity models.Activity) error) error
	InTx(ctx context.Context, fn func(store Store) error) error
}

type gormTxRunner struct {
	db       *gorm.DB
	lockRows bool
}

// NewTxRunner builds a GORM-backed transaction runner. Row locking uses
// SELECT ... FOR UPDATE on the activity row; sqlite serializes writers on its
// own and rejects the clause, so locking is skipped for that dialect.
func NewTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{
		db:       db,
		lockRows: db.Dialector.Name() != "sqlite",
	}
}

func (r *gormTxRunner) InActivityTx(ctx context.Context, activityID uuid.UUID, fn func(store Store, activity models.Activity) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if r.lockRows {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var activity models.Activity
		if err := query.First(&activity, "id = ?", activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrActivityNotFound
			}
			return err
		}

		return fn(NewStore(tx), activity)
	})

	return mapContention(err)
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(store Store) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})

	return mapContention(err)
}

// NewStore builds the repository bundle over the given database handle.
func NewStore(tx *gorm.DB) Store {
	return Store{
		Activities:    NewActivityRepository(tx),
		Participants:  NewParticipantRepository(tx),
		Waitlist:      NewWaitlistRepository(tx),
		Invitations:   NewInvitationRepository(tx),
		Confirmations: NewConfirmationRepository(tx),
		Logs:          NewParticipationLogRepository(tx),
	}
}

// mapContention converts lock-wait timeouts and serialization failures into
// the retryable contention error; everything else passes through untouched.
func mapContention(err error) error {
	if err == nil {
		return nil
	}

	var domErr *domain.Error
	if errors.As(err, &domErr) {
		return err
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "lock timeout"),
		strings.Contains(message, "55p03"), // postgres lock_not_available
		strings.Contains(message, "deadlock"),
		strings.Contains(message, "40p01"), // postgres deadlock_detected
		strings.Contains(message, "database is locked"):
		return domain.ErrContention
	}

	return err
}

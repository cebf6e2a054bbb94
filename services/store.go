package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/models"
)

// UserDirectory owns user profiles and their want/sell lists. Every list
// mutation is applied atomically to a single profile.
type UserDirectory interface {
	Create(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	IdentityTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)

	// AddCard fails with models.ErrConflict when the list already holds cardId.
	AddCard(ctx context.Context, userID primitive.ObjectID, kind models.ListKind, card models.CardEntry) error
	UpdateCard(ctx context.Context, userID primitive.ObjectID, kind models.ListKind, cardID string, upd models.CardUpdate) error
	RemoveCard(ctx context.Context, userID primitive.ObjectID, kind models.ListKind, cardID string) error

	MarkInTransaction(ctx context.Context, userID primitive.ObjectID, cardID string) error
	// PullSell and PullWantsByName are settlement removals; a missing entry is not an error.
	PullSell(ctx context.Context, userID primitive.ObjectID, cardID string) error
	PullWantsByName(ctx context.Context, userID primitive.ObjectID, cardName string) error
}

type TransactionStore interface {
	Insert(ctx context.Context, tx *models.Transaction) (primitive.ObjectID, error)
	FindForParticipant(ctx context.Context, id, userID primitive.ObjectID) (*models.Transaction, error)
	// ListForParticipant returns the user's transactions, newest first.
	ListForParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error)
	SetConfirmed(ctx context.Context, id primitive.ObjectID, role models.Role) error
	// CompleteIfPending moves a fully confirmed pending transaction to
	// completed and reports whether this call performed the transition.
	CompleteIfPending(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	// SetReviewIfAbsent stores the role's review on a completed transaction
	// unless one is already there, and reports whether it was stored.
	SetReviewIfAbsent(ctx context.Context, id primitive.ObjectID, role models.Role, review models.Review) (bool, error)
	MarkReviewsCompleted(ctx context.Context, id primitive.ObjectID) error
}

// Transactor runs fn so that its store writes commit or fail together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier pushes an event to the connected sessions of the given users.
type Notifier interface {
	Notify(event string, data interface{}, userIDs ...primitive.ObjectID)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, interface{}, ...primitive.ObjectID) {}

package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/keylock"
	"card-trader/models"
)

// Events pushed to the participants of a transaction.
const (
	EventTransactionCreated   = "transaction_created"
	EventTransactionConfirmed = "transaction_confirmed"
	EventTransactionCompleted = "transaction_completed"
	EventReviewAdded          = "review_added"
)

const (
	MinRating = 1
	MaxRating = 5
)

type ReviewEvent struct {
	TransactionID primitive.ObjectID `json:"transactionId"`
	Role          models.Role        `json:"role"`
	Review        models.Review      `json:"review"`
}

// TradeService drives a transaction from proposal through settlement to reviews.
type TradeService struct {
	users      UserDirectory
	txs        TransactionStore
	transactor Transactor
	notifier   Notifier
	locks      *keylock.KeyLock
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewTradeService(users UserDirectory, txs TransactionStore, transactor Transactor, notifier Notifier, log logrus.FieldLogger) *TradeService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &TradeService{
		users:      users,
		txs:        txs,
		transactor: transactor,
		notifier:   notifier,
		locks:      keylock.New(),
		log:        log,
		now:        time.Now,
	}
}

// CreateTrade is a trade proposal. The initiator becomes the buyer and the
// counterparty the seller; BuyerWants come from the seller's sell list and
// SellerWants from the buyer's.
type CreateTrade struct {
	InitiatorID    primitive.ObjectID
	CounterpartyID primitive.ObjectID
	BuyerWants     []models.CardEntry
	SellerWants    []models.CardEntry
}

// Create stores a pending transaction and flags the traded cards. When the
// transactor is not atomic (a standalone Mongo server or the memory store), a
// failure while flagging cards returns the error but leaves the pending
// transaction stored.
func (s *TradeService) Create(ctx context.Context, req CreateTrade) (primitive.ObjectID, error) {
	if req.InitiatorID == req.CounterpartyID {
		return primitive.NilObjectID, fmt.Errorf("%w: cannot trade with yourself", models.ErrInvalidArgument)
	}

	buyer, err := s.users.FindByID(ctx, req.InitiatorID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	seller, err := s.users.FindByID(ctx, req.CounterpartyID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	tx := &models.Transaction{
		BuyerID:        buyer.ID,
		SellerID:       seller.ID,
		BuyerUsername:  buyer.Username,
		SellerUsername: seller.Username,
		BuyerWants:     nonNil(req.BuyerWants),
		SellerWants:    nonNil(req.SellerWants),
		Status:         models.StatusPending,
		CreatedAt:      s.now(),
	}

	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		id, err := s.txs.Insert(ctx, tx)
		if err != nil {
			return err
		}
		tx.ID = id

		for _, card := range tx.BuyerWants {
			if err := s.reserve(ctx, seller, card.CardID); err != nil {
				return err
			}
		}
		for _, card := range tx.SellerWants {
			if err := s.reserve(ctx, buyer, card.CardID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}

	s.log.WithFields(logrus.Fields{
		"transactionId": tx.ID.Hex(),
		"buyer":         buyer.Username,
		"seller":        seller.Username,
	}).Info("TradeService.Create.Complete")
	s.notifier.Notify(EventTransactionCreated, *tx, buyer.ID, seller.ID)
	return tx.ID, nil
}

// reserve flags owner's sell entry as part of a pending transaction. The flag
// is informational: a card missing from the list or already reserved only
// produces a warning.
func (s *TradeService) reserve(ctx context.Context, owner *models.User, cardID string) error {
	entry := findCard(owner.Sells, cardID)
	log := s.log.WithFields(logrus.Fields{"user": owner.Username, "cardId": cardID})
	switch {
	case entry == nil:
		log.Warn("TradeService.Create.CardNotListed")
		return nil
	case entry.InTransaction:
		log.Warn("TradeService.Create.CardAlreadyReserved")
	}
	return s.users.MarkInTransaction(ctx, owner.ID, cardID)
}

// Confirm records userID's confirmation and settles the trade once both
// sides have confirmed. It reports whether the transaction is completed, so a
// repeat confirm after completion also returns true without settling again.
func (s *TradeService) Confirm(ctx context.Context, transactionID, userID primitive.ObjectID) (bool, error) {
	unlock := s.locks.Lock(transactionID.Hex())
	defer unlock()

	tx, err := s.txs.FindForParticipant(ctx, transactionID, userID)
	if err != nil {
		return false, err
	}
	role, _ := tx.RoleOf(userID)

	if err := s.txs.SetConfirmed(ctx, transactionID, role); err != nil {
		return false, err
	}
	if tx, err = s.txs.FindForParticipant(ctx, transactionID, userID); err != nil {
		return false, err
	}
	s.notifier.Notify(EventTransactionConfirmed, *tx, tx.BuyerID, tx.SellerID)

	if !tx.BothConfirmed() {
		return false, nil
	}
	if tx.Status != models.StatusPending {
		return true, nil
	}

	var settled bool
	at := s.now()
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		settled = false
		won, err := s.txs.CompleteIfPending(ctx, transactionID, at)
		if err != nil || !won {
			return err
		}
		settled = true
		return s.settle(ctx, tx)
	})
	if err != nil {
		return false, fmt.Errorf("settle transaction %s: %w", transactionID.Hex(), err)
	}

	if settled {
		tx.Status = models.StatusCompleted
		tx.CompletedAt = &at
		s.log.WithField("transactionId", transactionID.Hex()).Info("TradeService.Settle.Complete")
		s.notifier.Notify(EventTransactionCompleted, *tx, tx.BuyerID, tx.SellerID)
	}
	return true, nil
}

// settle moves the traded cards: each received card leaves the giver's sell
// list and every want of the same name leaves the receiver's want list.
func (s *TradeService) settle(ctx context.Context, tx *models.Transaction) error {
	moves := []struct {
		cards    []models.CardEntry
		giver    primitive.ObjectID
		receiver primitive.ObjectID
	}{
		{tx.BuyerWants, tx.SellerID, tx.BuyerID},
		{tx.SellerWants, tx.BuyerID, tx.SellerID},
	}

	for _, m := range moves {
		for _, card := range m.cards {
			if err := s.users.PullSell(ctx, m.giver, card.CardID); err != nil {
				return err
			}
			if err := s.users.PullWantsByName(ctx, m.receiver, card.CardName); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *TradeService) AddReview(ctx context.Context, transactionID, userID primitive.ObjectID, rating int, comment string) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", models.ErrInvalidArgument, MinRating, MaxRating)
	}

	tx, err := s.txs.FindForParticipant(ctx, transactionID, userID)
	if err != nil {
		return err
	}
	if tx.Status != models.StatusCompleted {
		return fmt.Errorf("completed transaction %s: %w", transactionID.Hex(), models.ErrNotFound)
	}

	role, _ := tx.RoleOf(userID)
	if tx.ReviewBy(role) != nil {
		return fmt.Errorf("%w: transaction already reviewed", models.ErrConflict)
	}

	review := models.Review{Rating: rating, Comment: comment, Date: s.now()}
	stored, err := s.txs.SetReviewIfAbsent(ctx, transactionID, role, review)
	if err != nil {
		return err
	}
	if !stored {
		return fmt.Errorf("%w: transaction already reviewed", models.ErrConflict)
	}
	if err := s.txs.MarkReviewsCompleted(ctx, transactionID); err != nil {
		return err
	}

	event := ReviewEvent{TransactionID: transactionID, Role: role, Review: review}
	s.notifier.Notify(EventReviewAdded, event, tx.BuyerID, tx.SellerID)
	return nil
}

// List returns every transaction userID takes part in, newest first.
func (s *TradeService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	return s.txs.ListForParticipant(ctx, userID)
}

// ReviewsFor collects the reviews other users left for userID, newest first.
func (s *TradeService) ReviewsFor(ctx context.Context, userID primitive.ObjectID) ([]models.ReceivedReview, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	txs, err := s.txs.ListForParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	reviews := make([]models.ReceivedReview, 0)
	for _, tx := range txs {
		if tx.Status != models.StatusCompleted {
			continue
		}
		var (
			from   string
			review *models.Review
			cards  []models.CardEntry
		)
		if tx.SellerID == userID {
			from, review, cards = tx.BuyerUsername, tx.BuyerReview, tx.BuyerWants
		} else {
			from, review, cards = tx.SellerUsername, tx.SellerReview, tx.SellerWants
		}
		if review == nil {
			continue
		}
		reviews = append(reviews, models.ReceivedReview{
			TransactionID: tx.ID,
			FromUsername:  from,
			Rating:        review.Rating,
			Comment:       review.Comment,
			Date:          review.Date,
			Cards:         nonNil(cards),
		})
	}

	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].Date.After(reviews[j].Date)
	})
	return reviews, nil
}

func nonNil(cards []models.CardEntry) []models.CardEntry {
	if cards == nil {
		return []models.CardEntry{}
	}
	return cards
}

func findCard(cards []models.CardEntry, cardID string) *models.CardEntry {
	for i := range cards {
		if cards[i].CardID == cardID {
			return &cards[i]
		}
	}
	return nil
}

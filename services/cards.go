package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/keylock"
	"card-trader/models"
)

// CardService edits a user's want and sell lists. Edits to one user's lists
// are applied one at a time.
type CardService struct {
	users UserDirectory
	locks *keylock.KeyLock
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewCardService(users UserDirectory, log logrus.FieldLogger) *CardService {
	return &CardService{users: users, locks: keylock.New(), log: log, now: time.Now}
}

func checkKind(kind models.ListKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown list %q", models.ErrInvalidArgument, kind)
	}
	return nil
}

// normalizePrice rejects negative prices and rounds to cents.
func normalizePrice(price float64) (float64, error) {
	d := decimal.NewFromFloat(price)
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: price must not be negative", models.ErrInvalidArgument)
	}
	return d.Round(2).InexactFloat64(), nil
}

func (s *CardService) Add(ctx context.Context, userID primitive.ObjectID, kind models.ListKind, card models.CardEntry) (models.CardEntry, error) {
	if err := checkKind(kind); err != nil {
		return models.CardEntry{}, err
	}
	card.CardID = strings.TrimSpace(card.CardID)
	if card.CardID == "" || strings.TrimSpace(card.CardName) == "" {
		return models.CardEntry{}, fmt.Errorf("%w: cardId and cardName are required", models.ErrInvalidArgument)
	}
	switch {
	case card.Quantity == 0:
		card.Quantity = 1
	case card.Quantity < 0:
		return models.CardEntry{}, fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidArgument)
	}
	if card.Language == "" {
		card.Language = models.DefaultLanguage
	}
	price, err := normalizePrice(card.Price)
	if err != nil {
		return models.CardEntry{}, err
	}
	card.Price = price
	card.DateAdded = s.now()
	card.InTransaction = false

	unlock := s.locks.Lock(userID.Hex())
	defer unlock()

	if err := s.users.AddCard(ctx, userID, kind, card); err != nil {
		return models.CardEntry{}, err
	}
	s.log.WithFields(logrus.Fields{"userId": userID.Hex(), "list": kind, "cardId": card.CardID}).Debug("CardService.Add.Complete")
	return card, nil
}

func (s *CardService) Update(ctx context.Context, userID primitive.ObjectID, kind models.ListKind, cardID string, upd models.CardUpdate) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if upd.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidArgument)
	}
	if upd.Language == "" {
		upd.Language = models.DefaultLanguage
	}
	price, err := normalizePrice(upd.Price)
	if err != nil {
		return err
	}
	upd.Price = price

	unlock := s.locks.Lock(userID.Hex())
	defer unlock()
	return s.users.UpdateCard(ctx, userID, kind, cardID, upd)
}

func (s *CardService) Remove(ctx context.Context, userID primitive.ObjectID, kind models.ListKind, cardID string) error {
	if err := checkKind(kind); err != nil {
		return err
	}

	unlock := s.locks.Lock(userID.Hex())
	defer unlock()
	return s.users.RemoveCard(ctx, userID, kind, cardID)
}

// Package memory is an in-process implementation of the user directory and
// transaction store. It backs STORE=memory deployments and the test suites.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/models"
)

type Store struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*models.User
	txs   map[primitive.ObjectID]*models.Transaction

	// serializes WithinTransaction blocks
	txMu sync.Mutex
}

func New() *Store {
	return &Store{
		users: make(map[primitive.ObjectID]*models.User),
		txs:   make(map[primitive.ObjectID]*models.Transaction),
	}
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

func copyCards(cards []models.CardEntry) []models.CardEntry {
	out := make([]models.CardEntry, len(cards))
	copy(out, cards)
	return out
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Wants = copyCards(u.Wants)
	c.Sells = copyCards(u.Sells)
	return &c
}

func copyReview(r *models.Review) *models.Review {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func copyTransaction(t *models.Transaction) *models.Transaction {
	c := *t
	c.BuyerWants = copyCards(t.BuyerWants)
	c.SellerWants = copyCards(t.SellerWants)
	c.BuyerReview = copyReview(t.BuyerReview)
	c.SellerReview = copyReview(t.SellerReview)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

func (s *Store) Create(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || (user.Email != "" && u.Email == user.Email) {
			return primitive.NilObjectID, fmt.Errorf("%w: username or email already registered", models.ErrConflict)
		}
	}

	stored := copyUser(user)
	if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}
	s.users[stored.ID] = stored
	return stored.ID, nil
}

func (s *Store) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), models.ErrNotFound)
	}
	return copyUser(u), nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, models.ErrNotFound)
}

func (s *Store) IdentityTaken(_ context.Context, username, email string) (bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var usernameTaken, emailTaken bool
	for _, u := range s.users {
		usernameTaken = usernameTaken || u.Username == username
		emailTaken = emailTaken || (email != "" && u.Email == email)
	}
	return usernameTaken, emailTaken, nil
}

// list returns a pointer to the user's list of the given kind; callers hold s.mu.
func (s *Store) list(userID primitive.ObjectID, kind models.ListKind) (*[]models.CardEntry, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID.Hex(), models.ErrNotFound)
	}
	if kind == models.WantList {
		return &u.Wants, nil
	}
	return &u.Sells, nil
}

func indexOf(cards []models.CardEntry, cardID string) int {
	for i, c := range cards {
		if c.CardID == cardID {
			return i
		}
	}
	return -1
}

func (s *Store) AddCard(_ context.Context, userID primitive.ObjectID, kind models.ListKind, card models.CardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(userID, kind)
	if err != nil {
		return err
	}
	if indexOf(*list, card.CardID) >= 0 {
		return fmt.Errorf("card %s already in %s: %w", card.CardID, kind, models.ErrConflict)
	}
	*list = append(*list, card)
	return nil
}

func (s *Store) UpdateCard(_ context.Context, userID primitive.ObjectID, kind models.ListKind, cardID string, upd models.CardUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(userID, kind)
	if err != nil {
		return err
	}
	i := indexOf(*list, cardID)
	if i < 0 {
		return fmt.Errorf("card %s in %s: %w", cardID, kind, models.ErrNotFound)
	}
	c := &(*list)[i]
	c.Quantity = upd.Quantity
	c.Edition = upd.Edition
	c.Language = upd.Language
	c.Foil = upd.Foil
	c.Price = upd.Price
	c.SetCode = upd.SetCode
	return nil
}

func (s *Store) RemoveCard(_ context.Context, userID primitive.ObjectID, kind models.ListKind, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(userID, kind)
	if err != nil {
		return err
	}
	i := indexOf(*list, cardID)
	if i < 0 {
		return fmt.Errorf("card %s in %s: %w", cardID, kind, models.ErrNotFound)
	}
	*list = append((*list)[:i], (*list)[i+1:]...)
	return nil
}

func (s *Store) MarkInTransaction(_ context.Context, userID primitive.ObjectID, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(userID, models.SellList)
	if err != nil {
		return err
	}
	if i := indexOf(*list, cardID); i >= 0 {
		(*list)[i].InTransaction = true
	}
	return nil
}

func (s *Store) PullSell(_ context.Context, userID primitive.ObjectID, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(userID, models.SellList)
	if err != nil {
		return err
	}
	*list = filter(*list, func(c models.CardEntry) bool { return c.CardID != cardID })
	return nil
}

func (s *Store) PullWantsByName(_ context.Context, userID primitive.ObjectID, cardName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(userID, models.WantList)
	if err != nil {
		return err
	}
	*list = filter(*list, func(c models.CardEntry) bool { return c.CardName != cardName })
	return nil
}

func filter(cards []models.CardEntry, keep func(models.CardEntry) bool) []models.CardEntry {
	out := cards[:0]
	for _, c := range cards {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) Insert(_ context.Context, tx *models.Transaction) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyTransaction(tx)
	if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}
	s.txs[stored.ID] = stored
	return stored.ID, nil
}

func (s *Store) FindForParticipant(_ context.Context, id, userID primitive.ObjectID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.txs[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id.Hex(), models.ErrNotFound)
	}
	if _, ok := t.RoleOf(userID); !ok {
		return nil, fmt.Errorf("transaction %s: %w", id.Hex(), models.ErrNotFound)
	}
	return copyTransaction(t), nil
}

func (s *Store) ListForParticipant(_ context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, 0)
	for _, t := range s.txs {
		if _, ok := t.RoleOf(userID); ok {
			out = append(out, *copyTransaction(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) SetConfirmed(_ context.Context, id primitive.ObjectID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.txs[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id.Hex(), models.ErrNotFound)
	}
	if role == models.RoleBuyer {
		t.BuyerConfirmed = true
	} else {
		t.SellerConfirmed = true
	}
	return nil
}

func (s *Store) CompleteIfPending(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.txs[id]
	if !ok || t.Status != models.StatusPending || !t.BothConfirmed() {
		return false, nil
	}
	t.Status = models.StatusCompleted
	t.CompletedAt = &at
	return true, nil
}

func (s *Store) SetReviewIfAbsent(_ context.Context, id primitive.ObjectID, role models.Role, review models.Review) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.txs[id]
	if !ok || t.Status != models.StatusCompleted || t.ReviewBy(role) != nil {
		return false, nil
	}
	if role == models.RoleBuyer {
		t.BuyerReview = &review
	} else {
		t.SellerReview = &review
	}
	return true, nil
}

func (s *Store) MarkReviewsCompleted(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.txs[id]; ok && t.BuyerReview != nil && t.SellerReview != nil {
		t.ReviewsCompleted = true
	}
	return nil
}

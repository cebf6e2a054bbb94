package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/db/memory"
	"card-trader/models"
)

type sentEvent struct {
	Event string
	Users []primitive.ObjectID
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Notify(event string, _ interface{}, userIDs ...primitive.ObjectID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{Event: event, Users: userIDs})
}

func (n *recordingNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Event == event {
			c++
		}
	}
	return c
}

// countingStore counts settlement removals on top of the memory store.
type countingStore struct {
	*memory.Store
	pullSells atomic.Int64
}

func (c *countingStore) PullSell(ctx context.Context, userID primitive.ObjectID, cardID string) error {
	c.pullSells.Add(1)
	return c.Store.PullSell(ctx, userID, cardID)
}

// fakeClock hands out strictly increasing timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func card(id, name string) models.CardEntry {
	return models.CardEntry{CardID: id, CardName: name, Quantity: 1, Language: models.DefaultLanguage}
}

func createUser(t *testing.T, store *memory.Store, name string, wants, sells []models.CardEntry) primitive.ObjectID {
	t.Helper()
	if wants == nil {
		wants = []models.CardEntry{}
	}
	if sells == nil {
		sells = []models.CardEntry{}
	}
	id, err := store.Create(context.Background(), &models.User{
		Username: name,
		Email:    name + "@example.com",
		Wants:    wants,
		Sells:    sells,
	})
	require.NoError(t, err)
	return id
}

// scenario seeds X (wants Black Lotus, sells Counterspell) and Y (sells
// Black Lotus, wants Counterspell).
func scenario(t *testing.T, store *memory.Store) (x, y primitive.ObjectID) {
	t.Helper()
	x = createUser(t, store, "x",
		[]models.CardEntry{card("w-bl", "Black Lotus")},
		[]models.CardEntry{card("cs1", "Counterspell"), card("ll1", "Llanowar Elves")})
	y = createUser(t, store, "y",
		[]models.CardEntry{card("w-cs", "Counterspell")},
		[]models.CardEntry{card("bl1", "Black Lotus")})
	return x, y
}

func newTradeService(store *memory.Store, users UserDirectory) (*TradeService, *recordingNotifier, *test.Hook) {
	logger, hook := test.NewNullLogger()
	notifier := &recordingNotifier{}
	svc := NewTradeService(users, store, store, notifier, logger)
	svc.now = newFakeClock().Now
	return svc, notifier, hook
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/db/memory"
	"card-trader/models"
)

func cardIDs(cards []models.CardEntry) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.CardID)
	}
	return ids
}

func cardNames(cards []models.CardEntry) []string {
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		names = append(names, c.CardName)
	}
	return names
}

func TestTradeScenario(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, notifier, _ := newTradeService(store, store)
	x, y := scenario(t, store)

	id, err := svc.Create(ctx, CreateTrade{
		InitiatorID:    x,
		CounterpartyID: y,
		BuyerWants:     []models.CardEntry{card("bl1", "Black Lotus")},
		SellerWants:    []models.CardEntry{card("cs1", "Counterspell")},
	})
	require.NoError(t, err)

	xUser, _ := store.FindByID(ctx, x)
	yUser, _ := store.FindByID(ctx, y)
	assert.True(t, xUser.Sells[0].InTransaction, "cs1 reserved on the buyer side")
	assert.False(t, xUser.Sells[1].InTransaction)
	assert.True(t, yUser.Sells[0].InTransaction, "bl1 reserved on the seller side")

	tx, err := store.FindForParticipant(ctx, id, x)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Equal(t, "x", tx.BuyerUsername)
	assert.Equal(t, "y", tx.SellerUsername)
	assert.False(t, tx.BuyerConfirmed)
	assert.False(t, tx.SellerConfirmed)

	done, err := svc.Confirm(ctx, id, x)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = svc.Confirm(ctx, id, y)
	require.NoError(t, err)
	assert.True(t, done)

	xUser, _ = store.FindByID(ctx, x)
	yUser, _ = store.FindByID(ctx, y)
	assert.Equal(t, []string{"ll1"}, cardIDs(xUser.Sells))
	assert.NotContains(t, cardNames(xUser.Wants), "Black Lotus")
	assert.Empty(t, yUser.Sells)
	assert.NotContains(t, cardNames(yUser.Wants), "Counterspell")

	tx, err = store.FindForParticipant(ctx, id, y)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.NotNil(t, tx.CompletedAt)

	assert.Equal(t, 1, notifier.count(EventTransactionCreated))
	assert.Equal(t, 2, notifier.count(EventTransactionConfirmed))
	assert.Equal(t, 1, notifier.count(EventTransactionCompleted))
}

func TestCreate_Errors(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, _, _ := newTradeService(store, store)
	x, _ := scenario(t, store)

	_, err := svc.Create(ctx, CreateTrade{InitiatorID: x, CounterpartyID: primitive.NewObjectID()})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Create(ctx, CreateTrade{InitiatorID: primitive.NewObjectID(), CounterpartyID: x})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Create(ctx, CreateTrade{InitiatorID: x, CounterpartyID: x})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	list, err := svc.List(ctx, x)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_NormalizesListsAndWarnsOnReservedCards(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, _, hook := newTradeService(store, store)
	x, y := scenario(t, store)

	first, err := svc.Create(ctx, CreateTrade{InitiatorID: x, CounterpartyID: y, BuyerWants: []models.CardEntry{card("bl1", "Black Lotus")}})
	require.NoError(t, err)
	tx, err := store.FindForParticipant(ctx, first, x)
	require.NoError(t, err)
	assert.NotNil(t, tx.SellerWants)
	assert.Empty(t, tx.SellerWants)

	hook.Reset()
	_, err = svc.Create(ctx, CreateTrade{
		InitiatorID:    x,
		CounterpartyID: y,
		BuyerWants:     []models.CardEntry{card("bl1", "Black Lotus"), card("missing", "Mox Pearl")},
	})
	require.NoError(t, err, "reservation is advisory")

	var messages []string
	for _, e := range hook.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "TradeService.Create.CardAlreadyReserved")
	assert.Contains(t, messages, "TradeService.Create.CardNotListed")
}

// flagFailingStore fails every card reservation.
type flagFailingStore struct {
	*memory.Store
}

func (f flagFailingStore) MarkInTransaction(context.Context, primitive.ObjectID, string) error {
	return errors.New("write failed")
}

func TestCreate_NonAtomicStoreKeepsTransactionOnFlagFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, notifier, _ := newTradeService(store, flagFailingStore{store})
	x, y := scenario(t, store)

	id, err := svc.Create(ctx, CreateTrade{
		InitiatorID:    x,
		CounterpartyID: y,
		BuyerWants:     []models.CardEntry{card("bl1", "Black Lotus")},
	})
	require.Error(t, err)
	assert.Equal(t, primitive.NilObjectID, id)
	assert.Zero(t, notifier.count(EventTransactionCreated))

	list, err := svc.List(ctx, x)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusPending, list[0].Status)
}

func TestConfirm_NotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, _, _ := newTradeService(store, store)
	x, y := scenario(t, store)
	stranger := createUser(t, store, "z", nil, nil)

	id, err := svc.Create(ctx, CreateTrade{InitiatorID: x, CounterpartyID: y})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, id, stranger)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.Confirm(ctx, primitive.NewObjectID(), x)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConfirm_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, _, _ := newTradeService(store, store)
	x, y := scenario(t, store)

	id, err := svc.Create(ctx, CreateTrade{InitiatorID: x, CounterpartyID: y, BuyerWants: []models.CardEntry{card("bl1", "Black Lotus")}})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, id, y)
	require.NoError(t, err)
	afterFirst, _ := store.FindForParticipant(ctx, id, y)

	done, err := svc.Confirm(ctx, id, y)
	require.NoError(t, err)
	assert.False(t, done)
	afterSecond, _ := store.FindForParticipant(ctx, id, y)
	assert.Equal(t, afterFirst, afterSecond)
}

func TestConfirm_AfterCompletionDoesNotSettleAgain(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	counting := &countingStore{Store: store}
	svc, notifier, _ := newTradeService(store, counting)
	x, y := scenario(t, store)

	id, err := svc.Create(ctx, CreateTrade{InitiatorID: x, CounterpartyID: y, BuyerWants: []models.CardEntry{card("bl1", "Black Lotus")}})
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, id, x)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, id, y)
	require.NoError(t, err)

	// y relists the same card id; a late confirm must not remove it again
	require.NoError(t, store.AddCard(ctx, y, models.SellList, card("bl1", "Black Lotus")))

	done, err := svc.Confirm(ctx, id, x)
	require.NoError(t, err)
	assert.True(t, done)

	yUser, _ := store.FindByID(ctx, y)
	assert.Equal(t, []string{"bl1"}, cardIDs(yUser.Sells))
	assert.EqualValues(t, 1, counting.pullSells.Load())
	assert.Equal(t, 1, notifier.count(EventTransactionCompleted))
}

func TestConfirm_ConcurrentSettlesExactlyOnce(t *testing.T) {
	ctx := context.Background()

	for _, shared := range []bool{true, false} {
		store := memory.New()
		counting := &countingStore{Store: store}
		first, notifier, _ := newTradeService(store, counting)
		second := first
		if !shared {
			// separate instances share only the store, like two processes
			second, _, _ = newTradeService(store, counting)
			second.notifier = notifier
		}

		const trades = 25
		x := createUser(t, store, "x", nil, nil)
		y := createUser(t, store, "y", nil, nil)
		ids := make([]primitive.ObjectID, 0, trades)
		for i := 0; i < trades; i++ {
			bl := card(primitive.NewObjectID().Hex(), "Black Lotus")
			cs := card(primitive.NewObjectID().Hex(), "Counterspell")
			require.NoError(t, store.AddCard(ctx, y, models.SellList, bl))
			require.NoError(t, store.AddCard(ctx, x, models.SellList, cs))

			id, err := first.Create(ctx, CreateTrade{
				InitiatorID:    x,
				CounterpartyID: y,
				BuyerWants:     []models.CardEntry{bl},
				SellerWants:    []models.CardEntry{cs},
			})
			require.NoError(t, err)
			ids = append(ids, id)
		}

		var wg sync.WaitGroup
		for i, id := range ids {
			a, b := x, y
			if i%2 == 1 {
				a, b = y, x
			}
			wg.Add(2)
			go func(id, user primitive.ObjectID) {
				defer wg.Done()
				_, err := first.Confirm(ctx, id, user)
				assert.NoError(t, err)
			}(id, a)
			go func(id, user primitive.ObjectID) {
				defer wg.Done()
				_, err := second.Confirm(ctx, id, user)
				assert.NoError(t, err)
			}(id, b)
		}
		wg.Wait()

		for _, id := range ids {
			tx, err := store.FindForParticipant(ctx, id, x)
			require.NoError(t, err)
			assert.Equal(t, models.StatusCompleted, tx.Status)
		}
		assert.EqualValues(t, 2*trades, counting.pullSells.Load(), "each card removed once")
		assert.Equal(t, trades, notifier.count(EventTransactionCompleted))

		xUser, _ := store.FindByID(ctx, x)
		yUser, _ := store.FindByID(ctx, y)
		assert.Empty(t, xUser.Sells)
		assert.Empty(t, yUser.Sells)
	}
}

func completedTrade(t *testing.T, svc *TradeService, x, y primitive.ObjectID) primitive.ObjectID {
	t.Helper()
	ctx := context.Background()
	id, err := svc.Create(ctx, CreateTrade{InitiatorID: x, CounterpartyID: y, BuyerWants: []models.CardEntry{card("bl1", "Black Lotus")}})
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, id, x)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, id, y)
	require.NoError(t, err)
	return id
}

func TestAddReview_Gating(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, notifier, _ := newTradeService(store, store)
	x, y := scenario(t, store)

	pending, err := svc.Create(ctx, CreateTrade{InitiatorID: x, CounterpartyID: y})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.AddReview(ctx, pending, x, 3, "too early"), models.ErrNotFound)

	id := completedTrade(t, svc, x, y)

	for _, rating := range []int{0, 6, -1} {
		assert.ErrorIs(t, svc.AddReview(ctx, id, x, rating, ""), models.ErrInvalidArgument, "rating %d", rating)
	}
	stranger := createUser(t, store, "z", nil, nil)
	assert.ErrorIs(t, svc.AddReview(ctx, id, stranger, 3, ""), models.ErrNotFound)

	require.NoError(t, svc.AddReview(ctx, id, x, 3, "fine"))
	assert.ErrorIs(t, svc.AddReview(ctx, id, x, 5, "again"), models.ErrConflict)

	tx, _ := store.FindForParticipant(ctx, id, x)
	require.NotNil(t, tx.BuyerReview)
	assert.Equal(t, 3, tx.BuyerReview.Rating)
	assert.Equal(t, "fine", tx.BuyerReview.Comment)
	assert.False(t, tx.ReviewsCompleted)

	require.NoError(t, svc.AddReview(ctx, id, y, 5, "great"))
	tx, _ = store.FindForParticipant(ctx, id, x)
	assert.True(t, tx.ReviewsCompleted)
	assert.Equal(t, 2, notifier.count(EventReviewAdded))
}

func TestAddReview_ConcurrentDuplicatesConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, _, _ := newTradeService(store, store)
	x, y := scenario(t, store)
	id := completedTrade(t, svc, x, y)

	const attempts = 10
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			errs <- svc.AddReview(ctx, id, y, rating, "")
		}(i%5 + 1)
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, models.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)
}

func TestListAndReviewsFor(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, _, _ := newTradeService(store, store)
	x, y := scenario(t, store)

	first := completedTrade(t, svc, x, y)
	second, err := svc.Create(ctx, CreateTrade{InitiatorID: y, CounterpartyID: x, SellerWants: []models.CardEntry{card("ll1", "Llanowar Elves")}})
	require.NoError(t, err)

	list, err := svc.List(ctx, x)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID, "newest first")
	assert.Equal(t, first, list[1].ID)

	require.NoError(t, svc.AddReview(ctx, first, x, 4, "quick shipping"))

	reviews, err := svc.ReviewsFor(ctx, y)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "x", reviews[0].FromUsername)
	assert.Equal(t, 4, reviews[0].Rating)
	assert.Equal(t, []string{"bl1"}, cardIDs(reviews[0].Cards))

	reviews, err = svc.ReviewsFor(ctx, x)
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)

	_, err = svc.ReviewsFor(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

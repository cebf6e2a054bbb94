package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"card-trader/auth"
	"card-trader/db/memory"
	"card-trader/models"
)

func newAccountService(store *memory.Store) (*AccountService, *auth.TokenIssuer) {
	logger, _ := test.NewNullLogger()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	svc := NewAccountService(store, tokens, logger)
	svc.cost = bcrypt.MinCost
	return svc, tokens
}

func TestAccountService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, tokens := newAccountService(store)

	id, err := svc.Register(ctx, Registration{Username: "alice", Email: "Alice@Example.com", Password: "hunter2"})
	require.NoError(t, err)

	user, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "hunter2", user.PasswordHash)
	assert.NotNil(t, user.Wants)
	assert.NotNil(t, user.Sells)

	session, err := svc.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Username)

	userID, claims, err := tokens.Authenticate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, id, userID)
	assert.Equal(t, "alice", claims.Username)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = svc.Login(ctx, "bob", "hunter2")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestAccountService_RegisterConflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, _ := newAccountService(store)

	_, err := svc.Register(ctx, Registration{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Registration{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.ErrorIs(t, err, models.ErrConflict)

	var conflict *IdentityConflict
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []string{"email already registered", "username already registered"}, conflict.Problems)

	_, err = svc.Register(ctx, Registration{Username: "", Email: "x@example.com", Password: "pw"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestAccountService_Profiles(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, _ := newAccountService(store)
	id := createUser(t, store, "alice", []models.CardEntry{card("c1", "Island")}, nil)

	me, err := svc.Profile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)

	public, err := svc.PublicProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, public.ID)
	assert.Len(t, public.Wants, 1)
	assert.NotNil(t, public.Sells)

	_, err = svc.PublicProfile(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"card-trader/auth"
	"card-trader/models"
)

var errBadCredentials = fmt.Errorf("%w: invalid username or password", models.ErrInvalidArgument)

// IdentityConflict lists every identity field that is already registered.
type IdentityConflict struct {
	Problems []string
}

func (e *IdentityConflict) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *IdentityConflict) Unwrap() error {
	return models.ErrConflict
}

type Registration struct {
	Username string
	Email    string
	Password string
}

type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type AccountService struct {
	users  UserDirectory
	tokens *auth.TokenIssuer
	log    logrus.FieldLogger
	cost   int
	now    func() time.Time
}

func NewAccountService(users UserDirectory, tokens *auth.TokenIssuer, log logrus.FieldLogger) *AccountService {
	return &AccountService{users: users, tokens: tokens, log: log, cost: bcrypt.DefaultCost, now: time.Now}
}

func (s *AccountService) Register(ctx context.Context, reg Registration) (primitive.ObjectID, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(strings.ToLower(reg.Email))
	if reg.Username == "" || reg.Email == "" || reg.Password == "" {
		return primitive.NilObjectID, fmt.Errorf("%w: username, email and password are required", models.ErrInvalidArgument)
	}

	usernameTaken, emailTaken, err := s.users.IdentityTaken(ctx, reg.Username, reg.Email)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if usernameTaken || emailTaken {
		conflict := &IdentityConflict{}
		if emailTaken {
			conflict.Problems = append(conflict.Problems, "email already registered")
		}
		if usernameTaken {
			conflict.Problems = append(conflict.Problems, "username already registered")
		}
		return primitive.NilObjectID, conflict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := s.users.Create(ctx, &models.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: string(hash),
		RegisteredAt: s.now(),
		Wants:        []models.CardEntry{},
		Sells:        []models.CardEntry{},
	})
	if err != nil {
		return primitive.NilObjectID, err
	}

	s.log.WithFields(logrus.Fields{"userId": id.Hex(), "username": reg.Username}).Info("AccountService.Register.Complete")
	return id, nil
}

func (s *AccountService) Login(ctx context.Context, username, password string) (Session, error) {
	if username == "" || password == "" {
		return Session{}, fmt.Errorf("%w: username and password are required", models.ErrInvalidArgument)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return Session{}, errBadCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, errBadCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Username: user.Username}, nil
}

// Profile returns the caller's own profile.
func (s *AccountService) Profile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Wants == nil {
		user.Wants = []models.CardEntry{}
	}
	if user.Sells == nil {
		user.Sells = []models.CardEntry{}
	}
	return user, nil
}

func (s *AccountService) PublicProfile(ctx context.Context, username string) (models.PublicProfile, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return models.PublicProfile{}, err
	}
	return user.Public(), nil
}

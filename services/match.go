package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/matching"
	"card-trader/models"
)

// MatchService compares the caller's lists with another user's.
type MatchService struct {
	users UserDirectory
}

func NewMatchService(users UserDirectory) *MatchService {
	return &MatchService{users: users}
}

func (s *MatchService) pair(ctx context.Context, userID primitive.ObjectID, username string) (*models.User, *models.User, error) {
	me, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	other, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	return me, other, nil
}

func (s *MatchService) Matches(ctx context.Context, userID primitive.ObjectID, username string) (matching.Summary, error) {
	me, other, err := s.pair(ctx, userID, username)
	if err != nil {
		return matching.Summary{}, err
	}
	return matching.ComputeMatches(me, other), nil
}

func (s *MatchService) MatchingCards(ctx context.Context, userID primitive.ObjectID, username string) (matching.MatchingCards, error) {
	me, other, err := s.pair(ctx, userID, username)
	if err != nil {
		return matching.MatchingCards{}, err
	}
	return matching.ComputeMatchingCards(me, other), nil
}

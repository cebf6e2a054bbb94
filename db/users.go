package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"card-trader/models"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(database *mongo.Database) *UserRepository {
	return &UserRepository{coll: database.Collection(UsersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	doc := *user
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.Wants == nil {
		doc.Wants = []models.CardEntry{}
	}
	if doc.Sells == nil {
		doc.Sells = []models.CardEntry{}
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, fmt.Errorf("%w: username or email already registered", models.ErrConflict)
		}
		return primitive.NilObjectID, err
	}
	return doc.ID, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, what string) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", what, models.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id.Hex())
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username}, fmt.Sprintf("%q", username))
}

func (r *UserRepository) IdentityTaken(ctx context.Context, username, email string) (bool, bool, error) {
	usernameCount, err := r.coll.CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return false, false, err
	}
	if email == "" {
		return usernameCount > 0, false, nil
	}
	emailCount, err := r.coll.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, false, err
	}
	return usernameCount > 0, emailCount > 0, nil
}

// missing tells a lost conditional update on userID apart: no such user
// yields ErrNotFound, otherwise the entry condition failed and miss is returned.
func (r *UserRepository) missing(ctx context.Context, userID primitive.ObjectID, miss error) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID.Hex(), models.ErrNotFound)
	}
	return miss
}

func (r *UserRepository) AddCard(ctx context.Context, userID primitive.ObjectID, kind models.ListKind, card models.CardEntry) error {
	filter := bson.M{
		"_id":                    userID,
		string(kind) + ".cardId": bson.M{"$ne": card.CardID},
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$push": bson.M{string(kind): card}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missing(ctx, userID, fmt.Errorf("card %s already in %s: %w", card.CardID, kind, models.ErrConflict))
	}
	return nil
}

func (r *UserRepository) UpdateCard(ctx context.Context, userID primitive.ObjectID, kind models.ListKind, cardID string, upd models.CardUpdate) error {
	prefix := string(kind) + ".$."
	filter := bson.M{"_id": userID, string(kind) + ".cardId": cardID}
	update := bson.M{"$set": bson.M{
		prefix + "quantity": upd.Quantity,
		prefix + "edition":  upd.Edition,
		prefix + "language": upd.Language,
		prefix + "foil":     upd.Foil,
		prefix + "price":    upd.Price,
		prefix + "setCode":  upd.SetCode,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missing(ctx, userID, fmt.Errorf("card %s in %s: %w", cardID, kind, models.ErrNotFound))
	}
	return nil
}

func (r *UserRepository) RemoveCard(ctx context.Context, userID primitive.ObjectID, kind models.ListKind, cardID string) error {
	filter := bson.M{"_id": userID, string(kind) + ".cardId": cardID}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$pull": bson.M{string(kind): bson.M{"cardId": cardID}}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missing(ctx, userID, fmt.Errorf("card %s in %s: %w", cardID, kind, models.ErrNotFound))
	}
	return nil
}

func (r *UserRepository) MarkInTransaction(ctx context.Context, userID primitive.ObjectID, cardID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID, "sells.cardId": cardID},
		bson.M{"$set": bson.M{"sells.$.inTransaction": true}},
	)
	return err
}

func (r *UserRepository) PullSell(ctx context.Context, userID primitive.ObjectID, cardID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"sells": bson.M{"cardId": cardID}}},
	)
	return err
}

func (r *UserRepository) PullWantsByName(ctx context.Context, userID primitive.ObjectID, cardName string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"wants": bson.M{"cardName": cardName}}},
	)
	return err
}

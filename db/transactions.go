package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"card-trader/models"
)

type TransactionRepository struct {
	coll *mongo.Collection
}

func NewTransactionRepository(database *mongo.Database) *TransactionRepository {
	return &TransactionRepository{coll: database.Collection(TransactionsCollection)}
}

func participant(userID primitive.ObjectID) bson.A {
	return bson.A{bson.M{"buyerId": userID}, bson.M{"sellerId": userID}}
}

func (r *TransactionRepository) Insert(ctx context.Context, tx *models.Transaction) (primitive.ObjectID, error) {
	doc := *tx
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return primitive.NilObjectID, err
	}
	return doc.ID, nil
}

func (r *TransactionRepository) FindForParticipant(ctx context.Context, id, userID primitive.ObjectID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "$or": participant(userID)}).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("transaction %s: %w", id.Hex(), models.ErrNotFound)
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) ListForParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"$or": participant(userID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	txs := make([]models.Transaction, 0)
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *TransactionRepository) SetConfirmed(ctx context.Context, id primitive.ObjectID, role models.Role) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{role.ConfirmedField(): true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("transaction %s: %w", id.Hex(), models.ErrNotFound)
	}
	return nil
}

func (r *TransactionRepository) CompleteIfPending(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	filter := bson.M{
		"_id":             id,
		"status":          models.StatusPending,
		"buyerConfirmed":  true,
		"sellerConfirmed": true,
	}
	update := bson.M{"$set": bson.M{"status": models.StatusCompleted, "completedAt": at}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *TransactionRepository) SetReviewIfAbsent(ctx context.Context, id primitive.ObjectID, role models.Role, review models.Review) (bool, error) {
	filter := bson.M{
		"_id":              id,
		"status":           models.StatusCompleted,
		role.ReviewField(): bson.M{"$exists": false},
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{role.ReviewField(): review}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *TransactionRepository) MarkReviewsCompleted(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{
		"_id":          id,
		"buyerReview":  bson.M{"$exists": true},
		"sellerReview": bson.M{"$exists": true},
	}
	_, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"reviewsCompleted": true}})
	return err
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
)

// Role is the side a participant plays in a transaction. The buyer is
// whoever created it; the economic direction lives in the card lists.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// ConfirmedField and ReviewField give the document field owned by a role.
func (r Role) ConfirmedField() string {
	if r == RoleBuyer {
		return "buyerConfirmed"
	}
	return "sellerConfirmed"
}

func (r Role) ReviewField() string {
	if r == RoleBuyer {
		return "buyerReview"
	}
	return "sellerReview"
}

type Review struct {
	Rating  int       `json:"rating" bson:"rating"`
	Comment string    `json:"comment" bson:"comment"`
	Date    time.Time `json:"date" bson:"date"`
}

type Transaction struct {
	ID               primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	BuyerID          primitive.ObjectID `json:"buyerId" bson:"buyerId"`
	SellerID         primitive.ObjectID `json:"sellerId" bson:"sellerId"`
	BuyerUsername    string             `json:"buyerUsername" bson:"buyerUsername"`
	SellerUsername   string             `json:"sellerUsername" bson:"sellerUsername"`
	BuyerWants       []CardEntry        `json:"buyerWants" bson:"buyerWants"`
	SellerWants      []CardEntry        `json:"sellerWants" bson:"sellerWants"`
	BuyerConfirmed   bool               `json:"buyerConfirmed" bson:"buyerConfirmed"`
	SellerConfirmed  bool               `json:"sellerConfirmed" bson:"sellerConfirmed"`
	Status           TransactionStatus  `json:"status" bson:"status"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	CompletedAt      *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	BuyerReview      *Review            `json:"buyerReview,omitempty" bson:"buyerReview,omitempty"`
	SellerReview     *Review            `json:"sellerReview,omitempty" bson:"sellerReview,omitempty"`
	ReviewsCompleted bool               `json:"reviewsCompleted" bson:"reviewsCompleted"`
}

// RoleOf reports which side userID plays, or false when it is not a participant.
func (t *Transaction) RoleOf(userID primitive.ObjectID) (Role, bool) {
	switch userID {
	case t.BuyerID:
		return RoleBuyer, true
	case t.SellerID:
		return RoleSeller, true
	}
	return "", false
}

func (t *Transaction) BothConfirmed() bool {
	return t.BuyerConfirmed && t.SellerConfirmed
}

func (t *Transaction) ReviewBy(r Role) *Review {
	if r == RoleBuyer {
		return t.BuyerReview
	}
	return t.SellerReview
}

// ReceivedReview is a review as seen by the user it is about.
type ReceivedReview struct {
	TransactionID primitive.ObjectID `json:"transactionId"`
	FromUsername  string             `json:"fromUsername"`
	Rating        int                `json:"rating"`
	Comment       string             `json:"comment"`
	Date          time.Time          `json:"date"`
	Cards         []CardEntry        `json:"cards"`
}

package models

import (
	"time"
)

// ListKind names one of the two card lists every user owns.
type ListKind string

const (
	WantList ListKind = "wants"
	SellList ListKind = "sells"
)

func (k ListKind) Valid() bool {
	return k == WantList || k == SellList
}

const DefaultLanguage = "English"

type CardEntry struct {
	CardID        string    `json:"cardId" bson:"cardId"`
	CardName      string    `json:"cardName" bson:"cardName"`
	Quantity      int       `json:"quantity" bson:"quantity"`
	SetCode       string    `json:"setCode" bson:"setCode"`
	Edition       string    `json:"edition" bson:"edition"`
	Language      string    `json:"language" bson:"language"`
	Foil          bool      `json:"foil" bson:"foil"`
	Price         float64   `json:"price" bson:"price"`
	DateAdded     time.Time `json:"dateAdded" bson:"dateAdded"`
	InTransaction bool      `json:"inTransaction,omitempty" bson:"inTransaction,omitempty"`
}

// CardUpdate carries the mutable attributes of a list entry. Identity
// (cardId, cardName) never changes after insert.
type CardUpdate struct {
	Quantity int     `json:"quantity" bson:"quantity"`
	Edition  string  `json:"edition" bson:"edition"`
	Language string  `json:"language" bson:"language"`
	Foil     bool    `json:"foil" bson:"foil"`
	Price    float64 `json:"price" bson:"price"`
	SetCode  string  `json:"setCode" bson:"setCode"`
}

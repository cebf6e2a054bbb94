package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Username     string             `json:"username" bson:"username"`
	Email        string             `json:"email,omitempty" bson:"email"`
	PasswordHash string             `json:"-" bson:"password"`
	RegisteredAt time.Time          `json:"registeredAt" bson:"registeredAt"`
	Wants        []CardEntry        `json:"wants" bson:"wants"`
	Sells        []CardEntry        `json:"sells" bson:"sells"`
}

// PublicProfile is what other users get to see.
type PublicProfile struct {
	ID       primitive.ObjectID `json:"_id"`
	Username string             `json:"username"`
	Wants    []CardEntry        `json:"wants"`
	Sells    []CardEntry        `json:"sells"`
}

func (u *User) Public() PublicProfile {
	p := PublicProfile{ID: u.ID, Username: u.Username, Wants: u.Wants, Sells: u.Sells}
	if p.Wants == nil {
		p.Wants = []CardEntry{}
	}
	if p.Sells == nil {
		p.Sells = []CardEntry{}
	}
	return p
}

// List returns the user's list of the given kind.
func (u *User) List(kind ListKind) []CardEntry {
	if kind == WantList {
		return u.Wants
	}
	return u.Sells
}

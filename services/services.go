// Package services holds the marketplace use cases. Each service is built
// from store interfaces so the same code runs on MongoDB and in memory.
package services

import (
	"github.com/sirupsen/logrus"

	"card-trader/auth"
)

type Services struct {
	Accounts *AccountService
	Cards    *CardService
	Matches  *MatchService
	Trades   *TradeService
}

func New(users UserDirectory, txs TransactionStore, transactor Transactor, notifier Notifier, tokens *auth.TokenIssuer, log logrus.FieldLogger) *Services {
	return &Services{
		Accounts: NewAccountService(users, tokens, log),
		Cards:    NewCardService(users, log),
		Matches:  NewMatchService(users),
		Trades:   NewTradeService(users, txs, transactor, notifier, log),
	}
}

// Package bank models the engine's fungible-payment ledger: per-asset balance
// and allowance books. The native currency shares the balance book under the
// zero-address asset key.
package bank

import (
	"time"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/ledger"
)

type Balance struct {
	Asset     domain.Address `json:"asset" bson:"asset"`
	Holder    domain.Address `json:"holder" bson:"holder"`
	Amount    string         `json:"amount" bson:"amount"`
	UpdatedAt time.Time      `json:"updatedAt" bson:"updatedAt"`
}

type BalanceId struct {
	Asset  domain.Address `bson:"asset"`
	Holder domain.Address `bson:"holder"`
}

func (b *Balance) ToId() BalanceId {
	return BalanceId{Asset: b.Asset, Holder: b.Holder}
}

// Allowance is the amount the owner has authorized the spender to move on
// their behalf. Escrowing a fungible-token bid consumes it.
type Allowance struct {
	Asset     domain.Address `json:"asset" bson:"asset"`
	Owner     domain.Address `json:"owner" bson:"owner"`
	Spender   domain.Address `json:"spender" bson:"spender"`
	Amount    string         `json:"amount" bson:"amount"`
	UpdatedAt time.Time      `json:"updatedAt" bson:"updatedAt"`
}

type AllowanceId struct {
	Asset   domain.Address `bson:"asset"`
	Owner   domain.Address `bson:"owner"`
	Spender domain.Address `bson:"spender"`
}

func (a *Allowance) ToId() AllowanceId {
	return AllowanceId{Asset: a.Asset, Owner: a.Owner, Spender: a.Spender}
}

type Repo interface {
	// GetBalance returns a zero balance when no entry exists
	GetBalance(c ctx.Ctx, id BalanceId) (*Balance, error)
	SetBalance(c ctx.Ctx, id BalanceId, amount string) error
	// GetAllowance returns a zero allowance when no entry exists
	GetAllowance(c ctx.Ctx, id AllowanceId) (*Allowance, error)
	SetAllowance(c ctx.Ctx, id AllowanceId, amount string) error
}

type UseCase interface {
	ledger.PaymentSource

	// Deposit credits freshly attached value to a holder's book balance
	Deposit(c ctx.Ctx, asset, holder domain.Address, amount string) (*Balance, error)
	// Approve authorizes spender to move up to amount of owner's funds
	Approve(c ctx.Ctx, asset, owner, spender domain.Address, amount string) (*Allowance, error)
	BalanceOf(c ctx.Ctx, asset, holder domain.Address) (*Balance, error)
	AllowanceOf(c ctx.Ctx, asset, owner, spender domain.Address) (*Allowance, error)
}

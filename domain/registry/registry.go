// Package registry models the asset-ownership registry the engine escrows
// assets through: who owns each (collection, tokenID) and which operators an
// owner has approved to move their assets.
package registry

import (
	"time"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	"github.com/auctionx/goapi/domain/ledger"
)

type Holding struct {
	Collection domain.Address `json:"collection" bson:"collection"`
	TokenId    domain.TokenId `json:"tokenId" bson:"tokenID"`
	Owner      domain.Address `json:"owner" bson:"owner"`
	UpdatedAt  time.Time      `json:"updatedAt" bson:"updatedAt"`
}

func (h *Holding) ToId() auction.Id {
	return auction.Id{Collection: h.Collection, TokenId: h.TokenId}
}

// OperatorApproval grants an operator the right to move any of the owner's
// assets in a collection.
type OperatorApproval struct {
	Collection domain.Address `json:"collection" bson:"collection"`
	Owner      domain.Address `json:"owner" bson:"owner"`
	Operator   domain.Address `json:"operator" bson:"operator"`
	Approved   bool           `json:"approved" bson:"approved"`
	UpdatedAt  time.Time      `json:"updatedAt" bson:"updatedAt"`
}

type ApprovalId struct {
	Collection domain.Address `bson:"collection"`
	Owner      domain.Address `bson:"owner"`
	Operator   domain.Address `bson:"operator"`
}

func (a *OperatorApproval) ToId() ApprovalId {
	return ApprovalId{Collection: a.Collection, Owner: a.Owner, Operator: a.Operator}
}

type Repo interface {
	FindHolding(c ctx.Ctx, id auction.Id) (*Holding, error)
	UpsertHolding(c ctx.Ctx, h *Holding) error
	FindApproval(c ctx.Ctx, id ApprovalId) (*OperatorApproval, error)
	UpsertApproval(c ctx.Ctx, a *OperatorApproval) error
}

type UseCase interface {
	ledger.AssetCustody

	// Mint records a new asset owned by owner. Fails with ErrConflict when
	// the key already exists.
	Mint(c ctx.Ctx, id auction.Id, owner domain.Address) (*Holding, error)
	// SetApproval grants or revokes operator rights over owner's assets in
	// a collection.
	SetApproval(c ctx.Ctx, collection domain.Address, owner, operator domain.Address, approved bool) error
	IsApproved(c ctx.Ctx, collection domain.Address, owner, operator domain.Address) (bool, error)
}

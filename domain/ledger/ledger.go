// Package ledger declares the contracts the auction engine holds with its two
// external ledgers: the asset-custody registry and the payment ledger. The
// engine treats both as opaque; their failures surface as
// domain.ErrCustodyTransferFailed / domain.ErrPaymentTransferFailed.
package ledger

import (
	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
)

// AssetCustody moves custody of a single non-fungible asset. Implementations
// must fail loudly, never silently no-op, when the transfer is unauthorized.
type AssetCustody interface {
	// TakeCustody moves the asset from `from` into engine escrow. Fails
	// unless `from` owns the asset and has approved the engine operator.
	TakeCustody(c ctx.Ctx, id auction.Id, from domain.Address) error
	// ReleaseCustody moves the asset out of engine escrow to `to`.
	ReleaseCustody(c ctx.Ctx, id auction.Id, to domain.Address) error
	QueryOwner(c ctx.Ctx, id auction.Id) (domain.Address, error)
}

// PaymentLedger moves value in a single payment asset, bound at resolution
// time. Two variants exist: the native-currency ledger and the
// fungible-token ledger, which additionally requires the payer to have
// pre-authorized the engine's escrow account.
type PaymentLedger interface {
	// Escrow moves amount from the payer into engine escrow.
	Escrow(c ctx.Ctx, from domain.Address, amount string) error
	// Credit pays amount out of engine escrow to a recipient.
	Credit(c ctx.Ctx, to domain.Address, amount string) error
	// Refund returns amount out of engine escrow to an outbid or withdrawn
	// bidder.
	Refund(c ctx.Ctx, to domain.Address, amount string) error
	// Reclaim reverses an earlier Credit in the same engine operation,
	// moving amount from the recipient back into escrow. The engine uses it
	// only to compensate a partially applied settlement; it never reaches
	// untrusted callers.
	Reclaim(c ctx.Ctx, from domain.Address, amount string) error
}

// PaymentSource resolves the ledger variant for an auction's payment asset.
// domain.EmptyAddress selects the native-currency variant.
type PaymentSource interface {
	ForAsset(asset domain.Address) PaymentLedger
}

package auction

import (
	"time"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/domain"
)

type Id struct {
	Collection domain.Address `json:"collection" bson:"collection"`
	TokenId    domain.TokenId `json:"tokenId" bson:"tokenID"`
}

func (id Id) ToLower() Id {
	return Id{
		Collection: id.Collection.ToLower(),
		TokenId:    id.TokenId,
	}
}

// Auction is the per-asset state record. At most one live record exists per
// (collection, tokenID) key; the key is released for reuse on settlement or
// withdrawal.
type Auction struct {
	Collection domain.Address `json:"collection" bson:"collection"`
	TokenId    domain.TokenId `json:"tokenId" bson:"tokenID"`

	// Seller stays empty while the record only exists because of an early
	// bid. It is set by the seller's creation call.
	Seller domain.Address `json:"seller" bson:"seller"`

	// PaymentAsset is fixed for the auction's lifetime.
	// domain.EmptyAddress denotes the native currency.
	PaymentAsset domain.Address `json:"paymentAsset" bson:"paymentAsset"`

	// amounts are base-unit integers serialized as decimal strings
	MinPrice    string `json:"minPrice" bson:"minPrice"`
	BuyNowPrice string `json:"buyNowPrice" bson:"buyNowPrice"` // "0" disables buy now

	BidIncreaseBps   int64 `json:"bidIncreaseBps" bson:"bidIncreaseBps"`
	BidPeriodSeconds int64 `json:"bidPeriodSeconds" bson:"bidPeriodSeconds"`

	// EndTime is nil until a bid meets MinPrice. No settlement is possible
	// while it is unset.
	EndTime *time.Time `json:"endTime" bson:"endTime"`

	HighestBid    string         `json:"highestBid" bson:"highestBid"` // "0" if none
	HighestBidder domain.Address `json:"highestBidder" bson:"highestBidder"`

	// parallel lists; FeeBps sums to at most 10000
	FeeRecipients []domain.Address `json:"feeRecipients" bson:"feeRecipients"`
	FeeBps        []int64          `json:"feeBps" bson:"feeBps"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (a *Auction) ToId() Id {
	return Id{Collection: a.Collection, TokenId: a.TokenId}
}

func (a *Auction) LowerCase() {
	a.Collection = a.Collection.ToLower()
	a.Seller = a.Seller.ToLower()
	a.PaymentAsset = a.PaymentAsset.ToLower()
	a.HighestBidder = a.HighestBidder.ToLower()
	for i, r := range a.FeeRecipients {
		a.FeeRecipients[i] = r.ToLower()
	}
}

// Listed reports whether the seller has formally created the auction.
func (a *Auction) Listed() bool {
	return !a.Seller.IsEmpty()
}

func (a *Auction) HasBid() bool {
	return !a.HighestBidder.IsEmpty()
}

// Started reports whether the auction clock is running, which happens once a
// bid meets the minimum price.
func (a *Auction) Started() bool {
	return a.EndTime != nil
}

func (a *Auction) EndedAt(now time.Time) bool {
	return a.EndTime != nil && !now.Before(*a.EndTime)
}

func (a *Auction) BidPeriod() time.Duration {
	return time.Duration(a.BidPeriodSeconds) * time.Second
}

func (a *Auction) BuyNowEnabled() bool {
	return !IsZeroAmount(a.BuyNowPrice)
}

// MinPriceMet reports whether the standing bid meets the minimum price.
func (a *Auction) MinPriceMet() bool {
	if !a.HasBid() {
		return false
	}
	return CompareAmounts(a.HighestBid, a.MinPrice) >= 0
}

// BuyNowMet reports whether the standing bid meets the buy now price.
func (a *Auction) BuyNowMet() bool {
	if !a.HasBid() || !a.BuyNowEnabled() {
		return false
	}
	return CompareAmounts(a.HighestBid, a.BuyNowPrice) >= 0
}

// Defaults carries the engine-level auction parameters. Values are read from
// configuration at startup and injected into the usecase.
type Defaults struct {
	// BidIncreaseBps is applied on the default creation path and to bids at
	// the early-bid stage, where no auction-specific percentage exists yet.
	BidIncreaseBps int64
	// MinSettableIncreaseBps is the floor a caller-supplied increase
	// percentage must exceed
	MinSettableIncreaseBps int64
	BidPeriod              time.Duration
	// SnipeWindow is the near-deadline window within which an accepted bid
	// extends the auction. Zero means "use the auction's own bid period".
	SnipeWindow time.Duration
}

type FindAllOptions struct {
	SortBy       *string
	SortDir      *domain.SortDir
	Offset       *int32
	Limit        *int32
	Seller       *domain.Address
	PaymentAsset *domain.Address
	Bidder       *domain.Address
	Collection   *domain.Address
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func WithPagination(offset int32, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

func WithSort(sortBy string, sortDir domain.SortDir) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.SortBy = &sortBy
		options.SortDir = &sortDir
		return nil
	}
}

func WithSeller(seller domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Seller = seller.ToLowerPtr()
		return nil
	}
}

func WithBidder(bidder domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Bidder = bidder.ToLowerPtr()
		return nil
	}
}

func WithCollection(collection domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Collection = collection.ToLowerPtr()
		return nil
	}
}

func WithPaymentAsset(asset domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.PaymentAsset = asset.ToLowerPtr()
		return nil
	}
}

type Repo interface {
	FindOne(c ctx.Ctx, id Id) (*Auction, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
	Upsert(c ctx.Ctx, a *Auction) error
	Remove(c ctx.Ctx, id Id) error
}

type CreateAuctionPayload struct {
	Collection   domain.Address   `json:"collection" validate:"required"`
	TokenId      domain.TokenId   `json:"tokenId" validate:"required"`
	PaymentAsset domain.Address   `json:"paymentAsset"`
	MinPrice     string           `json:"minPrice" validate:"required"`
	BuyNowPrice  string           `json:"buyNowPrice"`
	FeeRecipients []domain.Address `json:"feeRecipients"`
	FeeBps        []int64          `json:"feeBps"`

	// custom creation path only
	BidIncreaseBps   *int64 `json:"bidIncreaseBps"`
	BidPeriodSeconds *int64 `json:"bidPeriodSeconds"`
}

type BidPayload struct {
	Collection   domain.Address `json:"collection" validate:"required"`
	TokenId      domain.TokenId `json:"tokenId" validate:"required"`
	PaymentAsset domain.Address `json:"paymentAsset"`
	Amount       string         `json:"amount" validate:"required"`
}

// Settlement reports the transfers performed by a successful settlement.
type Settlement struct {
	Collection   domain.Address   `json:"collection"`
	TokenId      domain.TokenId   `json:"tokenId"`
	Winner       domain.Address   `json:"winner"`
	Seller       domain.Address   `json:"seller"`
	PaymentAsset domain.Address   `json:"paymentAsset"`
	SalePrice    string           `json:"salePrice"`
	SellerAmount string           `json:"sellerAmount"`
	FeeRecipients []domain.Address `json:"feeRecipients"`
	FeeAmounts    []string         `json:"feeAmounts"`
}

type UseCase interface {
	// CreateDefault lists an asset with engine-default bid increase
	// percentage and bid period.
	CreateDefault(c ctx.Ctx, seller domain.Address, p CreateAuctionPayload) (*Auction, error)
	// CreateCustom lists an asset with caller-supplied bid increase
	// percentage and bid period.
	CreateCustom(c ctx.Ctx, seller domain.Address, p CreateAuctionPayload) (*Auction, error)
	// PlaceBid submits a bid, creating an early-bid record when the key is
	// unlisted. May settle the auction inline when the buy now price is met.
	PlaceBid(c ctx.Ctx, bidder domain.Address, p BidPayload) (*Auction, error)
	UpdateMinPrice(c ctx.Ctx, seller domain.Address, id Id, newMinPrice string) (*Auction, error)
	UpdateBuyNowPrice(c ctx.Ctx, seller domain.Address, id Id, newBuyNowPrice string) (*Auction, error)
	// Withdraw delists an un-bid (or sub-minimum-bid) auction and returns
	// asset custody to the seller.
	Withdraw(c ctx.Ctx, seller domain.Address, id Id) error
	// WithdrawBid refunds a stale early bid whose auction never materialized.
	WithdrawBid(c ctx.Ctx, bidder domain.Address, id Id) error
	// Settle finalizes an ended auction: fee-weighted payouts, then asset
	// custody to the winner. Callable by anyone.
	Settle(c ctx.Ctx, id Id) (*Settlement, error)
	Get(c ctx.Ctx, id Id) (*Auction, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
}

package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	aMocks "github.com/auctionx/goapi/domain/auction/mocks"
	"github.com/auctionx/goapi/domain/ledger"
	lMocks "github.com/auctionx/goapi/domain/ledger/mocks"
)

const (
	seller  = domain.Address("0x00000000000000000000000000000000000000aa")
	bidder1 = domain.Address("0x00000000000000000000000000000000000000b1")
	bidder2 = domain.Address("0x00000000000000000000000000000000000000b2")
	feeAddr = domain.Address("0x00000000000000000000000000000000000000fe")
	erc20   = domain.Address("0x0000000000000000000000000000000000002000")
	coll    = domain.Address("0x0000000000000000000000000000000000000c01")
	tokenId = domain.TokenId("7")
)

type memRepo struct {
	recs      map[auction.Id]*auction.Auction
	findErr   error
	upsertErr error
	removeErr error
}

func newMemRepo() *memRepo {
	return &memRepo{recs: map[auction.Id]*auction.Auction{}}
}

func (r *memRepo) FindOne(c ctx.Ctx, id auction.Id) (*auction.Auction, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.recs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) FindAll(c ctx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	res := []*auction.Auction{}
	for _, a := range r.recs {
		cp := *a
		res = append(res, &cp)
	}
	return res, nil
}

func (r *memRepo) Upsert(c ctx.Ctx, a *auction.Auction) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	cp := *a
	r.recs[a.ToId()] = &cp
	return nil
}

func (r *memRepo) Remove(c ctx.Ctx, id auction.Id) error {
	if r.removeErr != nil {
		return r.removeErr
	}
	delete(r.recs, id)
	return nil
}

type ledgerCall struct {
	op     string
	who    domain.Address
	amount string
}

type fakeLedger struct {
	calls  []ledgerCall
	failOn func(op string, who domain.Address) error
}

func (l *fakeLedger) do(op string, who domain.Address, amount string) error {
	if l.failOn != nil {
		if err := l.failOn(op, who); err != nil {
			return err
		}
	}
	l.calls = append(l.calls, ledgerCall{op, who, amount})
	return nil
}

func (l *fakeLedger) Escrow(c ctx.Ctx, from domain.Address, amount string) error {
	return l.do("escrow", from, amount)
}

func (l *fakeLedger) Credit(c ctx.Ctx, to domain.Address, amount string) error {
	return l.do("credit", to, amount)
}

func (l *fakeLedger) Refund(c ctx.Ctx, to domain.Address, amount string) error {
	return l.do("refund", to, amount)
}

func (l *fakeLedger) Reclaim(c ctx.Ctx, from domain.Address, amount string) error {
	return l.do("reclaim", from, amount)
}

type fakeSource struct {
	native *fakeLedger
	token  *fakeLedger
}

func (s *fakeSource) ForAsset(asset domain.Address) ledger.PaymentLedger {
	if asset.IsEmpty() {
		return s.native
	}
	return s.token
}

type fakeCustody struct {
	held        map[auction.Id]domain.Address // last party custody moved to/from
	inEscrow    map[auction.Id]bool
	failTake    error
	failRelease error
}

func newFakeCustody() *fakeCustody {
	return &fakeCustody{held: map[auction.Id]domain.Address{}, inEscrow: map[auction.Id]bool{}}
}

func (f *fakeCustody) TakeCustody(c ctx.Ctx, id auction.Id, from domain.Address) error {
	if f.failTake != nil {
		return f.failTake
	}
	f.held[id] = from
	f.inEscrow[id] = true
	return nil
}

func (f *fakeCustody) ReleaseCustody(c ctx.Ctx, id auction.Id, to domain.Address) error {
	if f.failRelease != nil {
		return f.failRelease
	}
	f.held[id] = to
	f.inEscrow[id] = false
	return nil
}

func (f *fakeCustody) QueryOwner(c ctx.Ctx, id auction.Id) (domain.Address, error) {
	return f.held[id], nil
}

type fixture struct {
	repo    *memRepo
	custody *fakeCustody
	native  *fakeLedger
	token   *fakeLedger
	now     time.Time
	uc      auction.UseCase
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		repo:    newMemRepo(),
		custody: newFakeCustody(),
		native:  &fakeLedger{},
		token:   &fakeLedger{},
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.uc = New(&AuctionUseCaseCfg{
		AuctionRepo: f.repo,
		Custody:     f.custody,
		Payments:    &fakeSource{native: f.native, token: f.token},
		Defaults: auction.Defaults{
			BidIncreaseBps:         1000,
			MinSettableIncreaseBps: 100,
			BidPeriod:              24 * time.Hour,
			SnipeWindow:            0,
		},
		Now: func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) id() auction.Id {
	return auction.Id{Collection: coll, TokenId: tokenId}
}

func (f *fixture) payload() auction.CreateAuctionPayload {
	return auction.CreateAuctionPayload{
		Collection: coll,
		TokenId:    tokenId,
		MinPrice:   "100",
	}
}

func (f *fixture) bid(who domain.Address, amount string) (*auction.Auction, error) {
	return f.uc.PlaceBid(ctx.Background(), who, auction.BidPayload{
		Collection: coll,
		TokenId:    tokenId,
		Amount:     amount,
	})
}

func TestCreateDefault(t *testing.T) {
	f := newFixture(t)

	a, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	assert.Equal(t, seller, a.Seller)
	assert.Equal(t, int64(1000), a.BidIncreaseBps)
	assert.Equal(t, int64(86400), a.BidPeriodSeconds)
	assert.Nil(t, a.EndTime)
	assert.Equal(t, "0", a.HighestBid)

	rec, err := f.repo.FindOne(ctx.Background(), f.id())
	require.NoError(t, err)
	assert.Equal(t, seller, rec.Seller)
	assert.True(t, f.custody.inEscrow[f.id()])
}

func TestCreateCustom(t *testing.T) {
	f := newFixture(t)

	p := f.payload()
	inc := int64(250)
	period := int64(3600)
	p.BidIncreaseBps = &inc
	p.BidPeriodSeconds = &period

	a, err := f.uc.CreateCustom(ctx.Background(), seller, p)
	require.NoError(t, err)
	assert.Equal(t, int64(250), a.BidIncreaseBps)
	assert.Equal(t, int64(3600), a.BidPeriodSeconds)
}

func TestCreateRejectsRelist(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	_, err = f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	assert.True(t, xerrors.Is(err, domain.ErrConflict))
}

func TestCreateCustodyFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.custody.failTake = xerrors.New("not approved")

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	assert.True(t, xerrors.Is(err, domain.ErrCustodyTransferFailed))

	_, err = f.repo.FindOne(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrNotFound))
}

func TestCreateFoldsEarlyBid(t *testing.T) {
	f := newFixture(t)

	_, err := f.bid(bidder1, "150")
	require.NoError(t, err)

	a, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	assert.Equal(t, "150", a.HighestBid)
	assert.Equal(t, bidder1, a.HighestBidder)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, f.now.Add(24*time.Hour), *a.EndTime)
}

func TestCreateKeepsSubMinimumEarlyBid(t *testing.T) {
	f := newFixture(t)

	_, err := f.bid(bidder1, "50")
	require.NoError(t, err)

	a, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	assert.Equal(t, "50", a.HighestBid)
	assert.Nil(t, a.EndTime, "a bid below the minimum must not start the clock")
	assert.Empty(t, f.native.calls[1:], "the standing bid stays in escrow")
}

func TestCreateRefundsForeignCurrencyEarlyBid(t *testing.T) {
	f := newFixture(t)

	_, err := f.bid(bidder1, "150")
	require.NoError(t, err)

	p := f.payload()
	p.PaymentAsset = erc20
	a, err := f.uc.CreateDefault(ctx.Background(), seller, p)
	require.NoError(t, err)

	assert.False(t, a.HasBid())
	require.Len(t, f.native.calls, 2)
	assert.Equal(t, ledgerCall{"refund", bidder1, "150"}, f.native.calls[1])
}

func TestCreateSettlesWhenEarlyBidMeetsBuyNow(t *testing.T) {
	f := newFixture(t)

	_, err := f.bid(bidder1, "500")
	require.NoError(t, err)

	p := f.payload()
	p.BuyNowPrice = "500"
	_, err = f.uc.CreateDefault(ctx.Background(), seller, p)
	require.NoError(t, err)

	_, err = f.repo.FindOne(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrNotFound), "settled auctions release the key")
	assert.Contains(t, f.native.calls, ledgerCall{"credit", seller, "500"})
	assert.Equal(t, bidder1, f.custody.held[f.id()])
	assert.False(t, f.custody.inEscrow[f.id()])
}

func TestPlaceBidEarly(t *testing.T) {
	f := newFixture(t)

	a, err := f.bid(bidder1, "120")
	require.NoError(t, err)

	assert.False(t, a.Listed())
	assert.Equal(t, "120", a.HighestBid)
	assert.Equal(t, bidder1, a.HighestBidder)
	assert.Nil(t, a.EndTime)
	assert.Equal(t, []ledgerCall{{"escrow", bidder1, "120"}}, f.native.calls)
}

func TestPlaceBidEarlyEscrowFailureRemovesRecord(t *testing.T) {
	f := newFixture(t)
	f.native.failOn = func(op string, who domain.Address) error {
		if op == "escrow" {
			return xerrors.New("insufficient funds")
		}
		return nil
	}

	_, err := f.bid(bidder1, "120")
	assert.True(t, xerrors.Is(err, domain.ErrPaymentTransferFailed))

	_, err = f.repo.FindOne(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrNotFound))
}

func TestPlaceBidSellerCannotBid(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	_, err = f.bid(seller, "200")
	assert.True(t, xerrors.Is(err, domain.ErrBadParamInput))
}

func TestPlaceBidStartsClock(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	a, err := f.bid(bidder1, "100")
	require.NoError(t, err)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, f.now.Add(24*time.Hour), *a.EndTime)
}

func TestPlaceBidRefundsOutbid(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "100")
	require.NoError(t, err)

	a, err := f.bid(bidder2, "110")
	require.NoError(t, err)
	assert.Equal(t, bidder2, a.HighestBidder)
	assert.Contains(t, f.native.calls, ledgerCall{"escrow", bidder2, "110"})
	assert.Contains(t, f.native.calls, ledgerCall{"refund", bidder1, "100"})
}

func TestPlaceBidRejectsBelowThreshold(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "100")
	require.NoError(t, err)

	_, err = f.bid(bidder2, "109")
	assert.True(t, xerrors.Is(err, domain.ErrInsufficientBid))
}

func TestPlaceBidRefundFailureRollsBack(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "100")
	require.NoError(t, err)

	f.native.failOn = func(op string, who domain.Address) error {
		if op == "refund" && who.Equals(bidder1) {
			return xerrors.New("ledger down")
		}
		return nil
	}

	_, err = f.bid(bidder2, "110")
	assert.True(t, xerrors.Is(err, domain.ErrPaymentTransferFailed))

	rec, err := f.repo.FindOne(ctx.Background(), f.id())
	require.NoError(t, err)
	assert.Equal(t, bidder1, rec.HighestBidder, "the losing attempt must not displace the standing bid")
	assert.Equal(t, "100", rec.HighestBid)
	assert.Contains(t, f.native.calls, ledgerCall{"refund", bidder2, "110"}, "the failed bidder gets their escrow back")
}

func TestPlaceBidExtendsNearDeadline(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "100")
	require.NoError(t, err)

	// one second before the deadline
	f.now = f.now.Add(24*time.Hour - time.Second)
	a, err := f.bid(bidder2, "110")
	require.NoError(t, err)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, f.now.Add(24*time.Hour), *a.EndTime)
}

func TestPlaceBidRejectsAfterEnd(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "100")
	require.NoError(t, err)

	f.now = f.now.Add(24 * time.Hour)
	_, err = f.bid(bidder2, "110")
	assert.True(t, xerrors.Is(err, domain.ErrAuctionEnded))
}

func TestPlaceBidBuyNowSettlesInline(t *testing.T) {
	f := newFixture(t)

	p := f.payload()
	p.BuyNowPrice = "1000"
	p.FeeRecipients = []domain.Address{feeAddr}
	p.FeeBps = []int64{250}
	_, err := f.uc.CreateDefault(ctx.Background(), seller, p)
	require.NoError(t, err)

	a, err := f.bid(bidder1, "1000")
	require.NoError(t, err)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, f.now, *a.EndTime)

	_, err = f.repo.FindOne(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrNotFound))
	assert.Contains(t, f.native.calls, ledgerCall{"credit", feeAddr, "25"})
	assert.Contains(t, f.native.calls, ledgerCall{"credit", seller, "975"})
	assert.Equal(t, bidder1, f.custody.held[f.id()])
}

func TestPlaceBidBuyNowSettlementFailureReturnsBid(t *testing.T) {
	f := newFixture(t)

	p := f.payload()
	p.BuyNowPrice = "1000"
	_, err := f.uc.CreateDefault(ctx.Background(), seller, p)
	require.NoError(t, err)

	f.native.failOn = func(op string, who domain.Address) error {
		if op == "credit" {
			return xerrors.New("ledger down")
		}
		return nil
	}

	a, err := f.bid(bidder1, "1000")
	assert.True(t, xerrors.Is(err, domain.ErrPaymentTransferFailed))

	// the bid itself was accepted, so the caller gets the committed record
	require.NotNil(t, a)
	assert.Equal(t, bidder1, a.HighestBidder)
	assert.Equal(t, "1000", a.HighestBid)

	// the record survives for a settlement retry
	f.native.failOn = nil
	s, err := f.uc.Settle(ctx.Background(), f.id())
	require.NoError(t, err)
	assert.Equal(t, bidder1, s.Winner)
}

func TestUpdateMinPrice(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	a, err := f.uc.UpdateMinPrice(ctx.Background(), seller, f.id(), "200")
	require.NoError(t, err)
	assert.Equal(t, "200", a.MinPrice)

	_, err = f.uc.UpdateMinPrice(ctx.Background(), bidder1, f.id(), "300")
	assert.True(t, xerrors.Is(err, domain.ErrNotSeller))
}

func TestUpdateMinPriceLockedByQualifyingBid(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "100")
	require.NoError(t, err)

	_, err = f.uc.UpdateMinPrice(ctx.Background(), seller, f.id(), "50")
	assert.True(t, xerrors.Is(err, domain.ErrAuctionHasBid))
}

func TestUpdateMinPriceLoweringStartsClock(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "80")
	require.NoError(t, err)

	a, err := f.uc.UpdateMinPrice(ctx.Background(), seller, f.id(), "80")
	require.NoError(t, err)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, f.now.Add(24*time.Hour), *a.EndTime)
}

func TestUpdateBuyNowPrice(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	_, err = f.uc.UpdateBuyNowPrice(ctx.Background(), seller, f.id(), "100")
	assert.True(t, xerrors.Is(err, domain.ErrInvalidConfig), "buy now must exceed the minimum price")

	a, err := f.uc.UpdateBuyNowPrice(ctx.Background(), seller, f.id(), "500")
	require.NoError(t, err)
	assert.Equal(t, "500", a.BuyNowPrice)

	a, err = f.uc.UpdateBuyNowPrice(ctx.Background(), seller, f.id(), "0")
	require.NoError(t, err)
	assert.False(t, a.BuyNowEnabled())
}

func TestUpdateBuyNowPriceBelowStandingBidSettles(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "400")
	require.NoError(t, err)

	_, err = f.uc.UpdateBuyNowPrice(ctx.Background(), seller, f.id(), "400")
	require.NoError(t, err)

	_, err = f.repo.FindOne(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrNotFound))
	assert.Contains(t, f.native.calls, ledgerCall{"credit", seller, "400"})
	assert.Equal(t, bidder1, f.custody.held[f.id()])
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	require.NoError(t, f.uc.Withdraw(ctx.Background(), seller, f.id()))

	_, err = f.repo.FindOne(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrNotFound))
	assert.Equal(t, seller, f.custody.held[f.id()])
	assert.False(t, f.custody.inEscrow[f.id()])
}

func TestWithdrawRefundsSubMinimumBid(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "60")
	require.NoError(t, err)

	require.NoError(t, f.uc.Withdraw(ctx.Background(), seller, f.id()))
	assert.Contains(t, f.native.calls, ledgerCall{"refund", bidder1, "60"})
}

func TestWithdrawLockedByQualifyingBid(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "100")
	require.NoError(t, err)

	err = f.uc.Withdraw(ctx.Background(), seller, f.id())
	assert.True(t, xerrors.Is(err, domain.ErrAuctionHasBid))
}

func TestWithdrawReleaseFailureRestores(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	f.custody.failRelease = xerrors.New("registry down")

	err = f.uc.Withdraw(ctx.Background(), seller, f.id())
	assert.True(t, xerrors.Is(err, domain.ErrCustodyTransferFailed))

	rec, err := f.repo.FindOne(ctx.Background(), f.id())
	require.NoError(t, err)
	assert.Equal(t, seller, rec.Seller)
}

func TestWithdrawBid(t *testing.T) {
	f := newFixture(t)

	_, err := f.bid(bidder1, "120")
	require.NoError(t, err)

	require.NoError(t, f.uc.WithdrawBid(ctx.Background(), bidder1, f.id()))

	_, err = f.repo.FindOne(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrNotFound))
	assert.Contains(t, f.native.calls, ledgerCall{"refund", bidder1, "120"})
}

func TestWithdrawBidGuards(t *testing.T) {
	f := newFixture(t)

	_, err := f.bid(bidder1, "120")
	require.NoError(t, err)

	err = f.uc.WithdrawBid(ctx.Background(), bidder2, f.id())
	assert.True(t, xerrors.Is(err, domain.ErrNotBidder))

	_, err = f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	err = f.uc.WithdrawBid(ctx.Background(), bidder1, f.id())
	assert.True(t, xerrors.Is(err, domain.ErrAuctionHasBid), "bids on listed auctions are binding")
}

func TestSettle(t *testing.T) {
	f := newFixture(t)

	p := f.payload()
	p.FeeRecipients = []domain.Address{feeAddr}
	p.FeeBps = []int64{1000}
	_, err := f.uc.CreateDefault(ctx.Background(), seller, p)
	require.NoError(t, err)
	_, err = f.bid(bidder1, "200")
	require.NoError(t, err)

	_, err = f.uc.Settle(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrAuctionNotEnded))

	f.now = f.now.Add(24 * time.Hour)
	s, err := f.uc.Settle(ctx.Background(), f.id())
	require.NoError(t, err)

	assert.Equal(t, bidder1, s.Winner)
	assert.Equal(t, "200", s.SalePrice)
	assert.Equal(t, "180", s.SellerAmount)
	assert.Equal(t, []string{"20"}, s.FeeAmounts)
	assert.Contains(t, f.native.calls, ledgerCall{"credit", feeAddr, "20"})
	assert.Contains(t, f.native.calls, ledgerCall{"credit", seller, "180"})
	assert.Equal(t, bidder1, f.custody.held[f.id()])

	_, err = f.uc.Settle(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrNotFound), "settlement is final")
}

func TestSettleUnstartedAuction(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	_, err = f.uc.Settle(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrAuctionNotEnded))
}

func TestSettlePayoutFailureCompensates(t *testing.T) {
	f := newFixture(t)

	p := f.payload()
	p.FeeRecipients = []domain.Address{feeAddr}
	p.FeeBps = []int64{1000}
	_, err := f.uc.CreateDefault(ctx.Background(), seller, p)
	require.NoError(t, err)
	_, err = f.bid(bidder1, "200")
	require.NoError(t, err)

	f.native.failOn = func(op string, who domain.Address) error {
		if op == "credit" && who.Equals(seller) {
			return xerrors.New("ledger down")
		}
		return nil
	}

	f.now = f.now.Add(24 * time.Hour)
	_, err = f.uc.Settle(ctx.Background(), f.id())
	assert.True(t, xerrors.Is(err, domain.ErrPaymentTransferFailed))

	// the fee already paid out comes back, and the record survives for retry
	assert.Contains(t, f.native.calls, ledgerCall{"reclaim", feeAddr, "20"})
	rec, err := f.repo.FindOne(ctx.Background(), f.id())
	require.NoError(t, err)
	assert.Equal(t, "200", rec.HighestBid)
}

func TestTokenAuctionUsesTokenLedger(t *testing.T) {
	f := newFixture(t)

	p := f.payload()
	p.PaymentAsset = erc20
	_, err := f.uc.CreateDefault(ctx.Background(), seller, p)
	require.NoError(t, err)

	_, err = f.uc.PlaceBid(ctx.Background(), bidder1, auction.BidPayload{
		Collection:   coll,
		TokenId:      tokenId,
		PaymentAsset: erc20,
		Amount:       "100",
	})
	require.NoError(t, err)

	f.now = f.now.Add(24 * time.Hour)
	_, err = f.uc.Settle(ctx.Background(), f.id())
	require.NoError(t, err)

	assert.Empty(t, f.native.calls)
	assert.Contains(t, f.token.calls, ledgerCall{"escrow", bidder1, "100"})
	assert.Contains(t, f.token.calls, ledgerCall{"credit", seller, "100"})
}

func TestFindAllRepoError(t *testing.T) {
	repo := aMocks.NewRepo(t)
	repo.On("FindAll", mock.Anything).Return(nil, xerrors.New("db down"))

	uc := New(&AuctionUseCaseCfg{
		AuctionRepo: repo,
		Custody:     lMocks.NewAssetCustody(t),
		Payments:    lMocks.NewPaymentSource(t),
	})

	_, err := uc.FindAll(ctx.Background())
	assert.Error(t, err)
}

func TestPlaceBidEarlyEscrowsExactAmount(t *testing.T) {
	id := auction.Id{Collection: coll, TokenId: tokenId}

	repo := aMocks.NewRepo(t)
	repo.On("FindOne", mock.Anything, id).Return(nil, domain.ErrNotFound)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	l := lMocks.NewPaymentLedger(t)
	l.On("Escrow", mock.Anything, bidder1, "120").Return(nil)

	payments := lMocks.NewPaymentSource(t)
	payments.On("ForAsset", domain.Address("")).Return(l)

	uc := New(&AuctionUseCaseCfg{
		AuctionRepo: repo,
		Custody:     lMocks.NewAssetCustody(t),
		Payments:    payments,
	})

	a, err := uc.PlaceBid(ctx.Background(), bidder1, auction.BidPayload{
		Collection: coll,
		TokenId:    tokenId,
		Amount:     "120",
	})
	require.NoError(t, err)
	assert.Equal(t, "120", a.HighestBid)
}

func TestWrongCurrencyBid(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)

	_, err = f.uc.PlaceBid(ctx.Background(), bidder1, auction.BidPayload{
		Collection:   coll,
		TokenId:      tokenId,
		PaymentAsset: erc20,
		Amount:       "100",
	})
	assert.True(t, xerrors.Is(err, domain.ErrWrongCurrency))
}

func TestLockTableShedsIdleKeys(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateDefault(ctx.Background(), seller, f.payload())
	require.NoError(t, err)
	_, err = f.bid(bidder1, "100")
	require.NoError(t, err)

	im := f.uc.(*impl)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := im.lock(f.id())
			unlock()
		}()
	}
	wg.Wait()

	im.mu.Lock()
	defer im.mu.Unlock()
	assert.Empty(t, im.locks)
}

package auction

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/auctionx/goapi/base/ptr"
	"github.com/auctionx/goapi/domain"
	"golang.org/x/xerrors"
)

var testDefaults = Defaults{
	BidIncreaseBps:         1000,
	MinSettableIncreaseBps: 100,
	BidPeriod:              24 * time.Hour,
}

func validPayload() CreateAuctionPayload {
	return CreateAuctionPayload{
		Collection: "0xc011",
		TokenId:    "1",
		MinPrice:   "100",
	}
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(validPayload(), false, testDefaults))

	p := validPayload()
	p.MinPrice = "0"
	assert.True(t, xerrors.Is(ValidateConfig(p, false, testDefaults), domain.ErrInvalidConfig))

	p = validPayload()
	p.MinPrice = "-5"
	assert.True(t, xerrors.Is(ValidateConfig(p, false, testDefaults), domain.ErrInvalidConfig))

	// buy now must exceed the minimum price, zero disables it
	p = validPayload()
	p.BuyNowPrice = "100"
	assert.True(t, xerrors.Is(ValidateConfig(p, false, testDefaults), domain.ErrInvalidConfig))
	p.BuyNowPrice = "101"
	assert.NoError(t, ValidateConfig(p, false, testDefaults))
	p.BuyNowPrice = "0"
	assert.NoError(t, ValidateConfig(p, false, testDefaults))
}

func TestValidateConfigFees(t *testing.T) {
	p := validPayload()
	p.FeeRecipients = []domain.Address{"0xfee1"}
	p.FeeBps = []int64{250, 500}
	assert.True(t, xerrors.Is(ValidateConfig(p, false, testDefaults), domain.ErrInvalidConfig))

	p.FeeRecipients = []domain.Address{"0xfee1", "0xfee2"}
	assert.NoError(t, ValidateConfig(p, false, testDefaults))

	p.FeeBps = []int64{9000, 1001}
	assert.True(t, xerrors.Is(ValidateConfig(p, false, testDefaults), domain.ErrInvalidConfig))

	p.FeeBps = []int64{9000, 1000}
	assert.NoError(t, ValidateConfig(p, false, testDefaults))

	p.FeeBps = []int64{-1, 500}
	assert.True(t, xerrors.Is(ValidateConfig(p, false, testDefaults), domain.ErrInvalidConfig))

	p.FeeBps = []int64{250, 500}
	p.FeeRecipients = []domain.Address{"", "0xfee2"}
	assert.True(t, xerrors.Is(ValidateConfig(p, false, testDefaults), domain.ErrInvalidConfig))
}

func TestValidateConfigCustom(t *testing.T) {
	p := validPayload()
	assert.True(t, xerrors.Is(ValidateConfig(p, true, testDefaults), domain.ErrInvalidConfig))

	p.BidIncreaseBps = ptr.Int64(99)
	p.BidPeriodSeconds = ptr.Int64(3600)
	assert.True(t, xerrors.Is(ValidateConfig(p, true, testDefaults), domain.ErrInvalidConfig))

	p.BidIncreaseBps = ptr.Int64(100)
	assert.NoError(t, ValidateConfig(p, true, testDefaults))

	p.BidPeriodSeconds = ptr.Int64(0)
	assert.True(t, xerrors.Is(ValidateConfig(p, true, testDefaults), domain.ErrInvalidConfig))
}

func listedAuction() *Auction {
	return &Auction{
		Collection:       "0xc011",
		TokenId:          "1",
		Seller:           "0x5e11",
		MinPrice:         "100",
		BuyNowPrice:      "0",
		HighestBid:       "0",
		BidIncreaseBps:   1000,
		BidPeriodSeconds: 86400,
	}
}

func TestValidateBidCurrencyAndAmount(t *testing.T) {
	now := time.Now()
	a := listedAuction()

	assert.Equal(t, domain.ErrWrongCurrency, ValidateBid(a, "0x70ce", big.NewInt(100), now, testDefaults))
	assert.Equal(t, domain.ErrInsufficientBid, ValidateBid(a, domain.EmptyAddress, big.NewInt(0), now, testDefaults))
	assert.NoError(t, ValidateBid(a, domain.EmptyAddress, big.NewInt(100), now, testDefaults))
	// below the minimum price with no standing bid
	assert.Equal(t, domain.ErrInsufficientBid, ValidateBid(a, domain.EmptyAddress, big.NewInt(99), now, testDefaults))
}

func TestValidateBidThreshold(t *testing.T) {
	now := time.Now()
	a := listedAuction()
	a.HighestBid = "100"
	a.HighestBidder = "0xb1dd"
	end := now.Add(time.Hour)
	a.EndTime = &end

	// needs 100 * 1.10 = 110
	assert.Equal(t, domain.ErrInsufficientBid, ValidateBid(a, domain.EmptyAddress, big.NewInt(109), now, testDefaults))
	assert.NoError(t, ValidateBid(a, domain.EmptyAddress, big.NewInt(110), now, testDefaults))
}

func TestValidateBidEnded(t *testing.T) {
	now := time.Now()
	a := listedAuction()
	a.HighestBid = "100"
	a.HighestBidder = "0xb1dd"
	end := now.Add(-time.Second)
	a.EndTime = &end

	assert.Equal(t, domain.ErrAuctionEnded, ValidateBid(a, domain.EmptyAddress, big.NewInt(1000), now, testDefaults))
}

func TestValidateBidBuyNowAlwaysQualifies(t *testing.T) {
	now := time.Now()
	a := listedAuction()
	a.BuyNowPrice = "500"
	a.HighestBid = "490"
	a.HighestBidder = "0xb1dd"
	end := now.Add(time.Hour)
	a.EndTime = &end

	// 500 is below the 539 increase threshold but meets buy now
	assert.NoError(t, ValidateBid(a, domain.EmptyAddress, big.NewInt(500), now, testDefaults))
	assert.Equal(t, domain.ErrInsufficientBid, ValidateBid(a, domain.EmptyAddress, big.NewInt(499), now, testDefaults))
}

func TestValidateBidEarlyStage(t *testing.T) {
	now := time.Now()
	a := &Auction{
		Collection:   "0xc011",
		TokenId:      "1",
		MinPrice:     "0",
		BuyNowPrice:  "0",
		HighestBid:   "0",
		PaymentAsset: domain.EmptyAddress,
	}

	// any positive amount opens the early-bid record
	assert.NoError(t, ValidateBid(a, domain.EmptyAddress, big.NewInt(1), now, testDefaults))

	// a later early bid must clear the default increase over the standing one
	a.HighestBid = "100"
	a.HighestBidder = "0xb1dd"
	assert.Equal(t, domain.ErrInsufficientBid, ValidateBid(a, domain.EmptyAddress, big.NewInt(109), now, testDefaults))
	assert.NoError(t, ValidateBid(a, domain.EmptyAddress, big.NewInt(110), now, testDefaults))
}

func TestMinRequiredBid(t *testing.T) {
	a := listedAuction()
	assert.Equal(t, int64(100), MinRequiredBid(a, testDefaults).Int64())

	a.HighestBid = "200"
	a.HighestBidder = "0xb1dd"
	a.BidIncreaseBps = 500
	assert.Equal(t, int64(210), MinRequiredBid(a, testDefaults).Int64())

	// unlisted records fall back to the engine default percentage
	a.Seller = ""
	assert.Equal(t, int64(220), MinRequiredBid(a, testDefaults).Int64())
}

package auction

import (
	"math/big"
	"time"

	"github.com/auctionx/goapi/domain"
	"golang.org/x/xerrors"
)

// SameAsset reports whether two payment asset addresses denote the same
// currency. Any empty form denotes the native currency.
func SameAsset(a, b domain.Address) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return a.IsEmpty() && b.IsEmpty()
	}
	return a.Equals(b)
}

// ValidateConfig checks creation parameters. custom toggles the checks for
// the caller-supplied increase percentage and bid period.
func ValidateConfig(p CreateAuctionPayload, custom bool, d Defaults) error {
	minPrice, err := ParseAmount(p.MinPrice)
	if err != nil {
		return xerrors.Errorf("minPrice: %w", domain.ErrInvalidConfig)
	}
	if minPrice.Sign() == 0 {
		return xerrors.Errorf("minPrice cannot be zero: %w", domain.ErrInvalidConfig)
	}

	if p.BuyNowPrice != "" {
		buyNow, err := ParseAmount(p.BuyNowPrice)
		if err != nil {
			return xerrors.Errorf("buyNowPrice: %w", domain.ErrInvalidConfig)
		}
		// zero disables buy now, anything else must exceed the minimum price
		if buyNow.Sign() != 0 && buyNow.Cmp(minPrice) <= 0 {
			return xerrors.Errorf("buyNowPrice must exceed minPrice: %w", domain.ErrInvalidConfig)
		}
	}

	if len(p.FeeRecipients) != len(p.FeeBps) {
		return xerrors.Errorf("fee recipients and percentages mismatch: %w", domain.ErrInvalidConfig)
	}
	feeSum := int64(0)
	for i, bps := range p.FeeBps {
		if bps < 0 {
			return xerrors.Errorf("negative fee percentage: %w", domain.ErrInvalidConfig)
		}
		if p.FeeRecipients[i].IsEmpty() {
			return xerrors.Errorf("empty fee recipient: %w", domain.ErrInvalidConfig)
		}
		feeSum += bps
	}
	if feeSum > MaxFeeBps {
		return xerrors.Errorf("fee percentages exceed 100%%: %w", domain.ErrInvalidConfig)
	}

	if custom {
		if p.BidIncreaseBps == nil || *p.BidIncreaseBps < d.MinSettableIncreaseBps {
			return xerrors.Errorf("bid increase percentage below floor: %w", domain.ErrInvalidConfig)
		}
		if p.BidPeriodSeconds == nil || *p.BidPeriodSeconds <= 0 {
			return xerrors.Errorf("bid period must be positive: %w", domain.ErrInvalidConfig)
		}
	}

	return nil
}

// MinRequiredBid returns the lowest amount a new bid on a must reach. The
// early-bid stage has no auction-specific percentage, so the engine default
// applies there.
func MinRequiredBid(a *Auction, d Defaults) *big.Int {
	prev, err := ParseAmount(a.HighestBid)
	if err != nil || prev.Sign() == 0 {
		min, err := ParseAmount(a.MinPrice)
		if err != nil {
			return big.NewInt(1)
		}
		return min
	}
	bps := a.BidIncreaseBps
	if !a.Listed() {
		bps = d.BidIncreaseBps
	}
	return MinNextBid(prev, bps)
}

// ValidateBid is the pure accept/reject decision for a bid of amount against
// the current record. It does not mutate anything.
func ValidateBid(a *Auction, asset domain.Address, amount *big.Int, now time.Time, d Defaults) error {
	if !SameAsset(asset, a.PaymentAsset) {
		return domain.ErrWrongCurrency
	}
	if a.EndedAt(now) {
		return domain.ErrAuctionEnded
	}
	if amount.Sign() <= 0 {
		return domain.ErrInsufficientBid
	}

	// a bid meeting the buy now price always qualifies
	if a.Listed() && a.BuyNowEnabled() {
		buyNow, err := ParseAmount(a.BuyNowPrice)
		if err == nil && amount.Cmp(buyNow) >= 0 {
			return nil
		}
	}

	if !a.Listed() {
		// early-bid stage: only the previous early bid constrains the amount
		if a.HasBid() {
			prev, err := ParseAmount(a.HighestBid)
			if err != nil {
				return xerrors.Errorf("stored bid: %w", domain.ErrInvalidAmount)
			}
			if amount.Cmp(MinNextBid(prev, d.BidIncreaseBps)) < 0 {
				return domain.ErrInsufficientBid
			}
		}
		return nil
	}

	if amount.Cmp(MinRequiredBid(a, d)) < 0 {
		return domain.ErrInsufficientBid
	}
	return nil
}

package auction

import (
	"math/big"

	"github.com/auctionx/goapi/domain"
	"golang.org/x/xerrors"
)

// MaxFeeBps is the cap on the sum of an auction's fee percentages.
const MaxFeeBps = int64(10000)

var bpsDenominator = big.NewInt(MaxFeeBps)

// ParseAmount parses a base-unit amount serialized as a decimal string.
// Negative values and non-integers are rejected.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, xerrors.Errorf("parse amount %q: %w", s, domain.ErrInvalidAmount)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, xerrors.Errorf("parse amount %q: %w", s, domain.ErrInvalidAmount)
	}
	return v, nil
}

func IsZeroAmount(s string) bool {
	v, err := ParseAmount(s)
	return err == nil && v.Sign() == 0
}

// CompareAmounts compares two amount strings numerically. Unparseable inputs
// compare as zero; callers validate amounts at the boundary.
func CompareAmounts(a, b string) int {
	av, err := ParseAmount(a)
	if err != nil {
		av = new(big.Int)
	}
	bv, err := ParseAmount(b)
	if err != nil {
		bv = new(big.Int)
	}
	return av.Cmp(bv)
}

// MinNextBid returns the lowest acceptable bid over prev given the minimum
// increase percentage: prev * (10000 + bps) / 10000, floored.
func MinNextBid(prev *big.Int, increaseBps int64) *big.Int {
	factor := big.NewInt(MaxFeeBps + increaseBps)
	next := new(big.Int).Mul(prev, factor)
	return next.Div(next, bpsDenominator)
}

// SplitProceeds computes the fee split for a sale of amount: each recipient i
// receives floor(amount * feeBps[i] / 10000) and the seller receives the
// remainder, so the parts always sum to amount exactly.
func SplitProceeds(amount *big.Int, feeBps []int64) (fees []*big.Int, seller *big.Int) {
	seller = new(big.Int).Set(amount)
	fees = make([]*big.Int, len(feeBps))
	for i, bps := range feeBps {
		fee := new(big.Int).Mul(amount, big.NewInt(bps))
		fee.Div(fee, bpsDenominator)
		fees[i] = fee
		seller.Sub(seller, fee)
	}
	return fees, seller
}

package domain

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/xerrors"
)

type SortDir int8

const (
	SortDirAsc  = 1
	SortDirDesc = -1
)

type Address string

// EmptyAddress is the zero address. Auctions denominated in the chain's
// native currency carry it as their payment asset.
const EmptyAddress = Address("0x0000000000000000000000000000000000000000")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerPtr() *Address {
	res := a.ToLower()
	return &res
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0 || a.Equals(EmptyAddress)
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

type TokenId string

func (i TokenId) String() string {
	return string(i)
}

func (i TokenId) ToHexString() (string, error) {
	id, ok := new(big.Int).SetString(i.String(), 10)
	if !ok {
		return "", xerrors.Errorf("invalid id %s", i)
	}
	return fmt.Sprintf("%064x", id), nil
}

// Table is the name of a mongo collection
type Table string

const (
	TableAccounts         Table = "accounts"
	TableAuctions         Table = "auctions"
	TableBankBalances     Table = "bank_balances"
	TableBankAllowances   Table = "bank_allowances"
	TableAssetHoldings    Table = "asset_holdings"
	TableOperatorApproval Table = "operator_approvals"
	TableHealthCheck      Table = "healthcheck"
)

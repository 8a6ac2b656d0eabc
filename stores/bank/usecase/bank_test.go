package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/bank"
)

const (
	escrowAcct = domain.Address("0x00000000000000000000000000000000000000e5")
	alice      = domain.Address("0x00000000000000000000000000000000000000a1")
	bob        = domain.Address("0x00000000000000000000000000000000000000b0")
	wToken     = domain.Address("0x0000000000000000000000000000000000003000")
)

type memBankRepo struct {
	balances   map[bank.BalanceId]string
	allowances map[bank.AllowanceId]string

	setAllowanceErr error
}

func newMemBankRepo() *memBankRepo {
	return &memBankRepo{
		balances:   map[bank.BalanceId]string{},
		allowances: map[bank.AllowanceId]string{},
	}
}

func (r *memBankRepo) GetBalance(c ctx.Ctx, id bank.BalanceId) (*bank.Balance, error) {
	amount, ok := r.balances[id]
	if !ok {
		amount = "0"
	}
	return &bank.Balance{Asset: id.Asset, Holder: id.Holder, Amount: amount}, nil
}

func (r *memBankRepo) SetBalance(c ctx.Ctx, id bank.BalanceId, amount string) error {
	r.balances[id] = amount
	return nil
}

func (r *memBankRepo) GetAllowance(c ctx.Ctx, id bank.AllowanceId) (*bank.Allowance, error) {
	amount, ok := r.allowances[id]
	if !ok {
		amount = "0"
	}
	return &bank.Allowance{Asset: id.Asset, Owner: id.Owner, Spender: id.Spender, Amount: amount}, nil
}

func (r *memBankRepo) SetAllowance(c ctx.Ctx, id bank.AllowanceId, amount string) error {
	if r.setAllowanceErr != nil {
		return r.setAllowanceErr
	}
	r.allowances[id] = amount
	return nil
}

func newBank() bank.UseCase {
	return New(&BankUseCaseCfg{
		BankRepo:      newMemBankRepo(),
		EscrowAccount: escrowAcct,
	})
}

func balanceOf(t *testing.T, uc bank.UseCase, asset, holder domain.Address) string {
	b, err := uc.BalanceOf(ctx.Background(), asset, holder)
	require.NoError(t, err)
	return b.Amount
}

func TestDeposit(t *testing.T) {
	uc := newBank()

	b, err := uc.Deposit(ctx.Background(), domain.EmptyAddress, alice, "100")
	require.NoError(t, err)
	assert.Equal(t, "100", b.Amount)

	b, err = uc.Deposit(ctx.Background(), domain.EmptyAddress, alice, "50")
	require.NoError(t, err)
	assert.Equal(t, "150", b.Amount)
}

func TestDepositRejectsBadAmounts(t *testing.T) {
	uc := newBank()

	for _, amount := range []string{"", "0", "-1", "1.5", "abc"} {
		_, err := uc.Deposit(ctx.Background(), domain.EmptyAddress, alice, amount)
		assert.True(t, xerrors.Is(err, domain.ErrInvalidAmount), "amount %q", amount)
	}
}

func TestApprove(t *testing.T) {
	uc := newBank()

	a, err := uc.Approve(ctx.Background(), wToken, alice, escrowAcct, "500")
	require.NoError(t, err)
	assert.Equal(t, "500", a.Amount)

	// approvals overwrite, they do not accumulate
	a, err = uc.Approve(ctx.Background(), wToken, alice, escrowAcct, "200")
	require.NoError(t, err)
	assert.Equal(t, "200", a.Amount)

	_, err = uc.Approve(ctx.Background(), wToken, alice, escrowAcct, "bad")
	assert.True(t, xerrors.Is(err, domain.ErrInvalidAmount))
}

func TestNativeLedgerFlow(t *testing.T) {
	uc := newBank()
	c := ctx.Background()
	l := uc.ForAsset(domain.EmptyAddress)

	_, err := uc.Deposit(c, domain.EmptyAddress, alice, "100")
	require.NoError(t, err)

	require.NoError(t, l.Escrow(c, alice, "80"))
	assert.Equal(t, "20", balanceOf(t, uc, domain.EmptyAddress, alice))
	assert.Equal(t, "80", balanceOf(t, uc, domain.EmptyAddress, escrowAcct))

	require.NoError(t, l.Credit(c, bob, "30"))
	assert.Equal(t, "30", balanceOf(t, uc, domain.EmptyAddress, bob))

	require.NoError(t, l.Refund(c, alice, "50"))
	assert.Equal(t, "70", balanceOf(t, uc, domain.EmptyAddress, alice))
	assert.Equal(t, "0", balanceOf(t, uc, domain.EmptyAddress, escrowAcct))

	require.NoError(t, l.Reclaim(c, bob, "30"))
	assert.Equal(t, "0", balanceOf(t, uc, domain.EmptyAddress, bob))
	assert.Equal(t, "30", balanceOf(t, uc, domain.EmptyAddress, escrowAcct))
}

func TestNativeEscrowInsufficientFunds(t *testing.T) {
	uc := newBank()
	c := ctx.Background()
	l := uc.ForAsset("")

	_, err := uc.Deposit(c, domain.EmptyAddress, alice, "10")
	require.NoError(t, err)

	err = l.Escrow(c, alice, "11")
	assert.True(t, xerrors.Is(err, domain.ErrPaymentTransferFailed))
	assert.Equal(t, "10", balanceOf(t, uc, domain.EmptyAddress, alice))
}

func TestEmptyStringSelectsNativeLedger(t *testing.T) {
	uc := newBank()
	c := ctx.Background()

	_, err := uc.Deposit(c, domain.EmptyAddress, alice, "100")
	require.NoError(t, err)

	// the empty string and the zero address address the same book
	require.NoError(t, uc.ForAsset("").Escrow(c, alice, "100"))
	assert.Equal(t, "100", balanceOf(t, uc, domain.EmptyAddress, escrowAcct))
}

func TestTokenEscrowConsumesAllowance(t *testing.T) {
	uc := newBank()
	c := ctx.Background()
	l := uc.ForAsset(wToken)

	_, err := uc.Deposit(c, wToken, alice, "200")
	require.NoError(t, err)
	_, err = uc.Approve(c, wToken, alice, escrowAcct, "100")
	require.NoError(t, err)

	require.NoError(t, l.Escrow(c, alice, "60"))
	assert.Equal(t, "140", balanceOf(t, uc, wToken, alice))
	assert.Equal(t, "60", balanceOf(t, uc, wToken, escrowAcct))

	a, err := uc.AllowanceOf(c, wToken, alice, escrowAcct)
	require.NoError(t, err)
	assert.Equal(t, "40", a.Amount)

	// funds remain but the rest of the allowance is too small
	err = l.Escrow(c, alice, "60")
	assert.True(t, xerrors.Is(err, domain.ErrPaymentTransferFailed))
	assert.Equal(t, "140", balanceOf(t, uc, wToken, alice))
}

func TestTokenEscrowAllowanceFailureTakesNothing(t *testing.T) {
	repo := newMemBankRepo()
	uc := New(&BankUseCaseCfg{BankRepo: repo, EscrowAccount: escrowAcct})
	c := ctx.Background()
	l := uc.ForAsset(wToken)

	_, err := uc.Deposit(c, wToken, alice, "100")
	require.NoError(t, err)
	_, err = uc.Approve(c, wToken, alice, escrowAcct, "100")
	require.NoError(t, err)

	repo.setAllowanceErr = xerrors.New("write failed")
	require.Error(t, l.Escrow(c, alice, "60"))
	repo.setAllowanceErr = nil

	// a failed escrow must leave the payer whole
	assert.Equal(t, "100", balanceOf(t, uc, wToken, alice))
	assert.Equal(t, "0", balanceOf(t, uc, wToken, escrowAcct))

	a, err := uc.AllowanceOf(c, wToken, alice, escrowAcct)
	require.NoError(t, err)
	assert.Equal(t, "100", a.Amount)
}

func TestTokenEscrowWithoutAllowance(t *testing.T) {
	uc := newBank()
	c := ctx.Background()

	_, err := uc.Deposit(c, wToken, alice, "200")
	require.NoError(t, err)

	err = uc.ForAsset(wToken).Escrow(c, alice, "1")
	assert.True(t, xerrors.Is(err, domain.ErrPaymentTransferFailed))
}

func TestTokenRefundNeedsNoAllowance(t *testing.T) {
	uc := newBank()
	c := ctx.Background()
	l := uc.ForAsset(wToken)

	_, err := uc.Deposit(c, wToken, alice, "100")
	require.NoError(t, err)
	_, err = uc.Approve(c, wToken, alice, escrowAcct, "100")
	require.NoError(t, err)
	require.NoError(t, l.Escrow(c, alice, "100"))

	// refunds move out of escrow, so no authorization is involved
	require.NoError(t, l.Refund(c, alice, "100"))
	assert.Equal(t, "100", balanceOf(t, uc, wToken, alice))
}

func TestBooksAreIsolatedPerAsset(t *testing.T) {
	uc := newBank()
	c := ctx.Background()

	_, err := uc.Deposit(c, wToken, alice, "100")
	require.NoError(t, err)

	assert.Equal(t, "0", balanceOf(t, uc, domain.EmptyAddress, alice))
	err = uc.ForAsset(domain.EmptyAddress).Escrow(c, alice, "1")
	assert.True(t, xerrors.Is(err, domain.ErrPaymentTransferFailed))
}

package usecase

import (
	"math/big"
	"sync"

	"golang.org/x/xerrors"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/base/log"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	"github.com/auctionx/goapi/domain/bank"
	"github.com/auctionx/goapi/domain/ledger"
)

type BankUseCaseCfg struct {
	BankRepo bank.Repo
	// EscrowAccount is the book account holding all funds the engine has in
	// custody
	EscrowAccount domain.Address
}

type impl struct {
	repo   bank.Repo
	escrow domain.Address

	// serializes book mutations; the book is only written by this process
	mu sync.Mutex
}

func New(cfg *BankUseCaseCfg) bank.UseCase {
	return &impl{
		repo:   cfg.BankRepo,
		escrow: cfg.EscrowAccount.ToLower(),
	}
}

func (im *impl) Deposit(c ctx.Ctx, asset, holder domain.Address, amount string) (*bank.Balance, error) {
	v, err := auction.ParseAmount(amount)
	if err != nil || v.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	id := bank.BalanceId{Asset: asset.ToLower(), Holder: holder.ToLower()}
	cur, err := im.repo.GetBalance(c, id)
	if err != nil {
		return nil, err
	}
	bal, err := auction.ParseAmount(cur.Amount)
	if err != nil {
		return nil, err
	}
	bal.Add(bal, v)
	if err := im.repo.SetBalance(c, id, bal.String()); err != nil {
		return nil, err
	}
	return im.repo.GetBalance(c, id)
}

func (im *impl) Approve(c ctx.Ctx, asset, owner, spender domain.Address, amount string) (*bank.Allowance, error) {
	if _, err := auction.ParseAmount(amount); err != nil {
		return nil, domain.ErrInvalidAmount
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	id := bank.AllowanceId{Asset: asset.ToLower(), Owner: owner.ToLower(), Spender: spender.ToLower()}
	if err := im.repo.SetAllowance(c, id, amount); err != nil {
		return nil, err
	}
	return im.repo.GetAllowance(c, id)
}

func (im *impl) BalanceOf(c ctx.Ctx, asset, holder domain.Address) (*bank.Balance, error) {
	return im.repo.GetBalance(c, bank.BalanceId{Asset: asset.ToLower(), Holder: holder.ToLower()})
}

func (im *impl) AllowanceOf(c ctx.Ctx, asset, owner, spender domain.Address) (*bank.Allowance, error) {
	return im.repo.GetAllowance(c, bank.AllowanceId{Asset: asset.ToLower(), Owner: owner.ToLower(), Spender: spender.ToLower()})
}

// ForAsset picks the payment-ledger variant for an auction's asset. The
// variant is fixed per auction at creation time; the zero address selects the
// native currency.
func (im *impl) ForAsset(asset domain.Address) ledger.PaymentLedger {
	asset = asset.ToLower()
	if asset.IsEmpty() {
		return &nativeLedger{im: im, asset: domain.EmptyAddress}
	}
	return &tokenLedger{im: im, asset: asset}
}

// move debits from and credits to within one asset's balance book. The
// caller holds im.mu.
func (im *impl) move(c ctx.Ctx, asset, from, to domain.Address, amount *big.Int) error {
	fromId := bank.BalanceId{Asset: asset, Holder: from.ToLower()}
	cur, err := im.repo.GetBalance(c, fromId)
	if err != nil {
		return err
	}
	bal, err := auction.ParseAmount(cur.Amount)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return xerrors.Errorf("insufficient funds for %s: %w", from, domain.ErrPaymentTransferFailed)
	}

	toId := bank.BalanceId{Asset: asset, Holder: to.ToLower()}
	toCur, err := im.repo.GetBalance(c, toId)
	if err != nil {
		return err
	}
	toBal, err := auction.ParseAmount(toCur.Amount)
	if err != nil {
		return err
	}

	if err := im.repo.SetBalance(c, fromId, new(big.Int).Sub(bal, amount).String()); err != nil {
		return err
	}
	if err := im.repo.SetBalance(c, toId, new(big.Int).Add(toBal, amount).String()); err != nil {
		// put the debit back so the book stays balanced
		if rerr := im.repo.SetBalance(c, fromId, cur.Amount); rerr != nil {
			c.WithFields(log.Fields{"err": rerr, "id": fromId}).Error("debit rollback failed")
		}
		return err
	}
	return nil
}

// nativeLedger moves value that callers have deposited with the engine.
type nativeLedger struct {
	im    *impl
	asset domain.Address
}

func (l *nativeLedger) Escrow(c ctx.Ctx, from domain.Address, amount string) error {
	return l.im.transfer(c, l.asset, from, l.im.escrow, amount)
}

func (l *nativeLedger) Credit(c ctx.Ctx, to domain.Address, amount string) error {
	return l.im.transfer(c, l.asset, l.im.escrow, to, amount)
}

func (l *nativeLedger) Refund(c ctx.Ctx, to domain.Address, amount string) error {
	return l.im.transfer(c, l.asset, l.im.escrow, to, amount)
}

func (l *nativeLedger) Reclaim(c ctx.Ctx, from domain.Address, amount string) error {
	return l.im.transfer(c, l.asset, from, l.im.escrow, amount)
}

// tokenLedger moves fungible-token value on behalf of a payer who has
// pre-authorized the escrow account.
type tokenLedger struct {
	im    *impl
	asset domain.Address
}

func (l *tokenLedger) Escrow(c ctx.Ctx, from domain.Address, amount string) error {
	v, err := auction.ParseAmount(amount)
	if err != nil {
		return err
	}

	l.im.mu.Lock()
	defer l.im.mu.Unlock()

	id := bank.AllowanceId{Asset: l.asset, Owner: from.ToLower(), Spender: l.im.escrow}
	cur, err := l.im.repo.GetAllowance(c, id)
	if err != nil {
		return err
	}
	allowed, err := auction.ParseAmount(cur.Amount)
	if err != nil {
		return err
	}
	if allowed.Cmp(v) < 0 {
		return xerrors.Errorf("allowance of %s too low: %w", from, domain.ErrPaymentTransferFailed)
	}

	if err := l.im.move(c, l.asset, from, l.im.escrow, v); err != nil {
		return err
	}
	if err := l.im.repo.SetAllowance(c, id, new(big.Int).Sub(allowed, v).String()); err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("allowance update failed")
		// put the funds back so a failed escrow takes nothing
		if rerr := l.im.move(c, l.asset, l.im.escrow, from, v); rerr != nil {
			c.WithFields(log.Fields{"err": rerr, "id": id}).Error("escrow rollback failed")
		}
		return err
	}
	return nil
}

func (l *tokenLedger) Credit(c ctx.Ctx, to domain.Address, amount string) error {
	return l.im.transfer(c, l.asset, l.im.escrow, to, amount)
}

func (l *tokenLedger) Refund(c ctx.Ctx, to domain.Address, amount string) error {
	return l.im.transfer(c, l.asset, l.im.escrow, to, amount)
}

func (l *tokenLedger) Reclaim(c ctx.Ctx, from domain.Address, amount string) error {
	return l.im.transfer(c, l.asset, from, l.im.escrow, amount)
}

func (im *impl) transfer(c ctx.Ctx, asset, from, to domain.Address, amount string) error {
	v, err := auction.ParseAmount(amount)
	if err != nil {
		return err
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.move(c, asset, from, to, v)
}

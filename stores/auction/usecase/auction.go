package usecase

import (
	"sync"
	"time"

	"golang.org/x/xerrors"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/base/log"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	"github.com/auctionx/goapi/domain/ledger"
)

type AuctionUseCaseCfg struct {
	AuctionRepo auction.Repo
	Custody     ledger.AssetCustody
	Payments    ledger.PaymentSource
	Defaults    auction.Defaults

	// Now overrides the clock, for tests
	Now func() time.Time
}

type impl struct {
	repo     auction.Repo
	custody  ledger.AssetCustody
	payments ledger.PaymentSource
	defaults auction.Defaults
	now      func() time.Time

	// one mutex per auction key; every operation owns the record for the
	// duration of its execution, mirroring the serialized execution model
	// the record's invariants assume. Entries are refcounted and dropped
	// once no caller holds or waits on them.
	mu    sync.Mutex
	locks map[auction.Id]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func New(cfg *AuctionUseCaseCfg) auction.UseCase {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &impl{
		repo:     cfg.AuctionRepo,
		custody:  cfg.Custody,
		payments: cfg.Payments,
		defaults: cfg.Defaults,
		now:      now,
		locks:    map[auction.Id]*keyLock{},
	}
}

func (im *impl) lock(id auction.Id) func() {
	im.mu.Lock()
	l, ok := im.locks[id]
	if !ok {
		l = &keyLock{}
		im.locks[id] = l
	}
	l.refs++
	im.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		im.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(im.locks, id)
		}
		im.mu.Unlock()
	}
}

func (im *impl) Get(c ctx.Ctx, id auction.Id) (*auction.Auction, error) {
	return im.repo.FindOne(c, id.ToLower())
}

func (im *impl) FindAll(c ctx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	res, err := im.repo.FindAll(c, opts...)
	if err != nil {
		c.WithField("err", err).Error("auctionRepo.FindAll failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) CreateDefault(c ctx.Ctx, seller domain.Address, p auction.CreateAuctionPayload) (*auction.Auction, error) {
	return im.create(c, seller, p, false)
}

func (im *impl) CreateCustom(c ctx.Ctx, seller domain.Address, p auction.CreateAuctionPayload) (*auction.Auction, error) {
	return im.create(c, seller, p, true)
}

func (im *impl) create(c ctx.Ctx, seller domain.Address, p auction.CreateAuctionPayload, custom bool) (*auction.Auction, error) {
	if err := auction.ValidateConfig(p, custom, im.defaults); err != nil {
		return nil, err
	}

	id := auction.Id{Collection: p.Collection, TokenId: p.TokenId}.ToLower()
	unlock := im.lock(id)
	defer unlock()

	existing, err := im.repo.FindOne(c, id)
	if err != nil && err != domain.ErrNotFound {
		c.WithField("err", err).Error("auctionRepo.FindOne failed")
		return nil, err
	}
	if existing != nil && existing.Listed() {
		return nil, domain.ErrConflict
	}

	now := im.now()
	a := &auction.Auction{
		Collection:       id.Collection,
		TokenId:          id.TokenId,
		Seller:           seller.ToLower(),
		PaymentAsset:     p.PaymentAsset.ToLower(),
		MinPrice:         p.MinPrice,
		BuyNowPrice:      orZero(p.BuyNowPrice),
		BidIncreaseBps:   im.defaults.BidIncreaseBps,
		BidPeriodSeconds: int64(im.defaults.BidPeriod / time.Second),
		HighestBid:       "0",
		FeeRecipients:    p.FeeRecipients,
		FeeBps:           p.FeeBps,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	a.LowerCase()
	if custom {
		a.BidIncreaseBps = *p.BidIncreaseBps
		a.BidPeriodSeconds = *p.BidPeriodSeconds
	}

	// fold in an early bid, if one is pending on this key
	var dropBid *auction.Auction
	if existing != nil && existing.HasBid() {
		if auction.SameAsset(existing.PaymentAsset, a.PaymentAsset) {
			// the bid stays recorded; it only starts the clock when it
			// meets the new minimum price
			a.HighestBid = existing.HighestBid
			a.HighestBidder = existing.HighestBidder
			if a.MinPriceMet() {
				end := auction.FirstEnd(now, a.BidPeriod())
				a.EndTime = &end
			}
		} else {
			// the listing is denominated in another asset, so the early
			// bid can never qualify; send it back
			dropBid = existing
		}
	}

	if err := im.repo.Upsert(c, a); err != nil {
		c.WithField("err", err).Error("auctionRepo.Upsert failed")
		return nil, err
	}

	restore := func() {
		if existing != nil {
			if err := im.repo.Upsert(c, existing); err != nil {
				c.WithField("err", err).Error("restoring record failed")
			}
		} else if err := im.repo.Remove(c, id); err != nil {
			c.WithField("err", err).Error("removing record failed")
		}
	}

	if err := im.custody.TakeCustody(c, id, a.Seller); err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("custody.TakeCustody failed")
		restore()
		return nil, xerrors.Errorf("take custody: %w", domain.ErrCustodyTransferFailed)
	}

	if dropBid != nil {
		l := im.payments.ForAsset(dropBid.PaymentAsset)
		if err := l.Refund(c, dropBid.HighestBidder, dropBid.HighestBid); err != nil {
			c.WithFields(log.Fields{"err": err, "id": id}).Error("early bid refund failed")
			if cerr := im.custody.ReleaseCustody(c, id, a.Seller); cerr != nil {
				c.WithField("err", cerr).Error("custody rollback failed")
			}
			restore()
			return nil, xerrors.Errorf("refund early bid: %w", domain.ErrPaymentTransferFailed)
		}
	}

	if a.BuyNowMet() {
		end := now
		a.EndTime = &end
		a.UpdatedAt = now
		if err := im.repo.Upsert(c, a); err != nil {
			c.WithField("err", err).Error("auctionRepo.Upsert failed")
			return nil, err
		}
		if _, err := im.settleLocked(c, a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (im *impl) PlaceBid(c ctx.Ctx, bidder domain.Address, p auction.BidPayload) (*auction.Auction, error) {
	amount, err := auction.ParseAmount(p.Amount)
	if err != nil {
		return nil, err
	}

	id := auction.Id{Collection: p.Collection, TokenId: p.TokenId}.ToLower()
	bidder = bidder.ToLower()
	asset := p.PaymentAsset.ToLower()

	unlock := im.lock(id)
	defer unlock()

	prev, err := im.repo.FindOne(c, id)
	if err != nil && err != domain.ErrNotFound {
		c.WithField("err", err).Error("auctionRepo.FindOne failed")
		return nil, err
	}

	now := im.now()

	if prev == nil {
		// early bid: commit funds before the seller formally lists
		if amount.Sign() <= 0 {
			return nil, domain.ErrInsufficientBid
		}
		a := &auction.Auction{
			Collection:    id.Collection,
			TokenId:       id.TokenId,
			PaymentAsset:  asset,
			MinPrice:      "0",
			BuyNowPrice:   "0",
			HighestBid:    amount.String(),
			HighestBidder: bidder,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := im.repo.Upsert(c, a); err != nil {
			c.WithField("err", err).Error("auctionRepo.Upsert failed")
			return nil, err
		}
		if err := im.payments.ForAsset(asset).Escrow(c, bidder, a.HighestBid); err != nil {
			c.WithFields(log.Fields{"err": err, "id": id}).Error("escrow failed")
			if rerr := im.repo.Remove(c, id); rerr != nil {
				c.WithField("err", rerr).Error("removing record failed")
			}
			return nil, xerrors.Errorf("escrow bid: %w", domain.ErrPaymentTransferFailed)
		}
		return a, nil
	}

	if prev.Seller.Equals(bidder) {
		return nil, xerrors.Errorf("seller cannot bid on own auction: %w", domain.ErrBadParamInput)
	}
	if err := auction.ValidateBid(prev, asset, amount, now, im.defaults); err != nil {
		return nil, err
	}

	next := *prev
	next.HighestBid = amount.String()
	next.HighestBidder = bidder
	next.UpdatedAt = now
	switch {
	case next.BuyNowMet():
		// buy now closes bidding immediately; settlement follows in the
		// same call
		end := now
		next.EndTime = &end
	case !prev.Started():
		if next.Listed() && next.MinPriceMet() {
			end := auction.FirstEnd(now, next.BidPeriod())
			next.EndTime = &end
		}
	default:
		end := auction.ExtendedEnd(*prev.EndTime, now, next.BidPeriod(), im.defaults.SnipeWindow)
		next.EndTime = &end
	}

	if err := im.repo.Upsert(c, &next); err != nil {
		c.WithField("err", err).Error("auctionRepo.Upsert failed")
		return nil, err
	}

	restore := func() {
		if err := im.repo.Upsert(c, prev); err != nil {
			c.WithField("err", err).Error("restoring record failed")
		}
	}

	l := im.payments.ForAsset(next.PaymentAsset)
	if err := l.Escrow(c, bidder, next.HighestBid); err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("escrow failed")
		restore()
		return nil, xerrors.Errorf("escrow bid: %w", domain.ErrPaymentTransferFailed)
	}

	// refunding the outbid party is part of accepting the new bid; if the
	// refund cannot be made the whole bid fails rather than trapping funds
	if prev.HasBid() {
		if err := l.Refund(c, prev.HighestBidder, prev.HighestBid); err != nil {
			c.WithFields(log.Fields{"err": err, "id": id}).Error("outbid refund failed")
			if rerr := l.Refund(c, bidder, next.HighestBid); rerr != nil {
				c.WithField("err", rerr).Error("escrow rollback failed")
			}
			restore()
			return nil, xerrors.Errorf("refund outbid: %w", domain.ErrPaymentTransferFailed)
		}
	}

	if next.BuyNowMet() {
		if _, err := im.settleLocked(c, &next); err != nil {
			// the bid stood; hand back the committed record with the error so
			// the caller can see their bid and retry Settle
			return &next, err
		}
	}

	return &next, nil
}

func (im *impl) UpdateMinPrice(c ctx.Ctx, seller domain.Address, id auction.Id, newMinPrice string) (*auction.Auction, error) {
	id = id.ToLower()
	unlock := im.lock(id)
	defer unlock()

	a, err := im.sellerAuction(c, seller, id)
	if err != nil {
		return nil, err
	}
	if a.MinPriceMet() {
		return nil, domain.ErrAuctionHasBid
	}

	min, err := auction.ParseAmount(newMinPrice)
	if err != nil || min.Sign() == 0 {
		return nil, xerrors.Errorf("minPrice: %w", domain.ErrInvalidConfig)
	}
	if a.BuyNowEnabled() && auction.CompareAmounts(a.BuyNowPrice, newMinPrice) <= 0 {
		return nil, xerrors.Errorf("minPrice must stay below buyNowPrice: %w", domain.ErrInvalidConfig)
	}

	next := *a
	next.MinPrice = min.String()
	next.UpdatedAt = im.now()
	// lowering the minimum can qualify the standing bid and start the clock
	if !next.Started() && next.MinPriceMet() {
		end := auction.FirstEnd(im.now(), next.BidPeriod())
		next.EndTime = &end
	}

	if err := im.repo.Upsert(c, &next); err != nil {
		c.WithField("err", err).Error("auctionRepo.Upsert failed")
		return nil, err
	}
	return &next, nil
}

func (im *impl) UpdateBuyNowPrice(c ctx.Ctx, seller domain.Address, id auction.Id, newBuyNowPrice string) (*auction.Auction, error) {
	id = id.ToLower()
	unlock := im.lock(id)
	defer unlock()

	a, err := im.sellerAuction(c, seller, id)
	if err != nil {
		return nil, err
	}

	buyNow, err := auction.ParseAmount(newBuyNowPrice)
	if err != nil {
		return nil, xerrors.Errorf("buyNowPrice: %w", domain.ErrInvalidConfig)
	}
	if buyNow.Sign() != 0 && auction.CompareAmounts(newBuyNowPrice, a.MinPrice) <= 0 {
		return nil, xerrors.Errorf("buyNowPrice must exceed minPrice: %w", domain.ErrInvalidConfig)
	}

	now := im.now()
	next := *a
	next.BuyNowPrice = buyNow.String()
	next.UpdatedAt = now
	if next.BuyNowMet() {
		end := now
		next.EndTime = &end
	}

	if err := im.repo.Upsert(c, &next); err != nil {
		c.WithField("err", err).Error("auctionRepo.Upsert failed")
		return nil, err
	}

	if next.BuyNowMet() {
		if _, err := im.settleLocked(c, &next); err != nil {
			return nil, err
		}
	}
	return &next, nil
}

func (im *impl) Withdraw(c ctx.Ctx, seller domain.Address, id auction.Id) error {
	id = id.ToLower()
	unlock := im.lock(id)
	defer unlock()

	a, err := im.sellerAuction(c, seller, id)
	if err != nil {
		return err
	}
	if a.MinPriceMet() {
		return domain.ErrAuctionHasBid
	}

	if err := im.repo.Remove(c, id); err != nil {
		c.WithField("err", err).Error("auctionRepo.Remove failed")
		return err
	}

	restore := func() {
		if err := im.repo.Upsert(c, a); err != nil {
			c.WithField("err", err).Error("restoring record failed")
		}
	}

	// a standing sub-minimum bid goes back to its bidder on delisting
	if a.HasBid() {
		if err := im.payments.ForAsset(a.PaymentAsset).Refund(c, a.HighestBidder, a.HighestBid); err != nil {
			c.WithFields(log.Fields{"err": err, "id": id}).Error("bid refund failed")
			restore()
			return xerrors.Errorf("refund bid: %w", domain.ErrPaymentTransferFailed)
		}
	}

	if err := im.custody.ReleaseCustody(c, id, a.Seller); err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("custody.ReleaseCustody failed")
		if a.HasBid() {
			if rerr := im.payments.ForAsset(a.PaymentAsset).Escrow(c, a.HighestBidder, a.HighestBid); rerr != nil {
				c.WithField("err", rerr).Error("refund rollback failed")
			}
		}
		restore()
		return xerrors.Errorf("release custody: %w", domain.ErrCustodyTransferFailed)
	}

	return nil
}

func (im *impl) WithdrawBid(c ctx.Ctx, bidder domain.Address, id auction.Id) error {
	id = id.ToLower()
	bidder = bidder.ToLower()
	unlock := im.lock(id)
	defer unlock()

	a, err := im.repo.FindOne(c, id)
	if err != nil {
		return err
	}
	if a.Listed() {
		// once the seller has listed, the bid is live and can only be
		// displaced by a higher bid
		return domain.ErrAuctionHasBid
	}
	if !a.HighestBidder.Equals(bidder) {
		return domain.ErrNotBidder
	}

	if err := im.repo.Remove(c, id); err != nil {
		c.WithField("err", err).Error("auctionRepo.Remove failed")
		return err
	}
	if err := im.payments.ForAsset(a.PaymentAsset).Refund(c, a.HighestBidder, a.HighestBid); err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("early bid refund failed")
		if rerr := im.repo.Upsert(c, a); rerr != nil {
			c.WithField("err", rerr).Error("restoring record failed")
		}
		return xerrors.Errorf("refund bid: %w", domain.ErrPaymentTransferFailed)
	}
	return nil
}

func (im *impl) Settle(c ctx.Ctx, id auction.Id) (*auction.Settlement, error) {
	id = id.ToLower()
	unlock := im.lock(id)
	defer unlock()

	a, err := im.repo.FindOne(c, id)
	if err != nil {
		return nil, err
	}
	if !a.Started() || im.now().Before(*a.EndTime) {
		return nil, domain.ErrAuctionNotEnded
	}
	return im.settleLocked(c, a)
}

// settleLocked finalizes a terminal auction. The caller holds the key lock
// and has already established that bidding is over.
func (im *impl) settleLocked(c ctx.Ctx, a *auction.Auction) (*auction.Settlement, error) {
	if !a.HasBid() {
		return nil, domain.ErrNoBid
	}

	price, err := auction.ParseAmount(a.HighestBid)
	if err != nil {
		return nil, err
	}
	fees, sellerAmount := auction.SplitProceeds(price, a.FeeBps)

	id := a.ToId()
	if err := im.repo.Remove(c, id); err != nil {
		c.WithField("err", err).Error("auctionRepo.Remove failed")
		return nil, err
	}

	l := im.payments.ForAsset(a.PaymentAsset)

	type payout struct {
		to     domain.Address
		amount string
	}
	var done []payout
	compensate := func() {
		for i := len(done) - 1; i >= 0; i-- {
			if err := l.Reclaim(c, done[i].to, done[i].amount); err != nil {
				c.WithFields(log.Fields{"err": err, "to": done[i].to}).Error("payout reclaim failed")
			}
		}
		if err := im.repo.Upsert(c, a); err != nil {
			c.WithField("err", err).Error("restoring record failed")
		}
	}

	s := &auction.Settlement{
		Collection:    a.Collection,
		TokenId:       a.TokenId,
		Winner:        a.HighestBidder,
		Seller:        a.Seller,
		PaymentAsset:  a.PaymentAsset,
		SalePrice:     price.String(),
		SellerAmount:  sellerAmount.String(),
		FeeRecipients: a.FeeRecipients,
		FeeAmounts:    make([]string, len(fees)),
	}

	for i, fee := range fees {
		s.FeeAmounts[i] = fee.String()
		if fee.Sign() == 0 {
			continue
		}
		if err := l.Credit(c, a.FeeRecipients[i], fee.String()); err != nil {
			c.WithFields(log.Fields{"err": err, "to": a.FeeRecipients[i]}).Error("fee payout failed")
			compensate()
			return nil, xerrors.Errorf("pay fee: %w", domain.ErrPaymentTransferFailed)
		}
		done = append(done, payout{a.FeeRecipients[i], fee.String()})
	}

	if sellerAmount.Sign() > 0 {
		if err := l.Credit(c, a.Seller, sellerAmount.String()); err != nil {
			c.WithFields(log.Fields{"err": err, "to": a.Seller}).Error("seller payout failed")
			compensate()
			return nil, xerrors.Errorf("pay seller: %w", domain.ErrPaymentTransferFailed)
		}
		done = append(done, payout{a.Seller, sellerAmount.String()})
	}

	if err := im.custody.ReleaseCustody(c, id, a.HighestBidder); err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("custody.ReleaseCustody failed")
		compensate()
		return nil, xerrors.Errorf("release custody: %w", domain.ErrCustodyTransferFailed)
	}

	return s, nil
}

func (im *impl) sellerAuction(c ctx.Ctx, seller domain.Address, id auction.Id) (*auction.Auction, error) {
	a, err := im.repo.FindOne(c, id)
	if err != nil {
		return nil, err
	}
	if !a.Listed() {
		return nil, domain.ErrNotFound
	}
	if !a.Seller.Equals(seller) {
		return nil, domain.ErrNotSeller
	}
	return a, nil
}

func orZero(amount string) string {
	if amount == "" {
		return "0"
	}
	return amount
}

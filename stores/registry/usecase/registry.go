package usecase

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/base/log"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	"github.com/auctionx/goapi/domain/registry"
	"github.com/auctionx/goapi/service/cache"
)

type RegistryUseCaseCfg struct {
	RegistryRepo registry.Repo
	// EscrowAccount holds assets while they are in engine custody
	EscrowAccount domain.Address
	// OwnerCache, when set, caches QueryOwner reads; writes invalidate it
	OwnerCache cache.Service
}

type impl struct {
	repo   registry.Repo
	escrow domain.Address
	cache  cache.Service

	mu sync.Mutex
}

func New(cfg *RegistryUseCaseCfg) registry.UseCase {
	return &impl{
		repo:   cfg.RegistryRepo,
		escrow: cfg.EscrowAccount.ToLower(),
		cache:  cfg.OwnerCache,
	}
}

func ownerCacheKey(id auction.Id) string {
	return fmt.Sprintf("%s:%s", id.Collection.ToLowerStr(), id.TokenId)
}

func (im *impl) Mint(c ctx.Ctx, id auction.Id, owner domain.Address) (*registry.Holding, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	id = id.ToLower()
	if _, err := im.repo.FindHolding(c, id); err == nil {
		return nil, domain.ErrConflict
	} else if err != domain.ErrNotFound {
		return nil, err
	}

	h := &registry.Holding{
		Collection: id.Collection,
		TokenId:    id.TokenId,
		Owner:      owner.ToLower(),
		UpdatedAt:  time.Now(),
	}
	if err := im.repo.UpsertHolding(c, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (im *impl) SetApproval(c ctx.Ctx, collection domain.Address, owner, operator domain.Address, approved bool) error {
	return im.repo.UpsertApproval(c, &registry.OperatorApproval{
		Collection: collection,
		Owner:      owner,
		Operator:   operator,
		Approved:   approved,
		UpdatedAt:  time.Now(),
	})
}

func (im *impl) IsApproved(c ctx.Ctx, collection domain.Address, owner, operator domain.Address) (bool, error) {
	a, err := im.repo.FindApproval(c, registry.ApprovalId{
		Collection: collection.ToLower(),
		Owner:      owner.ToLower(),
		Operator:   operator.ToLower(),
	})
	if err == domain.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return a.Approved, nil
}

func (im *impl) QueryOwner(c ctx.Ctx, id auction.Id) (domain.Address, error) {
	id = id.ToLower()
	if im.cache != nil {
		h := &registry.Holding{}
		err := im.cache.GetByFunc(c, ownerCacheKey(id), h, func() (interface{}, error) {
			return im.repo.FindHolding(c, id)
		})
		if err != nil {
			return "", err
		}
		return h.Owner, nil
	}

	h, err := im.repo.FindHolding(c, id)
	if err != nil {
		return "", err
	}
	return h.Owner, nil
}

// TakeCustody moves the asset into engine escrow. It fails loudly unless
// `from` owns the asset and has approved the escrow operator.
func (im *impl) TakeCustody(c ctx.Ctx, id auction.Id, from domain.Address) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	id = id.ToLower()
	from = from.ToLower()

	h, err := im.repo.FindHolding(c, id)
	if err != nil {
		return xerrors.Errorf("find holding: %w", domain.ErrCustodyTransferFailed)
	}
	if !h.Owner.Equals(from) {
		return xerrors.Errorf("%s does not own the asset: %w", from, domain.ErrCustodyTransferFailed)
	}
	approved, err := im.IsApproved(c, id.Collection, from, im.escrow)
	if err != nil {
		return err
	}
	if !approved {
		return xerrors.Errorf("escrow operator not approved by %s: %w", from, domain.ErrCustodyTransferFailed)
	}

	return im.setOwner(c, h, im.escrow)
}

// ReleaseCustody moves the asset out of engine escrow to `to`, exactly once
// per custody period.
func (im *impl) ReleaseCustody(c ctx.Ctx, id auction.Id, to domain.Address) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	id = id.ToLower()
	h, err := im.repo.FindHolding(c, id)
	if err != nil {
		return xerrors.Errorf("find holding: %w", domain.ErrCustodyTransferFailed)
	}
	if !h.Owner.Equals(im.escrow) {
		return xerrors.Errorf("asset not in escrow: %w", domain.ErrCustodyTransferFailed)
	}
	return im.setOwner(c, h, to.ToLower())
}

func (im *impl) setOwner(c ctx.Ctx, h *registry.Holding, owner domain.Address) error {
	next := *h
	next.Owner = owner
	next.UpdatedAt = time.Now()
	if err := im.repo.UpsertHolding(c, &next); err != nil {
		return err
	}
	if im.cache != nil {
		if err := im.cache.Del(c, ownerCacheKey(h.ToId())); err != nil {
			c.WithFields(log.Fields{"err": err, "id": h.ToId()}).Warn("owner cache invalidation failed")
		}
	}
	return nil
}

package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	"github.com/auctionx/goapi/domain/registry"
	"github.com/auctionx/goapi/service/cache"
	"github.com/auctionx/goapi/service/cache/provider/primitive"
)

const (
	escrowAcct = domain.Address("0x00000000000000000000000000000000000000e5")
	owner      = domain.Address("0x00000000000000000000000000000000000000a1")
	buyer      = domain.Address("0x00000000000000000000000000000000000000b0")
	coll       = domain.Address("0x0000000000000000000000000000000000000c01")
)

type memRegistryRepo struct {
	holdings  map[auction.Id]*registry.Holding
	approvals map[registry.ApprovalId]bool

	findHoldingCalls int
}

func newMemRegistryRepo() *memRegistryRepo {
	return &memRegistryRepo{
		holdings:  map[auction.Id]*registry.Holding{},
		approvals: map[registry.ApprovalId]bool{},
	}
}

func (r *memRegistryRepo) FindHolding(c ctx.Ctx, id auction.Id) (*registry.Holding, error) {
	r.findHoldingCalls++
	h, ok := r.holdings[id.ToLower()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (r *memRegistryRepo) UpsertHolding(c ctx.Ctx, h *registry.Holding) error {
	cp := *h
	cp.Collection = cp.Collection.ToLower()
	cp.Owner = cp.Owner.ToLower()
	r.holdings[cp.ToId()] = &cp
	return nil
}

func (r *memRegistryRepo) FindApproval(c ctx.Ctx, id registry.ApprovalId) (*registry.OperatorApproval, error) {
	approved, ok := r.approvals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &registry.OperatorApproval{
		Collection: id.Collection,
		Owner:      id.Owner,
		Operator:   id.Operator,
		Approved:   approved,
	}, nil
}

func (r *memRegistryRepo) UpsertApproval(c ctx.Ctx, a *registry.OperatorApproval) error {
	id := registry.ApprovalId{
		Collection: a.Collection.ToLower(),
		Owner:      a.Owner.ToLower(),
		Operator:   a.Operator.ToLower(),
	}
	r.approvals[id] = a.Approved
	return nil
}

func assetId() auction.Id {
	return auction.Id{Collection: coll, TokenId: domain.TokenId("1")}
}

func newRegistry(repo registry.Repo, ownerCache cache.Service) registry.UseCase {
	return New(&RegistryUseCaseCfg{
		RegistryRepo:  repo,
		EscrowAccount: escrowAcct,
		OwnerCache:    ownerCache,
	})
}

func TestMint(t *testing.T) {
	uc := newRegistry(newMemRegistryRepo(), nil)
	c := ctx.Background()

	h, err := uc.Mint(c, assetId(), owner)
	require.NoError(t, err)
	assert.Equal(t, owner, h.Owner)

	_, err = uc.Mint(c, assetId(), buyer)
	assert.True(t, xerrors.Is(err, domain.ErrConflict))

	got, err := uc.QueryOwner(c, assetId())
	require.NoError(t, err)
	assert.Equal(t, owner, got)
}

func TestIsApproved(t *testing.T) {
	uc := newRegistry(newMemRegistryRepo(), nil)
	c := ctx.Background()

	approved, err := uc.IsApproved(c, coll, owner, escrowAcct)
	require.NoError(t, err)
	assert.False(t, approved, "absent approvals read as not approved")

	require.NoError(t, uc.SetApproval(c, coll, owner, escrowAcct, true))
	approved, err = uc.IsApproved(c, coll, owner, escrowAcct)
	require.NoError(t, err)
	assert.True(t, approved)

	require.NoError(t, uc.SetApproval(c, coll, owner, escrowAcct, false))
	approved, err = uc.IsApproved(c, coll, owner, escrowAcct)
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestTakeCustody(t *testing.T) {
	uc := newRegistry(newMemRegistryRepo(), nil)
	c := ctx.Background()

	_, err := uc.Mint(c, assetId(), owner)
	require.NoError(t, err)

	err = uc.TakeCustody(c, assetId(), owner)
	assert.True(t, xerrors.Is(err, domain.ErrCustodyTransferFailed), "owner has not approved the escrow operator")

	require.NoError(t, uc.SetApproval(c, coll, owner, escrowAcct, true))

	err = uc.TakeCustody(c, assetId(), buyer)
	assert.True(t, xerrors.Is(err, domain.ErrCustodyTransferFailed), "only the owner can hand over the asset")

	require.NoError(t, uc.TakeCustody(c, assetId(), owner))
	got, err := uc.QueryOwner(c, assetId())
	require.NoError(t, err)
	assert.Equal(t, escrowAcct, got)
}

func TestTakeCustodyUnknownAsset(t *testing.T) {
	uc := newRegistry(newMemRegistryRepo(), nil)

	err := uc.TakeCustody(ctx.Background(), assetId(), owner)
	assert.True(t, xerrors.Is(err, domain.ErrCustodyTransferFailed))
}

func TestReleaseCustody(t *testing.T) {
	uc := newRegistry(newMemRegistryRepo(), nil)
	c := ctx.Background()

	_, err := uc.Mint(c, assetId(), owner)
	require.NoError(t, err)

	err = uc.ReleaseCustody(c, assetId(), buyer)
	assert.True(t, xerrors.Is(err, domain.ErrCustodyTransferFailed), "asset is not in escrow")

	require.NoError(t, uc.SetApproval(c, coll, owner, escrowAcct, true))
	require.NoError(t, uc.TakeCustody(c, assetId(), owner))
	require.NoError(t, uc.ReleaseCustody(c, assetId(), buyer))

	got, err := uc.QueryOwner(c, assetId())
	require.NoError(t, err)
	assert.Equal(t, buyer, got)

	err = uc.ReleaseCustody(c, assetId(), buyer)
	assert.True(t, xerrors.Is(err, domain.ErrCustodyTransferFailed), "a custody period releases once")
}

func TestQueryOwnerCache(t *testing.T) {
	repo := newMemRegistryRepo()
	ownerCache := cache.New(cache.ServiceConfig{
		Ttl:   time.Minute,
		Pfx:   "holdingOwner",
		Cache: primitive.NewPrimitive("holdingOwner", 16),
	})
	uc := newRegistry(repo, ownerCache)
	c := ctx.Background()

	_, err := uc.Mint(c, assetId(), owner)
	require.NoError(t, err)

	got, err := uc.QueryOwner(c, assetId())
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	reads := repo.findHoldingCalls
	got, err = uc.QueryOwner(c, assetId())
	require.NoError(t, err)
	assert.Equal(t, owner, got)
	assert.Equal(t, reads, repo.findHoldingCalls, "second read comes from the cache")

	// custody transfers invalidate the cached owner
	require.NoError(t, uc.SetApproval(c, coll, owner, escrowAcct, true))
	require.NoError(t, uc.TakeCustody(c, assetId(), owner))

	got, err = uc.QueryOwner(c, assetId())
	require.NoError(t, err)
	assert.Equal(t, escrowAcct, got)
}

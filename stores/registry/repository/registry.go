package repository

import (
	bCtx "github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/base/log"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	"github.com/auctionx/goapi/domain/registry"
	"github.com/auctionx/goapi/service/query"
	"go.mongodb.org/mongo-driver/bson"
)

type registryMongoRepo struct {
	q query.Mongo
}

func NewRegistryRepo(q query.Mongo) registry.Repo {
	return &registryMongoRepo{q: q}
}

func holdingSelector(id auction.Id) bson.M {
	return bson.M{
		"collection": id.Collection.ToLower(),
		"tokenID":    id.TokenId,
	}
}

func approvalSelector(id registry.ApprovalId) bson.M {
	return bson.M{
		"collection": id.Collection.ToLower(),
		"owner":      id.Owner.ToLower(),
		"operator":   id.Operator.ToLower(),
	}
}

func (r *registryMongoRepo) FindHolding(c bCtx.Ctx, id auction.Id) (*registry.Holding, error) {
	res := &registry.Holding{}
	if err := r.q.FindOne(c, domain.TableAssetHoldings, holdingSelector(id), res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (r *registryMongoRepo) UpsertHolding(c bCtx.Ctx, h *registry.Holding) error {
	h.Collection = h.Collection.ToLower()
	h.Owner = h.Owner.ToLower()
	if err := r.q.Upsert(c, domain.TableAssetHoldings, holdingSelector(h.ToId()), h); err != nil {
		c.WithFields(log.Fields{"err": err, "id": h.ToId()}).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (r *registryMongoRepo) FindApproval(c bCtx.Ctx, id registry.ApprovalId) (*registry.OperatorApproval, error) {
	res := &registry.OperatorApproval{}
	if err := r.q.FindOne(c, domain.TableOperatorApproval, approvalSelector(id), res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (r *registryMongoRepo) UpsertApproval(c bCtx.Ctx, a *registry.OperatorApproval) error {
	a.Collection = a.Collection.ToLower()
	a.Owner = a.Owner.ToLower()
	a.Operator = a.Operator.ToLower()
	if err := r.q.Upsert(c, domain.TableOperatorApproval, approvalSelector(a.ToId()), a); err != nil {
		c.WithFields(log.Fields{"err": err, "id": a.ToId()}).Error("q.Upsert failed")
		return err
	}
	return nil
}

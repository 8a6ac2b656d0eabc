package repository

import (
	bCtx "github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/base/log"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	"github.com/auctionx/goapi/service/query"
	"go.mongodb.org/mongo-driver/bson"
)

type auctionMongoRepo struct {
	q query.Mongo
}

func NewAuctionRepo(q query.Mongo) auction.Repo {
	return &auctionMongoRepo{q: q}
}

func makeSelector(id auction.Id) bson.M {
	return bson.M{
		"collection": id.Collection.ToLower(),
		"tokenID":    id.TokenId,
	}
}

func makeFindQuery(opts auction.FindAllOptions) bson.M {
	qry := bson.M{}
	if opts.Seller != nil {
		qry["seller"] = opts.Seller.ToLowerStr()
	}
	if opts.Bidder != nil {
		qry["highestBidder"] = opts.Bidder.ToLowerStr()
	}
	if opts.Collection != nil {
		qry["collection"] = opts.Collection.ToLowerStr()
	}
	if opts.PaymentAsset != nil {
		qry["paymentAsset"] = opts.PaymentAsset.ToLowerStr()
	}
	return qry
}

func (r *auctionMongoRepo) FindOne(c bCtx.Ctx, id auction.Id) (*auction.Auction, error) {
	res := &auction.Auction{}
	if err := r.q.FindOne(c, domain.TableAuctions, makeSelector(id), res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (r *auctionMongoRepo) FindAll(c bCtx.Ctx, optFns ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	opts, err := auction.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetFindAllOptions failed")
		return nil, err
	}

	offset := int32(0)
	limit := int32(0)
	sort := "-createdAt"
	if opts.Offset != nil {
		offset = *opts.Offset
	}
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	if opts.SortBy != nil {
		sort = *opts.SortBy
		if opts.SortDir != nil && *opts.SortDir == domain.SortDirDesc {
			sort = "-" + sort
		}
	}

	res := []*auction.Auction{}
	if err := r.q.Search(c, domain.TableAuctions, int(offset), int(limit), sort, makeFindQuery(opts), &res); err != nil {
		c.WithField("err", err).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}

func (r *auctionMongoRepo) Upsert(c bCtx.Ctx, a *auction.Auction) error {
	a.LowerCase()
	if err := r.q.Upsert(c, domain.TableAuctions, makeSelector(a.ToId()), a); err != nil {
		c.WithFields(log.Fields{"err": err, "id": a.ToId()}).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (r *auctionMongoRepo) Remove(c bCtx.Ctx, id auction.Id) error {
	if err := r.q.Remove(c, domain.TableAuctions, makeSelector(id)); err == query.ErrNotFound {
		return domain.ErrNotFound
	} else if err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("q.Remove failed")
		return err
	}
	return nil
}

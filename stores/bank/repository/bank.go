package repository

import (
	"time"

	bCtx "github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/base/log"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/bank"
	"github.com/auctionx/goapi/service/query"
	"go.mongodb.org/mongo-driver/bson"
)

type bankMongoRepo struct {
	q query.Mongo
}

func NewBankRepo(q query.Mongo) bank.Repo {
	return &bankMongoRepo{q: q}
}

func balanceSelector(id bank.BalanceId) bson.M {
	return bson.M{
		"asset":  id.Asset.ToLower(),
		"holder": id.Holder.ToLower(),
	}
}

func allowanceSelector(id bank.AllowanceId) bson.M {
	return bson.M{
		"asset":   id.Asset.ToLower(),
		"owner":   id.Owner.ToLower(),
		"spender": id.Spender.ToLower(),
	}
}

func (r *bankMongoRepo) GetBalance(c bCtx.Ctx, id bank.BalanceId) (*bank.Balance, error) {
	res := &bank.Balance{}
	if err := r.q.FindOne(c, domain.TableBankBalances, balanceSelector(id), res); err == query.ErrNotFound {
		return &bank.Balance{
			Asset:  id.Asset.ToLower(),
			Holder: id.Holder.ToLower(),
			Amount: "0",
		}, nil
	} else if err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (r *bankMongoRepo) SetBalance(c bCtx.Ctx, id bank.BalanceId, amount string) error {
	b := &bank.Balance{
		Asset:     id.Asset.ToLower(),
		Holder:    id.Holder.ToLower(),
		Amount:    amount,
		UpdatedAt: time.Now(),
	}
	if err := r.q.Upsert(c, domain.TableBankBalances, balanceSelector(id), b); err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (r *bankMongoRepo) GetAllowance(c bCtx.Ctx, id bank.AllowanceId) (*bank.Allowance, error) {
	res := &bank.Allowance{}
	if err := r.q.FindOne(c, domain.TableBankAllowances, allowanceSelector(id), res); err == query.ErrNotFound {
		return &bank.Allowance{
			Asset:   id.Asset.ToLower(),
			Owner:   id.Owner.ToLower(),
			Spender: id.Spender.ToLower(),
			Amount:  "0",
		}, nil
	} else if err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (r *bankMongoRepo) SetAllowance(c bCtx.Ctx, id bank.AllowanceId, amount string) error {
	a := &bank.Allowance{
		Asset:     id.Asset.ToLower(),
		Owner:     id.Owner.ToLower(),
		Spender:   id.Spender.ToLower(),
		Amount:    amount,
		UpdatedAt: time.Now(),
	}
	if err := r.q.Upsert(c, domain.TableBankAllowances, allowanceSelector(id), a); err != nil {
		c.WithFields(log.Fields{"err": err, "id": id}).Error("q.Upsert failed")
		return err
	}
	return nil
}

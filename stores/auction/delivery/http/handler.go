package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/base/delivery"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	authMiddleware "github.com/auctionx/goapi/stores/auth/delivery/http/middleware"
)

type auctionHandler struct {
	auction auction.UseCase
}

// New registers the auction endpoints. Seller and bidder operations resolve
// the caller from the authenticated address.
func New(e *echo.Echo, uc auction.UseCase, am *authMiddleware.AuthMiddleware) {
	h := &auctionHandler{auction: uc}

	g := e.Group("/auction")
	g.POST("", h.createDefault, am.Auth())
	g.POST("/custom", h.createCustom, am.Auth())
	g.GET("/:collection/:tokenId", h.get)
	g.POST("/:collection/:tokenId/bids", h.placeBid, am.Auth())
	g.DELETE("/:collection/:tokenId/bids", h.withdrawBid, am.Auth())
	g.PATCH("/:collection/:tokenId/minPrice", h.updateMinPrice, am.Auth())
	g.PATCH("/:collection/:tokenId/buyNowPrice", h.updateBuyNowPrice, am.Auth())
	g.DELETE("/:collection/:tokenId", h.withdraw, am.Auth())
	g.POST("/:collection/:tokenId/settle", h.settle)

	e.GET("/auctions", h.list)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotSeller), errors.Is(err, domain.ErrNotBidder):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, domain.ErrWrongCurrency),
		errors.Is(err, domain.ErrInsufficientBid),
		errors.Is(err, domain.ErrAuctionEnded),
		errors.Is(err, domain.ErrAuctionNotEnded),
		errors.Is(err, domain.ErrAuctionHasBid),
		errors.Is(err, domain.ErrNoBid),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrBadParamInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCustodyTransferFailed),
		errors.Is(err, domain.ErrPaymentTransferFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func pathId(c echo.Context) auction.Id {
	return auction.Id{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}
}

func (h *auctionHandler) createDefault(c echo.Context) error {
	return h.create(c, false)
}

func (h *auctionHandler) createCustom(c echo.Context) error {
	return h.create(c, true)
}

func (h *auctionHandler) create(c echo.Context, custom bool) error {
	context := c.Get("ctx").(ctx.Ctx)
	seller := c.Get("address").(domain.Address)

	p := auction.CreateAuctionPayload{}
	if err := c.Bind(&p); err != nil {
		context.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	create := h.auction.CreateDefault
	if custom {
		create = h.auction.CreateCustom
	}
	if res, err := create(context, seller, p); err != nil {
		return delivery.MakeJsonResp(c, statusOf(err), err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, res)
	}
}

func (h *auctionHandler) get(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	if res, err := h.auction.Get(context, pathId(c)); err != nil {
		return delivery.MakeJsonResp(c, statusOf(err), err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *auctionHandler) list(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Offset     int32           `query:"offset"`
		Limit      int32           `query:"limit"`
		Seller     *domain.Address `query:"seller"`
		Bidder     *domain.Address `query:"bidder"`
		Collection *domain.Address `query:"collection"`
	}
	p := params{Limit: 50}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	opts := []auction.FindAllOptionsFunc{auction.WithPagination(p.Offset, p.Limit)}
	if p.Seller != nil {
		opts = append(opts, auction.WithSeller(*p.Seller))
	}
	if p.Bidder != nil {
		opts = append(opts, auction.WithBidder(*p.Bidder))
	}
	if p.Collection != nil {
		opts = append(opts, auction.WithCollection(*p.Collection))
	}

	if res, err := h.auction.FindAll(context, opts...); err != nil {
		return delivery.MakeJsonResp(c, statusOf(err), err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *auctionHandler) placeBid(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	bidder := c.Get("address").(domain.Address)

	type params struct {
		PaymentAsset domain.Address `json:"paymentAsset"`
		Amount       string         `json:"amount" validate:"required"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	id := pathId(c)
	bid := auction.BidPayload{
		Collection:   id.Collection,
		TokenId:      id.TokenId,
		PaymentAsset: p.PaymentAsset,
		Amount:       p.Amount,
	}
	if res, err := h.auction.PlaceBid(context, bidder, bid); err != nil {
		return delivery.MakeJsonResp(c, statusOf(err), err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, res)
	}
}

func (h *auctionHandler) withdrawBid(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	bidder := c.Get("address").(domain.Address)

	if err := h.auction.WithdrawBid(context, bidder, pathId(c)); err != nil {
		return delivery.MakeJsonResp(c, statusOf(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *auctionHandler) updateMinPrice(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	seller := c.Get("address").(domain.Address)

	type params struct {
		MinPrice string `json:"minPrice" validate:"required"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if res, err := h.auction.UpdateMinPrice(context, seller, pathId(c), p.MinPrice); err != nil {
		return delivery.MakeJsonResp(c, statusOf(err), err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *auctionHandler) updateBuyNowPrice(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	seller := c.Get("address").(domain.Address)

	type params struct {
		BuyNowPrice string `json:"buyNowPrice" validate:"required"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if res, err := h.auction.UpdateBuyNowPrice(context, seller, pathId(c), p.BuyNowPrice); err != nil {
		return delivery.MakeJsonResp(c, statusOf(err), err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *auctionHandler) withdraw(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	seller := c.Get("address").(domain.Address)

	if err := h.auction.Withdraw(context, seller, pathId(c)); err != nil {
		return delivery.MakeJsonResp(c, statusOf(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *auctionHandler) settle(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	if res, err := h.auction.Settle(context, pathId(c)); err != nil {
		return delivery.MakeJsonResp(c, statusOf(err), err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

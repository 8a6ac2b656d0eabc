package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/base/delivery"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/bank"
	authMiddleware "github.com/auctionx/goapi/stores/auth/delivery/http/middleware"
)

type bankHandler struct {
	bank bank.UseCase
}

// New registers the payment ledger endpoints. Deposits and approvals act on
// the authenticated address.
func New(e *echo.Echo, uc bank.UseCase, am *authMiddleware.AuthMiddleware) {
	h := &bankHandler{bank: uc}

	g := e.Group("/bank")
	g.POST("/deposits", h.deposit, am.Auth())
	g.POST("/approvals", h.approve, am.Auth())
	g.GET("/balance/:asset/:owner", h.balanceOf)
	g.GET("/allowance/:asset/:owner/:spender", h.allowanceOf)
}

func (h *bankHandler) deposit(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	owner := c.Get("address").(domain.Address)

	type params struct {
		Asset  domain.Address `json:"asset"`
		Amount string         `json:"amount" validate:"required"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if res, err := h.bank.Deposit(context, p.Asset, owner, p.Amount); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, res)
	}
}

func (h *bankHandler) approve(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	owner := c.Get("address").(domain.Address)

	type params struct {
		Asset   domain.Address `json:"asset" validate:"required"`
		Spender domain.Address `json:"spender" validate:"required"`
		Amount  string         `json:"amount" validate:"required"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if res, err := h.bank.Approve(context, p.Asset, owner, p.Spender, p.Amount); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, res)
	}
}

func (h *bankHandler) balanceOf(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	asset := domain.Address(c.Param("asset"))
	owner := domain.Address(c.Param("owner"))

	if res, err := h.bank.BalanceOf(context, asset, owner); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *bankHandler) allowanceOf(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	asset := domain.Address(c.Param("asset"))
	owner := domain.Address(c.Param("owner"))
	spender := domain.Address(c.Param("spender"))

	if res, err := h.bank.AllowanceOf(context, asset, owner, spender); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/base/delivery"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	"github.com/auctionx/goapi/domain/registry"
	authMiddleware "github.com/auctionx/goapi/stores/auth/delivery/http/middleware"
)

type registryHandler struct {
	registry registry.UseCase
}

func New(e *echo.Echo, uc registry.UseCase, am *authMiddleware.AuthMiddleware) {
	h := &registryHandler{registry: uc}

	g := e.Group("/registry")
	g.POST("/mint", h.mint, am.Auth())
	g.POST("/approvals", h.setApproval, am.Auth())
	g.GET("/owner/:collection/:tokenId", h.owner)
	g.GET("/approval/:collection/:owner/:operator", h.isApproved)
}

func (h *registryHandler) mint(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	owner := c.Get("address").(domain.Address)

	type params struct {
		Collection domain.Address `json:"collection" validate:"required"`
		TokenId    domain.TokenId `json:"tokenId" validate:"required"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	id := auction.Id{Collection: p.Collection, TokenId: p.TokenId}
	if res, err := h.registry.Mint(context, id, owner); err == domain.ErrConflict {
		return delivery.MakeJsonResp(c, http.StatusConflict, err)
	} else if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, res)
	}
}

func (h *registryHandler) setApproval(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	owner := c.Get("address").(domain.Address)

	type params struct {
		Collection domain.Address `json:"collection" validate:"required"`
		Operator   domain.Address `json:"operator" validate:"required"`
		Approved   bool           `json:"approved"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if err := h.registry.SetApproval(context, p.Collection, owner, p.Operator, p.Approved); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *registryHandler) owner(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	id := auction.Id{
		Collection: domain.Address(c.Param("collection")),
		TokenId:    domain.TokenId(c.Param("tokenId")),
	}

	if res, err := h.registry.QueryOwner(context, id); err == domain.ErrNotFound {
		return delivery.MakeJsonResp(c, http.StatusNotFound, err)
	} else if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *registryHandler) isApproved(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	collection := domain.Address(c.Param("collection"))
	owner := domain.Address(c.Param("owner"))
	operator := domain.Address(c.Param("operator"))

	if res, err := h.registry.IsApproved(context, collection, owner, operator); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

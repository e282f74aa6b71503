package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adaayien/internal/service"
	"adaayien/internal/transport/http/ez"
	mdw "adaayien/internal/transport/http/middleware"
)

type CartHandler struct {
	svc   *service.CartService
	authn *mdw.Authenticator
}

func NewCartHandler(svc *service.CartService, authn *mdw.Authenticator) *CartHandler {
	return &CartHandler{svc: svc, authn: authn}
}

// cartReq 数量下限由 service 校验（InsufficientQuantity）
type cartReq struct {
	FabricID string  `json:"fabricId" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

func (h *CartHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g).Group("/cart", h.authn.Required())

	ez.RegisterAction(e, ez.Action[empty, service.CartView]{
		Method: http.MethodGet, Path: "", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *empty) (service.CartView, error) {
			return h.withUser(c, func(uid string) (service.CartView, error) { return h.svc.Get(c.Request.Context(), uid) })
		},
	})
	ez.RegisterAction(e, ez.Action[cartReq, service.CartView]{
		Method: http.MethodPost, Path: "", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *cartReq) (service.CartView, error) {
			return h.withUser(c, func(uid string) (service.CartView, error) {
				return h.svc.Add(c.Request.Context(), uid, in.FabricID, in.Quantity)
			})
		},
	})
	ez.RegisterAction(e, ez.Action[cartReq, service.CartView]{
		Method: http.MethodPut, Path: "", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *cartReq) (service.CartView, error) {
			return h.withUser(c, func(uid string) (service.CartView, error) {
				return h.svc.Update(c.Request.Context(), uid, in.FabricID, in.Quantity)
			})
		},
	})
	ez.RegisterAction(e, ez.Action[empty, service.CartView]{
		Method: http.MethodDelete, Path: "/:fabricId", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *empty) (service.CartView, error) {
			return h.withUser(c, func(uid string) (service.CartView, error) {
				return h.svc.Remove(c.Request.Context(), uid, c.Param("fabricId"))
			})
		},
	})
	ez.RegisterAction(e, ez.Action[empty, service.CartView]{
		Method: http.MethodDelete, Path: "", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *empty) (service.CartView, error) {
			return h.withUser(c, func(uid string) (service.CartView, error) { return h.svc.Clear(c.Request.Context(), uid) })
		},
	})
}

func (h *CartHandler) withUser(c *gin.Context, fn func(uid string) (service.CartView, error)) (service.CartView, error) {
	p, err := principal(c)
	if err != nil {
		return service.CartView{}, err
	}
	return fn(p.User.ID)
}

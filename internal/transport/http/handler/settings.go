package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adaayien/internal/core/config"
	"adaayien/internal/domain"
	"adaayien/internal/service"
	"adaayien/internal/transport/http/ez"
	mdw "adaayien/internal/transport/http/middleware"
)

type SettingsHandler struct {
	svc    *service.SettingsService
	authn  *mdw.Authenticator
	upload config.Upload
}

func NewSettingsHandler(svc *service.SettingsService, authn *mdw.Authenticator, upload config.Upload) *SettingsHandler {
	return &SettingsHandler{svc: svc, authn: authn, upload: upload}
}

type heroReq struct {
	URLs  []string `json:"urls" form:"urls" binding:"omitempty,dive,url"`
	Image string   `json:"image" form:"image" binding:"omitempty,url"`
}

type heroRemoveQuery struct {
	PublicID string `form:"publicId"`
	ID       string `form:"id"`
}

const heroPath = "/settings/hero-images"

func (h *SettingsHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)
	ez.RegisterAction(e, ez.Action[empty, []domain.Image]{
		Method: http.MethodGet, Path: heroPath, Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *empty) ([]domain.Image, error) {
			return h.svc.HeroImages(c.Request.Context())
		},
	})
	h.mutations(e, h.authn.Required(), mdw.RequireRoles(domain.RoleAdmin))
}

func (h *SettingsHandler) MountAdmin(g *gin.RouterGroup) { h.mutations(ez.New(g)) }

func (h *SettingsHandler) mutations(e ez.EZ, guards ...gin.HandlerFunc) {
	ez.RegisterAction(e, ez.Action[heroReq, []domain.Image]{
		Method: http.MethodPut, Path: heroPath, Binder: ez.BindForm, Guards: guards,
		Handler: func(c *gin.Context, in *heroReq) ([]domain.Image, error) {
			p, err := principal(c)
			if err != nil {
				return nil, err
			}
			imgs, done, err := imageInput(c, h.upload, append(in.URLs, in.Image)...)
			if err != nil {
				return nil, err
			}
			defer done()
			return h.svc.AddHeroImages(c.Request.Context(), p.User, imgs)
		},
	})
	ez.RegisterAction(e, ez.Action[heroRemoveQuery, []domain.Image]{
		Method: http.MethodDelete, Path: heroPath, Binder: ez.BindQuery, Guards: guards,
		Handler: func(c *gin.Context, in *heroRemoveQuery) ([]domain.Image, error) {
			p, err := principal(c)
			if err != nil {
				return nil, err
			}
			return h.svc.RemoveHeroImage(c.Request.Context(), p.User, in.PublicID, in.ID)
		},
	})
}

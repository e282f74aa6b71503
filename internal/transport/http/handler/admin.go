package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adaayien/internal/domain"
	"adaayien/internal/repo"
	"adaayien/internal/service"
	"adaayien/internal/transport/http/ez"
	mdw "adaayien/internal/transport/http/middleware"
)

// AdminHandler 用户端挂在 /admin 下；后台端直接挂在已鉴权分组上
type AdminHandler struct {
	svc   *service.AdminService
	authn *mdw.Authenticator
}

func NewAdminHandler(svc *service.AdminService, authn *mdw.Authenticator) *AdminHandler {
	return &AdminHandler{svc: svc, authn: authn}
}

type adminPostsQuery struct {
	pageQuery
	CreatorID string `form:"creatorId"`
	Featured  *bool  `form:"featured"`
}

type featureReq struct {
	IsFeatured *bool `json:"isFeatured" binding:"required"`
}

func (h *AdminHandler) MountAPI(g *gin.RouterGroup) {
	h.routes(ez.New(g).Group("/admin", h.authn.Required(), mdw.RequireRoles(domain.RoleAdmin)))
}

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) { h.routes(ez.New(g)) }

func (h *AdminHandler) routes(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[adminPostsQuery, service.AdminPostsResult]{
		Method: http.MethodGet, Path: "/posts", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *adminPostsQuery) (service.AdminPostsResult, error) {
			return h.svc.ListPosts(c.Request.Context(), repo.PostFilter{CreatorID: in.CreatorID, Featured: in.Featured}, in.page())
		},
	})
	ez.RegisterAction(e, ez.Action[featureReq, *domain.Post]{
		Method: http.MethodPatch, Path: "/posts/:id/feature", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *featureReq) (*domain.Post, error) {
			p, err := principal(c)
			if err != nil {
				return nil, err
			}
			return h.svc.SetFeatured(c.Request.Context(), p.User, c.Param("id"), *in.IsFeatured)
		},
	})
	ez.RegisterAction(e, ez.Action[empty, gin.H]{
		Method: http.MethodDelete, Path: "/posts/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *empty) (gin.H, error) {
			p, err := principal(c)
			if err != nil {
				return nil, err
			}
			id := c.Param("id")
			if err := h.svc.DeletePost(c.Request.Context(), p.User, id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
	ez.RegisterAction(e, ez.Action[pageQuery, repo.Result[service.CreatorSummary]]{
		Method: http.MethodGet, Path: "/creators", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *pageQuery) (repo.Result[service.CreatorSummary], error) {
			return h.svc.ListCreators(c.Request.Context(), in.page())
		},
	})
}

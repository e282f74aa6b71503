package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adaayien/internal/core/config"
	"adaayien/internal/domain"
	"adaayien/internal/repo"
	"adaayien/internal/service"
	"adaayien/internal/transport/http/ez"
	mdw "adaayien/internal/transport/http/middleware"
)

type PostHandler struct {
	svc    *service.PostService
	authn  *mdw.Authenticator
	upload config.Upload
}

func NewPostHandler(svc *service.PostService, authn *mdw.Authenticator, upload config.Upload) *PostHandler {
	return &PostHandler{svc: svc, authn: authn, upload: upload}
}

type postQuery struct {
	pageQuery
	CreatorID string `form:"creatorId"`
	FabricID  string `form:"fabricId"`
	Featured  *bool  `form:"featured"`
}

// postReq 不接收 isFeatured；精选状态只能由管理端修改
type postReq struct {
	Title       string  `json:"title" form:"title" binding:"required,max=160"`
	Description string  `json:"description" form:"description" binding:"max=4000"`
	FabricID    string  `json:"fabricId" form:"fabricId"`
	Price       float64 `json:"price" form:"price" binding:"gte=0"`
	Image       string  `json:"image" form:"image" binding:"omitempty,url"`
}

type postUpdateReq struct {
	Title       *string  `json:"title" form:"title" binding:"omitempty,min=1,max=160"`
	Description *string  `json:"description" form:"description" binding:"omitempty,max=4000"`
	FabricID    *string  `json:"fabricId" form:"fabricId"`
	Price       *float64 `json:"price" form:"price" binding:"omitempty,gte=0"`
	Image       string   `json:"image" form:"image" binding:"omitempty,url"`
}

func (h *PostHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g).Group("/posts")
	signedIn := []gin.HandlerFunc{h.authn.Required()}

	ez.RegisterAction(e, ez.Action[postQuery, repo.Result[domain.Post]]{
		Method: http.MethodGet, Path: "", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *postQuery) (repo.Result[domain.Post], error) {
			f := repo.PostFilter{CreatorID: in.CreatorID, FabricID: in.FabricID, Featured: in.Featured}
			return h.svc.List(c.Request.Context(), f, in.page())
		},
	})
	ez.RegisterAction(e, ez.Action[pageQuery, repo.Result[domain.Post]]{
		Method: http.MethodGet, Path: "/creator/:creatorId", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *pageQuery) (repo.Result[domain.Post], error) {
			return h.svc.List(c.Request.Context(), repo.PostFilter{CreatorID: c.Param("creatorId")}, in.page())
		},
	})
	ez.RegisterAction(e, ez.Action[empty, *domain.Post]{
		Method: http.MethodGet, Path: "/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *empty) (*domain.Post, error) {
			return h.svc.Get(c.Request.Context(), c.Param("id"))
		},
	})
	ez.RegisterAction(e, ez.Action[postReq, *domain.Post]{
		Method: http.MethodPost, Path: "", Binder: ez.BindForm, Status: http.StatusCreated,
		Guards:  []gin.HandlerFunc{h.authn.Required(), mdw.RequireRoles(domain.RoleCreator, domain.RoleAdmin)},
		Handler: h.create,
	})
	ez.RegisterAction(e, ez.Action[postUpdateReq, *domain.Post]{
		Method: http.MethodPut, Path: "/:id", Binder: ez.BindForm, Guards: signedIn,
		Handler: h.update,
	})
	ez.RegisterAction(e, ez.Action[empty, gin.H]{
		Method: http.MethodDelete, Path: "/:id", Binder: ez.BindNone, Guards: signedIn,
		Handler: func(c *gin.Context, _ *empty) (gin.H, error) {
			p, err := principal(c)
			if err != nil {
				return nil, err
			}
			id := c.Param("id")
			if err := h.svc.Delete(c.Request.Context(), p.User, id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
}

func (h *PostHandler) create(c *gin.Context, in *postReq) (*domain.Post, error) {
	p, err := principal(c)
	if err != nil {
		return nil, err
	}
	imgs, done, err := imageInput(c, h.upload, in.Image)
	if err != nil {
		return nil, err
	}
	defer done()
	return h.svc.Create(c.Request.Context(), p.User, service.CreatePostInput{
		Title: in.Title, Description: in.Description, FabricID: in.FabricID, Price: in.Price, Images: imgs,
	})
}

func (h *PostHandler) update(c *gin.Context, in *postUpdateReq) (*domain.Post, error) {
	p, err := principal(c)
	if err != nil {
		return nil, err
	}
	imgs, done, err := imageInput(c, h.upload, in.Image)
	if err != nil {
		return nil, err
	}
	defer done()
	return h.svc.Update(c.Request.Context(), p.User, c.Param("id"), service.UpdatePostInput{
		Title: in.Title, Description: in.Description, FabricID: in.FabricID, Price: in.Price, Images: imgs,
	})
}

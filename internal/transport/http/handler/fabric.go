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

type FabricHandler struct {
	svc    *service.FabricService
	authn  *mdw.Authenticator
	upload config.Upload
}

func NewFabricHandler(svc *service.FabricService, authn *mdw.Authenticator, upload config.Upload) *FabricHandler {
	return &FabricHandler{svc: svc, authn: authn, upload: upload}
}

type fabricQuery struct {
	pageQuery
	Type    string `form:"type" binding:"omitempty,fabrictype"`
	InStock *bool  `form:"inStock"`
}

// fabricCreateReq 支持 multipart（images 文件）或 JSON（image 为已托管图片 URL）
type fabricCreateReq struct {
	Name        string  `json:"name" form:"name" binding:"required,max=120"`
	Description string  `json:"description" form:"description" binding:"max=2000"`
	Price       float64 `json:"price" form:"price" binding:"required,gt=0"`
	Type        string  `json:"type" form:"type" binding:"required,fabrictype"`
	Color       string  `json:"color" form:"color" binding:"required,max=40"`
	InStock     *bool   `json:"inStock" form:"inStock"`
	Image       string  `json:"image" form:"image" binding:"omitempty,url"`
}

type fabricUpdateReq struct {
	Name        *string  `json:"name" form:"name" binding:"omitempty,min=1,max=120"`
	Description *string  `json:"description" form:"description" binding:"omitempty,max=2000"`
	Price       *float64 `json:"price" form:"price" binding:"omitempty,gt=0"`
	Type        *string  `json:"type" form:"type" binding:"omitempty,fabrictype"`
	Color       *string  `json:"color" form:"color" binding:"omitempty,min=1,max=40"`
	InStock     *bool    `json:"inStock" form:"inStock"`
	Image       string   `json:"image" form:"image" binding:"omitempty,url"`
}

func (h *FabricHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g).Group("/fabrics")
	adminOnly := []gin.HandlerFunc{h.authn.Required(), mdw.RequireRoles(domain.RoleAdmin)}

	ez.RegisterAction(e, ez.Action[fabricQuery, repo.Result[domain.Fabric]]{
		Method: http.MethodGet, Path: "", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *fabricQuery) (repo.Result[domain.Fabric], error) {
			return h.svc.List(c.Request.Context(), repo.FabricFilter{Type: in.Type, InStock: in.InStock}, in.page())
		},
	})
	ez.RegisterAction(e, ez.Action[empty, *domain.Fabric]{
		Method: http.MethodGet, Path: "/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *empty) (*domain.Fabric, error) {
			return h.svc.Get(c.Request.Context(), c.Param("id"))
		},
	})
	ez.RegisterAction(e, ez.Action[fabricCreateReq, *domain.Fabric]{
		Method: http.MethodPost, Path: "", Binder: ez.BindForm, Status: http.StatusCreated, Guards: adminOnly,
		Handler: h.create,
	})
	ez.RegisterAction(e, ez.Action[fabricUpdateReq, *domain.Fabric]{
		Method: http.MethodPut, Path: "/:id", Binder: ez.BindForm, Guards: adminOnly,
		Handler: h.update,
	})
	ez.RegisterAction(e, ez.Action[empty, gin.H]{
		Method: http.MethodDelete, Path: "/:id", Binder: ez.BindNone, Guards: adminOnly,
		Handler: func(c *gin.Context, _ *empty) (gin.H, error) {
			id := c.Param("id")
			if err := h.svc.Delete(c.Request.Context(), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
}

func (h *FabricHandler) create(c *gin.Context, in *fabricCreateReq) (*domain.Fabric, error) {
	imgs, done, err := imageInput(c, h.upload, in.Image)
	if err != nil {
		return nil, err
	}
	defer done()
	return h.svc.Create(c.Request.Context(), service.CreateFabricInput{
		Name: in.Name, Description: in.Description, Price: in.Price,
		Type: in.Type, Color: in.Color, InStock: in.InStock, Images: imgs,
	})
}

func (h *FabricHandler) update(c *gin.Context, in *fabricUpdateReq) (*domain.Fabric, error) {
	imgs, done, err := imageInput(c, h.upload, in.Image)
	if err != nil {
		return nil, err
	}
	defer done()
	return h.svc.Update(c.Request.Context(), c.Param("id"), service.UpdateFabricInput{
		Name: in.Name, Description: in.Description, Price: in.Price,
		Type: in.Type, Color: in.Color, InStock: in.InStock, Images: imgs,
	})
}

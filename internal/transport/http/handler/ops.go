package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adaayien/internal/apperr"
	"adaayien/internal/service"
	"adaayien/internal/transport/http/ez"
)

// OpsHandler 只挂在后台端：图片清理队列的查看与手动重试
type OpsHandler struct {
	cleaner *service.ImageCleaner
}

func NewOpsHandler(cleaner *service.ImageCleaner) *OpsHandler { return &OpsHandler{cleaner: cleaner} }

type reconcileQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

func (h *OpsHandler) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g).Group("/images/cleanup")
	ez.RegisterAction(e, ez.Action[empty, gin.H]{
		Method: http.MethodGet, Path: "", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *empty) (gin.H, error) {
			n, err := h.cleaner.Pending(c.Request.Context())
			if err != nil {
				return nil, apperr.Internal("count cleanup tasks failed", err)
			}
			return gin.H{"pending": n}, nil
		},
	})
	ez.RegisterAction(e, ez.Action[reconcileQuery, service.ReconcileResult]{
		Method: http.MethodPost, Path: "/reconcile", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *reconcileQuery) (service.ReconcileResult, error) {
			res, err := h.cleaner.Reconcile(c.Request.Context(), in.Limit)
			if err != nil {
				return res, apperr.Internal("reconcile images failed", err)
			}
			return res, nil
		},
	})
}

package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adaayien/internal/domain"
	mdw "adaayien/internal/transport/http/middleware"
)

// NewAdminEngine 后台端（独立端口）：/admin/v1 下统一要求 admin 角色
func NewAdminEngine(l *zap.Logger, reg *Registry, authn *mdw.Authenticator, o Options) *gin.Engine {
	r := newEngine(l, o)

	admin := r.Group("/admin/v1")
	admin.Use(authn.Required(), mdw.RequireRoles(domain.RoleAdmin))
	reg.MountAllAdmin(admin)
	return r
}

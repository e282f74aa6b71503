// Package handler HTTP 入参/出参定义与路由挂载；业务规则全部在 service 层。
package handler

import (
	"github.com/gin-gonic/gin"

	"adaayien/internal/apperr"
	"adaayien/internal/repo"
	mdw "adaayien/internal/transport/http/middleware"
)

type empty struct{}

type pageQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func (q pageQuery) page() repo.Page { return repo.Page{Page: q.Page, Limit: q.Limit} }

// principal Guards 已挂 Required 时必然存在
func principal(c *gin.Context) (mdw.Principal, error) {
	p, ok := mdw.PrincipalFrom(c)
	if !ok {
		return p, apperr.Unauthenticated("authentication required")
	}
	return p, nil
}

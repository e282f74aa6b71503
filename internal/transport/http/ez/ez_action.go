// Package ez 一行注册一个接口：绑定 → 校验 → 执行 → 统一响应。
package ez

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	resp "adaayien/internal/transport/http/response"
	"adaayien/internal/transport/http/validate"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// Group 子分组，guards 作为分组中间件
func (e EZ) Group(path string, guards ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, guards...)}
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindForm  Binder = "form"  // 按 Content-Type 选择（JSON / 表单 / multipart）
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.Query 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string            // "GET" | "POST" | "PUT" | "PATCH" | "DELETE"
	Path    string            // 例："/auth/login"、"/posts/:id"
	Binder  Binder            // 绑定方式
	Status  int               // 成功时的 HTTP 状态码，默认 200
	Guards  []gin.HandlerFunc // 鉴权/角色等前置中间件
	Handler func(c *gin.Context, in *I) (O, error)
}

func bind(c *gin.Context, b Binder, in any) error {
	switch b {
	case BindJSON:
		return c.ShouldBindJSON(in)
	case BindQuery:
		return c.ShouldBindQuery(in)
	case BindForm:
		return c.ShouldBind(in)
	default:
		return nil
	}
}

// RegisterAction 错误统一交给 response.Fail 映射状态码
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			resp.Fail(c, validate.Translate(err))
			return
		}
		out, err := a.Handler(c, &in)
		if err != nil {
			resp.Fail(c, err)
			return
		}
		c.JSON(status, resp.OK(out))
	}

	handlers := append(append([]gin.HandlerFunc{}, a.Guards...), h)
	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodPatch:
		e.g.PATCH(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default: // 默认 POST
		e.g.POST(a.Path, handlers...)
	}
}

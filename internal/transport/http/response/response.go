package response

import (
	"github.com/gin-gonic/gin"

	"adaayien/internal/apperr"
)

// Resp 统一响应体；失败时 code 与 HTTP 状态码一致，error 为错误类别
type Resp struct {
	Code  int         `json:"code"`
	Msg   string      `json:"msg"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

// OK 成功响应
func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// Abort 中间件里直接终止请求
func Abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, Error(code, msg))
}

// Fail 业务错误 → HTTP 状态码 + 信封；Internal 错误在非 debug 模式下隐藏细节
func Fail(c *gin.Context, err error) {
	ae := apperr.As(err)
	_ = c.Error(err)
	status := ae.Kind.Status()

	msg := ae.Error()
	if ae.Kind == apperr.KindInternal {
		msg = ae.Msg
		if gin.IsDebugging() && ae.Err != nil {
			msg = ae.Msg + ": " + ae.Err.Error()
		}
		if msg == "" {
			msg = CodeMsgMap[CodeServerError]
		}
	}

	var data interface{}
	switch {
	case len(ae.Fields) > 0:
		data = gin.H{"fields": ae.Fields}
	case len(ae.Data) > 0:
		data = ae.Data
	}
	r := New(status, msg, data)
	r.Error = string(ae.Kind)
	c.AbortWithStatusJSON(status, r)
}

// Package apperr 业务错误分类，由 transport 层统一映射为 HTTP 状态码。
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindBadRequest         Kind = "BadRequest"
	KindDuplicateAccount   Kind = "DuplicateAccount"
	KindInvalidEmailDomain Kind = "InvalidEmailDomain"
	KindInvalidCredentials Kind = "InvalidCredentials"
	KindAccountLocked      Kind = "AccountLocked"
	KindEmailNotVerified   Kind = "EmailNotVerified"
	KindInvalidToken       Kind = "InvalidOrExpiredToken"
	KindAlreadyVerified    Kind = "AlreadyVerified"
	KindUnauthenticated    Kind = "Unauthenticated"
	KindForbidden          Kind = "Forbidden"
	KindNotFound           Kind = "NotFound"
	KindOutOfStock         Kind = "OutOfStock"
	KindInsufficientQty    Kind = "InsufficientQuantity"
	KindInternal           Kind = "Internal"
)

var statusByKind = map[Kind]int{
	KindValidation:         http.StatusUnprocessableEntity,
	KindBadRequest:         http.StatusBadRequest,
	KindDuplicateAccount:   http.StatusBadRequest,
	KindInvalidEmailDomain: http.StatusBadRequest,
	KindInvalidCredentials: http.StatusUnauthorized,
	KindAccountLocked:      http.StatusForbidden,
	KindEmailNotVerified:   http.StatusForbidden,
	KindInvalidToken:       http.StatusBadRequest,
	KindAlreadyVerified:    http.StatusBadRequest,
	KindUnauthenticated:    http.StatusUnauthorized,
	KindForbidden:          http.StatusForbidden,
	KindNotFound:           http.StatusNotFound,
	KindOutOfStock:         http.StatusBadRequest,
	KindInsufficientQty:    http.StatusBadRequest,
	KindInternal:           http.StatusInternalServerError,
}

// Status HTTP 状态码；未知 Kind 视为 500
func (k Kind) Status() int {
	if s, ok := statusByKind[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind   Kind
	Msg    string
	Err    error
	Fields map[string]string // 字段级校验信息
	Data   map[string]any    // 附加信息（如 Forbidden 的角色）
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按 Kind 比较，便于 errors.Is(err, apperr.NotFound(""))
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func New(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

func Wrap(k Kind, msg string, err error) *Error { return &Error{Kind: k, Msg: msg, Err: err} }

// WithData 追加响应数据
func (e *Error) WithData(k string, v any) *Error {
	if e.Data == nil {
		e.Data = map[string]any{}
	}
	e.Data[k] = v
	return e
}

func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Msg: "validation failed", Fields: fields}
}

func BadRequest(msg string) *Error      { return New(KindBadRequest, msg) }
func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func Forbidden(msg string) *Error       { return New(KindForbidden, msg) }
func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }
func Internal(msg string, err error) *Error {
	return Wrap(KindInternal, msg, err)
}

// KindOf 非 *Error 一律视为 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As 取出 *Error；非业务错误包装成 Internal
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal error", err)
}

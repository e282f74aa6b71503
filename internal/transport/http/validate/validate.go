// Package validate 请求体校验：在 gin binding 上注册自定义规则，并把校验错误转成字段级信息。
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"adaayien/internal/apperr"
	"adaayien/internal/domain"
)

var once sync.Once

// Setup 幂等；路由构建前调用
func Setup() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonName)
		_ = v.RegisterValidation("strongpwd", strongPassword)
		_ = v.RegisterValidation("fabrictype", func(fl validator.FieldLevel) bool {
			return domain.ValidFabricType(fl.Field().String())
		})
	})
}

func jsonName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// StrongPassword 至少 8 位，包含大小写字母、数字与符号
func StrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

func strongPassword(fl validator.FieldLevel) bool { return StrongPassword(fl.Field().String()) }

// Translate 绑定错误 → ValidationError；非校验类错误（JSON 语法等）也按 422 返回
func Translate(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return apperr.Validation(map[string]string{"body": "malformed request: " + err.Error()})
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fe.Field()] = message(fe)
	}
	return apperr.Validation(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "strongpwd":
		return "must be at least 8 characters and include upper and lower case letters, a digit and a symbol"
	case "fabrictype":
		return "must be one of " + strings.Join(domain.FabricTypes, ", ")
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

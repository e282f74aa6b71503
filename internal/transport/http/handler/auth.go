package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adaayien/internal/apperr"
	"adaayien/internal/domain"
	"adaayien/internal/service"
	"adaayien/internal/transport/http/ez"
	mdw "adaayien/internal/transport/http/middleware"
)

type AuthHandler struct {
	svc         *service.AuthService
	authn       *mdw.Authenticator
	frontendURL string
	l           *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, authn *mdw.Authenticator, frontendURL string, l *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, authn: authn, frontendURL: strings.TrimRight(frontendURL, "/"), l: l.Named("http.auth")}
}

func (h *AuthHandler) Priority() int { return 10 }

type registerReq struct {
	Name     string `json:"name" binding:"required,min=2,max=64"`
	Email    string `json:"email" binding:"required,email,max=191"`
	Password string `json:"password" binding:"required,strongpwd"`
	Role     string `json:"role"`
	Bio      string `json:"bio" binding:"max=500"`
	Phone    string `json:"phone" binding:"max=32"`
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type emailReq struct {
	Email string `json:"email" binding:"required,email"`
}

type profileReq struct {
	Name           *string           `json:"name" binding:"omitempty,min=2,max=64"`
	Phone          *string           `json:"phone" binding:"omitempty,max=32"`
	ProfilePic     *string           `json:"profilePic" binding:"omitempty,max=1024"`
	Bio            *string           `json:"bio" binding:"omitempty,max=500"`
	Specialization *string           `json:"specialization" binding:"omitempty,max=120"`
	Preferences    map[string]string `json:"preferences"`
}

func (h *AuthHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g).Group("/auth")

	ez.RegisterAction(e, ez.Action[registerReq, service.RegisterResult]{
		Method: http.MethodPost, Path: "/register", Binder: ez.BindJSON, Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *registerReq) (service.RegisterResult, error) {
			return h.svc.Register(c.Request.Context(), service.RegisterInput{
				Name: in.Name, Email: in.Email, Password: in.Password,
				Role: domain.Role(strings.ToLower(in.Role)), Bio: in.Bio, Phone: in.Phone,
			})
		},
	})
	ez.RegisterAction(e, ez.Action[loginReq, service.LoginResult]{
		Method: http.MethodPost, Path: "/login", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginReq) (service.LoginResult, error) {
			return h.svc.Login(c.Request.Context(), in.Email, in.Password)
		},
	})
	ez.RegisterAction(e, ez.Action[emailReq, service.ResendResult]{
		Method: http.MethodPost, Path: "/resend-verification", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *emailReq) (service.ResendResult, error) {
			return h.svc.ResendVerification(c.Request.Context(), in.Email)
		},
	})
	ez.RegisterAction(e, ez.Action[empty, service.ProfileResult]{
		Method: http.MethodGet, Path: "/profile", Binder: ez.BindNone,
		Guards: []gin.HandlerFunc{h.authn.Required()},
		Handler: func(c *gin.Context, _ *empty) (service.ProfileResult, error) {
			p, err := principal(c)
			if err != nil {
				return service.ProfileResult{}, err
			}
			return h.svc.Profile(c.Request.Context(), p.User, p.Kind)
		},
	})
	ez.RegisterAction(e, ez.Action[profileReq, service.ProfileResult]{
		Method: http.MethodPut, Path: "/profile", Binder: ez.BindJSON,
		Guards: []gin.HandlerFunc{h.authn.Required()},
		Handler: func(c *gin.Context, in *profileReq) (service.ProfileResult, error) {
			p, err := principal(c)
			if err != nil {
				return service.ProfileResult{}, err
			}
			return h.svc.UpdateProfile(c.Request.Context(), p.User, p.Kind, service.UpdateProfileInput{
				Name: in.Name, Phone: in.Phone, ProfilePic: in.ProfilePic,
				Bio: in.Bio, Specialization: in.Specialization, Preferences: in.Preferences,
			})
		},
	})

	// 邮件里的链接由浏览器打开，结果一律以跳转返回
	g.GET("/auth/verify-email/:token", h.verifyEmail)
	g.GET("/auth/verify-email", h.verifyEmail)
}

func (h *AuthHandler) verifyEmail(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		h.redirect(c, url.Values{"verification": {"error"}, "message": {"missing-token"}})
		return
	}
	res, err := h.svc.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		_ = c.Error(err)
		msg := "server-error"
		if apperr.KindOf(err) == apperr.KindInvalidToken {
			msg = "invalid-token"
		}
		h.redirect(c, url.Values{"verification": {"error"}, "message": {msg}})
		return
	}
	user, err := json.Marshal(res.User)
	if err != nil {
		h.l.Error("encode user failed", zap.Error(err))
		h.redirect(c, url.Values{"verification": {"error"}, "message": {"server-error"}})
		return
	}
	h.redirect(c, url.Values{"verification": {"success"}, "token": {res.Token}, "user": {string(user)}})
}

func (h *AuthHandler) redirect(c *gin.Context, q url.Values) {
	c.Redirect(http.StatusFound, h.frontendURL+"/login?"+q.Encode())
}

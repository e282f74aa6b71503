package service

import (
	"context"
	"net"
	"net/mail"
	"strings"
	"time"

	"adaayien/internal/apperr"
)

type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

var disposableDomains = map[string]struct{}{
	"mailinator.com": {}, "10minutemail.com": {}, "guerrillamail.com": {}, "tempmail.com": {},
	"temp-mail.org": {}, "yopmail.com": {}, "trashmail.com": {}, "throwawaymail.com": {},
	"getnada.com": {}, "dispostable.com": {}, "sharklasers.com": {}, "maildrop.cc": {},
	"fakeinbox.com": {}, "mailnesia.com": {},
}

// EmailChecker 注册前的邮箱域名过滤：语法、一次性邮箱、MX 记录。DNS 失败按无效处理
type EmailChecker struct {
	r       MXResolver
	timeout time.Duration
}

func NewEmailChecker(r MXResolver) *EmailChecker {
	if r == nil {
		r = net.DefaultResolver
	}
	return &EmailChecker{r: r, timeout: 5 * time.Second}
}

func (c *EmailChecker) Check(ctx context.Context, email string) error {
	domain, ok := emailDomain(email)
	if !ok {
		return apperr.New(apperr.KindInvalidEmailDomain, "email address is malformed")
	}
	if _, bad := disposableDomains[domain]; bad {
		return apperr.New(apperr.KindInvalidEmailDomain, "disposable email addresses are not allowed")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	mxs, err := c.r.LookupMX(ctx, domain)
	if err != nil || len(mxs) == 0 {
		return apperr.Wrap(apperr.KindInvalidEmailDomain, "email domain cannot receive mail", err)
	}
	// RFC 7505 null MX
	if len(mxs) == 1 && (mxs[0].Host == "." || mxs[0].Host == "") {
		return apperr.New(apperr.KindInvalidEmailDomain, "email domain cannot receive mail")
	}
	return nil
}

func emailDomain(email string) (string, bool) {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	domain := strings.ToLower(email[at+1:])
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", false
	}
	return domain, true
}

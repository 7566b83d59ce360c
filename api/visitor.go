package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const (
	visitorCookieName = "showcase_visitor"
	visitorContextKey = "visitor"
	visitorIssuer     = "showcase-web"
)

// Visitors issues and verifies the signed cookie that identifies a browser.
// The visitor id scopes everything the site keeps on the browser's behalf.
type Visitors struct {
	secret []byte
	ttl    time.Duration
	secure bool
	parser *jwt.Parser
}

// NewVisitors creates a cookie issuer signing with secret.
func NewVisitors(secret []byte, ttl time.Duration, secure bool) *Visitors {
	if len(secret) == 0 {
		panic("api.NewVisitors: empty secret")
	}
	return &Visitors{
		secret: secret,
		ttl:    ttl,
		secure: secure,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Issue signs a token for visitor id.
func (v *Visitors) Issue(id string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		Issuer:    visitorIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify returns the visitor id carried by token.
func (v *Visitors) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid visitor token")
	}
	if !claims.VerifyIssuer(visitorIssuer, true) {
		return "", errors.New("invalid issuer")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("invalid visitor id")
	}
	return claims.Subject, nil
}

// Middleware resolves the visitor from the cookie, issuing a new visitor when
// the cookie is missing, expired or forged.
func (v *Visitors) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookie, err := c.Cookie(visitorCookieName); err == nil {
				id, verr := v.Verify(cookie.Value)
				if verr == nil {
					c.Set(visitorContextKey, id)
					return next(c)
				}
				log.WithError(verr).Debug("rejecting visitor cookie")
			}

			id := uuid.NewString()
			token, err := v.Issue(id)
			if err != nil {
				return err
			}
			c.SetCookie(&http.Cookie{
				Name:     visitorCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(v.ttl / time.Second),
				HttpOnly: true,
				Secure:   v.secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(visitorContextKey, id)
			return next(c)
		}
	}
}

// VisitorID returns the visitor resolved by the middleware.
func VisitorID(c echo.Context) string {
	id, _ := c.Get(visitorContextKey).(string)
	return id
}

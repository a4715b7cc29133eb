package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/BotCoder254/projects254/configs"
	"github.com/BotCoder254/projects254/internal/logging"
	"github.com/BotCoder254/projects254/internal/security"
)

type Authenticator interface {
	Authenticate(email, password string) (security.Principal, error)
}

type TokenHandler struct {
	accounts Authenticator
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenHandler(cfg configs.Config, accounts Authenticator) *TokenHandler {
	return &TokenHandler{
		accounts: accounts,
		secret:   []byte(cfg.Security.JWTSecret),
		issuer:   cfg.Security.Issuer,
		audience: cfg.Security.Audience,
		ttl:      cfg.Security.TTL,
		now:      time.Now,
	}
}

type tokenReq struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// IssueToken exchanges staff credentials (form or JSON) for a bearer token.
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	p, err := h.accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		logging.From(c).Warn("login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	now := h.now()
	claims := jwt.MapClaims{
		"iss":   h.issuer,
		"aud":   h.audience,
		"sub":   p.Subject,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(h.ttl).Unix(),
		"role":  p.Role,
		"perms": p.Perms,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int(h.ttl.Seconds()),
	})
}

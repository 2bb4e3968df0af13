package identity

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type jwtResolver struct {
	secret []byte
	log    *zap.Logger
}

// NewJWTResolver verifies HMAC-signed bearer tokens issued by the
// identity provider.
func NewJWTResolver(secret string, log *zap.Logger) Resolver {
	return &jwtResolver{
		secret: []byte(secret),
		log:    log.Named("identity.resolver"),
	}
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
	OrgID string `json:"org_id,omitempty"`
}

func (r *jwtResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	_ = ctx

	token = strings.TrimSpace(token)
	if token == "" || len(r.secret) == 0 {
		return nil, ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		r.log.Debug("token rejected", zap.Error(err))
		return nil, ErrUnauthorized
	}

	c, ok := parsed.Claims.(*claims)
	if !ok {
		return nil, ErrUnauthorized
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(c.Subject))
	if err != nil {
		return nil, ErrUnauthorized
	}

	ident := &Identity{
		UserID: userID,
		Email:  strings.TrimSpace(c.Email),
		Role:   strings.ToLower(strings.TrimSpace(c.Role)),
	}
	if raw := strings.TrimSpace(c.OrgID); raw != "" {
		orgID, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, ErrUnauthorized
		}
		ident.OrgID = &orgID
	}

	return ident, nil
}

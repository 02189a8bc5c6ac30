package apiv1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"messmate/internal/config"
	"messmate/internal/domain"
	"messmate/internal/domain/model"
	"messmate/internal/infra/api"
	"messmate/internal/infra/logging"
	"messmate/internal/usecase"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Claims are the identity-provider token claims the API relies on.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and resolves the local user.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
	users    usecase.UserUseCase
	log      *zerolog.Logger
}

func NewAuthenticator(cfg config.AuthConfig, users usecase.UserUseCase, logger *zerolog.Logger) *Authenticator {
	return &Authenticator{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		users:    users,
		log:      logger,
	}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parseFromRequest(r)
		if err != nil {
			api.Fail(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		user, err := a.users.EnsureUser(r.Context(), claims.Subject, claims.Email, claims.Name)
		if err != nil {
			api.Error(w, r, a.log, err)
			return
		}
		ctx := withUser(r.Context(), user)
		ctx = logging.WithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) parseFromRequest(r *http.Request) (*Claims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errors.New("missing token")
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *Authenticator) parse(tok string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

type userKey struct{}

func withUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the authenticated user placed in ctx by the middleware.
func UserFrom(ctx context.Context) (*model.User, error) {
	u, ok := ctx.Value(userKey{}).(*model.User)
	if !ok || u.IsZero() {
		return nil, domain.ErrUnauthenticated
	}
	return u, nil
}

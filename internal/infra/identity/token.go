package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/infra/config"
	"github.com/docplatform/authz-service/internal/infra/logger"
	"github.com/docplatform/authz-service/internal/usecase"
)

// Claims carries the subject reference inside locally issued tokens. Only the
// user ID travels in the token; flags, roles, and the permission closure are
// always read from the store so revocations take effect immediately.
type Claims struct {
	jwt.RegisteredClaims
}

// LocalProvider verifies HMAC-signed JWTs and resolves subjects against the
// local user store.
type LocalProvider struct {
	secret []byte
	issuer string
	users  *usecase.UserService
	log    *zap.Logger
}

// NewLocalProvider constructs a LocalProvider.
func NewLocalProvider(cfg config.IdentitySettings, users *usecase.UserService, log *zap.Logger) (*LocalProvider, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("identity.jwt_secret is required in local mode")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalProvider{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		users:  users,
		log:    log,
	}, nil
}

// IssueToken signs a token for the given user. Exposed for development and
// integration tooling; production callers obtain tokens from the identity
// service.
func (p *LocalProvider) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    p.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// ResolveSubject verifies the credential and loads the subject descriptor.
// Any verification or lookup failure resolves to ErrUnauthenticated; an
// unknown or broken credential never becomes a guest subject.
func (p *LocalProvider) ResolveSubject(ctx context.Context, credential string) (*domain.Subject, error) {
	claims, err := p.verify(credential)
	if err != nil {
		p.log.Debug("token verification failed",
			zap.String("token", logger.MaskToken(credential)),
			zap.Error(err),
		)
		return nil, usecase.ErrUnauthenticated
	}

	subject, err := p.users.ResolveSubject(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, usecase.ErrUnauthenticated) {
			return nil, usecase.ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve subject: %w", err)
	}

	return subject, nil
}

func (p *LocalProvider) verify(credential string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return claims, nil
}

var _ port.IdentityProvider = (*LocalProvider)(nil)

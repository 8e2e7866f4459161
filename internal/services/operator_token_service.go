package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
)

// DefaultOperatorTokenTTL is the lifetime of an operator bearer token.
const DefaultOperatorTokenTTL = time.Hour

// OperatorTokenService issues and validates the bearer tokens of the operator routes.
type OperatorTokenService struct {
	auth       *RequestAuthenticator
	operators  map[string]bool
	jwtSecret  []byte
	tokenDurat time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewOperatorTokenService creates a new OperatorTokenService.
func NewOperatorTokenService(auth *RequestAuthenticator, operatorUUIDs []string, jwtSecret string, ttl time.Duration, logger *zap.Logger) *OperatorTokenService {
	if ttl <= 0 {
		ttl = DefaultOperatorTokenTTL
	}
	operators := make(map[string]bool, len(operatorUUIDs))
	for _, id := range operatorUUIDs {
		operators[id] = true
	}
	return &OperatorTokenService{
		auth:       auth,
		operators:  operators,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: ttl,
		now:        time.Now,
		logger:     logger,
	}
}

// IssueToken authenticates a signed request from a configured operator and returns a JWT.
func (s *OperatorTokenService) IssueToken(ctx context.Context, uuid, timestamp, signature string) (string, error) {
	if _, err := s.auth.Authenticate(ctx, uuid, timestamp, signature, OperatorTokenMessage(timestamp, uuid)); err != nil {
		return "", err
	}
	if !s.operators[uuid] {
		s.logger.Debug("request rejected", zap.String("stage", string(StageAuthorized)), zap.String("uuid", uuid))
		return "", newAuthError(StageAuthorized, "%s is not an operator", uuid)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid,
		"role": "operator",
		"exp":  now.Add(s.tokenDurat).Unix(),
		"iat":  now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	s.logger.Info("operator token issued", zap.String("uuid", uuid))
	return tokenString, nil
}

// ValidateToken parses and validates an operator token, returning its claims.
func (s *OperatorTokenService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if sub, _ := claims["sub"].(string); claims["role"] != "operator" || !s.operators[sub] {
		return nil, fmt.Errorf("token does not belong to an operator")
	}
	return claims, nil
}

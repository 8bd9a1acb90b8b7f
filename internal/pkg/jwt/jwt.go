package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const tokenTypeAccess = "access"

// Claims are the identity fields the attendance API reads from an access token.
type Claims struct {
	UserID     string
	EmployeeID *string
	Role       user.Role
}

type Service interface {
	GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error)
	ValidateAccessToken(tokenString string) (Claims, error)
	JWTAuth() *jwtauth.JWTAuth
}

// JWTService verifies HS256 access tokens issued by the HRIS auth service.
// Token generation is kept for tooling and tests.
type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime time.Duration) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error) {
	if claims.UserID == "" {
		return "", 0, user.ErrUserIdentityMissing
	}
	expiresAt = time.Now().Add(j.accessTokenExpirationTime).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":     claims.UserID,
		"employee_id": returnValueOrNil(claims.EmployeeID),
		"role":        string(claims.Role),
		"type":        tokenTypeAccess,
		"exp":         expiresAt,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateAccessToken decodes and verifies tokenString and returns its claims.
func (j *JWTService) ValidateAccessToken(tokenString string) (Claims, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return Claims{}, err
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return Claims{}, user.ErrInvalidToken
	}
	return ClaimsFromMap(claims)
}

// ClaimsFromMap reads the identity fields out of decoded token claims.
func ClaimsFromMap(claims map[string]interface{}) (Claims, error) {
	if tokenType, ok := claims["type"].(string); !ok || tokenType != tokenTypeAccess {
		return Claims{}, user.ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, user.ErrUserIdentityMissing
	}

	result := Claims{UserID: userID}
	if role, ok := claims["role"].(string); ok {
		result.Role = user.Role(role)
	}
	if employeeID, ok := claims["employee_id"].(string); ok && employeeID != "" {
		result.EmployeeID = &employeeID
	}
	return result, nil
}

func returnValueOrNil(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

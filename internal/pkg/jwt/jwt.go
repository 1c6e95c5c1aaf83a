package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// AccessClaims are the identity claims carried by an access token.
type AccessClaims struct {
	UserID     string
	EmployeeID string
	CompanyID  string
	Role       user.Role
}

type Service interface {
	// GenerateAccessToken mints a token the way the identity service does; used by
	// tooling and tests, this service only verifies tokens in production.
	GenerateAccessToken(claims AccessClaims) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(c AccessClaims) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	claims := map[string]interface{}{
		"user_id":     c.UserID,
		"employee_id": c.EmployeeID,
		"company_id":  c.CompanyID,
		"role":        string(c.Role),
		"type":        "access",
		"exp":         expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// CallerFromClaims builds the request caller from verified access token claims.
func CallerFromClaims(claims map[string]interface{}) (auth.Caller, error) {
	tokenType, _ := claims["type"].(string)
	if tokenType != "access" {
		return auth.Caller{}, auth.ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return auth.Caller{}, fmt.Errorf("%w: user_id claim missing", auth.ErrInvalidToken)
	}

	companyID, _ := claims["company_id"].(string)
	if companyID == "" {
		return auth.Caller{}, auth.ErrCompanyRequired
	}

	roleStr, _ := claims["role"].(string)
	role, ok := user.ParseRole(roleStr)
	if !ok {
		return auth.Caller{}, fmt.Errorf("%w: %w", auth.ErrInvalidToken, user.ErrInvalidRole)
	}

	employeeID, _ := claims["employee_id"].(string)

	return auth.Caller{
		UserID:     userID,
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Role:       role,
	}, nil
}

// CallerFromContext reads the verified token jwtauth.Verifier stored in ctx.
func CallerFromContext(ctx context.Context) (auth.Caller, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return auth.Caller{}, auth.ErrUnauthorized
	}
	return CallerFromClaims(claims)
}

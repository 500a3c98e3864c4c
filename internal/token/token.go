// Package token issues and validates the access tokens callers present.
// Tokens carry the verified owner claim; the registry trusts it as-is and
// provisions owner records from it on first contact.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "strdep/pkg/domain-errors"
	"strdep/pkg/requestcontext"
)

// Claims are the JWT claims of a registry access token.
type Claims struct {
	OwnerID   string `json:"owner_id"`
	OwnerName string `json:"owner_name"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey string, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Generate signs an access token for the given owner claim.
func (s *Service) Generate(ownerID, ownerName string, role requestcontext.Role, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Role:      string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// Validate parses a token and maps its claims to a principal.
func (s *Service) Validate(tokenString string) (requestcontext.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	role := requestcontext.Role(claims.Role)
	if role != requestcontext.RoleAuthority && role != requestcontext.RolePlatform {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "unknown role claim")
	}
	if claims.OwnerID == "" {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "missing owner claim")
	}

	return requestcontext.Principal{
		OwnerID:     claims.OwnerID,
		DisplayName: claims.OwnerName,
		Role:        role,
	}, nil
}

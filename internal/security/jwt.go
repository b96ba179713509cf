package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const RoleDriver = "driver"

var ErrInvalidToken = errors.New("invalid token")

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access token seconds
}

type JWTManager struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewJWTManager(signingKey string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		signingKey: []byte(signingKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

type AccessClaims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	DriverID string `json:"driver_id"`
}

type RefreshClaims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	DriverID string `json:"driver_id"`
}

// Issue signs an access/refresh pair. The refresh token's ID is returned
// so the caller can register it in the refresh store.
func (m *JWTManager) Issue(role string, driverID uuid.UUID) (Tokens, RefreshClaims, error) {
	now := m.now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   driverID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
		Role:     role,
		DriverID: driverID.String(),
	})
	accessToken, err := access.SignedString(m.signingKey)
	if err != nil {
		return Tokens{}, RefreshClaims{}, err
	}

	refreshClaims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   driverID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
		Role:     role,
		DriverID: driverID.String(),
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(m.signingKey)
	if err != nil {
		return Tokens{}, RefreshClaims{}, err
	}

	return Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, refreshClaims, nil
}

func (m *JWTManager) ParseAccess(tokenStr string) (driverID uuid.UUID, role string, err error) {
	var claims AccessClaims
	if err := m.parse(tokenStr, &claims); err != nil {
		return uuid.Nil, "", err
	}
	id := claims.DriverID
	if id == "" {
		id = claims.Subject
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role == "" {
		claims.Role = RoleDriver
	}
	return uid, claims.Role, nil
}

func (m *JWTManager) ParseRefresh(tokenStr string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := m.parse(tokenStr, &claims); err != nil {
		return RefreshClaims{}, err
	}
	if claims.DriverID == "" {
		claims.DriverID = claims.Subject
	}
	if claims.ID == "" {
		return RefreshClaims{}, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}
	if claims.Role == "" {
		claims.Role = RoleDriver
	}
	return claims, nil
}

func (m *JWTManager) parse(tokenStr string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.signingKey, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return ErrInvalidToken
	}
	return nil
}

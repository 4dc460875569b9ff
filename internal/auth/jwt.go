// Package auth выдаёт и проверяет токены операторов REST API.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role права оператора
type Role string

const (
	RoleViewer Role = "viewer" // только чтение
	RoleEditor Role = "editor" // правка блоков и сущностей
)

const issuer = "voxel-engine"

var (
	ErrInvalidToken = errors.New("недействительный токен")
	ErrTokenExpired = errors.New("срок действия токена истёк")
)

// Claims represents JWT claims
type Claims struct {
	Operator string `json:"operator"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// CanEdit – оператор может менять мир
func (c *Claims) CanEdit() bool {
	return c.Role == RoleEditor
}

// Allows – роль оператора не ниже required (editor включает viewer)
func (c *Claims) Allows(required Role) bool {
	switch required {
	case RoleViewer:
		return c.Role == RoleViewer || c.Role == RoleEditor
	case RoleEditor:
		return c.CanEdit()
	default:
		return false
	}
}

// Issuer подписывает и проверяет токены общим секретом HS256
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer создаёт издателя с секретом в base64 (не короче 32 байт).
// Пустой секрет – случайный ключ на время жизни процесса.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	if secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("генерация секрета: %w", err)
		}
		return &Issuer{secret: key, ttl: ttl}, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("секрет должен быть в base64: %w", err)
	}
	if len(decoded) < 32 {
		return nil, errors.New("secret key must be at least 32 bytes")
	}
	return &Issuer{secret: decoded, ttl: ttl}, nil
}

// Generate creates a secure JWT token for the given operator
func (i *Issuer) Generate(operator string, role Role) (string, error) {
	if role != RoleViewer && role != RoleEditor {
		return "", fmt.Errorf("неизвестная роль %q", role)
	}

	now := time.Now()
	claims := &Claims{
		Operator: operator,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   operator,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Validate checks token validity and returns its claims
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithIssuer(issuer))

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenExpired)
	}
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecureSecret generates a new secure secret key
func GenerateSecureSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/eduassess-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidAccessPhrase = errors.New("invalid access phrase")
	ErrInvalidToken        = errors.New("invalid token claims")
)

// TokenType distinguishes token audiences. Only educators hold tokens;
// students are identified per attempt.
type TokenType string

const TokenTypeTeacher TokenType = "teacher"

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
}

// AuthService gates the educator area behind the shared access phrase.
type AuthService struct {
	cfg *config.Config
	now func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg, now: time.Now}
}

// HashPhrase hashes an access phrase with the configured bcrypt cost, for
// use as TEACHER_ACCESS_HASH.
func (s *AuthService) HashPhrase(phrase string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(phrase), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckAccessPhrase compares phrase with TEACHER_ACCESS_HASH, or with the
// plain TEACHER_ACCESS_PHRASE when no hash is configured. With neither set
// every phrase is refused.
func (s *AuthService) CheckAccessPhrase(phrase string) error {
	if phrase == "" {
		return ErrInvalidAccessPhrase
	}
	if s.cfg.TeacherAccessHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.TeacherAccessHash), []byte(phrase)); err != nil {
			return ErrInvalidAccessPhrase
		}
		return nil
	}
	if s.cfg.TeacherAccessPhrase != "" &&
		subtle.ConstantTimeCompare([]byte(s.cfg.TeacherAccessPhrase), []byte(phrase)) == 1 {
		return nil
	}
	return ErrInvalidAccessPhrase
}

// Login checks the access phrase and issues a teacher token.
func (s *AuthService) Login(phrase string) (string, error) {
	if err := s.CheckAccessPhrase(phrase); err != nil {
		return "", err
	}
	return s.GenerateTeacherToken()
}

// GenerateTeacherToken creates a signed HS256 educator JWT.
func (s *AuthService) GenerateTeacherToken() (string, error) {
	now := s.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   string(TokenTypeTeacher),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeTeacher,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != TokenTypeTeacher {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

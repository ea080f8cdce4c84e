package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledger/models"
	"ledger/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims is what the access token carries.
type Claims struct {
	Username string
	Role     string
}

type Tokens struct {
	Access  string `json:"token"`
	Refresh string `json:"refresh_token"`
}

// Service issues HS256 access tokens and rotating refresh tokens. Refresh
// tokens are stored only as a sha256 hash.
type Service struct {
	db         *gorm.DB
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(db *gorm.DB, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{db: db, secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

func (s *Service) RegisterUser(ctx context.Context, username, password, roleName string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username required")
	}
	if len(password) < 6 { // basic password policy
		return fmt.Errorf("password too short (min 6)")
	}
	if roleName == "" {
		roleName = models.RoleAccountant
	}
	db := s.db.WithContext(ctx)

	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return ErrUserExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		return fmt.Errorf("unknown role %q: %w", roleName, err)
	}
	rid := role.ID
	user := models.User{Username: username, HashedPassword: hashed, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		if apperrors.IsUniqueViolation(err) { // race after the pre-check
			return ErrUserExists
		}
		return err
	}
	return nil
}

// ResetPassword replaces the password of username and revokes its refresh tokens.
func (s *Service) ResetPassword(ctx context.Context, username, password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password too short (min 6)")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Update("hashed_password", hashed).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Update("revoked", true).Error
	})
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Role").
		Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (Tokens, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return Tokens{}, err
	}
	return s.issue(ctx, user)
}

// Refresh exchanges a refresh token for a new pair and revokes the old one.
func (s *Service) Refresh(ctx context.Context, raw string) (Tokens, error) {
	rt, err := s.findRefresh(ctx, raw)
	if err != nil || !rt.Usable(s.now()) {
		return Tokens{}, ErrInvalidRefresh
	}
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&user, rt.UserID).Error; err != nil {
		return Tokens{}, ErrInvalidRefresh
	}
	if err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ?", rt.ID).Update("revoked", true).Error; err != nil {
		return Tokens{}, err
	}
	return s.issue(ctx, user)
}

// Revoke marks a refresh token unusable (logout).
func (s *Service) Revoke(ctx context.Context, raw string) error {
	rt, err := s.findRefresh(ctx, raw)
	if err != nil {
		return err
	}
	rt.Revoked = true
	return s.db.WithContext(ctx).Save(rt).Error
}

func (s *Service) issue(ctx context.Context, user models.User) (Tokens, error) {
	access, err := s.SignAccess(Claims{Username: user.Username, Role: user.Role.Name})
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to generate token: %w", err)
	}
	refresh, err := s.storeRefresh(ctx, user.ID)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to create refresh token: %w", err)
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}

func (s *Service) SignAccess(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": c.Username,
		"role":     c.Role,
		"exp":      s.now().Add(s.accessTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *Service) ParseAccess(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if username == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Username: username, Role: role}, nil
}

func (s *Service) storeRefresh(ctx context.Context, userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(b)
	rt := models.RefreshToken{UserID: userID, TokenHash: hashToken(raw), ExpiresAt: s.now().Add(s.refreshTTL)}
	if err := s.db.WithContext(ctx).Create(&rt).Error; err != nil {
		return "", err
	}
	return raw, nil
}

func (s *Service) findRefresh(ctx context.Context, raw string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(raw)).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func hashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

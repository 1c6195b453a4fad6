package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/config"
	"github.com/scorecheck/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotActive      = errors.New("user not active")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrSelfDelete         = errors.New("cannot delete your own account")
)

const RoleAdmin = "admin"

type AuthService struct {
	db     *gorm.DB
	cfg    *config.Config
	params *argon2id.Params
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Claims struct {
	AdminID uuid.UUID `json:"admin_id"`
	Role    string    `json:"role"`
	Email   string    `json:"email"`
	jwt.RegisteredClaims
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	params := &argon2id.Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}

	return &AuthService{
		db:     db,
		cfg:    cfg,
		params: params,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, s.params)
}

// VerifyPassword accepts argon2id hashes and bcrypt hashes from imported
// admin accounts.
func (s *AuthService) VerifyPassword(hash, password string) (bool, error) {
	if strings.HasPrefix(hash, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	}
	return argon2id.ComparePasswordAndHash(password, hash)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, *models.Admin, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !admin.IsActive {
		return nil, nil, ErrUserNotActive
	}

	match, err := s.VerifyPassword(admin.PasswordHash, password)
	if err != nil || !match {
		return nil, nil, ErrInvalidCredentials
	}

	// Move bcrypt-hashed accounts onto argon2id.
	if strings.HasPrefix(admin.PasswordHash, "$2") {
		if hash, err := s.HashPassword(password); err == nil {
			s.db.WithContext(ctx).Model(&admin).Update("password_hash", hash)
		}
	}

	tokens, err := s.GenerateTokenPair(ctx, &admin)
	if err != nil {
		return nil, nil, err
	}

	return tokens, &admin, nil
}

func (s *AuthService) GenerateTokenPair(ctx context.Context, admin *models.Admin) (*TokenPair, error) {
	now := time.Now()

	accessClaims := &Claims{
		AdminID: admin.ID,
		Role:    admin.Role,
		Email:   admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   admin.ID.String(),
		},
	}
	accessToken, err := s.sign(accessClaims)
	if err != nil {
		return nil, err
	}

	refreshClaims := &Claims{
		AdminID: admin.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.RefreshExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   admin.ID.String(),
			ID:        uuid.NewString(),
		},
	}
	refreshToken, err := s.sign(refreshClaims)
	if err != nil {
		return nil, err
	}

	rt := &models.RefreshToken{
		AdminID:   admin.ID,
		Token:     refreshToken,
		ExpiresAt: now.Add(s.cfg.JWT.RefreshExpiry),
	}
	if err := s.db.WithContext(ctx).Create(rt).Error; err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.JWT.AccessExpiry.Seconds()),
	}, nil
}

func (s *AuthService) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
}

func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.VerifyToken(refreshToken)
	if err != nil {
		return nil, err
	}

	var rt models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token = ?", refreshToken).First(&rt).Error; err != nil {
		return nil, ErrInvalidToken
	}

	if rt.Revoked || time.Now().After(rt.ExpiresAt) {
		return nil, ErrTokenRevoked
	}

	var admin models.Admin
	if err := s.db.WithContext(ctx).First(&admin, "id = ?", claims.AdminID).Error; err != nil {
		return nil, err
	}

	if !admin.IsActive {
		return nil, ErrUserNotActive
	}

	s.db.WithContext(ctx).Model(&rt).Update("revoked", true)

	return s.GenerateTokenPair(ctx, &admin)
}

func (s *AuthService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.cfg.JWT.Secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (s *AuthService) RevokeToken(ctx context.Context, refreshToken string) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", refreshToken).
		Update("revoked", true).Error
}

// PruneTokens deletes refresh tokens that are expired or revoked and
// reports how many were removed.
func (s *AuthService) PruneTokens(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR revoked = ?", now, true).
		Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

func (s *AuthService) CreateAdmin(ctx context.Context, admin *models.Admin, password string) error {
	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}

	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	if admin.Name == "" {
		admin.Name = "Admin User"
	}
	if admin.Role == "" {
		admin.Role = RoleAdmin
	}
	admin.IsActive = true
	admin.PasswordHash = hash
	return s.db.WithContext(ctx).Create(admin).Error
}

func (s *AuthService) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&admins).Error
	return admins, err
}

func (s *AuthService) DeleteAdmin(ctx context.Context, id uuid.UUID, actor Actor) error {
	if id == actor.ID {
		return ErrSelfDelete
	}
	res := s.db.WithContext(ctx).Delete(&models.Admin{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.db.WithContext(ctx).Model(&models.RefreshToken{}).Where("admin_id = ?", id).Update("revoked", true)
	return nil
}

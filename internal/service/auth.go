package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tourguard/api/internal/model"
)

// ErrInvalidCredentials is returned for any authentication failure; the
// caller cannot distinguish an unknown email from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailTaken is returned when registering an existing email.
var ErrEmailTaken = errors.New("email already registered")

// AuthService handles registration, authentication and token issue
type AuthService struct {
	db        *gorm.DB
	profiles  *ProfileService
	jwtSecret []byte
	jwtTTL    time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, profiles *ProfileService, jwtSecret string, jwtTTL time.Duration) *AuthService {
	return &AuthService{
		db:        db,
		profiles:  profiles,
		jwtSecret: []byte(jwtSecret),
		jwtTTL:    jwtTTL,
	}
}

// Register creates the auth row and provisions the identity record in one
// transaction. Provisioning failure (an invalid role in the metadata) rolls
// the whole signup back: no partial user creation is possible.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, *model.Profile, error) {
	var existing model.User
	if err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hashed),
		Status:   1,
	}

	var profile *model.Profile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		p, err := s.profiles.Provision(tx, user.ID, req.Metadata)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return &user, profile, nil
}

// Authenticate validates credentials and returns the active user
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status != 1 {
		return nil, errors.New("user is inactive")
	}

	return &user, nil
}

// GenerateToken issues a signed HS256 JWT for the user
func (s *AuthService) GenerateToken(user *model.User, role model.AppRole) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.jwtTTL)

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(role),
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// RecordLogin writes an authentication attempt to the audit trail.
// Audit failures are logged by the caller, never surfaced to the client.
func (s *AuthService) RecordLogin(ctx context.Context, userID uint, email, action, ip, userAgent string, success bool, errMsg string) error {
	entry := model.LoginLog{
		UserID:    userID,
		Email:     email,
		Action:    action,
		IP:        ip,
		UserAgent: userAgent,
		Success:   success,
		ErrorMsg:  errMsg,
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

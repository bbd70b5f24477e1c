package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	authdomain "github.com/Ethronics/ecosnap-sub001/internal/auth/domain"
	"github.com/Ethronics/ecosnap-sub001/internal/auth/password"
	"github.com/Ethronics/ecosnap-sub001/internal/config"
	"github.com/Ethronics/ecosnap-sub001/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	sessionTTL time.Duration
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
}

func NewService(p ServiceParam) authdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("auth.service"),
		genID:      p.GenID,
		sessionTTL: p.Cfg.SessionTTL,
	}
}

func (s *Service) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, authdomain.ErrInvalidCredentials
	}

	var user authdomain.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authdomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, authdomain.ErrInvalidCredentials
	}

	rawToken, err := newToken()
	if err != nil {
		return nil, err
	}

	session := authdomain.Session{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
		ExpiresAt: time.Now().UTC().Add(s.sessionTTL),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}

	s.log.Info("user logged in", zap.String("user_id", user.ID.String()))

	return &authdomain.LoginResult{
		User:      &user,
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return nil
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).
		Model(&authdomain.Session{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashToken(rawToken)).
		Update("revoked_at", now).Error
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*authdomain.Identity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, authdomain.ErrInvalidSession
	}

	var session authdomain.Session
	err := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(rawToken)).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authdomain.ErrInvalidSession
		}
		return nil, err
	}

	if session.RevokedAt != nil {
		return nil, authdomain.ErrSessionRevoked
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		return nil, authdomain.ErrSessionExpired
	}

	var user authdomain.User
	if err := s.db.WithContext(ctx).Where("id = ?", session.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authdomain.ErrInvalidSession
		}
		return nil, err
	}

	return &authdomain.Identity{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Role:      user.Role,
	}, nil
}

func (s *Service) CreateUser(ctx context.Context, req authdomain.CreateUserRequest) (*authdomain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, authdomain.ErrInvalidEmail
	}
	if len(req.Password) < 8 {
		return nil, authdomain.ErrInvalidPassword
	}
	if !req.Role.Valid() {
		return nil, authdomain.ErrInvalidRole
	}
	companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
	if err != nil || companyID == 0 {
		return nil, authdomain.ErrInvalidCompany
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &authdomain.User{
		ID:           s.genID.Generate(),
		CompanyID:    companyID,
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, authdomain.ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]authdomain.User, error) {
	var users []authdomain.User
	err := s.db.WithContext(ctx).Order("created_at asc").Find(&users).Error
	return users, err
}

func (s *Service) GetUser(ctx context.Context, id string) (*authdomain.User, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, authdomain.ErrUserNotFound
	}
	var user authdomain.User
	err = s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authdomain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/comfyshop/internal/auth"
	"github.com/mmeshcher/comfyshop/internal/model"
	"github.com/mmeshcher/comfyshop/internal/repository"
	"github.com/mmeshcher/comfyshop/internal/validation"
)

const adminName = "Administrator"

// maxResetAttempts ограничивает число неверных попыток ввода одного кода сброса.
const maxResetAttempts = 5

// Session содержит результат успешной аутентификации.
type Session struct {
	Token string        `json:"token"`
	User  model.Profile `json:"user"`
}

// RegisterInput содержит данные формы регистрации.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register создаёт пользователя с ролью user и возвращает сессию.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := validation.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return nil, ErrMissingFields
	}
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{Name: name, Email: email, PasswordHash: hash, Role: model.RoleUser}
	u.ID, err = s.repo.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}

	return s.newSession(u)
}

// Login проверяет email и пароль и возвращает сессию.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if len(u.PasswordHash) == 0 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.newSession(u)
}

// GoogleLogin проверяет ID-токен Google и возвращает сессию,
// создавая пользователя без пароля при первом входе.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrMissingFields
	}
	if s.google == nil {
		return nil, ErrInvalidGoogleToken
	}

	gu, err := s.google.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidGoogleToken) {
			return nil, ErrInvalidGoogleToken
		}
		return nil, fmt.Errorf("verify google token: %w", err)
	}

	email := validation.NormalizeEmail(gu.Email)
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return s.newSession(u)
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(gu.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	u = &model.User{Name: name, Email: email, Role: model.RoleUser}
	u.ID, err = s.repo.CreateUser(ctx, u)
	if errors.Is(err, repository.ErrUserExists) {
		// параллельный первый вход тем же аккаунтом
		u, err = s.repo.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}

	return s.newSession(u)
}

// Profile возвращает публичные данные пользователя.
func (s *Service) Profile(ctx context.Context, userID int64) (*model.Profile, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := u.Profile()
	return &p, nil
}

// ForgotPassword генерирует одноразовый код сброса и отправляет его на email пользователя.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)
	if email == "" {
		return ErrMissingFields
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnknownEmail
		}
		return err
	}

	code, err := generateResetCode()
	if err != nil {
		return err
	}

	if err := s.repo.SetResetCode(ctx, u.ID, hashResetCode(code), s.now().Add(s.resetCodeTTL)); err != nil {
		return err
	}

	s.notifier.SendPasswordResetCode(u.Email, u.Name, code, s.resetCodeTTL)
	s.logger.Info("password reset requested", zap.Int64("userID", u.ID))
	return nil
}

// ResetPassword проверяет код сброса и устанавливает новый пароль.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = validation.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || newPassword == "" {
		return ErrMissingFields
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidResetCode
		}
		return err
	}

	if len(u.ResetCodeHash) == 0 || u.ResetCodeExpiry == nil || !s.now().Before(*u.ResetCodeExpiry) {
		return ErrInvalidResetCode
	}
	if subtle.ConstantTimeCompare(hashResetCode(code), u.ResetCodeHash) != 1 {
		if err := s.repo.RecordResetFailure(ctx, u.ID, maxResetAttempts); err != nil {
			return err
		}
		s.logger.Warn("invalid password reset code", zap.Int64("userID", u.ID))
		return ErrInvalidResetCode
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.repo.UpdatePassword(ctx, u.ID, hash)
}

// SeedAdmin создаёт администратора, если в системе его ещё нет.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) error {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	exists, err := s.repo.HasAdmin(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	id, err := s.repo.CreateUser(ctx, &model.User{Name: adminName, Email: email, PasswordHash: hash, Role: model.RoleAdmin})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	s.logger.Info("admin account created", zap.Int64("userID", id))
	return nil
}

func (s *Service) newSession(u *model.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID, u.Role, 0)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, User: u.Profile()}, nil
}

func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashResetCode(code string) []byte {
	sum := sha256.Sum256([]byte(code))
	return sum[:]
}

// Package auth はユーザー登録・ログインとベアラートークンの発行を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// ユーザー名・パスワードの制約。
// bcryptは72バイトを超える入力を受け付けない。
const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// TokenIssuer はベアラートークンの発行インターフェース。
type TokenIssuer interface {
	Issue(userID string) (*model.IssuedToken, error)
}

// FailureRecorder は認証失敗を理由別に記録するインターフェース。
type FailureRecorder interface {
	RecordAuthFailure(reason string)
}

// Result は登録・ログイン成功時に返すユーザーとトークン。
type Result struct {
	User  *model.User
	Token *model.IssuedToken
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	issuer    TokenIssuer
	recorder  FailureRecorder
	config    ServiceConfig
	dummyHash []byte
	now       func() time.Time
}

// NewService はServiceを生成する。
// 存在しないユーザーの照合に使うダミーハッシュをここで生成する。
func NewService(
	userRepo repository.UserRepository,
	issuer TokenIssuer,
	recorder FailureRecorder,
	config ServiceConfig,
) (*Service, error) {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("todoman-dummy-password"), config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &Service{
		userRepo:  userRepo,
		issuer:    issuer,
		recorder:  recorder,
		config:    config,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// Register は新しいユーザーを登録し、トークンを発行する。
// ユーザー名が使用済みの場合はUSERNAME_TAKENを返す。
func (s *Service) Register(ctx context.Context, username, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, model.NewUsernameTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user)
}

// Authenticate はユーザー名とパスワードを照合し、トークンを発行する。
// ユーザーが存在しない場合とパスワード不一致の場合は同じINVALID_CREDENTIALSを返す。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Result, error) {
	username = strings.TrimSpace(username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.recordFailure("unknown_user")
		slog.Warn("login failed", slog.String("reason", "unknown_user"))
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailure("wrong_password")
		slog.Warn("login failed",
			slog.String("reason", "wrong_password"),
			slog.String("user_id", user.ID),
		)
		return nil, model.NewInvalidCredentialsError()
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return s.issue(user)
}

// CurrentUser は検証済みトークンの主体に対応するユーザーを返す。
// トークン発行後にユーザーが存在しなくなった場合はUNAUTHORIZEDを返す。
// UUID形式でない主体はストアに問い合わせずにUNAUTHORIZEDを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.recordFailure("unknown_subject")
		return nil, model.NewUnauthorizedError()
	}
	return user, nil
}

func (s *Service) issue(user *model.User) (*Result, error) {
	tok, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Result{User: user, Token: tok}, nil
}

func (s *Service) recordFailure(reason string) {
	if s.recorder != nil {
		s.recorder.RecordAuthFailure(reason)
	}
}

// validateCredentials はユーザー名とパスワードの形式を検証する。
func validateCredentials(username, password string) error {
	if n := len(username); n < MinUsernameLength || n > MaxUsernameLength {
		return model.NewValidationError("username",
			fmt.Sprintf("%d〜%d文字で入力してください", MinUsernameLength, MaxUsernameLength))
	}
	if !usernamePattern.MatchString(username) {
		return model.NewValidationError("username", "英数字と _ . - のみ使用できます")
	}
	if n := len(password); n < MinPasswordLength || n > MaxPasswordLength {
		return model.NewValidationError("password",
			fmt.Sprintf("%d〜%dバイトで入力してください", MinPasswordLength, MaxPasswordLength))
	}
	return nil
}

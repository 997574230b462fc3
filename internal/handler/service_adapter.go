package handler

import (
	"context"

	"github.com/hitoshi/todoman/internal/auth"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/todo"
)

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
type AuthServiceAdapter struct {
	svc *auth.Service
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc}
}

// Register はユーザーを登録し、handlerレスポンス型で返す。
func (a *AuthServiceAdapter) Register(ctx context.Context, username, password string) (*authResponse, error) {
	result, err := a.svc.Register(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return toAuthResponse(result), nil
}

// Login は資格情報を照合し、handlerレスポンス型で返す。
func (a *AuthServiceAdapter) Login(ctx context.Context, username, password string) (*authResponse, error) {
	result, err := a.svc.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return toAuthResponse(result), nil
}

// CurrentUser はトークン主体のユーザーをhandlerレスポンス型で返す。
func (a *AuthServiceAdapter) CurrentUser(ctx context.Context, userID string) (*userResponse, error) {
	user, err := a.svc.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// toAuthResponse はドメインの認証結果をhandlerのレスポンス型に変換する。
func toAuthResponse(result *auth.Result) *authResponse {
	return &authResponse{
		Token:     result.Token.Token,
		ExpiresAt: result.Token.ExpiresAt,
		User:      toUserResponse(result.User),
	}
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
	}
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*AuthServiceAdapter)(nil)
var _ TodoServiceInterface = (*todo.Service)(nil)

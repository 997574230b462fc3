// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenVerifier はベアラートークンの検証に必要なインターフェース。
type TokenVerifier interface {
	Verify(raw string) (*model.TokenClaims, error)
}

// AuthFailureRecorder は認証失敗を理由別に記録するインターフェース。
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証するミドルウェアを返す。
// 検証に成功した場合はトークンの主体をユーザーIDとしてコンテキストに注入する。
// ユーザーストアへの問い合わせは行わない。
// 失敗時は理由をサーバー側のログにのみ記録し、クライアントには一律の401を返す。
// recorderはnilでもよい。
func NewBearerAuthMiddleware(verifier TokenVerifier, recorder AuthFailureRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				rejectUnauthenticated(w, r, recorder, token.ReasonMalformed, nil)
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				reason := token.Reason(err)
				if reason == "" {
					reason = token.ReasonInvalidClaim
				}
				rejectUnauthenticated(w, r, recorder, reason, err)
				return
			}

			setRequestUserID(r.Context(), claims.Subject)
			ctx := ContextWithUserID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからトークン部分を取り出す。
// ヘッダーがない場合は空文字とtrueを返し、Bearer以外の形式の場合はfalseを返す。
func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" || strings.EqualFold(header, "Bearer") {
		return "", true
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func rejectUnauthenticated(w http.ResponseWriter, r *http.Request, recorder AuthFailureRecorder, reason string, err error) {
	attrs := []any{
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	slog.Warn("bearer authentication failed", attrs...)

	if recorder != nil {
		recorder.RecordAuthFailure(reason)
	}
	WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

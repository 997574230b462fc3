package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
)

// TodoServiceInterface はTodoハンドラーが必要とするサービスインターフェース。
// 所有者の検証はサービス側で行う。
type TodoServiceInterface interface {
	List(ctx context.Context, ownerID string) ([]*model.Todo, error)
	Create(ctx context.Context, ownerID, text string) (*model.Todo, error)
	SetCompleted(ctx context.Context, ownerID, todoID string, completed bool) (*model.Todo, error)
	Delete(ctx context.Context, ownerID, todoID string) error
}

// TodoHandler はTodo操作のHTTPハンドラー。
type TodoHandler struct {
	service TodoServiceInterface
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(service TodoServiceInterface) *TodoHandler {
	return &TodoHandler{service: service}
}

// createTodoRequest はTodo作成リクエストのボディ。
// 所有者はリクエストからは受け取らない。
type createTodoRequest struct {
	Text string `json:"text"`
}

// patchTodoRequest は完了状態更新リクエストのボディ。
type patchTodoRequest struct {
	Completed *bool `json:"completed"`
}

// todoResponse はTodoのAPIレスポンス。
type todoResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// messageResponse はメッセージのみのレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// List は認証ユーザーのTodo一覧を作成日時の降順で返す。
// GET /api/todos
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	todos, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		resp = append(resp, toTodoResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はTodoを作成する。
// POST /api/todos
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createTodoRequest
	if apiErr := decodeJSONBody(w, r, schemaTodoCreate, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	todo, err := h.service.Create(r.Context(), userID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTodoResponse(todo))
}

// Patch はTodoの完了状態を更新する。
// PATCH /api/todos/{id}
func (h *TodoHandler) Patch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req patchTodoRequest
	if apiErr := decodeJSONBody(w, r, schemaTodoPatch, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if req.Completed == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("completed", "必須項目です"))
		return
	}

	todo, err := h.service.SetCompleted(r.Context(), userID, chi.URLParam(r, "id"), *req.Completed)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTodoResponse(todo))
}

// Delete はTodoを削除する。
// DELETE /api/todos/{id}
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Todo deleted successfully"})
}

// --- ヘルパー関数 ---

func toTodoResponse(t *model.Todo) todoResponse {
	return todoResponse{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// requireUserID はコンテキストから認証済みユーザーIDを取り出す。
// 取り出せない場合は401を書き込んでfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeTodoTextRequired, model.ErrCodeInvalidRequest, model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeTodoNotFound:
		return http.StatusNotFound
	case model.ErrCodeUsernameTaken:
		return http.StatusConflict
	case model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

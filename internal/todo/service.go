// Package todo はTodoの所有者スコープ付き操作を提供する。
package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// MaxTextLength はTodo本文の最大文字数（rune単位）。
const MaxTextLength = 10000

// 操作名。メトリクスのラベルに使用する。
const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// OperationRecorder はTodo操作の結果を記録するインターフェース。
type OperationRecorder interface {
	RecordTodoOperation(op, result string)
}

// Service はTodo操作のサービス層。
// すべての操作は検証済みのユーザーIDを所有者として受け取り、他ユーザーのTodoには触れない。
type Service struct {
	repo     repository.TodoRepository
	recorder OperationRecorder
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewService(repo repository.TodoRepository, recorder OperationRecorder) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		now:      time.Now,
	}
}

// timestamp は保存用の現在時刻を返す。
// どのバックエンドでも同じ値が読み戻せるようミリ秒に切り捨てる。
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) record(op string, err error) {
	if s.recorder == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = resultLabel(err)
	}
	s.recorder.RecordTodoOperation(op, result)
}

func resultLabel(err error) string {
	if apiErr, ok := err.(*model.APIError); ok {
		switch apiErr.Code {
		case model.ErrCodeTodoNotFound:
			return "not_found"
		case model.ErrCodeUnauthorized:
			return "unauthorized"
		default:
			return "invalid"
		}
	}
	return "error"
}

// List は所有者のTodoを作成日時の降順で返す。
// 1件もない場合は空スライスを返す。
func (s *Service) List(ctx context.Context, ownerID string) (todos []*model.Todo, err error) {
	defer func() { s.record(OpList, err) }()

	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	todos, err = s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Todo一覧の取得に失敗しました: %w", err)
	}
	if todos == nil {
		todos = []*model.Todo{}
	}
	return todos, nil
}

// Create はTodoを作成する。
// 所有者は常にownerIDで、リクエストに含まれる値は使用しない。
// 本文は前後の空白を除いてそのまま保存し、空であればTODO_TEXT_REQUIREDを返す。
// 所有者がユーザーストアに存在しない場合はUNAUTHORIZEDを返す。
func (s *Service) Create(ctx context.Context, ownerID, text string) (todo *model.Todo, err error) {
	defer func() { s.record(OpCreate, err) }()

	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil, model.NewTodoTextRequiredError()
	}
	if utf8.RuneCountInString(clean) > MaxTextLength {
		return nil, model.NewValidationError("text", fmt.Sprintf("%d文字以内で入力してください", MaxTextLength))
	}

	now := s.timestamp()
	todo = &model.Todo{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Text:      clean,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		if errors.Is(err, repository.ErrUnknownOwner) {
			slog.Warn("todo owner does not exist", slog.String("user_id", ownerID))
			return nil, model.NewUnauthorizedError()
		}
		return nil, fmt.Errorf("Todoの作成に失敗しました: %w", err)
	}

	slog.Debug("todo created",
		slog.String("user_id", ownerID),
		slog.String("todo_id", todo.ID),
		slog.String("state", string(todo.State())),
	)
	return todo, nil
}

// SetCompleted はTodoの完了状態を設定し、更新後のTodoを返す。
// 同じ値を何度設定しても結果は同じで、updatedAtは減少しない。
func (s *Service) SetCompleted(ctx context.Context, ownerID, todoID string, completed bool) (todo *model.Todo, err error) {
	defer func() { s.record(OpUpdate, err) }()

	todo, err = withOwnedTodo(ownerID, todoID, func(id string) (*model.Todo, bool, error) {
		t, err := s.repo.UpdateCompleted(ctx, ownerID, id, completed, s.timestamp())
		if err != nil {
			return nil, false, fmt.Errorf("Todoの更新に失敗しました: %w", err)
		}
		return t, t != nil, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("todo state changed",
		slog.String("user_id", ownerID),
		slog.String("todo_id", todo.ID),
		slog.String("state", string(todo.State())),
	)
	return todo, nil
}

// Delete はTodoを完全に削除する。削除後は同じIDへの操作はすべてTODO_NOT_FOUNDになる。
func (s *Service) Delete(ctx context.Context, ownerID, todoID string) (err error) {
	defer func() { s.record(OpDelete, err) }()

	_, err = withOwnedTodo(ownerID, todoID, func(id string) (struct{}, bool, error) {
		deleted, err := s.repo.DeleteByOwner(ctx, ownerID, id)
		if err != nil {
			return struct{}{}, false, fmt.Errorf("Todoの削除に失敗しました: %w", err)
		}
		return struct{}{}, deleted, nil
	})
	return err
}

// withOwnedTodo は所有者スコープ付きの変更操作を実行する。
// 不正な形式のID・存在しないTodo・他ユーザーのTodoはいずれも同じTODO_NOT_FOUNDになる。
// opは所有者で絞り込んだ1文の操作を行い、対象が見つかったかどうかを返すこと。
func withOwnedTodo[T any](ownerID, todoID string, op func(id string) (T, bool, error)) (T, error) {
	var zero T
	if err := requireOwner(ownerID); err != nil {
		return zero, err
	}

	parsed, err := uuid.Parse(todoID)
	if err != nil {
		return zero, model.NewTodoNotFoundError()
	}

	v, found, err := op(parsed.String())
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, model.NewTodoNotFoundError()
	}
	return v, nil
}

// requireOwner は所有者IDが発行済みのユーザーIDの形式（UUID）であることを確認する。
func requireOwner(ownerID string) error {
	if ownerID == "" {
		return model.NewUnauthorizedError()
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		return model.NewUnauthorizedError()
	}
	return nil
}

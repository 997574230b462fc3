package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/todoman/internal/model"
)

// repoFactory はテストごとに空のリポジトリ一式を生成する。
type repoFactory func(t *testing.T) (UserRepository, TodoRepository)

var baseTime = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, users UserRepository, username string) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "$2a$04$hash",
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}
	return u
}

func seedTodo(t *testing.T, todos TodoRepository, ownerID, text string, createdAt time.Time) *model.Todo {
	t.Helper()
	todo := &model.Todo{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Text:      text,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := todos.Create(context.Background(), todo); err != nil {
		t.Fatalf("Todo作成に失敗: %v", err)
	}
	return todo
}

// runRepositoryContract はすべてのバックエンドが満たすべき振る舞いを検証する。
func runRepositoryContract(t *testing.T, newRepos repoFactory) {
	ctx := context.Background()

	t.Run("ユーザー名で検索できる", func(t *testing.T) {
		users, _ := newRepos(t)
		alice := seedUser(t, users, "alice")

		got, err := users.FindByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("FindByUsername error: %v", err)
		}
		if got == nil || got.ID != alice.ID {
			t.Fatalf("FindByUsername = %+v, want id %s", got, alice.ID)
		}
		if !got.CreatedAt.Equal(baseTime) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, baseTime)
		}

		byID, err := users.FindByID(ctx, alice.ID)
		if err != nil {
			t.Fatalf("FindByID error: %v", err)
		}
		if byID == nil || byID.Username != "alice" {
			t.Errorf("FindByID = %+v, want username alice", byID)
		}
	})

	t.Run("存在しないユーザーはnilを返す", func(t *testing.T) {
		users, _ := newRepos(t)

		got, err := users.FindByUsername(ctx, "nobody")
		if err != nil {
			t.Fatalf("FindByUsername error: %v", err)
		}
		if got != nil {
			t.Errorf("FindByUsername = %+v, want nil", got)
		}

		got, err = users.FindByID(ctx, uuid.NewString())
		if err != nil {
			t.Fatalf("FindByID error: %v", err)
		}
		if got != nil {
			t.Errorf("FindByID = %+v, want nil", got)
		}
	})

	t.Run("ユーザー名の重複はErrDuplicateUsername", func(t *testing.T) {
		users, _ := newRepos(t)
		seedUser(t, users, "alice")

		err := users.Create(ctx, &model.User{
			ID:           uuid.NewString(),
			Username:     "alice",
			PasswordHash: "x",
			CreatedAt:    baseTime,
			UpdatedAt:    baseTime,
		})
		if !errors.Is(err, ErrDuplicateUsername) {
			t.Errorf("Create duplicate error = %v, want ErrDuplicateUsername", err)
		}
	})

	t.Run("一覧は所有者のTodoのみを作成日時降順で返す", func(t *testing.T) {
		users, todos := newRepos(t)
		alice := seedUser(t, users, "alice")
		bob := seedUser(t, users, "bob")

		first := seedTodo(t, todos, alice.ID, "first", baseTime)
		second := seedTodo(t, todos, alice.ID, "second", baseTime.Add(time.Minute))
		seedTodo(t, todos, bob.ID, "bob's", baseTime.Add(2*time.Minute))

		got, err := todos.ListByOwner(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListByOwner error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].ID != second.ID || got[1].ID != first.ID {
			t.Errorf("order = [%s, %s], want [%s, %s]", got[0].Text, got[1].Text, second.Text, first.Text)
		}
		for _, todo := range got {
			if todo.OwnerID != alice.ID {
				t.Errorf("todo %s owner = %s, want %s", todo.ID, todo.OwnerID, alice.ID)
			}
		}
	})

	t.Run("存在しない所有者のTodo作成はErrUnknownOwner", func(t *testing.T) {
		users, todos := newRepos(t)
		alice := seedUser(t, users, "alice")
		ghostID := uuid.NewString()

		err := todos.Create(ctx, &model.Todo{
			ID:        uuid.NewString(),
			OwnerID:   ghostID,
			Text:      "orphan",
			CreatedAt: baseTime,
			UpdatedAt: baseTime,
		})
		if !errors.Is(err, ErrUnknownOwner) {
			t.Fatalf("Create error = %v, want ErrUnknownOwner", err)
		}

		got, err := todos.ListByOwner(ctx, ghostID)
		if err != nil {
			t.Fatalf("ListByOwner error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("len = %d, want 0", len(got))
		}

		// 既存ユーザーのTodo作成には影響しない
		seedTodo(t, todos, alice.ID, "kept", baseTime)
	})

	t.Run("Todoがない場合は空スライスを返す", func(t *testing.T) {
		users, todos := newRepos(t)
		alice := seedUser(t, users, "alice")

		got, err := todos.ListByOwner(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListByOwner error: %v", err)
		}
		if got == nil {
			t.Fatal("ListByOwner returned nil, want empty slice")
		}
		if len(got) != 0 {
			t.Errorf("len = %d, want 0", len(got))
		}
	})

	t.Run("UpdateCompletedは所有者のTodoのみ更新する", func(t *testing.T) {
		users, todos := newRepos(t)
		alice := seedUser(t, users, "alice")
		bob := seedUser(t, users, "bob")
		todo := seedTodo(t, todos, alice.ID, "buy milk", baseTime)

		got, err := todos.UpdateCompleted(ctx, bob.ID, todo.ID, true, baseTime.Add(time.Minute))
		if err != nil {
			t.Fatalf("UpdateCompleted error: %v", err)
		}
		if got != nil {
			t.Fatalf("UpdateCompleted by non-owner = %+v, want nil", got)
		}

		got, err = todos.UpdateCompleted(ctx, alice.ID, todo.ID, true, baseTime.Add(time.Minute))
		if err != nil {
			t.Fatalf("UpdateCompleted error: %v", err)
		}
		if got == nil || !got.Completed {
			t.Fatalf("UpdateCompleted = %+v, want completed", got)
		}
		if !got.UpdatedAt.Equal(baseTime.Add(time.Minute)) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, baseTime.Add(time.Minute))
		}
		if !got.CreatedAt.Equal(baseTime) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, baseTime)
		}
	})

	t.Run("updated_atは過去に戻らない", func(t *testing.T) {
		users, todos := newRepos(t)
		alice := seedUser(t, users, "alice")
		todo := seedTodo(t, todos, alice.ID, "buy milk", baseTime.Add(time.Hour))

		got, err := todos.UpdateCompleted(ctx, alice.ID, todo.ID, true, baseTime)
		if err != nil {
			t.Fatalf("UpdateCompleted error: %v", err)
		}
		if got == nil {
			t.Fatal("UpdateCompleted returned nil")
		}
		if !got.UpdatedAt.Equal(baseTime.Add(time.Hour)) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, baseTime.Add(time.Hour))
		}
	})

	t.Run("存在しないTodoの更新はnilを返す", func(t *testing.T) {
		users, todos := newRepos(t)
		alice := seedUser(t, users, "alice")

		got, err := todos.UpdateCompleted(ctx, alice.ID, uuid.NewString(), true, baseTime)
		if err != nil {
			t.Fatalf("UpdateCompleted error: %v", err)
		}
		if got != nil {
			t.Errorf("UpdateCompleted = %+v, want nil", got)
		}
	})

	t.Run("DeleteByOwnerは所有者のTodoのみ削除する", func(t *testing.T) {
		users, todos := newRepos(t)
		alice := seedUser(t, users, "alice")
		bob := seedUser(t, users, "bob")
		todo := seedTodo(t, todos, alice.ID, "buy milk", baseTime)

		deleted, err := todos.DeleteByOwner(ctx, bob.ID, todo.ID)
		if err != nil {
			t.Fatalf("DeleteByOwner error: %v", err)
		}
		if deleted {
			t.Fatal("non-owner delete reported success")
		}

		deleted, err = todos.DeleteByOwner(ctx, alice.ID, todo.ID)
		if err != nil {
			t.Fatalf("DeleteByOwner error: %v", err)
		}
		if !deleted {
			t.Fatal("owner delete reported failure")
		}

		// 削除は終端状態
		deleted, err = todos.DeleteByOwner(ctx, alice.ID, todo.ID)
		if err != nil {
			t.Fatalf("DeleteByOwner error: %v", err)
		}
		if deleted {
			t.Error("second delete reported success")
		}
		got, err := todos.UpdateCompleted(ctx, alice.ID, todo.ID, true, baseTime)
		if err != nil {
			t.Fatalf("UpdateCompleted error: %v", err)
		}
		if got != nil {
			t.Error("deleted todo was updated")
		}
	})
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hitoshi/todoman/internal/model"
)

// SQLiteTodoRepo はSQLiteを使用したTodoリポジトリ。
// 日時はミリ秒精度のUNIX時刻としてINTEGER列に保存する。
type SQLiteTodoRepo struct {
	db *sql.DB
}

// NewSQLiteTodoRepo はSQLiteTodoRepoを生成する。
func NewSQLiteTodoRepo(db *sql.DB) *SQLiteTodoRepo {
	return &SQLiteTodoRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTodo(s rowScanner) (*model.Todo, error) {
	todo := &model.Todo{}
	var createdAt, updatedAt int64
	if err := s.Scan(
		&todo.ID, &todo.OwnerID, &todo.Text, &todo.Completed,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	todo.CreatedAt = fromMillis(createdAt)
	todo.UpdatedAt = fromMillis(updatedAt)
	return todo, nil
}

// ListByOwner は所有者のTodoをcreated_at降順で返す。
func (r *SQLiteTodoRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, text, completed, created_at, updated_at
		 FROM todos
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("Todo一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	todos := make([]*model.Todo, 0)
	for rows.Next() {
		todo, err := scanSQLiteTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("Todoのスキャンに失敗しました: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Todo一覧の読み込みに失敗しました: %w", err)
	}

	return todos, nil
}

// Create はTodoを作成する。
func (r *SQLiteTodoRepo) Create(ctx context.Context, todo *model.Todo) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (id, user_id, text, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		todo.ID, todo.OwnerID, todo.Text, todo.Completed,
		toMillis(todo.CreatedAt), toMillis(todo.UpdatedAt),
	)
	if err != nil {
		if isSQLiteError(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) {
			return ErrUnknownOwner
		}
		return fmt.Errorf("Todoの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateCompleted は所有者とIDが一致するTodoのcompletedを更新する。
// スカラーMAXによりupdated_atが過去に戻ることはない。
func (r *SQLiteTodoRepo) UpdateCompleted(ctx context.Context, ownerID, id string, completed bool, at time.Time) (*model.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE todos
		 SET completed = ?, updated_at = MAX(updated_at, ?)
		 WHERE id = ? AND user_id = ?
		 RETURNING id, user_id, text, completed, created_at, updated_at`,
		completed, toMillis(at), id, ownerID,
	)
	todo, err := scanSQLiteTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Todoの更新に失敗しました: %w", err)
	}
	return todo, nil
}

// DeleteByOwner は所有者とIDが一致するTodoを削除する。
func (r *SQLiteTodoRepo) DeleteByOwner(ctx context.Context, ownerID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM todos WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("Todoの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ TodoRepository = (*SQLiteTodoRepo)(nil)

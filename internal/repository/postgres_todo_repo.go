package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/todoman/internal/model"
)

// PostgresTodoRepo はPostgreSQLを使用したTodoリポジトリ。
type PostgresTodoRepo struct {
	db *sql.DB
}

// NewPostgresTodoRepo はPostgresTodoRepoを生成する。
func NewPostgresTodoRepo(db *sql.DB) *PostgresTodoRepo {
	return &PostgresTodoRepo{db: db}
}

// ListByOwner は所有者のTodoをcreated_at降順で返す。
func (r *PostgresTodoRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, text, completed, created_at, updated_at
		 FROM todos
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("Todo一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	todos := make([]*model.Todo, 0)
	for rows.Next() {
		todo := &model.Todo{}
		if err := rows.Scan(
			&todo.ID, &todo.OwnerID, &todo.Text, &todo.Completed,
			&todo.CreatedAt, &todo.UpdatedAt,
		); err != nil {
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
func (r *PostgresTodoRepo) Create(ctx context.Context, todo *model.Todo) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (id, user_id, text, completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		todo.ID, todo.OwnerID, todo.Text, todo.Completed, todo.CreatedAt, todo.UpdatedAt,
	)
	if err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return ErrUnknownOwner
		}
		return fmt.Errorf("Todoの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateCompleted は所有者とIDが一致するTodoのcompletedを更新する。
// GREATESTによりupdated_atが過去に戻ることはない。
func (r *PostgresTodoRepo) UpdateCompleted(ctx context.Context, ownerID, id string, completed bool, at time.Time) (*model.Todo, error) {
	todo := &model.Todo{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE todos
		 SET completed = $3, updated_at = GREATEST(updated_at, $4)
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, text, completed, created_at, updated_at`,
		id, ownerID, completed, at,
	).Scan(
		&todo.ID, &todo.OwnerID, &todo.Text, &todo.Completed,
		&todo.CreatedAt, &todo.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Todoの更新に失敗しました: %w", err)
	}
	return todo, nil
}

// DeleteByOwner は所有者とIDが一致するTodoを削除する。
func (r *PostgresTodoRepo) DeleteByOwner(ctx context.Context, ownerID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM todos WHERE id = $1 AND user_id = $2`,
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
var _ TodoRepository = (*PostgresTodoRepo)(nil)

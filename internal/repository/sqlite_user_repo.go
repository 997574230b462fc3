package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hitoshi/todoman/internal/model"
)

// toMillis は保存用にミリ秒精度のUNIX時刻へ変換する。
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// fromMillis はミリ秒精度のUNIX時刻をUTCのtime.Timeに戻す。
func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func isSQLiteError(err error, code int) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == code
}

func isSQLiteUniqueViolation(err error) bool {
	return isSQLiteError(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE)
}

// SQLiteUserRepo はSQLiteを使用したユーザーリポジトリ。
type SQLiteUserRepo struct {
	db *sql.DB
}

// NewSQLiteUserRepo はSQLiteUserRepoを生成する。
func NewSQLiteUserRepo(db *sql.DB) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLiteUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, username, password_hash, created_at, updated_at FROM users WHERE id = ?`,
		id,
	)
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *SQLiteUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username = ?`,
		username,
	)
}

func (r *SQLiteUserRepo) findOne(ctx context.Context, query string, arg string) (*model.User, error) {
	user := &model.User{}
	var createdAt, updatedAt int64
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

// Create はユーザーを作成する。
// ユーザー名が既に存在する場合はErrDuplicateUsernameを返す。
func (r *SQLiteUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, toMillis(user.CreatedAt), toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*SQLiteUserRepo)(nil)

// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/todoman/internal/model"
)

// ErrDuplicateUsername はユーザー名の一意制約に違反した場合に返される。
var ErrDuplicateUsername = errors.New("username already exists")

// ErrUnknownOwner はTodoの所有者となるユーザーが存在しない場合に返される。
var ErrUnknownOwner = errors.New("todo owner does not exist")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	// ユーザー名が既に存在する場合はErrDuplicateUsernameを返す。
	Create(ctx context.Context, user *model.User) error
}

// TodoRepository はTodoデータの永続化インターフェース。
// すべての参照・更新は所有者IDで絞り込まれ、他ユーザーのTodoは存在しないものとして扱う。
type TodoRepository interface {
	// ListByOwner は所有者のTodoをcreated_at降順（同時刻はid降順）で返す。
	// 1件もない場合は空スライスを返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Todo, error)

	// Create はTodoを作成する。
	// 所有者のユーザーが存在しない場合はErrUnknownOwnerを返す。
	Create(ctx context.Context, todo *model.Todo) error

	// UpdateCompleted は所有者とIDが一致するTodoのcompletedを1文で更新し、更新後のTodoを返す。
	// updated_atは既存値とatの大きい方になる。一致するTodoがない場合はnilを返す。
	UpdateCompleted(ctx context.Context, ownerID, id string, completed bool, at time.Time) (*model.Todo, error)

	// DeleteByOwner は所有者とIDが一致するTodoを削除する。
	// 削除した場合はtrue、一致するTodoがない場合はfalseを返す。
	DeleteByOwner(ctx context.Context, ownerID, id string) (bool, error)
}

// Pinger はストレージの疎通確認インターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

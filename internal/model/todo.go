// Package model はドメインモデルを定義する。
package model

import "time"

// Todo はユーザーが所有する1件のタスクを表す。
// OwnerIDは作成時に認証済みユーザーから設定され、以後変更されない。
type Todo struct {
	ID        string
	OwnerID   string
	Text      string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TodoState はTodoのライフサイクル上の状態を表す。
type TodoState string

const (
	// TodoStateActive は未完了のTodo。
	TodoStateActive TodoState = "active"
	// TodoStateCompleted は完了済みのTodo。
	TodoStateCompleted TodoState = "completed"
)

// State はcompletedフラグから導出される状態を返す。
// 削除済みのTodoはストアに存在しないため、ここには現れない。
func (t *Todo) State() TodoState {
	if t.Completed {
		return TodoStateCompleted
	}
	return TodoStateActive
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/todoman/internal/model"
)

// MemoryStore はプロセス内メモリに保持するユーザー・Todoストア。
// 開発・テスト用途で、プロセス終了時にデータは失われる。
// 返却する値はすべてコピーで、呼び出し側が変更してもストアには影響しない。
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]model.User
	usernames map[string]string
	todos     map[string]model.Todo
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]model.User),
		usernames: make(map[string]string),
		todos:     make(map[string]model.Todo),
	}
}

// PingContext は常に成功する。
func (s *MemoryStore) PingContext(context.Context) error {
	return nil
}

// Users はUserRepositoryとしてのビューを返す。
func (s *MemoryStore) Users() *MemoryUserRepo {
	return &MemoryUserRepo{store: s}
}

// Todos はTodoRepositoryとしてのビューを返す。
func (s *MemoryStore) Todos() *MemoryTodoRepo {
	return &MemoryTodoRepo{store: s}
}

// MemoryUserRepo はMemoryStore上のユーザーリポジトリ。
type MemoryUserRepo struct {
	store *MemoryStore
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.usernames[username]
	if !ok {
		return nil, nil
	}
	u := r.store.users[id]
	return &u, nil
}

// Create はユーザーを作成する。
func (r *MemoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.usernames[user.Username]; exists {
		return ErrDuplicateUsername
	}
	r.store.users[user.ID] = *user
	r.store.usernames[user.Username] = user.ID
	return nil
}

// MemoryTodoRepo はMemoryStore上のTodoリポジトリ。
type MemoryTodoRepo struct {
	store *MemoryStore
}

// ListByOwner は所有者のTodoをcreated_at降順（同時刻はid降順）で返す。
func (r *MemoryTodoRepo) ListByOwner(_ context.Context, ownerID string) ([]*model.Todo, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	todos := make([]*model.Todo, 0)
	for _, t := range r.store.todos {
		if t.OwnerID != ownerID {
			continue
		}
		todo := t
		todos = append(todos, &todo)
	}
	sort.Slice(todos, func(i, j int) bool {
		if !todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].CreatedAt.After(todos[j].CreatedAt)
		}
		return todos[i].ID > todos[j].ID
	})
	return todos, nil
}

// Create はTodoを作成する。
func (r *MemoryTodoRepo) Create(_ context.Context, todo *model.Todo) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[todo.OwnerID]; !ok {
		return ErrUnknownOwner
	}
	r.store.todos[todo.ID] = *todo
	return nil
}

// UpdateCompleted は所有者とIDが一致するTodoのcompletedを更新する。
func (r *MemoryTodoRepo) UpdateCompleted(_ context.Context, ownerID, id string, completed bool, at time.Time) (*model.Todo, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	t, ok := r.store.todos[id]
	if !ok || t.OwnerID != ownerID {
		return nil, nil
	}
	t.Completed = completed
	if at.After(t.UpdatedAt) {
		t.UpdatedAt = at
	}
	r.store.todos[id] = t
	return &t, nil
}

// DeleteByOwner は所有者とIDが一致するTodoを削除する。
func (r *MemoryTodoRepo) DeleteByOwner(_ context.Context, ownerID, id string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	t, ok := r.store.todos[id]
	if !ok || t.OwnerID != ownerID {
		return false, nil
	}
	delete(r.store.todos, id)
	return true, nil
}

// compile-time interface check
var (
	_ UserRepository = (*MemoryUserRepo)(nil)
	_ TodoRepository = (*MemoryTodoRepo)(nil)
	_ Pinger         = (*MemoryStore)(nil)
)

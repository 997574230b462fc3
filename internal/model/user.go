// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// IDは登録時に採番され、以後変更されない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenClaims は検証済みベアラートークンから取り出した主張を表す。
type TokenClaims struct {
	ID        string
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken は発行済みのベアラートークンとその有効期限を表す。
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

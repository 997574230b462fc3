// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// マイグレーション対象のドライバ名。
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// MigrationURL はドライバに応じたgolang-migrate用の接続URLを返す。
// postgresは接続URLをそのまま、sqliteはファイルパスを sqlite:// 形式に変換する。
func MigrationURL(driver, dsn string) (string, error) {
	switch driver {
	case DriverPostgres:
		return dsn, nil
	case DriverSQLite:
		return "sqlite://" + filepath.Clean(dsn), nil
	default:
		return "", fmt.Errorf("unsupported migration driver: %q", driver)
	}
}

// NewMigrator はマイグレーション実行用のmigrateインスタンスを生成する。
// dsnはpostgresなら接続URL、sqliteならデータベースファイルのパスを指定する。
func NewMigrator(driver, dsn string) (*migrate.Migrate, error) {
	url, err := MigrationURL(driver, dsn)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// RunMigrations はすべてのマイグレーションを適用する。
// すでに最新の場合はエラーなしで返る。
func RunMigrations(driver, dsn string) error {
	m, err := NewMigrator(driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

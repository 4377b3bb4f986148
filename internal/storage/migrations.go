package storage

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func migrationSource() (source.Driver, error) {
	return iofs.New(migrationFS, "migrations")
}

// RunMigrations 在 AutoMigrate 建表之后执行内嵌 SQL 迁移（全文检索索引等 gorm 无法表达的部分），
// 返回当前版本与 dirty 标记
func RunMigrations(db *gorm.DB) (uint, bool, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, false, fmt.Errorf("migrate: get sql db: %w", err)
	}
	src, err := migrationSource()
	if err != nil {
		return 0, false, fmt.Errorf("migrate: open embedded source: %w", err)
	}
	// 不调用 m.Close：它会连同 gorm 持有的连接池一起关闭
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("migrate: init postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return 0, false, fmt.Errorf("migrate: init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("migrate: apply: %w", err)
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migrate: read version: %w", err)
	}
	return version, dirty, nil
}

package db

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}))

	var count int64
	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "rollback should leave a single row")
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&testModel{Name: "panicky"})
			panic("kaboom")
		})
	})

	var count int64
	require.NoError(t, db.Model(&testModel{}).Where("name = ?", "panicky").Count(&count).Error)
	assert.Zero(t, count)
}

func TestNew_SQLiteDriver(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: "file::memory:",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "sqlite", client.Dialect())
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNew_PostgresRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: config.DriverPostgres}, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), config.DBConfig{Driver: "mysql"}, nil)
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&testModel{Name: "dup"}).Error)
	err := db.Create(&testModel{Name: "dup"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "test_models.name"))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_order_number"}
	assert.True(t, IsUniqueViolation(pgErr, "ux_orders_order_number"))
	assert.False(t, IsUniqueViolation(pgErr, "ux_other"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

package db

import (
	"fms/src/config"
	"log"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func TestGetDbReturnsInjectedHandle(t *testing.T) {
	gormDB, mock := NewMockDB()
	NewDB(gormDB)

	got, err := GetDb(config.DatabaseConfig{Host: "unreachable"})
	require.NoError(t, err)
	assert.Same(t, gormDB, got)

	mock.ExpectClose()
	require.NoError(t, Close())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Nil(t, db)
}

func TestCloseWithoutPool(t *testing.T) {
	NewDB(nil)
	assert.NoError(t, Close())
}

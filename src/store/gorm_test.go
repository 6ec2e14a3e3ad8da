package store

import (
	"context"
	"log"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	return gormDB, mock
}

const (
	selectByID     = `SELECT id, data FROM documents WHERE collection = $1 AND id = $2`
	insertDocument = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`
	updateDocument = `UPDATE documents SET data = data || $1::jsonb WHERE collection = $2 AND id = $3`
)

func TestGormGet(t *testing.T) {
	db, mock := NewMockDB()
	s := NewGormStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectByID)).
		WithArgs("widgets", "w1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow("w1", `{"id":"w1","owner":"alice","count":3}`))

	var w widget
	require.NoError(t, s.Get(context.Background(), "widgets", "w1", &w))
	assert.Equal(t, "alice", w.Owner)
	assert.Equal(t, int64(3), w.Count)

	mock.ExpectQuery(regexp.QuoteMeta(selectByID)).
		WithArgs("widgets", "w2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}))

	err := s.Get(context.Background(), "widgets", "w2", &w)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormQuery(t *testing.T) {
	db, mock := NewMockDB()
	s := NewGormStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, data FROM documents WHERE collection = $1 AND data->'owner' = $2::jsonb ORDER BY id`)).
		WithArgs("widgets", `"alice"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("w1", `{"id":"w1","owner":"alice"}`).
			AddRow("w2", `{"id":"w2","owner":"alice"}`))

	var out []widget
	require.NoError(t, s.Query(context.Background(), "widgets", []Filter{Where("owner", Eq, "alice")}, &out))
	assert.Len(t, out, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateDuplicate(t *testing.T) {
	db, mock := NewMockDB()
	s := NewGormStore(db)

	mock.ExpectExec(regexp.QuoteMeta(insertDocument)).
		WithArgs("widgets", "w1", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := s.Create(context.Background(), "widgets", "w1", widget{ID: "w1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateMissing(t *testing.T) {
	db, mock := NewMockDB()
	s := NewGormStore(db)

	mock.ExpectExec(regexp.QuoteMeta(updateDocument)).
		WithArgs(`{"count":2}`, "widgets", "w1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Update(context.Background(), "widgets", "w1", map[string]any{"count": 2})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransactionRetriesSerializationFailure(t *testing.T) {
	db, mock := NewMockDB()
	s := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectByID + " FOR UPDATE")).
		WithArgs("widgets", "w1").
		WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectByID + " FOR UPDATE")).
		WithArgs("widgets", "w1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow("w1", `{"id":"w1","count":1}`))
	mock.ExpectExec(regexp.QuoteMeta(updateDocument)).
		WithArgs(`{"count":2}`, "widgets", "w1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	attempts := 0
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		attempts++
		var w widget
		if err := tx.Get("widgets", "w1", &w); err != nil {
			return err
		}
		return tx.Update("widgets", "w1", map[string]any{"count": w.Count + 1})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildWhere(t *testing.T) {
	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	where, args, err := buildWhere([]Filter{
		Where("site_id", Eq, "s1"),
		Where("status", In, []string{"RESERVED", "CONFIRMED"}),
		Where("end_time", Lte, ts),
		Where("count", Gt, 3),
	})
	require.NoError(t, err)
	assert.Equal(t,
		" AND data->'site_id' = ?::jsonb"+
			" AND (data->'status' = ?::jsonb OR data->'status' = ?::jsonb)"+
			" AND (data->>'end_time')::timestamptz <= ?"+
			" AND data->'count' > ?::jsonb",
		where)
	assert.Equal(t, []any{`"s1"`, `"RESERVED"`, `"CONFIRMED"`, ts, `3`}, args)

	where, _, err = buildWhere([]Filter{Where("status", In, []string{})})
	require.NoError(t, err)
	assert.Equal(t, " AND FALSE", where)

	_, _, err = buildWhere([]Filter{Where("x'; DROP TABLE documents; --", Eq, 1)})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const maxTransactionAttempts = 5

// Document is the postgres row every collection is stored in.
type Document struct {
	Collection string `gorm:"primaryKey;size:64"`
	ID         string `gorm:"primaryKey;size:128"`
	Data       string `gorm:"type:jsonb;not null"`
}

func (Document) TableName() string {
	return "documents"
}

type documentRow struct {
	ID   string
	Data string
}

// GormStore keeps JSON documents in a single postgres table. Reads inside a
// unit of work take row locks; serialization failures and deadlocks are
// retried.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&Document{})
}

func (s *GormStore) Get(ctx context.Context, collection, id string, dst any) error {
	return (&gormTx{db: s.db.WithContext(ctx)}).Get(collection, id, dst)
}

func (s *GormStore) Query(ctx context.Context, collection string, filters []Filter, dst any) error {
	return (&gormTx{db: s.db.WithContext(ctx)}).Query(collection, filters, dst)
}

func (s *GormStore) Create(ctx context.Context, collection, id string, data any) error {
	return (&gormTx{db: s.db.WithContext(ctx)}).Create(collection, id, data)
}

func (s *GormStore) Set(ctx context.Context, collection, id string, data any) error {
	return (&gormTx{db: s.db.WithContext(ctx)}).Set(collection, id, data)
}

func (s *GormStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return (&gormTx{db: s.db.WithContext(ctx)}).Update(collection, id, fields)
}

func (s *GormStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTransactionAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(ctx, &gormTx{db: tx, locking: true})
		})
		if !isRetryable(err) {
			return err
		}
		log.Printf("[Store] transaction contention on attempt %d: %s\n", attempt, err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*attempt) * 10 * time.Millisecond):
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type gormTx struct {
	db      *gorm.DB
	locking bool
}

func (t *gormTx) lockClause() string {
	if t.locking {
		return " FOR UPDATE"
	}
	return ""
}

func (t *gormTx) Get(collection, id string, dst any) error {
	if err := checkDestination(dst, false); err != nil {
		return err
	}
	var rows []documentRow
	err := t.db.
		Raw("SELECT id, data FROM documents WHERE collection = ? AND id = ?"+t.lockClause(), collection, id).
		Scan(&rows).
		Error
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return json.Unmarshal([]byte(rows[0].Data), dst)
}

func (t *gormTx) Query(collection string, filters []Filter, dst any) error {
	if err := checkDestination(dst, true); err != nil {
		return err
	}
	where, args, err := buildWhere(filters)
	if err != nil {
		return err
	}
	sql := "SELECT id, data FROM documents WHERE collection = ?" + where + " ORDER BY id" + t.lockClause()
	var rows []documentRow
	if err := t.db.Raw(sql, append([]any{collection}, args...)...).Scan(&rows).Error; err != nil {
		return err
	}
	raws := make([][]byte, 0, len(rows))
	for _, row := range rows {
		raws = append(raws, []byte(row.Data))
	}
	return decodeList(raws, dst)
}

func (t *gormTx) Create(collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	err = t.db.
		Exec("INSERT INTO documents (collection, id, data) VALUES (?, ?, ?::jsonb)", collection, id, string(raw)).
		Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
	}
	return err
}

func (t *gormTx) Set(collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return t.db.
		Exec("INSERT INTO documents (collection, id, data) VALUES (?, ?, ?::jsonb) ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data", collection, id, string(raw)).
		Error
}

func (t *gormTx) Update(collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	res := t.db.Exec("UPDATE documents SET data = data || ?::jsonb WHERE collection = ? AND id = ?", string(raw), collection, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var sqlOps = map[Op]string{
	Eq:  "=",
	Neq: "<>",
	Lt:  "<",
	Lte: "<=",
	Gt:  ">",
	Gte: ">=",
}

// buildWhere renders filters against the jsonb data column. Time values are
// compared as timestamps, everything else as jsonb.
func buildWhere(filters []Filter) (string, []any, error) {
	if err := checkFilters(filters); err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	args := []any{}
	for _, f := range filters {
		if !fieldPattern.MatchString(f.Field) {
			return "", nil, fmt.Errorf("%w: field %q", ErrInvalidFilter, f.Field)
		}
		sb.WriteString(" AND ")
		if f.Op == In {
			values := reflect.ValueOf(f.Value)
			if values.Len() == 0 {
				sb.WriteString("FALSE")
				continue
			}
			parts := make([]string, 0, values.Len())
			for i := 0; i < values.Len(); i++ {
				raw, err := json.Marshal(values.Index(i).Interface())
				if err != nil {
					return "", nil, err
				}
				parts = append(parts, fmt.Sprintf("data->'%s' = ?::jsonb", f.Field))
				args = append(args, string(raw))
			}
			sb.WriteString("(" + strings.Join(parts, " OR ") + ")")
			continue
		}
		if ts, ok := f.Value.(time.Time); ok {
			fmt.Fprintf(&sb, "(data->>'%s')::timestamptz %s ?", f.Field, sqlOps[f.Op])
			args = append(args, ts)
			continue
		}
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, err
		}
		fmt.Fprintf(&sb, "data->'%s' %s ?::jsonb", f.Field, sqlOps[f.Op])
		args = append(args, string(raw))
	}
	return sb.String(), args, nil
}

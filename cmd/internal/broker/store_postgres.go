package broker

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a MessageStore backed by PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Concurrency model:
// - Inserts rely on the messages table's identity column for store-wide
//   strictly increasing IDs; no in-process locking is needed because rows are
//   append-only and never mutated.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by this store (default: "courier").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("broker: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("broker: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed MessageStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "courier",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("broker: nil pool")
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// Insert persists one record; the ID comes from the table's identity column.
func (s *PostgresStore) Insert(ctx context.Context, m StoredMessage) error {
	if s == nil || s.pool == nil {
		return ErrNilStore
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	messages := pgIdent(s.schema, "messages")

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO `+messages+` (
		     content_id, sender, recipient, send_time, store_time, payload_length, data_type, text
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ContentID, m.Sender, m.Recipient, m.SendTime, m.StoreTime, m.PayloadLength, m.DataType, m.Text,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrStorageWrite
	}
	return nil
}

// Metrics aggregates the backlog past afterID. limit only short-circuits at
// zero; the aggregate itself always spans the whole remaining backlog.
func (s *PostgresStore) Metrics(ctx context.Context, recipient string, afterID int64, limit int) (BacklogMetrics, error) {
	if s == nil || s.pool == nil {
		return BacklogMetrics{}, ErrNilStore
	}
	if limit == 0 {
		return BacklogMetrics{}, nil
	}
	if err := ctx.Err(); err != nil {
		return BacklogMetrics{}, err
	}

	messages := pgIdent(s.schema, "messages")

	var m BacklogMetrics
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*), COALESCE(sum(payload_length), 0)
		   FROM `+messages+`
		  WHERE recipient = $1 AND id > $2`,
		recipient, afterID,
	).Scan(&m.Count, &m.PayloadLength); err != nil {
		return BacklogMetrics{}, fmt.Errorf("backlog metrics: %w", err)
	}
	return m, nil
}

// FetchRange returns at most limit rows past afterID, ordered by id ASC.
func (s *PostgresStore) FetchRange(ctx context.Context, recipient string, afterID int64, limit int) ([]StoredMessage, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNilStore
	}
	if limit <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messages := pgIdent(s.schema, "messages")

	rows, err := s.pool.Query(ctx,
		`SELECT id, content_id, sender, recipient, send_time, store_time, payload_length, data_type, text
		   FROM `+messages+`
		  WHERE recipient = $1 AND id > $2
		  ORDER BY id ASC
		  LIMIT $3`,
		recipient, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch range: %w", err)
	}
	defer rows.Close()

	out := make([]StoredMessage, 0, limit)
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(
			&m.ID,
			&m.ContentID,
			&m.Sender,
			&m.Recipient,
			&m.SendTime,
			&m.StoreTime,
			&m.PayloadLength,
			&m.DataType,
			&m.Text,
		); err != nil {
			return nil, fmt.Errorf("fetch range: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch range: %w", err)
	}
	return out, nil
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{schema, table}.Sanitize()
}

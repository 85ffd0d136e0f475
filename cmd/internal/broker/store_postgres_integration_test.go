package broker

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are enabled when COURIER_DATABASE_URL is set.
// This keeps local "go test ./..." fast and deterministic without Postgres.

func TestPostgresStore_InsertAndFetchRange(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplySchema(t, pool, schema)

	store := mustNewStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	recipient := "it-bob-" + strings.ToLower(NewContentID()[:8])
	now := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 3; i++ {
		err := store.Insert(ctx, StoredMessage{
			ContentID:     NewContentID(),
			Sender:        "alice",
			Recipient:     recipient,
			SendTime:      now,
			StoreTime:     now,
			PayloadLength: 10 * (i + 1),
			DataType:      "text/plain",
			Text:          fmt.Sprintf("m%d", i),
		})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	rows, err := store.FetchRange(ctx, recipient, 0, 10)
	if err != nil {
		t.Fatalf("fetch range: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d want 3", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].ID <= rows[i-1].ID {
			t.Fatalf("ids not strictly increasing: %d after %d", rows[i].ID, rows[i-1].ID)
		}
	}
	if rows[0].Text != "m0" || rows[2].Text != "m2" {
		t.Fatalf("unexpected order: %q ... %q", rows[0].Text, rows[2].Text)
	}
	if !rows[0].SendTime.Equal(now) {
		t.Fatalf("send time mismatch: got %v want %v", rows[0].SendTime, now)
	}
}

func TestPostgresStore_MetricsMatchesBacklog(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplySchema(t, pool, schema)

	store := mustNewStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	recipient := "it-metrics-" + strings.ToLower(NewContentID()[:8])
	other := recipient + "-other"
	now := time.Now().UTC()

	insert := func(rcpt string, payload int) {
		t.Helper()
		err := store.Insert(ctx, StoredMessage{
			Sender:        "alice",
			Recipient:     rcpt,
			SendTime:      now,
			StoreTime:     now,
			PayloadLength: payload,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	insert(recipient, 100)
	insert(other, 999)
	insert(recipient, 50)

	m, err := store.Metrics(ctx, recipient, 0, 10)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.Count != 2 || m.PayloadLength != 150 {
		t.Fatalf("got %+v, want count=2 payload=150", m)
	}

	// limit == 0 short-circuits without querying.
	m, err = store.Metrics(ctx, recipient, 0, 0)
	if err != nil {
		t.Fatalf("metrics limit=0: %v", err)
	}
	if m.Count != 0 || m.PayloadLength != 0 {
		t.Fatalf("limit=0 must yield zero metrics, got %+v", m)
	}

	// Cursor past the first message.
	rows, err := store.FetchRange(ctx, recipient, 0, 1)
	if err != nil || len(rows) != 1 {
		t.Fatalf("fetch range: %v rows=%d", err, len(rows))
	}
	m, err = store.Metrics(ctx, recipient, rows[0].ID, 10)
	if err != nil {
		t.Fatalf("metrics after cursor: %v", err)
	}
	if m.Count != 1 || m.PayloadLength != 50 {
		t.Fatalf("got %+v, want count=1 payload=50", m)
	}
}

func TestPostgresStore_GlobalIDSequenceAcrossRecipients(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplySchema(t, pool, schema)

	store := mustNewStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a := "it-global-a"
	b := "it-global-b"
	now := time.Now().UTC()

	for i := 0; i < 4; i++ {
		rcpt := a
		if i%2 == 1 {
			rcpt = b
		}
		err := store.Insert(ctx, StoredMessage{
			Sender: "alice", Recipient: rcpt, SendTime: now, StoreTime: now, Text: "x",
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	rowsA, err := store.FetchRange(ctx, a, 0, 10)
	if err != nil {
		t.Fatalf("fetch a: %v", err)
	}
	rowsB, err := store.FetchRange(ctx, b, 0, 10)
	if err != nil {
		t.Fatalf("fetch b: %v", err)
	}
	if len(rowsA) != 2 || len(rowsB) != 2 {
		t.Fatalf("rows a=%d b=%d want 2/2", len(rowsA), len(rowsB))
	}

	// One shared sequence: a cursor observed on one recipient's messages is
	// meaningful against the whole store.
	ids := []int64{rowsA[0].ID, rowsB[0].ID, rowsA[1].ID, rowsB[1].ID}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("interleaved ids not increasing: %v", ids)
		}
	}
}

// ---- test helpers ----

func mustNewStore(t *testing.T, pool *pgxpool.Pool, schema string) *PostgresStore {
	t.Helper()

	st, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new postgres store: %v", err)
	}
	return st
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("COURIER_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: COURIER_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse COURIER_DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	schema := "courier_it_" + strings.ToLower(NewContentID()[:8])

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, `CREATE SCHEMA `+pgx.Identifier{schema}.Sanitize()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return schema
}

func mustDropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
}

func mustApplySchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	messages := pgIdent(schema, "messages")

	// Minimal schema required by PostgresStore.
	schemaSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
  content_id     TEXT NOT NULL DEFAULT '',
  sender         TEXT NOT NULL,
  recipient      TEXT NOT NULL,
  send_time      TIMESTAMPTZ NOT NULL,
  store_time     TIMESTAMPTZ NOT NULL,
  payload_length INTEGER NOT NULL DEFAULT 0,
  data_type      TEXT NOT NULL DEFAULT '',
  text           TEXT NOT NULL DEFAULT '',

  CONSTRAINT chk_messages_sender_len    CHECK (octet_length(sender) BETWEEN 1 AND 64),
  CONSTRAINT chk_messages_recipient_len CHECK (octet_length(recipient) BETWEEN 1 AND 64)
);

CREATE INDEX IF NOT EXISTS idx_messages_recipient_id
  ON %s (recipient, id ASC);
`, messages, messages)

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}

package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"courier/cmd/internal/docstore"
	"courier/cmd/internal/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxDataLength        = 1 << 20 // 1 MiB per payload
	defaultMaxBatchPayloadBytes = 4 << 20 // 4 MiB per fetch batch
	defaultResolveConcurrency   = 4
)

// Limits are the broker's configured size bounds. They are fixed at
// construction; the service never reads ambient configuration.
type Limits struct {
	// MaxDataLength caps a single payload at ingestion.
	MaxDataLength int
	// MaxBatchPayloadBytes caps cumulative payload bytes per fetch batch.
	MaxBatchPayloadBytes int
	// ResolveConcurrency bounds parallel payload resolutions per fetch.
	ResolveConcurrency int
}

func (l Limits) withDefaults() Limits {
	if l.MaxDataLength <= 0 {
		l.MaxDataLength = defaultMaxDataLength
	}
	if l.MaxBatchPayloadBytes <= 0 {
		l.MaxBatchPayloadBytes = defaultMaxBatchPayloadBytes
	}
	if l.ResolveConcurrency <= 0 {
		l.ResolveConcurrency = defaultResolveConcurrency
	}
	return l
}

// Service orchestrates ingestion (validate, offload payload, persist) and
// retrieval (backlog metrics, bounded fetch, truncation, payload resolution).
//
// Every call is a single synchronous pipeline; the only state between calls
// lives in the message store and the document store.
type Service struct {
	log    *slog.Logger
	store  MessageStore
	docs   docstore.Client
	limits Limits
}

// NewService constructs a broker Service.
func NewService(log *slog.Logger, store MessageStore, docs docstore.Client, limits Limits) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, ErrNilStore
	}
	if docs == nil {
		return nil, errors.New("broker: nil docstore client")
	}
	return &Service{
		log:    log,
		store:  store,
		docs:   docs,
		limits: limits.withDefaults(),
	}, nil
}

// Limits returns the service's effective limits.
func (s *Service) Limits() Limits { return s.limits }

// Submit validates and persists one message. When a payload is present it is
// uploaded to the document store under a fresh content ID before the record
// is inserted.
//
// Known limitation: if the insert fails after a successful upload, the
// payload is orphaned in the document store. There is no compensating delete;
// cleanup is left to an out-of-band policy.
func (s *Service) Submit(ctx context.Context, m OutgoingMessage) error {
	if err := Validate(m, s.limits.MaxDataLength); err != nil {
		return err
	}

	rec := StoredMessage{
		Sender:    m.Sender,
		Recipient: m.Recipient,
		SendTime:  m.SendTime,
		StoreTime: time.Now().UTC(),
		DataType:  m.DataType,
		Text:      m.Text,
	}

	if strings.TrimSpace(m.Data) != "" {
		rec.ContentID = NewContentID()
		rec.PayloadLength = len(m.Data)
		if err := s.docs.Put(ctx, rec.ContentID, m.Data); err != nil {
			return fmt.Errorf("offload payload: %w", err)
		}
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		if rec.ContentID != "" {
			s.log.Warn("ingest.orphaned_payload",
				"content_id", rec.ContentID,
				"recipient", rec.Recipient,
				"err", err,
			)
		}
		return fmt.Errorf("persist message: %w", err)
	}

	metrics.MessagesIngested.Inc()
	metrics.PayloadBytesIngested.Add(float64(rec.PayloadLength))
	return nil
}

// Fetch returns up to count undelivered messages for recipient with
// id > afterID, oldest first. count must already be clamped by the caller.
//
// The batch is additionally bounded by Limits.MaxBatchPayloadBytes: when the
// backlog's payload bytes exceed the cap, rows are kept in order until their
// cumulative payload length reaches it.
func (s *Service) Fetch(ctx context.Context, recipient string, afterID int64, count int) (FetchResult, error) {
	start := time.Now()

	total, err := s.store.Metrics(ctx, recipient, afterID, math.MaxInt)
	if err != nil {
		return FetchResult{}, fmt.Errorf("backlog metrics: %w", err)
	}
	if count == 0 {
		return FetchResult{Count: 0, TotalCount: total.Count}, nil
	}

	// The second aggregate mirrors the first; the store only uses the limit
	// to short-circuit at zero. Kept separate so the two reads stay
	// independently observable.
	m, err := s.store.Metrics(ctx, recipient, afterID, count)
	if err != nil {
		return FetchResult{}, fmt.Errorf("backlog metrics: %w", err)
	}
	if m.Count == 0 {
		return FetchResult{Count: 0, TotalCount: total.Count}, nil
	}

	rows, err := s.store.FetchRange(ctx, recipient, afterID, count)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch range: %w", err)
	}

	realCount := len(rows)
	if m.PayloadLength > s.limits.MaxBatchPayloadBytes {
		size := 0
		realCount = 0
		for _, row := range rows {
			realCount++
			size += row.PayloadLength
			if size >= s.limits.MaxBatchPayloadBytes {
				break
			}
		}
		// The cap is measured against the whole backlog, so the fetched
		// prefix may never reach it; in that case the prefix is returned
		// whole.
		if realCount < len(rows) {
			metrics.FetchesTruncated.Inc()
		}
	}

	out, err := s.resolve(ctx, rows[:realCount])
	if err != nil {
		return FetchResult{}, err
	}

	metrics.MessagesDelivered.Add(float64(realCount))
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	return FetchResult{
		Count:      realCount,
		TotalCount: total.Count,
		Messages:   out,
	}, nil
}

// resolve builds delivery messages for rows, fetching external payloads with
// bounded concurrency. Results are placed by original index so id ordering is
// preserved; any failed resolution aborts the whole batch.
func (s *Service) resolve(ctx context.Context, rows []StoredMessage) ([]IncomingMessage, error) {
	out := make([]IncomingMessage, len(rows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limits.ResolveConcurrency)

	for i, row := range rows {
		out[i] = IncomingMessage{
			ID:        row.ID,
			Sender:    row.Sender,
			Recipient: row.Recipient,
			SendTime:  row.SendTime,
			DataType:  row.DataType,
			Text:      row.Text,
		}
		if row.PayloadLength == 0 {
			continue
		}

		g.Go(func() error {
			data, err := s.docs.Get(ctx, row.ContentID)
			if err != nil {
				return fmt.Errorf("resolve payload %s: %w", row.ContentID, err)
			}
			out[i].Data = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// NewContentID returns a fresh globally unique document-store key: an
// uppercase UUID.
func NewContentID() string {
	return strings.ToUpper(uuid.NewString())
}

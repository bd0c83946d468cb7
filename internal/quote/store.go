package quote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/citabot/internal/observe"
)

// Source yields the raw history of the designated channel, oldest first.
type Source interface {
	History(ctx context.Context) ([]Message, error)
}

// SourceFunc adapts a plain function to [Source].
type SourceFunc func(ctx context.Context) ([]Message, error)

// History implements [Source].
func (f SourceFunc) History(ctx context.Context) ([]Message, error) {
	return f(ctx)
}

// snapshot is one immutable load cycle of the store.
type snapshot struct {
	records  []Record
	byID     map[string]int
	loadedAt time.Time
}

func newSnapshot(records []Record, at time.Time) *snapshot {
	byID := make(map[string]int, len(records))
	for i, r := range records {
		byID[r.MessageID] = i
	}
	return &snapshot{records: records, byID: byID, loadedAt: at}
}

// Store is the in-memory knowledge base. Its contents are replaced
// wholesale by [Store.Reload]; readers always observe either the previous
// or the new snapshot, never a partial one.
//
// All methods are safe for concurrent use. The zero value is not usable;
// create a Store with [NewStore].
type Store struct {
	parser  *Parser
	metrics *observe.Metrics
	current atomic.Pointer[snapshot]
	group   singleflight.Group
}

// Option configures a [Store].
type Option func(*Store)

// WithMetrics records reload outcomes and the loaded record count on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore returns an empty Store that parses history with parser.
func NewStore(parser *Parser, opts ...Option) *Store {
	if parser == nil {
		parser = NewParser(nil)
	}
	s := &Store{parser: parser}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(newSnapshot(nil, time.Time{}))
	return s
}

// Reload fetches the full history from src, parses it and swaps the result
// in as the new snapshot. It returns the number of records loaded.
//
// On any failure the previous snapshot is kept unchanged. Concurrent calls
// share a single in-flight reload and all receive its result.
func (s *Store) Reload(ctx context.Context, src Source) (int, error) {
	v, err, shared := s.group.Do("reload", func() (any, error) {
		return s.reload(ctx, src)
	})
	if shared {
		slog.Debug("quote: joined in-flight reload")
	}
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *Store) reload(ctx context.Context, src Source) (int, error) {
	ctx, span := observe.StartSpan(ctx, "quote.reload")
	defer span.End()
	start := time.Now()

	n, err := s.load(ctx, src)
	if s.metrics != nil {
		s.metrics.RecordReload(ctx, "quotes", time.Since(start), err)
		if err == nil {
			s.metrics.QuotesLoaded.Record(ctx, int64(n))
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observe.Logger(ctx).Error("quote: reload failed, keeping previous snapshot",
			"err", err, "kept", s.Len())
		return 0, err
	}
	span.SetAttributes(attribute.Int("quote.count", n))
	observe.Logger(ctx).Info("quotes loaded", "count", n, "duration", time.Since(start))
	return n, nil
}

func (s *Store) load(ctx context.Context, src Source) (int, error) {
	msgs, err := src.History(ctx)
	if err != nil {
		return 0, fmt.Errorf("quote: fetch history: %w", err)
	}
	return s.ReloadMessages(ctx, msgs)
}

// ReloadMessages parses msgs and swaps the result in as the new snapshot.
// Like [Store.Reload], it leaves the store untouched on failure.
func (s *Store) ReloadMessages(ctx context.Context, msgs []Message) (int, error) {
	records, err := s.parser.Parse(ctx, msgs)
	if err != nil {
		return 0, err
	}
	s.current.Store(newSnapshot(records, time.Now()))
	return len(records), nil
}

// Query returns the records whose author display name contains filter,
// ignoring case, in source order. An empty filter returns every record. No
// match yields an empty, non-nil slice.
func (s *Store) Query(filter string) []Record {
	snap := s.current.Load()
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return append(make([]Record, 0, len(snap.records)), snap.records...)
	}
	out := make([]Record, 0)
	for _, r := range snap.records {
		if strings.Contains(strings.ToLower(r.AuthorName), filter) {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the record at index in the current snapshot. Indices are only
// meaningful for the snapshot they were obtained from.
func (s *Store) Get(index int) (Record, error) {
	snap := s.current.Load()
	if index < 0 || index >= len(snap.records) {
		return Record{}, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return snap.records[index], nil
}

// GetByMessageID returns the record derived from the source message id.
// Unlike positional indices, message IDs survive reloads as long as the
// source message still exists.
func (s *Store) GetByMessageID(id string) (Record, error) {
	snap := s.current.Load()
	i, ok := snap.byID[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: message %s", ErrNotFound, id)
	}
	return snap.records[i], nil
}

// Len returns the number of records in the current snapshot.
func (s *Store) Len() int {
	return len(s.current.Load().records)
}

// LoadedAt returns when the current snapshot was installed. The zero time
// means no reload has succeeded yet.
func (s *Store) LoadedAt() time.Time {
	return s.current.Load().loadedAt
}

// Authors returns the distinct author display names in first-seen order.
func (s *Store) Authors() []string {
	snap := s.current.Load()
	seen := make(map[string]bool)
	var names []string
	for _, r := range snap.records {
		if !seen[r.AuthorName] {
			seen[r.AuthorName] = true
			names = append(names, r.AuthorName)
		}
	}
	return names
}

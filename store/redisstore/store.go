// Package redisstore keeps audit events in Redis: one JSON document per event and
// one sorted set per root, scored by event time.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mickamy/auditlog"
)

const (
	DefaultPrefix = "auditlog"
	pageSize      = 100
)

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix (default "auditlog").
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// Store is an auditlog.EventSink and auditlog.HistoryReader backed by Redis.
// Time bounds of history queries are applied at microsecond precision.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New returns a Store using client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open connects to the Redis server at url (redis://host:port/db).
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("auditlog: failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(o)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("auditlog: redis ping failed: %w", err)
	}
	return New(client, opts...), nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) seqKey() string { return s.prefix + ":seq" }
func (s *Store) allKey() string { return s.prefix + ":events" }
func (s *Store) eventKey(id string) string { return s.prefix + ":event:" + id }
func (s *Store) rootKey(rootType, rootID string) string {
	return s.prefix + ":root:" + rootType + ":" + rootID
}

// member orders events with equal scores by write sequence.
func member(seq int64, id string) string {
	return fmt.Sprintf("%016x:%s", seq, id)
}

func memberID(m string) string {
	_, id, _ := strings.Cut(m, ":")
	return id
}

func score(t time.Time) float64 {
	return float64(t.UTC().UnixMicro())
}

// WriteEvents stores each event atomically.
func (s *Store) WriteEvents(ctx context.Context, events []auditlog.AuditEvent) error {
	for _, ev := range events {
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
		ev.Timestamp = ev.Timestamp.UTC()
		doc, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("auditlog: failed to marshal audit event: %w", err)
		}
		seq, err := s.client.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return fmt.Errorf("auditlog: failed to allocate sequence: %w", err)
		}
		id := ev.ID.String()
		z := redis.Z{Score: score(ev.Timestamp), Member: member(seq, id)}
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, s.eventKey(id), doc, 0)
			p.ZAdd(ctx, s.allKey(), z)
			for _, a := range roots(ev) {
				p.ZAdd(ctx, s.rootKey(a.RootType, a.RootID), z)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("auditlog: failed to write audit event: %w", err)
		}
	}
	return nil
}

func roots(ev auditlog.AuditEvent) []auditlog.AuditAnchor {
	seen := map[[2]string]bool{}
	var out []auditlog.AuditAnchor
	for _, en := range ev.Entries {
		k := [2]string{en.RootType, en.RootID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, en.Anchor())
	}
	return out
}

func (s *Store) History(ctx context.Context, q auditlog.HistoryQuery) iter.Seq2[auditlog.AuditEvent, error] {
	return func(yield func(auditlog.AuditEvent, error) bool) {
		if err := q.Validate(); err != nil {
			yield(auditlog.AuditEvent{}, err)
			return
		}
		lo, hi := "-inf", "+inf"
		if !q.From.IsZero() {
			lo = strconv.FormatInt(q.From.UTC().UnixMicro(), 10)
		}
		if !q.To.IsZero() {
			hi = "(" + strconv.FormatInt(q.To.UTC().UnixMicro(), 10)
		}
		key := s.rootKey(q.RootType, q.RootID)
		offset, remaining := int64(q.Skip), int64(q.Take)
		for {
			count := int64(pageSize)
			if q.Take > 0 {
				if remaining <= 0 {
					return
				}
				count = min(count, remaining)
			}
			members, err := s.client.ZRangeArgs(ctx, redis.ZRangeArgs{
				Key:     key,
				Start:   lo,
				Stop:    hi,
				ByScore: true,
				Offset:  offset,
				Count:   count,
			}).Result()
			if err != nil {
				yield(auditlog.AuditEvent{}, fmt.Errorf("auditlog: failed to range audit history: %w", err))
				return
			}
			if len(members) == 0 {
				return
			}
			events, err := s.load(ctx, members)
			if err != nil {
				yield(auditlog.AuditEvent{}, err)
				return
			}
			for _, ev := range events {
				if ev = ev.ForRoot(q.RootType, q.RootID); len(ev.Entries) == 0 {
					continue
				}
				if !yield(ev, nil) {
					return
				}
			}
			offset += int64(len(members))
			remaining -= int64(len(members))
			if int64(len(members)) < count {
				return
			}
		}
	}
}

// load fetches the event documents of members, skipping ones that no longer exist.
func (s *Store) load(ctx context.Context, members []string) ([]auditlog.AuditEvent, error) {
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = s.eventKey(memberID(m))
	}
	docs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("auditlog: failed to load audit events: %w", err)
	}
	out := make([]auditlog.AuditEvent, 0, len(docs))
	for i, d := range docs {
		str, ok := d.(string)
		if !ok {
			continue
		}
		var ev auditlog.AuditEvent
		if err := json.Unmarshal([]byte(str), &ev); err != nil {
			return nil, fmt.Errorf("auditlog: failed to decode audit event %s: %w", keys[i], err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Prune deletes events older than before and reports how many were deleted.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	hi := "(" + strconv.FormatInt(before.UTC().UnixMicro(), 10)
	var n int64
	for {
		members, err := s.client.ZRangeArgs(ctx, redis.ZRangeArgs{
			Key:     s.allKey(),
			Start:   "-inf",
			Stop:    hi,
			ByScore: true,
			Count:   pageSize,
		}).Result()
		if err != nil {
			return n, fmt.Errorf("auditlog: failed to range audit events: %w", err)
		}
		if len(members) == 0 {
			return n, nil
		}
		events, err := s.load(ctx, members)
		if err != nil {
			return n, err
		}
		byID := make(map[string]auditlog.AuditEvent, len(events))
		for _, ev := range events {
			byID[ev.ID.String()] = ev
		}
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, m := range members {
				id := memberID(m)
				p.Del(ctx, s.eventKey(id))
				p.ZRem(ctx, s.allKey(), m)
				for _, a := range roots(byID[id]) {
					p.ZRem(ctx, s.rootKey(a.RootType, a.RootID), m)
				}
			}
			return nil
		})
		if err != nil {
			return n, fmt.Errorf("auditlog: failed to prune audit events: %w", err)
		}
		n += int64(len(members))
	}
}

// Health checks the Redis connection.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

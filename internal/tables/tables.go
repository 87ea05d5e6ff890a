package tables

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/bus"
	"github.com/roach88/vaniya/internal/store"
)

// DefaultNamespace prefixes every table key.
const DefaultNamespace = "vaniya_sql_"

// DefaultMaxAttempts bounds Atomic retries on version conflicts.
const DefaultMaxAttempts = 10

var emptyArray = json.RawMessage("[]")

// KV is the durable key/value store tables live in.
type KV interface {
	Get(ctx context.Context, key string) (store.Entry, bool, error)
	PutBatch(ctx context.Context, writes []store.Write) ([]int64, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Notifier receives one notification per committed table write.
type Notifier interface {
	Publish(ctx context.Context, table string) bus.Event
	PublishReset(ctx context.Context) bus.Event
}

// Validator checks a serialized collection before it is written.
type Validator interface {
	Validate(table string, data []byte) error
}

// Snapshot is the serialized content of one table at a version.
// Version 0 means the table has never been written.
type Snapshot struct {
	Table   string
	Data    json.RawMessage
	Version int64
}

// Tables is the Table Store.
type Tables struct {
	kv          KV
	notify      Notifier
	namespace   string
	log         *zap.Logger
	validator   Validator
	ids         IDGenerator
	maxAttempts int

	// commitMu orders commits with their notifications, so subscribers see
	// this context's writes in commit order.
	commitMu sync.Mutex
}

// Option configures Tables.
type Option func(*Tables)

// WithNamespace sets the key prefix shared by every table.
func WithNamespace(ns string) Option {
	return func(t *Tables) {
		t.namespace = ns
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Tables) {
		if log != nil {
			t.log = log
		}
	}
}

// WithValidator enables validation of every write.
func WithValidator(v Validator) Option {
	return func(t *Tables) {
		t.validator = v
	}
}

// WithIDGenerator overrides how Insert assigns missing ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Tables) {
		t.ids = g
	}
}

// WithMaxAttempts bounds how many times Atomic runs its function.
func WithMaxAttempts(n int) Option {
	return func(t *Tables) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// New creates a Table Store over kv, notifying through notify.
func New(kv KV, notify Notifier, opts ...Option) *Tables {
	t := &Tables{
		kv:          kv,
		notify:      notify,
		namespace:   DefaultNamespace,
		log:         zap.NewNop(),
		ids:         RandomIDs{},
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.Named("tables")
	return t
}

// Namespace returns the key prefix.
func (t *Tables) Namespace() string {
	return t.namespace
}

func (t *Tables) key(table string) string {
	return t.namespace + table
}

// Read returns the current snapshot of table.
// A missing table reads as an empty collection at version 0. A stored value that is
// not a JSON array is logged and reads as empty at its stored version.
func (t *Tables) Read(ctx context.Context, table string) (Snapshot, error) {
	e, ok, err := t.kv.Get(ctx, t.key(table))
	if err != nil {
		return Snapshot{}, &StorageError{Code: ErrCodeIO, Table: table, Message: "read failed", Err: err}
	}
	if !ok {
		return Snapshot{Table: table, Data: emptyArray}, nil
	}

	data := []byte(e.Value)
	if !isArray(data) {
		t.log.Warn("malformed table reads as empty",
			zap.String("table", table),
			zap.Int64("version", e.Version),
			zap.Int("bytes", len(data)))
		return Snapshot{Table: table, Data: emptyArray, Version: e.Version}, nil
	}
	return Snapshot{Table: table, Data: data, Version: e.Version}, nil
}

// Write replaces table with records and publishes one notification.
// On failure the prior value is kept and nothing is published.
func (t *Tables) Write(ctx context.Context, table string, records any) error {
	data, err := t.encode(table, records)
	if err != nil {
		return err
	}
	t.commitMu.Lock()
	defer t.commitMu.Unlock()
	if _, err := t.kv.PutBatch(ctx, []store.Write{{Key: t.key(table), Value: string(data)}}); err != nil {
		return t.writeError(table, err)
	}
	t.notify.Publish(ctx, table)
	return nil
}

// Reset deletes every table under the namespace and publishes a reset.
// Keys outside the namespace are left alone.
func (t *Tables) Reset(ctx context.Context) (int, error) {
	t.commitMu.Lock()
	defer t.commitMu.Unlock()
	n, err := t.kv.DeletePrefix(ctx, t.namespace)
	if err != nil {
		return 0, &StorageError{Code: ErrCodeIO, Message: "reset failed", Err: err}
	}
	t.log.Info("tables reset", zap.Int64("removed", n))
	t.notify.PublishReset(ctx)
	return int(n), nil
}

// Names returns the tables currently stored under the namespace, sorted.
func (t *Tables) Names(ctx context.Context) ([]string, error) {
	keys, err := t.kv.Keys(ctx, t.namespace)
	if err != nil {
		return nil, &StorageError{Code: ErrCodeIO, Message: "list tables failed", Err: err}
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, t.namespace))
	}
	return names, nil
}

// encode serializes records and validates the result.
func (t *Tables) encode(table string, records any) ([]byte, error) {
	data, err := json.Marshal(records)
	if err != nil {
		// Panics under a development logger.
		t.log.DPanic("table serialization failed", zap.String("table", table), zap.Error(err))
		return nil, &StorageError{Code: ErrCodeSerialization, Table: table, Message: "cannot serialize records", Err: err}
	}
	if bytes.Equal(data, []byte("null")) {
		data = emptyArray
	}
	if !isArray(data) {
		t.log.DPanic("table is not a collection", zap.String("table", table))
		return nil, &StorageError{Code: ErrCodeSerialization, Table: table, Message: fmt.Sprintf("records must encode as an array, got %T", records)}
	}

	if t.validator != nil {
		if err := t.validator.Validate(table, data); err != nil {
			t.log.Warn("table failed validation", zap.String("table", table), zap.Error(err))
			return nil, &StorageError{Code: ErrCodeInvalid, Table: table, Message: "records failed validation", Err: err}
		}
	}
	return data, nil
}

func (t *Tables) writeError(table string, err error) error {
	switch {
	case errors.Is(err, store.ErrQuotaExceeded):
		t.log.Error("storage quota exceeded", zap.String("table", table), zap.Error(err))
		return &StorageError{Code: ErrCodeQuotaExceeded, Table: table, Message: "storage is full", Err: err}
	case errors.Is(err, store.ErrVersionConflict):
		return &StorageError{Code: ErrCodeVersionConflict, Table: table, Message: "table changed concurrently", Err: err}
	default:
		t.log.Error("table write failed", zap.String("table", table), zap.Error(err))
		return &StorageError{Code: ErrCodeIO, Table: table, Message: "write failed", Err: err}
	}
}

func isArray(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed)
}

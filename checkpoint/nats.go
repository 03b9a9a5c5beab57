package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/meshworks/taskmesh/task"
)

// NATSStore implements Store using NATS JetStream KV. Checkpoints are
// serialized to JSON, one key per task ID, so multiple processes can
// share the same task snapshots.
type NATSStore struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	kv     jetstream.KeyValue
	config NATSStoreConfig
	closed atomic.Bool
}

// NATSStoreConfig holds NATS KV store configuration.
type NATSStoreConfig struct {
	// Conn is the NATS connection to use.
	Conn *nats.Conn

	// Bucket is the KV bucket name.
	Bucket string

	// TTL is the bucket-level TTL for entries (0 = entries never expire).
	TTL time.Duration

	// MaxValueSize is the maximum value size in bytes.
	// Default: 1MB
	MaxValueSize int32
}

// DefaultNATSStoreConfig returns configuration with sensible defaults.
func DefaultNATSStoreConfig() NATSStoreConfig {
	return NATSStoreConfig{
		Bucket:       "taskmesh-checkpoints",
		MaxValueSize: 1024 * 1024, // 1MB
	}
}

// NewNATSStore creates a new NATS JetStream KV checkpoint store.
func NewNATSStore(cfg NATSStoreConfig) (*NATSStore, error) {
	if cfg.Conn == nil {
		return nil, fmt.Errorf("nats connection required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultNATSStoreConfig().Bucket
	}
	if cfg.MaxValueSize <= 0 {
		cfg.MaxValueSize = DefaultNATSStoreConfig().MaxValueSize
	}

	js, err := jetstream.New(cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:       cfg.Bucket,
		TTL:          cfg.TTL,
		History:      1,
		MaxValueSize: cfg.MaxValueSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create kv bucket: %w", err)
	}

	return &NATSStore{
		conn:   cfg.Conn,
		js:     js,
		kv:     kv,
		config: cfg,
	}, nil
}

// Put stores the checkpoint for a task, overwriting any previous one.
func (s *NATSStore) Put(taskID string, state *task.State, pendingInput map[string]any) error {
	if err := ValidateTaskID(taskID); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cp := Checkpoint{
		State:        state,
		PendingInput: pendingInput,
		UpdatedAt:    time.Now(),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	// The KV revision is the source of truth; the JSON Revision field is
	// rewritten from it on Get.
	if _, err := s.kv.Put(ctx, taskID, data); err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

// Get retrieves the last stored checkpoint.
func (s *NATSStore) Get(taskID string) (*Checkpoint, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry, err := s.kv.Get(ctx, taskID)
	if err != nil {
		return nil, mapKVGetError(err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(entry.Value(), &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	cp.Revision = entry.Revision()
	return &cp, nil
}

// Keys returns the task IDs with stored checkpoints.
func (s *NATSStore) Keys() ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("kv list: %w", err)
	}

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	return keys, nil
}

// Close shuts down the store. The NATS connection is owned by the caller
// and is not closed here.
func (s *NATSStore) Close() error {
	s.closed.Store(true)
	return nil
}

// mapKVGetError translates KV lookup failures to the store contract.
// A missing key, wrapped or not, is ErrNotFound.
func mapKVGetError(err error) error {
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("kv get: %w", err)
}

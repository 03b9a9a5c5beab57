package checkpoint

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
)

func TestMapKVGetError(t *testing.T) {
	if got := mapKVGetError(jetstream.ErrKeyNotFound); got != ErrNotFound {
		t.Errorf("bare missing key mapped to %v, want ErrNotFound", got)
	}

	wrapped := fmt.Errorf("bucket lookup: %w", jetstream.ErrKeyNotFound)
	if got := mapKVGetError(wrapped); got != ErrNotFound {
		t.Errorf("wrapped missing key mapped to %v, want ErrNotFound", got)
	}

	other := errors.New("connection reset")
	got := mapKVGetError(other)
	if got == ErrNotFound {
		t.Fatal("unrelated error mapped to ErrNotFound")
	}
	if !errors.Is(got, other) {
		t.Errorf("unrelated error not preserved: %v", got)
	}
}

package registry

import (
	"context"
	"testing"
)

// stubHandler is a minimal Handler for registry tests.
type stubHandler struct {
	id   string
	caps []string
}

func (h *stubHandler) ID() string              { return h.id }
func (h *stubHandler) Capabilities() []string  { return h.caps }
func (h *stubHandler) Process(ctx context.Context, taskID string, params map[string]any) (map[string]any, error) {
	return map[string]any{"status": "completed_successfully"}, nil
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewMemoryRegistry()
	defer reg.Close()

	h := &stubHandler{id: "echo", caps: []string{"testing"}}
	if err := reg.Register(h); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := reg.Get("echo")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID() != "echo" {
		t.Errorf("Expected handler echo, got %s", got.ID())
	}
}

func TestGetAbsent(t *testing.T) {
	reg := NewMemoryRegistry()
	defer reg.Close()

	if _, err := reg.Get("nope"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewMemoryRegistry()
	defer reg.Close()

	reg.Register(&stubHandler{id: "echo"})
	if err := reg.Register(&stubHandler{id: "echo"}); err != ErrDuplicateID {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}
}

func TestDeregister(t *testing.T) {
	reg := NewMemoryRegistry()
	defer reg.Close()

	reg.Register(&stubHandler{id: "echo"})
	if err := reg.Deregister("echo"); err != nil {
		t.Fatalf("Deregister failed: %v", err)
	}
	if _, err := reg.Get("echo"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound after deregister, got %v", err)
	}
	if err := reg.Deregister("echo"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound on double deregister, got %v", err)
	}
}

func TestListSorted(t *testing.T) {
	reg := NewMemoryRegistry()
	defer reg.Close()

	reg.Register(&stubHandler{id: "pixel_forge", caps: []string{"asset-generation"}})
	reg.Register(&stubHandler{id: "echo", caps: []string{"testing"}})

	infos, err := reg.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 registrations, got %d", len(infos))
	}
	if infos[0].ID != "echo" || infos[1].ID != "pixel_forge" {
		t.Errorf("Expected sorted IDs, got %s, %s", infos[0].ID, infos[1].ID)
	}
}

func TestFindByCapability(t *testing.T) {
	reg := NewMemoryRegistry()
	defer reg.Close()

	reg.Register(&stubHandler{id: "pixel_forge", caps: []string{"asset-generation", "sprites"}})
	reg.Register(&stubHandler{id: "level_architect", caps: []string{"scene-layout"}})

	infos, err := reg.FindByCapability("asset-generation")
	if err != nil {
		t.Fatalf("FindByCapability failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "pixel_forge" {
		t.Errorf("Expected pixel_forge only, got %v", infos)
	}
}

func TestRegisterInvalid(t *testing.T) {
	reg := NewMemoryRegistry()
	defer reg.Close()

	if err := reg.Register(&stubHandler{id: ""}); err != ErrInvalidID {
		t.Errorf("Expected ErrInvalidID, got %v", err)
	}
}

func TestClosedRegistry(t *testing.T) {
	reg := NewMemoryRegistry()
	reg.Close()

	if err := reg.Register(&stubHandler{id: "echo"}); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, err := reg.Get("echo"); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

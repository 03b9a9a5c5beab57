package bus

import (
	"testing"
	"time"

	"github.com/meshworks/taskmesh/task"
)

func TestPublishStateRoundTrip(t *testing.T) {
	b := NewMemoryBus(DefaultConfig())
	defer b.Close()

	sub, err := b.Subscribe(TaskWildcard)
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer sub.Unsubscribe()

	state := task.New("t1", "echo", map[string]any{"msg": "hi"})
	state.Status = task.StatusInProgress
	state.CurrentStep = "dispatch_to_agent"

	if err := PublishState(b, state); err != nil {
		t.Fatalf("PublishState error: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if msg.Subject != TaskStatusSubject("t1") {
			t.Errorf("subject = %q", msg.Subject)
		}
		ev, err := DecodeTaskEvent(msg)
		if err != nil {
			t.Fatalf("DecodeTaskEvent error: %v", err)
		}
		if ev.TaskID != "t1" {
			t.Errorf("TaskID = %q", ev.TaskID)
		}
		if ev.Status != "in_progress" {
			t.Errorf("Status = %q", ev.Status)
		}
		if ev.CurrentStep != "dispatch_to_agent" {
			t.Errorf("CurrentStep = %q", ev.CurrentStep)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNotifierReportsPublishErrors(t *testing.T) {
	b := NewMemoryBus(DefaultConfig())
	b.Close()

	var got error
	notify := Notifier(b, func(err error) { got = err })
	notify(task.New("t1", "echo", nil))

	if got != ErrClosed {
		t.Errorf("expected ErrClosed reported, got %v", got)
	}
}

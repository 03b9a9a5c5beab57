package bus

import (
	"encoding/json"
	"time"

	"github.com/meshworks/taskmesh/task"
)

// TaskEvent is the wire form of a task status transition.
type TaskEvent struct {
	TaskID      string    `json:"task_id"`
	Status      string    `json:"status"`
	CurrentStep string    `json:"current_step"`
	TargetAgent string    `json:"target_agent_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskStatusSubject returns the subject task events for one task are
// published to. Subscribe to TaskWildcard to observe all tasks.
func TaskStatusSubject(taskID string) string {
	return "task." + taskID + ".status"
}

// TaskWildcard matches the status subjects of every task.
const TaskWildcard = "task.>"

// PublishState publishes a task state transition to the bus.
func PublishState(b MessageBus, s *task.State) error {
	ev := TaskEvent{
		TaskID:      s.TaskID,
		Status:      s.Status.String(),
		CurrentStep: s.CurrentStep,
		TargetAgent: s.TargetAgentID,
		UpdatedAt:   s.UpdatedAt,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.Publish(TaskStatusSubject(s.TaskID), data)
}

// DecodeTaskEvent parses a message published by PublishState.
func DecodeTaskEvent(m *Message) (TaskEvent, error) {
	var ev TaskEvent
	err := json.Unmarshal(m.Data, &ev)
	return ev, err
}

// Notifier adapts the bus into a callback suitable for the engine's
// notification hook. Publish failures are reported to onErr if set and
// otherwise ignored; event delivery is best effort.
func Notifier(b MessageBus, onErr func(error)) func(*task.State) {
	return func(s *task.State) {
		if err := PublishState(b, s); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

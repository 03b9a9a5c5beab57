package agents

import "context"

// EchoAgent reflects its input parameters back as a completed result.
// It is the fixture handler used by examples and pipeline smoke tests.
type EchoAgent struct {
	id string
}

// NewEchoAgent creates an echo handler. An empty id defaults to "echo".
func NewEchoAgent(id string) *EchoAgent {
	if id == "" {
		id = "echo"
	}
	return &EchoAgent{id: id}
}

func (a *EchoAgent) ID() string { return a.id }

func (a *EchoAgent) Capabilities() []string {
	return []string{"echo", "diagnostics"}
}

func (a *EchoAgent) Process(ctx context.Context, taskID string, params map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := map[string]any{
		"event_type": eventCompleted,
		"status":     "success",
	}
	for k, v := range params {
		if _, reserved := out[k]; !reserved {
			out[k] = v
		}
	}
	return out, nil
}

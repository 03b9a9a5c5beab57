package server

import "context"

// remoteAgent is the registry entry for an agent that registered over
// HTTP and runs out of process. Dispatching to it does not call the
// agent; it records the hand-off. The remote agent reports back through
// post_event, whose payload is merged into the task parameters, so the
// next dispatch echoes the reported event type and the status
// transition fires.
type remoteAgent struct {
	id           string
	capabilities []string
	endpoint     string
}

func newRemoteAgent(id string, capabilities []string, endpoint string) *remoteAgent {
	return &remoteAgent{id: id, capabilities: capabilities, endpoint: endpoint}
}

func (a *remoteAgent) ID() string { return a.id }

func (a *remoteAgent) Capabilities() []string { return a.capabilities }

func (a *remoteAgent) Process(ctx context.Context, taskID string, params map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eventType, _ := params["event_type"].(string)
	if eventType == "" {
		eventType = "dispatched"
	}

	out := map[string]any{
		"event_type": eventType,
		"message":    "Task handed off to remote agent '" + a.id + "'.",
	}
	if a.endpoint != "" {
		out["agent_endpoint"] = a.endpoint
	}
	for k, v := range params {
		if _, reserved := out[k]; !reserved {
			out[k] = v
		}
	}
	return out, nil
}

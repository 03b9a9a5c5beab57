package orchestrator

import (
	"context"
	"fmt"

	"github.com/meshworks/taskmesh/errors"
	"github.com/meshworks/taskmesh/task"
)

// Stage names, in pipeline order.
const (
	StageStartTask           = "start_task"
	StageProcessRequest      = "process_request"
	StageDispatchToAgent     = "dispatch_to_agent"
	StageHandleAgentResponse = "handle_agent_response"
	StageEndTask             = "end_task"
)

// Event types a handler response may carry. The status transition rule in
// handle_agent_response keys on these.
const (
	EventCompleted = "completed_successfully"
	EventFailed    = "failed"
	EventError     = "error"
)

// run carries one pipeline pass: the task state plus the input flowing
// from stage to stage. Stages mutate the run in place; failures are
// folded into the state, never returned.
type run struct {
	state *task.State
	input map[string]any
}

// stage is one named step of the fixed pipeline.
type stage struct {
	name string
	fn   func(ctx context.Context, r *run)
}

// pipeline returns the fixed stage order. The graph is linear with a
// single suspension point (the handler call inside dispatch_to_agent),
// so no general graph machinery is needed.
func (e *Engine) pipeline() []stage {
	return []stage{
		{StageStartTask, e.startTask},
		{StageProcessRequest, e.processRequest},
		{StageDispatchToAgent, e.dispatchToAgent},
		{StageHandleAgentResponse, e.handleAgentResponse},
		{StageEndTask, e.endTask},
	}
}

// startTask folds any newly supplied target agent or parameters into the
// record and moves the task to in_progress.
func (e *Engine) startTask(ctx context.Context, r *run) {
	r.state.MergeInput(r.input)

	r.state.CurrentStep = StageStartTask
	r.state.Status = task.StatusInProgress
	r.state.AppendHistory(StageStartTask, "Task started.", nil)
}

// processRequest summarizes the requested action in the audit trail.
func (e *Engine) processRequest(ctx context.Context, r *run) {
	r.state.CurrentStep = StageProcessRequest

	actionType, _ := r.input["action_type"].(string)
	targetAgent, _ := r.input["target_agent_id"].(string)
	if targetAgent == "" {
		targetAgent = r.state.TargetAgentID
	}

	msg := "Processing request."
	if actionType != "" {
		msg = fmt.Sprintf("Processing request: action %q for agent %q.", actionType, targetAgent)
	}

	var data map[string]any
	if len(r.input) > 0 {
		data = map[string]any{"input": r.input}
	}
	r.state.AppendHistory(StageProcessRequest, msg, data)
}

// dispatchToAgent resolves the target handler and invokes it. This is the
// pipeline's only suspension point: the call blocks until the handler
// returns. Both failure modes, no handler and handler error, are
// recorded in state and the pipeline continues so downstream
// bookkeeping stays consistent.
func (e *Engine) dispatchToAgent(ctx context.Context, r *run) {
	r.state.CurrentStep = StageDispatchToAgent

	targetAgent := r.state.TargetAgentID
	if targetAgent == "" {
		targetAgent = "unknown_agent"
	}

	r.state.AppendHistory(StageDispatchToAgent,
		fmt.Sprintf("Attempting to dispatch task to agent: %s", targetAgent),
		map[string]any{"agent_id": targetAgent})

	handler, err := e.registry.Get(targetAgent)
	if err != nil {
		e.recordDispatchFailure(r, targetAgent,
			errors.AgentNotFound(targetAgent,
				errors.WithTaskID(r.state.TaskID),
				errors.WithStep(StageDispatchToAgent)))
		return
	}

	params := mergedParams(r.state)
	result, err := handler.Process(ctx, r.state.TaskID, params)
	if err != nil {
		e.recordDispatchFailure(r, targetAgent,
			errors.AgentExecution(targetAgent, err,
				errors.WithTaskID(r.state.TaskID),
				errors.WithStep(StageDispatchToAgent)))
		return
	}

	r.state.AgentResponses[targetAgent] = task.AgentResponse{
		Status:  "completed",
		Details: result,
	}
	r.state.AppendHistory(StageDispatchToAgent, "Received response from agent.", nil)
	e.log.DispatchComplete(r.state.TaskID, targetAgent)

	// The handler's response becomes the input for handle_agent_response.
	next := make(map[string]any, len(result)+1)
	for k, v := range result {
		next[k] = v
	}
	if _, ok := next["source_agent_id"]; !ok {
		next["source_agent_id"] = targetAgent
	}
	r.input = next
}

// recordDispatchFailure folds a dispatch error into state: sticky failed
// status, an errors entry, a replaced agent response, and an audit trail
// entry. The error input feeds handle_agent_response.
func (e *Engine) recordDispatchFailure(r *run, agentID string, terr *errors.Error) {
	r.state.MarkFailed()
	r.state.RecordError(terr.Code().String(), terr.Error(), StageDispatchToAgent)
	r.state.AppendHistory("dispatch_to_agent_error", terr.Error(),
		map[string]any{"agent_id": agentID, "code": terr.Code().String()})
	r.state.AgentResponses[agentID] = task.AgentResponse{
		Status:    "failed",
		EventType: EventError,
		Details:   map[string]any{"error": terr.Error(), "code": terr.Code().String()},
	}
	e.log.DispatchError(r.state.TaskID, agentID, terr)

	r.input = map[string]any{
		"error":           terr.Error(),
		"code":            terr.Code().String(),
		"event_type":      EventError,
		"source_agent_id": agentID,
	}
}

// handleAgentResponse classifies the response recorded by the dispatch
// stage. It only reads and classifies; it never fails.
func (e *Engine) handleAgentResponse(ctx context.Context, r *run) {
	r.state.CurrentStep = StageHandleAgentResponse

	sourceAgent, _ := r.input["source_agent_id"].(string)
	if sourceAgent == "" {
		sourceAgent = r.state.TargetAgentID
	}
	if sourceAgent == "" {
		sourceAgent = "unknown_agent"
	}

	eventType, _ := r.input["event_type"].(string)
	if eventType == "" {
		eventType = "unknown_event"
	}

	responseStatus := "processed"
	switch eventType {
	case EventCompleted:
		responseStatus = "completed"
		r.state.MarkCompleted()
	case EventFailed, EventError:
		responseStatus = "failed"
		r.state.MarkFailed()
	default:
		// More work expected. A failed task stays failed.
		if r.state.Status != task.StatusFailed {
			r.state.Status = task.StatusInProgress
		}
	}

	r.state.AgentResponses[sourceAgent] = task.AgentResponse{
		Status:    responseStatus,
		EventType: eventType,
		Details:   r.input,
	}
	r.state.AppendHistory(StageHandleAgentResponse, "Handled response from agent.",
		map[string]any{"agent_id": sourceAgent, "event_type": eventType})
}

// endTask closes out the run. Completion never overwrites failure.
func (e *Engine) endTask(ctx context.Context, r *run) {
	r.state.CurrentStep = StageEndTask
	r.state.MarkCompleted()
	r.state.AppendHistory(StageEndTask, "Task processing finished.", nil)
}

// mergedParams builds the parameter map passed to a handler: the task's
// merged initial parameters, copied so handlers cannot mutate state.
func mergedParams(s *task.State) map[string]any {
	params := make(map[string]any, len(s.InitialParameters))
	for k, v := range s.InitialParameters {
		params[k] = v
	}
	return params
}

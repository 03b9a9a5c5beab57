package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	taskerrors "github.com/meshworks/taskmesh/errors"
	"github.com/meshworks/taskmesh/prompts"
	"github.com/meshworks/taskmesh/registry"
	"github.com/meshworks/taskmesh/task"
)

type registerAgentRequest struct {
	AgentID      string   `json:"agent_id" binding:"required"`
	Capabilities []string `json:"capabilities"`
	Endpoint     string   `json:"endpoint"`
}

type actionRequest struct {
	TaskID        string         `json:"task_id"`
	TargetAgentID string         `json:"target_agent_id" binding:"required"`
	ActionType    string         `json:"action_type"`
	Parameters    map[string]any `json:"parameters"`
}

type postEventRequest struct {
	TaskID    string         `json:"task_id" binding:"required"`
	EventType string         `json:"event_type" binding:"required"`
	EventData map[string]any `json:"event_data"`
}

type executeAgentRequest struct {
	TaskID     string         `json:"task_id" binding:"required"`
	AgentID    string         `json:"agent_id" binding:"required"`
	Parameters map[string]any `json:"parameters"`
}

type toolExecutionRequest struct {
	TargetAgentID string         `json:"target_agent_id" binding:"required"`
	ToolName      string         `json:"tool_name" binding:"required"`
	Parameters    map[string]any `json:"parameters"`
}

type promptRegistrationRequest struct {
	Name              string   `json:"name" binding:"required"`
	Text              string   `json:"text" binding:"required"`
	RequiredVariables []string `json:"required_variables"`
}

type promptResolutionRequest struct {
	Name      string            `json:"name" binding:"required"`
	Variables map[string]string `json:"variables"`
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"detail": message})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "active",
		"version":        Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) registerAgent(c *gin.Context) {
	var req registerAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	agent := newRemoteAgent(req.AgentID, req.Capabilities, req.Endpoint)
	if err := s.registry.Register(agent); err != nil {
		switch {
		case errors.Is(err, registry.ErrDuplicateID):
			fail(c, http.StatusConflict, "agent with ID '"+req.AgentID+"' already registered")
		case errors.Is(err, registry.ErrInvalidID):
			fail(c, http.StatusBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.log.AgentRegistered(req.AgentID, req.Capabilities)
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Agent registered successfully",
		"agent_id": req.AgentID,
	})
}

func (s *Server) discoverAgents(c *gin.Context) {
	infos, err := s.registry.List()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if capability := c.Query("capability"); capability != "" {
		infos, err = s.registry.FindByCapability(capability)
		if err != nil {
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"agents": infos})
}

// requestAction initializes a task for the target agent and runs one
// pipeline pass. Processing is asynchronous from the caller's view;
// the response acknowledges intake and carries the task ID to poll.
func (s *Server) requestAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.registry.Get(req.TargetAgentID); err != nil {
		fail(c, http.StatusNotFound, "target agent with ID '"+req.TargetAgentID+"' not found")
		return
	}

	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	ctx := c.Request.Context()
	if _, err := s.engine.Initialize(ctx, taskID, req.TargetAgentID, req.Parameters); err != nil {
		if taskerrors.Is(err, taskerrors.ErrCodeInvalidInput) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	input := map[string]any{}
	if req.ActionType != "" {
		input["action_type"] = req.ActionType
	}
	state, err := s.engine.Advance(ctx, taskID, input)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Action request received and task processing initiated.",
		"task_id": taskID,
		"status":  state.Status,
	})
}

// postEvent feeds an agent's follow-up event into the task's next
// pipeline pass. The event payload travels through the task parameters
// so the dispatched handler sees it.
func (s *Server) postEvent(c *gin.Context) {
	var req postEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	params := make(map[string]any, len(req.EventData)+1)
	for k, v := range req.EventData {
		params[k] = v
	}
	params["event_type"] = req.EventType

	state, err := s.engine.Advance(c.Request.Context(), req.TaskID, map[string]any{
		"parameters": params,
	})
	if err != nil {
		switch {
		case taskerrors.Is(err, taskerrors.ErrCodeTaskNotFound):
			fail(c, http.StatusNotFound, "task with ID '"+req.TaskID+"' not found")
		case taskerrors.Is(err, taskerrors.ErrCodeInvalidInput):
			fail(c, http.StatusBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Event posted successfully",
		"event_id": uuid.NewString(),
		"task_id":  req.TaskID,
		"status":   state.Status,
	})
}

// toolchainIDs are addressable through execute_agent without a registry
// entry; calls to them are acknowledged without running a task.
var toolchainIDs = map[string]bool{
	"muse":            true,
	"retro_diffusion": true,
	"unity":           true,
}

// executeAgent is the synchronous entry point: it runs a full pipeline
// pass for the named agent and reports the outcome in the response
// instead of handing back a task ID to poll.
func (s *Server) executeAgent(c *gin.Context) {
	var req executeAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.registry.Get(req.AgentID); err != nil {
		if toolchainIDs[req.AgentID] {
			c.JSON(http.StatusOK, gin.H{
				"task_id": req.TaskID,
				"status":  "success",
				"result":  gin.H{"message": "Toolchain '" + req.AgentID + "' call acknowledged."},
			})
			return
		}
		fail(c, http.StatusNotFound, "agent or toolchain with ID '"+req.AgentID+"' not found")
		return
	}

	ctx := c.Request.Context()
	if _, err := s.engine.Initialize(ctx, req.TaskID, req.AgentID, req.Parameters); err != nil {
		if taskerrors.Is(err, taskerrors.ErrCodeInvalidInput) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	state, err := s.engine.Advance(ctx, req.TaskID, map[string]any{
		"action_type": "execute_agent_request",
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	if state.Status == task.StatusCompleted {
		c.JSON(http.StatusOK, gin.H{
			"task_id": req.TaskID,
			"status":  "success",
			"result": gin.H{
				"message":     "Agent '" + req.AgentID + "' executed successfully.",
				"final_state": state,
			},
		})
		return
	}

	message := "Agent '" + req.AgentID + "' execution initiated, but task status is '" +
		state.Status.String() + "'. Check /task_status/" + req.TaskID + " for details."
	status := "processing"
	if state.Status == task.StatusFailed {
		status = "failed"
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id": req.TaskID,
		"status":  status,
		"result":  gin.H{"message": message},
		"error":   gin.H{"code": "TASK_IN_PROGRESS_OR_FAILED", "message": message},
	})
}

// executeToolOnAgent starts a task that asks an agent to run a named
// tool. The generated execution ID doubles as the task ID, so the
// caller can poll task_status with it.
func (s *Server) executeToolOnAgent(c *gin.Context) {
	var req toolExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.registry.Get(req.TargetAgentID); err != nil {
		fail(c, http.StatusNotFound, "target agent with ID '"+req.TargetAgentID+"' not found")
		return
	}

	executionID := uuid.NewString()
	params := make(map[string]any, len(req.Parameters)+2)
	for k, v := range req.Parameters {
		params[k] = v
	}
	params["tool_name"] = req.ToolName
	params["original_execution_id"] = executionID

	ctx := c.Request.Context()
	if _, err := s.engine.Initialize(ctx, executionID, req.TargetAgentID, params); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := s.engine.Advance(ctx, executionID, map[string]any{
		"action_type": "execute_tool_request",
	}); err != nil {
		// The request is acknowledged regardless; the task record
		// carries the failure for task_status to report.
		s.log.Warn("tool execution pass failed", map[string]interface{}{
			"execution_id": executionID, "error": err.Error(),
		})
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":      "Tool execution request received and acknowledged. Processing is asynchronous.",
		"execution_id": executionID,
	})
}

func (s *Server) getTaskStatus(c *gin.Context) {
	taskID := c.Param("task_id")
	state, err := s.engine.Read(c.Request.Context(), taskID)
	if err != nil {
		if taskerrors.Is(err, taskerrors.ErrCodeTaskNotFound) {
			fail(c, http.StatusNotFound, "task with ID '"+taskID+"' not found")
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) listTasks(c *gin.Context) {
	ids, err := s.engine.Tasks()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": ids, "count": len(ids)})
}

func (s *Server) registerPrompt(c *gin.Context) {
	var req promptRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.prompts.Register(req.Name, req.Text, req.RequiredVariables); err != nil {
		switch {
		case errors.Is(err, prompts.ErrDuplicate):
			fail(c, http.StatusConflict, "prompt '"+req.Name+"' already registered")
		case errors.Is(err, prompts.ErrInvalidName):
			fail(c, http.StatusBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Prompt registered successfully",
		"name":    req.Name,
	})
}

func (s *Server) listPrompts(c *gin.Context) {
	templates, err := s.prompts.List()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompts": templates})
}

func (s *Server) resolvePrompt(c *gin.Context) {
	var req promptResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	resolved, err := s.prompts.Resolve(req.Name, req.Variables)
	if err != nil {
		var missing *prompts.MissingVariablesError
		switch {
		case errors.Is(err, prompts.ErrNotFound):
			fail(c, http.StatusNotFound, "prompt '"+req.Name+"' not found")
		case errors.As(err, &missing):
			c.JSON(http.StatusBadRequest, gin.H{
				"detail":  err.Error(),
				"missing": missing.Missing,
			})
		default:
			fail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":     req.Name,
		"resolved": resolved,
	})
}

package toolchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Request types handled by the Unity bridge.
const (
	RequestExecuteScript   = "execute_script"
	RequestManipulateScene = "manipulate_scene"
)

// UnityBridge sends editor commands to an external Unity control
// server over HTTP. With no BaseURL configured it answers locally with
// mock results, which keeps the rest of the pipeline runnable without
// an editor attached.
type UnityBridge struct {
	worker  *worker
	baseURL string
	client  *http.Client
}

// UnityConfig configures the bridge.
type UnityConfig struct {
	// BaseURL of the Unity control server, e.g. http://localhost:8080.
	// Empty enables mock mode.
	BaseURL string

	// QueueSize bounds pending requests.
	QueueSize int

	// RequestTimeout bounds one HTTP round trip.
	RequestTimeout time.Duration
}

// NewUnityBridge creates the bridge.
func NewUnityBridge(cfg UnityConfig) *UnityBridge {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	b := &UnityBridge{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
	b.worker = newWorker("unity", cfg.QueueSize, b.handle)
	return b
}

// Name identifies the bridge.
func (b *UnityBridge) Name() string { return "unity" }

// Supports reports whether the bridge handles a request type.
func (b *UnityBridge) Supports(requestType string) bool {
	return requestType == RequestExecuteScript || requestType == RequestManipulateScene
}

// Submit queues a request and blocks until its result is ready.
func (b *UnityBridge) Submit(ctx context.Context, requestType string, payload map[string]any, agentID string) (map[string]any, error) {
	if !b.Supports(requestType) {
		return nil, fmt.Errorf("%w: %s for unity", ErrUnsupported, requestType)
	}
	return b.worker.submit(ctx, requestType, payload, agentID)
}

// Close stops the bridge.
func (b *UnityBridge) Close() error { return b.worker.close() }

// ExecuteScript runs a C# script in the editor.
func (b *UnityBridge) ExecuteScript(ctx context.Context, scriptContent, scriptPath, agentID string) (map[string]any, error) {
	return b.Submit(ctx, RequestExecuteScript, map[string]any{
		"script_content": scriptContent,
		"script_path":    scriptPath,
	}, agentID)
}

// ManipulateScene applies a scene operation to a target object.
func (b *UnityBridge) ManipulateScene(ctx context.Context, operation, targetObject string, parameters map[string]any, agentID string) (map[string]any, error) {
	return b.Submit(ctx, RequestManipulateScene, map[string]any{
		"operation":     operation,
		"target_object": targetObject,
		"parameters":    parameters,
	}, agentID)
}

func (b *UnityBridge) handle(req Request) (map[string]any, error) {
	if b.baseURL == "" {
		return b.mockResult(req), nil
	}

	body, err := json.Marshal(map[string]any{
		"tool_name": req.Type,
		"arguments": req.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, b.baseURL+"/tools/call", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("unity command %s: %w", req.Type, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read unity response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unity command %s: status %d: %s", req.Type, resp.StatusCode, data)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode unity response: %w", err)
	}
	return result, nil
}

func (b *UnityBridge) mockResult(req Request) map[string]any {
	result := map[string]any{
		"request_id": req.ID,
		"status":     "success_mock",
		"command":    req.Type,
	}
	switch req.Type {
	case RequestExecuteScript:
		result["script_path"] = payloadString(req.Payload, "script_path", "Assets/Scripts/Generated.cs")
		result["output"] = "Script compiled and executed in mock editor."
	case RequestManipulateScene:
		result["operation"] = payloadString(req.Payload, "operation", "create_object")
		result["target_object"] = payloadString(req.Payload, "target_object", "")
	}
	return result
}

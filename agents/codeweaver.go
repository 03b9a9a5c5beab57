package agents

import (
	"context"
	"fmt"

	"github.com/meshworks/taskmesh/llm"
	"github.com/meshworks/taskmesh/logging"
	"github.com/meshworks/taskmesh/prompts"
	"github.com/meshworks/taskmesh/toolchain"
)

const scriptGenerationPrompt = `System: You are a senior gameplay programmer.
Write a complete, idiomatic C# MonoBehaviour script. Output only the code.

Script name: {script_name}
Requirements: {description}`

// CodeWeaver generates gameplay scripts and installs them in the
// editor. When the task already carries script content it is installed
// as-is; otherwise the completion backend writes it from the task's
// description.
type CodeWeaver struct {
	id       string
	provider llm.Provider
	registry *prompts.Registry
	unity    *toolchain.UnityBridge
	log      *logging.Logger
}

// CodeWeaverConfig wires the code weaver's collaborators. Unity is
// required; Provider is optional and only needed for tasks that omit
// script_content.
type CodeWeaverConfig struct {
	ID       string
	Provider llm.Provider
	Prompts  *prompts.Registry
	Unity    *toolchain.UnityBridge
	Logger   *logging.Logger
}

func NewCodeWeaver(cfg CodeWeaverConfig) (*CodeWeaver, error) {
	if cfg.Unity == nil {
		return nil, fmt.Errorf("code weaver requires the unity bridge")
	}
	if cfg.ID == "" {
		cfg.ID = "code_weaver"
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default().WithComponent("code_weaver")
	}
	if err := cfg.Prompts.Replace("script_generation", scriptGenerationPrompt,
		[]string{"script_name"}); err != nil {
		return nil, fmt.Errorf("register prompt script_generation: %w", err)
	}
	return &CodeWeaver{
		id:       cfg.ID,
		provider: cfg.Provider,
		registry: cfg.Prompts,
		unity:    cfg.Unity,
		log:      cfg.Logger,
	}, nil
}

func (a *CodeWeaver) ID() string { return a.id }

func (a *CodeWeaver) Capabilities() []string {
	return []string{"script_generation", "game_logic_implementation", "ui_scripting"}
}

func (a *CodeWeaver) Process(ctx context.Context, taskID string, params map[string]any) (map[string]any, error) {
	taskType := stringParam(params, "task_type", "generate_script")
	if taskType != "generate_script" && taskType != "modify_script" {
		return failure(fmt.Sprintf("unsupported task type %q", taskType)), nil
	}

	scriptName := stringParam(params, "script_name", "")
	if scriptName == "" {
		return failure("script_name is required for script tasks"), nil
	}

	content := stringParam(params, "script_content", "")
	generated := false
	if content == "" {
		if a.provider == nil {
			return failure("script_content missing and no completion provider configured"), nil
		}
		var err error
		content, err = a.generateScript(ctx, scriptName, anyToString(params["description"]))
		if err != nil {
			return nil, err
		}
		generated = true
	}

	scriptPath := stringParam(params, "script_path", "Assets/Scripts/"+scriptName+".cs")
	response, err := a.unity.ExecuteScript(ctx, content, scriptPath, a.id)
	if err != nil {
		return nil, fmt.Errorf("install script %s: %w", scriptName, err)
	}

	a.log.Debug("script installed", map[string]interface{}{
		"task_id": taskID, "script": scriptName, "generated": generated,
	})
	return success(map[string]any{
		"script_name":    scriptName,
		"script_path":    scriptPath,
		"generated":      generated,
		"unity_response": response,
	}), nil
}

func (a *CodeWeaver) generateScript(ctx context.Context, name, description string) (string, error) {
	resolved, err := a.registry.Resolve("script_generation", map[string]string{
		"script_name": name,
		"description": description,
	})
	if err != nil {
		return "", fmt.Errorf("resolve prompt script_generation: %w", err)
	}
	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{{Role: "user", Content: resolved}},
	})
	if err != nil {
		return "", fmt.Errorf("generate script %s: %w", name, err)
	}
	return resp.Content, nil
}

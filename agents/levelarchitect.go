package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/meshworks/taskmesh/llm"
	"github.com/meshworks/taskmesh/logging"
	"github.com/meshworks/taskmesh/prompts"
	"github.com/meshworks/taskmesh/toolchain"
)

// Prompt templates the level architect registers on construction.
const (
	levelGenerationPrompt = `System: You are a virtual environment architect specializing in game spaces.
- Maintain architectural coherence across all scene elements
- Generate layouts optimized for retro pixel art pipelines

User Input:
{
  "task_type": "level_generation_initial",
  "level_type": "{level_type}",
  "genre": "{genre}",
  "theme": "{theme}",
  "features": "{features}",
  "difficulty": "{difficulty}"
}`

	levelStyleAdaptationPrompt = `System: You are a virtual environment architect.
Adapt the following level data to a new style.

User Input:
{
  "task_type": "level_style_adaptation",
  "level_data": "{level_data}",
  "new_style": "{new_style}",
  "style_elements": "{style_elements}"
}`

	levelConstraintCheckPrompt = `System: You are a virtual environment architect.
Review the following level design and ensure it meets the specified constraints.

User Input:
{
  "task_type": "level_constraint_check",
  "level_data": "{level_data}",
  "constraints": "{constraints}"
}`
)

// LevelArchitect plans level layouts. It resolves a task-type specific
// prompt, asks the completion backend for a design, derives a room
// structure from the result, and optionally pushes the structure into
// the editor through the unity bridge and asks the muse bridge for a
// scene concept.
type LevelArchitect struct {
	id       string
	provider llm.Provider
	registry *prompts.Registry
	muse     *toolchain.MuseBridge
	unity    *toolchain.UnityBridge
	log      *logging.Logger
}

// LevelArchitectConfig wires the level architect's collaborators.
// Provider is required; Muse and Unity are optional and skipped when
// nil. A nil Prompts gets a private registry.
type LevelArchitectConfig struct {
	ID       string
	Provider llm.Provider
	Prompts  *prompts.Registry
	Muse     *toolchain.MuseBridge
	Unity    *toolchain.UnityBridge
	Logger   *logging.Logger
}

// NewLevelArchitect creates the handler and registers its prompt
// templates.
func NewLevelArchitect(cfg LevelArchitectConfig) (*LevelArchitect, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("level architect requires a completion provider")
	}
	if cfg.ID == "" {
		cfg.ID = "level_architect"
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default().WithComponent("level_architect")
	}

	templates := []struct {
		name     string
		text     string
		required []string
	}{
		{"level_generation_initial", levelGenerationPrompt,
			[]string{"level_type", "theme", "difficulty"}},
		{"level_style_adaptation", levelStyleAdaptationPrompt,
			[]string{"level_data", "new_style"}},
		{"level_constraint_check", levelConstraintCheckPrompt,
			[]string{"level_data", "constraints"}},
	}
	for _, t := range templates {
		if err := cfg.Prompts.Replace(t.name, t.text, t.required); err != nil {
			return nil, fmt.Errorf("register prompt %s: %w", t.name, err)
		}
	}

	return &LevelArchitect{
		id:       cfg.ID,
		provider: cfg.Provider,
		registry: cfg.Prompts,
		muse:     cfg.Muse,
		unity:    cfg.Unity,
		log:      cfg.Logger,
	}, nil
}

func (a *LevelArchitect) ID() string { return a.id }

func (a *LevelArchitect) Capabilities() []string {
	return []string{"level_design", "procedural_generation_guidance"}
}

func (a *LevelArchitect) Process(ctx context.Context, taskID string, params map[string]any) (map[string]any, error) {
	taskType := stringParam(params, "task_type", "level_generation_initial")

	switch taskType {
	case "level_generation_initial":
		return a.generateInitial(ctx, taskID, params)
	case "level_style_adaptation":
		return a.adaptStyle(ctx, taskID, params)
	case "level_constraint_check":
		return a.checkConstraints(ctx, taskID, params)
	default:
		return failure(fmt.Sprintf("unsupported task type %q", taskType)), nil
	}
}

func (a *LevelArchitect) generateInitial(ctx context.Context, taskID string, params map[string]any) (map[string]any, error) {
	levelType := stringParam(params, "level_type", "dungeon")
	theme := stringParam(params, "theme", "generic")
	vars := map[string]string{
		"level_type": levelType,
		"genre":      stringParam(params, "genre", "adventure"),
		"theme":      theme,
		"features":   anyToString(params["features"]),
		"difficulty": stringParam(params, "difficulty", "medium"),
	}

	design, err := a.complete(ctx, "level_generation_initial", vars)
	if err != nil {
		return nil, err
	}

	structure := a.buildStructure(levelType, theme, params)
	structure["design_notes"] = design

	if a.muse != nil {
		concept, err := a.muse.SceneConcept(ctx, design,
			stringParam(params, "mood", theme),
			stringParam(params, "lighting", "ambient"), a.id)
		if err != nil {
			return nil, fmt.Errorf("scene concept: %w", err)
		}
		structure["scene_concept"] = concept
	}

	if a.unity != nil {
		placement, err := a.placeInScene(ctx, structure)
		if err != nil {
			return nil, err
		}
		structure["scene_placement"] = placement
	}

	a.log.Debug("level generated", map[string]interface{}{
		"task_id": taskID, "level_type": levelType, "theme": theme,
	})
	return success(map[string]any{"level_structure": structure}), nil
}

func (a *LevelArchitect) adaptStyle(ctx context.Context, taskID string, params map[string]any) (map[string]any, error) {
	levelData := anyToString(params["level_data"])
	newStyle := stringParam(params, "new_style", "")
	if levelData == "" || newStyle == "" {
		return failure("level_data and new_style are required for style adaptation"), nil
	}

	adapted, err := a.complete(ctx, "level_style_adaptation", map[string]string{
		"level_data":     levelData,
		"new_style":      newStyle,
		"style_elements": anyToString(params["style_elements"]),
	})
	if err != nil {
		return nil, err
	}

	return success(map[string]any{
		"adapted_style":      newStyle,
		"adapted_level_data": adapted,
	}), nil
}

func (a *LevelArchitect) checkConstraints(ctx context.Context, taskID string, params map[string]any) (map[string]any, error) {
	levelData := anyToString(params["level_data"])
	constraints := anyToString(params["constraints"])
	if levelData == "" || constraints == "" {
		return failure("level_data and constraints are required for a constraint check"), nil
	}

	report, err := a.complete(ctx, "level_constraint_check", map[string]string{
		"level_data":  levelData,
		"constraints": constraints,
	})
	if err != nil {
		return nil, err
	}

	return success(map[string]any{
		"constraints_checked": constraints,
		"report":              report,
	}), nil
}

// complete resolves a registered template and runs it through the
// completion backend.
func (a *LevelArchitect) complete(ctx context.Context, promptName string, vars map[string]string) (string, error) {
	resolved, err := a.registry.Resolve(promptName, vars)
	if err != nil {
		return "", fmt.Errorf("resolve prompt %s: %w", promptName, err)
	}
	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{{Role: "user", Content: resolved}},
	})
	if err != nil {
		return "", fmt.Errorf("completion for %s: %w", promptName, err)
	}
	return resp.Content, nil
}

// buildStructure derives a coarse room graph from the task parameters.
// The completion output stays attached as free-form design notes; the
// graph itself is deterministic so downstream scene placement is
// reproducible.
func (a *LevelArchitect) buildStructure(levelType, theme string, params map[string]any) map[string]any {
	rooms := []map[string]any{
		{"id": "room1", "type": "start", "description": "Starting room"},
		{"id": "room2", "type": "corridor", "description": "A narrow passage"},
	}
	connections := [][2]string{{"room1", "room2"}}

	if levelType == "dungeon" {
		rooms = append(rooms, map[string]any{
			"id": "room3", "type": "boss_chamber", "description": "The final challenge awaits",
		})
		connections = append(connections, [2]string{"room2", "room3"})
	}
	if features := anyToString(params["features"]); strings.Contains(features, "secret_room") {
		rooms = append(rooms, map[string]any{
			"id": "secret_room_1", "type": "secret", "description": "A hidden secret room",
		})
		connections = append(connections, [2]string{"room1", "secret_room_1"})
	}

	return map[string]any{
		"level_type":  levelType,
		"theme":       theme,
		"rooms":       rooms,
		"connections": connections,
	}
}

// placeInScene sends the structure to the editor: one ground plane,
// one placeholder object per room.
func (a *LevelArchitect) placeInScene(ctx context.Context, structure map[string]any) (map[string]any, error) {
	if _, err := a.unity.ManipulateScene(ctx, "create_object", "Plane", map[string]any{
		"position": map[string]any{"x": 0, "y": 0, "z": 0},
		"scale":    map[string]any{"x": 10, "y": 1, "z": 10},
	}, a.id); err != nil {
		return nil, fmt.Errorf("create ground plane: %w", err)
	}

	rooms, _ := structure["rooms"].([]map[string]any)
	placed := 0
	for i, room := range rooms {
		name := fmt.Sprintf("RoomObject_%v", room["id"])
		if _, err := a.unity.ManipulateScene(ctx, "create_object", "Cube", map[string]any{
			"name":     name,
			"position": map[string]any{"x": i * 5, "y": 0.5, "z": 0},
			"scale":    map[string]any{"x": 4, "y": 2, "z": 4},
		}, a.id); err != nil {
			return nil, fmt.Errorf("create room object %s: %w", name, err)
		}
		placed++
	}

	return map[string]any{"status": "success", "objects_placed": placed + 1}, nil
}

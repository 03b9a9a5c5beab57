package toolchain

import (
	"context"
	"fmt"
	"strings"
)

// Request types handled by the Muse bridge.
const (
	RequestSceneConcept    = "GENERATE_SCENE_CONCEPT"
	RequestMaterialConcept = "GENERATE_MATERIAL_CONCEPT"
	RequestAnimationAdvice = "GET_ANIMATION_ADVICE"
	RequestModelConcept    = "GENERATE_3D_MODEL_CONCEPT"
)

// MuseBridge answers design questions: scene and material concepts,
// animation advice, 3D model outlines. Responses are synthesized
// locally until a real Muse endpoint is wired in.
type MuseBridge struct {
	worker   *worker
	endpoint string
}

// MuseConfig configures the bridge.
type MuseConfig struct {
	// Endpoint of the concept service. Informational for now.
	Endpoint string

	// QueueSize bounds pending requests.
	QueueSize int
}

// NewMuseBridge creates the bridge.
func NewMuseBridge(cfg MuseConfig) *MuseBridge {
	b := &MuseBridge{endpoint: cfg.Endpoint}
	b.worker = newWorker("muse", cfg.QueueSize, b.handle)
	return b
}

// Name identifies the bridge.
func (b *MuseBridge) Name() string { return "muse" }

// Supports reports whether the bridge handles a request type.
func (b *MuseBridge) Supports(requestType string) bool {
	switch requestType {
	case RequestSceneConcept, RequestMaterialConcept, RequestAnimationAdvice, RequestModelConcept:
		return true
	}
	return false
}

// Submit queues a request and blocks until its result is ready.
func (b *MuseBridge) Submit(ctx context.Context, requestType string, payload map[string]any, agentID string) (map[string]any, error) {
	if !b.Supports(requestType) {
		return nil, fmt.Errorf("%w: %s for muse", ErrUnsupported, requestType)
	}
	return b.worker.submit(ctx, requestType, payload, agentID)
}

// Close stops the bridge.
func (b *MuseBridge) Close() error { return b.worker.close() }

// SceneConcept requests a scene design outline.
func (b *MuseBridge) SceneConcept(ctx context.Context, prompt, mood, lighting, agentID string) (map[string]any, error) {
	if mood == "" {
		mood = "neutral"
	}
	if lighting == "" {
		lighting = "daylight"
	}
	return b.Submit(ctx, RequestSceneConcept, map[string]any{
		"prompt":   prompt,
		"mood":     mood,
		"lighting": lighting,
	}, agentID)
}

// MaterialConcept requests a material design outline.
func (b *MuseBridge) MaterialConcept(ctx context.Context, prompt, agentID string) (map[string]any, error) {
	return b.Submit(ctx, RequestMaterialConcept, map[string]any{"prompt": prompt}, agentID)
}

// AnimationAdvice requests guidance for an animation problem.
func (b *MuseBridge) AnimationAdvice(ctx context.Context, query, agentID string) (map[string]any, error) {
	return b.Submit(ctx, RequestAnimationAdvice, map[string]any{"query": query}, agentID)
}

// ModelConcept requests a 3D model outline.
func (b *MuseBridge) ModelConcept(ctx context.Context, prompt, complexity, agentID string) (map[string]any, error) {
	if complexity == "" {
		complexity = "low_poly"
	}
	return b.Submit(ctx, RequestModelConcept, map[string]any{
		"prompt":     prompt,
		"complexity": complexity,
	}, agentID)
}

func (b *MuseBridge) handle(req Request) (map[string]any, error) {
	result := map[string]any{
		"request_id": req.ID,
		"status":     "success_mock",
	}

	switch req.Type {
	case RequestSceneConcept:
		prompt := payloadString(req.Payload, "prompt", "a generic scene")
		lighting := payloadString(req.Payload, "lighting", "daylight")
		result["concept_type"] = "scene"
		result["description"] = fmt.Sprintf("Conceptual scene based on: %q.", prompt)
		result["mood"] = payloadString(req.Payload, "mood", "neutral")
		result["elements_suggested"] = []string{"mock_tree_01", "mock_rock_02", "mock_lighting_" + lighting}
	case RequestMaterialConcept:
		prompt := payloadString(req.Payload, "prompt", "a generic material")
		result["concept_type"] = "material"
		result["description"] = fmt.Sprintf("Conceptual material for: %q.", prompt)
		result["base_color_idea"] = payloadString(req.Payload, "base_color", "#808080")
		result["texture_style_idea"] = payloadString(req.Payload, "texture_style", "smooth_metallic")
	case RequestAnimationAdvice:
		query := payloadString(req.Payload, "query", "a generic animation")
		result["advice_type"] = "animation"
		result["query"] = query
		result["suggestion"] = fmt.Sprintf("For %q, block out key poses first and refine timing on a second pass.", query)
		result["estimated_complexity"] = "medium"
	case RequestModelConcept:
		prompt := payloadString(req.Payload, "prompt", "a generic 3d model")
		complexity := payloadString(req.Payload, "complexity", "low_poly")
		result["concept_type"] = "3d_model"
		result["description"] = fmt.Sprintf("Conceptual 3D model for: %q (%s).", prompt, complexity)
		if strings.Contains(prompt, "simple") {
			result["suggested_primitives"] = []string{"cube", "sphere"}
		} else {
			result["suggested_primitives"] = []string{"custom_mesh_idea"}
		}
		result["estimated_polycount_category"] = complexity
	}

	return result, nil
}

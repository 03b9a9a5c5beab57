package agents

import (
	"context"
	"fmt"

	"github.com/meshworks/taskmesh/logging"
	"github.com/meshworks/taskmesh/toolchain"
)

// PixelForge generates 2D assets through the retro-diffusion bridge,
// sketches 3D model concepts through the muse bridge, and places
// finished assets in the editor through the unity bridge.
type PixelForge struct {
	id    string
	retro *toolchain.RetroDiffusionBridge
	muse  *toolchain.MuseBridge
	unity *toolchain.UnityBridge
	log   *logging.Logger
}

// PixelForgeConfig wires the asset bridges. Each bridge is optional;
// task types that need an absent bridge come back as failed results.
type PixelForgeConfig struct {
	ID     string
	Retro  *toolchain.RetroDiffusionBridge
	Muse   *toolchain.MuseBridge
	Unity  *toolchain.UnityBridge
	Logger *logging.Logger
}

func NewPixelForge(cfg PixelForgeConfig) *PixelForge {
	if cfg.ID == "" {
		cfg.ID = "pixel_forge"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default().WithComponent("pixel_forge")
	}
	return &PixelForge{
		id:    cfg.ID,
		retro: cfg.Retro,
		muse:  cfg.Muse,
		unity: cfg.Unity,
		log:   cfg.Logger,
	}
}

func (a *PixelForge) ID() string { return a.id }

func (a *PixelForge) Capabilities() []string {
	return []string{"asset_generation_2d", "asset_generation_3d_placeholder", "asset_placement"}
}

func (a *PixelForge) Process(ctx context.Context, taskID string, params map[string]any) (map[string]any, error) {
	taskType := stringParam(params, "task_type", "generate_image")

	switch taskType {
	case "generate_image":
		return a.generateImage(ctx, params)
	case "generate_texture":
		return a.generateTexture(ctx, params)
	case "generate_sprite_sheet":
		return a.generateSpriteSheet(ctx, params)
	case "model_concept":
		return a.modelConcept(ctx, params)
	case "place_asset":
		return a.placeAsset(ctx, params)
	default:
		return failure(fmt.Sprintf("unsupported task type %q", taskType)), nil
	}
}

func (a *PixelForge) generateImage(ctx context.Context, params map[string]any) (map[string]any, error) {
	if a.retro == nil {
		return failure("retro-diffusion bridge not available"), nil
	}
	prompt := stringParam(params, "description", "")
	if prompt == "" {
		return failure("description is required for image generation"), nil
	}
	result, err := a.retro.GenerateImage(ctx, prompt, stringParam(params, "resolution", ""), a.id)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	return success(result), nil
}

func (a *PixelForge) generateTexture(ctx context.Context, params map[string]any) (map[string]any, error) {
	if a.retro == nil {
		return failure("retro-diffusion bridge not available"), nil
	}
	prompt := stringParam(params, "description", "")
	if prompt == "" {
		return failure("description is required for texture generation"), nil
	}
	result, err := a.retro.GenerateTexture(ctx, prompt,
		stringParam(params, "resolution", ""), boolParam(params, "tileable", true), a.id)
	if err != nil {
		return nil, fmt.Errorf("generate texture: %w", err)
	}
	return success(result), nil
}

func (a *PixelForge) generateSpriteSheet(ctx context.Context, params map[string]any) (map[string]any, error) {
	if a.retro == nil {
		return failure("retro-diffusion bridge not available"), nil
	}
	prompt := stringParam(params, "description", "")
	if prompt == "" {
		return failure("description is required for sprite sheet generation"), nil
	}
	result, err := a.retro.GenerateSpriteSheet(ctx, prompt,
		stringParam(params, "sprite_size", ""), intParam(params, "num_frames", 0), a.id)
	if err != nil {
		return nil, fmt.Errorf("generate sprite sheet: %w", err)
	}
	return success(result), nil
}

func (a *PixelForge) modelConcept(ctx context.Context, params map[string]any) (map[string]any, error) {
	if a.muse == nil {
		return failure("muse bridge not available"), nil
	}
	prompt := stringParam(params, "description", "")
	if prompt == "" {
		return failure("description is required for a model concept"), nil
	}
	result, err := a.muse.ModelConcept(ctx, prompt, stringParam(params, "complexity", "simple"), a.id)
	if err != nil {
		return nil, fmt.Errorf("model concept: %w", err)
	}
	return success(result), nil
}

// placeAsset puts an existing asset into the editor scene.
func (a *PixelForge) placeAsset(ctx context.Context, params map[string]any) (map[string]any, error) {
	if a.unity == nil {
		return failure("unity bridge not available"), nil
	}
	target := stringParam(params, "target_object", "")
	position, hasPosition := params["position"].(map[string]any)
	if target == "" || !hasPosition {
		return failure("target_object and position are required for asset placement"), nil
	}

	sceneParams := map[string]any{"position": position}
	if rotation, ok := params["rotation"].(map[string]any); ok {
		sceneParams["rotation"] = rotation
	}
	if scale, ok := params["scale"].(map[string]any); ok {
		sceneParams["scale"] = scale
	}

	result, err := a.unity.ManipulateScene(ctx, "create_object", target, sceneParams, a.id)
	if err != nil {
		return nil, fmt.Errorf("place asset %s: %w", target, err)
	}
	return success(map[string]any{
		"placed_object":  target,
		"unity_response": result,
	}), nil
}

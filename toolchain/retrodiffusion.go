package toolchain

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Request types handled by the RetroDiffusion bridge.
const (
	RequestGenerateImage       = "GENERATE_IMAGE_ASSET"
	RequestGenerateTexture     = "GENERATE_TEXTURE_ASSET"
	RequestGenerateSpriteSheet = "GENERATE_SPRITE_SHEET"
)

// RetroDiffusionBridge produces 2D assets (images, textures, sprite
// sheets). Without a real diffusion backend it writes placeholder
// artifact files so downstream consumers have a concrete path to work
// with.
type RetroDiffusionBridge struct {
	worker    *worker
	outputDir string
}

// RetroDiffusionConfig configures the bridge.
type RetroDiffusionConfig struct {
	// OutputDir is where generated artifacts are written.
	OutputDir string

	// QueueSize bounds pending requests.
	QueueSize int
}

// NewRetroDiffusionBridge creates the bridge and its output directory.
func NewRetroDiffusionBridge(cfg RetroDiffusionConfig) (*RetroDiffusionBridge, error) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join("generated_assets", "retro_diffusion")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	b := &RetroDiffusionBridge{outputDir: cfg.OutputDir}
	b.worker = newWorker("retro_diffusion", cfg.QueueSize, b.handle)
	return b, nil
}

// Name identifies the bridge.
func (b *RetroDiffusionBridge) Name() string { return "retro_diffusion" }

// Supports reports whether the bridge handles a request type.
func (b *RetroDiffusionBridge) Supports(requestType string) bool {
	switch requestType {
	case RequestGenerateImage, RequestGenerateTexture, RequestGenerateSpriteSheet:
		return true
	}
	return false
}

// Submit queues a request and blocks until its result is ready.
func (b *RetroDiffusionBridge) Submit(ctx context.Context, requestType string, payload map[string]any, agentID string) (map[string]any, error) {
	if !b.Supports(requestType) {
		return nil, fmt.Errorf("%w: %s for retro_diffusion", ErrUnsupported, requestType)
	}
	return b.worker.submit(ctx, requestType, payload, agentID)
}

// Close stops the bridge.
func (b *RetroDiffusionBridge) Close() error { return b.worker.close() }

// GenerateImage requests a single image asset.
func (b *RetroDiffusionBridge) GenerateImage(ctx context.Context, prompt, resolution, agentID string) (map[string]any, error) {
	if resolution == "" {
		resolution = "512x512"
	}
	return b.Submit(ctx, RequestGenerateImage, map[string]any{
		"prompt":     prompt,
		"resolution": resolution,
	}, agentID)
}

// GenerateTexture requests a tileable texture asset.
func (b *RetroDiffusionBridge) GenerateTexture(ctx context.Context, prompt, resolution string, tileable bool, agentID string) (map[string]any, error) {
	if resolution == "" {
		resolution = "1024x1024"
	}
	return b.Submit(ctx, RequestGenerateTexture, map[string]any{
		"prompt":     prompt,
		"resolution": resolution,
		"tileable":   tileable,
	}, agentID)
}

// GenerateSpriteSheet requests an animation sprite sheet.
func (b *RetroDiffusionBridge) GenerateSpriteSheet(ctx context.Context, prompt, spriteSize string, numFrames int, agentID string) (map[string]any, error) {
	if spriteSize == "" {
		spriteSize = "64x64"
	}
	if numFrames <= 0 {
		numFrames = 8
	}
	return b.Submit(ctx, RequestGenerateSpriteSheet, map[string]any{
		"prompt":      prompt,
		"sprite_size": spriteSize,
		"num_frames":  numFrames,
	}, agentID)
}

func (b *RetroDiffusionBridge) handle(req Request) (map[string]any, error) {
	prompt, _ := req.Payload["prompt"].(string)
	if prompt == "" {
		prompt = "a generic 2D asset"
	}

	ext := ".png"
	if req.Type == RequestGenerateSpriteSheet {
		ext = "_spritesheet.png"
	}

	sum := md5.Sum([]byte(prompt))
	filename := fmt.Sprintf("%s_%s_%d%s",
		lowerType(req.Type), hex.EncodeToString(sum[:])[:8], time.Now().Unix(), ext)
	outputPath := filepath.Join(b.outputDir, filename)

	content := fmt.Sprintf("Mock content for %s from prompt: %s", req.Type, prompt)
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	result := map[string]any{
		"request_id": req.ID,
		"status":     "success_mock",
		"prompt":     prompt,
	}

	switch req.Type {
	case RequestGenerateImage:
		result["asset_type"] = "image"
		result["image_path"] = outputPath
		result["resolution"] = payloadString(req.Payload, "resolution", "512x512")
		result["format"] = "png"
	case RequestGenerateTexture:
		result["asset_type"] = "texture"
		result["texture_path"] = outputPath
		result["resolution"] = payloadString(req.Payload, "resolution", "1024x1024")
		if tileable, ok := req.Payload["tileable"].(bool); ok {
			result["tileable"] = tileable
		} else {
			result["tileable"] = true
		}
	case RequestGenerateSpriteSheet:
		result["asset_type"] = "sprite_sheet"
		result["sheet_path"] = outputPath
		result["sprite_size"] = payloadString(req.Payload, "sprite_size", "64x64")
		if frames, ok := req.Payload["num_frames"].(int); ok {
			result["num_frames"] = frames
		} else {
			result["num_frames"] = 8
		}
	}

	return result, nil
}

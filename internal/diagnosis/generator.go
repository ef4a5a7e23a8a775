package diagnosis

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/lox/pokerstyle/internal/game"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Content is the qualitative part of a diagnosis.
type Content struct {
	Axes       []game.Axis `json:"axes"`
	Advice     string      `json:"advice"`
	Strengths  []string    `json:"strengths"`
	Weaknesses []string    `json:"weaknesses"`
}

// Generator produces qualitative content for one player. Implementations are
// expected to be slow and unreliable; callers bound them with ctx.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, req Request) (Content, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, systemPrompt, userPrompt string, req Request) (Content, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, systemPrompt, userPrompt string, req Request) (Content, error) {
	return f(ctx, systemPrompt, userPrompt, req)
}

//go:embed schemas
var schemaFiles embed.FS

const contentSchemaURL = "https://pokerstyle.local/schemas/content.json"

var (
	contentSchemaOnce sync.Once
	contentSchema     *jsonschema.Schema
	contentSchemaErr  error
)

func loadContentSchema() (*jsonschema.Schema, error) {
	contentSchemaOnce.Do(func() {
		data, err := schemaFiles.ReadFile("schemas/content.json")
		if err != nil {
			contentSchemaErr = fmt.Errorf("failed to read content schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(contentSchemaURL, strings.NewReader(string(data))); err != nil {
			contentSchemaErr = fmt.Errorf("failed to add content schema: %w", err)
			return
		}
		contentSchema, contentSchemaErr = compiler.Compile(contentSchemaURL)
	})
	return contentSchema, contentSchemaErr
}

// ParseContent validates a raw generator answer against the content schema
// and returns it with axes in canonical order and canonical labels.
func ParseContent(data []byte) (Content, error) {
	schema, err := loadContentSchema()
	if err != nil {
		return Content{}, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Content{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Content{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var c Content
	if err := json.Unmarshal(data, &c); err != nil {
		return Content{}, fmt.Errorf("failed to decode content: %w", err)
	}
	return c.normalize()
}

// normalize orders axes as in Axes, fills labels and rejects duplicates.
func (c Content) normalize() (Content, error) {
	byKey := make(map[string]game.Axis, len(c.Axes))
	for _, a := range c.Axes {
		label, ok := axisLabel(a.Key)
		if !ok {
			return Content{}, fmt.Errorf("unknown axis %q", a.Key)
		}
		if _, dup := byKey[a.Key]; dup {
			return Content{}, fmt.Errorf("duplicate axis %q", a.Key)
		}
		if a.Score < 0 || a.Score > 100 {
			return Content{}, fmt.Errorf("axis %q score %d out of range", a.Key, a.Score)
		}
		a.Label = label
		byKey[a.Key] = a
	}
	if len(byKey) != len(Axes) {
		return Content{}, fmt.Errorf("expected %d axes, got %d", len(Axes), len(byKey))
	}

	axes := make([]game.Axis, 0, len(Axes))
	for _, def := range Axes {
		axes = append(axes, byKey[def.Key])
	}
	c.Axes = axes
	return c, nil
}

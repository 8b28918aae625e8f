// ABOUTME: Sample plugin generator for seeding the repository.
// ABOUTME: Uses OpenAI when an API key is configured and falls back to static plugins.

package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/2389/pluginadmin/internal/record"
	"github.com/2389/pluginadmin/internal/store"
	"github.com/2389/pluginadmin/internal/wire"
	"github.com/sashabaranov/go-openai"
)

// Generator creates sample plugins using OpenAI or falls back to static data.
type Generator struct {
	client *openai.Client
	useAI  bool
	model  string
}

// NewGenerator creates a generator. An empty apiKey selects static data.
func NewGenerator(apiKey, model string) *Generator {
	if apiKey == "" {
		log.Println("No OPENAI_API_KEY found, using static fallback data")
		return &Generator{model: model}
	}
	log.Printf("OpenAI API key found, using AI-generated plugins with model: %s", model)
	return NewGeneratorWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewGeneratorWithConfig creates an AI-backed generator with a custom client
// configuration, e.g. a different base URL.
func NewGeneratorWithConfig(cfg openai.ClientConfig, model string) *Generator {
	return &Generator{client: openai.NewClientWithConfig(cfg), useAI: true, model: model}
}

// Generate returns count sample plugins. AI output that fails validation is
// dropped; if nothing usable comes back the static set is used instead.
func (g *Generator) Generate(ctx context.Context, count int) []wire.Plugin {
	if count <= 0 {
		return nil
	}
	if !g.useAI {
		return generateStatic(count)
	}

	log.Printf("Generating %d plugins via AI...", count)
	plugins, err := g.generatePlugins(ctx, count)
	if err != nil {
		log.Printf("  ✗ Failed to generate plugins: %v", err)
		log.Print("AI generation incomplete, falling back to static data...")
		return generateStatic(count)
	}

	valid := make([]wire.Plugin, 0, len(plugins))
	for _, p := range plugins {
		p = stripIdentity(p)
		if err := record.ValidatePayload(p); err != nil {
			log.Printf("  Skipping generated plugin %q: %v", p.Name, err)
			continue
		}
		valid = append(valid, p)
		if len(valid) == count {
			break
		}
	}
	if len(valid) == 0 {
		log.Print("AI generation produced no valid plugins, falling back to static data...")
		return generateStatic(count)
	}
	log.Printf("  ✓ Generated %d plugins", len(valid))
	return valid
}

func (g *Generator) generatePlugins(ctx context.Context, count int) ([]wire.Plugin, error) {
	prompt := fmt.Sprintf(`Generate %d realistic plugin definitions for an internal tool platform. Each plugin wraps an HTTP service
(weather lookups, geocoding, currency conversion, ticket search, translation, etc).

Return as JSON array with objects containing: plugin_name (lowercase, unique, no spaces), plugin_url (http URL),
parameters (array of 1-5 objects with parameter_key, parameter_type ("string" or "integer"), is_mandatory (bool),
is_read_only (bool), and optionally default_value matching the type).
Parameter keys must be unique within a plugin.`, count)

	return callOpenAI[[]wire.Plugin](ctx, g.client, g.model, prompt)
}

func stripIdentity(p wire.Plugin) wire.Plugin {
	p.ID = nil
	params := make([]wire.Parameter, len(p.Parameters))
	for i, param := range p.Parameters {
		param.ID = nil
		params[i] = param
	}
	p.Parameters = params
	return p
}

func callOpenAI[T any](ctx context.Context, client *openai.Client, model, prompt string) (T, error) {
	var result T

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a data generator. Always respond with valid JSON only, no markdown or explanation.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return result, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return result, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	if err := wire.Decode(strings.NewReader(content), &result); err != nil {
		return result, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return result, nil
}

// Creator persists one plugin. *store.Store satisfies it.
type Creator interface {
	CreatePlugin(ctx context.Context, p wire.Plugin) (wire.Plugin, error)
}

// Result summarizes a seeding run.
type Result struct {
	Created int
	Skipped int
}

// Seed creates every plugin through c. Plugins whose name is already taken
// are skipped; any other failure stops the run.
func Seed(ctx context.Context, c Creator, plugins []wire.Plugin) (Result, error) {
	var res Result
	for _, p := range plugins {
		if _, err := c.CreatePlugin(ctx, p); err != nil {
			if errors.Is(err, store.ErrConflict) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("seed %s: %w", p.Name, err)
		}
		res.Created++
	}
	return res, nil
}

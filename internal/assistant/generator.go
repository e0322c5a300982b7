package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/cosmodex/internal/neos"
	"go.uber.org/zap"
)

const (
	fallbackSummary  = "This space rock is keeping its secrets for now. Check back soon for a full report!"
	fallbackChat     = "Quack! My antenna is recharging among the stars. Ask me again in a moment!"
	fallbackBriefing = "Mission control is quiet this morning. The skies near Earth look calm today!"
)

var fallbackDescriptions = map[string]string{
	"size":     "A mysterious space rock of impressive size!",
	"speed":    "Zooming through space faster than anything on Earth!",
	"distance": "Passing by at a safe cosmic distance.",
	"date":     "Swinging past our neighborhood very soon!",
}

var errMissingClient = errors.New("assistant: client is required")

// GeneratorConfig describes dependencies for the text generator.
type GeneratorConfig struct {
	Client Client
	Logger *zap.Logger
}

// Generator turns NEO records into natural-language text. Every method
// degrades to a fixed fallback on upstream failure; generation errors are
// never surfaced to the end user.
type Generator struct {
	client Client
	logger *zap.Logger
}

// NewGenerator constructs a generator with validated configuration.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Client == nil {
		return nil, errMissingClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: cfg.Client, logger: logger}, nil
}

// Summarize returns a short plain-English summary of one NEO.
func (g *Generator) Summarize(ctx context.Context, record neos.NEO) string {
	prompt := fmt.Sprintf(`You are a space expert. Summarize this asteroid in plain English:

Name: %s
Estimated diameter: %.0f meters
Relative speed: %.2f km/s
Miss distance: %.1f lunar distances
Close approach date: %s

Be concise, simple, and slightly fun.`,
		record.Name, record.Diameter, record.Speed, record.MissDistance, record.Date)

	text, err := g.client.Complete(ctx, prompt)
	if err != nil {
		g.logger.Warn("summary generation failed", zap.String("neo", record.Name), zap.Error(err))
		return fallbackSummary
	}
	return text
}

// FunDescriptions returns four kid-friendly one-liners keyed by
// size, speed, distance, and date.
func (g *Generator) FunDescriptions(ctx context.Context, record neos.NEO) map[string]string {
	prompt := fmt.Sprintf(`You are Quackstronaut, a friendly space duck talking to kids aged 8-12. Generate 4 SHORT, fun, and humorous descriptions (each max 15 words) for this asteroid's features:

Asteroid: %s
Size: %.0f meters
Speed: %.2f km/s
Distance: %.1f lunar distances
Date: %s

Create exactly 4 descriptions in this format:
SIZE: [fun description about its size]
SPEED: [fun description about its speed]
DISTANCE: [fun description about its distance]
DATE: [fun description about its visit date]

Make them kid-friendly, funny, and use simple comparisons kids understand!`,
		record.Name, record.Diameter, record.Speed, record.MissDistance, record.Date)

	text, err := g.client.Complete(ctx, prompt)
	if err != nil {
		g.logger.Warn("fun description generation failed", zap.String("neo", record.Name), zap.Error(err))
		return copyDescriptions(fallbackDescriptions)
	}

	descriptions := parseDescriptions(text)
	if len(descriptions) == 0 {
		g.logger.Warn("fun description response had no labelled lines", zap.String("neo", record.Name))
		return copyDescriptions(fallbackDescriptions)
	}
	return descriptions
}

// Chat answers a kid's free-text question about one NEO in the
// Quackstronaut persona.
func (g *Generator) Chat(ctx context.Context, record neos.NEO, question string) string {
	prompt := fmt.Sprintf(`You are Quackstronaut, a friendly, enthusiastic space duck companion for kids aged 8-12. You're helping them learn about this specific asteroid:

Asteroid: %s
Size: %.0f meters
Speed: %.2f km/s
Distance: %.1f lunar distances
Date: %s

A kid asks: "%s"

Respond as Quackstronaut in a fun, encouraging way. Keep it:
- Under 100 words
- Simple language for kids
- Educational but entertaining
- Include fun space facts when relevant
- Always stay positive and excited about space

If the question isn't about this asteroid or space, gently redirect to the asteroid topic.`,
		record.Name, record.Diameter, record.Speed, record.MissDistance, record.Date, question)

	text, err := g.client.Complete(ctx, prompt)
	if err != nil {
		g.logger.Warn("chat generation failed", zap.String("neo", record.Name), zap.Error(err))
		return fallbackChat
	}
	return text
}

// DailyBriefing returns a short morning message covering today's NEOs.
func (g *Generator) DailyBriefing(ctx context.Context, displayName string, records []neos.NEO) string {
	var lines strings.Builder
	for _, record := range records {
		fmt.Fprintf(&lines, "- %s: %.0f m wide, %.2f km/s, %.1f lunar distances away on %s\n",
			record.Name, record.Diameter, record.Speed, record.MissDistance, record.Date)
	}
	if lines.Len() == 0 {
		lines.WriteString("- no close approaches reported today\n")
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "explorer"
	}

	prompt := fmt.Sprintf(`You are Quackstronaut, a cheerful space duck delivering a daily space briefing to %s. Today's near-Earth objects:

%s
Write a short, upbeat morning briefing (under 120 words) highlighting the most interesting object. Kid-friendly, fun, and encouraging.`,
		name, lines.String())

	text, err := g.client.Complete(ctx, prompt)
	if err != nil {
		g.logger.Warn("daily briefing generation failed", zap.Error(err))
		return fallbackBriefing
	}
	return text
}

func parseDescriptions(text string) map[string]string {
	descriptions := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		descriptions[key] = value
	}
	return descriptions
}

func copyDescriptions(source map[string]string) map[string]string {
	out := make(map[string]string, len(source))
	for key, value := range source {
		out[key] = value
	}
	return out
}

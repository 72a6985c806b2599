package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})

	L().Info().Msg("below threshold")
	L().Warn().Str("component", "test").Msg("at threshold")

	out := buf.String()
	assert.NotContains(t, out, "below threshold")
	assert.Contains(t, out, "at threshold")
	assert.Contains(t, out, `"component":"test"`)
}

func TestInit_DefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "not-a-level", Format: "json", Output: &buf})

	L().Debug().Msg("debug dropped")
	Info().Msg("info kept")

	out := buf.String()
	assert.NotContains(t, out, "debug dropped")
	assert.Contains(t, out, "info kept")
}

func TestContextualLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})

	child := L().With().Int("worker", 3).Logger()
	child.Info().Msg("scoped")

	assert.Contains(t, buf.String(), `"worker":3`)
}

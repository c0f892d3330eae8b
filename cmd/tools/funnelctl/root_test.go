package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-workers/internal/models"
)

func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ==========================
// parseTranscript
// ==========================

func TestParseTranscript(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTurns int
		wantErr   string
	}{
		{
			name: "yaml turns",
			input: `
intent: price_estimation
turns:
  - speaker_id: customer
    text: How much for a 2 minute explainer video?
  - speaker_id: agent
    text: Happy to help
`,
			wantTurns: 2,
		},
		{
			name:      "json turns",
			input:     `{"turns":[{"speaker_id":"customer","text":"hello"}]}`,
			wantTurns: 1,
		},
		{
			name:      "raw transcript",
			input:     "transcript: |\n  Customer: we need a promo video\n  Agent: sure\n",
			wantTurns: 2,
		},
		{
			name:    "empty",
			input:   `turns: []`,
			wantErr: "no turns",
		},
		{
			name:    "bad intent",
			input:   "intent: shopping\nturns:\n  - text: hi\n",
			wantErr: "unknown intent",
		},
		{
			name:    "not yaml",
			input:   "turns: [",
			wantErr: "decode transcript",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTranscript([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got.Turns, tt.wantTurns)
		})
	}
}

// ==========================
// Commands
// ==========================

func TestReplayCmd(t *testing.T) {
	path := writeFile(t, "chat.yaml", `
intent: price_estimation
turns:
  - speaker_id: customer
    text: Hi, how much would a 2 minute explainer video cost? My budget is around $2000.
`)

	out, err := executeCmd(t, "replay", path)
	require.NoError(t, err)

	var report ReplayReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, models.IntentPriceEstimation, report.Intent)
	assert.Equal(t, models.IntentPriceEstimation, report.State.Intent)
	assert.GreaterOrEqual(t, report.Completeness.Percent, 0)
	assert.LessOrEqual(t, report.Completeness.Percent, 100)
	assert.GreaterOrEqual(t, report.Lead.Score, 0.0)
	assert.LessOrEqual(t, report.Lead.Score, 100.0)
}

func TestReplayCmd_MissingFile(t *testing.T) {
	_, err := executeCmd(t, "replay", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read transcript")
}

func TestClassifyCmd(t *testing.T) {
	out, err := executeCmd(t, "classify", "I", "want", "to", "complain", "about", "the", "late", "delivery")
	require.NoError(t, err)

	var report ClassifyReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Intent.PrimaryIntent.Valid())
	assert.GreaterOrEqual(t, report.Intent.Confidence, 0.0)
	assert.LessOrEqual(t, report.Intent.Confidence, 1.0)
}

func TestRegistryValidateCmd(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		out, err := executeCmd(t, "registry", "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "is valid")
	})

	t.Run("broken file", func(t *testing.T) {
		path := writeFile(t, "slots.yaml", "version: \"1.0\"\nintents: [\n")
		_, err := executeCmd(t, "registry", "validate", "--path", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "registry validation failed")
	})
}

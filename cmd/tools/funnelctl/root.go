package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"funnel-workers/internal/common/config"
	"funnel-workers/internal/funnel"
	"funnel-workers/internal/funnel/extract"
	"funnel-workers/internal/funnel/textnorm"
	"funnel-workers/internal/intake"
	"funnel-workers/internal/models"
	"funnel-workers/pkg/registry"
)

func newRootCmd() *cobra.Command {
	var registryPath string

	root := &cobra.Command{
		Use:          "funnelctl",
		Short:        "Offline tools for the sales funnel engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&registryPath, "registry", "", "Slot registry file (default: embedded registry)")

	root.AddCommand(
		newReplayCmd(&registryPath),
		newClassifyCmd(&registryPath),
		newRegistryCmd(),
	)
	return root
}

func loadEngine(registryPath string) (*funnel.Engine, error) {
	return funnel.LoadEngine(config.FunnelConfig{
		RegistryPath:   registryPath,
		BaseConfidence: 0.8,
		TentativeTurns: 3,
		FallbackIntent: string(models.IntentNewProjectSales),
	}, nil)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ==========================
// replay
// ==========================

// Transcript is the replay input. Either turns or a raw transcript with
// "Speaker: text" lines may be given. JSON files parse as YAML.
type Transcript struct {
	Intent     string
	Turns      []models.SpeakerTurn
	Transcript string
}

type transcriptTurn struct {
	SpeakerID string `yaml:"speaker_id"`
	Text      string `yaml:"text"`
}

type rawTranscript struct {
	Intent     string           `yaml:"intent"`
	Turns      []transcriptTurn `yaml:"turns"`
	Transcript string           `yaml:"transcript"`
}

func parseTranscript(data []byte) (*Transcript, error) {
	var raw rawTranscript
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	t := &Transcript{Intent: raw.Intent, Transcript: raw.Transcript}
	for _, turn := range raw.Turns {
		t.Turns = append(t.Turns, models.SpeakerTurn{SpeakerID: turn.SpeakerID, Text: turn.Text})
	}
	if len(t.Turns) == 0 && strings.TrimSpace(t.Transcript) != "" {
		t.Turns = intake.SplitTranscript(t.Transcript)
	}
	if len(t.Turns) == 0 {
		return nil, fmt.Errorf("transcript has no turns")
	}
	if t.Intent != "" && !models.Intent(t.Intent).Valid() {
		return nil, fmt.Errorf("unknown intent %q", t.Intent)
	}
	return t, nil
}

// ReplayReport is what replay prints.
type ReplayReport struct {
	Intent       models.Intent             `json:"intent"`
	Confidence   float64                   `json:"intent_confidence"`
	State        models.ConversationState  `json:"state"`
	Completeness models.CompletenessResult `json:"completeness"`
	Lead         models.LeadScoreResult    `json:"lead_score"`
	NextQuestion *models.NextQuestion      `json:"next_question"`
}

func replay(engine *funnel.Engine, t *Transcript) ReplayReport {
	_, clean, turns := textnorm.NormalizeTurns(t.Turns)
	texts := make([]string, 0, len(turns))
	for _, turn := range turns {
		texts = append(texts, turn.Text)
	}

	nlp := engine.Pipeline.Run(clean, texts)
	in := nlp.FinalIntent.PrimaryIntent
	if t.Intent != "" {
		in = models.Intent(t.Intent)
	}

	st := engine.Replay(turns, clean, in)
	comp, lead := engine.Qualify(st, len(turns), clean)

	report := ReplayReport{
		Intent:       st.Intent,
		Confidence:   nlp.FinalIntent.Confidence,
		State:        st,
		Completeness: comp,
		Lead:         lead,
	}
	if q, ok := engine.Selector.NextQuestion(st, len(turns), ""); ok {
		report.NextQuestion = &q
	}
	return report
}

func newReplayCmd(registryPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <transcript.yaml|json>",
		Short: "Replay a transcript and print state, completeness, lead score and next question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			t, err := parseTranscript(data)
			if err != nil {
				return err
			}
			engine, err := loadEngine(*registryPath)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), replay(engine, t))
		},
	}
}

// ==========================
// classify
// ==========================

type ClassifyReport struct {
	Intent   models.IntentResult `json:"intent"`
	Entities extract.Entities    `json:"entities"`
	Language string              `json:"language"`
}

func newClassifyCmd(registryPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a message and print the intent result and entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(*registryPath)
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			res := engine.Pipeline.Run(text, []string{text})
			return writeJSON(cmd.OutOrStdout(), ClassifyReport{
				Intent:   res.FinalIntent,
				Entities: res.Entities,
				Language: res.Language,
			})
		},
	}
}

// ==========================
// registry
// ==========================

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Slot registry tools",
	}
	cmd.AddCommand(newRegistryValidateCmd())
	return cmd
}

func newRegistryValidateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a slot registry file",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			source := path
			if source == "" {
				source = "embedded"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry %s (version %s) is valid. Found %d intents.\n",
				source, reg.Version(), len(reg.Intents()))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Path to registry file (default: embedded registry)")
	return cmd
}

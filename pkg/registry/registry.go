// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"funnel-workers/internal/models"
)

// GenericQuestion is asked for a slot that has no configured templates.
const GenericQuestion = "Could you share that with me?"

//go:embed default_slots.yaml
var defaultSlots []byte

// Registry is the immutable per-intent slot table. It is safe for concurrent use.
type Registry struct {
	version         string
	genericQuestion string
	priority        []string
	order           []models.Intent
	intents         map[models.Intent]IntentEntry
}

// Default returns the embedded registry. It panics if the embedded table is invalid,
// which only a broken build can cause.
func Default() *Registry {
	reg, err := Parse(defaultSlots)
	if err != nil {
		panic(fmt.Sprintf("embedded slot registry is invalid: %v", err))
	}
	return reg
}

// LoadRegistry reads and validates a registry file. An empty path returns Default().
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slot registry %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML registry.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode slot registry: %w", err)
	}
	if err := Validate(&f); err != nil {
		return nil, err
	}

	reg := &Registry{
		version:         f.Version,
		genericQuestion: f.GenericQuestion,
		priority:        append([]string(nil), f.FollowUpPriority...),
		intents:         make(map[models.Intent]IntentEntry, len(f.Intents)),
	}
	if reg.genericQuestion == "" {
		reg.genericQuestion = GenericQuestion
	}
	for _, entry := range f.Intents {
		name := models.Intent(entry.Name)
		reg.order = append(reg.order, name)
		reg.intents[name] = entry
	}
	return reg, nil
}

// ValidationError lists every problem found in a registry file.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid slot registry: " + strings.Join(e.Problems, "; ")
}

// Validate checks the invariants the state machine relies on.
func Validate(f *File) error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	inPriority := make(map[string]bool, len(f.FollowUpPriority))
	for _, slot := range f.FollowUpPriority {
		if inPriority[slot] {
			add("follow_up_priority lists %q twice", slot)
		}
		inPriority[slot] = true
	}

	configured := map[string]bool{}
	for _, entry := range f.Intents {
		for slot := range entry.Slots {
			configured[slot] = true
		}
	}

	seenIntent := map[string]bool{}
	for _, entry := range f.Intents {
		if !models.Intent(entry.Name).Valid() {
			add("unknown intent %q", entry.Name)
		}
		if seenIntent[entry.Name] {
			add("intent %q defined twice", entry.Name)
		}
		seenIntent[entry.Name] = true

		seenSlot := map[string]bool{}
		for _, slot := range append(append([]string(nil), entry.Required...), entry.Optional...) {
			if seenSlot[slot] {
				add("intent %q lists slot %q twice", entry.Name, slot)
			}
			seenSlot[slot] = true
			if !configured[slot] {
				add("intent %q slot %q has no configuration", entry.Name, slot)
			}
			if !inPriority[slot] {
				add("intent %q slot %q is missing from follow_up_priority", entry.Name, slot)
			}
		}
		for slot, cfg := range entry.Slots {
			if len(cfg.Questions) == 0 {
				add("intent %q slot %q has no question templates", entry.Name, slot)
			}
		}
	}

	if !seenIntent[string(models.IntentUnknownChitchat)] {
		add("intent %q is required", models.IntentUnknownChitchat)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Version returns the registry file version.
func (r *Registry) Version() string { return r.version }

// Intents returns the configured intents in file order.
func (r *Registry) Intents() []models.Intent {
	return append([]models.Intent(nil), r.order...)
}

func (r *Registry) entry(intent models.Intent) IntentEntry {
	if e, ok := r.intents[intent]; ok {
		return e
	}
	return r.intents[models.IntentUnknownChitchat]
}

// RequiredSlots returns the required slots of intent; unknown intents get none.
func (r *Registry) RequiredSlots(intent models.Intent) []string {
	return append([]string(nil), r.entry(intent).Required...)
}

// OptionalSlots returns the optional slots of intent; unknown intents get none.
func (r *Registry) OptionalSlots(intent models.Intent) []string {
	return append([]string(nil), r.entry(intent).Optional...)
}

// AllSlots returns required followed by optional slots.
func (r *Registry) AllSlots(intent models.Intent) []string {
	e := r.entry(intent)
	out := make([]string, 0, len(e.Required)+len(e.Optional))
	out = append(out, e.Required...)
	return append(out, e.Optional...)
}

// slotConfig prefers the intent's own entry, then the first intent that configures the slot.
func (r *Registry) slotConfig(slot string, intent models.Intent) (SlotConfig, bool) {
	if intent != "" {
		if cfg, ok := r.intents[intent].Slots[slot]; ok {
			return cfg, true
		}
	}
	for _, name := range r.order {
		if cfg, ok := r.intents[name].Slots[slot]; ok {
			return cfg, true
		}
	}
	return SlotConfig{}, false
}

// QuestionTemplates returns the rotation of questions for slot; never empty.
func (r *Registry) QuestionTemplates(slot string, intent models.Intent) []string {
	cfg, ok := r.slotConfig(slot, intent)
	if !ok || len(cfg.Questions) == 0 {
		return []string{r.genericQuestion}
	}
	return append([]string(nil), cfg.Questions...)
}

// RefusalPhrases returns the phrases that mark slot as refused.
func (r *Registry) RefusalPhrases(slot string, intent models.Intent) []string {
	cfg, _ := r.slotConfig(slot, intent)
	return append([]string(nil), cfg.Refusals...)
}

// FollowUpPriority returns the global ask order.
func (r *Registry) FollowUpPriority() []string {
	return append([]string(nil), r.priority...)
}

// pkg/registry/schema.go
package registry

// File is the on-disk layout of a slot registry.
type File struct {
	Version          string        `yaml:"version"`
	GenericQuestion  string        `yaml:"generic_question"`
	FollowUpPriority []string      `yaml:"follow_up_priority"`
	Intents          []IntentEntry `yaml:"intents"`
}

// IntentEntry is the slot profile of one intent.
type IntentEntry struct {
	Name     string                `yaml:"name"`
	Required []string              `yaml:"required"`
	Optional []string              `yaml:"optional"`
	Slots    map[string]SlotConfig `yaml:"slots"`
}

// SlotConfig holds the question templates and refusal phrases of one slot.
type SlotConfig struct {
	Questions []string `yaml:"questions"`
	Refusals  []string `yaml:"refusals"`
}

package dto

// BotMetadata is the decoded shape of one definition file. A file either
// lists dialogs or is a single dialog (top-level id and rules).
type BotMetadata struct {
	Root      string            `json:"root" mapstructure:"root"`
	Intents   []IntentMetadata  `json:"intents" mapstructure:"intents"`
	Templates map[string]string `json:"templates" mapstructure:"templates"`
	Dialogs   []DialogMetadata  `json:"dialogs" mapstructure:"dialogs"`

	DialogMetadata `mapstructure:",squash"`
}

// IntentMetadata maps a regular expression to an intent.
type IntentMetadata struct {
	Intent  string `json:"intent" mapstructure:"intent"`
	Pattern string `json:"pattern" mapstructure:"pattern"`
}

// DialogMetadata describes one dialog. OnBegin is shorthand for an event
// rule on beginDialog.
type DialogMetadata struct {
	ID      string         `json:"id" mapstructure:"id"`
	AutoEnd bool           `json:"auto_end" mapstructure:"auto_end"`
	OnBegin []any          `json:"on_begin" mapstructure:"on_begin"`
	Rules   []RuleMetadata `json:"rules" mapstructure:"rules"`
}

// RuleMetadata describes a trigger. Exactly one of Intent, Event and
// Fallback is set.
type RuleMetadata struct {
	Intent   string `json:"intent" mapstructure:"intent"`
	Event    string `json:"event" mapstructure:"event"`
	Fallback bool   `json:"fallback" mapstructure:"fallback"`
	Mode     string `json:"mode" mapstructure:"mode"`
	Priority int    `json:"priority" mapstructure:"priority"`
	When     string `json:"when" mapstructure:"when"`
	Steps    []any  `json:"steps" mapstructure:"steps"`
}

// PromptMetadata is the long form of a prompt step.
type PromptMetadata struct {
	Text        string `json:"text" mapstructure:"text"`
	Retry       string `json:"retry" mapstructure:"retry"`
	Invalid     string `json:"invalid" mapstructure:"invalid"`
	Property    string `json:"property" mapstructure:"property"`
	Validator   string `json:"validator" mapstructure:"validator"`
	Pattern     string `json:"pattern" mapstructure:"pattern"`
	MaxAttempts int    `json:"max_attempts" mapstructure:"max_attempts"`
}

// BranchMetadata is a branch step.
type BranchMetadata struct {
	If   string `json:"if" mapstructure:"if"`
	Then []any  `json:"then" mapstructure:"then"`
	Else []any  `json:"else" mapstructure:"else"`
}

// CallMetadata is the long form of a call step.
type CallMetadata struct {
	Dialog string `json:"dialog" mapstructure:"dialog"`
	Result string `json:"result" mapstructure:"result"`
}

// SetMetadata is a set step.
type SetMetadata struct {
	Path  string `json:"path" mapstructure:"path"`
	Value string `json:"value" mapstructure:"value"`
}

package session

import "time"

// Mode bundles the tuning parameters a client selects at session start.
type Mode struct {
	Name                string
	TranslationInterval time.Duration
	PauseDetection      time.Duration
	MinWords            int
	EnableTTS           bool
	DisplayVisualCards  bool
}

var modes = map[string]Mode{
	"talks": {
		Name:                "talks",
		TranslationInterval: 15 * time.Second,
		PauseDetection:      4 * time.Second,
		MinWords:            6,
		EnableTTS:           false,
		DisplayVisualCards:  true,
	},
	"earbuds": {
		Name:                "earbuds",
		TranslationInterval: 10 * time.Second,
		PauseDetection:      3 * time.Second,
		MinWords:            4,
		EnableTTS:           true,
		DisplayVisualCards:  false,
	},
}

// ModeByName resolves a client-supplied mode name. The empty string selects
// "talks".
func ModeByName(name string) (Mode, bool) {
	if name == "" {
		name = "talks"
	}
	m, ok := modes[name]
	return m, ok
}

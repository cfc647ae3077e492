package provider

import (
	"fmt"

	"github.com/vorion/cognigate/internal/critic"
)

// New builds the configured provider by name. Selection is data, not
// type dispatch: swapping vendors is a config change, never a code change.
func New(name string, cfg Config) (critic.Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropic(cfg), nil
	case "openai":
		return NewOpenAI(cfg), nil
	case "google":
		return NewGoogle(cfg), nil
	case "xai":
		return NewXAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown critic provider %q", name)
	}
}

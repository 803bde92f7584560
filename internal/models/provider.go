package models

import "strings"

// Provider names accepted by the credential store.
var knownProviders = map[string]struct{}{
	"openai":    {},
	"anthropic": {},
	"google":    {},
	"mistral":   {},
	"xai":       {},
	"deepseek":  {},
}

// NormalizeProvider lowercases and trims a provider name.
func NormalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

// IsKnownProvider reports whether the provider name is in the accepted set.
func IsKnownProvider(provider string) bool {
	_, ok := knownProviders[NormalizeProvider(provider)]
	return ok
}

// KnownProviders returns the accepted provider names in no particular order.
func KnownProviders() []string {
	out := make([]string, 0, len(knownProviders))
	for name := range knownProviders {
		out = append(out, name)
	}
	return out
}

// Package model defines the domain types shared across the gitstore core.
package model

import "fmt"

// Provider identifies one of the two backing REST APIs. Entity IDs are
// provider-local and must never be compared across providers.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
)

// Providers lists all supported providers.
func Providers() []Provider {
	return []Provider{ProviderGitHub, ProviderGitLab}
}

// ParseProvider converts a user-supplied string into a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderGitHub, ProviderGitLab:
		return Provider(s), nil
	default:
		return "", fmt.Errorf("unknown provider %q (expected github or gitlab)", s)
	}
}

// DisplayName returns the provider name for user-facing output.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGitHub:
		return "GitHub"
	case ProviderGitLab:
		return "GitLab"
	default:
		return string(p)
	}
}

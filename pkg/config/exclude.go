package config

import (
	"path"
	"strings"
)

// Normalize trims exclude patterns and removes empty values.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.ExcludeNamespaces = normalizePatterns(c.ExcludeNamespaces)
}

// IsNamespaceExcluded reports whether namespace matches exclude patterns.
// Patterns are globs ("kube-*"); invalid globs fall back to exact match.
func (c *Config) IsNamespaceExcluded(namespace string) bool {
	if c == nil || len(c.ExcludeNamespaces) == 0 {
		return false
	}

	value := normalizePattern(namespace)
	if value == "" {
		return false
	}

	for _, pattern := range c.ExcludeNamespaces {
		if patternMatches(pattern, value) {
			return true
		}
	}

	return false
}

func normalizePatterns(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, pattern := range values {
		p := normalizePattern(pattern)
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	return normalized
}

func normalizePattern(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func patternMatches(pattern, value string) bool {
	normalizedPattern := normalizePattern(pattern)
	normalizedValue := normalizePattern(value)
	if normalizedPattern == "" || normalizedValue == "" {
		return false
	}

	matched, err := path.Match(normalizedPattern, normalizedValue)
	if err == nil {
		return matched
	}
	return normalizedPattern == normalizedValue
}

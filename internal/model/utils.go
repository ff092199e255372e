package model

import (
	"encoding/json"
	"strings"
)

// TruncateString caps s at maxLength bytes.
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength]
}

// JoinLabels serializes label names as a JSON array string for storage.
// A nil or empty slice stores as "[]".
func JoinLabels(labels []string) string {
	if len(labels) == 0 {
		return "[]"
	}
	data, err := json.Marshal(labels)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// SplitLabels is the inverse of JoinLabels. Legacy comma separated values
// are tolerated.
func SplitLabels(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var labels []string
		if err := json.Unmarshal([]byte(s), &labels); err == nil {
			return labels
		}
	}
	parts := strings.Split(s, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}

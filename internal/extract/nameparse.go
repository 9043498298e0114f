package extract

import "strings"

// ParseDriverName splits an as-seen results name into (first, last): a
// comma splits last,first (any trailing tokens on the right stay attached
// to first, e.g. suffixes like "Jr."); otherwise the first whitespace
// token is the first name and the remainder is the last. Empty/whitespace
// input yields two nils.
func ParseDriverName(raw string) (first, last *string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	if idx := strings.Index(trimmed, ","); idx >= 0 {
		lastPart := strings.TrimSpace(trimmed[:idx])
		firstPart := strings.TrimSpace(trimmed[idx+1:])
		return strPtr(firstPart), strPtr(lastPart)
	}
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) == 1 {
		return strPtr(parts[0]), nil
	}
	return strPtr(parts[0]), strPtr(strings.TrimSpace(parts[1]))
}

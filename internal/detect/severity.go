package detect

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity ranks a detection for operator attention. Lower rank means more
// urgent; the zero value is CRITICAL so rank comparisons stay numeric.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityHigh
	SeverityMedium
	SeverityLow
)

var severityNames = map[Severity]string{
	SeverityCritical: "CRITICAL",
	SeverityHigh:     "HIGH",
	SeverityMedium:   "MEDIUM",
	SeverityLow:      "LOW",
}

// String returns the wire name of the severity.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "LOW"
}

// MarshalJSON renders the severity as its string name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a severity from its string name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a case-insensitive severity name to its value.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "CRITICAL":
		return SeverityCritical, nil
	case "HIGH":
		return SeverityHigh, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "LOW":
		return SeverityLow, nil
	default:
		return SeverityLow, fmt.Errorf("unknown severity: %s", name)
	}
}

// SeverityMap assigns a severity to each known exception type. Unmapped
// types default to LOW. The map is a finite lookup table loaded from
// configuration, not open-ended dispatch.
type SeverityMap map[string]Severity

// Lookup returns the severity for an exception type, defaulting to LOW.
func (m SeverityMap) Lookup(exception string) Severity {
	if sev, ok := m[exception]; ok {
		return sev
	}
	return SeverityLow
}

// DefaultSeverityMap covers the PFE exception types seen in the field.
// Operators override or extend it via the detection.severities config map.
func DefaultSeverityMap() SeverityMap {
	return SeverityMap{
		"hw_error":              SeverityCritical,
		"invalid_fabric_token":  SeverityCritical,
		"stack_overflow":        SeverityCritical,
		"stack_underflow":       SeverityCritical,
		"sw_error":              SeverityHigh,
		"unknown_family":        SeverityHigh,
		"bad_ipv4_hdr_checksum": SeverityMedium,
		"bad_udp_hdr":           SeverityMedium,
		"my_mac_check_failed":   SeverityMedium,
		"resolve":               SeverityMedium,
		"unknown_iif":           SeverityMedium,
		"discard_route":         SeverityLow,
		"firewall_discard":      SeverityLow,
		"mtu_exceeded":          SeverityLow,
		"ttl_expired":           SeverityLow,
	}
}

// SeverityMapFromConfig builds a SeverityMap from the config representation
// (exception -> severity name), layered over the defaults. Unknown names
// are reported rather than silently dropped.
func SeverityMapFromConfig(overrides map[string]string) (SeverityMap, error) {
	m := DefaultSeverityMap()
	for exc, name := range overrides {
		sev, err := ParseSeverity(name)
		if err != nil {
			return nil, fmt.Errorf("severity map entry %q: %w", exc, err)
		}
		m[exc] = sev
	}
	return m, nil
}

package scanner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Observation is a single raw device sighting from one discovery pass.
type Observation struct {
	IP  string `json:"ip"`
	MAC string `json:"mac"`
	// Name is a best-effort hostname hint from the remainder of the
	// discovery tool's output line (often blank).
	Name string `json:"name,omitempty"`
}

// ScanError reports a failed discovery pass. Callers are expected to keep
// serving the last successfully reconciled device list when they see one.
type ScanError struct {
	Err error
}

func (e *ScanError) Error() string { return fmt.Sprintf("scan failed: %v", e.Err) }

func (e *ScanError) Unwrap() error { return e.Err }

// Candidate device lines: IPv4, MAC, optional free text. Header and footer
// lines from the discovery tool simply fail the match and are dropped.
var deviceLineRe = regexp.MustCompile(`^(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\s+([0-9A-Fa-f:]{17})\s*(.*)$`)

// Scanner discovers devices on the local subnet by invoking an external
// ARP scan command and parsing its line-oriented output.
type Scanner struct {
	runner  Runner
	command string
	subnet  string
}

// New creates a Scanner that runs command (e.g. "arp-scan") against subnet.
func New(runner Runner, command, subnet string) *Scanner {
	return &Scanner{runner: runner, command: command, subnet: subnet}
}

// Scan runs one discovery pass. A command failure (non-zero exit, timeout)
// is returned as *ScanError; partial output is not trusted in that case.
func (s *Scanner) Scan(ctx context.Context) ([]Observation, error) {
	out, err := s.runner.Run(ctx, s.command, s.subnet)
	if err != nil {
		return nil, &ScanError{Err: err}
	}
	return ParseOutput(string(out)), nil
}

// ParseOutput extracts observations from raw discovery tool output.
// Non-matching lines are silently ignored; MACs are normalized to lower
// case so they are usable as cache keys downstream.
func ParseOutput(out string) []Observation {
	var obs []Observation
	for _, line := range strings.Split(out, "\n") {
		m := deviceLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		obs = append(obs, Observation{
			IP:   m[1],
			MAC:  strings.ToLower(m[2]),
			Name: strings.TrimSpace(m[3]),
		})
	}
	return obs
}

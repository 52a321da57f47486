package certificate

import (
	"fmt"
	"strings"
)

// DedupPolicy governs whether a repeat issuance rewrites recipient bookkeeping
type DedupPolicy string

const (
	// DedupUnconditional always writes the recipient record, replacing any
	// existing one
	DedupUnconditional DedupPolicy = "unconditional"
	// DedupSkipExisting leaves an existing recipient record untouched
	DedupSkipExisting DedupPolicy = "skip_existing"
)

// IsValid checks if the DedupPolicy is a valid value
func (p DedupPolicy) IsValid() bool {
	switch p {
	case DedupUnconditional, DedupSkipExisting:
		return true
	}
	return false
}

// String returns the string representation of DedupPolicy
func (p DedupPolicy) String() string {
	return string(p)
}

// IssuanceMode governs how far the pipeline runs after bookkeeping
type IssuanceMode string

const (
	// ModeRecordOnly stops after the recipient record is written
	ModeRecordOnly IssuanceMode = "record_only"
	// ModePublish renders, converts and publishes the certificate PDF
	ModePublish IssuanceMode = "publish"
)

// IsValid checks if the IssuanceMode is a valid value
func (m IssuanceMode) IsValid() bool {
	switch m {
	case ModeRecordOnly, ModePublish:
		return true
	}
	return false
}

// String returns the string representation of IssuanceMode
func (m IssuanceMode) String() string {
	return string(m)
}

// Policy selects one point on the issuance configuration axis.
// The artifact is refreshed on every publishing issuance regardless of the
// dedup policy; only recipient bookkeeping is deduplicated.
type Policy struct {
	Dedup DedupPolicy
	Mode  IssuanceMode
}

// DefaultPolicy deduplicates recipients and publishes the artifact
func DefaultPolicy() Policy {
	return Policy{
		Dedup: DedupSkipExisting,
		Mode:  ModePublish,
	}
}

// ParsePolicy builds a Policy from configuration strings.
// Empty values fall back to DefaultPolicy.
func ParsePolicy(dedup, mode string) (Policy, error) {
	p := DefaultPolicy()
	if v := strings.TrimSpace(strings.ToLower(dedup)); v != "" {
		p.Dedup = DedupPolicy(v)
	}
	if v := strings.TrimSpace(strings.ToLower(mode)); v != "" {
		p.Mode = IssuanceMode(v)
	}
	if !p.Dedup.IsValid() {
		return Policy{}, fmt.Errorf("invalid dedup policy %q", dedup)
	}
	if !p.Mode.IsValid() {
		return Policy{}, fmt.Errorf("invalid issuance mode %q", mode)
	}
	return p, nil
}

// ShouldSave reports whether the recipient record is written, given whether
// it already exists
func (p Policy) ShouldSave(exists bool) bool {
	if p.Dedup == DedupUnconditional {
		return true
	}
	return !exists
}

// Publishes reports whether the pipeline produces and publishes a PDF
func (p Policy) Publishes() bool {
	return p.Mode == ModePublish
}

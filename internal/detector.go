package internal

import (
	"fmt"
	"strings"
)

// ChangeDetector decides whether a freshly polled history differs from the
// rendered one. A true result triggers a full replace.
type ChangeDetector interface {
	Changed(current, fetched []ChatMessage) bool
	Name() string
}

const (
	DetectorLength = "length"
	DetectorLastID = "last-id"
	DetectorFull   = "full"
)

// NewChangeDetector returns the detector registered under name
func NewChangeDetector(name string) (ChangeDetector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DetectorLength:
		return LengthDetector{}, nil
	case "", DetectorLastID:
		return LastIDDetector{}, nil
	case DetectorFull:
		return FullDetector{}, nil
	default:
		return nil, fmt.Errorf("unsupported change detection: %s (supported: length, last-id, full)", name)
	}
}

// LengthDetector compares list lengths only. Two histories of equal length
// but different content are reported as unchanged.
type LengthDetector struct{}

func (LengthDetector) Changed(current, fetched []ChatMessage) bool {
	return len(current) != len(fetched)
}

func (LengthDetector) Name() string { return DetectorLength }

// LastIDDetector compares length and the id of the newest message
type LastIDDetector struct{}

func (LastIDDetector) Changed(current, fetched []ChatMessage) bool {
	if len(current) != len(fetched) {
		return true
	}
	if len(fetched) == 0 {
		return false
	}
	return current[len(current)-1].ID != fetched[len(fetched)-1].ID
}

func (LastIDDetector) Name() string { return DetectorLastID }

// FullDetector compares every message
type FullDetector struct{}

func (FullDetector) Changed(current, fetched []ChatMessage) bool {
	if len(current) != len(fetched) {
		return true
	}
	for i := range fetched {
		a, b := current[i], fetched[i]
		if a.ID != b.ID || a.IsOwner != b.IsOwner || a.Content != b.Content || !a.SentAt.Equal(b.SentAt) {
			return true
		}
	}
	return false
}

func (FullDetector) Name() string { return DetectorFull }

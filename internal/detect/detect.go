// Package detect decides which feed entries have not been notified yet.
package detect

import (
	"fmt"

	"releasewatch/internal/rss"
)

// ColdStart controls what counts as new when no last-seen identifier exists.
type ColdStart int

const (
	// ColdStartLatest treats only the newest entry as new.
	ColdStartLatest ColdStart = iota
	// ColdStartAll treats every fetched entry as new.
	ColdStartAll
)

// ParseColdStart maps "latest" and "all" to a policy.
func ParseColdStart(s string) (ColdStart, error) {
	switch s {
	case "", "latest":
		return ColdStartLatest, nil
	case "all":
		return ColdStartAll, nil
	default:
		return ColdStartLatest, fmt.Errorf("unknown cold start policy %q", s)
	}
}

func (c ColdStart) String() string {
	if c == ColdStartAll {
		return "all"
	}
	return "latest"
}

// NewEntries returns the entries ahead of lastID, newest first. entries must
// be ordered newest first; scanning stops at the first ID equal to lastID.
// If lastID is never found the whole window is new.
func NewEntries(entries []rss.Entry, lastID string, policy ColdStart) []rss.Entry {
	if len(entries) == 0 {
		return nil
	}
	if lastID == "" && policy == ColdStartLatest {
		return entries[:1:1]
	}

	var fresh []rss.Entry
	for _, entry := range entries {
		if entry.ID == lastID {
			break
		}
		fresh = append(fresh, entry)
	}
	return fresh
}

// OldestFirst returns a reversed copy of entries.
func OldestFirst(entries []rss.Entry) []rss.Entry {
	out := make([]rss.Entry, len(entries))
	for i, entry := range entries {
		out[len(entries)-1-i] = entry
	}
	return out
}

// Newest returns the ID of the first entry.
func Newest(entries []rss.Entry) (string, bool) {
	if len(entries) == 0 {
		return "", false
	}
	return entries[0].ID, true
}

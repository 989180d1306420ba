// Package wgetlog turns raw wget diagnostic output into display-ready
// events and running counters.
package wgetlog

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind tags the classification of one log line.
type Kind int

const (
	KindRaw Kind = iota
	KindFileSaved
	KindError
	KindInfo
)

// Event is one classified line. Display is ready to show as-is; Name is
// the extracted base filename when the line refers to one.
type Event struct {
	Kind    Kind
	Display string
	Name    string
}

// Stats is a snapshot of the counters accumulated so far.
type Stats struct {
	FilesSaved int `json:"files_saved"`
	ErrorsSeen int `json:"errors_seen"`
}

var (
	// matches ... ‘path/to/file’ saved [1234/1234]
	savedPattern = regexp.MustCompile(`‘.+’ saved \[\d+/\d+\]`)
	errorPattern = regexp.MustCompile(`(?i)(ERROR \d+|failed:|Not Found)`)
)

// Classifier consumes wget output one line at a time. One classifier per
// job; counters are monotonic until Reset.
type Classifier struct {
	stats Stats
}

func NewClassifier() *Classifier { return &Classifier{} }

// ProcessLine classifies one raw line. Rules are ordered, first match
// wins. Blank input yields a zero Event and leaves the counters alone;
// callers should check ev.Display before forwarding.
func (c *Classifier) ProcessLine(raw string) (Event, Stats) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return Event{}, c.stats
	}

	var ev Event
	switch {
	case savedPattern.MatchString(line):
		c.stats.FilesSaved++
		name := ExtractFilename(line)
		ev = Event{Kind: KindFileSaved, Display: "✅ FILE SAVED: " + name, Name: name}
	case errorPattern.MatchString(line):
		c.stats.ErrorsSeen++
		ev = Event{Kind: KindError, Display: "❌ ERROR: " + line}
	case strings.HasPrefix(line, "Resolving "):
		ev = Event{Kind: KindInfo, Display: "🔄 " + line}
	case strings.HasPrefix(line, "Connecting to "):
		ev = Event{Kind: KindInfo, Display: "🔗 " + line}
	case strings.Contains(line, "200 OK"):
		ev = Event{Kind: KindInfo, Display: "⬇️  Response: 200 OK"}
	case strings.HasPrefix(line, "Saving to:"):
		name := ExtractFilename(line)
		ev = Event{Kind: KindInfo, Display: fmt.Sprintf("💾 Saving: %s...", name), Name: name}
	default:
		ev = Event{Kind: KindRaw, Display: "   " + line}
	}
	return ev, c.stats
}

// Stats returns the current counter snapshot.
func (c *Classifier) Stats() Stats { return c.stats }

// Reset zeroes the counters. Only needed when one classifier instance is
// reused across unrelated jobs.
func (c *Classifier) Reset() { c.stats = Stats{} }

// ExtractFilename pulls the base filename out of the first ‘…’ quoted
// span in the line. Falls back to the literal "file"; never fails.
func ExtractFilename(line string) string {
	start := strings.Index(line, "‘")
	end := strings.Index(line, "’")
	if start == -1 || end == -1 || end <= start {
		return "file"
	}
	full := line[start+len("‘") : end]
	if full == "" {
		return "file"
	}
	segs := strings.Split(full, "/")
	name := segs[len(segs)-1]
	if name == "" {
		return "file"
	}
	return name
}

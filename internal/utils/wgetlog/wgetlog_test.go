package wgetlog

import "testing"

func TestProcessLineClassification(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantKind    Kind
		wantDisplay string
	}{
		{
			"saved line",
			"2024-01-01 ‘./site/index.html’ saved [512/512]",
			KindFileSaved,
			"✅ FILE SAVED: index.html",
		},
		{
			"numbered error",
			"2024-01-01 ERROR 404: Not Found.",
			KindError,
			"❌ ERROR: 2024-01-01 ERROR 404: Not Found.",
		},
		{
			"failed marker",
			"example.com: Connection failed: refused.",
			KindError,
			"❌ ERROR: example.com: Connection failed: refused.",
		},
		{
			"not found case-insensitive",
			"Remote file not found",
			KindError,
			"❌ ERROR: Remote file not found",
		},
		{
			"resolving",
			"Resolving example.com (example.com)... 93.184.216.34",
			KindInfo,
			"🔄 Resolving example.com (example.com)... 93.184.216.34",
		},
		{
			"connecting",
			"Connecting to example.com|93.184.216.34|:443... connected.",
			KindInfo,
			"🔗 Connecting to example.com|93.184.216.34|:443... connected.",
		},
		{
			"200 ok",
			"HTTP request sent, awaiting response... 200 OK",
			KindInfo,
			"⬇️  Response: 200 OK",
		},
		{
			"saving to",
			"Saving to: ‘./site/assets/logo.png’",
			KindInfo,
			"💾 Saving: logo.png...",
		},
		{
			"raw fallthrough",
			"Length: 512 (512B) [text/html]",
			KindRaw,
			"   Length: 512 (512B) [text/html]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier()
			ev, _ := c.ProcessLine(tt.line)
			if ev.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", ev.Kind, tt.wantKind)
			}
			if ev.Display != tt.wantDisplay {
				t.Errorf("display = %q, want %q", ev.Display, tt.wantDisplay)
			}
		})
	}
}

func TestSavedWinsOverError(t *testing.T) {
	// A line matching both the saved and the error pattern classifies as
	// saved: the rules are ordered and first match wins.
	c := NewClassifier()
	ev, st := c.ProcessLine("‘./site/failed:page.html’ saved [10/10]")
	if ev.Kind != KindFileSaved {
		t.Fatalf("kind = %v, want KindFileSaved", ev.Kind)
	}
	if st.FilesSaved != 1 || st.ErrorsSeen != 0 {
		t.Errorf("stats = %+v, want exactly one file and no errors", st)
	}
}

func TestCountersAccumulate(t *testing.T) {
	c := NewClassifier()
	c.ProcessLine("‘./a.html’ saved [1/1]")
	c.ProcessLine("ERROR 404: Not Found.")
	c.ProcessLine("some noise")
	_, st := c.ProcessLine("‘./b.html’ saved [2/2]")

	if st.FilesSaved != 2 {
		t.Errorf("FilesSaved = %d, want 2", st.FilesSaved)
	}
	if st.ErrorsSeen != 1 {
		t.Errorf("ErrorsSeen = %d, want 1", st.ErrorsSeen)
	}
}

func TestBlankLinesLeaveStateAlone(t *testing.T) {
	c := NewClassifier()
	c.ProcessLine("‘./a.html’ saved [1/1]")
	ev, st := c.ProcessLine("   \t  ")
	if ev.Display != "" {
		t.Errorf("blank line produced display %q", ev.Display)
	}
	if st.FilesSaved != 1 || st.ErrorsSeen != 0 {
		t.Errorf("blank line changed counters: %+v", st)
	}
}

func TestProcessLineDeterministic(t *testing.T) {
	line := "ERROR 500: Internal Server Error."
	a := NewClassifier()
	b := NewClassifier()
	evA, stA := a.ProcessLine(line)
	evB, stB := b.ProcessLine(line)
	if evA != evB || stA != stB {
		t.Errorf("same line, same prior state, different result: %+v/%+v vs %+v/%+v", evA, stA, evB, stB)
	}
}

func TestReset(t *testing.T) {
	c := NewClassifier()
	c.ProcessLine("‘./a.html’ saved [1/1]")
	c.ProcessLine("ERROR 404: Not Found.")
	c.Reset()
	if st := c.Stats(); st != (Stats{}) {
		t.Errorf("Reset left counters at %+v", st)
	}
}

func TestExtractFilename(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"nested path", "Saving to: ‘./site/assets/logo.png’", "logo.png"},
		{"bare name", "‘index.html’ saved [1/1]", "index.html"},
		{"no quotes", "Saving to: plain.txt", "file"},
		{"open quote only", "Saving to: ‘broken", "file"},
		{"empty span", "‘’ saved", "file"},
		{"trailing slash", "Saving to: ‘./site/dir/’", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFilename(tt.line); got != tt.want {
				t.Errorf("ExtractFilename(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

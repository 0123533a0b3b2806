package palette

import (
	"fmt"
	"testing"

	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ByThinker, false},
		{"thinker", ByThinker, false},
		{"term", ByTerm, false},
		{"Term", "", true},
		{"folder", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidColorMode) {
			t.Errorf("ParseMode(%q) code = %s", tt.in, errors.GetCode(err))
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAssignKeysCycles(t *testing.T) {
	keys := make([]string, 12)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}
	cm := AssignKeys(ByThinker, keys, nil)

	for i, k := range keys {
		want := Default[i%len(Default)]
		if got := cm.Color(k); got != want {
			t.Errorf("Color(%s) = %s, want %s", k, got, want)
		}
	}
	if cm.Color("k10") != "#3b82f6" || cm.Color("k11") != "#ef4444" {
		t.Error("11th and 12th keys should wrap to the first two palette colors")
	}
	if len(cm.Legend()) != 12 {
		t.Errorf("Legend has %d entries, want 12", len(cm.Legend()))
	}
}

func TestUnknownKeyFallsBack(t *testing.T) {
	cm := AssignKeys(ByTerm, []string{"Reason"}, []string{"#111111", "#222222"})
	if got := cm.Color("Will"); got != "#111111" {
		t.Errorf("unknown key color = %s, want first palette color", got)
	}
	if got := cm.Fallback(); got != "#111111" {
		t.Errorf("Fallback = %s", got)
	}

	empty := AssignKeys(ByTerm, nil, nil)
	if got := empty.Color("anything"); got != Default[0] {
		t.Errorf("empty map color = %s, want %s", got, Default[0])
	}
}

func TestDuplicateKeysKeepFirstColor(t *testing.T) {
	cm := AssignKeys(ByThinker, []string{"Kant", "Hegel", "Kant", "Marx"}, nil)
	if cm.Color("Marx") != Default[2] {
		t.Errorf("Marx = %s, want third color %s", cm.Color("Marx"), Default[2])
	}
	if len(cm.Legend()) != 3 {
		t.Errorf("Legend has %d entries, want 3", len(cm.Legend()))
	}
}

func TestAssignByMode(t *testing.T) {
	m := matrix.New([]matrix.Bubble{
		{TermID: "t1", TermName: "Reason", ThinkerID: "k", ThinkerName: "Kant", Frequency: 3},
		{TermID: "t2", TermName: "Spirit", ThinkerID: "h", ThinkerName: "Hegel", Frequency: 2},
		{TermID: "t2", TermName: "Spirit", ThinkerID: "k", ThinkerName: "Kant", Frequency: 1},
	})

	byThinker := Assign(m, ByThinker, nil)
	if got := byThinker.ForBubble(m.Bubbles[2]); got != Default[0] {
		t.Errorf("by thinker: Kant bubble = %s, want %s", got, Default[0])
	}

	byTerm := Assign(m, ByTerm, nil)
	if got := byTerm.ForBubble(m.Bubbles[2]); got != Default[1] {
		t.Errorf("by term: Spirit bubble = %s, want %s", got, Default[1])
	}
	if byTerm.Mode() != ByTerm {
		t.Errorf("Mode = %s", byTerm.Mode())
	}

	colors := byTerm.Colors()
	colors["Reason"] = "#000000"
	if byTerm.Color("Reason") == "#000000" {
		t.Error("Colors should return a copy")
	}
}

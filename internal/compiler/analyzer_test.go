package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wodrun/internal/ir"
)

func TestKeywordAnalyzer(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"amrap upper case", "AMRAP", []string{ir.HintAMRAP}},
		{"emom with punctuation", "E.M.O.M. or EMOM:", []string{ir.HintEMOM}},
		{"for time", "21-15-9 For Time", []string{ir.HintForTime, ir.HintCountUp}},
		{"rest", "Rest", []string{ir.HintRest}},
		{"word boundary", "Restart Pushups", nil},
		{"split phrase", "for the time being", nil},
		{"plain effort", "Pushups", nil},
	}

	a := NewKeywordAnalyzer()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hints, frags := a.Analyze(stmt(1, effortFrag(tc.text)))
			assert.Equal(t, tc.want, hints)
			assert.Empty(t, frags)
		})
	}
}

func TestKeywordAnalyzer_FoldsCase(t *testing.T) {
	a := NewKeywordAnalyzer(Keyword{Phrase: "STRASSE", Hints: []string{"test.street"}})
	hints, _ := a.Analyze(stmt(1, effortFrag("Straße")))
	assert.Equal(t, []string{"test.street"}, hints)
}

func TestKeywordAnalyzer_Tabata(t *testing.T) {
	a := NewKeywordAnalyzer()

	hints, frags := a.Analyze(stmt(1, effortFrag("Tabata")))
	assert.Equal(t, []string{ir.HintEMOM, ir.HintTabata}, hints)
	require.Len(t, frags, 2)
	assert.Equal(t, ir.Fragment{Type: ir.FragmentTimer, Value: int64(30000), Class: ir.ClassHinted}, frags[0])
	assert.Equal(t, ir.Fragment{Type: ir.FragmentRounds, Value: int64(8), Class: ir.ClassHinted}, frags[1])

	_, frags = a.Analyze(stmt(2, effortFrag("Tabata"), timerFrag(20000), roundsFrag(int64(6))))
	assert.Empty(t, frags)
}

func TestAnnotate(t *testing.T) {
	amrap := stmt(1, timerFrag(1200000), effortFrag("AMRAP"))
	amrap.Hints = []string{ir.HintAMRAP}
	script := ir.MustScript(amrap, stmt(2, effortFrag("Pushups")))

	out := Annotate(script)
	got, ok := out.Get(1)
	require.True(t, ok)
	assert.Equal(t, []string{ir.HintAMRAP}, got.Hints, "hints are not duplicated")

	plain, ok := out.Get(2)
	require.True(t, ok)
	assert.Empty(t, plain.Hints)

	orig, _ := script.Get(1)
	assert.Same(t, amrap, orig)
	assert.NotSame(t, orig, got)
}

func TestAnnotate_DrivesStrategy(t *testing.T) {
	tabata := stmt(1, effortFrag("Tabata"))
	tabata.Children = []int{2}
	raw := ir.MustScript(tabata, child(2, 1, "Air Squats"))
	script := Annotate(raw)

	st, ok := script.Get(1)
	require.True(t, ok)
	s := New().Match([]*ir.Statement{st})
	require.NotNil(t, s)
	assert.Equal(t, "interval", s.Name())

	orig, _ := raw.Get(1)
	assert.Equal(t, "group", New().Match([]*ir.Statement{orig}).Name())
}

func TestAnnotate_CustomAnalyzer(t *testing.T) {
	heavy := AnalyzerFunc(func(st *ir.Statement) ([]string, []ir.Fragment) {
		if st.Has(ir.FragmentResistance) {
			return []string{"load.heavy"}, nil
		}
		return nil, nil
	})
	script := ir.MustScript(
		stmt(1, effortFrag("Deadlift"), ir.Fragment{Type: ir.FragmentResistance, Value: int64(140)}),
		stmt(2, effortFrag("Run")),
	)

	out := Annotate(script, heavy)
	a, _ := out.Get(1)
	b, _ := out.Get(2)
	assert.True(t, a.HasHint("load.heavy"))
	assert.False(t, b.HasHint("load.heavy"))
}

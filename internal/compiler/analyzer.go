package compiler

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/roach88/wodrun/internal/ir"
)

// Analyzer inspects a statement and proposes hints and extra fragments.
// Analyzers never see the runtime; their output is plain statement data.
type Analyzer interface {
	Analyze(st *ir.Statement) (hints []string, fragments []ir.Fragment)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(st *ir.Statement) ([]string, []ir.Fragment)

func (f AnalyzerFunc) Analyze(st *ir.Statement) ([]string, []ir.Fragment) { return f(st) }

// Annotate returns a copy of script with every analyzer applied to every
// statement. Hints are deduplicated; the input script is not modified.
func Annotate(script *ir.Script, analyzers ...Analyzer) *ir.Script {
	if len(analyzers) == 0 {
		analyzers = DefaultAnalyzers()
	}
	return script.Map(func(st *ir.Statement) *ir.Statement {
		out := st.Clone()
		for _, a := range analyzers {
			hints, frags := a.Analyze(out)
			for _, h := range hints {
				if !out.HasHint(h) {
					out.Hints = append(out.Hints, h)
				}
			}
			out.Fragments = append(out.Fragments, frags...)
		}
		return out
	})
}

// DefaultAnalyzers returns the keyword analyzer with the built-in vocabulary.
func DefaultAnalyzers() []Analyzer {
	return []Analyzer{NewKeywordAnalyzer()}
}

// Keyword maps a phrase to the hints and fragments it implies.
type Keyword struct {
	Phrase    string
	Hints     []string
	Fragments func(st *ir.Statement) []ir.Fragment
}

// KeywordAnalyzer matches phrases against a statement's label, ignoring
// case and punctuation. Phrases must match whole words.
type KeywordAnalyzer struct {
	keywords []Keyword
	fold     cases.Caser
}

// NewKeywordAnalyzer returns an analyzer for the given keywords, or the
// built-in vocabulary when none are given.
func NewKeywordAnalyzer(keywords ...Keyword) *KeywordAnalyzer {
	if len(keywords) == 0 {
		keywords = DefaultKeywords()
	}
	keywords = append([]Keyword(nil), keywords...)
	fold := cases.Fold()
	for i := range keywords {
		keywords[i].Phrase = normalize(fold, keywords[i].Phrase)
	}
	return &KeywordAnalyzer{keywords: keywords, fold: fold}
}

// DefaultKeywords is the built-in workout vocabulary.
func DefaultKeywords() []Keyword {
	return []Keyword{
		{Phrase: "amrap", Hints: []string{ir.HintAMRAP}},
		{Phrase: "emom", Hints: []string{ir.HintEMOM}},
		{Phrase: "for time", Hints: []string{ir.HintForTime, ir.HintCountUp}},
		{Phrase: "tabata", Hints: []string{ir.HintEMOM, ir.HintTabata}, Fragments: tabataDefaults},
		{Phrase: "rest", Hints: []string{ir.HintRest}},
	}
}

// tabataDefaults fills in the 30s interval and 8 rounds a bare "Tabata"
// statement leaves out.
func tabataDefaults(st *ir.Statement) []ir.Fragment {
	var out []ir.Fragment
	if !st.Has(ir.FragmentTimer) {
		out = append(out, ir.Fragment{Type: ir.FragmentTimer, Value: int64(30000), Class: ir.ClassHinted})
	}
	if !st.Has(ir.FragmentRounds) {
		out = append(out, ir.Fragment{Type: ir.FragmentRounds, Value: int64(8), Class: ir.ClassHinted})
	}
	return out
}

func (k *KeywordAnalyzer) Analyze(st *ir.Statement) ([]string, []ir.Fragment) {
	text := " " + normalize(k.fold, statementText(st)) + " "
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var hints []string
	var frags []ir.Fragment
	for _, kw := range k.keywords {
		if kw.Phrase == "" || !strings.Contains(text, " "+kw.Phrase+" ") {
			continue
		}
		hints = append(hints, kw.Hints...)
		if kw.Fragments != nil {
			frags = append(frags, kw.Fragments(st)...)
		}
	}
	return hints, frags
}

// statementText collects the words an athlete wrote, skipping numbers the
// loader already turned into timer and rounds fragments.
func statementText(st *ir.Statement) string {
	var parts []string
	for _, f := range st.Fragments {
		switch f.Type {
		case ir.FragmentEffort, ir.FragmentAction, ir.FragmentText:
			parts = append(parts, f.String())
		default:
			if f.Image != "" {
				parts = append(parts, f.Image)
			}
		}
	}
	return strings.Join(parts, " ")
}

// normalize case-folds s and collapses every run of non-alphanumerics to a
// single space.
func normalize(fold cases.Caser, s string) string {
	words := strings.FieldsFunc(fold.String(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}

package search

import "testing"

func TestParseBareWord(t *testing.T) {
	q := Parse("explosion")
	term, ok := q.Root.(*Term)
	if !ok || term.Value != "explosion" || term.Field != "" {
		t.Fatalf("expected bare free-word term, got %#v", q.Root)
	}
}

func TestParseFieldExpr(t *testing.T) {
	q := Parse("format=wav")
	term, ok := q.Root.(*Term)
	if !ok || term.Field != "format" || term.Op != OpEquals || term.Value != "wav" {
		t.Fatalf("expected field expr term, got %#v", q.Root)
	}
}

func TestParseAndOr(t *testing.T) {
	q := Parse("explosion AND format=wav")
	expr, ok := q.Root.(*Expr)
	if !ok || expr.Op != OpAnd {
		t.Fatalf("expected AND expression, got %#v", q.Root)
	}
	left, ok := expr.Left.(*Term)
	if !ok || left.Value != "explosion" {
		t.Fatalf("expected left free-word term, got %#v", expr.Left)
	}
	right, ok := expr.Right.(*Term)
	if !ok || right.Field != "format" {
		t.Fatalf("expected right field term, got %#v", expr.Right)
	}
}

func TestParseLeadingDashNegation(t *testing.T) {
	q := Parse("-explosion")
	not, ok := q.Root.(*Not)
	if !ok {
		t.Fatalf("expected negation, got %#v", q.Root)
	}
	term, ok := not.Child.(*Term)
	if !ok || term.Value != "explosion" {
		t.Fatalf("expected negated free word, got %#v", not.Child)
	}
}

func TestParseNotKeywordOnGroup(t *testing.T) {
	q := Parse("NOT (format=mp3 OR format=ogg)")
	not, ok := q.Root.(*Not)
	if !ok {
		t.Fatalf("expected negation wrapping group, got %#v", q.Root)
	}
	if _, ok := not.Child.(*Expr); !ok {
		t.Fatalf("expected group to parse as an expression, got %#v", not.Child)
	}
}

func TestParseQuotedPhrase(t *testing.T) {
	q := Parse(`"thunder clap"`)
	term, ok := q.Root.(*Term)
	if !ok || term.Value != "thunder clap" {
		t.Fatalf("expected quoted phrase term, got %#v", q.Root)
	}
}

func TestParseMalformedGroupRecovers(t *testing.T) {
	q := Parse("explosion AND (NOT)")
	// The malformed group (NOT with nothing to negate) is discarded; the
	// left-hand free word survives as the whole result.
	term, ok := q.Root.(*Term)
	if !ok || term.Value != "explosion" {
		t.Fatalf("expected recovery to leave the left-hand term, got %#v", q.Root)
	}
}

func TestParseTotalFailureFallsBackToFreeWord(t *testing.T) {
	q := Parse(")")
	term, ok := q.Root.(*Term)
	if !ok || term.Value != ")" {
		t.Fatalf("expected fallback free-word term equal to input, got %#v", q.Root)
	}
}

func TestFreeWordTerms(t *testing.T) {
	q := Parse("explosion AND format=wav OR thunder")
	terms := q.FreeWordTerms()
	if len(terms) != 2 || terms[0] != "explosion" || terms[1] != "thunder" {
		t.Fatalf("expected [explosion thunder], got %v", terms)
	}
}

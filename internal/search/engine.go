// Package search implements the lexical query language (spec §4.5) and the
// boolean/relevance search engine built on top of it (spec §4.6), grounded
// on original_source/application/search_engine/search_engine.py and
// original_source/domain/models/search.py.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arek-soma/sfxvault/internal/model"
	"github.com/arek-soma/sfxvault/internal/store"
)

// fieldKind drives how a field_expr's value is interpreted before it is
// compiled into SQL (spec §6 field-mapping table).
type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindDuration
	kindSize
	kindTag
)

type fieldSpec struct {
	column string
	kind   fieldKind
}

// fieldMap implements the spec §6 table mapping query identifiers onto
// record columns / relations.
var fieldMap = map[string]fieldSpec{
	"filename":   {"filename", kindString},
	"name":       {"filename", kindString},
	"path":       {"path", kindString},
	"duration":   {"duration_s", kindDuration},
	"length":     {"duration_s", kindDuration},
	"samplerate": {"sample_rate_hz", kindInt},
	"sample_rate": {"sample_rate_hz", kindInt},
	"bitdepth":   {"bit_depth", kindInt},
	"bit_depth":  {"bit_depth", kindInt},
	"channels":   {"channels", kindInt},
	"format":     {"format", kindString},
	"description": {"description", kindString},
	"size":       {"file_size", kindSize},
	"filesize":   {"file_size", kindSize},
	"tags":       {"", kindTag},
	"tag":        {"", kindTag},
}

// escapeLikeLiteral escapes SQL LIKE metacharacters so a literal substring
// search isn't corrupted by a stray `%`/`_` in the user's input.
func escapeLikeLiteral(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// globToLike translates shell-glob wildcards (`*`, `?`) into SQL LIKE
// wildcards (`%`, `_`) after escaping any existing LIKE metacharacters,
// per spec §4.5 Semantics.
func globToLike(s string) string {
	escaped := escapeLikeLiteral(s)
	r := strings.NewReplacer("*", "%", "?", "_")
	return r.Replace(escaped)
}

func hasGlobChars(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// compileStringComparison compiles an `=`/`!=`/`~`/`/` string field
// comparison. `~` and `/` (regex source, approximated) compile to a LIKE
// substring predicate, as does any `=` value containing glob wildcards;
// plain `=`/`!=` compile to exact equality.
func compileStringComparison(column string, op FieldOp, value string) (string, []any) {
	switch op {
	case OpNotEquals:
		return fmt.Sprintf("%s != ?", column), []any{value}
	case OpContains, OpRegexMatch:
		return fmt.Sprintf("%s LIKE ? ESCAPE '\\'", column), []any{"%" + escapeLikeLiteral(value) + "%"}
	default: // OpEquals, or bare word-style glob
		if hasGlobChars(value) {
			return fmt.Sprintf("%s LIKE ? ESCAPE '\\'", column), []any{globToLike(value)}
		}
		return fmt.Sprintf("%s = ?", column), []any{value}
	}
}

func sqlCompareOp(op FieldOp) string {
	switch op {
	case OpNotEquals:
		return "!="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	case OpGreaterEq:
		return ">="
	case OpLessEq:
		return "<="
	default:
		return "="
	}
}

// compileNumericComparison compiles an integer field comparison (channels,
// bit depth, sample rate).
func compileNumericComparison(column string, op FieldOp, value string) (string, []any) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		// Unparseable numeric literal never matches, but must not break the
		// surrounding boolean expression.
		return "1=0", nil
	}
	return fmt.Sprintf("%s %s ?", column, sqlCompareOp(op)), []any{n}
}

// compileTagTerm compiles a `tags`/`tag` relation. `=` and `~` both reduce
// to an equality-or-substring existence check against record_tags, since
// tags carry no further structure (spec §6).
func compileTagTerm(op FieldOp, value string) (string, []any) {
	exists := "EXISTS (SELECT 1 FROM record_tags rt WHERE rt.record_id = records.id AND %s)"
	switch op {
	case OpContains:
		return fmt.Sprintf(exists, "rt.tag LIKE ? ESCAPE '\\'"), []any{"%" + escapeLikeLiteral(value) + "%"}
	case OpNotEquals:
		return fmt.Sprintf("NOT "+exists, "rt.tag = ?"), []any{value}
	default:
		return fmt.Sprintf(exists, "rt.tag = ?"), []any{value}
	}
}

// compileTerm compiles a single Term into a SQL boolean fragment. Regex
// terms (`/.../, spec COMPARE "/") are approximated as a LIKE substring
// match against the regex source rather than evaluated as true regular
// expressions — see DESIGN.md for the rationale.
func compileTerm(t *Term) (string, []any) {
	if t.Field == "" {
		needle := "%" + escapeLikeLiteral(t.Value) + "%"
		return "(filename LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\')", []any{needle, needle}
	}

	spec, ok := fieldMap[t.Field]
	if !ok {
		// Unknown field identifier: never matches, but compiles cleanly.
		return "1=0", nil
	}

	switch spec.kind {
	case kindTag:
		return compileTagTerm(t.Op, t.Value)
	case kindInt:
		return compileNumericComparison(spec.column, t.Op, t.Value)
	case kindDuration:
		secs, ok := parseDuration(t.Value)
		if !ok {
			return "1=0", nil
		}
		return fmt.Sprintf("%s %s ?", spec.column, sqlCompareOp(t.Op)), []any{secs}
	case kindSize:
		bytes, ok := parseSize(t.Value)
		if !ok {
			return "1=0", nil
		}
		return fmt.Sprintf("%s %s ?", spec.column, sqlCompareOp(t.Op)), []any{bytes}
	default:
		return compileStringComparison(spec.column, t.Op, t.Value)
	}
}

// compile recursively lowers a parsed AST node into a SQL boolean
// expression and its positional arguments.
func compile(n Node) (string, []any) {
	switch v := n.(type) {
	case nil:
		return "1=1", nil
	case *Term:
		return compileTerm(v)
	case *Not:
		sql, args := compile(v.Child)
		return fmt.Sprintf("NOT (%s)", sql), args
	case *Expr:
		leftSQL, leftArgs := compile(v.Left)
		rightSQL, rightArgs := compile(v.Right)
		op := "AND"
		if v.Op == OpOr {
			op = "OR"
		}
		return fmt.Sprintf("(%s %s %s)", leftSQL, op, rightSQL), append(append([]any{}, leftArgs...), rightArgs...)
	default:
		return "1=1", nil
	}
}

// Filters holds the structured (non-lexical) constraints a caller can
// combine with a parsed query (spec §4.6 step 2).
type Filters struct {
	MinDuration *float64
	MaxDuration *float64
	SampleRates []uint32
	Formats     []string
	Channels    []uint8
	Tags        []string
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ", ")
}

// compileFilters lowers a Filters struct into an additional SQL fragment
// ANDed alongside the parsed query's predicate.
func compileFilters(f Filters) (string, []any) {
	var clauses []string
	var args []any

	if f.MinDuration != nil {
		clauses = append(clauses, "duration_s >= ?")
		args = append(args, *f.MinDuration)
	}
	if f.MaxDuration != nil {
		clauses = append(clauses, "duration_s <= ?")
		args = append(args, *f.MaxDuration)
	}
	if len(f.SampleRates) > 0 {
		clauses = append(clauses, fmt.Sprintf("sample_rate_hz IN (%s)", placeholders(len(f.SampleRates))))
		for _, r := range f.SampleRates {
			args = append(args, r)
		}
	}
	if len(f.Formats) > 0 {
		clauses = append(clauses, fmt.Sprintf("format IN (%s)", placeholders(len(f.Formats))))
		for _, fmtStr := range f.Formats {
			args = append(args, fmtStr)
		}
	}
	if len(f.Channels) > 0 {
		clauses = append(clauses, fmt.Sprintf("channels IN (%s)", placeholders(len(f.Channels))))
		for _, c := range f.Channels {
			args = append(args, c)
		}
	}
	for _, tag := range f.Tags {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM record_tags rt WHERE rt.record_id = records.id AND rt.tag = ?)")
		args = append(args, tag)
	}

	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}

// RecordLister is the subset of *store.Store the engine depends on,
// allowing tests to substitute a fake in-memory lister.
type RecordLister interface {
	List(opts store.ListOptions) ([]*model.AudioRecord, int, error)
}

// Result is the outcome of one Search call.
type Result struct {
	Records       []*model.AudioRecord
	Scores        map[int64]float64
	Total         int
	ExecutionTime time.Duration
}

// Engine evaluates parsed queries plus structured filters against a
// RecordLister and ranks the matches (spec §4.6).
type Engine struct {
	lister RecordLister
}

// NewEngine returns an Engine backed by lister.
func NewEngine(lister RecordLister) *Engine {
	return &Engine{lister: lister}
}

// Search compiles q and filters into one SQL predicate, fetches the
// matching page from the lister, scores each result by relevance to q's
// free-word terms, and returns them sorted by descending score (spec §4.6
// steps 3-5). Ties preserve the lister's own ordering (ascending id).
func (e *Engine) Search(q *Query, filters Filters, limit, offset int) (*Result, error) {
	start := time.Now()

	querySQL, queryArgs := compile(q.Root)
	filterSQL, filterArgs := compileFilters(filters)

	where := fmt.Sprintf("(%s) AND (%s)", querySQL, filterSQL)
	args := append(append([]any{}, queryArgs...), filterArgs...)

	records, total, err := e.lister.List(store.ListOptions{
		Where:  where,
		Args:   args,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("search: list failed: %w", err)
	}

	terms := q.FreeWordTerms()
	scores := make(map[int64]float64, len(records))
	for _, r := range records {
		scores[r.ID] = relevanceScore(r.Filename, terms)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return scores[records[i].ID] > scores[records[j].ID]
	})

	return &Result{
		Records:       records,
		Scores:        scores,
		Total:         total,
		ExecutionTime: time.Since(start),
	}, nil
}

var (
	wordBoundaryMu    sync.Mutex
	wordBoundaryCache = map[string]*regexp.Regexp{}
)

func wordBoundaryMatch(s, term string) bool {
	wordBoundaryMu.Lock()
	re, ok := wordBoundaryCache[term]
	if !ok {
		re = regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(term)) + `\b`)
		wordBoundaryCache[term] = re
	}
	wordBoundaryMu.Unlock()
	return re.MatchString(strings.ToLower(s))
}

// relevanceScore implements the spec §4.6 step 4 substring/word-boundary
// heuristic: +2.0 for a case-insensitive substring match in filename, +1.0
// more for a whole-word match. Queries with no free-word terms score every
// result equally (1.0), preserving the lister's ordering.
func relevanceScore(filename string, terms []string) float64 {
	if len(terms) == 0 {
		return 1.0
	}

	lower := strings.ToLower(filename)
	var score float64
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			score += 2.0
			if wordBoundaryMatch(filename, term) {
				score += 1.0
			}
		}
	}
	return score
}

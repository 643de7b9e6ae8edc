package search

// Operator is a boolean combinator joining two query nodes (spec C5 grammar
// `expr := term { (AND|OR) term }*`).
type Operator string

const (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
)

// FieldOp is a field-comparison operator (spec C5 grammar `COMPARE`).
type FieldOp string

const (
	OpEquals     FieldOp = "="
	OpNotEquals  FieldOp = "!="
	OpGreater    FieldOp = ">"
	OpLess       FieldOp = "<"
	OpGreaterEq  FieldOp = ">="
	OpLessEq     FieldOp = "<="
	OpContains   FieldOp = "~"
	OpRegexMatch FieldOp = "/"
)

// Node is any element of a parsed query's abstract syntax tree.
type Node interface {
	node()
}

// Term is a single search atom: a bare word (Field == "") matched by
// substring against the designated free-text fields, or a field comparison
// (Field != "").
type Term struct {
	Value string
	Field string
	Op    FieldOp
}

func (*Term) node() {}

// Not wraps any node in a logical negation, per the grammar's
// `term := [NOT | '-'] factor` — NOT can precede a bare atom or a
// parenthesized group.
type Not struct {
	Child Node
}

func (*Not) node() {}

// Expr is a compound boolean expression.
type Expr struct {
	Left  Node
	Op    Operator
	Right Node
}

func (*Expr) node() {}

// Query is the result of parsing one query string.
type Query struct {
	QueryString string
	Root        Node // nil for an empty query
}

// FreeWordTerms collects the values of every unfielded Term in the query,
// in left-to-right order, for relevance scoring (spec §4.6 step 4) and
// TF-IDF lookups.
func (q *Query) FreeWordTerms() []string {
	var terms []string
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case nil:
			return
		case *Term:
			if v.Field == "" {
				terms = append(terms, v.Value)
			}
		case *Not:
			walk(v.Child)
		case *Expr:
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(q.Root)
	return terms
}

package model

// Condition types. The token spelling is part of the stored predicate
// format and is matched verbatim by the evaluator.
const (
	ConditionExitCode      = "exitCode"
	ConditionOutputPattern = "outputPattern"
	ConditionThreshold     = "threshold"
	ConditionJSONPath      = "jsonPath"
	ConditionComposite     = "composite"
)

// Comparison operators.
const (
	OpEq          = "eq"
	OpNe          = "ne"
	OpGt          = "gt"
	OpGte         = "gte"
	OpLt          = "lt"
	OpLte         = "lte"
	OpContains    = "contains"
	OpNotContains = "notContains"
	OpRegex       = "regex"
	OpIn          = "in"
	OpNotIn       = "notIn"
)

// Composite combinators. "not" applies to the first nested condition only.
const (
	CombinatorAnd = "and"
	CombinatorOr  = "or"
	CombinatorNot = "not"
)

// Output pattern match modes.
const (
	MatchSubstring = "substring"
	MatchPrefix    = "prefix"
	MatchSuffix    = "suffix"
	MatchRegex     = "regex"
)

// Condition is a stored predicate over a step result. Field holds a dot path
// for threshold/jsonPath types; array elements are addressed as "field[0]".
type Condition struct {
	Type       string      `json:"type"`
	Field      string      `json:"field,omitempty"`
	Operator   string      `json:"operator,omitempty"`
	Value      any         `json:"value,omitempty"`
	Pattern    string      `json:"pattern,omitempty"`
	Match      string      `json:"match,omitempty"`
	IgnoreCase bool        `json:"ignore_case,omitempty"`
	Combinator string      `json:"combinator,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
}

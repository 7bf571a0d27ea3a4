// Package condition evaluates branch predicates against step results.
// Evaluation is pure and fails closed: malformed predicates, missing fields
// and type mismatches all evaluate to false.
package condition

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/verdane/fleetops/internal/model"
)

// Evaluate returns the predicate's verdict for the given step result.
func Evaluate(cond *model.Condition, result *model.StepResult) bool {
	if cond == nil || result == nil {
		return false
	}

	switch cond.Type {
	case model.ConditionExitCode:
		return evalExitCode(cond, result)
	case model.ConditionOutputPattern:
		return evalOutputPattern(cond, result)
	case model.ConditionThreshold:
		return evalThreshold(cond, result)
	case model.ConditionJSONPath:
		return evalJSONPath(cond, result)
	case model.ConditionComposite:
		return evalComposite(cond, result)
	default:
		return false
	}
}

func evalExitCode(cond *model.Condition, result *model.StepResult) bool {
	if result.ExitCode == nil {
		return false
	}
	return compareNumeric(float64(*result.ExitCode), cond.Operator, cond.Value)
}

func evalOutputPattern(cond *model.Condition, result *model.StepResult) bool {
	text := result.Output
	pattern := cond.Pattern
	if pattern == "" {
		return false
	}

	if cond.Match == model.MatchRegex {
		if cond.IgnoreCase {
			pattern = "(?i)" + pattern
		}
		matched, err := regexp.MatchString(pattern, text)
		if err != nil {
			return false
		}
		return matched
	}

	if cond.IgnoreCase {
		text = strings.ToLower(text)
		pattern = strings.ToLower(pattern)
	}

	switch cond.Match {
	case model.MatchPrefix:
		return strings.HasPrefix(text, pattern)
	case model.MatchSuffix:
		return strings.HasSuffix(text, pattern)
	case model.MatchSubstring, "":
		return strings.Contains(text, pattern)
	default:
		return false
	}
}

func evalThreshold(cond *model.Condition, result *model.StepResult) bool {
	raw, ok := lookupPath(parseOutput(result.Output), cond.Field)
	if !ok {
		return false
	}
	got, ok := toFloat(raw)
	if !ok {
		return false
	}
	return compareNumeric(got, cond.Operator, cond.Value)
}

func evalJSONPath(cond *model.Condition, result *model.StepResult) bool {
	raw, ok := lookupPath(parseOutput(result.Output), cond.Field)
	if !ok {
		return false
	}
	return compare(raw, cond.Operator, cond.Value)
}

func evalComposite(cond *model.Condition, result *model.StepResult) bool {
	if len(cond.Conditions) == 0 {
		return false
	}

	switch cond.Combinator {
	case model.CombinatorAnd:
		for i := range cond.Conditions {
			if !Evaluate(&cond.Conditions[i], result) {
				return false
			}
		}
		return true
	case model.CombinatorOr:
		for i := range cond.Conditions {
			if Evaluate(&cond.Conditions[i], result) {
				return true
			}
		}
		return false
	case model.CombinatorNot:
		return !Evaluate(&cond.Conditions[0], result)
	default:
		return false
	}
}

// parseOutput decodes step output as JSON. Output that is not valid JSON is
// still addressable under the synthetic "output" key.
func parseOutput(output string) any {
	var doc any
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return map[string]any{"output": output}
	}
	return doc
}

// lookupPath walks a dot path with optional [n] array segments, e.g.
// "disks[0].usagePercent".
func lookupPath(doc any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	current := doc
	for _, segment := range strings.Split(path, ".") {
		key := segment
		var indexes []int
		for {
			open := strings.IndexByte(key, '[')
			if open < 0 {
				break
			}
			closing := strings.IndexByte(key[open:], ']')
			if closing < 0 {
				return nil, false
			}
			n, err := strconv.Atoi(key[open+1 : open+closing])
			if err != nil {
				return nil, false
			}
			indexes = append(indexes, n)
			key = key[:open] + key[open+closing+1:]
		}

		if key != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = obj[key]
			if !ok {
				return nil, false
			}
		}

		for _, n := range indexes {
			arr, ok := current.([]any)
			if !ok || n < 0 || n >= len(arr) {
				return nil, false
			}
			current = arr[n]
		}
	}
	return current, true
}

func compareNumeric(got float64, operator string, value any) bool {
	want, ok := toFloat(value)
	if !ok {
		return false
	}
	switch operator {
	case model.OpEq:
		return got == want
	case model.OpNe:
		return got != want
	case model.OpGt:
		return got > want
	case model.OpGte:
		return got >= want
	case model.OpLt:
		return got < want
	case model.OpLte:
		return got <= want
	default:
		return false
	}
}

func compare(raw any, operator string, value any) bool {
	switch operator {
	case model.OpEq:
		return looseEqual(raw, value)
	case model.OpNe:
		return !looseEqual(raw, value)
	case model.OpGt, model.OpGte, model.OpLt, model.OpLte:
		got, ok := toFloat(raw)
		if !ok {
			return false
		}
		return compareNumeric(got, operator, value)
	case model.OpContains:
		return strings.Contains(stringify(raw), stringify(value))
	case model.OpNotContains:
		return !strings.Contains(stringify(raw), stringify(value))
	case model.OpRegex:
		matched, err := regexp.MatchString(stringify(value), stringify(raw))
		if err != nil {
			return false
		}
		return matched
	case model.OpIn:
		return member(raw, value)
	case model.OpNotIn:
		if _, ok := asList(value); !ok {
			return false
		}
		return !member(raw, value)
	default:
		return false
	}
}

func member(raw, value any) bool {
	list, ok := asList(value)
	if !ok {
		return false
	}
	for _, item := range list {
		if looseEqual(raw, item) {
			return true
		}
	}
	return false
}

func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		list := make([]any, len(v))
		for i, s := range v {
			list[i] = s
		}
		return list, true
	default:
		return nil, false
	}
}

// looseEqual compares numerically when both sides are numeric, otherwise by
// string rendering. JSON decoding yields float64 for every number, so strict
// equality would miss int-typed values.
func looseEqual(a, b any) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa == fb
	}
	return stringify(a) == stringify(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

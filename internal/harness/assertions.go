package harness

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Plan     string // Plan description for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Plan != "" {
		fmt.Fprintf(&buf, "\nPlan:\n%s", e.Plan)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. An empty slice means everything held.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertResult:
		return assertResult(result, a.Value)
	case AssertError:
		return assertError(result, a.Code)
	case AssertLoops:
		return assertLoops(result, a.Loops)
	case AssertSortPieces:
		return assertSortPieces(result, a.Count)
	case AssertMatchesReference:
		return assertMatchesReference(result)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertResult checks the terminal's value. Numbers compare by value, so
// an expected 4 matches an average of 4.0.
func assertResult(result *Result, node yaml.Node) error {
	var want any
	if err := node.Decode(&want); err != nil {
		return fmt.Errorf("decode expected value: %w", err)
	}
	if result.ErrorCode != "" {
		return &AssertionError{
			Type:     AssertResult,
			Expected: FormatValue(want),
			Actual:   "error " + result.ErrorCode,
			Plan:     result.Plan,
		}
	}
	if !equalValues(want, result.Output) {
		return &AssertionError{
			Type:     AssertResult,
			Expected: FormatValue(want),
			Actual:   FormatValue(result.Output),
			Plan:     result.Plan,
		}
	}
	return nil
}

func assertError(result *Result, code string) error {
	if result.ErrorCode == code {
		return nil
	}
	actual := "error " + result.ErrorCode
	if result.ErrorCode == "" {
		actual = "result " + FormatValue(result.Output)
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: "error " + code,
		Actual:   actual,
		Plan:     result.Plan,
	}
}

func assertLoops(result *Result, loops []string) error {
	if slices.Equal(loops, result.Loops) {
		return nil
	}
	return &AssertionError{
		Type:     AssertLoops,
		Expected: strings.Join(loops, ", "),
		Actual:   strings.Join(result.Loops, ", "),
		Plan:     result.Plan,
	}
}

func assertSortPieces(result *Result, count int) error {
	if result.SortPieces == count {
		return nil
	}
	return &AssertionError{
		Type:     AssertSortPieces,
		Expected: fmt.Sprintf("%d sort pieces", count),
		Actual:   fmt.Sprintf("%d sort pieces", result.SortPieces),
		Plan:     result.Plan,
	}
}

// assertMatchesReference checks that the fused run and the naive
// evaluator agree on the value or on the error code.
func assertMatchesReference(result *Result) error {
	if result.ErrorCode == result.ReferenceErrorCode &&
		(result.ErrorCode != "" || reflect.DeepEqual(result.Output, result.Reference)) {
		return nil
	}
	return &AssertionError{
		Type:     AssertMatchesReference,
		Expected: outcome(result.Reference, result.ReferenceErrorCode),
		Actual:   outcome(result.Output, result.ErrorCode),
		Plan:     result.Plan,
	}
}

func outcome(v any, code string) string {
	if code != "" {
		return "error " + code
	}
	return "result " + FormatValue(v)
}

// FormatValue renders a terminal result. fmt sorts map keys, so the output
// is stable.
func FormatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

// equalValues compares an expected value decoded from YAML with a result.
// Numbers compare numerically and string-keyed YAML maps match any-keyed
// result maps.
func equalValues(want, got any) bool {
	if wf, ok := toFloat(want); ok {
		gf, ok := toFloat(got)
		return ok && wf == gf
	}

	switch w := want.(type) {
	case []any:
		g, ok := got.([]any)
		if !ok || len(w) != len(g) {
			return false
		}
		for i := range w {
			if !equalValues(w[i], g[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		m := make(map[any]any, len(w))
		for k, v := range w {
			m[k] = v
		}
		return equalValues(m, got)
	case map[any]any:
		g, ok := got.(map[any]any)
		if !ok || len(w) != len(g) {
			return false
		}
		for k, wv := range w {
			gv, ok := g[k]
			if !ok || !equalValues(wv, gv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(want, got)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

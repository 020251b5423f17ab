package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario is one executable check of a chain: the chain itself, an input
// sequence, and assertions over the plan and the result.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Chain has the same shape as a CUE chain definition: source, ops and
	// terminal.
	Chain map[string]any `yaml:"chain"`

	// Input is the source sequence. Elements are YAML scalars (ints,
	// floats, strings, bools).
	Input []any `yaml:"input"`

	// NoFold disables the leading-fold optimization for locate-first
	// terminals.
	NoFold bool `yaml:"no_fold,omitempty"`

	// Assertions validate the plan and the result.
	// Supported types: result, error, loops, sort_pieces, matches_reference
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the plan or the outcome of running it.
type Assertion struct {
	// Type specifies the assertion type:
	// - "result": the terminal's value equals Value
	// - "error": the run fails with runtime error Code
	// - "loops": the pieces use exactly Loops, in order
	// - "sort_pieces": the plan has Count sort pieces
	// - "matches_reference": the fused run agrees with the naive evaluator
	Type string `yaml:"type"`

	// Value is the expected result (used by result). A node is kept so an
	// explicit null can be told apart from a missing value.
	Value yaml.Node `yaml:"value,omitempty"`

	// Code is the expected runtime error code (used by error).
	Code string `yaml:"code,omitempty"`

	// Loops is the expected loop per piece (used by loops).
	Loops []string `yaml:"loops,omitempty"`

	// Count is the expected number of sort pieces (used by sort_pieces).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertResult           = "result"
	AssertError            = "error"
	AssertLoops            = "loops"
	AssertSortPieces       = "sort_pieces"
	AssertMatchesReference = "matches_reference"
)

var loopNames = []string{"forward", "backward", "sort"}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml file in dir, in file name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Chain) == 0 {
		return fmt.Errorf("chain is required")
	}
	if _, ok := s.Chain["terminal"]; !ok {
		return fmt.Errorf("chain.terminal is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, v := range s.Input {
		if v == nil {
			return fmt.Errorf("input[%d]: null elements are not supported", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertResult:
		if a.Value.Kind == 0 {
			return fmt.Errorf("assertions[%d]: value is required for result", index)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	case AssertLoops:
		if len(a.Loops) == 0 {
			return fmt.Errorf("assertions[%d]: loops list is required for loops", index)
		}
		for _, l := range a.Loops {
			if !slices.Contains(loopNames, l) {
				return fmt.Errorf("assertions[%d]: unknown loop %q", index, l)
			}
		}
	case AssertSortPieces:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for sort_pieces", index)
		}
	case AssertMatchesReference:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

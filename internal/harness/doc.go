// Package harness runs chain scenarios as executable contract tests.
//
// A scenario names a chain, an input sequence and assertions. The harness
// compiles the chain through the CUE compiler, builds and caches its plan,
// runs it with the interpreting backend and with the naive reference
// evaluator, then checks the assertions.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	chain:
//	  source: {static_count: true, indexed: true}
//	  ops:
//	    - filter: even
//	    - sort_by: mod3
//	      dir: desc
//	  terminal: to_array
//	input: [3, 8, 5, 8, 2]
//	assertions:
//	  - type: result
//	    value: [8, 8, 2]
//	  - type: loops
//	    loops: [forward, sort]
//
// Unknown fields are rejected, so a misspelled key fails loudly.
//
// # Assertion Types
//
//   - result: the terminal's value equals value (numbers compare by value)
//   - error: the run fails with the given runtime error code
//   - loops: the plan's pieces use exactly these loops, in order
//   - sort_pieces: the plan has count sort pieces
//   - matches_reference: the fused run agrees with the naive evaluator
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store with a fixed
// run ID derived from the scenario name. The plan is saved and read back,
// and a stored plan that describes differently fails the scenario.
//
// RunWithGolden snapshots the plan description, input and outcome under
// testdata/golden, so any change to decomposition shows up as a diff.
package harness

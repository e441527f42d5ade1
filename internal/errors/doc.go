// Package errors provides the coded, user-facing errors printed by the
// reactivity command.
//
// Every failure the CLI can report has a code that maps to a short message,
// a longer explanation and a documentation link:
//
//	R0xx  runtime (readonly mutations, ref type mismatches, loop shutdown)
//	C1xx  configuration (reactivity.json)
//	S2xx  scenario files
//	P3xx  snapshots and stores
//	L4xx  command line usage
//
// # Usage
//
//	err := errors.New("S202").
//	    WithLocation("counter.yaml", 14, 9).
//	    WithSuggestion(`Paths are dot separated, for example "items.0.name"`)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR S202: Unknown path
//	//
//	//   counter.yaml:14:9
//	//
//	//     12 │ steps:
//	//     13 │   - op: set
//	//   → 14 │     path: itms.0
//	//        │         ^
//	//     15 │     value: 3
//	//
//	//   Hint: Paths are dot separated, for example "items.0.name"
//	//
//	//   Learn more: https://vango.dev/docs/reactivity/errors/S202
//
// Classify maps the sentinel errors of the reactivity and persist packages
// onto their codes so the CLI can print them the same way.
package errors

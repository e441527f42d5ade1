package errors

import "sort"

// ErrorTemplate defines a registered error code.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://vango.dev/docs/reactivity/errors/"

func tmpl(category Category, code, message, detail string) ErrorTemplate {
	return ErrorTemplate{Category: category, Message: message, Detail: detail, DocURL: docBase + code}
}

var registry = map[string]ErrorTemplate{
	// Runtime (R001-R099)
	"R001": tmpl(CategoryRuntime, "R001", "Readonly mutation refused",
		"A write, delete or array mutation was attempted through a readonly view. The target was not changed and no effect ran."),
	"R002": tmpl(CategoryRuntime, "R002", "Effect panicked",
		"An effect, computed getter or watch callback panicked. The panic was recovered by the loop and the remaining jobs were flushed."),
	"R003": tmpl(CategoryRuntime, "R003", "Ref type mismatch",
		"A value of the wrong type was written to a typed ref through its untyped interface."),
	"R004": tmpl(CategoryRuntime, "R004", "Value is not reactive",
		"The operation needs a reactive or readonly view, or a ref. Wrap the raw object with Reactive first."),
	"R005": tmpl(CategoryRuntime, "R005", "Loop closed",
		"A task was posted to an event loop that has already been closed."),
	"R006": tmpl(CategoryRuntime, "R006", "Loop queue full",
		"The event loop queue is full. The task was dropped."),

	// Configuration (C101-C199)
	"C101": tmpl(CategoryConfig, "C101", "Invalid reactivity.json",
		"The configuration file could not be parsed as JSON."),
	"C102": tmpl(CategoryConfig, "C102", "Invalid log level",
		`logLevel must be one of "debug", "info", "warn" or "error".`),
	"C103": tmpl(CategoryConfig, "C103", "Invalid log format",
		`logFormat must be "text" or "json".`),
	"C104": tmpl(CategoryConfig, "C104", "Invalid readonly policy",
		`readonly must be "warn", "panic" or "silent".`),
	"C105": tmpl(CategoryConfig, "C105", "Invalid inspector settings",
		"The inspector address must be host:port and its buffer and rate must be positive."),
	"C106": tmpl(CategoryConfig, "C106", "Invalid persist settings",
		"Snapshots need either a directory or an S3 bucket, and the S3 prefix must not start with a slash."),

	// Scenario (S201-S299)
	"S201": tmpl(CategoryScenario, "S201", "Invalid scenario file",
		"The scenario could not be parsed. Scenarios are YAML or JSON documents with state, effects, computed, watches and steps."),
	"S202": tmpl(CategoryScenario, "S202", "Unknown path",
		"A path does not resolve to a field or array element of the scenario state."),
	"S203": tmpl(CategoryScenario, "S203", "Unknown step operation",
		"Step ops are set, delete, push, pop, shift, unshift, length and flush."),
	"S204": tmpl(CategoryScenario, "S204", "Wrong target for step",
		"Array operations need a path to an array and length needs an integer value."),
	"S205": tmpl(CategoryScenario, "S205", "Invalid watch",
		`A watch needs a path, and its flush mode must be "sync" or "post".`),
	"S206": tmpl(CategoryScenario, "S206", "Duplicate name",
		"Effect, computed and watch names must be unique within a scenario."),

	// Persist (P301-P399)
	"P301": tmpl(CategoryPersist, "P301", "Snapshot save failed",
		"The snapshot store rejected the write."),
	"P302": tmpl(CategoryPersist, "P302", "Snapshot not found",
		"No snapshot was saved under this name."),
	"P303": tmpl(CategoryPersist, "P303", "Invalid snapshot name",
		`Snapshot names are built from ASCII letters, digits and the characters ".-_", and may not be "." or "..".`),
	"P304": tmpl(CategoryPersist, "P304", "Cyclic state",
		"The state refers to itself and cannot be written as a snapshot."),
	"P305": tmpl(CategoryPersist, "P305", "Corrupt snapshot",
		"The snapshot document has trailing data after the state."),

	// CLI (L401-L499)
	"L401": tmpl(CategoryCLI, "L401", "Scenario file required",
		"Pass the scenario file as the first argument."),
	"L402": tmpl(CategoryCLI, "L402", "No snapshot store configured",
		"Set persist.dir or persist.s3.bucket in reactivity.json, or pass --dir or --bucket."),
	"L403": tmpl(CategoryCLI, "L403", "Inspector server failed",
		"The inspector HTTP server stopped with an error. The address may already be in use."),
	"L404": tmpl(CategoryCLI, "L404", "AWS configuration failed",
		"The AWS SDK could not load credentials or a region for the S3 store."),
}

// GetAllCodes returns all registered codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for a code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces a template.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}

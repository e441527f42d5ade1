package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/vango-dev/reactivity/pkg/persist"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

// Category groups error codes.
type Category string

const (
	CategoryRuntime  Category = "runtime"
	CategoryConfig   Category = "config"
	CategoryScenario Category = "scenario"
	CategoryPersist  Category = "persist"
	CategoryCLI      Category = "cli"
)

// Location is a position in a config or scenario file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Error is a coded error with an optional file location and a hint.
type Error struct {
	// Code is the registry key, e.g. "S202".
	Code string

	Category Category
	Message  string
	Detail   string

	// Location points into the file that caused the error, if any.
	Location *Location

	// Context holds the file lines around Location.
	Context []string

	Suggestion string
	DocURL     string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithLocation records a file position and reads the surrounding lines.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line)
	return e
}

// WithSuggestion adds a fix hint.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap sets the underlying error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// contextRadius is the number of lines shown on each side of a location.
const contextRadius = 2

// contextStart is the line number of the first context line.
func contextStart(line int) int {
	return max(1, line-contextRadius)
}

func readContextLines(filename string, targetLine int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := contextStart(targetLine)
	endLine := targetLine + contextRadius

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}
	return lines
}

// New creates an Error from a registered code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{Code: code, Message: "Unknown error"}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates an uncoded Error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// FromError wraps err under code. An *Error anywhere in the chain is
// returned unchanged.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if stderrors.As(err, &ce) {
		return ce
	}
	return New(code).Wrap(err)
}

// sentinels maps library errors to their codes, checked in order.
var sentinels = []struct {
	err  error
	code string
}{
	{reactivity.ErrReadonly, "R001"},
	{reactivity.ErrRefType, "R003"},
	{reactivity.ErrNotReactive, "R004"},
	{reactivity.ErrLoopClosed, "R005"},
	{reactivity.ErrQueueFull, "R006"},
	{persist.ErrNotFound, "P302"},
	{persist.ErrInvalidName, "P303"},
	{persist.ErrCycle, "P304"},
	{persist.ErrTrailingData, "P305"},
}

// Classify wraps err under the code of the first known sentinel it matches,
// or under fallback.
func Classify(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if stderrors.As(err, &ce) {
		return ce
	}
	var d *reactivity.Diagnostic
	if stderrors.As(err, &d) && d.Code != "" {
		return New(d.Code).Wrap(err)
	}
	for _, s := range sentinels {
		if stderrors.Is(err, s.err) {
			return New(s.code).Wrap(err)
		}
	}
	return New(fallback).Wrap(err)
}

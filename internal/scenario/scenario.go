// Package scenario loads and runs scripted reactivity sessions.
//
// A scenario is a YAML (or JSON) document describing an initial state, the
// effects, computed values and watchers that observe it, and a list of
// steps that mutate it:
//
//	state:
//	  count: 0
//	  items: [a, b]
//	effects:
//	  - name: counter
//	    path: count
//	computed:
//	  - name: size
//	    paths: [items.length, count]
//	watches:
//	  - name: items
//	    path: items
//	    deep: true
//	    flush: post
//	steps:
//	  - {op: set, path: count, value: 1}
//	  - {op: push, path: items, value: c}
//	  - {op: flush}
//
// Paths are dot separated keys and array indices. A path starting with "@"
// names a computed value.
package scenario

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactivity/internal/errors"
)

// Step ops.
const (
	OpSet     = "set"
	OpDelete  = "delete"
	OpPush    = "push"
	OpPop     = "pop"
	OpShift   = "shift"
	OpUnshift = "unshift"
	OpLength  = "length"
	OpFlush   = "flush"
)

// Computed ops.
const (
	ComputeSum    = "sum"
	ComputeConcat = "concat"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Name     string     `yaml:"name"`
	State    yaml.Node  `yaml:"state"`
	Effects  []Effect   `yaml:"effects"`
	Computed []Computed `yaml:"computed"`
	Watches  []Watch    `yaml:"watches"`
	Steps    []Step     `yaml:"steps"`

	// File is the path the scenario was loaded from, if any.
	File string `yaml:"-"`
}

// Effect prints the value at Path every time it runs.
type Effect struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Computed derives a value from several paths.
type Computed struct {
	Name  string   `yaml:"name"`
	Paths []string `yaml:"paths"`

	// Op is sum (the default) or concat.
	Op string `yaml:"op"`
}

// Watch reports changes to the value at Path.
type Watch struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path"`
	Flush     string `yaml:"flush"`
	Immediate bool   `yaml:"immediate"`
	Deep      bool   `yaml:"deep"`

	// Depth bounds a deep watch. Zero means unbounded.
	Depth int `yaml:"depth"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// UnmarshalYAML records the position of the watch in the file.
func (w *Watch) UnmarshalYAML(n *yaml.Node) error {
	type plain Watch
	if err := n.Decode((*plain)(w)); err != nil {
		return err
	}
	w.Line, w.Column = n.Line, n.Column
	return nil
}

// Step is one mutation of the state.
type Step struct {
	Op    string    `yaml:"op"`
	Path  string    `yaml:"path"`
	Value yaml.Node `yaml:"value"`

	// Count repeats pop and shift. Zero means once.
	Count int `yaml:"count"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// UnmarshalYAML records the position of the step in the file.
func (s *Step) UnmarshalYAML(n *yaml.Node) error {
	type plain Step
	if err := n.Decode((*plain)(s)); err != nil {
		return err
	}
	s.Line, s.Column = n.Line, n.Column
	return nil
}

// Parse decodes a scenario from YAML or JSON. Unknown fields are errors.
func Parse(data []byte) (*Scenario, error) {
	sc, err := decode(data)
	if err != nil {
		return nil, errors.New("S201").Wrap(err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// LoadFile reads and parses the scenario at path. Validation errors point
// at the offending line.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("S201").Wrap(err)
	}
	sc, err := decode(data)
	if err != nil {
		return nil, errors.New("S201").Wrap(fmt.Errorf("%s: %w", path, err))
	}
	sc.File = path
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func decode(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, stderrors.New("empty document")
		}
		return nil, err
	}
	return &sc, nil
}

// Validate checks names, ops and watch settings without running anything.
func (sc *Scenario) Validate() error {
	if sc.State.Kind != 0 && sc.State.Kind != yaml.MappingNode {
		return sc.at(errors.New("S201").WithDetail("state must be a mapping."), sc.State.Line, sc.State.Column)
	}

	seen := make(map[string]bool)
	unique := func(kind, name string) error {
		if name == "" {
			return nil
		}
		if seen[name] {
			return errors.New("S206").WithDetail(fmt.Sprintf("%s %q is declared twice.", kind, name))
		}
		seen[name] = true
		return nil
	}
	for _, eff := range sc.Effects {
		if err := unique("effect", eff.Name); err != nil {
			return err
		}
	}
	for _, c := range sc.Computed {
		if err := unique("computed", c.Name); err != nil {
			return err
		}
		if c.Name == "" {
			return errors.New("S206").WithDetail("Computed values need a name so paths can refer to them.")
		}
		switch c.Op {
		case "", ComputeSum, ComputeConcat:
		default:
			return errors.New("S201").WithDetail(fmt.Sprintf("computed %q has op %q; expected sum or concat.", c.Name, c.Op))
		}
	}
	for _, w := range sc.Watches {
		if err := unique("watch", w.Name); err != nil {
			return err
		}
		if _, err := parseFlush(w.Flush); err != nil {
			return sc.at(errors.New("S205").Wrap(err), w.Line, w.Column)
		}
	}
	for _, s := range sc.Steps {
		switch s.Op {
		case OpSet, OpDelete, OpPush, OpPop, OpShift, OpUnshift, OpLength, OpFlush:
		default:
			return sc.at(errors.New("S203").WithSuggestion(fmt.Sprintf("%q is not a step op", s.Op)), s.Line, s.Column)
		}
	}
	return nil
}

// at attaches a file position to err when the scenario came from a file.
func (sc *Scenario) at(err *errors.Error, line, column int) *errors.Error {
	if sc.File != "" && line > 0 {
		return err.WithLocation(sc.File, line, column)
	}
	if line > 0 {
		err.Location = &errors.Location{File: "<scenario>", Line: line, Column: column}
	}
	return err
}

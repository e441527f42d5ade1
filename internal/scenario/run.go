package scenario

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vango-dev/reactivity/internal/errors"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

// Report summarizes a finished run.
type Report struct {
	Name string

	// Steps is the number of steps executed.
	Steps int

	// EffectRuns counts runs per effect, including the first one.
	EffectRuns map[string]int

	// WatchCalls counts callback invocations per watcher.
	WatchCalls map[string]int

	// Computed holds the final value of every computed.
	Computed map[string]any

	// State is the reactive root of the scenario state.
	State *reactivity.Proxy

	// Stats is the dependency store usage after the last step.
	Stats reactivity.Stats

	stops []func()
}

// Stop stops every effect, computed and watcher created by the run.
func (r *Report) Stop() {
	for _, stop := range r.stops {
		stop()
	}
	r.stops = nil
}

type runner struct {
	engine   *reactivity.Engine
	sc       *Scenario
	w        io.Writer
	root     *reactivity.Proxy
	computed map[string]*reactivity.Computed[any]
	report   *Report
}

// Run builds the scenario on e and executes its steps in order. Effects,
// computed values and watchers print to w as they run. Post-flush watchers
// run at flush steps and once after the last step.
//
// Run must be called on the goroutine that owns e. It checks ctx between
// steps. The returned report keeps the observers alive until Stop.
func Run(ctx context.Context, e *reactivity.Engine, sc *Scenario, w io.Writer) (*Report, error) {
	raw, err := nodeValue(&sc.State)
	if err != nil {
		return nil, sc.at(errors.New("S201").Wrap(err), sc.State.Line, sc.State.Column)
	}
	state, ok := raw.(*reactivity.Object)
	if !ok {
		state = reactivity.NewObject()
	}

	r := &runner{
		engine:   e,
		sc:       sc,
		w:        w,
		root:     e.Reactive(state),
		computed: make(map[string]*reactivity.Computed[any]),
		report: &Report{
			Name:       sc.Name,
			EffectRuns: make(map[string]int),
			WatchCalls: make(map[string]int),
			Computed:   make(map[string]any),
		},
	}
	r.report.State = r.root

	r.setupComputed()
	r.setupEffects()
	if err := r.setupWatches(); err != nil {
		r.report.Stop()
		return nil, err
	}

	for i := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return r.report, err
		}
		if err := r.step(i, &sc.Steps[i]); err != nil {
			return r.report, err
		}
		r.report.Steps++
	}
	e.Flush()

	for name, c := range r.computed {
		r.report.Computed[name] = c.Value()
	}
	r.report.Stats = e.Stats()
	return r.report, nil
}

func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

// resolve reads path, which may start at a computed value ("@name.rest").
func (r *runner) resolve(path string) (any, bool) {
	if !strings.HasPrefix(path, "@") {
		return resolve(r.root, path)
	}
	name, rest, _ := strings.Cut(path[1:], ".")
	c, ok := r.computed[name]
	if !ok {
		return nil, false
	}
	return resolve(c.Value(), rest)
}

func (r *runner) setupComputed() {
	for _, def := range r.sc.Computed {
		paths := def.Paths
		combine := sum
		if def.Op == ComputeConcat {
			combine = concat
		}
		name := def.Name
		// Computed values may refer to ones declared earlier.
		c := reactivity.NewComputed(r.engine, func() any {
			values := make([]any, 0, len(paths))
			for _, p := range paths {
				v, _ := r.resolve(p)
				values = append(values, reactivity.ToRaw(v))
			}
			v := combine(values)
			r.printf("computed %s = %s", name, render(v))
			return v
		})
		r.computed[name] = c
		r.report.stops = append(r.report.stops, c.Stop)
	}
}

func (r *runner) setupEffects() {
	for i, def := range r.sc.Effects {
		name := def.Name
		if name == "" {
			name = "effect" + strconv.Itoa(i+1)
		}
		path := def.Path
		eff := r.engine.Effect(func() {
			r.report.EffectRuns[name]++
			v, _ := r.resolve(path)
			r.printf("effect %s #%d: %s = %s", name, r.report.EffectRuns[name], displayPath(path), render(v))
		}, reactivity.EffectName(name))
		r.report.stops = append(r.report.stops, eff.Stop)
	}
}

func (r *runner) setupWatches() error {
	for i, def := range r.sc.Watches {
		name := def.Name
		if name == "" {
			name = "watch" + strconv.Itoa(i+1)
		}
		flush, err := parseFlush(def.Flush)
		if err != nil {
			return r.sc.at(errors.New("S205").Wrap(err), def.Line, def.Column)
		}
		opts := []reactivity.WatchOption{reactivity.WithFlush(flush), reactivity.WatchName(name)}
		if def.Immediate {
			opts = append(opts, reactivity.Immediate())
		}

		var stop reactivity.StopHandle
		if def.Deep {
			target, _ := r.resolve(def.Path)
			if !reactivity.IsReactive(target) && !reactivity.IsRef(target) {
				return r.sc.at(errors.New("S205").WithDetail(
					fmt.Sprintf("deep watch %q needs an object, array or computed at %s.", name, displayPath(def.Path))),
					def.Line, def.Column)
			}
			if def.Depth > 0 {
				opts = append(opts, reactivity.WatchDepth(def.Depth))
			}
			stop = reactivity.WatchTarget(r.engine, target, func(v, _ any, _ reactivity.OnInvalidate) {
				r.report.WatchCalls[name]++
				r.printf("watch %s: %s", name, render(v))
			}, opts...)
		} else {
			path := def.Path
			stop = reactivity.Watch(r.engine, func() any {
				v, _ := r.resolve(path)
				return v
			}, func(v, old any, _ reactivity.OnInvalidate) {
				r.report.WatchCalls[name]++
				r.printf("watch %s: %s -> %s", name, render(old), render(v))
			}, opts...)
		}
		r.report.stops = append(r.report.stops, stop)
	}
	return nil
}

func (r *runner) step(i int, s *Step) error {
	fail := func(code, detail string) error {
		err := errors.New(code).WithDetail(fmt.Sprintf("step %d (%s %s): %s", i+1, s.Op, displayPath(s.Path), detail))
		return r.sc.at(err, s.Line, s.Column)
	}

	if s.Op == OpFlush {
		r.printf("step %d: flush (%d pending)", i+1, r.engine.PendingJobs())
		r.engine.Flush()
		return nil
	}

	value, err := nodeValue(&s.Value)
	if err != nil {
		return fail("S201", err.Error())
	}
	r.printf("step %d: %s %s%s", i+1, s.Op, displayPath(s.Path), valueSuffix(s, value))

	switch s.Op {
	case OpSet, OpDelete:
		container, key, ok := parent(r.root, s.Path)
		if !ok {
			return fail("S202", "no such path")
		}
		return r.write(s.Op, container, key, value, fail)
	}

	target, ok := resolve(r.root, s.Path)
	if !ok {
		return fail("S202", "no such path")
	}
	arr, ok := target.(*reactivity.ArrayProxy)
	if !ok {
		return fail("S204", fmt.Sprintf("%s needs an array", s.Op))
	}

	switch s.Op {
	case OpPush:
		arr.Push(spread(value)...)
	case OpUnshift:
		arr.Unshift(spread(value)...)
	case OpPop, OpShift:
		for range max(1, s.Count) {
			if s.Op == OpPop {
				arr.Pop()
			} else {
				arr.Shift()
			}
		}
	case OpLength:
		n, ok := value.(int)
		if !ok || n < 0 {
			return fail("S204", "length needs a non-negative integer value")
		}
		arr.SetLen(n)
	}
	return nil
}

func (r *runner) write(op string, container any, key string, value any, fail func(code, detail string) error) error {
	switch c := container.(type) {
	case *reactivity.Proxy:
		if op == OpDelete {
			c.Delete(key)
		} else {
			c.Set(key, value)
		}
		return nil
	case *reactivity.ArrayProxy:
		if key == "length" && op == OpSet {
			n, ok := value.(int)
			if !ok || n < 0 {
				return fail("S204", "length needs a non-negative integer value")
			}
			c.SetLen(n)
			return nil
		}
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 {
			return fail("S202", fmt.Sprintf("%q is not an array index", key))
		}
		if op == OpDelete {
			c.Delete(idx)
		} else {
			c.Set(idx, value)
		}
		return nil
	default:
		return fail("S202", "parent is not an object or array")
	}
}

// spread turns an array value into push arguments.
func spread(v any) []any {
	if a, ok := v.(*reactivity.Array); ok {
		return a.Items()
	}
	return []any{v}
}

func valueSuffix(s *Step, value any) string {
	switch s.Op {
	case OpSet, OpPush, OpUnshift, OpLength:
		return " = " + render(value)
	case OpPop, OpShift:
		if s.Count > 1 {
			return " x" + strconv.Itoa(s.Count)
		}
	}
	return ""
}

func displayPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}

func parseFlush(s string) (reactivity.FlushMode, error) {
	switch s {
	case "", "sync":
		return reactivity.FlushSync, nil
	case "post":
		return reactivity.FlushPost, nil
	default:
		return reactivity.FlushSync, fmt.Errorf("unknown flush mode %q", s)
	}
}

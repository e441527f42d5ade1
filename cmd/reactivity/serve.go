package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	rerrors "github.com/vango-dev/reactivity/internal/errors"
	"github.com/vango-dev/reactivity/internal/scenario"
	"github.com/vango-dev/reactivity/pkg/inspect"
	"github.com/vango-dev/reactivity/pkg/observe"
	"github.com/vango-dev/reactivity/pkg/persist"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(a *app) *cobra.Command {
	var (
		addr        string
		persistName string
		store       storeFlags
	)

	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Run a scenario on an event loop and serve the inspector",
		Long: `Run a scenario on an event loop and keep its effects alive behind
an HTTP inspector:

  GET /healthz         liveness and event counters
  GET /events?limit=n  recent runtime events as JSON
  GET /events/stream   live events over a WebSocket
  GET /stats           dependency store usage
  GET /metrics         Prometheus metrics

With --persist the state is saved after every flush in which it
changed.

Examples:
  reactivity serve cart.yaml
  reactivity serve cart.yaml --addr :7070 --persist cart`,
		Args: scenarioArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Inspector.Addr = addr
			}
			store.apply(a.cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sc, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}
			s, err := newServer(ctx, a, sc, persistName)
			if err != nil {
				return err
			}
			return s.serve(ctx, cmd)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Inspector listen address (default from reactivity.json)")
	cmd.Flags().StringVar(&persistName, "persist", "", "Save the state under this snapshot name on every change")
	store.register(cmd)
	return cmd
}

type server struct {
	app      *app
	scenario *scenario.Scenario
	persist  string
	store    persist.Store

	engine   *reactivity.Engine
	loop     *reactivity.Loop
	recorder *inspect.Recorder
	registry *prometheus.Registry
	http     *http.Server
}

func newServer(ctx context.Context, a *app, sc *scenario.Scenario, persistName string) (*server, error) {
	s := &server{app: a, scenario: sc, persist: persistName}

	if persistName != "" {
		if !persist.ValidName(persistName) {
			return nil, rerrors.New("P303")
		}
		st, where, err := openStore(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.logger.Info("persisting state", "name", persistName, "store", where)
		s.store = st
	}

	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(collectors.NewGoCollector())

	s.recorder = inspect.NewRecorder(a.cfg.Inspector.Buffer)
	metrics := observe.NewMetrics(
		observe.WithNamespace(a.cfg.Metrics.Namespace),
		observe.WithRegistry(s.registry),
	)
	tracer := observe.NewTracer(
		observe.WithTracerProvider(otel.GetTracerProvider()),
		observe.WithParent(ctx),
	)
	s.engine = a.engine(s.recorder, metrics, tracer)
	s.loop = reactivity.NewLoop(s.engine, reactivity.WithLoopLogger(a.logger))

	s.http = &http.Server{
		Addr:              a.cfg.Inspector.Addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *server) handler() http.Handler {
	insp := s.app.cfg.Inspector
	return inspect.NewHandler(s.recorder,
		inspect.WithGatherer(s.registry),
		inspect.WithStats(s.stats),
		inspect.WithStreamRate(rate.Limit(insp.Rate), insp.Burst),
		inspect.WithLogger(s.app.logger),
	)
}

// stats reads the store usage on the loop goroutine.
func (s *server) stats(r *http.Request) (reactivity.Stats, error) {
	var st reactivity.Stats
	err := s.loop.Do(r.Context(), func() {
		st = s.engine.Stats()
	})
	return st, err
}

// start runs the scenario on the loop and binds the state to the store.
func (s *server) start(ctx context.Context, cmd *cobra.Command) (*scenario.Report, error) {
	var (
		report *scenario.Report
		runErr error
	)
	err := s.loop.Do(ctx, func() {
		report, runErr = scenario.Run(ctx, s.engine, s.scenario, cmd.OutOrStdout())
		if runErr != nil || s.store == nil {
			return
		}
		_, runErr = persist.Bind(s.engine, report.State, s.store, s.persist,
			persist.WithContext(ctx),
			persist.WithInitialSave(),
			persist.WithSaveTimeout(10*time.Second),
			persist.WithLogger(s.app.logger),
		)
	})
	if err != nil {
		return report, err
	}
	return report, runErr
}

func (s *server) serve(ctx context.Context, cmd *cobra.Command) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return rerrors.New("L403").Wrap(err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.loop.Run(ctx)
	})
	g.Go(func() error {
		if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return rerrors.New("L403").Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		report, err := s.start(ctx, cmd)
		if err != nil {
			return err
		}
		s.app.logger.Info("scenario loaded",
			"scenario", report.Name,
			"steps", report.Steps,
			"inspector", "http://"+ln.Addr().String())
		fmt.Fprintf(cmd.ErrOrStderr(), "inspector listening on http://%s\n", ln.Addr())
		return nil
	})

	err = g.Wait()
	s.loop.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

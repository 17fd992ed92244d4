package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"userdir/internal/directory/cache"
	"userdir/internal/directory/dateformat"
	"userdir/internal/directory/form"
	"userdir/internal/directory/list"
	"userdir/internal/directory/metrics"
	"userdir/internal/directory/navigation"
	"userdir/internal/directory/notify"
	"userdir/internal/directory/remote"
	"userdir/internal/platform/config"
	"userdir/internal/platform/logger"
	"userdir/internal/platform/tracing"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

const usage = `usage: userdir [global flags] <command> [flags]

commands:
  list    [-q term]                       list users, optionally filtered
  create  -name -mobile -email -dob -addr1 [-addr2] -city -pin
  edit    -id ID [field flags]            update the given fields of a user
  delete  -id ID [-yes]                   delete a user after confirmation

global flags:
`

// app is one CLI invocation: the client-side core wired to a remote store.
type app struct {
	log    *slog.Logger
	reg    *prometheus.Registry
	cache  *cache.Cache
	notes  *notify.Center
	nav    *navigation.History
	list   *list.Controller
	form   *form.Controller
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

// Run executes one command and returns the process exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitUsage
	}

	fs := flag.NewFlagSet("userdir", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	apiURL := fs.String("api", cfg.Client.BaseURL, "user store base URL")
	timeout := fs.Duration("timeout", cfg.Client.Timeout, "per-request timeout")
	layout := fs.String("date-layout", cfg.Client.DateLayout, "store date layout: iso or us")
	logLevel := fs.String("log-level", "warn", "log level written to stderr")
	metricsFile := fs.String("metrics-file", cfg.Client.MetricsFile, "write a prometheus textfile snapshot on exit")
	traceExporter := fs.String("trace", cfg.Tracing.Exporter, "span exporter: none, stdout (to stderr) or otlp")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}
	wire, err := dateformat.ParseWireLayout(*layout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	log := logger.New(*logLevel, "text", stderr)
	tcfg := cfg.Tracing
	tcfg.Exporter = *traceExporter
	tp, err := tracing.New(context.Background(), "userdir", tcfg,
		tracing.WithLogger(log),
		tracing.WithWriter(stderr),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	a, err := newApp(*apiURL, *timeout, wire, log, tp.Tracer("userdir/remote"), stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	code := a.dispatch(fs.Arg(0), fs.Args()[1:])
	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, a.reg); err != nil {
			a.log.Warn("write metrics textfile", "path", *metricsFile, "error", err)
		}
	}
	return code
}

func newApp(baseURL string, timeout time.Duration, layout dateformat.WireLayout, log *slog.Logger, tracer trace.Tracer, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	client := remote.New(baseURL,
		remote.WithTimeout(timeout),
		remote.WithLogger(log),
		remote.WithMetrics(m),
		remote.WithTracer(tracer),
	)
	c, err := cache.New(client, dateformat.New(layout, dateformat.WithLogger(log)),
		cache.WithLogger(log),
		cache.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	a := &app{
		log:    log,
		reg:    reg,
		cache:  c,
		nav:    &navigation.History{},
		in:     bufio.NewReader(stdin),
		out:    stdout,
		errOut: stderr,
	}
	a.notes = notify.New(
		notify.WithLogger(log),
		notify.WithSink(notify.SinkFunc(a.printToast)),
	)
	if a.list, err = list.New(c, a.notes, a.nav, list.WithLogger(log)); err != nil {
		return nil, err
	}
	if a.form, err = form.New(c, a.notes, a.nav, form.WithLogger(log)); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) dispatch(cmd string, args []string) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var err error
	switch cmd {
	case "list":
		err = a.runList(ctx, args)
	case "create":
		err = a.runCreate(ctx, args)
	case "edit":
		err = a.runEdit(ctx, args)
	case "delete":
		err = a.runDelete(ctx, args)
	default:
		fmt.Fprintf(a.errOut, "unknown command %q\n", cmd)
		fmt.Fprint(a.errOut, usage)
		return exitUsage
	}

	var uerr usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &uerr):
		if uerr != "" {
			fmt.Fprintln(a.errOut, uerr.Error())
		}
		return exitUsage
	case errors.Is(err, errReported):
		return exitFail
	default:
		fmt.Fprintln(a.errOut, "Error:", remote.Message(err))
		return exitFail
	}
}

// errReported means the command already printed why it failed.
var errReported = errors.New("reported")

type usageError string

func (e usageError) Error() string { return string(e) }

func (a *app) printToast(t notify.Toast) {
	fmt.Fprintf(a.out, "[%s] %s\n", t.Kind, t.Message)
}

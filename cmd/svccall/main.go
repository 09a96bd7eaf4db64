// Command svccall invokes one route of an internal service and prints the
// classified response.
//
//	svccall -config svccall.toml -method POST -query page=2 -data '{"name":"ada"}' user profile
//
// Successful calls print the payload as indented JSON on stdout and exit 0.
// Failed calls are reported on the error log channel and exit 1.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/drblury/svcweaver/client"
	"github.com/drblury/svcweaver/envelope"
	"github.com/drblury/svcweaver/jsonutil"
	"github.com/drblury/svcweaver/logsink"
	"github.com/drblury/svcweaver/registry"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2

	defaultConfigPath = "svccall.toml"
)

// pairs collects repeated key=value flags.
type pairs map[string]string

func (p pairs) String() string {
	parts := make([]string, 0, len(p))
	for key, value := range p {
		parts = append(parts, key+"="+value)
	}
	return strings.Join(parts, ",")
}

func (p pairs) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", raw)
	}
	p[key] = value
	return nil
}

type invocation struct {
	configPath string
	method     string
	query      pairs
	register   pairs
	data       string
	raw        bool
	service    string
	route      string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	inv, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "svccall: %v\n", err)
		return exitUsage
	}

	cfg, err := resolveConfig(inv.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "svccall: %v\n", err)
		return exitUsage
	}
	logger := newLogger(cfg, stderr)

	resolver, closeDB, err := buildResolver(ctx, cfg, inv.register)
	if err != nil {
		logger.Error("registry setup failed", "error", err)
		return exitFailure
	}
	defer closeDB()

	if inv.service == "" {
		if len(inv.register) == 0 {
			fmt.Fprintln(stderr, "svccall: usage: svccall [flags] <service> <route>")
			return exitUsage
		}
		logger.Info("services registered", "count", len(inv.register), "sqlite", cfg.SQLitePath)
		return exitOK
	}

	var body map[string]any
	if strings.TrimSpace(inv.data) != "" {
		if err := jsonutil.Unmarshal([]byte(inv.data), &body); err != nil {
			fmt.Fprintf(stderr, "svccall: -data must be a JSON object: %v\n", err)
			return exitUsage
		}
	}

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithTimeout(cfg.Timeout),
		client.WithArgumentDump(cfg.Arguments),
		client.WithBacktrace(cfg.Backtrace),
	}
	for key, value := range cfg.Headers {
		opts = append(opts, client.WithHeader(key, value))
	}
	c := client.New(resolver, opts...)

	res := c.Invoke(ctx, inv.method, inv.service, inv.route, inv.query, body)
	if res.HasError() {
		return exitFailure
	}
	if err := printResult(stdout, res, inv.raw); err != nil {
		fmt.Fprintf(stderr, "svccall: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func parseArgs(args []string, stderr io.Writer) (invocation, error) {
	inv := invocation{query: pairs{}, register: pairs{}}

	fset := flag.NewFlagSet("svccall", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.StringVar(&inv.configPath, "config", "", "path to the TOML config (default "+defaultConfigPath+" when present)")
	fset.StringVar(&inv.method, "method", http.MethodGet, "HTTP method")
	fset.Var(inv.query, "query", "query parameter as key=value (repeatable)")
	fset.Var(inv.register, "register", "store service=url in the sqlite registry (repeatable)")
	fset.StringVar(&inv.data, "data", "", "JSON object sent as request body")
	fset.BoolVar(&inv.raw, "raw", false, "print the response body verbatim")
	if err := fset.Parse(args); err != nil {
		return invocation{}, err
	}

	switch rest := fset.Args(); len(rest) {
	case 0:
	case 2:
		inv.service, inv.route = rest[0], rest[1]
	default:
		return invocation{}, fmt.Errorf("expected <service> <route>, got %d arguments", len(rest))
	}
	return inv, nil
}

// resolveConfig loads path, or the default file when it exists.
func resolveConfig(path string) (config, error) {
	if path != "" {
		return loadConfig(path)
	}
	if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	return loadConfig(defaultConfigPath)
}

func newLogger(cfg config, w io.Writer) *slog.Logger {
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}
	return logsink.NewConsoleLogger(w, "svccall", cfg.LogLevel)
}

// buildResolver chains the file services ahead of the sqlite registry. The
// returned func closes the database, if any.
func buildResolver(ctx context.Context, cfg config, register pairs) (registry.Resolver, func(), error) {
	static, err := registry.FromEntries(cfg.Services)
	if err != nil {
		return nil, nil, err
	}
	if cfg.SQLitePath == "" {
		if len(register) > 0 {
			return nil, nil, errors.New("-register requires registry.sqlite in the config")
		}
		return static, func() {}, nil
	}

	db, err := sql.Open("sqlite3", cfg.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite registry: %w", err)
	}
	closeDB := func() { _ = db.Close() }

	if err := registry.EnsureSchema(ctx, db); err != nil {
		closeDB()
		return nil, nil, err
	}
	for name, url := range register {
		if err := registry.Register(ctx, db, name, url); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	return registry.Chain{static, registry.NewSQLResolver(db)}, closeDB, nil
}

func printResult(w io.Writer, res *envelope.Result, raw bool) error {
	if raw {
		_, err := fmt.Fprintln(w, res.Contents())
		return err
	}

	data, err := res.Data()
	if err != nil {
		return err
	}
	out := map[string]any{"shape": res.Shape().String(), "data": data}
	if paging, err := res.Paging(); err == nil {
		out["paging"] = paging
	}

	encoded, err := jsonutil.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}

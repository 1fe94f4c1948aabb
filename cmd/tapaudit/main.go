// Command tapaudit audits the tap targets of web pages on an emulated phone.
//
// Usage:
//
//	tapaudit -input artifacts.json -page-url https://example.com/   # audit pre-collected artifacts
//	tapaudit -url https://example.com/                               # load and audit one page
//	tapaudit -config tapaudit.yaml                                   # audit configured pages, then serve if server.addr is set
//	tapaudit -serve :8087                                            # HTTP API + MCP over streamable HTTP
//	tapaudit -mcp                                                    # MCP over stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/taptarget/connectivity"
	"github.com/hazyhaar/taptarget/report"
	"github.com/hazyhaar/taptarget/safeurl"
	"github.com/hazyhaar/taptarget/tapaudit"
	"github.com/hazyhaar/taptarget/tapkeeper"
)

const version = "0.1.0"

type options struct {
	configPath string
	inputPath  string
	pageURL    string
	singleURL  string
	serveAddr  string
	dbPath     string
	format     string
	mcpStdio   bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to tapaudit.yaml")
	flag.StringVar(&o.inputPath, "input", "", "audit artifacts from a JSON file (- for stdin)")
	flag.StringVar(&o.pageURL, "page-url", "", "page URL recorded with -input")
	flag.StringVar(&o.singleURL, "url", "", "load and audit a single URL")
	flag.StringVar(&o.serveAddr, "serve", "", "serve the HTTP API on this address")
	flag.StringVar(&o.dbPath, "db", "", "SQLite database path (default: config db_path, or in-memory for one-shot runs)")
	flag.StringVar(&o.format, "format", "json", "one-shot output: json or markdown")
	flag.BoolVar(&o.mcpStdio, "mcp", false, "serve MCP over stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("tapaudit: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg := &tapkeeper.Config{}
	if o.configPath != "" {
		loaded, err := tapkeeper.LoadConfigFile(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	oneShot := o.inputPath != "" || o.singleURL != ""
	switch {
	case o.dbPath != "":
		cfg.DBPath = o.dbPath
	case o.configPath == "" && oneShot:
		cfg.DBPath = ":memory:"
	}
	if o.serveAddr != "" {
		cfg.Server.Addr = o.serveAddr
	}

	switch {
	case o.inputPath != "":
		return runInput(ctx, logger, cfg, o)
	case o.singleURL != "":
		return runSingle(ctx, logger, cfg, o)
	case o.mcpStdio:
		return runMCPStdio(ctx, logger, cfg)
	case o.configPath != "" || cfg.Server.Addr != "":
		return runService(ctx, logger, cfg)
	}

	fmt.Fprintln(os.Stderr, "usage: tapaudit -input <file> | -url <url> | -config <file> | -serve <addr> | -mcp")
	flag.PrintDefaults()
	os.Exit(2)
	return nil
}

func oneShotSink(format string) (report.Sink, error) {
	switch format {
	case "json":
		return report.NewStdout(nil), nil
	case "markdown":
		return report.NewMarkdown(os.Stdout), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func runInput(ctx context.Context, logger *slog.Logger, cfg *tapkeeper.Config, o options) error {
	var r io.Reader = os.Stdin
	if o.inputPath != "-" {
		f, err := os.Open(o.inputPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := safeurl.LimitedReadAll(r, 64<<20)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var artifacts tapaudit.Artifacts
	if err := json.Unmarshal(data, &artifacts); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	sink, err := oneShotSink(o.format)
	if err != nil {
		return err
	}
	k, err := tapkeeper.New(cfg, logger, sink)
	if err != nil {
		return err
	}
	defer k.Close()

	pageURL := o.pageURL
	if pageURL == "" {
		pageURL = o.inputPath
	}
	_, err = k.Evaluate(ctx, pageURL, artifacts)
	return err
}

func runSingle(ctx context.Context, logger *slog.Logger, cfg *tapkeeper.Config, o options) error {
	sink, err := oneShotSink(o.format)
	if err != nil {
		return err
	}
	k, err := tapkeeper.New(cfg, logger, sink)
	if err != nil {
		return err
	}
	defer k.Close()

	_, err = k.AuditURL(ctx, o.singleURL)
	return err
}

func newMCPServer(k *tapkeeper.Keeper) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "tapaudit", Version: version}, nil)
	k.RegisterMCP(srv)
	return srv
}

// runMCPStdio serves MCP on stdin/stdout, so no sink may write to stdout.
func runMCPStdio(ctx context.Context, logger *slog.Logger, cfg *tapkeeper.Config) error {
	var sinks []report.Sink
	for _, sc := range cfg.Sinks {
		if sc.Type == "stdout" || (sc.Type == "markdown" && sc.Path == "") {
			logger.Warn("tapaudit: sink disabled in stdio mode", "type", sc.Type)
			continue
		}
		built, err := tapkeeper.BuildSinks(&tapkeeper.Config{Sinks: []tapkeeper.SinkConfig{sc}}, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, built...)
	}

	k, err := tapkeeper.New(cfg, logger, sinks...)
	if err != nil {
		return err
	}
	defer k.Close()

	logger.Info("tapaudit: serving MCP on stdio")
	return newMCPServer(k).Run(ctx, &mcp.StdioTransport{})
}

func runService(ctx context.Context, logger *slog.Logger, cfg *tapkeeper.Config) error {
	sinks, err := tapkeeper.BuildSinks(cfg, logger)
	if err != nil {
		return err
	}
	k, err := tapkeeper.New(cfg, logger, sinks...)
	if err != nil {
		return err
	}
	defer k.Close()

	if len(cfg.Pages) > 0 {
		if _, err := k.AuditPages(ctx); err != nil {
			logger.Warn("tapaudit: some pages failed", "error", err)
		}
	}
	if cfg.Server.Addr == "" {
		return nil
	}

	db := k.Store().DB
	if err := connectivity.Init(db); err != nil {
		return fmt.Errorf("routes schema: %w", err)
	}
	router := connectivity.New(connectivity.WithLogger(logger))
	router.RegisterTransport("http", connectivity.HTTPFactory(connectivity.HTTPOptions{}))
	k.RegisterConnectivity(router)
	defer router.Close()
	go router.Watch(ctx, db, cfg.Server.RoutesPoll)

	if cfg.Retention > 0 {
		go pruneLoop(ctx, logger, k)
	}

	r := chi.NewRouter()
	r.Post("/rpc/{service}", rpcHandler(router))
	r.Mount("/", k.Routes(newMCPServer(k)))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("tapaudit: listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// rpcHandler exposes connectivity services over HTTP so that another
// instance can route to this one with the "http" strategy.
func rpcHandler(router *connectivity.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := safeurl.LimitedReadAll(r.Body, 8<<20)
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		resp, err := router.Call(r.Context(), chi.URLParam(r, "service"), payload)
		if err != nil {
			var nf *connectivity.ErrServiceNotFound
			code := http.StatusInternalServerError
			if errors.As(err, &nf) {
				code = http.StatusNotFound
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	}
}

func pruneLoop(ctx context.Context, logger *slog.Logger, k *tapkeeper.Keeper) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		if _, err := k.Prune(ctx); err != nil {
			logger.Warn("tapaudit: prune failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package cli

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "constref/internal/core/app"
	"constref/internal/core/config"
	"constref/internal/core/errors"
	"constref/internal/data/history"
	"constref/internal/engine/resolver"
	"constref/internal/shared/observability"
	"constref/internal/ui/report/formats"
)

func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "constref v%s\n", versionString)
		return 0
	}

	configureLogging(stderr, opts.verbose)

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	if err := applyModeOptions(opts, cfg); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		slog.Error("failed to resolve runtime paths", "error", err)
		return 1
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	a, err := coreapp.New(cfg, paths)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer a.Close()

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddr); addr != "" {
		server := observability.NewServer(addr, coreapp.NewHealthService(a))
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	switch {
	case opts.file != "":
		refs, err := a.Extractor.ReferencesFromFile(ctx, opts.file)
		if err != nil {
			slog.Error("failed to extract references", "path", opts.file, "error", err)
			return 1
		}
		return printReferences(stdout, opts.format, refs)
	case opts.snippet != "":
		refs, err := a.Extractor.ReferencesFromSource(ctx, opts.snippet)
		if err != nil {
			slog.Error("failed to extract references", "error", err)
			return 1
		}
		return printReferences(stdout, opts.format, refs)
	}

	if _, err := a.Scan(ctx); err != nil {
		slog.Error("scan failed", "error", err)
		return 1
	}

	switch {
	case opts.trace:
		chain, err := a.TraceChain(opts.args[0], opts.args[1])
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		fmt.Fprintln(stdout, strings.Join(chain, " -> "))
		return 0
	case opts.impact != "":
		printImpact(stdout, a.Impact(opts.impact))
		return 0
	}

	if err := emit(a, opts.format, stdout); err != nil {
		slog.Error("failed to generate outputs", "error", err)
		return 1
	}

	code := 0
	if opts.baseline {
		cmp, err := a.CompareBaseline(ctx)
		switch {
		case errors.IsCode(err, errors.CodeNotFound):
			slog.Info("no baseline run saved yet")
		case err != nil:
			slog.Error("baseline comparison failed", "error", err)
			return 1
		default:
			printDiff(stderr, cmp)
			if len(cmp.Diff.Added) > 0 {
				code = 1
			}
		}
	}
	if opts.save {
		saved, err := a.SaveRun(ctx)
		if err != nil {
			slog.Error("failed to save run", "error", err)
			return 1
		}
		slog.Info("saved run", "id", saved.ID, "references", saved.ReferenceCount)
	}

	if !opts.watch {
		return code
	}

	if cfgPath != "" {
		cfgWatcher := config.NewWatcher(cfgPath, func(reloaded *config.Config) {
			if err := applyModeOptions(opts, reloaded); err != nil {
				slog.Warn("ignoring reloaded config", "error", err)
				return
			}
			a.ApplyConfig(reloaded)
		})
		if err := cfgWatcher.Start(ctx); err != nil {
			slog.Warn("failed to watch config", "path", cfgPath, "error", err)
		} else {
			defer cfgWatcher.Stop()
		}
	}

	slog.Info("watching for changes", "root", paths.ProjectRoot)
	err = a.Watch(ctx, func() {
		if _, err := a.WriteOutputs(); err != nil {
			slog.Error("failed to write outputs", "error", err)
		}
	})
	if err != nil {
		slog.Error("watcher failed", "error", err)
		return 1
	}
	return 0
}

// emit prints the report for format and writes every configured output.
func emit(a *coreapp.App, format string, stdout io.Writer) error {
	data, err := a.Render(format)
	if err != nil {
		return err
	}
	if _, err := stdout.Write(data); err != nil {
		return err
	}
	_, err = a.WriteOutputs()
	return err
}

func printReferences(w io.Writer, format string, refs []resolver.Reference) int {
	switch format {
	case coreapp.FormatTSV:
		fmt.Fprint(w, formats.GenerateTSV(refs))
	case coreapp.FormatJSON:
		data, err := formats.GenerateJSON(formats.Report{References: refs})
		if err != nil {
			slog.Error("failed to encode references", "error", err)
			return 1
		}
		_, _ = w.Write(data)
	default:
		slog.Error("format needs a project scan", "format", format)
		return 2
	}
	return 0
}

func printImpact(w io.Writer, report coreapp.ImpactReport) {
	fmt.Fprintf(w, "%s: %d direct, %d transitive dependents\n", report.Target, len(report.Direct), len(report.Transitive))
	for _, node := range report.Direct {
		fmt.Fprintf(w, "  %s\n", node)
	}
	for _, node := range report.Transitive {
		fmt.Fprintf(w, "  (transitive) %s\n", node)
	}
}

func printDiff(w io.Writer, cmp coreapp.BaselineComparison) {
	fmt.Fprintf(w, "baseline %s (%s): %d added, %d removed\n",
		cmp.Baseline.ID, cmp.Baseline.StartedAt.Format(time.RFC3339), len(cmp.Diff.Added), len(cmp.Diff.Removed))
	for _, edge := range cmp.Diff.Added {
		fmt.Fprintf(w, "+ %s\n", formatEdge(edge))
	}
	for _, edge := range cmp.Diff.Removed {
		fmt.Fprintf(w, "- %s\n", formatEdge(edge))
	}
}

func formatEdge(edge history.EdgeKey) string {
	return fmt.Sprintf("%s -> %s (%s)", edge.From, edge.Constant, edge.To)
}

// loadConfig loads an explicit path, or ./constref.toml when it exists, or
// the defaults. The returned path is empty for the defaults.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if strings.TrimSpace(path) != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	candidate := filepath.Join(cwd, config.DefaultFile)
	if _, err := os.Stat(candidate); err == nil {
		cfg, err := config.Load(candidate)
		return cfg, candidate, err
	}
	cfg := config.DefaultConfig()
	config.ApplyEnvOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

func applyModeOptions(opts cliOptions, cfg *config.Config) error {
	modes := 0
	for _, set := range []bool{opts.file != "", opts.snippet != "", opts.watch, opts.trace, opts.impact != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("-file, -snippet, -watch, -trace and -impact are mutually exclusive")
	}
	if opts.trace && len(opts.args) != 2 {
		return fmt.Errorf("-trace needs exactly two arguments: <from> <to>")
	}
	if !opts.trace && len(opts.args) > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(opts.args, " "))
	}

	switch opts.format {
	case coreapp.FormatTSV, coreapp.FormatJSON, coreapp.FormatDOT, coreapp.FormatMermaid, coreapp.FormatSARIF:
	default:
		return fmt.Errorf("-format must be one of: tsv, json, dot, mermaid, sarif")
	}

	if opts.granularity != "" {
		if opts.granularity != config.GranularityFile && opts.granularity != config.GranularityComponent {
			return fmt.Errorf("-granularity must be one of: %s, %s", config.GranularityFile, config.GranularityComponent)
		}
		cfg.Output.Granularity = opts.granularity
	}
	if opts.metricsAddr != "" {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
	if opts.save || opts.baseline {
		if opts.file != "" || opts.snippet != "" {
			return fmt.Errorf("-save and -baseline need a project scan")
		}
		cfg.DB.Enabled = true
	}
	return nil
}

func configureLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "CONSTREF_"

// ApplyEnvOverrides applies CONSTREF_<SECTION>_<KEY> environment variables,
// e.g. CONSTREF_SCAN_WORKERS=4. Values that do not parse are ignored with a
// warning.
func ApplyEnvOverrides(cfg *Config) {
	override(&cfg.Paths.ProjectRoot, "PATHS_PROJECT_ROOT", parseString)
	override(&cfg.Paths.DatabaseDir, "PATHS_DATABASE_DIR", parseString)

	overridePtr(&cfg.Inspectors.Associations.Enabled, "INSPECTORS_ASSOCIATIONS_ENABLED", parseBool)
	overridePtr(&cfg.Parser.TolerateTemplateErrors, "PARSER_TOLERATE_TEMPLATE_ERRORS", parseBool)

	override(&cfg.Scan.Workers, "SCAN_WORKERS", strconv.Atoi)
	override(&cfg.Scan.MaxFilesPerSecond, "SCAN_MAX_FILES_PER_SECOND", parseFloat)

	override(&cfg.Watch.Debounce, "WATCH_DEBOUNCE", time.ParseDuration)

	override(&cfg.Output.Granularity, "OUTPUT_GRANULARITY", parseString)

	override(&cfg.DB.Enabled, "DB_ENABLED", parseBool)
	override(&cfg.DB.Path, "DB_PATH", parseString)

	override(&cfg.Observability.MetricsAddr, "OBSERVABILITY_METRICS_ADDR", parseString)
	override(&cfg.Observability.OTLPEndpoint, "OBSERVABILITY_OTLP_ENDPOINT", parseString)
}

func override[T any](target *T, key string, parse func(string) (T, error)) {
	if v, ok := lookupEnv(key, parse); ok {
		*target = v
	}
}

func overridePtr[T any](target **T, key string, parse func(string) (T, error)) {
	if v, ok := lookupEnv(key, parse); ok {
		*target = &v
	}
}

func lookupEnv[T any](key string, parse func(string) (T, error)) (T, bool) {
	var zero T
	name := envPrefix + key
	raw, ok := os.LookupEnv(name)
	if !ok {
		return zero, false
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		slog.Warn("ignoring invalid env override", "key", name, "value", raw, "error", err)
		return zero, false
	}
	slog.Debug("applying env override", "key", name, "value", raw)
	return v, true
}

func parseString(s string) (string, error) { return s, nil }

func parseBool(s string) (bool, error) { return strconv.ParseBool(strings.ToLower(s)) }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

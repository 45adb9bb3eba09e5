package config

import (
	"fmt"
	"net"
	"strings"

	"constref/internal/core/errors"
	"constref/internal/shared/util"
)

// Validate checks a defaulted configuration. Every failure is a
// VALIDATION_ERROR carrying the offending section.
func Validate(cfg *Config) error {
	checks := []struct {
		section string
		fn      func(*Config) error
	}{
		{"version", validateVersion},
		{"autoload", validateAutoload},
		{"inspectors", validateInspectors},
		{"scan", validateScan},
		{"watch", validateWatch},
		{"output", validateOutput},
		{"db", validateDatabase},
		{"architecture", validateArchitecture},
		{"observability", validateObservability},
	}
	for _, check := range checks {
		if err := check.fn(cfg); err != nil {
			wrapped := errors.Wrap(err, errors.CodeValidationError, "invalid config")
			return errors.AddContext(wrapped, errors.CtxSection, check.section)
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAutoload(cfg *Config) error {
	for i, root := range cfg.Autoload.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("autoload.roots[%d] must not be empty", i)
		}
		if strings.HasPrefix(root, "/") {
			return fmt.Errorf("autoload.roots[%d] must be relative to the project root, got %q", i, root)
		}
	}
	if err := validatePatterns("autoload.roots", cfg.Autoload.Roots); err != nil {
		return err
	}
	if err := validatePatterns("autoload.ignore", cfg.Autoload.Ignore); err != nil {
		return err
	}
	if err := validatePatterns("autoload.collapse", cfg.Autoload.Collapse); err != nil {
		return err
	}
	for word, constant := range cfg.Autoload.Inflections {
		if strings.TrimSpace(word) == "" || strings.TrimSpace(constant) == "" {
			return fmt.Errorf("autoload.inflections entries must have a non-empty word and constant")
		}
	}
	return nil
}

func validateInspectors(cfg *Config) error {
	for i, name := range cfg.Inspectors.Associations.Custom {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("inspectors.associations.custom[%d] must not be empty", i)
		}
	}
	return validatePatterns("inspectors.associations.excluded_files", cfg.Inspectors.Associations.ExcludedFiles)
}

func validateScan(cfg *Config) error {
	if cfg.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be >= 1, got %d", cfg.Scan.Workers)
	}
	if cfg.Scan.MaxFilesPerSecond < 0 {
		return fmt.Errorf("scan.max_files_per_second must be >= 0, got %v", cfg.Scan.MaxFilesPerSecond)
	}
	if err := validatePatterns("scan.include", cfg.Scan.Include); err != nil {
		return err
	}
	return validatePatterns("scan.exclude_dirs", cfg.Scan.ExcludeDirs)
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Granularity {
	case GranularityFile, GranularityComponent:
	default:
		return fmt.Errorf("output.granularity must be one of: %s, %s", GranularityFile, GranularityComponent)
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	return nil
}

func validateArchitecture(cfg *Config) error {
	if !cfg.Architecture.Enabled {
		return nil
	}
	if len(cfg.Architecture.Layers) == 0 {
		return fmt.Errorf("architecture.layers must not be empty when architecture is enabled")
	}

	layers := make(map[string]bool, len(cfg.Architecture.Layers))
	for i, layer := range cfg.Architecture.Layers {
		name := strings.TrimSpace(layer.Name)
		if name == "" {
			return fmt.Errorf("architecture.layers[%d].name must not be empty", i)
		}
		if layers[name] {
			return fmt.Errorf("architecture.layers[%d].name %q is duplicated", i, name)
		}
		layers[name] = true
		if len(layer.Paths) == 0 {
			return fmt.Errorf("architecture.layers[%d].paths must not be empty", i)
		}
		if err := validatePatterns(fmt.Sprintf("architecture.layers[%d].paths", i), layer.Paths); err != nil {
			return err
		}
	}

	for i, rule := range cfg.Architecture.Rules {
		if strings.TrimSpace(rule.Name) == "" {
			return fmt.Errorf("architecture.rules[%d].name must not be empty", i)
		}
		if !layers[rule.From] {
			return fmt.Errorf("architecture.rules[%d].from references unknown layer %q", i, rule.From)
		}
		for _, allowed := range rule.Allow {
			if !layers[allowed] {
				return fmt.Errorf("architecture.rules[%d].allow references unknown layer %q", i, allowed)
			}
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if addr := strings.TrimSpace(cfg.Observability.MetricsAddr); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("observability.metrics_addr %q: %w", addr, err)
		}
	}
	return nil
}

func validatePatterns(field string, patterns []string) error {
	if _, err := util.CompilePatterns(patterns); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

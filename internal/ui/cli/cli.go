// Package cli is the constref command line.
package cli

import (
	"flag"
	"io"
)

const versionString = "0.1.0"

type cliOptions struct {
	configPath  string
	file        string
	snippet     string
	watch       bool
	trace       bool
	impact      string
	format      string
	granularity string
	save        bool
	baseline    bool
	metricsAddr string
	verbose     bool
	version     bool
	args        []string
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("constref", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file (default: ./constref.toml when present)")
	fs.StringVar(&opts.file, "file", "", "Print the references of one file and exit")
	fs.StringVar(&opts.snippet, "snippet", "", "Print the references of a Ruby snippet and exit")
	fs.BoolVar(&opts.watch, "watch", false, "Keep outputs current while files change")
	fs.BoolVar(&opts.trace, "trace", false, "Print the shortest reference chain between two nodes given as arguments")
	fs.StringVar(&opts.impact, "impact", "", "Print the nodes that depend on a file or component")
	fs.StringVar(&opts.format, "format", "tsv", "Report printed to stdout: tsv, json, dot, mermaid or sarif")
	fs.StringVar(&opts.granularity, "granularity", "", "Graph nodes: file or component (overrides output.granularity)")
	fs.BoolVar(&opts.save, "save", false, "Save the scan as a history run")
	fs.BoolVar(&opts.baseline, "baseline", false, "Compare the scan with the latest saved run; exit 1 on new references")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	opts.args = fs.Args()
	return opts, nil
}

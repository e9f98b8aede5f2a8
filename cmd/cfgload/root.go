package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"cfgload/internal/loader"
	"cfgload/internal/locator"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// options holds the persistent flag values of one invocation.
type options struct {
	paths   []string
	verbose bool
	environ []string
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(environ []string, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{environ: environ, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "cfgload",
		Short:         "Load and validate return-style configuration files",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringArrayVarP(&opts.paths, "path", "p", nil, "Search path, repeatable (env: "+locator.PathEnvVar+")")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newSupportsCmd(opts),
		newCheckCmd(opts),
		newShowCmd(opts),
	)
	return root
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(o.stderr, &slog.HandlerOptions{Level: level}))
}

// searchPaths returns the --path values, or CFGLOAD_PATH / the defaults.
func (o *options) searchPaths() []string {
	if len(o.paths) > 0 {
		return o.paths
	}
	return locator.ResolvePaths(o.environ)
}

// load runs the loader for one resource and maps failures to exit codes.
func (o *options) load(resource string, loaderOpts ...loader.Option) (loader.Mapping, error) {
	log := o.logger()

	if !loader.Supports(resource) {
		return nil, &ExitError{Code: exitFailure, Err: fmt.Errorf("unsupported resource %q: expected one of .php, .inc, .php.dist, .inc.dist", resource)}
	}

	paths := o.searchPaths()
	log.Debug("loading resource", "resource", resource, "paths", paths)

	l := loader.New(locator.New(paths...), loaderOpts...)
	m, err := l.Load(resource)
	if err != nil {
		kind := loader.Kind(err)
		log.Debug("load failed", "resource", resource, "kind", string(kind), "error", err)
		return nil, &ExitError{Code: exitCode(kind), Err: errors.New(loader.FormatError(err))}
	}

	log.Debug("loaded resource", "resource", resource, "keys", len(m))
	return m, nil
}

func exitCode(kind loader.ErrorKind) int {
	switch kind {
	case loader.KindNone:
		return exitOK
	case loader.KindNotFound:
		return exitNotFound
	case loader.KindIO:
		return exitIO
	case loader.KindInvalidContent:
		return exitInvalidContent
	}
	return exitFailure
}

func newSupportsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "supports <name>...",
		Short: "Report whether each name has a supported extension",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unsupported := 0
			for _, name := range args {
				answer := "yes"
				if !loader.Supports(name) {
					answer = "no"
					unsupported++
				}
				fmt.Fprintf(opts.stdout, "%s: %s\n", name, answer)
			}
			if unsupported > 0 {
				return &ExitError{Code: exitFailure}
			}
			return nil
		},
	}
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <name>",
		Short: "Load a configuration file and report whether it is valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "%s: ok (%d keys)\n", args[0], len(m))
			return nil
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	var (
		format  = formatYAML
		resolve bool
	)

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Load a configuration file and print its mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var loaderOpts []loader.Option
			if resolve {
				loaderOpts = append(loaderOpts, loader.WithParameters(opts.environ))
			}

			m, err := opts.load(args[0], loaderOpts...)
			if err != nil {
				return err
			}
			return writeMapping(opts.stdout, m, format)
		},
	}

	cmd.Flags().VarP(&format, "format", "f", "Output format: yaml or json")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Resolve %placeholder% parameters before printing")
	return cmd
}

// outputFormat is the --format flag value.
type outputFormat string

const (
	formatYAML outputFormat = "yaml"
	formatJSON outputFormat = "json"
)

var _ pflag.Value = (*outputFormat)(nil)

func (f *outputFormat) String() string { return string(*f) }

func (f *outputFormat) Set(v string) error {
	switch outputFormat(v) {
	case formatYAML, formatJSON:
		*f = outputFormat(v)
		return nil
	}
	return fmt.Errorf("expected %s or %s", formatYAML, formatJSON)
}

func (f *outputFormat) Type() string { return "format" }

// writeMapping prints m in the requested format. Both encoders sort keys.
func writeMapping(w io.Writer, m loader.Mapping, format outputFormat) error {
	if format == formatJSON {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(m)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

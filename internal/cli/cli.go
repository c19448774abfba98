// Package cli implements gwctl, the command-line front end to the
// groundwater API. Every command prints indented JSON on stdout; failures are
// printed to stderr as "error: <message>".
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/couchcryptid/groundwater-client/internal/adapter/api"
	"github.com/couchcryptid/groundwater-client/internal/config"
	"github.com/couchcryptid/groundwater-client/internal/credential"
	"github.com/couchcryptid/groundwater-client/internal/groundwater"
	"github.com/couchcryptid/groundwater-client/internal/observability"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// app carries the dependencies every command needs.
type app struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
	store  credential.Store
	svc    *groundwater.Service
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":            {"store a session credential", runLogin},
	"register":         {"create an account and log in", runRegister},
	"logout":           {"remove the stored credential", runLogout},
	"whoami":           {"show the stored credential's claims", runWhoami},
	"forgot-password":  {"request a password reset email", runForgotPassword},
	"reset-password":   {"set a new password from a reset token", runResetPassword},
	"verify-email":     {"confirm an email address", runVerifyEmail},
	"forecast":         {"forecast history|generate", runForecast},
	"states":           {"list monitored states", runStates},
	"districts":        {"list districts of a state", runDistricts},
	"policy":           {"policy simulate|history|export|states", runPolicy},
	"optimize":         {"select recharge sites", runOptimize},
	"optimizer-states": {"list states the optimizer supports", runOptimizerStates},
	"validation":       {"validation metrics|history|model-info|limitations|confidence|regions|districts|uncertainty", runValidation},
	"location":         {"location insight|report", runLocation},
	"drivers":          {"attribute level change to drivers", runDrivers},
	"alerts":           {"list threshold alerts", runAlerts},
	"dashboard":        {"validation metrics, alerts and forecast history at once", runDashboard},
}

// usageError marks a bad invocation; Run exits with ExitUsage.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// Run executes gwctl with args (excluding the program name) and returns the
// process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("gwctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	apiURL := global.String("api-url", "", "API origin, overrides GROUNDWATER_API_URL")
	global.Usage = func() { printUsage(stderr, global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	if global.NArg() == 0 {
		printUsage(stderr, global)
		return ExitUsage
	}

	name := global.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "error: unknown command %q\n", name)
		printUsage(stderr, global)
		return ExitUsage
	}

	cfg, err := config.Load(*configPath, config.Defaults())
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "error: -api-url: %v\n", err)
			return ExitUsage
		}
	}

	a, closeStore, err := newApp(cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	defer closeStore()

	ctx = observability.ContextWithInvocationID(ctx)
	observability.WithInvocationID(ctx, a.logger).Debug("running command", "command", name)

	if err := cmd.run(ctx, a, global.Args()[1:]); err != nil {
		var ue *usageError
		switch {
		case errors.Is(err, flag.ErrHelp):
			return ExitOK
		case errors.As(err, &ue):
			fmt.Fprintf(stderr, "error: %v\n", err)
			return ExitUsage
		default:
			fmt.Fprintf(stderr, "error: %v\n", err)
			return ExitError
		}
	}
	return ExitOK
}

func newApp(cfg *config.Config, stdout, stderr io.Writer) (*app, func(), error) {
	logger := observability.NewLogger(stderr, observability.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})

	store, err := credential.Open(cfg.CredentialBackend, cfg.CredentialPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open credential store: %w", err)
	}
	closeStore := func() {
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("close credential store", "error", err)
			}
		}
	}

	// gwctl exits after one command, so nothing would scrape request metrics.
	client := api.NewClient(cfg.APIURL, store, logger, nil)
	svc := groundwater.NewService(client, store, logger)
	return &app{
		stdout: stdout,
		stderr: stderr,
		logger: logger,
		store:  store,
		svc:    svc,
	}, closeStore, nil
}

func printUsage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "usage: gwctl [-config file] [-api-url url] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-18s %s\n", n, commands[n].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "global flags:")
	global.SetOutput(w)
	global.PrintDefaults()
}

// print writes v to stdout as indented JSON.
func (a *app) print(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// flags returns a FlagSet for a subcommand that reports errors instead of
// exiting.
func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("gwctl "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parse parses args and converts flag errors into usage errors.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &usageError{msg: err.Error()}
	}
	if fs.NArg() > 0 {
		return usagef("%s: unexpected argument %q", fs.Name(), fs.Arg(0))
	}
	return nil
}

// required reports the first empty flag value as a usage error.
func required(fs *flag.FlagSet, names ...string) error {
	for _, n := range names {
		if f := fs.Lookup(n); f != nil && strings.TrimSpace(f.Value.String()) == "" {
			return usagef("%s: -%s is required", fs.Name(), n)
		}
	}
	return nil
}

// subcommand splits "<verb> [flags]" for grouped commands.
func subcommand(group string, args []string, verbs ...string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, usagef("%s: expected one of %s", group, strings.Join(verbs, "|"))
	}
	for _, v := range verbs {
		if args[0] == v {
			return v, args[1:], nil
		}
	}
	return "", nil, usagef("%s: unknown subcommand %q, expected one of %s", group, args[0], strings.Join(verbs, "|"))
}

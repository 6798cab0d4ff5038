package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/g4youu/MacCleaner/pkg/client"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/output"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/privileged"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/snapshot"
)

// App carries everything the subcommands draw on: the typed config,
// the cli logger, the snapshot reader, the privileged executor, the
// flag viper and a lazily dialed agent client. Execute builds one App
// per invocation, so there is no package-level state for tests to
// reset.
type App struct {
	v       *viper.Viper
	cfgFile string

	cfg    *config.Config
	log    *logging.Logger
	reader *snapshot.CommandReader
	exec   privileged.Executor

	cli *client.Client
}

// newApp assembles an App with its long-lived handles. The config and
// logger are filled in by initializeLogging once flags are parsed.
func newApp() *App {
	v := viper.New()
	v.SetEnvPrefix("MACCLEANER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Defaults for the keys only the command layer reads. Typed config
	// keys get their defaults inside config.Load.
	v.SetDefault("analyze.min_size", config.DefaultMinSize)
	v.SetDefault("analyze.exclude", config.DefaultExclusions)
	v.SetDefault("sort", "size")
	v.SetDefault("limit", 50)

	return &App{
		v:      v,
		reader: snapshot.NewReader(),
		exec:   privileged.NewExecutor(),
	}
}

// Close releases the App's lazily created handles.
func (a *App) Close() {
	if a.cli != nil {
		_ = a.cli.Close()
	}
	_ = logging.Close()
}

func newRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "maccleaner",
		Short: "Keep a Mac fast and tidy",
		Long: `MacCleaner frees memory, clears caches and junk, uninstalls
applications with their leftovers, and watches system health.

Examples:
  maccleaner status                 # System health snapshot
  maccleaner purge                  # Free reclaimable memory
  maccleaner clean --list           # Show cleanable targets
  maccleaner clean caches trash     # Clean selected targets
  maccleaner analyze ~/Downloads    # Find large files
  maccleaner uninstall "Old App"    # Remove an app and its leftovers
  maccleaner dashboard              # Live interactive dashboard`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initializeLogging,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ~/.config/maccleaner/config.yaml)")
	pf.StringP("output", "o", "", "output format (pretty, plain, json, jsonl, yaml, tsv, csv, markdown, template, paths, null)")
	pf.String("template", "", "Go template, used with -o template")
	pf.BoolP("verbose", "v", false, "debug output")
	pf.BoolP("quiet", "q", false, "minimal output")
	pf.String("log-level", "", "log level override (debug, info, warn, error)")
	pf.Bool("no-agent", false, "never talk to or start the background agent")

	_ = a.v.BindPFlag("output", pf.Lookup("output"))
	_ = a.v.BindPFlag("template", pf.Lookup("template"))
	_ = a.v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = a.v.BindPFlag("quiet", pf.Lookup("quiet"))
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("no_agent", pf.Lookup("no-agent"))

	root.AddCommand(
		newStatusCmd(a),
		newPurgeCmd(a),
		newCleanCmd(a),
		newAnalyzeCmd(a),
		newUninstallCmd(a),
		newStartupCmd(a),
		newPrivacyCmd(a),
		newProcessesCmd(a),
		newHistoryCmd(a),
		newCacheCmd(a),
		newConfigCmd(a),
		newAgentCmd(a),
		newDashboardCmd(a),
		newVersionCmd(a),
	)

	return root
}

// Execute runs the root command.
func Execute() error {
	a := newApp()
	defer a.Close()
	return newRootCmd(a).Execute()
}

// verbose reports whether verbose mode is enabled.
func (a *App) verbose() bool {
	return a.v.GetBool("verbose")
}

// quiet reports whether quiet mode is enabled.
func (a *App) quiet() bool {
	return a.v.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func (a *App) printVerbose(format string, args ...any) {
	if a.verbose() && !a.quiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func (a *App) printInfo(format string, args ...any) {
	if !a.quiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func (a *App) printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// formatter resolves the output formatter: the --output flag, then the
// config file, then TTY detection (pretty on a terminal, plain piped).
func (a *App) formatter() (output.Formatter, error) {
	name := a.v.GetString("output")
	if name == "" && a.cfg != nil {
		name = a.cfg.Output
	}
	if name == "" {
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			name = "pretty"
		} else {
			name = "plain"
		}
	}

	if name == "template" {
		tmpl := a.v.GetString("template")
		if tmpl == "" {
			return nil, errors.New("--template is required when using -o template")
		}
		return output.NewTemplateFormatter(tmpl), nil
	}

	f, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", name, output.Available())
	}
	return f, nil
}

// render writes the document through the selected formatter.
func (a *App) render(doc *output.Document) error {
	f, err := a.formatter()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := f.Format(&buf, doc); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}

// agentPaths collects the configured agent file locations. Empty
// fields mean the client's XDG defaults.
func (a *App) agentPaths() client.AgentPaths {
	if a.cfg == nil {
		return client.AgentPaths{}
	}
	return client.AgentPaths{
		Binary: a.cfg.Agent.BinaryPath,
		Socket: a.cfg.Agent.SocketPath,
		PID:    a.cfg.Agent.PIDPath,
	}
}

// agentClient dials the agent socket, autostarting the agent first
// when configuration allows. The client is cached on the App and
// closed by Close.
func (a *App) agentClient(ctx context.Context) (*client.Client, error) {
	if a.cli != nil {
		return a.cli, nil
	}
	if a.v.GetBool("no_agent") {
		return nil, errors.New("agent disabled by --no-agent")
	}

	if err := a.maybeStartAgent(); err != nil {
		a.printVerbose("agent autostart failed: %v", err)
	}

	socket := a.agentPaths().Socket
	if socket == "" {
		socket = config.DefaultSocketPath()
	}

	c, err := client.ConnectWithContext(ctx, socket)
	if err != nil {
		return nil, err
	}
	a.cli = c
	return c, nil
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/claypark-dev/agent-sentry/internal/audit"
	"github.com/claypark-dev/agent-sentry/internal/guardconfig"
	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
	"github.com/claypark-dev/agent-sentry/internal/injection"
	"github.com/claypark-dev/agent-sentry/internal/permission"
	"github.com/claypark-dev/agent-sentry/internal/sandbox"
	"github.com/claypark-dev/agent-sentry/internal/shellparse"
	"github.com/claypark-dev/agent-sentry/internal/spotlight"
)

// Error definitions
var (
	errDenied       = errors.New("denied by security policy")
	errNotApproved  = errors.New("approval not granted")
	errNoTerminal   = errors.New("approval required but stdin is not a terminal")
	errEmptyCommand = errors.New("empty command")
)

type appState struct {
	configPath string
	level      int
	auditDB    string
	taskID     string

	cfg      *guardconfig.Config
	recorder audit.Recorder
	store    *audit.Store
	logger   *slog.Logger
}

func newRootCommand() *cobra.Command {
	state := &appState{}

	root := &cobra.Command{
		Use:           "sentry",
		Short:         "Security policy and sandboxed execution for assistant tool calls",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			state.teardown()
		},
	}

	root.PersistentFlags().StringVar(&state.configPath, "config", "", "path to TOML config file")
	root.PersistentFlags().IntVar(&state.level, "level", 0, "security level 1-5 (overrides config)")
	root.PersistentFlags().StringVar(&state.auditDB, "audit-db", "", "path to sqlite audit store (overrides config)")
	root.PersistentFlags().StringVar(&state.taskID, "task-id", "", "correlation id attached to audit records")

	root.AddCommand(newCheckCommand(state))
	root.AddCommand(newRunCommand(state))
	root.AddCommand(newScanCommand(state))
	root.AddCommand(newAuditCommand(state))
	return root
}

func (s *appState) setup() error {
	s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if s.configPath != "" {
		cfg, err := guardconfig.Load(s.configPath)
		if err != nil {
			return err
		}
		s.cfg = cfg
	} else {
		s.cfg = guardconfig.Default()
	}
	if s.level != 0 {
		s.cfg.SecurityLevel = s.level
	}
	if s.auditDB == "" {
		s.auditDB = s.cfg.AuditDB
	}

	recorders := audit.Multi{audit.NewLogger(s.logger)}
	if s.auditDB != "" {
		store, err := audit.OpenStore(s.auditDB, s.logger)
		if err != nil {
			return err
		}
		s.store = store
		recorders = append(recorders, store)
	}
	s.recorder = recorders
	return nil
}

func (s *appState) teardown() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *appState) checker() *permission.Checker {
	return permission.NewChecker(s.recorder, s.cfg.CheckOptions(), s.taskID)
}

func newCheckCommand(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "check <command>",
		Short: "Check a shell command against the security policy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			res := state.checker().Command(cmd.Context(), raw)
			printResult(cmd.OutOrStdout(), res)
			if res.Decision == guardtypes.DecisionDeny {
				return errDenied
			}
			return nil
		},
	}
}

func newRunCommand(state *appState) *cobra.Command {
	var (
		timeout time.Duration
		workDir string
	)
	cmd := &cobra.Command{
		Use:   "run <command>",
		Short: "Check a command and, if permitted, run it in the sandbox",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			res := state.checker().Command(cmd.Context(), raw)
			printResult(cmd.ErrOrStderr(), res)

			switch res.Decision {
			case guardtypes.DecisionDeny:
				return errDenied
			case guardtypes.DecisionNeedsApproval:
				approved, err := promptApproval(res.Reason)
				if err != nil {
					return err
				}
				if !approved {
					return errNotApproved
				}
			case guardtypes.DecisionAllow:
			}

			parsed, err := shellparse.Parse(raw)
			if err != nil {
				return err
			}
			if len(parsed) == 0 {
				return errEmptyCommand
			}
			if timeout <= 0 {
				timeout = state.cfg.Timeout()
			}

			// Pipes and chains are approved as a whole but executed one
			// simple command at a time; the sandbox never sees shell
			// operators.
			for _, root := range shellparse.Flatten(parsed) {
				result, err := sandbox.Execute(cmd.Context(), root.Binary, root.Args, sandbox.Options{
					Dir:            workDir,
					Timeout:        timeout,
					MaxOutputBytes: state.cfg.Sandbox.MaxOutputBytes,
				})
				if err != nil {
					return err
				}
				reportExecution(cmd, state, root, result)
				if result.TimedOut || result.ExitCode != 0 {
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "execution timeout (default from config)")
	cmd.Flags().StringVar(&workDir, "dir", "", "working directory for the command")
	return cmd
}

func newScanCommand(state *appState) *cobra.Command {
	var (
		source string
		label  string
		wrap   bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan stdin for prompt injection and optionally spotlight it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			text := string(input)

			res := injection.CheckForInjection(text, injection.Source(source))
			fmt.Fprintf(cmd.OutOrStdout(), "clean: %v\n", res.Clean)
			for _, t := range res.Threats {
				fmt.Fprintf(cmd.OutOrStdout(), "threat: %s severity=%s %s\n",
					t.Type, t.Severity, t.Description)
			}
			if !res.Clean {
				reportInjection(cmd.Context(), state, res)
			}
			if wrap {
				fmt.Fprintln(cmd.OutOrStdout(), spotlight.WrapUntrustedContent(text, label))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", string(injection.SourceExternal), "content source: user or external")
	cmd.Flags().StringVar(&label, "label", "stdin", "source label for spotlighting")
	cmd.Flags().BoolVar(&wrap, "wrap", false, "print the spotlighted content")
	return cmd
}

func newAuditCommand(state *appState) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if state.store == nil {
				return errors.New("no audit store configured (set --audit-db)")
			}
			recs, err := state.store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %-14s %-14s risk=%-8s %s\n",
					rec.Time.Format(time.RFC3339), rec.ID, rec.ActionType,
					rec.Decision, rec.Risk, rec.Reason)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of records to show")
	return cmd
}

// promptApproval asks the human for confirmation. Without a terminal there
// is nobody to ask, so the action does not proceed.
func promptApproval(reason string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errNoTerminal
	}
	fmt.Fprintf(os.Stderr, "approval required: %s\nproceed? [y/N] ", reason)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func printResult(w io.Writer, res guardtypes.SecurityCheckResult) {
	fmt.Fprintf(w, "%s (risk=%s): %s\n", res.Decision, res.Risk, res.Reason)
}

func reportExecution(cmd *cobra.Command, state *appState, parsed *shellparse.ParsedCommand, result *sandbox.Result) {
	fmt.Fprint(cmd.OutOrStdout(), result.Stdout)
	if result.Stderr != "" {
		fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)
	}
	now := time.Now()
	state.recorder.Report(cmd.Context(), audit.Record{
		ID:            audit.NewRecordID(now),
		Time:          now,
		ActionType:    audit.ActionExecution,
		Detail:        parsed.Raw,
		Allowed:       true,
		Decision:      guardtypes.DecisionAllow,
		Risk:          guardtypes.RiskLevelLow,
		SecurityLevel: state.cfg.SecurityLevel,
		Reason:        fmt.Sprintf("exit_code=%d timed_out=%v truncated=%v", result.ExitCode, result.TimedOut, result.Truncated),
		TaskID:        state.taskID,
	})
}

func reportInjection(ctx context.Context, state *appState, res injection.SanitizationResult) {
	now := time.Now()
	state.recorder.Report(ctx, audit.Record{
		ID:            audit.NewRecordID(now),
		Time:          now,
		ActionType:    audit.ActionInjection,
		Detail:        res.Summary(),
		Allowed:       false,
		Decision:      guardtypes.DecisionDeny,
		Risk:          guardtypes.RiskLevelHigh,
		SecurityLevel: state.cfg.SecurityLevel,
		Reason:        "high-severity injection threat detected",
		TaskID:        state.taskID,
	})
}

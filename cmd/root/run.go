package root

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inboxd/inboxd/pkg/run"
)

type runFlags struct {
	configPath string
	autoAccept bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <message>",
		Short: "Run one request from the command line",
		Long:  `Run a single request against the assistant, approving gated tool calls interactively`,
		Example: `  inboxd run "What meetings do I have this week?"
  inboxd run --yes "Send Lisa an email about the offsite"`,
		Args: cobra.ExactArgs(1),
		RunE: flags.runRunCommand,
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to the configuration file (default: ./inboxd.yaml)")
	cmd.Flags().BoolVarP(&flags.autoAccept, "yes", "y", false, "Accept all tool calls without prompting")

	return cmd
}

func (f *runFlags) runRunCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}

	svcs, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svcs.Close()

	r, err := svcs.runtime.Start(ctx, "", args[0], nil)
	if err != nil {
		return err
	}

	stdin := bufio.NewReader(cmd.InOrStdin())
	for r.State == run.StateAwaitingApproval {
		d, err := f.readDecision(out, stdin, r.Pending)
		if err != nil {
			return err
		}
		if r, err = svcs.runtime.Resume(ctx, r.ID, d, nil); err != nil {
			return err
		}
	}

	if r.Result != nil {
		fmt.Fprintln(out, r.Result.Text)
	}
	return nil
}

// readDecision prompts for one approval decision. Empty input accepts;
// "edit" asks for replacement arguments as JSON; "respond" asks for the
// follow-up message.
func (f *runFlags) readDecision(out io.Writer, stdin *bufio.Reader, pending *run.ApprovalRequest) (run.HumanDecision, error) {
	fmt.Fprintf(out, "Approval required: %s\n", pending.Description)

	if f.autoAccept {
		fmt.Fprintln(out, "Accepted (--yes)")
		return run.HumanDecision{Type: run.DecisionAccept}, nil
	}

	for {
		allowed := make([]string, len(pending.AllowedResponses))
		for i, t := range pending.AllowedResponses {
			allowed[i] = string(t)
		}
		fmt.Fprintf(out, "Decision [%s] (enter = accept): ", strings.Join(allowed, "/"))

		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return run.HumanDecision{}, fmt.Errorf("reading decision: %w", err)
		}

		switch choice := run.DecisionType(strings.TrimSpace(line)); choice {
		case "", run.DecisionAccept:
			return run.HumanDecision{Type: run.DecisionAccept}, nil
		case run.DecisionIgnore:
			return run.HumanDecision{Type: run.DecisionIgnore}, nil
		case run.DecisionEdit:
			fmt.Fprint(out, "Replacement arguments (JSON object): ")
			raw, err := stdin.ReadString('\n')
			if err != nil && raw == "" {
				return run.HumanDecision{}, fmt.Errorf("reading arguments: %w", err)
			}
			var edited map[string]any
			if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &edited); err != nil {
				fmt.Fprintf(out, "Not a JSON object: %v\n", err)
				continue
			}
			return run.HumanDecision{Type: run.DecisionEdit, Args: edited}, nil
		case run.DecisionRespond:
			fmt.Fprint(out, "Response: ")
			text, err := stdin.ReadString('\n')
			if err != nil && text == "" {
				return run.HumanDecision{}, fmt.Errorf("reading response: %w", err)
			}
			return run.HumanDecision{Type: run.DecisionRespond, Args: strings.TrimSpace(text)}, nil
		default:
			fmt.Fprintf(out, "Unknown decision %q\n", choice)
		}
	}
}

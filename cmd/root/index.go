package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inboxd/inboxd/pkg/mailstore"
)

type indexFlags struct {
	configPath string
}

func newIndexCmd() *cobra.Command {
	var flags indexFlags

	cmd := &cobra.Command{
		Use:   "index <mailbox-file>",
		Short: "Index an email archive for history search",
		Long:  `Load a mailbox file (JSON array or JSONL) into the configured search index`,
		Args:  cobra.ExactArgs(1),
		RunE:  flags.runIndexCommand,
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to the configuration file (default: ./inboxd.yaml)")

	return cmd
}

func (f *indexFlags) runIndexCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	if cfg.Index.Path == "" {
		return fmt.Errorf("index.path is not configured; an in-memory index would be lost on exit")
	}

	emails, err := mailstore.LoadMailbox(args[0])
	if err != nil {
		return err
	}

	index, err := mailstore.Open(cfg.Index.Path)
	if err != nil {
		return err
	}
	defer index.Close()

	if err := index.Add(emails...); err != nil {
		return err
	}

	count, err := index.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d emails (%d total in %s)\n", len(emails), count, cfg.Index.Path)
	return nil
}

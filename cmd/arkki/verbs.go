package main

import (
	"github.com/fgeck/arkki/internal/services/dispatcher"
	"github.com/spf13/cobra"
)

// newVerbCommand exposes one verb-table entry as a subcommand. Arguments are
// handed to the dispatcher unchanged, so batch and interactive mode share
// one implementation.
func newVerbCommand(c dispatcher.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:     c.Usage,
		Aliases: c.Abbreviations(),
		Short:   c.Short,
		Args:    cobra.MaximumNArgs(c.MaxArgs),
	}
	if c.MaxArgs < 0 {
		cmd.Args = cobra.ArbitraryArgs
	}

	var dryRun, remove bool
	switch c.Op {
	case dispatcher.OpBackup:
		cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the command line instead of running it")
	case dispatcher.OpAddPattern:
		cmd.Flags().BoolVarP(&remove, "delete", "d", false, "remove the given patterns")
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		d, err := newDispatcher()
		if err != nil {
			return err
		}

		req := request()
		req.DryRun = dryRun

		argv := []string{c.Name}
		if remove {
			argv = append(argv, "-d")
		}
		argv = append(argv, args...)

		return d.Dispatch(cmd.Context(), req, argv)
	}

	return cmd
}

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/backendtb/program"
)

var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "List the built-in programs.",
	Run: func(cmd *cobra.Command, _ []string) {
		listPrograms(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(programsCmd)
}

func listPrograms(out io.Writer) {
	for _, name := range program.BuiltinNames() {
		p, err := program.Builtin(name)
		if err != nil {
			panic(err)
		}

		fmt.Fprintf(out, "%-16s %-7s %d entries\n", p.Name, p.Mode, len(p.Entries))
	}
}

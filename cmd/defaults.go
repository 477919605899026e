package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vanet-sim/dsrc-sim/sim/scenario"
)

// defaultsCmd prints the stock scenario as a YAML file that `run --config`
// accepts.
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default scenario as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		out, err := scenario.Default().YAML()
		if err != nil {
			logrus.Fatalf("Failed to render defaults: %v", err)
		}
		if _, err := os.Stdout.Write(out); err != nil {
			logrus.Fatalf("Failed to write defaults: %v", err)
		}
	},
}

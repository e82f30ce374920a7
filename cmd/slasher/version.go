package main

import (
	"github.com/spf13/cobra"
	"github.com/textileio/slasher/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fields := buildinfo.Fields()
		data := make([][]string, len(fields))
		for i, f := range fields {
			data[i] = []string{f.Name, f.Value}
		}
		renderTable([]column{{name: "name"}, {name: "value"}}, data)
	},
}

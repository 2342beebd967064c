package tools

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/core-explorer/elfutils/internal/cli"
	"github.com/core-explorer/elfutils/pkg/utils"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the category names accepted by --suppress",
	Long: `Prints every area name that a --suppress YAML file's "suppress" list
can reference, one per line. The --suppress file's contents are combined
with --strict/--gnu/--ignore-missing at run time, so this is the full
vocabulary, not just the areas enabled by default.`,
	Run: func(cmd *cobra.Command, args []string) {
		names := utils.Keys(cli.AreaNames)
		sort.Strings(names)
		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			file, err := os.Create(outputFile)
			if err != nil {
				fmt.Println("Error creating file:", err)
				os.Exit(1)
			}
			defer file.Close()
			for _, name := range names {
				fmt.Fprintln(file, name)
			}
			return
		}
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

func init() {
	ToolsCmd.AddCommand(categoriesCmd)
	categoriesCmd.Flags().StringP("output", "o", "", "Output file. If not specified, the list is printed to stdout.")
}

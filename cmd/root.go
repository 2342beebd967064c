package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/core-explorer/elfutils/cmd/tools"
	"github.com/core-explorer/elfutils/internal/cli"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/driver"
	"github.com/core-explorer/elfutils/internal/elfsource"
	"github.com/core-explorer/elfutils/internal/reporter"
	"github.com/core-explorer/elfutils/pkg/utils"
)

var cfgFile string

var (
	flagStrict        bool
	flagGNU           bool
	flagIgnoreMissing bool
	flagQuiet         bool
	flagSuppress      string
	flagColor         string
)

// RootCmd is the elfutils entry point: a pedantic structural validator for
// DWARF debugging information embedded in ELF object files.
var RootCmd = &cobra.Command{
	Use:   "elfutils <file>...",
	Short: "Validate the structural integrity of DWARF debugging information in ELF objects",
	Long: `elfutils reads the raw bytes of the DWARF debug sections of one or more
ELF object files (.debug_abbrev, .debug_info, .debug_str, .debug_aranges,
.debug_pubnames) and reports violations of the DWARF encoding rules:
malformed length fields, invalid abbreviation codes, dangling DIE
references, broken sibling chains, wasted string-table bytes, wrong
aranges/pubnames entries, and more.

It never relies on a higher-level DWARF library to do the structural
walk; the decoder is purpose-built for this checker.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.Flags().BoolVar(&flagStrict, "strict", false, "also report wasted .debug_str bytes")
	RootCmd.Flags().BoolVar(&flagGNU, "gnu", false, "accept bloat produced by GNU toolchains")
	RootCmd.Flags().BoolVarP(&flagIgnoreMissing, "ignore-missing", "i", false, "tolerate missing debug sections")
	RootCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress the \"no errors\" line per file")
	RootCmd.Flags().StringVar(&flagSuppress, "suppress", "", "YAML file naming message categories to permanently suppress")
	RootCmd.Flags().StringVar(&flagColor, "color", "auto", "colorize output: auto, always, never")
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.elfutils.yaml)")
	RootCmd.AddCommand(tools.ToolsCmd)

	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".elfutils")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	flags := cli.Flags{
		Strict:        flagStrict,
		GNU:           flagGNU,
		IgnoreMissing: flagIgnoreMissing,
		Quiet:         flagQuiet,
		Suppress:      flagSuppress,
		Color:         flagColor,
	}

	accept, reject, err := cli.Masks(flags)
	if err != nil {
		return err
	}

	colorEnabled := cli.ColorEnabled(flagColor, isatty.IsTerminal(os.Stdout.Fd()))
	rep := reporter.New(os.Stdout, colorEnabled)
	rep.Accept = accept
	rep.Reject = reject
	rep.SetQuiet(flagQuiet)

	for _, path := range args {
		checkFile(path, rep, flagIgnoreMissing)
	}

	if rep.ErrorCount() != 0 {
		os.Exit(1)
	}
	return nil
}

func checkFile(path string, rep *diag.Reporter, ignoreMissing bool) {
	sections, err := elfsource.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return
	}

	before := rep.ErrorCount()
	result := driver.Check(sections, rep, ignoreMissing)

	if ignoreMissing && len(result.MissingSections) > 0 && !rep.Quiet() {
		fmt.Printf("%s: skipped missing sections: %s\n", path, utils.FormatSlice(result.MissingSections, ", "))
	}

	if rep.ErrorCount() == before && !rep.Quiet() {
		fmt.Printf("%s: no errors\n", path)
	}
}

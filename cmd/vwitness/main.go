package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/value-witness/witness"
)

var rootCmd = &cobra.Command{
	Use:   "vwitness",
	Short: "Inspect and run value witness layout programs",
	Long: `vwitness evaluates layout programs: sizes, spare bits, enum tag
packing and destruction of values in memory.

Layouts are given in text form, e.g. "a(0:c, 3:e<1>(N))", as hex with a
"hex:" prefix, or read from a file with "@path".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if !verbose {
			return nil
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		witness.SetLogger(l)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(spareBitsCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(interactiveCmd)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log interpreter decisions to stderr")
	rootCmd.PersistentFlags().StringP("metadata", "m", "", "TOML file with generic arguments")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text|json|msgpack)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command) (bool, error) {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "", "auto":
		return isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
}

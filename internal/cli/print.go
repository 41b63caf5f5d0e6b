package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"kifu_editor/internal/export"
)

var (
	printFormat string
	printOutput string
	printFont   string
)

var printCmd = &cobra.Command{
	Use:   "print <file.json>",
	Short: "Export a JSON kifu file as KIF, CSA or PDF",
	Long: `Export a JSON kifu file.

Formats: kif, kif-sjis, csa, pdf. PDF output needs --font pointing at a
TrueType font with Japanese glyphs to print KIF; without it the CSA listing
is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := loadTree(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if printOutput != "" && printOutput != "-" {
			f, err := os.Create(printOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		switch printFormat {
		case "kif":
			_, err = io.WriteString(out, export.KIF(tree))
		case "kif-sjis":
			var data []byte
			data, err = export.ShiftJIS(export.KIF(tree))
			if err == nil {
				_, err = out.Write(data)
			}
		case "csa":
			var text string
			text, err = export.CSA(tree)
			if err == nil {
				_, err = io.WriteString(out, text)
			}
		case "pdf":
			err = export.PDF(out, tree, printFont)
		default:
			return fmt.Errorf("unknown format %q", printFormat)
		}
		return err
	},
}

func init() {
	printCmd.Flags().StringVarP(&printFormat, "format", "f", "kif", "Output format: kif, kif-sjis, csa, pdf")
	printCmd.Flags().StringVarP(&printOutput, "output", "o", "-", "Output file, - for stdout")
	printCmd.Flags().StringVar(&printFont, "font", "", "TrueType font for PDF output")
}

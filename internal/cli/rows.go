package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"kifu_editor/internal/kifu"
)

var (
	rowsPointer string
	rowsJSON    bool
)

var (
	teStyle       = lipgloss.NewStyle().Width(4).Align(lipgloss.Right).Foreground(lipgloss.Color("243"))
	notationStyle = lipgloss.NewStyle().Width(14).PaddingLeft(1)
	activeStyle   = notationStyle.
			Bold(true).
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))
	branchStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"})
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

var rowsCmd = &cobra.Command{
	Use:   "rows <file.json>",
	Short: "Print the move list of a JSON kifu file",
	Long: `Print the move list of a JSON kifu file the way the editor shows it.

--pointer selects the line to follow, e.g. "12,[5:0]".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := loadTree(args[0])
		if err != nil {
			return err
		}
		cursor, err := kifu.ParseTesuuPointer(kifu.TesuuPointer(rowsPointer))
		if err != nil {
			return err
		}
		rows := kifu.BuildRows(tree, cursor)

		if rowsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}
		renderRows(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	rowsCmd.Flags().StringVar(&rowsPointer, "pointer", "0,[]", "Cursor as a tesuu pointer")
	rowsCmd.Flags().BoolVar(&rowsJSON, "json", false, "Output rows as JSON")
}

func renderRows(w io.Writer, rows []kifu.Row) {
	for _, row := range rows {
		style := notationStyle
		if row.IsActiveRow {
			style = activeStyle
		}
		line := teStyle.Render(fmt.Sprint(row.Te)) + style.Render(row.NotationText)

		if row.MainAlternativeText != "" {
			line += " " + branchStyle.Render(alternatives(row))
		}
		if row.CommentCount > 0 {
			line += " " + faintStyle.Render(fmt.Sprintf("*%d", row.CommentCount))
		}
		fmt.Fprintln(w, line)
	}
}

// alternatives lists every continuation at a branch point, bracketing the
// one the row follows.
func alternatives(row kifu.Row) string {
	texts := append([]string{row.MainAlternativeText}, row.ForkAlternativeTexts...)
	for i := range texts {
		if i == row.SelectedForkIndex+1 {
			texts[i] = "[" + texts[i] + "]"
		}
	}
	return strings.Join(texts, " ")
}

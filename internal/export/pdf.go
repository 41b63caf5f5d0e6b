package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"kifu_editor/internal/kifu"
)

const pdfFontFamily = "kifu"

// PDF writes a printable record to w. With a TrueType font that covers
// Japanese the KIF text is printed; without one the built-in Courier face
// can only show ASCII, so the CSA listing is printed instead.
func PDF(w io.Writer, tree kifu.MoveTree, fontPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")

	var text string
	if fontPath != "" {
		pdf.AddUTF8Font(pdfFontFamily, "", fontPath)
		pdf.SetFont(pdfFontFamily, "", 10)
		text = KIF(tree)
	} else {
		csa, err := CSA(tree)
		if err != nil {
			return err
		}
		pdf.SetFont("Courier", "", 10)
		text = csa
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf font: %w", err)
	}

	pdf.AddPage()
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		pdf.MultiCell(0, 4.5, line, "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf output: %w", err)
	}
	return nil
}

package render

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/obligation-finder/internal/model"
)

// XLSX writes one worksheet per snapshot, named after its fiscal year.
// Each sheet has a header row, one row per record and a closing total row.
func XLSX(w io.Writer, snaps ...model.Snapshot) error {
	f := xlsx.NewFile()
	for _, s := range snaps {
		sheet, err := f.AddSheet("FY" + s.SelectedYear.String())
		if err != nil {
			return eris.Wrapf(err, "render: add sheet for %s", s.SelectedYear)
		}

		header := sheet.AddRow()
		for _, h := range []string{"Account", "Obligated", "Projected"} {
			header.AddCell().SetString(h)
		}

		for _, r := range s.Dataset {
			row := sheet.AddRow()
			row.AddCell().SetString(r.Name)
			row.AddCell().SetFloat(r.Value)
			row.AddCell().SetFloat(r.Alternative)
		}

		total := sheet.AddRow()
		total.AddCell().SetString("Total")
		total.AddCell().SetFloat(s.TotalValue)
	}

	if len(snaps) == 0 {
		if _, err := f.AddSheet("Obligations"); err != nil {
			return eris.Wrap(err, "render: add empty sheet")
		}
	}

	return eris.Wrap(f.Write(w), "render: write xlsx")
}

package grade

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/core/user"
)

const exportSheet = "Grades"

var exportHeader = []interface{}{"Student", "Username", "Subject", "Term", "Score", "Remarks", "Faculty", "Updated At"}

// writeXLSX writes grades as an XLSX workbook to w; users maps IDs to the students & faculty members.
func writeXLSX(w io.Writer, grades []Grade, users map[string]user.User) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	f.SetSheetName(f.GetSheetName(0), exportSheet)

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	if err = f.SetRowStyle(exportSheet, 1, 1, style); err != nil {
		return errors.Wrap(err, "styling header")
	}

	for i, g := range grades {
		student := users[g.StudentID]
		faculty := users[g.FacultyID]
		row := []interface{}{
			student.Name,
			student.Username,
			g.Subject,
			g.Term,
			g.Score,
			g.Remarks,
			faculty.Name,
			g.UpdatedAt.Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "computing cell name")
		}
		if err = f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}

	if err = f.SetColWidth(exportSheet, "A", "H", 18); err != nil {
		return errors.Wrap(err, "setting column width")
	}
	if _, err = f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

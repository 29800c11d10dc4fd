package core

type (
	// Table is the raw content of an uploaded spreadsheet: the first row as Headers, the rest as Rows.
	Table struct {
		Headers []string
		Rows    [][]string
	}

	// Sheet is one worksheet of a generated workbook.
	Sheet struct {
		Name    string
		Headers []string
		Rows    [][]interface{}
	}

	// QRRenderer encodes text into a PNG QR code of size x size pixels.
	QRRenderer interface {
		Render(text string, size int) ([]byte, error)
	}
)

// Cell returns the trimmed value at idx, or "" when the row is too short.
func (t Table) Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return CleanString(row[idx])
}

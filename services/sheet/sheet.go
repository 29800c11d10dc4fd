package sheetsvc

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/Mohammed01doitesky/bed/core"
)

const maxXLSRows = 100000

var (
	ErrUnsupportedFile = errors.New("Invalid file type. Please upload Excel (.xlsx, .xls) or CSV files only.")
	ErrEmptySheet      = errors.New("The uploaded file is empty")

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// Supported reports whether filename has an extension ReadTable can parse.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls", ".csv":
		return true
	}
	return false
}

// ReadTable parses the first worksheet of an uploaded file, the format being chosen by its extension.
// The first row becomes the table headers.
func ReadTable(filename string, data []byte) (core.Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, err = readXLSX(data)
	case ".xls":
		rows, err = readXLS(data)
	case ".csv":
		rows, err = readCSV(data)
	default:
		return core.Table{}, ErrUnsupportedFile
	}
	if err != nil {
		return core.Table{}, err
	}
	if len(rows) == 0 {
		return core.Table{}, ErrEmptySheet
	}
	return core.Table{Headers: rows[0], Rows: rows[1:]}, nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "opening xlsx file")
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrEmptySheet
	}
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, errors.Wrap(err, "reading xlsx rows")
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, errors.Wrap(err, "opening xls file")
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrEmptySheet
	}
	return workbook.ReadAllCells(maxXLSRows), nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading csv")
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// WriteXLSX encodes each sheet as a worksheet, headers on the first row.
func WriteXLSX(sheets []core.Sheet) ([]byte, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	defaultSheet := file.GetSheetName(0)
	for i, sh := range sheets {
		idx, err := file.NewSheet(sh.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "creating sheet %s", sh.Name)
		}
		if i == 0 {
			file.SetActiveSheet(idx)
		}

		header := make([]interface{}, 0, len(sh.Headers))
		for _, h := range sh.Headers {
			header = append(header, h)
		}
		if err = setRow(file, sh.Name, 1, header); err != nil {
			return nil, err
		}
		for r, row := range sh.Rows {
			if err = setRow(file, sh.Name, r+2, row); err != nil {
				return nil, err
			}
		}
	}
	if len(sheets) > 0 && defaultSheet != sheets[0].Name {
		if err := file.DeleteSheet(defaultSheet); err != nil {
			return nil, errors.Wrap(err, "deleting default sheet")
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing xlsx")
	}
	return buf.Bytes(), nil
}

func setRow(file *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, "computing cell name")
	}
	if err = file.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.Wrapf(err, "writing row %d of %s", row, sheet)
	}
	return nil
}

// Writer adapts WriteXLSX to the report service.
type Writer struct{}

func (Writer) WriteXLSX(sheets []core.Sheet) ([]byte, error) { return WriteXLSX(sheets) }

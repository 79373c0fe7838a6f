// Package tabular reads spreadsheet uploads into typed rows.
//
// Workbooks (.xlsx, .xlsm) are read with excelize; delimited text (.csv, .tsv)
// with encoding/csv. Every cell is typed once by ParseCell so downstream
// inference and reconciliation never re-interpret raw strings ad hoc.
package tabular

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoFile          = errors.New("no file provided")
	ErrEmptySheet      = errors.New("sheet has no data rows")
	ErrUnsupportedFile = errors.New("unsupported file type: expected xlsx or csv")
	ErrSheetNotFound   = errors.New("sheet not found in workbook")
)

var zipMagic = []byte("PK\x03\x04")

// Row maps a header to its cell value.
type Row map[string]Value

// Sheet is one parsed worksheet. Headers keep their source order and are unique.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}

// Hash returns the hex SHA-256 digest identifying an upload.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// cell is one grid entry before typing. Workbook date cells arrive already
// typed because their text is only a display rendering of a serial number.
type cell struct {
	text  string
	value Value
	typed bool
}

func (c cell) Value() Value {
	if c.typed {
		return c.value
	}
	return ParseCell(c.text)
}

// Parse reads the named sheet, or the first sheet when name is empty.
// The first non-blank row supplies headers and is widened to the longest
// row, since workbook readers drop trailing empty cells. Fully empty rows
// are dropped.
func Parse(data []byte, filename, name string) (*Sheet, error) {
	if len(data) == 0 {
		return nil, ErrNoFile
	}

	var (
		sheet string
		grid  [][]cell
		err   error
	)

	switch ext := strings.ToLower(filepath.Ext(filename)); {
	case ext == ".csv":
		sheet, grid, err = readDelimited(data, ',', filename)
	case ext == ".tsv":
		sheet, grid, err = readDelimited(data, '\t', filename)
	case bytes.HasPrefix(data, zipMagic):
		sheet, grid, err = readWorkbook(data, name)
	default:
		return nil, ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}

	return build(sheet, grid)
}

func readWorkbook(data []byte, name string) (string, [][]cell, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnsupportedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, ErrEmptySheet
	}

	sheet := sheets[0]
	if name != "" {
		found := false
		for _, s := range sheets {
			if strings.EqualFold(s, name) {
				sheet, found = s, true
				break
			}
		}
		if !found {
			return "", nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
		}
	}

	display, err := f.GetRows(sheet)
	if err != nil {
		return "", nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	dates := newDateCells(f, sheet)
	grid := make([][]cell, len(display))
	for r, rec := range display {
		row := make([]cell, len(rec))
		for c, text := range rec {
			row[c] = cell{text: text}
			if r < len(raw) && c < len(raw[r]) {
				if t, ok := dates.decode(r, c, raw[r][c]); ok {
					row[c].value, row[c].typed = Date(t), true
				}
			}
		}
		grid[r] = row
	}

	return sheet, grid, nil
}

func readDelimited(data []byte, comma rune, filename string) (string, [][]cell, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var grid [][]cell
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("read %s: %w", filename, err)
		}
		row := make([]cell, len(rec))
		for i, text := range rec {
			row[i] = cell{text: text}
		}
		grid = append(grid, row)
	}

	sheet := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return sheet, grid, nil
}

func build(name string, grid [][]cell) (*Sheet, error) {
	start := 0
	for start < len(grid) && blank(grid[start]) {
		start++
	}
	if start >= len(grid) {
		return nil, ErrEmptySheet
	}

	width := 0
	for _, rec := range grid[start:] {
		width = max(width, len(rec))
	}

	headerRow := make([]string, width)
	for i, c := range grid[start] {
		headerRow[i] = c.text
	}
	headers := uniqueHeaders(headerRow)

	rows := make([]Row, 0, len(grid)-start-1)
	for _, rec := range grid[start+1:] {
		if blank(rec) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i].Value()
			} else {
				row[h] = Null()
			}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	return &Sheet{Name: name, Headers: headers, Rows: rows}, nil
}

// uniqueHeaders trims header cells and names blank ones column_N. The first
// occurrence of a name keeps it; repeats take the lowest free _2, _3 suffix,
// skipping names already used by other columns.
func uniqueHeaders(rec []string) []string {
	names := make([]string, len(rec))
	headers := make([]string, len(rec))
	taken := make(map[string]bool, len(rec))

	for i, c := range rec {
		h := strings.TrimSpace(c)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = h
		if !taken[h] {
			taken[h] = true
			headers[i] = h
		}
	}

	next := make(map[string]int)
	for i, h := range names {
		if headers[i] != "" {
			continue
		}
		n := max(next[h], 2)
		for taken[fmt.Sprintf("%s_%d", h, n)] {
			n++
		}
		headers[i] = fmt.Sprintf("%s_%d", h, n)
		taken[headers[i]] = true
		next[h] = n + 1
	}

	return headers
}

func blank(rec []cell) bool {
	for _, c := range rec {
		if strings.TrimSpace(c.text) != "" {
			return false
		}
	}
	return true
}

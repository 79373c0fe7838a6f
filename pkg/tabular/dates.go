package tabular

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateCells recognizes workbook cells whose number format renders a date,
// caching the verdict per style id.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	d := &dateCells{f: f, sheet: sheet, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// decode converts the raw serial at zero-based (row, col) when the cell is
// date formatted.
func (d *dateCells) decode(row, col int, raw string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return time.Time{}, false
	}

	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return time.Time{}, false
	}
	id, err := d.f.GetCellStyle(d.sheet, axis)
	if err != nil {
		return time.Time{}, false
	}

	isDate, ok := d.styles[id]
	if !ok {
		style, err := d.f.GetStyle(id)
		isDate = err == nil && dateFormat(style)
		d.styles[id] = isDate
	}
	if !isDate {
		return time.Time{}, false
	}

	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func dateFormat(style *excelize.Style) bool {
	if style.CustomNumFmt != nil {
		return customDateFormat(*style.CustomNumFmt)
	}
	switch id := style.NumFmt; {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// customDateFormat reports whether a format code has a year or day token
// outside quoted literals, escapes and bracketed sections.
func customDateFormat(code string) bool {
	var quoted, bracket, escaped bool
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracket = true
		case r == ']':
			bracket = false
		case bracket:
		case r == 'y', r == 'd':
			return true
		}
	}
	return false
}

package tabular_test

import (
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JaimeStill/tally/pkg/schema"
	"github.com/JaimeStill/tally/pkg/tabular"
)

func workbook(t *testing.T, sheets map[string][][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}

		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParseCSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfSKU,Qty,Vendor Name\nABC123,5,Acme\n,,\nXYZ9,10,\n")

	sheet, err := tabular.Parse(data, "pallets.csv", "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if sheet.Name != "pallets" {
		t.Errorf("name = %q, want pallets", sheet.Name)
	}

	wantHeaders := []string{"SKU", "Qty", "Vendor Name"}
	if len(sheet.Headers) != len(wantHeaders) {
		t.Fatalf("headers = %v, want %v", sheet.Headers, wantHeaders)
	}
	for i, h := range wantHeaders {
		if sheet.Headers[i] != h {
			t.Errorf("header[%d] = %q, want %q", i, sheet.Headers[i], h)
		}
	}

	if len(sheet.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank row dropped)", len(sheet.Rows))
	}

	if got := sheet.Rows[0]["Qty"]; got.Kind() != tabular.KindInt || got.Int() != 5 {
		t.Errorf("Qty = %v, want int 5", got)
	}
	if got := sheet.Rows[1]["Vendor Name"]; got.Kind() != tabular.KindNull {
		t.Errorf("Vendor Name = %v, want null", got)
	}
}

func TestParseWorkbook(t *testing.T) {
	data := workbook(t, map[string][][]any{
		"Inventory": {
			{"SKU", "Qty", "SKU", ""},
			{"ABC123", 5, "dup", "x"},
		},
	})

	sheet, err := tabular.Parse(data, "upload.xlsx", "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if sheet.Name != "Inventory" {
		t.Errorf("name = %q, want Inventory", sheet.Name)
	}

	want := []string{"SKU", "Qty", "SKU_2", "column_4"}
	for i, h := range want {
		if sheet.Headers[i] != h {
			t.Errorf("header[%d] = %q, want %q", i, sheet.Headers[i], h)
		}
	}

	if got := sheet.Rows[0]["SKU_2"].String(); got != "dup" {
		t.Errorf("SKU_2 = %q, want dup", got)
	}
}

func TestParseWorkbookDates(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	shipped := []time.Time{
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	builtIn, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		t.Fatal(err)
	}
	isoFmt := `yyyy\-mm\-dd`
	custom, err := f.NewStyle(&excelize.Style{CustomNumFmt: &isoFmt})
	if err != nil {
		t.Fatal(err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.SetSheetRow(sheet, "A1", &[]any{"Shipped", "Delivered", "Qty", "Price"}); err != nil {
		t.Fatal(err)
	}
	for i, day := range shipped {
		row := i + 2
		a, _ := excelize.CoordinatesToCellName(1, row)
		b, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetSheetRow(sheet, a, &[]any{day, day.AddDate(0, 0, 3), 40 + i, 12.5}); err != nil {
			t.Fatal(err)
		}
		if err := f.SetCellStyle(sheet, a, a, builtIn); err != nil {
			t.Fatal(err)
		}
		if err := f.SetCellStyle(sheet, b, b, custom); err != nil {
			t.Fatal(err)
		}
		price, _ := excelize.CoordinatesToCellName(4, row)
		if err := f.SetCellStyle(sheet, price, price, money); err != nil {
			t.Fatal(err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := tabular.Parse(buf.Bytes(), "shipments.xlsx", "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	for i, want := range shipped {
		got := parsed.Rows[i]["Shipped"]
		if got.Kind() != tabular.KindDate || !got.Time().Equal(want) {
			t.Errorf("row %d Shipped = %s %q, want date %s", i, got.Kind(), got.String(), want.Format(time.DateOnly))
		}
		if got := parsed.Rows[i]["Delivered"]; got.Kind() != tabular.KindDate || !got.Time().Equal(want.AddDate(0, 0, 3)) {
			t.Errorf("row %d Delivered = %s %q, want custom-format date", i, got.Kind(), got.String())
		}
		if got := parsed.Rows[i]["Qty"]; got.Kind() != tabular.KindInt {
			t.Errorf("row %d Qty = %s, want int", i, got.Kind())
		}
		if got := parsed.Rows[i]["Price"]; got.Kind() == tabular.KindDate {
			t.Errorf("row %d Price read as date", i)
		}
	}

	samples := make([]tabular.Value, len(parsed.Rows))
	for i, row := range parsed.Rows {
		samples[i] = row["Shipped"]
	}
	inf := schema.InferColumnType(samples, schema.DefaultMinSupport)
	if inf.Type != schema.TypeDate || inf.Support != 1 {
		t.Errorf("Shipped inferred %+v, want date with full support", inf)
	}
}

func TestParseRepeatedHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []string
	}{
		{"suffix collides with later header", "a,a,a_2", []string{"a", "a_3", "a_2"}},
		{"three repeats", "a,a,a", []string{"a", "a_2", "a_3"}},
		{"blank collides with literal", "x,,column_2", []string{"x", "column_2_2", "column_2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(tt.header + "\n1,2,3\n")
			sheet, err := tabular.Parse(data, "h.csv", "")
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}

			seen := make(map[string]bool)
			for i, h := range sheet.Headers {
				if h != tt.want[i] {
					t.Errorf("header[%d] = %q, want %q", i, h, tt.want[i])
				}
				if seen[h] {
					t.Errorf("header %q used twice", h)
				}
				seen[h] = true
			}
			if len(sheet.Rows[0]) != len(tt.want) {
				t.Errorf("row has %d keys, want %d", len(sheet.Rows[0]), len(tt.want))
			}
		})
	}
}

func TestParseNamedSheet(t *testing.T) {
	data := workbook(t, map[string][][]any{
		"Orders": {{"id"}, {"1"}},
	})

	if _, err := tabular.Parse(data, "book.xlsx", "orders"); err != nil {
		t.Errorf("case-insensitive sheet lookup failed: %v", err)
	}

	_, err := tabular.Parse(data, "book.xlsx", "Missing")
	if !errors.Is(err, tabular.ErrSheetNotFound) {
		t.Errorf("err = %v, want ErrSheetNotFound", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename string
		want     error
	}{
		{"no data", nil, "a.csv", tabular.ErrNoFile},
		{"headers only", []byte("a,b\n"), "a.csv", tabular.ErrEmptySheet},
		{"only blank lines", []byte(",\n,\n"), "a.csv", tabular.ErrEmptySheet},
		{"pdf", []byte("%PDF-1.7"), "a.pdf", tabular.ErrUnsupportedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tabular.Parse(tt.data, tt.filename, "")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHash(t *testing.T) {
	a := tabular.Hash([]byte("sku,qty\n"))
	b := tabular.Hash([]byte("sku,qty\n"))
	c := tabular.Hash([]byte("sku,qty\n1,2\n"))

	if a != b {
		t.Error("same bytes should hash equally")
	}
	if a == c {
		t.Error("different bytes should hash differently")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
}

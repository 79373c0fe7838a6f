package schema_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/JaimeStill/tally/pkg/schema"
)

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"  Vendor   Name ": "vendor name",
		"Qté":              "qte",
		"SKU":              "sku",
		"":                 "",
	}

	for in, want := range tests {
		if got := schema.NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScalarTypeJSON(t *testing.T) {
	var f schema.Field
	if err := json.Unmarshal([]byte(`{"name":"qty","type":"Integer","aliases":["Qty"]}`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Type != schema.TypeInteger {
		t.Errorf("type = %s, want integer", f.Type)
	}

	err := json.Unmarshal([]byte(`{"name":"qty","type":"decimal"}`), &f)
	if !errors.Is(err, schema.ErrInvalidType) {
		t.Errorf("err = %v, want ErrInvalidType", err)
	}
}

func TestDedupe(t *testing.T) {
	fields := schema.Dedupe([]schema.Field{
		{Name: "Vendor", Type: schema.TypeString, Aliases: []string{"Vendor Name"}},
		{Name: "vendor ", Type: schema.TypeInteger, Aliases: []string{"Supplier", "Vendor Name"}},
		{Name: "  ", Type: schema.TypeString},
	})

	if len(fields) != 1 {
		t.Fatalf("fields = %d, want 1", len(fields))
	}
	if fields[0].Type != schema.TypeString {
		t.Errorf("type = %s, want first occurrence", fields[0].Type)
	}
	if len(fields[0].Aliases) != 2 {
		t.Errorf("aliases = %v, want [Vendor Name Supplier]", fields[0].Aliases)
	}
}

func TestFieldsFromHeaders(t *testing.T) {
	fields := schema.FieldsFromHeaders([]string{"Vendor Name", "Qty"})
	if len(fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(fields))
	}
	for _, f := range fields {
		if f.Type != schema.TypeString {
			t.Errorf("%s type = %s, want string", f.Name, f.Type)
		}
		if len(f.Aliases) != 0 {
			t.Errorf("%s aliases = %v, want none", f.Name, f.Aliases)
		}
	}
	if _, ok := schema.Lookup(fields, "VENDOR NAME"); !ok {
		t.Error("lookup by unnormalized name failed")
	}
}

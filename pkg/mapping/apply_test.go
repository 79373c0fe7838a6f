package mapping_test

import (
	"testing"

	"github.com/JaimeStill/tally/pkg/mapping"
	"github.com/JaimeStill/tally/pkg/schema"
	"github.com/JaimeStill/tally/pkg/tabular"
)

func TestApply(t *testing.T) {
	headers := []string{"Item Code", "Qty", "Notes"}
	row := tabular.Row{
		"Item Code": tabular.Text("ABC123"),
		"Qty":       tabular.Int(5),
		"Notes":     tabular.Null(),
	}

	t.Run("mapped columns", func(t *testing.T) {
		doc := mapping.Apply(row, headers, []mapping.Column{
			{Incoming: "Item Code", MapTo: "sku"},
			{Incoming: "Qty", MapTo: "Quantity"},
			{Incoming: "Notes", MapTo: ""},
		})

		if doc["sku"] != "ABC123" {
			t.Errorf("sku = %v, want ABC123", doc["sku"])
		}
		if doc["quantity"] != int64(5) {
			t.Errorf("quantity = %v, want 5", doc["quantity"])
		}
		if len(doc) != 2 {
			t.Errorf("doc = %v, want two keys", doc)
		}
	})

	t.Run("no mapping uses normalized headers", func(t *testing.T) {
		doc := mapping.Apply(row, headers, nil)

		if doc["item code"] != "ABC123" {
			t.Errorf("item code = %v, want ABC123", doc["item code"])
		}
		if _, ok := doc["notes"]; ok {
			t.Error("null cells must be omitted")
		}
	})
}

func TestConfirmed(t *testing.T) {
	proposals := []mapping.Proposal{
		{Incoming: "Qty", BestMatch: ptr("quantity"), AutoMapped: true},
		{Incoming: "Vendor", BestMatch: ptr("sku"), NeedsUserDecision: true},
	}

	cols := mapping.Confirmed(proposals)
	if len(cols) != 1 || cols[0] != (mapping.Column{Incoming: "Qty", MapTo: "quantity"}) {
		t.Errorf("confirmed = %v, want [{Qty quantity}]", cols)
	}
}

func TestAdoptedFields(t *testing.T) {
	t.Run("from mapping", func(t *testing.T) {
		fields := mapping.AdoptedFields([]mapping.Column{{Incoming: "Vendor Name", MapTo: "vendor"}}, nil)

		if len(fields) != 1 {
			t.Fatalf("fields = %d, want 1", len(fields))
		}
		f := fields[0]
		if f.Name != "vendor" || f.Type != schema.TypeString {
			t.Errorf("field = %+v, want vendor/string", f)
		}
		if len(f.Aliases) != 1 || f.Aliases[0] != "Vendor Name" {
			t.Errorf("aliases = %v, want [Vendor Name]", f.Aliases)
		}
	})

	t.Run("from headers", func(t *testing.T) {
		fields := mapping.AdoptedFields(nil, []string{"Vendor Name", " Qty "})

		if len(fields) != 2 {
			t.Fatalf("fields = %d, want 2", len(fields))
		}
		if fields[0].Name != "vendor name" || fields[1].Name != "qty" {
			t.Errorf("names = %s, %s", fields[0].Name, fields[1].Name)
		}
		for _, f := range fields {
			if len(f.Aliases) != 0 {
				t.Errorf("%s aliases = %v, want none", f.Name, f.Aliases)
			}
		}
	})
}

package records

import "github.com/JaimeStill/tally/pkg/openapi"

var ops = struct {
	List, Find *openapi.Operation
}{
	List: &openapi.Operation{
		OperationID: "listRecords",
		Summary:     "List committed records",
		Description: "search matches the natural key.",
		Parameters: append(openapi.PageParams(),
			openapi.QueryParam("entity", "string", "Only this entity's records", false),
			openapi.QueryParam("keyKind", "string", "id, trackingNumber, sku or generated", false),
		),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseSchema("A page of records", openapi.PageOf("Record")),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Find: &openapi.Operation{
		OperationID: "findRecord",
		Summary:     "Find a record by id",
		Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Record id")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("The record", "Record"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

// Schemas returns the component schemas the record operations reference.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Record": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         {Type: "string", Format: "uuid"},
				"entity":     {Type: "string"},
				"keyKind":    {Type: "string", Enum: []any{string(KeyID), string(KeyTrackingNumber), string(KeySKU), string(KeyGenerated)}},
				"naturalKey": {Type: "string"},
				"data":       {Type: "object", Description: "Mapped row values keyed by canonical field"},
				"createdAt":  {Type: "string", Format: "date-time"},
				"updatedAt":  {Type: "string", Format: "date-time"},
			},
		},
	}
}

package imports

import "github.com/JaimeStill/tally/pkg/openapi"

var columnSchema = &openapi.Schema{
	Type:     "object",
	Required: []string{"incoming", "mapTo"},
	Properties: map[string]*openapi.Schema{
		"incoming": {Type: "string", Description: "Header as it appears in the sheet"},
		"mapTo":    {Type: "string", Description: "Canonical field name; empty drops the column"},
	},
}

var decisionSchema = &openapi.Schema{
	Type:     "object",
	Required: []string{"rowIndex", "action"},
	Properties: map[string]*openapi.Schema{
		"rowIndex": {Type: "integer"},
		"action":   {Type: "string", Enum: []any{string(ActionInsert), string(ActionSkip)}},
	},
}

var commonErrors = map[int]*openapi.Response{
	400: openapi.ResponseRef("BadRequest"),
	413: openapi.ResponseRef("PayloadTooLarge"),
	500: openapi.ResponseRef("InternalError"),
}

func withErrors(ok map[int]*openapi.Response, extra ...int) map[int]*openapi.Response {
	out := make(map[int]*openapi.Response, len(ok)+len(commonErrors)+len(extra))
	for code, r := range commonErrors {
		out[code] = r
	}
	for _, code := range extra {
		switch code {
		case 404:
			out[code] = openapi.ResponseRef("NotFound")
		case 409:
			out[code] = openapi.ResponseRef("Conflict")
		}
	}
	for code, r := range ok {
		out[code] = r
	}
	return out
}

var ops = struct {
	Inspect, Commit *openapi.Operation
}{
	Inspect: &openapi.Operation{
		OperationID: "inspectImport",
		Summary:     "Dry-run a spreadsheet against the entity's schema profile",
		Description: "Reads the sheet, proposes a header mapping, previews duplicates and records a DRY_RUN session. Nothing is written to records.",
		RequestBody: openapi.RequestBodyMultipart(true, map[string]*openapi.Schema{
			"file":   {Type: "string", Format: "binary"},
			"entity": {Type: "string"},
			"sheet":  {Type: "string", Description: "Worksheet name; defaults to the first"},
		}, "file", "entity"),
		Responses: withErrors(map[int]*openapi.Response{
			200: openapi.ResponseJSON("Mapping proposal and duplicate preview", "InspectResult"),
		}),
	},
	Commit: &openapi.Operation{
		OperationID: "commitImport",
		Summary:     "Apply an inspected import",
		Description: "Upserts every mapped row in one transaction. Send the file again or name an importId whose stored copy should be used. Optionally adopts the mapping as the entity's next profile version.",
		RequestBody: &openapi.RequestBody{
			Required: true,
			Content: map[string]*openapi.MediaType{
				"application/json": {Schema: openapi.SchemaRef("CommitCommand")},
				"multipart/form-data": {Schema: &openapi.Schema{
					Type:     "object",
					Required: []string{"entity"},
					Properties: map[string]*openapi.Schema{
						"file":            {Type: "string", Format: "binary"},
						"entity":          {Type: "string"},
						"sheet":           {Type: "string"},
						"importId":        {Type: "string", Format: "uuid"},
						"mapping":         {Type: "string", Description: "JSON array of {incoming, mapTo}"},
						"dupDecisions":    {Type: "string", Description: "JSON array of {rowIndex, action}"},
						"adoptAsStandard": {Type: "boolean"},
					},
				}},
			},
		},
		Responses: withErrors(map[int]*openapi.Response{
			200: openapi.ResponseJSON("Commit outcome", "CommitResult"),
		}, 404, 409),
	},
}

// Schemas returns the component schemas the import operations reference.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"InspectResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"importId":       {Type: "string", Format: "uuid"},
				"fileHash":       {Type: "string"},
				"sheet":          {Type: "string"},
				"headers":        {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"rowCount":       {Type: "integer"},
				"schemaStatus":   {Type: "string", Enum: []any{string(UsingExistingStandard), string(ColdStartWillLearn)}},
				"profileVersion": {Type: "integer"},
				"committed":      {Type: "boolean"},
				"mapping": {Type: "array", Items: &openapi.Schema{
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"incoming":          {Type: "string"},
						"inferredType":      {Type: "string"},
						"inferredSupport":   {Type: "number"},
						"bestMatch":         {Type: "string"},
						"bestMatchType":     {Type: "string"},
						"nameConfidence":    {Type: "number"},
						"typeConfidence":    {Type: "number"},
						"autoMapped":        {Type: "boolean"},
						"needsUserDecision": {Type: "boolean"},
					},
				}},
				"suggestedMapping": {Type: "array", Items: columnSchema},
				"duplicates": {
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"autoInsert":      {Type: "array", Items: &openapi.Schema{Type: "object"}},
						"review":          {Type: "array", Items: &openapi.Schema{Type: "object"}},
						"autoInsertTotal": {Type: "integer"},
						"reviewTotal":     {Type: "integer"},
					},
				},
			},
		},
		"CommitCommand": {
			Type:     "object",
			Required: []string{"entity", "importId"},
			Properties: map[string]*openapi.Schema{
				"entity":          {Type: "string"},
				"importId":        {Type: "string", Format: "uuid"},
				"sheet":           {Type: "string"},
				"mapping":         {Type: "array", Items: columnSchema},
				"dupDecisions":    {Type: "array", Items: decisionSchema},
				"adoptAsStandard": {Type: "boolean"},
			},
		},
		"CommitResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"ok":             {Type: "boolean"},
				"importId":       {Type: "string", Format: "uuid"},
				"inserted":       {Type: "integer"},
				"skipped":        {Type: "integer"},
				"total":          {Type: "integer"},
				"profileVersion": {Type: "integer"},
			},
		},
	}
}

package sessions

import "github.com/JaimeStill/tally/pkg/openapi"

var ops = struct {
	List, Find *openapi.Operation
}{
	List: &openapi.Operation{
		OperationID: "listSessions",
		Summary:     "List import sessions",
		Description: "search matches the filename.",
		Parameters: append(openapi.PageParams(),
			openapi.QueryParam("entity", "string", "Only this entity's sessions", false),
			openapi.QueryParam("status", "string", "DRY_RUN or COMMITTED", false),
			openapi.QueryParam("fileHash", "string", "SHA-256 of the uploaded file", false),
		),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseSchema("A page of sessions", openapi.PageOf("Session")),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Find: &openapi.Operation{
		OperationID: "findSession",
		Summary:     "Find an import session by id",
		Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Session id")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("The session", "Session"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

// Schemas returns the component schemas the session operations reference.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Session": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         {Type: "string", Format: "uuid"},
				"entity":     {Type: "string"},
				"fileHash":   {Type: "string"},
				"filename":   {Type: "string"},
				"storageKey": {Type: "string"},
				"status":     {Type: "string", Enum: []any{string(StatusDryRun), string(StatusCommitted)}},
				"decisions":  {Type: "object", Description: "Mapping and duplicate decisions applied at commit"},
				"stats":      {Type: "object"},
				"createdAt":  {Type: "string", Format: "date-time"},
				"updatedAt":  {Type: "string", Format: "date-time"},
			},
		},
	}
}

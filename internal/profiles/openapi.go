package profiles

import "github.com/JaimeStill/tally/pkg/openapi"

var fieldSchema = &openapi.Schema{
	Type:     "object",
	Required: []string{"name", "type"},
	Properties: map[string]*openapi.Schema{
		"name":    {Type: "string", Example: "sku"},
		"type":    {Type: "string", Enum: []any{"string", "number", "integer", "boolean", "date"}},
		"aliases": {Type: "array", Items: &openapi.Schema{Type: "string"}},
	},
}

var ops = struct {
	List, Find, Active, Adopt *openapi.Operation
}{
	List: &openapi.Operation{
		OperationID: "listProfiles",
		Summary:     "List schema profile versions",
		Parameters: append(openapi.PageParams(),
			openapi.QueryParam("entity", "string", "Only this entity's versions", false),
			openapi.QueryParam("active", "boolean", "Only active or inactive versions", false),
		),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseSchema("A page of profile versions", openapi.PageOf("Profile")),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Find: &openapi.Operation{
		OperationID: "findProfile",
		Summary:     "Find a profile version by id",
		Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Profile id")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("The profile version", "Profile"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Active: &openapi.Operation{
		OperationID: "activeProfile",
		Summary:     "The active profile for an entity",
		Parameters:  []*openapi.Parameter{openapi.PathString("entity", "Entity name")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("The active version", "Profile"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Adopt: &openapi.Operation{
		OperationID: "adoptProfile",
		Summary:     "Adopt a field list as the entity's next active version",
		Parameters:  []*openapi.Parameter{openapi.PathString("entity", "Entity name")},
		RequestBody: &openapi.RequestBody{
			Required: true,
			Content: map[string]*openapi.MediaType{
				"application/json": {Schema: &openapi.Schema{
					Type:       "object",
					Required:   []string{"fields"},
					Properties: map[string]*openapi.Schema{"fields": {Type: "array", Items: fieldSchema}},
				}},
			},
		},
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("The adopted version", "Profile"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
}

// Schemas returns the component schemas the profile operations reference.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Profile": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":        {Type: "string", Format: "uuid"},
				"entity":    {Type: "string"},
				"version":   {Type: "integer"},
				"fields":    {Type: "array", Items: fieldSchema},
				"active":    {Type: "boolean"},
				"createdAt": {Type: "string", Format: "date-time"},
			},
		},
	}
}

package openapi

import "maps"

func errorResponse(description string) *Response {
	return &Response{
		Description: description,
		Content: map[string]*MediaType{
			"application/json": {Schema: SchemaRef("Error")},
		},
	}
}

// NewComponents returns the error shape and the error responses every
// handler can produce.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type:     "object",
				Required: []string{"error"},
				Properties: map[string]*Schema{
					"error": {Type: "string", Description: "Error message"},
				},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":      errorResponse("Invalid request"),
			"NotFound":        errorResponse("Resource not found"),
			"Conflict":        errorResponse("Conflicts with current state"),
			"PayloadTooLarge": errorResponse("Upload exceeds the configured size limit"),
			"InternalError":   errorResponse("Unexpected server error"),
		},
	}
}

// AddSchemas merges schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// PageParams are the query parameters every paged list accepts.
func PageParams() []*Parameter {
	return []*Parameter{
		QueryParam("page", "integer", "Page number, 1-based", false),
		QueryParam("pageSize", "integer", "Results per page, clamped to the configured maximum", false),
		QueryParam("search", "string", "Case-insensitive substring search", false),
		QueryParam("sort", "string", "Comma-separated fields; prefix - for descending, e.g. entity,-updatedAt", false),
	}
}

// PageOf is the schema of a paged list of the named component schema.
func PageOf(schemaName string) *Schema {
	return &Schema{
		Type:     "object",
		Required: []string{"data", "total", "page", "pageSize", "totalPages"},
		Properties: map[string]*Schema{
			"data":       {Type: "array", Items: SchemaRef(schemaName)},
			"total":      {Type: "integer"},
			"page":       {Type: "integer"},
			"pageSize":   {Type: "integer"},
			"totalPages": {Type: "integer"},
		},
	}
}

package server

// OpenAPI 3.0 document types. Only the fields the apidoc document uses are
// modelled.

type openAPI struct {
	OpenAPI    string              `json:"openapi"`
	Info       info                `json:"info"`
	Paths      map[string]pathItem `json:"paths"`
	Components components          `json:"components"`
}

type info struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

type pathItem struct {
	Get *operation `json:"get,omitempty"`
}

type operation struct {
	OperationID string              `json:"operationId"`
	Responses   map[string]response `json:"responses"`
}

type response struct {
	Description string               `json:"description"`
	Content     map[string]mediaType `json:"content,omitempty"`
}

type mediaType struct {
	Schema schema `json:"schema"`
}

type schema struct {
	Ref        string            `json:"$ref,omitempty"`
	Type       string            `json:"type,omitempty"`
	Required   []string          `json:"required,omitempty"`
	Properties map[string]schema `json:"properties,omitempty"`
}

type components struct {
	Schemas map[string]schema `json:"schemas"`
}

// Version is reported in the OpenAPI info block.
const Version = "0.1.0"

const apiDescription = `# APIDOC

This is a documentation for the apidoc server`

// Document returns the OpenAPI description of the routes served by Handler.
func Document() any {
	return openAPI{
		OpenAPI: "3.0.3",
		Info: info{
			Title:       "apidoc",
			Description: apiDescription,
			Version:     Version,
		},
		Paths: map[string]pathItem{
			"/": {Get: &operation{
				OperationID: "handler",
				Responses: map[string]response{
					"200": {
						Description: "Handler from the server",
						Content: map[string]mediaType{
							"application/json": {Schema: schema{Ref: "#/components/schemas/Handler"}},
						},
					},
				},
			}},
			"/get-openapi": {Get: &operation{
				OperationID: "openapi_handler",
				Responses: map[string]response{
					"200": {
						Description: "Get OpenApi",
						Content: map[string]mediaType{
							"application/json": {Schema: schema{Type: "string"}},
						},
					},
				},
			}},
		},
		Components: components{
			Schemas: map[string]schema{
				"Handler": {
					Type:     "object",
					Required: []string{"content"},
					Properties: map[string]schema{
						"content": {Type: "string"},
					},
				},
			},
		},
	}
}

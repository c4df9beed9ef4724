// Package docs holds the OpenAPI description served at /swagger/.
// Regenerate with: swag init -g main.go --parseInternal
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/cache-mate/caches": {
            "get": {
                "produces": ["application/json"],
                "tags": ["caches"],
                "summary": "List local caches",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            }
        },
        "/api/v1/cache-mate/caches/{name}/entries/{key}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["caches"],
                "summary": "Read through a local cache",
                "parameters": [
                    {"type": "string", "description": "Cache name", "name": "name", "in": "path", "required": true},
                    {"type": "string", "description": "Entry key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}},
                    "500": {"description": "Cache name not registered", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["caches"],
                "summary": "Write through a local cache",
                "parameters": [
                    {"type": "string", "description": "Cache name", "name": "name", "in": "path", "required": true},
                    {"type": "string", "description": "Entry key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            }
        },
        "/api/v1/cache-mate/caches/{name}/local": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["caches"],
                "summary": "Delete a local cache",
                "parameters": [
                    {"type": "string", "description": "Cache name", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            }
        },
        "/api/v1/cache-mate/{set}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["data"],
                "summary": "Delete a set",
                "parameters": [
                    {"type": "string", "description": "Set name", "name": "set", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            }
        },
        "/api/v1/cache-mate/{set}/count": {
            "get": {
                "produces": ["application/json"],
                "tags": ["data"],
                "summary": "Count entries",
                "parameters": [
                    {"type": "string", "description": "Set name", "name": "set", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            }
        },
        "/api/v1/cache-mate/{set}/data/{key}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["data"],
                "summary": "Get an entry",
                "parameters": [
                    {"type": "string", "description": "Set name", "name": "set", "in": "path", "required": true},
                    {"type": "string", "description": "Entry key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}},
                    "503": {"description": "Remote store unavailable", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["data"],
                "summary": "Put an entry",
                "parameters": [
                    {"type": "string", "description": "Set name", "name": "set", "in": "path", "required": true},
                    {"type": "string", "description": "Entry key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}},
                    "400": {"description": "InvalidRequest", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["data"],
                "summary": "Delete an entry",
                "parameters": [
                    {"type": "string", "description": "Set name", "name": "set", "in": "path", "required": true},
                    {"type": "string", "description": "Entry key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            }
        },
        "/api/v1/cache-mate/{set}/list-data": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["list-data"],
                "summary": "Put many list entries",
                "parameters": [
                    {"type": "string", "description": "Set name", "name": "set", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            }
        },
        "/api/v1/cache-mate/{set}/list-data/query": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["list-data"],
                "summary": "Get many list entries",
                "parameters": [
                    {"type": "string", "description": "Set name", "name": "set", "in": "path", "required": true},
                    {"description": "Keys to fetch", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.KeysRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            }
        },
        "/api/v1/cache-mate/{set}/list-data/{key}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["list-data"],
                "summary": "Get a list entry",
                "parameters": [
                    {"type": "string", "description": "Set name", "name": "set", "in": "path", "required": true},
                    {"type": "string", "description": "Entry key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["list-data"],
                "summary": "Put a list entry",
                "parameters": [
                    {"type": "string", "description": "Set name", "name": "set", "in": "path", "required": true},
                    {"type": "string", "description": "Entry key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.Response"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.Response"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.KeysRequest": {
            "type": "object",
            "required": ["keys"],
            "properties": {
                "keys": {"type": "array", "maxItems": 1000, "minItems": 1, "items": {"type": "string"}}
            }
        },
        "handlers.Meta": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "hasMoreData": {"type": "boolean"},
                "source": {"type": "string"}
            }
        },
        "handlers.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "message": {"type": "string"},
                "meta": {"$ref": "#/definitions/handlers.Meta"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "cache-mate API",
	Description:      "Distributed cache access layer over Redis hashes with synced local snapshots.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Package docs registers the OpenAPI description served at /docs. Regenerate
// with `swag init -g cmd/api/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "MLB Data"},
        "license": {"name": "MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["health"], "summary": "Health check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/health/db": {"get": {"tags": ["health"], "summary": "Database health check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/health/cache": {"get": {"tags": ["health"], "summary": "Cache health check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/data/{dataType}": {
            "get": {
                "tags": ["data"],
                "summary": "Get MLB data",
                "description": "Closed seasons are served from the historical store, the current season and reference data from the live provider.",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "dataType", "in": "path", "required": true,
                     "enum": ["team-stats", "player-stats", "standings", "roster", "schedule", "transactions", "event-stream", "teams"]},
                    {"type": "integer", "name": "season", "in": "query"},
                    {"type": "integer", "name": "teamId", "in": "query"},
                    {"type": "integer", "name": "playerId", "in": "query"},
                    {"type": "string", "name": "stats", "in": "query", "enum": ["hitting", "pitching"]},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"},
                    {"type": "string", "name": "orderBy", "in": "query"},
                    {"type": "string", "name": "direction", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/hybrid.Result"}},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/api/v1/sync/status": {"get": {"tags": ["sync"], "summary": "Sync status", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}}}},
        "/api/v1/sync/{table}": {
            "post": {
                "tags": ["sync"], "summary": "Sync one table", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "table", "in": "path", "required": true, "enum": ["teams", "team-stats", "player-stats", "standings", "rosters", "games"]},
                    {"type": "integer", "name": "year", "in": "query", "required": true},
                    {"type": "boolean", "name": "forceRefresh", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}}
            }
        },
        "/api/v1/sync/missing": {
            "post": {
                "tags": ["sync"], "summary": "Sync missing data", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "years", "in": "query"},
                    {"type": "string", "name": "tables", "in": "query"},
                    {"type": "boolean", "name": "forceRefresh", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}}
            }
        },
        "/api/v1/sync/historical": {
            "post": {
                "tags": ["sync"], "summary": "Trigger historical sync", "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "season", "in": "query", "required": true},
                    {"type": "string", "name": "dataTypes", "in": "query"}
                ],
                "responses": {"202": {"description": "Accepted"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}}
            }
        },
        "/api/v1/collect/season": {
            "post": {
                "tags": ["collect"], "summary": "Collect a season of pitch data", "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "year", "in": "query", "required": true},
                    {"type": "boolean", "name": "testMode", "in": "query"}
                ],
                "responses": {"202": {"description": "Accepted"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}}
            }
        },
        "/api/v1/cache": {
            "delete": {
                "tags": ["admin"], "summary": "Invalidate cache", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "pattern", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}}
            }
        },
        "/tasks/process-month": {
            "post": {
                "tags": ["collect"], "summary": "Process a collection task",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "task", "in": "body", "required": true, "schema": {"$ref": "#/definitions/collect.Task"}}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "collect.Task": {
            "type": "object",
            "required": ["year", "startDate", "endDate"],
            "properties": {
                "id": {"type": "string"},
                "year": {"type": "integer"},
                "month": {"type": "string"},
                "startDate": {"type": "string"},
                "endDate": {"type": "string"},
                "testMode": {"type": "boolean"}
            }
        },
        "hybrid.Result": {
            "type": "object",
            "properties": {
                "dataType": {"type": "string"},
                "season": {"type": "integer"},
                "source": {"type": "string"},
                "cacheHit": {"type": "boolean"},
                "syncGap": {"type": "boolean"},
                "count": {"type": "integer"},
                "data": {"type": "array", "items": {"type": "object"}}
            }
        },
        "respond.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "detail": {"type": "string"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "MLB Data API",
	Description:      "MLB statistics served from a live upstream for the current season and a historical warehouse for closed seasons, with incremental sync and pitch-level collection.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

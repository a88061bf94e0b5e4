// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/StatusResponse"}}}
            }
        },
        "/auth/sign-up": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Create a user",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Credentials"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/IDResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Exchange credentials for a bearer token",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Credentials"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TokenResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/pool/state": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["pool"],
                "summary": "Current controller snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PoolState"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/pool/button": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pool"],
                "summary": "Press a panel button",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ButtonRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/StatusResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/pool/temp": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pool"],
                "summary": "Adjust the active setpoint",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/TempRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/StatusResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/v1/pool/stop": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["pool"],
                "summary": "Stop everything",
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/StatusResponse"}}}
            }
        },
        "/api/v1/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "List logs",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"type": "string", "name": "type", "in": "query",
                     "enum": ["MODE_CHANGE", "REJECTED", "ACCESSORY", "SETPOINT", "TIMEOUT", "SCHEDULE", "STOP", "SENSOR_FAULT", "FAULT"]},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/api/v1/temps": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Temperature history",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "count, samples"}}
            }
        },
        "/api/v1/visitors": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Known API clients",
                "parameters": [{"type": "integer", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "count, visitors"}}
            }
        }
    },
    "definitions": {
        "Credentials": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "ButtonRequest": {
            "type": "object",
            "required": ["button"],
            "properties": {"button": {"type": "integer", "example": 5}}
        },
        "TempRequest": {
            "type": "object",
            "required": ["direction"],
            "properties": {"direction": {"type": "string", "enum": ["up", "down"]}}
        },
        "ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "IDResponse": {"type": "object", "properties": {"id": {"type": "integer"}}},
        "TokenResponse": {"type": "object", "properties": {"token": {"type": "string"}}},
        "StatusResponse": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "state": {"$ref": "#/definitions/PoolState"}}
        },
        "PoolState": {
            "type": "object",
            "properties": {
                "mode": {"type": "string"},
                "sequencer_state": {"type": "string"},
                "valves": {"type": "string"},
                "pump": {"type": "string"},
                "heater_armed": {"type": "string"},
                "heater_on": {"type": "boolean"},
                "relays": {"type": "array", "items": {"type": "string"}},
                "relay_mask": {"type": "integer"},
                "led_mask": {"type": "integer"},
                "pool_light": {"type": "boolean"},
                "spa_jets": {"type": "boolean"},
                "water_temp_f": {"type": "number"},
                "pool_setpoint_f": {"type": "integer"},
                "spa_setpoint_f": {"type": "integer"},
                "heat_demand": {"type": "boolean"},
                "remaining_seconds": {"type": "integer"},
                "light_remaining_seconds": {"type": "integer"},
                "jets_remaining_seconds": {"type": "integer"},
                "hold_remaining_seconds": {"type": "integer"},
                "error_codes": {"type": "array", "items": {"type": "string"}},
                "display": {"type": "array", "items": {"type": "string"}},
                "display_page": {"type": "string"},
                "dropped_events": {"type": "integer"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Pool and spa controller API",
	Description:      "Remote panel for the pool/spa equipment controller.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Package docs registers the swagger document served at /swagger.
// Regenerate with `swag init -g cmd/server/main.go`.
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
        "/sms": {"post": {"tags": ["SMS"], "summary": "Receive SMS", "consumes": ["application/x-www-form-urlencoded"], "produces": ["text/xml"], "responses": {"200": {"description": "TwiML reply"}, "403": {"description": "Invalid signature"}, "500": {"description": "TwiML apology"}}}},
        "/tasks/unverified": {"get": {"security": [{"BearerAuth": []}], "tags": ["Tasks"], "summary": "List unverified tasks", "responses": {"200": {"description": "OK"}}}},
        "/tasks/verified": {"get": {"security": [{"BearerAuth": []}], "tags": ["Tasks"], "summary": "List verified tasks", "responses": {"200": {"description": "OK"}}}},
        "/tasks/verify": {"post": {"security": [{"BearerAuth": []}], "tags": ["Tasks"], "summary": "Verify task", "responses": {"200": {"description": "OK"}, "400": {"description": "taskId is required"}, "404": {"description": "Task not found"}, "409": {"description": "Task is already completed"}}}},
        "/needs/map": {"get": {"security": [{"BearerAuth": []}], "tags": ["Needs"], "summary": "Need map", "responses": {"200": {"description": "OK"}}}},
        "/needs/{id}/geocode": {"post": {"security": [{"BearerAuth": []}], "tags": ["Needs"], "summary": "Retry geocoding", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid need id"}, "404": {"description": "Task not found"}}}},
        "/missions": {"get": {"security": [{"BearerAuth": []}], "tags": ["Missions"], "summary": "List missions", "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown mission status"}}}},
        "/missions/latest": {"get": {"security": [{"BearerAuth": []}], "tags": ["Missions"], "summary": "Latest mission", "responses": {"200": {"description": "OK"}}}},
        "/missions/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["Missions"], "summary": "Get mission", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid mission id"}, "404": {"description": "Mission not found"}}}},
        "/missions/{id}/complete": {"patch": {"security": [{"BearerAuth": []}], "tags": ["Missions"], "summary": "Complete mission", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid mission id"}, "404": {"description": "Mission not found"}, "409": {"description": "Mission is no longer active"}}}},
        "/missions/{id}/reroute": {"patch": {"security": [{"BearerAuth": []}], "tags": ["Missions"], "summary": "Reroute mission", "responses": {"200": {"description": "OK"}, "400": {"description": "Station type and name are required"}, "404": {"description": "Mission not found"}, "409": {"description": "Mission is no longer active"}}}},
        "/optimize-route": {"post": {"security": [{"BearerAuth": []}], "tags": ["Routing"], "summary": "Optimize route", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid depot or stops"}}}},
        "/alerts": {"get": {"security": [{"BearerAuth": []}], "tags": ["Alerts"], "summary": "Alert history", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid source id"}}}},
        "/operations": {"get": {"security": [{"BearerAuth": []}], "tags": ["Operations"], "summary": "Operation log", "responses": {"200": {"description": "OK"}, "503": {"description": "Operation log is not configured"}}}},
        "/ws/events": {"get": {"security": [{"BearerAuth": []}], "tags": ["Events"], "summary": "Live events", "responses": {"101": {"description": "Switching Protocols"}}}},
        "/ping": {"get": {"tags": ["Health"], "summary": "Ping", "responses": {"200": {"description": "OK"}}}},
        "/health/status": {"get": {"tags": ["Health"], "summary": "Dependency status", "responses": {"200": {"description": "OK"}, "503": {"description": "Store unavailable"}}}},
        "/health/cache-stats": {"get": {"tags": ["Health"], "summary": "Response cache statistics", "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Relief Dispatch API",
	Description:      "SMS intake, volunteer verification and mission dispatch for disaster relief.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

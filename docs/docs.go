// Package docs holds the OpenAPI description served by the Swagger UI.
// Regenerate with: swag init -g cmd/media-webhooks/main.go -o docs
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
        "/health": {
            "get": {
                "description": "Returns ok when the service and its database are reachable",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/media": {
            "post": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Record an uploaded media object and emit media.uploaded",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["media"],
                "summary": "Register media",
                "parameters": [
                    {"description": "Uploaded object", "name": "media", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.MediaRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/media.ObjectDTO"}},
                    "400": {"description": "Invalid JSON or missing filename", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "500": {"description": "Database error", "schema": {"type": "string"}}
                }
            }
        },
        "/media/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Get a media object's current lifecycle state",
                "produces": ["application/json"],
                "tags": ["media"],
                "summary": "Get media",
                "parameters": [
                    {"type": "string", "description": "Media ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/media.ObjectDTO"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "404": {"description": "Media not found", "schema": {"type": "string"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Mark a media object deleted and emit media.deleted",
                "produces": ["application/json"],
                "tags": ["media"],
                "summary": "Delete media",
                "parameters": [
                    {"type": "string", "description": "Media ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/media.ObjectDTO"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "404": {"description": "Media not found", "schema": {"type": "string"}},
                    "409": {"description": "Already deleted", "schema": {"type": "string"}}
                }
            }
        },
        "/media/{id}/{action}": {
            "post": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Move a media object to processing, ready or failed and emit the matching event",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["media"],
                "summary": "Change media state",
                "parameters": [
                    {"type": "string", "description": "Media ID", "name": "id", "in": "path", "required": true},
                    {"enum": ["processing", "ready", "failed"], "type": "string", "description": "Target state", "name": "action", "in": "path", "required": true},
                    {"description": "Failure reason (failed only)", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/handlers.FailureRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/media.ObjectDTO"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "404": {"description": "Media not found", "schema": {"type": "string"}},
                    "409": {"description": "Transition not allowed from current state", "schema": {"type": "string"}}
                }
            }
        },
        "/webhooks": {
            "get": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Get all webhooks registered by the calling tenant",
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "List webhooks",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/webhook.RegistrationDTO"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "500": {"description": "Database error", "schema": {"type": "string"}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Register a new webhook endpoint. The signing secret is returned only in this response.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Create webhook",
                "parameters": [
                    {"description": "Webhook configuration", "name": "webhook", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.WebhookRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created webhook including its secret", "schema": {"$ref": "#/definitions/webhook.RegistrationDTO"}},
                    "400": {"description": "Invalid JSON or validation error", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "500": {"description": "Database error", "schema": {"type": "string"}}
                }
            }
        },
        "/webhooks/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Get one webhook including its failure counter",
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Get webhook",
                "parameters": [
                    {"type": "string", "description": "Webhook ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/webhook.RegistrationDTO"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "404": {"description": "Webhook not found", "schema": {"type": "string"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Replace name, URL, events and active flag of a webhook",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Update webhook",
                "parameters": [
                    {"type": "string", "description": "Webhook ID", "name": "id", "in": "path", "required": true},
                    {"description": "Updated webhook configuration", "name": "webhook", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.WebhookRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/webhook.RegistrationDTO"}},
                    "400": {"description": "Invalid JSON or validation error", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "404": {"description": "Webhook not found", "schema": {"type": "string"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Remove a webhook. Deliveries already in flight still finish.",
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Delete webhook",
                "parameters": [
                    {"type": "string", "description": "Webhook ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Deletion confirmation", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "404": {"description": "Webhook not found", "schema": {"type": "string"}}
                }
            }
        },
        "/webhooks/{id}/deliveries": {
            "get": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Per-attempt delivery records for a webhook, newest first",
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Delivery history",
                "parameters": [
                    {"type": "string", "description": "Webhook ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum records (default 50, max 500)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/webhook.DeliveryRecordDTO"}}},
                    "400": {"description": "Invalid limit", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "404": {"description": "Webhook not found", "schema": {"type": "string"}}
                }
            }
        },
        "/webhooks/{id}/secret": {
            "post": {
                "security": [{"ApiKeyAuth": []}, {"BearerAuth": []}],
                "description": "Replace the webhook's secret. Deliveries already in flight keep signing with the old one.",
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Regenerate signing secret",
                "parameters": [
                    {"type": "string", "description": "Webhook ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Webhook including its new secret", "schema": {"$ref": "#/definitions/webhook.RegistrationDTO"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "string"}},
                    "404": {"description": "Webhook not found", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.FailureRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string", "example": "unsupported codec"}
            }
        },
        "handlers.MediaRequest": {
            "type": "object",
            "properties": {
                "contentType": {"type": "string", "example": "video/mp4"},
                "filename": {"type": "string", "example": "intro.mp4"},
                "sizeBytes": {"type": "integer", "example": 52428800}
            }
        },
        "handlers.WebhookRequest": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean", "example": true},
                "events": {"type": "array", "items": {"type": "string"}, "example": ["media.ready", "media.failed"]},
                "name": {"type": "string", "example": "CDN purge hook"},
                "url": {"type": "string", "example": "https://example.com/webhook"}
            }
        },
        "media.ObjectDTO": {
            "type": "object",
            "properties": {
                "contentType": {"type": "string"},
                "createdAt": {"type": "string"},
                "failureReason": {"type": "string"},
                "filename": {"type": "string"},
                "id": {"type": "string"},
                "sizeBytes": {"type": "integer"},
                "state": {"type": "string", "enum": ["uploaded", "processing", "ready", "failed", "deleted"]},
                "updatedAt": {"type": "string"}
            }
        },
        "webhook.DeliveryRecordDTO": {
            "type": "object",
            "properties": {
                "attempt": {"type": "integer", "example": 1},
                "createdAt": {"type": "string"},
                "durationMs": {"type": "integer", "example": 87},
                "error": {"type": "string"},
                "event": {"type": "string", "example": "media.ready"},
                "id": {"type": "string"},
                "payload": {"type": "object"},
                "responseBody": {"type": "string"},
                "statusCode": {"type": "integer", "example": 200},
                "success": {"type": "boolean", "example": true},
                "webhookId": {"type": "string"}
            }
        },
        "webhook.RegistrationDTO": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean", "example": true},
                "createdAt": {"type": "string"},
                "events": {"type": "array", "items": {"type": "string"}, "example": ["media.ready", "media.failed"]},
                "failureCount": {"type": "integer", "example": 0},
                "id": {"type": "string", "example": "6f1c2d8e-8d5a-4c1e-9f0e-0b8f9c1d2e3f"},
                "lastTriggeredAt": {"type": "string"},
                "name": {"type": "string", "example": "CDN purge hook"},
                "secret": {"type": "string", "example": "whsec_AbC123..."},
                "updatedAt": {"type": "string"},
                "url": {"type": "string", "example": "https://example.com/webhook"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "description": "Shared API key; the tenant is taken from X-Tenant-ID",
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        },
        "BearerAuth": {
            "description": "OIDC access token carrying the tenant claim",
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
	Title:            "Media Webhooks API",
	Description:      "Media lifecycle registry with signed, retried webhook delivery.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Package docs registers the OpenAPI document served under /swagger/.
// Generated from the annotations in cmd/rtscorrect and internal/httpapi.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/correct": {
            "post": {
                "description": "Runs the on-device model over a final speech-to-text utterance. Failures pass the text through unchanged.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["correction"],
                "summary": "Correct one utterance",
                "parameters": [
                    {
                        "description": "Utterance",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.CorrectRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.CorrectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Recent corrections",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Maximum entries (default 50, max 500)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HistoryResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List GGUF models in the models directory",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "200 when the model is loaded, 503 while loading or in pass-through mode.",
                "produces": ["text/plain"],
                "tags": ["status"],
                "summary": "Readiness",
                "responses": {
                    "200": {"description": "ready", "schema": {"type": "string"}},
                    "503": {"description": "loading", "schema": {"type": "string"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Service status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.CorrectRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string", "example": "えーと今日は天気がいいですね"}
            }
        },
        "types.CorrectResponse": {
            "type": "object",
            "properties": {
                "applied": {"type": "boolean", "example": true},
                "cached": {"type": "boolean"},
                "corrected": {"type": "string", "example": "今日は天気がいいですね。"},
                "duration_ms": {"type": "integer", "example": 420},
                "reason": {"type": "string", "example": "not_ready"},
                "request_id": {"type": "string", "example": "5f0c6a8e-2b7c-4c1e-9a51-2f0d7c3b9e11"},
                "text": {"type": "string", "example": "えーと今日は天気がいいですね"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "invalid JSON body"}
            }
        },
        "types.HistoryEntry": {
            "type": "object",
            "properties": {
                "applied": {"type": "boolean", "example": true},
                "created_unix": {"type": "integer", "example": 1700000000},
                "duration_ms": {"type": "integer"},
                "generated": {"type": "integer", "example": 18},
                "id": {"type": "string"},
                "input": {"type": "string"},
                "output": {"type": "string"},
                "reason": {"type": "string", "example": "timeout"},
                "stop": {"type": "string", "example": "eos"}
            }
        },
        "types.HistoryResponse": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/types.HistoryEntry"}}
            }
        },
        "types.Model": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "qwen2.5-1.5b-instruct-q4_k_m"},
                "name": {"type": "string"},
                "path": {"type": "string"},
                "quant": {"type": "string", "example": "Q4_K_M"},
                "size_bytes": {"type": "integer"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "context_size": {"type": "integer", "example": 2048},
                "enabled": {"type": "boolean", "example": true},
                "failures_total": {"type": "integer"},
                "inflight": {"type": "integer"},
                "last_error": {"type": "string"},
                "max_queue_depth": {"type": "integer", "example": 32},
                "model_path": {"type": "string"},
                "queue_len": {"type": "integer"},
                "requests_total": {"type": "integer"},
                "server_time_unix": {"type": "integer", "example": 1700000000},
                "state": {"type": "string", "example": "ready"},
                "uptime_seconds": {"type": "integer", "example": 3600},
                "vocab_size": {"type": "integer", "example": 151936}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "rtscorrect API",
	Description:      "HTTP API for on-device LLM correction of speech-to-text output.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

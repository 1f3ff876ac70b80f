package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Generates weekly class timetables around fixed breaks and exports them as PDF or CSV.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Timetables", "description": "Generation, retrieval and export of timetable proposals"},
        {"name": "Observability", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check",
                "description": "Pings the roster database and proposal cache when they are enabled.",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Observability"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Prometheus exposition format"}
                }
            }
        },
        "/api/v1/metrics/snapshot": {
            "get": {
                "tags": ["Observability"],
                "summary": "In-process metrics snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a weekly timetable proposal",
                "description": "Requires the ADMIN or COORDINATOR role. The seed in the response replays the same timetable.",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Proposal created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "VALIDATION_ERROR or INVALID_CONFIGURATION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token"},
                    "403": {"description": "Role not allowed"},
                    "422": {"description": "INVALID_WINDOW, INSUFFICIENT_TIME or NO_SUBJECTS_CONFIGURED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Fetch a generated proposal",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired proposal"}
                }
            }
        },
        "/api/v1/timetables/{id}/export": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Render a proposal as PDF or CSV",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Signed download URL", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired proposal"}
                }
            }
        },
        "/api/v1/export/{token}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download a rendered timetable",
                "produces": ["application/pdf", "text/csv"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired token"},
                    "404": {"description": "File already cleaned up"}
                }
            }
        }
    },
    "definitions": {
        "BreakRequest": {
            "type": "object",
            "required": ["time", "durationMinutes"],
            "properties": {
                "time": {"type": "string", "example": "09:30"},
                "durationMinutes": {"type": "integer", "example": 15},
                "label": {"type": "string", "example": "Break (15 mins)"}
            }
        },
        "SubjectRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string", "example": "Mathematics"},
                "faculty": {"type": "array", "items": {"type": "string"}},
                "room": {"type": "string"}
            }
        },
        "RosterRequest": {
            "type": "object",
            "required": ["classId", "termId"],
            "properties": {
                "classId": {"type": "string"},
                "termId": {"type": "string"}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["startTime", "endTime", "classesPerDay"],
            "properties": {
                "groupName": {"type": "string"},
                "startTime": {"type": "string", "example": "07:30"},
                "endTime": {"type": "string", "example": "14:00"},
                "breaks": {"type": "array", "items": {"$ref": "#/definitions/BreakRequest"}},
                "subjects": {"type": "array", "items": {"$ref": "#/definitions/SubjectRequest"}},
                "classesPerDay": {"type": "integer", "example": 6},
                "sections": {"type": "integer", "example": 2},
                "labDays": {"type": "array", "items": {"type": "string"}},
                "labSessions": {"type": "integer"},
                "seed": {"type": "integer", "format": "int64"},
                "roster": {"$ref": "#/definitions/RosterRequest"}
            }
        },
        "ExportTimetableRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["pdf", "csv"]}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

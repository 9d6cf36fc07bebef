package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "QR Attend API",
        "description": "Attendance tracking service: student roster, QR/typed check-ins, daily views and spreadsheet exports",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Checkins", "description": "Attendance recording"},
        {"name": "Attendance", "description": "Attendance views and summary"},
        {"name": "Students", "description": "Student roster management"},
        {"name": "Exports", "description": "Spreadsheet export artifacts"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Store unavailable"}
                }
            }
        },
        "/api/v1/checkins": {
            "post": {
                "tags": ["Checkins"],
                "summary": "Record a check-in for a scanned or typed code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckinRequest"}}
                ],
                "responses": {
                    "201": {"description": "Recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not registered or inactive", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already checked in today", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List every attendance record, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance/today": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List today's attendance records",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance/summary": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Today's headcount summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TodaySummary"}}
                }
            }
        },
        "/api/v1/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate student identifier", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/students/{id}/active": {
            "patch": {
                "tags": ["Students"],
                "summary": "Toggle a student's active flag",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetActiveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/students/{id}/attendance": {
            "get": {
                "tags": ["Students"],
                "summary": "A student's attendance history, newest first",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/students/import": {
            "post": {
                "tags": ["Students"],
                "summary": "Bulk import students from CSV",
                "consumes": ["multipart/form-data", "text/csv"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Import result", "schema": {"$ref": "#/definitions/ImportResult"}}
                }
            }
        },
        "/api/v1/exports/attendance": {
            "post": {
                "tags": ["Exports"],
                "summary": "Generate an attendance export artifact",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/{filename}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export artifact via signed URL",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "filename", "in": "path", "type": "string", "required": true},
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "404": {"description": "Unknown, expired or tampered token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CheckinRequest": {
            "type": "object",
            "required": ["code"],
            "properties": {
                "code": {"type": "string"}
            }
        },
        "RegisterStudentRequest": {
            "type": "object",
            "required": ["student_id", "name", "subscription_type"],
            "properties": {
                "student_id": {"type": "string"},
                "name": {"type": "string"},
                "age": {"type": "integer"},
                "group": {"type": "string"},
                "parent_id": {"type": "string"},
                "subscription_type": {"type": "string", "enum": ["squad", "core", "x"]},
                "duration": {"type": "string"},
                "level": {"type": "integer"},
                "category": {"type": "string"},
                "attendance_type": {"type": "string"},
                "subscription_start": {"type": "string"},
                "subscription_end": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "SetActiveRequest": {
            "type": "object",
            "required": ["active"],
            "properties": {
                "active": {"type": "boolean"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "TodaySummary": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "active_students": {"type": "integer"},
                "present_today": {"type": "integer"},
                "attendance_rate": {"type": "number"}
            }
        },
        "ImportResult": {
            "type": "object",
            "properties": {
                "imported": {"type": "integer"},
                "skipped": {"type": "integer"}
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

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LearnSphere Academy API",
        "description": "Course catalog, enrollment and billing API",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, registration and session management"},
        {"name": "Users", "description": "User administration"},
        {"name": "Courses", "description": "Course catalog"},
        {"name": "Batches", "description": "Course batches and seat capacity"},
        {"name": "Enrollments", "description": "Enrollment workflow"},
        {"name": "Billing", "description": "Invoices and payments"},
        {"name": "Promos", "description": "Promo codes"},
        {"name": "Blog", "description": "Blog posts"},
        {"name": "Reviews", "description": "Course reviews"},
        {"name": "Newsletter", "description": "Newsletter subscriptions and issues"},
        {"name": "Contact", "description": "Contact messages"},
        {"name": "SEO", "description": "Per-page SEO metadata"},
        {"name": "Dashboard", "description": "Admin dashboard aggregates"},
        {"name": "Exports", "description": "Invoice documents and billing reports"}
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
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register student account",
                "responses": {
                    "201": {"description": "Account created"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Course list"}
                }
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll in a batch",
                "responses": {
                    "201": {"description": "Enrollment created with invoice"},
                    "409": {"description": "Batch full or duplicate enrollment"}
                }
            }
        },
        "/invoices/{id}/payments": {
            "post": {
                "tags": ["Billing"],
                "summary": "Submit a payment",
                "responses": {
                    "201": {"description": "Payment recorded"},
                    "409": {"description": "Amount exceeds remaining balance"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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

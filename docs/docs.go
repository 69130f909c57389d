// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with `swag init -g cmd/web/main.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "LaunchPad"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/plans": {
            "get": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Список тарифов",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/payments": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Создать заказ на оплату",
                "responses": {
                    "201": {"description": "Created"},
                    "422": {"description": "Price mismatch or validation error"},
                    "502": {"description": "Gateway rejected the order"},
                    "503": {"description": "Gateway unavailable"}
                }
            }
        },
        "/api/v1/payments/{trackingId}/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Статус заказа",
                "parameters": [
                    {"type": "string", "name": "trackingId", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/payments/ipn": {
            "get": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Уведомление Pesapal (IPN)",
                "responses": {"200": {"description": "Acknowledgement"}}
            },
            "post": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Уведомление Pesapal (IPN)",
                "responses": {"200": {"description": "Acknowledgement"}}
            }
        },
        "/api/v1/tickets/manual": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tickets"],
                "summary": "Заявка на билет с ручной оплатой",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate submission"}
                }
            }
        },
        "/api/v1/tickets/{id}/verify": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tickets"],
                "summary": "Проверка билета",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/tickets/{id}/check-in": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tickets"],
                "summary": "Отметить вход",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Already checked in"}}
            }
        },
        "/api/v1/admin/tickets/pending": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Заявки на проверке",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/admin/tickets/{id}/approve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Одобрить заявку",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Invalid transition"}}
            }
        },
        "/api/v1/admin/tickets/{id}/reject": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Отклонить заявку",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Invalid transition"}}
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Вход администратора",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        }
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
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "LaunchPad Payments API",
	Description:      "Оплата билетов через Pesapal, ручные заявки и проверка билетов на входе.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

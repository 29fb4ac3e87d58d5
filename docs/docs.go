// Package docs holds the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs --v3.1
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "FlipFlop Support",
            "email": "podpora@flipflop.cz"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token authentication. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a customer account", "responses": {"201": {"description": "Created"}, "409": {"description": "Email already registered"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Exchange credentials for a token pair", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}, "429": {"description": "Too many attempts"}}}},
        "/auth/refresh": {"post": {"tags": ["auth"], "summary": "Rotate the refresh token", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid refresh token"}}}},
        "/auth/logout": {"post": {"tags": ["auth"], "security": [{"BearerAuth": []}], "summary": "Revoke the current tokens", "responses": {"200": {"description": "OK"}}}},
        "/users/me": {
            "get": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "Current profile", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "Update profile", "responses": {"200": {"description": "OK"}}}
        },
        "/users/me/password": {"put": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "Change password and revoke all sessions", "responses": {"200": {"description": "OK"}}}},
        "/users/me/addresses": {
            "get": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "List addresses", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "Add address", "responses": {"201": {"description": "Created"}}}
        },
        "/users/me/addresses/{id}": {
            "put": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "Update address", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "Delete address", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/users/me/payment-methods": {
            "get": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "List saved payment methods", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "Save payment method", "responses": {"201": {"description": "Created"}}}
        },
        "/users/me/payment-methods/{id}": {"delete": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "Delete payment method", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/products": {
            "get": {"tags": ["catalog"], "summary": "List products", "parameters": [{"name": "page", "in": "query", "type": "integer"}, {"name": "page_size", "in": "query", "type": "integer"}, {"name": "category_id", "in": "query", "type": "string"}, {"name": "search", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Create product (admin)", "responses": {"201": {"description": "Created"}}}
        },
        "/products/{id}": {
            "get": {"tags": ["catalog"], "summary": "Get product", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "put": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Update product (admin)", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Delete product (admin)", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/products/{id}/variants": {"post": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Add variant (admin)", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"201": {"description": "Created"}}}},
        "/products/{id}/variants/{variantId}": {
            "put": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Update variant (admin)", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "variantId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Delete variant (admin)", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "variantId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/products/{id}/images": {
            "post": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Upload image (admin)", "consumes": ["multipart/form-data"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "image", "in": "formData", "required": true, "type": "file"}, {"name": "main", "in": "formData", "type": "boolean"}], "responses": {"201": {"description": "Created"}, "413": {"description": "Too large"}}},
            "delete": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Delete image (admin)", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "url", "in": "query", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/categories": {
            "get": {"tags": ["catalog"], "summary": "List categories", "parameters": [{"name": "all", "in": "query", "type": "boolean"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Create category (admin)", "responses": {"201": {"description": "Created"}}}
        },
        "/categories/tree": {"get": {"tags": ["catalog"], "summary": "Category tree", "responses": {"200": {"description": "OK"}}}},
        "/categories/{id}": {
            "get": {"tags": ["catalog"], "summary": "Get category", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Update category (admin)", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["catalog"], "security": [{"BearerAuth": []}], "summary": "Delete category (admin)", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Category has children"}}}
        },
        "/cart": {
            "get": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Current cart", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Empty the cart", "responses": {"200": {"description": "OK"}}}
        },
        "/cart/items": {"post": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Add item", "responses": {"200": {"description": "OK"}}}},
        "/cart/items/{id}": {
            "put": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Change quantity", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Remove item", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/orders": {
            "post": {"tags": ["orders"], "security": [{"BearerAuth": []}], "summary": "Checkout the cart", "responses": {"201": {"description": "Created"}, "409": {"description": "Insufficient stock or concurrent update"}}},
            "get": {"tags": ["orders"], "security": [{"BearerAuth": []}], "summary": "List own orders", "responses": {"200": {"description": "OK"}}}
        },
        "/orders/{id}": {"get": {"tags": ["orders"], "security": [{"BearerAuth": []}], "summary": "Get own order", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/orders/{id}/cancel": {"post": {"tags": ["orders"], "security": [{"BearerAuth": []}], "summary": "Cancel own order", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Illegal transition"}}}},
        "/orders/{id}/invoices": {"get": {"tags": ["orders"], "security": [{"BearerAuth": []}], "summary": "Order invoices", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/payu/create-payment/{orderId}": {"post": {"tags": ["payments"], "security": [{"BearerAuth": []}], "summary": "Start payment for an order", "parameters": [{"name": "orderId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Redirect URL"}}}},
        "/payments/webhook": {"post": {"tags": ["payments"], "summary": "Signed payment provider notification", "responses": {"200": {"description": "OK"}, "401": {"description": "Bad signature"}, "413": {"description": "Too large"}}}},
        "/admin/orders": {"get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "List all orders", "responses": {"200": {"description": "OK"}}}},
        "/admin/orders/{id}/status": {"put": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Change order status", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Illegal transition"}}}},
        "/admin/company-settings": {
            "get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Company settings", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Update company settings", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/suppliers": {
            "get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "List suppliers", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Create supplier", "responses": {"201": {"description": "Created"}}}
        },
        "/admin/suppliers/{id}": {
            "get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Get supplier", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Update supplier", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Delete supplier", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/admin/suppliers/{id}/sync": {"post": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Pull supplier catalogue", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/admin/suppliers/{id}/products": {"get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Supplier offers", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/admin/suppliers/{id}/products/{sku}": {"put": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Link supplier offer to product", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "sku", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/admin/outbox/dead": {"get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Dead letter entries", "responses": {"200": {"description": "OK"}}}},
        "/admin/outbox/dead/retry-all": {"post": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Requeue every dead entry", "responses": {"200": {"description": "OK"}}}},
        "/admin/outbox/stats": {"get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Outbox counts by status", "responses": {"200": {"description": "OK"}}}},
        "/admin/outbox/{id}": {"get": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Get outbox entry", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/admin/outbox/{id}/retry": {"post": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Requeue one dead entry", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/ai/chat": {"post": {"tags": ["assistant"], "security": [{"BearerAuth": []}], "summary": "Shopping assistant chat", "responses": {"200": {"description": "OK"}, "503": {"description": "Assistant disabled"}}}},
        "/system/info": {"get": {"tags": ["system"], "summary": "Service name and version", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "FlipFlop API",
	Description:      "E-commerce backend for the FlipFlop shop: catalogue, cart, order sagas, invoices and supplier dropshipping.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

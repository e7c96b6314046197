// Package docs holds the OpenAPI template served at /swagger. It is maintained by hand and must
// follow the route annotations in internal/handlers; docs_test.go checks the two stay in step.
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
        "/accounts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lists the live accounts of the logged-in user, oldest first",
                "produces": ["application/json"],
                "tags": ["accounts"],
                "summary": "List accounts",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.AccountResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Failed to list accounts", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Opens an account for the logged-in user, optionally funded with an initial amount",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["accounts"],
                "summary": "Create a new account",
                "parameters": [{"description": "Account details", "name": "account", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateAccountRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.AccountResponse"}},
                    "400": {"description": "Invalid input format or validation error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Failed to create account", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/accounts/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Soft-deletes an account. Its transaction history is kept but no longer listed.",
                "tags": ["accounts"],
                "summary": "Delete an account",
                "parameters": [{"type": "string", "description": "Account ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Account not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Failed to delete account", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/accounts/{id}/deposit": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Credits a positive amount to one of the logged-in user's accounts",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["accounts"],
                "summary": "Deposit into an account",
                "parameters": [
                    {"type": "string", "description": "Account ID", "name": "id", "in": "path", "required": true},
                    {"description": "Deposit amount", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.DepositRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.AccountResponse"}},
                    "400": {"description": "Invalid amount", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Account not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Account is frozen", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Failed to deposit", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/accounts/{id}/freeze": {
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Sets the frozen flag. A frozen account rejects deposits and transfers.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["accounts"],
                "summary": "Freeze or unfreeze an account",
                "parameters": [
                    {"type": "string", "description": "Account ID", "name": "id", "in": "path", "required": true},
                    {"description": "Frozen flag", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SetFrozenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.AccountResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Account not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Failed to update account", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "description": "Authenticates a user and returns a JWT token.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "User login",
                "parameters": [{"description": "Login Credentials", "name": "login", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "description": "Creates a new user. The email is stored lower-cased and must be unique.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register new user",
                "parameters": [{"description": "User Registration Info", "name": "register", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.RegisterUserRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.UserResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/transactions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lists the rows of all the caller's live accounts, newest first, with cursor pagination",
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "List transactions",
                "parameters": [
                    {"type": "integer", "description": "Page size (1-200, default 50)", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Cursor returned by the previous page", "name": "nextToken", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ListTransactionsResponse"}},
                    "400": {"description": "Invalid limit or token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Failed to list transactions", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/transactions/transfer": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Moves an amount from one of the caller's accounts to the oldest account of the user registered under toEmail",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "Transfer funds to another user",
                "parameters": [{"description": "Transfer details", "name": "transfer", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.TransferRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.TransferResponse"}},
                    "400": {"description": "Invalid input or recipient has no account", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Sender account or recipient not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Frozen account or insufficient funds", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Failed to transfer", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.AccountResponse": {
            "type": "object",
            "properties": {
                "accountID": {"type": "string"},
                "balance": {"type": "number"},
                "createdAt": {"type": "string"},
                "isFrozen": {"type": "boolean"},
                "last4": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string", "enum": ["debit", "credit", "savings", "checking"]},
                "updatedAt": {"type": "string"}
            }
        },
        "dto.CreateAccountRequest": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "initialAmount": {"type": "number"},
                "name": {"type": "string", "maxLength": 64},
                "type": {"type": "string", "enum": ["debit", "credit", "savings", "checking"]}
            }
        },
        "dto.DepositRequest": {
            "type": "object",
            "required": ["amount"],
            "properties": {"amount": {"type": "number"}}
        },
        "dto.ListTransactionsResponse": {
            "type": "object",
            "properties": {
                "nextToken": {"type": "string"},
                "transactions": {"type": "array", "items": {"$ref": "#/definitions/dto.TransactionResponse"}}
            }
        },
        "dto.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "dto.LoginResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}}
        },
        "dto.RegisterUserRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string", "maxLength": 100},
                "password": {"type": "string", "maxLength": 72, "minLength": 8}
            }
        },
        "dto.SetFrozenRequest": {
            "type": "object",
            "required": ["isFrozen"],
            "properties": {"isFrozen": {"type": "boolean"}}
        },
        "dto.TransactionResponse": {
            "type": "object",
            "properties": {
                "accountID": {"type": "string"},
                "amount": {"type": "number"},
                "balanceAfter": {"type": "number"},
                "counterpartyAccountID": {"type": "string"},
                "date": {"type": "string"},
                "description": {"type": "string"},
                "direction": {"type": "string", "enum": ["in", "out"]},
                "reference": {"type": "string"},
                "transactionID": {"type": "string"},
                "type": {"type": "string", "enum": ["deposit", "withdraw", "transfer"]}
            }
        },
        "dto.TransferRequest": {
            "type": "object",
            "required": ["amount", "toEmail"],
            "properties": {
                "amount": {"type": "number"},
                "fromAccountId": {"type": "string"},
                "toEmail": {"type": "string"}
            }
        },
        "dto.TransferResponse": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "occurredAt": {"type": "string"},
                "ok": {"type": "boolean"},
                "recipientAccountID": {"type": "string"},
                "reference": {"type": "string"},
                "senderAccountID": {"type": "string"}
            }
        },
        "dto.UserResponse": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "name": {"type": "string"}, "userID": {"type": "string"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "kind": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Bank Ledger API",
	Description:      "Accounts, deposits and transfers between users over an append-only transaction log.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

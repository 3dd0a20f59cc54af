// Package docs holds the OpenAPI description served under /api-docs.
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
				"tags": [
					"System"
				],
				"summary": "Health check",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				}
			}
		},
		"/api/auth/register": {
			"post": {
				"tags": [
					"Auth"
				],
				"summary": "Register a user",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.RegisterRequest"
						}
					}
				]
			}
		},
		"/api/auth/login": {
			"post": {
				"tags": [
					"Auth"
				],
				"summary": "Log in",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.LoginRequest"
						}
					}
				]
			}
		},
		"/api/auth/logout": {
			"post": {
				"tags": [
					"Auth"
				],
				"summary": "Log out",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/auth/profile": {
			"get": {
				"tags": [
					"Auth"
				],
				"summary": "Current user profile",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"put": {
				"tags": [
					"Auth"
				],
				"summary": "Update profile",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.UpdateProfileRequest"
						}
					}
				]
			}
		},
		"/api/tasks": {
			"get": {
				"tags": [
					"Tasks"
				],
				"summary": "List tasks",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "status",
						"in": "query",
						"type": "string",
						"description": "pending, in-progress, completed or cancelled"
					},
					{
						"name": "priority",
						"in": "query",
						"type": "string",
						"description": "low, medium, high or urgent"
					},
					{
						"name": "search",
						"in": "query",
						"type": "string",
						"description": "Substring of title or description"
					},
					{
						"name": "userId",
						"in": "query",
						"type": "integer",
						"description": ""
					},
					{
						"name": "page",
						"in": "query",
						"type": "integer",
						"description": ""
					},
					{
						"name": "limit",
						"in": "query",
						"type": "integer",
						"description": ""
					},
					{
						"name": "sort",
						"in": "query",
						"type": "string",
						"description": "e.g. -createdAt"
					}
				]
			},
			"post": {
				"tags": [
					"Tasks"
				],
				"summary": "Create a task",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.CreateTaskRequest"
						}
					}
				]
			}
		},
		"/api/tasks/generate": {
			"post": {
				"tags": [
					"Tasks"
				],
				"summary": "Draft tasks from text",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.GenerateTasksRequest"
						}
					}
				]
			}
		},
		"/api/tasks/my-tasks": {
			"get": {
				"tags": [
					"Tasks"
				],
				"summary": "My tasks",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "status",
						"in": "query",
						"type": "string",
						"description": "pending, in-progress, completed or cancelled"
					},
					{
						"name": "priority",
						"in": "query",
						"type": "string",
						"description": "low, medium, high or urgent"
					},
					{
						"name": "page",
						"in": "query",
						"type": "integer",
						"description": ""
					},
					{
						"name": "limit",
						"in": "query",
						"type": "integer",
						"description": ""
					},
					{
						"name": "sort",
						"in": "query",
						"type": "string",
						"description": "e.g. -createdAt"
					}
				]
			}
		},
		"/api/tasks/assigned": {
			"get": {
				"tags": [
					"Tasks"
				],
				"summary": "Assigned tasks",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "page",
						"in": "query",
						"type": "integer",
						"description": ""
					},
					{
						"name": "limit",
						"in": "query",
						"type": "integer",
						"description": ""
					},
					{
						"name": "sort",
						"in": "query",
						"type": "string",
						"description": "e.g. -createdAt"
					}
				]
			}
		},
		"/api/tasks/{id}": {
			"get": {
				"tags": [
					"Tasks"
				],
				"summary": "Get a task",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "Task ID"
					}
				]
			},
			"put": {
				"tags": [
					"Tasks"
				],
				"summary": "Update a task",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "Task ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.UpdateTaskRequest"
						}
					}
				]
			},
			"delete": {
				"tags": [
					"Tasks"
				],
				"summary": "Delete a task",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "Task ID"
					}
				]
			}
		},
		"/api/tasks/{id}/assign": {
			"post": {
				"tags": [
					"Tasks"
				],
				"summary": "Assign a task",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "Task ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.AssignTaskRequest"
						}
					}
				]
			}
		},
		"/api/analytics/stats": {
			"get": {
				"tags": [
					"Analytics"
				],
				"summary": "Task statistics",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "userId",
						"in": "query",
						"type": "integer",
						"description": ""
					},
					{
						"name": "teamId",
						"in": "query",
						"type": "integer",
						"description": ""
					}
				]
			}
		},
		"/api/analytics/user": {
			"get": {
				"tags": [
					"Analytics"
				],
				"summary": "Own statistics",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/analytics/user/{userId}": {
			"get": {
				"tags": [
					"Analytics"
				],
				"summary": "User statistics",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "userId",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "User ID"
					}
				]
			}
		},
		"/api/analytics/team": {
			"get": {
				"tags": [
					"Analytics"
				],
				"summary": "Team statistics",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "teamId",
						"in": "query",
						"type": "integer",
						"description": ""
					}
				]
			}
		},
		"/api/teams": {
			"get": {
				"tags": [
					"Teams"
				],
				"summary": "List teams",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "page",
						"in": "query",
						"type": "integer",
						"description": ""
					},
					{
						"name": "limit",
						"in": "query",
						"type": "integer",
						"description": ""
					}
				]
			},
			"post": {
				"tags": [
					"Teams"
				],
				"summary": "Create a team",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.CreateTeamRequest"
						}
					}
				]
			}
		},
		"/api/teams/{id}": {
			"get": {
				"tags": [
					"Teams"
				],
				"summary": "Get a team",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "Team ID"
					}
				]
			},
			"put": {
				"tags": [
					"Teams"
				],
				"summary": "Update a team",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "Team ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.UpdateTeamRequest"
						}
					}
				]
			},
			"delete": {
				"tags": [
					"Teams"
				],
				"summary": "Delete a team",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "Team ID"
					}
				]
			}
		},
		"/api/teams/{id}/members": {
			"post": {
				"tags": [
					"Teams"
				],
				"summary": "Add a team member",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "Team ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.TeamMemberRequest"
						}
					}
				]
			}
		},
		"/api/teams/{id}/members/{userId}": {
			"delete": {
				"tags": [
					"Teams"
				],
				"summary": "Remove a team member",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/errors.APIError"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "Team ID"
					},
					{
						"name": "userId",
						"in": "path",
						"required": true,
						"type": "integer",
						"description": "User ID"
					}
				]
			}
		}
	},
	"definitions": {
		"dto.Response": {
			"type": "object",
			"properties": {
				"success": {
					"type": "boolean"
				},
				"message": {
					"type": "string"
				},
				"data": {},
				"pagination": {
					"$ref": "#/definitions/utils.PaginationResponse"
				}
			}
		},
		"utils.PaginationResponse": {
			"type": "object",
			"properties": {
				"page": {
					"type": "integer"
				},
				"limit": {
					"type": "integer"
				},
				"total": {
					"type": "integer"
				},
				"pages": {
					"type": "integer"
				}
			}
		},
		"errors.APIError": {
			"type": "object",
			"properties": {
				"success": {
					"type": "boolean"
				},
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				},
				"errors": {}
			}
		},
		"dto.RegisterRequest": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"password": {
					"type": "string"
				},
				"role": {
					"type": "string",
					"enum": [
						"admin",
						"manager",
						"user"
					]
				},
				"teamId": {
					"type": "integer"
				}
			},
			"required": [
				"username",
				"email",
				"password"
			]
		},
		"dto.LoginRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			},
			"required": [
				"email",
				"password"
			]
		},
		"dto.UpdateProfileRequest": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string"
				},
				"email": {
					"type": "string"
				}
			}
		},
		"dto.CreateTaskRequest": {
			"type": "object",
			"properties": {
				"title": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"dueDate": {
					"type": "string",
					"format": "date-time"
				},
				"priority": {
					"type": "string",
					"enum": [
						"low",
						"medium",
						"high",
						"urgent"
					]
				},
				"status": {
					"type": "string",
					"enum": [
						"pending",
						"in-progress",
						"completed",
						"cancelled"
					]
				},
				"assignedTo": {
					"type": "integer"
				},
				"tags": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			},
			"required": [
				"title",
				"dueDate"
			]
		},
		"dto.UpdateTaskRequest": {
			"type": "object",
			"properties": {
				"title": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"dueDate": {
					"type": "string",
					"format": "date-time"
				},
				"priority": {
					"type": "string"
				},
				"status": {
					"type": "string"
				},
				"assignedTo": {
					"type": "integer"
				},
				"tags": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		},
		"dto.AssignTaskRequest": {
			"type": "object",
			"properties": {
				"assignedTo": {
					"type": "integer"
				}
			},
			"required": [
				"assignedTo"
			]
		},
		"dto.GenerateTasksRequest": {
			"type": "object",
			"properties": {
				"text": {
					"type": "string"
				}
			},
			"required": [
				"text"
			]
		},
		"dto.CreateTeamRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"description": {
					"type": "string"
				}
			},
			"required": [
				"name"
			]
		},
		"dto.UpdateTeamRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"description": {
					"type": "string"
				}
			}
		},
		"dto.TeamMemberRequest": {
			"type": "object",
			"properties": {
				"userId": {
					"type": "integer"
				}
			},
			"required": [
				"userId"
			]
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
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Task Management API",
	Description:      "Multi-tenant task management with role-based access, analytics and realtime updates.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

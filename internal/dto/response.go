package dto

import "github.com/yukikurage/team-task-api/internal/utils"

// Response is the envelope of every successful API response
type Response struct {
	Success    bool                      `json:"success"`
	Message    string                    `json:"message,omitempty"`
	Data       any                       `json:"data,omitempty"`
	Pagination *utils.PaginationResponse `json:"pagination,omitempty"`
}

// OK wraps data in a success envelope
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Message wraps data in a success envelope with a message
func Message(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}

// Page wraps one page of results with its pagination metadata
func Page(data any, pagination utils.PaginationResponse) Response {
	return Response{Success: true, Data: data, Pagination: &pagination}
}

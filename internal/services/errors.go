package services

import (
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
)

var (
	ErrTitleRequired          = apierrors.Validation("Task title is required", nil)
	ErrTitleEmpty             = apierrors.Validation("Title cannot be empty", nil)
	ErrUserExists             = apierrors.Conflict("User with this email or username already exists")
	ErrProfileTaken           = apierrors.Conflict("Username or email is already in use")
	ErrUserNotFound           = apierrors.NotFound("User not found")
	ErrTeamNotFound           = apierrors.NotFound("Team not found")
	ErrTeamNameTaken          = apierrors.Conflict("Team with this name already exists")
	ErrNotTeamMember          = apierrors.NotFound("User is not a member of this team")
	ErrTeamAccessDenied       = apierrors.Forbidden("Access denied")
	ErrTeamIDRequired         = apierrors.Validation("Team ID is required", nil)
	ErrTeamStatsForbidden     = apierrors.Forbidden("Access denied. Only managers and admins can view team stats.")
	ErrUserStatsForbidden     = apierrors.Forbidden("Access denied")
	ErrAIServiceNotConfigured = apierrors.ServiceUnavailable("AI service is not configured. Please set OPENAI_API_KEY environment variable.")
	ErrAINoTasksGenerated     = apierrors.Validation("AI did not generate any tasks", nil)
	ErrAINoValidTasks         = apierrors.Validation("No valid tasks could be created from AI output", nil)
)

var (
	ErrTokenRequired = apierrors.Unauthenticated("Authentication required. Please provide a token.")
	ErrTokenRevoked  = apierrors.Unauthenticated("Token has been invalidated. Please login again.")
	ErrTokenInvalid  = apierrors.Unauthenticated("Invalid or expired token.")
	ErrTokenUser     = apierrors.Unauthenticated("User not found.")
)

package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register creates a new user account.
//
// @Summary  Register a user
// @Tags     Auth
// @Accept   json
// @Produce  json
// @Param    body  body      dto.RegisterRequest  true  "Registration details"
// @Success  201   {object}  dto.Response{data=dto.RegisterResponse}
// @Failure  400   {object}  apierrors.APIError
// @Router   /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, bindingError(err))
		return
	}

	// only an authenticated admin may choose role and team
	var actor *access.Caller
	if caller, ok := middleware.GetCaller(c); ok {
		actor = &caller
	}

	user, err := h.authService.Register(c.Request.Context(), actor, services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		TeamID:   req.TeamID,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Message("User registered successfully", dto.RegisterResponse{
		User: dto.ToUserDTO(user),
	}))
}

// Login authenticates a user, issues a token and stores it in the session.
//
// @Summary  Log in
// @Tags     Auth
// @Accept   json
// @Produce  json
// @Param    body  body      dto.LoginRequest  true  "Credentials"
// @Success  200   {object}  dto.Response{data=dto.LoginResponse}
// @Failure  401   {object}  apierrors.APIError
// @Router   /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, bindingError(err))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.SessionKeyToken, result.Token)
	if err := session.Save(); err != nil {
		apierrors.Respond(c, apierrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, dto.Message("Login successful", dto.LoginResponse{
		Token: result.Token,
		User:  dto.ToUserDTO(result.User),
	}))
}

// Logout revokes the presented token and clears the session.
//
// @Summary   Log out
// @Tags      Auth
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  dto.Response
// @Router    /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	h.authService.Logout(c.Request.Context(), userID, middleware.GetClaims(c))

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.Respond(c, apierrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, dto.Message("Logout successful", nil))
}

// GetProfile returns the authenticated user.
//
// @Summary   Current user profile
// @Tags      Auth
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  dto.Response{data=dto.UserDTO}
// @Router    /api/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Respond(c, services.ErrTokenRequired)
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToUserDTO(user)))
}

// UpdateProfile changes the username or email of the authenticated user.
//
// @Summary   Update profile
// @Tags      Auth
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      dto.UpdateProfileRequest  true  "Profile fields"
// @Success   200   {object}  dto.Response{data=dto.UserDTO}
// @Router    /api/auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, bindingError(err))
		return
	}

	userID, _ := middleware.GetUserID(c)
	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, services.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Profile updated successfully", dto.ToUserDTO(user)))
}

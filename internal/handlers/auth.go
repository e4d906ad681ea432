package handlers

import (
	"errors"
	"net/http"

	"building_automation/internal/repository"
	"building_automation/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	codeUsernameTaken      = "USERNAME_TAKEN"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeUnauthorized       = "UNAUTHORIZED"
	codeInternal           = "INTERNAL"
)

// authCredentials is the body of sign-up and sign-in.
type authCredentials struct {
	Username string `json:"username" binding:"required" example:"facility"`
	Password string `json:"password" binding:"required" example:"boiler-room"`
}

type signUpResponse struct {
	ID int `json:"id" example:"1"`
}

type signInResponse struct {
	Token string `json:"token"`
}

func (h *Handler) bindCredentials(c *gin.Context) (authCredentials, bool) {
	var in authCredentials
	if err := c.ShouldBindJSON(&in); err != nil {
		h.log.Infow("auth_bad_request_body", "path", c.FullPath(), "err", err)
		badRequest(c, err)
		return in, false
	}
	return in, true
}

// @Summary      Sign up
// @Description  Creates a panel operator. Usernames are case-insensitive.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authCredentials  true  "Credentials"
// @Success      200   {object}  signUpResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse  "username taken"
// @Failure      500   {object}  errorResponse
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	in, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	id, err := h.services.SignUp(c.Request.Context(), in.Username, in.Password)
	switch {
	case err == nil:
		h.log.Infow("operator_created", "user_id", id)
		c.JSON(http.StatusOK, signUpResponse{ID: id})
	case errors.Is(err, repository.ErrUsernameTaken):
		h.log.Infow("auth_sign_up_rejected", "username", in.Username, "err", err)
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: codeUsernameTaken})
	case errors.Is(err, service.ErrEmptyCredentials):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: codeBadRequest})
	default:
		h.log.Errorw("auth_sign_up_failed", "username", in.Username, "err", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Code: codeInternal})
	}
}

// @Summary      Sign in
// @Description  Returns a bearer token for the /api/v1 routes and /ws.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authCredentials  true  "Credentials"
// @Success      200   {object}  signInResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	in, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	token, err := h.services.GenerateToken(c.Request.Context(), in.Username, in.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, signInResponse{Token: token})
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidPassword):
		// Same answer for both so usernames cannot be probed.
		h.log.Infow("auth_sign_in_rejected", "username", in.Username, "err", err)
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials", Code: codeInvalidCredentials})
	default:
		h.log.Errorw("auth_sign_in_failed", "username", in.Username, "err", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Code: codeInternal})
	}
}

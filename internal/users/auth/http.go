// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

/*
HTTP delivery layer for the authentication lifecycle.

The handler acts as a thin mediation layer between the web and the domain
service:
  - Protocol: RESTful JSON with the platform response envelope.
  - Security: Bearer token orchestration and refresh token rotation.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes,
headers, JSON).
*/

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/catalysthq/catalyst/internal/platform/middleware"
	requestutil "github.com/catalysthq/catalyst/internal/platform/request"
	"github.com/catalysthq/catalyst/internal/platform/respond"
	"github.com/catalysthq/catalyst/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the user lifecycle entry points
// (Registration, Login, Token Refresh, Password Recovery, Session Management).
type Handler struct {
	authService   *Service
	isDevelopment bool
}

// NewHandler constructs a new [Handler] with its service dependency.
// isDevelopment controls whether reset tokens are echoed in responses.
func NewHandler(service *Service, isDevelopment bool) *Handler {
	return &Handler{authService: service, isDevelopment: isDevelopment}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// authenticator guards the protected group; sensitiveLimiter throttles the
// credential-bearing public endpoints per client IP.
func (handler *Handler) Routes(authenticator *middleware.Authenticator, sensitiveLimiter func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	// Public endpoints handling raw credentials get the strict limiter.
	router.Group(func(r chi.Router) {
		r.Use(sensitiveLimiter)
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/forgot-password", handler.forgotPassword)
		r.Post("/reset-password", handler.resetPassword)
	})

	// Refresh stays outside the limiter: clients poll it on a timer and a
	// throttled refresh would log every open tab out at once.
	router.Post("/refresh-token", handler.refresh)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(authenticator.Authenticate)
		r.Post("/logout", handler.logout)
		r.Get("/me", handler.me)
		r.Put("/change-password", handler.changePassword)
		r.Get("/sessions", handler.listSessions)
		r.Delete("/sessions/{sessionID}", handler.revokeSession)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Department  string `json:"department,omitempty"`
	JobTitle    string `json:"jobTitle,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

/*
Register handles the creation of a new user account.

POST /api/auth/register

Description: Validates input, checks for identity conflicts, persists the new
account, and signs the user in immediately.

Request:
  - Body: registerRequest (Email, Password, FirstName, LastName, ...)

Response:
  - 201: user, accessToken, refreshToken
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		Required(FieldFirstName, input.FirstName).
		Required(FieldLastName, input.LastName)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:       input.Email,
		Password:    input.Password,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Department:  input.Department,
		JobTitle:    input.JobTitle,
		PhoneNumber: input.PhoneNumber,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: getClientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		"user":         user,
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	})
}

/*
Login authenticates a user and establishes a session.

POST /api/auth/login

Description: Verifies credentials and issues a signed access/refresh pair.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: user, accessToken, refreshToken
  - 401: ErrUnauthorized: Invalid credentials or deactivated account
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: getClientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"user":         session.User,
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	})
}

/*
Refresh rotates a refresh token into a fresh token pair.

POST /api/auth/refresh-token

Description: Validates the presented refresh token, consumes its session
(single use), and issues a replacement access/refresh pair.

Request:
  - Body: refreshRequest (RefreshToken)

Response:
  - 200: accessToken, refreshToken
  - 401: ErrUnauthorized: Expired, reused, or otherwise invalid token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldRefreshToken, "is required"))
		return
	}

	session, err := handler.authService.RefreshSession(
		request.Context(),
		input.RefreshToken,
		request.UserAgent(),
		getClientIP(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	})
}

/*
Logout terminates the caller's current session.

POST /api/auth/logout

Description: Revokes the session backing the presented access token. Already
revoked sessions log out successfully.

Response:
  - 200: Message: Logged out successfully
  - 401: ErrUnauthorized: Missing or invalid access token
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.Logout(request.Context(), identity.UserID, requestutil.BearerToken(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Logged out successfully")
}

/*
Me returns the authenticated user's full profile.

GET /api/auth/me

Description: Re-reads the account from storage, so the response reflects role
changes and profile edits made after the token was issued.

Response:
  - 200: User: Current profile with role assignments
  - 401: ErrUnauthorized: Missing or invalid access token
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.CurrentUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
ChangePassword rotates the caller's password.

PUT /api/auth/change-password

Description: Verifies the current password, stores the new hash, and revokes
every session except the one making this request.

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 200: Message: Password changed successfully
  - 401: ErrUnauthorized: Current password incorrect
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.ChangePassword(request.Context(), userID, requestutil.BearerToken(request), ChangePasswordInput{
		CurrentPassword: input.CurrentPassword,
		NewPassword:     input.NewPassword,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Password changed successfully")
}

/*
ForgotPassword initiates the password recovery flow.

POST /api/auth/forgot-password

Description: Issues a reset token when the email belongs to an active account.
The response is identical either way, so the endpoint leaks nothing about
which emails are registered.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Message: Generic acknowledgement (resetToken included in development)
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	resetToken, err := handler.authService.ForgotPassword(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	const acknowledgement = "If this email is registered, a reset link has been sent."

	// In development the token is echoed so the flow can be exercised without
	// a mail sender. Production responses never include it.
	if handler.isDevelopment && resetToken != "" {
		respond.OK(writer, map[string]string{
			"message":    acknowledgement,
			"resetToken": resetToken,
		})
		return
	}

	respond.Message(writer, acknowledgement)
}

/*
ResetPassword completes the password recovery flow.

POST /api/auth/reset-password

Description: Validates the reset token, updates the password, and revokes
every session for the account.

Request:
  - Body: resetPasswordRequest (Token, NewPassword)

Response:
  - 200: Message: Password reset successfully
  - 401: ErrTokenExpired / ErrTokenInvalid: Bad reset token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Password reset successfully")
}

/*
ListSessions returns the caller's active sessions.

GET /api/auth/sessions

Response:
  - 200: []Session: Device metadata, newest first
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.authService.ListSessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

/*
RevokeSession signs out one of the caller's devices.

DELETE /api/auth/sessions/{sessionID}

Response:
  - 200: Message: Session revoked
  - 400: ErrValidation: Malformed session ID
*/
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessionID := requestutil.Param(request, "sessionID")

	validator := &validate.Validator{}
	validator.Required(FieldSessionID, sessionID).UUID(FieldSessionID, sessionID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.RevokeSession(request.Context(), userID, sessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Session revoked")
}

// getClientIP tries to extract the real IP address of a user over proxy environments.
func getClientIP(request *http.Request) string {
	ip := request.Header.Get("X-Real-IP")
	if ip == "" {
		ip = request.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = request.RemoteAddr
	}
	return ip
}

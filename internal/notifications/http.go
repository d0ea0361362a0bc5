// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/catalysthq/catalyst/internal/platform/request"
	"github.com/catalysthq/catalyst/internal/platform/respond"
	"github.com/catalysthq/catalyst/internal/platform/validate"
)

// defaultListLimit caps how many notifications a single list call returns.
const defaultListLimit = 50

// Handler implements notification HTTP endpoints. All routes assume the
// authentication middleware has already populated the request identity.
type Handler struct {
	repository Repository
}

// NewHandler constructs a new [Handler].
func NewHandler(repository Repository) *Handler {
	return &Handler{repository: repository}
}

// Routes returns a [chi.Router] with the notification endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/unread-count", handler.unreadCount)
	router.Put("/{notificationID}/read", handler.markRead)

	return router
}

/*
List returns the caller's notifications, newest first.

GET /api/notifications

Response:
  - 200: []Notification
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	notifications, err := handler.repository.ListForUser(request.Context(), userID, defaultListLimit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, notifications)
}

/*
UnreadCount returns the caller's unread notification count.

GET /api/notifications/unread-count

Response:
  - 200: {count}
*/
func (handler *Handler) unreadCount(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	count, err := handler.repository.CountUnread(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int64{"count": count})
}

/*
MarkRead flags one of the caller's notifications as read.

PUT /api/notifications/{notificationID}/read

Response:
  - 200: Message: Notification marked as read
  - 400: ErrValidation: Malformed notification ID
*/
func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	notificationID := requestutil.Param(request, "notificationID")

	validator := &validate.Validator{}
	validator.Required("notificationID", notificationID).UUID("notificationID", notificationID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.repository.MarkRead(request.Context(), userID, notificationID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Notification marked as read")
}

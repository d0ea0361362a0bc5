// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/catalysthq/catalyst/internal/platform/respond"
)

// placeholderRoutes reserves a feature area's URL space while its service is
// still in development. Every request under the prefix answers 501 inside
// the standard envelope, so clients fail in a recognizable way instead of a
// bare 404.
func placeholderRoutes(area string) chi.Router {
	router := chi.NewRouter()

	router.HandleFunc("/*", func(writer http.ResponseWriter, request *http.Request) {
		respond.JSON(writer, http.StatusNotImplemented, respond.ErrorEnvelope{
			Success: false,
			Message: "The " + area + " service is not available yet",
			Code:    "NOT_IMPLEMENTED",
		})
	})

	return router
}

package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/templink/internal/ratelimit"
)

// RegisterRoutes registers all link routes with per-endpoint rate limit configuration.
func RegisterRoutes(api huma.API, linkHandler *LinkHandler) {
	// POST /api/links - register a destination
	// Write operations get strict limits
	huma.Register(api, huma.Operation{
		OperationID:   "create-link",
		Method:        http.MethodPost,
		Path:          "/api/links",
		Summary:       "Create link",
		Description:   "Registers a destination URL and returns a short link valid for the requested lifetime.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
					{Window: 24 * time.Hour, Max: 500},
				},
			},
		},
	}, linkHandler.CreateLink)

	// GET /api/links/{id} - describe a link
	huma.Register(api, huma.Operation{
		OperationID: "get-link",
		Method:      http.MethodGet,
		Path:        "/api/links/{id}",
		Summary:     "Get link",
		Description: "Describes a live link. Expired and deleted links are not found.",
		Tags:        []string{"Links"},
	}, linkHandler.GetLink)

	// DELETE /api/links/{id} - remove a link
	huma.Register(api, huma.Operation{
		OperationID:   "delete-link",
		Method:        http.MethodDelete,
		Path:          "/api/links/{id}",
		Summary:       "Delete link",
		Description:   "Removes a live link. Missing or already-expired links yield 404.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusNoContent,
	}, linkHandler.DeleteLink)

	// GET /{id} - follow a short link
	// Relaxed limits for the high-traffic redirect path
	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{id}",
		Summary:     "Redirect to destination",
		Description: "Redirects to the destination URL associated with the link identifier.",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 1000},
				},
			},
		},
	}, linkHandler.Redirect)
}

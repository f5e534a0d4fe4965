package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/serroba/templink/internal/analytics"
	"github.com/serroba/templink/internal/link"
	"github.com/serroba/templink/internal/messaging"
	"go.uber.org/zap"
)

// LinkHandler exposes the link registry over HTTP.
type LinkHandler struct {
	registry           *link.Registry
	publicDomain       string
	publishLinkCreated messaging.Publish[analytics.LinkCreatedEvent]
	publishLinkVisited messaging.Publish[analytics.LinkVisitedEvent]
	logger             *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	registry *link.Registry,
	publicDomain string,
	publishLinkCreated messaging.Publish[analytics.LinkCreatedEvent],
	publishLinkVisited messaging.Publish[analytics.LinkVisitedEvent],
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		registry:           registry,
		publicDomain:       publicDomain,
		publishLinkCreated: publishLinkCreated,
		publishLinkVisited: publishLinkVisited,
		logger:             logger,
	}
}

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata for analytics.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

// CreateLink registers a destination and returns the public link resource.
func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	ttl := time.Duration(req.Body.ExpirationTime) * time.Millisecond

	id, rec, err := h.registry.Create(ctx, req.Body.Destination, ttl)
	if err != nil {
		switch {
		case errors.Is(err, link.ErrValidation):
			return nil, huma.Error400BadRequest(err.Error())
		case errors.Is(err, link.ErrGenerationExhausted):
			return nil, huma.Error503ServiceUnavailable("identifier space exhausted, try again later")
		default:
			h.logger.Error("failed to create link", zap.Error(err))

			return nil, huma.Error500InternalServerError("failed to create link")
		}
	}

	meta := RequestMetaFromContext(ctx)
	event := &analytics.LinkCreatedEvent{
		EventID:        uuid.NewString(),
		ID:             id,
		Destination:    rec.Destination,
		ExpirationTime: rec.TTL.Milliseconds(),
		CreatedAt:      rec.CreatedAt,
		ClientIP:       meta.ClientIP,
		UserAgent:      meta.UserAgent,
	}

	if err := h.publishLinkCreated(event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("id", id),
			zap.Error(err),
		)
	}

	resource := h.toResource(id, rec)

	resp := &CreateLinkResponse{Body: resource}
	resp.Location = resource.Link

	return resp, nil
}

// GetLink describes a live link.
func (h *LinkHandler) GetLink(ctx context.Context, req *GetLinkRequest) (*GetLinkResponse, error) {
	rec, err := h.registry.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, link.ErrNotFound) {
			return nil, huma.Error404NotFound("link not found")
		}

		h.logger.Error("failed to get link", zap.String("id", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to get link")
	}

	return &GetLinkResponse{Body: h.toResource(req.ID, rec)}, nil
}

// DeleteLink removes a live link. Absence is a 404, never a server error.
func (h *LinkHandler) DeleteLink(ctx context.Context, req *DeleteLinkRequest) (*struct{}, error) {
	deleted, err := h.registry.DeleteByID(ctx, req.ID)
	if err != nil {
		h.logger.Error("failed to delete link", zap.String("id", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to delete link")
	}

	if !deleted {
		return nil, huma.Error404NotFound(fmt.Sprintf("link %q was not found", req.ID))
	}

	return nil, nil
}

// Redirect sends the browser to the destination of a live link.
func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	rec, err := h.registry.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, link.ErrNotFound) {
			return nil, huma.Error404NotFound("link not found")
		}

		h.logger.Error("failed to resolve link", zap.String("id", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to resolve link")
	}

	meta := RequestMetaFromContext(ctx)
	event := &analytics.LinkVisitedEvent{
		EventID:   uuid.NewString(),
		ID:        req.ID,
		VisitedAt: time.Now(),
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
	}

	if err := h.publishLinkVisited(event); err != nil {
		h.logger.Error("failed to publish link visited event",
			zap.String("id", req.ID),
			zap.Error(err),
		)
	}

	resp := &RedirectResponse{
		Status:   http.StatusMovedPermanently,
		Location: rec.Destination,
	}

	return resp, nil
}

func (h *LinkHandler) toResource(id string, rec link.Record) LinkResource {
	return LinkResource{
		Type:           "link_resource",
		Link:           fmt.Sprintf("https://%s/%s", h.publicDomain, id),
		ID:             id,
		Destination:    rec.Destination,
		ExpirationTime: rec.TTL.Milliseconds(),
		CreationDate:   rec.CreatedAt.UnixMilli(),
		ExpirationDate: rec.ExpiresAt().UnixMilli(),
	}
}

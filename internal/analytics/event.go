package analytics

import "time"

const (
	// TopicLinkCreated carries events for freshly registered links.
	TopicLinkCreated = "link.created"
	// TopicLinkVisited carries events for served redirects.
	TopicLinkVisited = "link.visited"
)

// LinkCreatedEvent is emitted when a link is registered.
type LinkCreatedEvent struct {
	EventID        string    `json:"eventId"`
	ID             string    `json:"id"`
	Destination    string    `json:"destination"`
	ExpirationTime int64     `json:"expirationTime"` // milliseconds
	CreatedAt      time.Time `json:"createdAt"`
	ClientIP       string    `json:"clientIp"`
	UserAgent      string    `json:"userAgent"`
}

// LinkVisitedEvent is emitted when a redirect is served.
type LinkVisitedEvent struct {
	EventID   string    `json:"eventId"`
	ID        string    `json:"id"`
	VisitedAt time.Time `json:"visitedAt"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent"`
	Referrer  string    `json:"referrer"`
}

package handlers

// LinkResource is the public wire representation of a registered link.
// Timestamps are epoch milliseconds.
type LinkResource struct {
	Type           string `doc:"Resource type discriminator"        example:"link_resource"              json:"type"`
	Link           string `doc:"Public short link"                  example:"https://tmp.link/V1StGXR8_Z" json:"link"`
	ID             string `doc:"Link identifier"                    example:"V1StGXR8_Z"                  json:"id"`
	Destination    string `doc:"Destination URL"                    example:"https://example.com/long"    json:"destination"`
	ExpirationTime int64  `doc:"Requested lifetime in milliseconds" example:"60000"                       json:"expiration_time"`
	CreationDate   int64  `doc:"Creation timestamp"                 example:"1700000000000"               json:"creation_date"`
	ExpirationDate int64  `doc:"Expiration timestamp"               example:"1700000060000"               json:"expiration_date"`
}

// CreateLinkRequest is the request body for registering a link.
type CreateLinkRequest struct {
	Body struct {
		Destination    string `doc:"Absolute http(s) URL to redirect to" example:"https://example.com/long" json:"destination"`
		ExpirationTime int64  `doc:"Lifetime in milliseconds"            example:"60000"                    json:"expiration_time" minimum:"1"`
	}
}

// CreateLinkResponse is the response for a successfully registered link.
type CreateLinkResponse struct {
	Location string `doc:"The public short link" header:"Location"`
	Body     LinkResource
}

// GetLinkRequest identifies a link to describe.
type GetLinkRequest struct {
	ID string `doc:"Link identifier" example:"V1StGXR8_Z" path:"id"`
}

// GetLinkResponse describes a live link.
type GetLinkResponse struct {
	Body LinkResource
}

// DeleteLinkRequest identifies a link to remove.
type DeleteLinkRequest struct {
	ID string `doc:"Link identifier" example:"V1StGXR8_Z" path:"id"`
}

// RedirectRequest is the request for following a short link.
type RedirectRequest struct {
	ID string `doc:"Link identifier" example:"V1StGXR8_Z" path:"id"`
}

// RedirectResponse sends the browser to the destination.
type RedirectResponse struct {
	Status   int
	Location string `doc:"Destination URL" header:"Location"`
}

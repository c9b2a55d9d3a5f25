package handlers

// ISOTimeFormat renders instants as UTC ISO-8601 with millisecond precision.
const ISOTimeFormat = "2006-01-02T15:04:05.000Z"

// CreateShortURLRequest is the request body for creating a short URL.
type CreateShortURLRequest struct {
	Body struct {
		URL       string `doc:"The URL to shorten"                               example:"https://example.com/very/long/path" json:"url,omitempty"`
		Validity  int    `doc:"Validity in minutes; zero or absent means 30"     example:"30"                                 json:"validity,omitempty"`
		Shortcode string `doc:"Requested shortcode; generated when left empty"   example:"promo1"                             json:"shortcode,omitempty"`
	}
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Location string `doc:"The short link" header:"Location"`
	Body     struct {
		ShortLink string `doc:"The full short link"        example:"http://localhost:8888/abc123" json:"shortLink"`
		Expiry    string `doc:"Expiry instant, ISO-8601 UTC" example:"2025-01-01T00:30:00.000Z"   json:"expiry"`
	}
}

// StatRequest is the request for short URL statistics.
type StatRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// ClickDetail is a single recorded redirect.
type ClickDetail struct {
	Timestamp string `doc:"Click instant, ISO-8601 UTC" json:"timestamp"`
	Source    string `doc:"Source label of the click"   json:"source"`
}

// StatResponse is the response for short URL statistics.
type StatResponse struct {
	Body struct {
		TotalClicks  int64         `doc:"Number of redirects served" json:"totalClicks"`
		OriginalURL  string        `doc:"The original URL"           json:"originalUrl"`
		CreatedAt    string        `doc:"Creation instant"           json:"createdAt"`
		ExpiryDate   string        `doc:"Expiry instant"             json:"expiryDate"`
		ClickDetails []ClickDetail `doc:"Clicks in recording order"  json:"clickDetails"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// RedirectResponse redirects the client to the original URL.
type RedirectResponse struct {
	Status   int
	Location string `header:"Location"`
}

// BannerResponse confirms the service is up.
type BannerResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

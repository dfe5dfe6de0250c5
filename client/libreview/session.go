package libreview

import "net/http"

const (
	DefaultBaseURL = "https://api.libreview.io"
	DefaultProduct = "llu.android"
	DefaultVersion = "4.7"
)

// Session holds what successive LibreView calls share: the API location, the
// fixed product headers and the current bearer token.
//
// The base headers are never modified after creation, every call works on a copy.
// The token is owned by the flow that created the session.
type Session struct {
	BaseURL     string
	token       string
	baseHeaders http.Header
}

// NewSession creates an unauthenticated session
func NewSession(baseURL string, product string, version string) *Session {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if product == "" {
		product = DefaultProduct
	}
	if version == "" {
		version = DefaultVersion
	}
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")
	headers.Set("product", product)
	headers.Set("version", version)
	return &Session{
		BaseURL:     baseURL,
		baseHeaders: headers,
	}
}

func (s *Session) Token() string {
	return s.token
}

func (s *Session) HasToken() bool {
	return s.token != ""
}

func (s *Session) SetToken(token string) {
	s.token = token
}

// BaseHeaders returns the product headers only, the login call never carries a token
func (s *Session) BaseHeaders() http.Header {
	return s.baseHeaders.Clone()
}

// Headers returns the header set for one call, with the bearer token once known
func (s *Session) Headers() http.Header {
	headers := s.BaseHeaders()
	if s.token != "" {
		headers.Set("Authorization", "Bearer "+s.token)
	}
	return headers
}

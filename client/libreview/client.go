package libreview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/mdblp/libreview-exporter/common"
	"github.com/mdblp/libreview-exporter/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// DefaultTimeout applies to a whole request, connection and body read included
	DefaultTimeout = 30 * time.Second

	// API status values of the response envelope
	StatusOK           = 0
	StatusStepRequired = 4

	EndpointLogin       = "login"
	EndpointContinue    = "continue"
	EndpointConnections = "connections"
	EndpointGraph       = "graph"
)

var (
	errorRequest    = common.DetailedError{Kind: common.TransportError, Code: "request_error", Message: "cannot build the libreview request"}
	errorTransport  = common.DetailedError{Kind: common.TransportError, Code: "transport_error", Message: "libreview is not reachable"}
	errorHTTPStatus = common.DetailedError{Kind: common.ProtocolError, Code: "http_status", Message: "libreview answered with an unexpected http status"}
	errorDecode     = common.DetailedError{Kind: common.DecodeError, Code: "decode_error", Message: "libreview answered with an invalid body"}
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:      "request_duration_ms",
	Help:      "A histogram for libreview request execution time (ms)",
	Buckets:   prometheus.LinearBuckets(50, 50, 40),
	Subsystem: "exporter",
	Namespace: "libreview",
}, []string{"endpoint", "outcome"})

// ClientInterface interface that we will implement and mock
type ClientInterface interface {
	Login(ctx context.Context, session *Session, email string, password string) (*schema.AuthResponse, *common.DetailedError)
	ContinueStep(ctx context.Context, session *Session, step string) (*schema.AuthResponse, *common.DetailedError)
	GetConnections(ctx context.Context, session *Session) (*schema.ConnectionsResponse, *common.DetailedError)
	GetGraph(ctx context.Context, session *Session, patientID string) (*schema.GraphResponse, *common.DetailedError)
}

// Client performs the LibreView calls, one at a time, without any retry.
// It only checks the transport and the HTTP status, the API status field is left
// to the callers.
type Client struct {
	httpClient *http.Client
	logger     *log.Logger
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewClient creates a client whose requests give up after timeout
func NewClient(logger *log.Logger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Login posts the credentials with the product headers only, a token held by the
// session from an earlier step is not sent
func (c *Client) Login(ctx context.Context, session *Session, email string, password string) (*schema.AuthResponse, *common.DetailedError) {
	var res schema.AuthResponse
	payload := credentials{Email: email, Password: password}
	if err := c.do(ctx, session.BaseHeaders(), session.BaseURL, EndpointLogin, http.MethodPost, "/llu/auth/login", payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ContinueStep(ctx context.Context, session *Session, step string) (*schema.AuthResponse, *common.DetailedError) {
	var res schema.AuthResponse
	path := "/auth/continue/" + url.PathEscape(step)
	if err := c.do(ctx, session.Headers(), session.BaseURL, EndpointContinue, http.MethodPost, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetConnections(ctx context.Context, session *Session) (*schema.ConnectionsResponse, *common.DetailedError) {
	var res schema.ConnectionsResponse
	if err := c.do(ctx, session.Headers(), session.BaseURL, EndpointConnections, http.MethodGet, "/llu/connections", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetGraph(ctx context.Context, session *Session, patientID string) (*schema.GraphResponse, *common.DetailedError) {
	var res schema.GraphResponse
	path := fmt.Sprintf("/llu/connections/%s/graph", url.PathEscape(patientID))
	if err := c.do(ctx, session.Headers(), session.BaseURL, EndpointGraph, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, headers http.Header, baseURL string, endpoint string, method string, path string, payload interface{}, out interface{}) *common.DetailedError {
	start := time.Now()
	outcome := "ok"
	defer func() {
		requestDuration.WithLabelValues(endpoint, outcome).Observe(float64(time.Since(start).Milliseconds()))
	}()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			outcome = "request"
			detailedErr := errorRequest.SetInternalMessage(err)
			return &detailedErr
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, body)
	if err != nil {
		outcome = "request"
		detailedErr := errorRequest.SetInternalMessage(err)
		return &detailedErr
	}
	req.Header = headers

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "transport"
		detailedErr := errorTransport.SetInternalMessage(err)
		return &detailedErr
	}
	defer resp.Body.Close()
	c.logger.Printf("%s %s status code: %d", method, path, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "transport"
		detailedErr := errorTransport.SetInternalMessage(err)
		detailedErr.Status = resp.StatusCode
		return &detailedErr
	}
	if resp.StatusCode != http.StatusOK {
		outcome = "http_status"
		detailedErr := errorHTTPStatus
		detailedErr.Status = resp.StatusCode
		detailedErr.RawBody = string(raw)
		return &detailedErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		outcome = "decode"
		detailedErr := errorDecode.SetInternalMessage(err)
		detailedErr.Status = resp.StatusCode
		detailedErr.RawBody = string(raw)
		return &detailedErr
	}
	return nil
}

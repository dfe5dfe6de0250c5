// Package libreviewtest provides a fake LibreView API for tests
package libreviewtest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const (
	RouteLogin       = "login"
	RouteContinue    = "continue"
	RouteConnections = "connections"
	RouteGraph       = "graph"
)

// Reply is one canned answer
type Reply struct {
	Status int
	Body   string
}

// OK answers with http 200 and the given body
func OK(body string) Reply {
	return Reply{Status: http.StatusOK, Body: body}
}

// Request is what the server recorded about one call
type Request struct {
	Route  string
	Path   string
	Vars   map[string]string
	Header http.Header
	Body   string
}

// Server answers every route with its queued replies, in order. The last reply
// of a route is repeated once the queue is exhausted, a route without replies
// answers 404.
type Server struct {
	*httptest.Server
	mu       sync.Mutex
	replies  map[string][]Reply
	requests []Request
}

func NewServer() *Server {
	s := &Server{replies: map[string][]Reply{}}
	rtr := mux.NewRouter()
	rtr.HandleFunc("/llu/auth/login", s.handle(RouteLogin)).Methods(http.MethodPost)
	rtr.HandleFunc("/auth/continue/{step}", s.handle(RouteContinue)).Methods(http.MethodPost)
	rtr.HandleFunc("/llu/connections", s.handle(RouteConnections)).Methods(http.MethodGet)
	rtr.HandleFunc("/llu/connections/{patientID}/graph", s.handle(RouteGraph)).Methods(http.MethodGet)
	// responses are compressed whenever the client accepts it, like the real API
	s.Server = httptest.NewServer(handlers.CompressHandler(rtr))
	return s
}

// On queues replies for a route
func (s *Server) On(route string, replies ...Reply) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[route] = append(s.replies[route], replies...)
	return s
}

// Requests returns the recorded calls to a route, all calls when route is empty
func (s *Server) Requests(route string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []Request{}
	for _, r := range s.requests {
		if route == "" || r.Route == route {
			res = append(res, r)
		}
	}
	return res
}

func (s *Server) handle(route string) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Route:  route,
			Path:   req.URL.Path,
			Vars:   mux.Vars(req),
			Header: req.Header.Clone(),
			Body:   string(body),
		})
		queue := s.replies[route]
		var reply Reply
		if len(queue) == 0 {
			reply = Reply{Status: http.StatusNotFound, Body: `{"message":"not found"}`}
		} else {
			reply = queue[0]
			if len(queue) > 1 {
				s.replies[route] = queue[1:]
			}
		}
		s.mu.Unlock()

		res.Header().Set("content-type", "application/json")
		res.WriteHeader(reply.Status)
		res.Write([]byte(reply.Body))
	}
}

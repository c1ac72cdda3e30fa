// Package fakeig is an in-process stand-in for the Instagram private API.
//
// The home timeline only turns chronological and primary-author heavy when
// feed_view_mode=following is sent, the feed/following/ endpoint does not
// exist, and the primary author's profile feed returns twelve posts. Any
// endpoint can be forced to fail with SetErrorResponse.
package fakeig

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// PrimaryUserID is the pk the server assigns to the primary author
const PrimaryUserID = "42"

// Server simulates the private API endpoints the probe calls
type Server struct {
	server         *httptest.Server
	primary        string
	errorResponses map[string]int
	timeline       []map[string]interface{}
	mu             sync.RWMutex
	requestCount   int32
	logins         int32
	logouts        int32
}

// New starts a server whose profile and timeline content is built around primary
func New(primary string) *Server {
	s := &Server{
		primary:        primary,
		errorResponses: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts/login/", s.handleLogin)
	mux.HandleFunc("/api/v1/accounts/current_user/", s.handleCurrentUser)
	mux.HandleFunc("/api/v1/accounts/logout/", s.handleLogout)
	mux.HandleFunc("/api/v1/feed/timeline/", s.handleTimeline)
	mux.HandleFunc("/api/v1/users/", s.handleUsernameInfo)
	mux.HandleFunc("/api/v1/feed/user/", s.handleUserFeed)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.requestCount, 1)
		if s.failed(w, r) {
			return
		}
		writeJSON(w, http.StatusNotFound, `{"status":"fail","message":"Page not found"}`)
	})

	s.server = httptest.NewServer(mux)
	return s
}

// URL returns the API root to hand to the client's SetBaseURL
func (s *Server) URL() string {
	return s.server.URL + "/api/v1"
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

// SetErrorResponse makes endpoint (relative to the API root, e.g.
// "feed/timeline/") answer with code
func (s *Server) SetErrorResponse(endpoint string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorResponses[endpoint] = code
}

// ClearErrorResponse removes a configured failure
func (s *Server) ClearErrorResponse(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errorResponses, endpoint)
}

// RequestCount returns the number of requests served
func (s *Server) RequestCount() int {
	return int(atomic.LoadInt32(&s.requestCount))
}

// Logins returns the number of password logins
func (s *Server) Logins() int {
	return int(atomic.LoadInt32(&s.logins))
}

// Logouts returns the number of logout calls
func (s *Server) Logouts() int {
	return int(atomic.LoadInt32(&s.logouts))
}

// TimelineRequests returns the decoded body of every timeline request
func (s *Server) TimelineRequests() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]map[string]interface{}(nil), s.timeline...)
}

// failed writes the configured error for the request path, if any
func (s *Server) failed(w http.ResponseWriter, r *http.Request) bool {
	endpoint := strings.TrimPrefix(r.URL.Path, "/api/v1/")
	s.mu.RLock()
	code := s.errorResponses[endpoint]
	s.mu.RUnlock()
	if code == 0 {
		return false
	}
	sendError(w, code)
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.requestCount, 1)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.failed(w, r) {
		return
	}
	atomic.AddInt32(&s.logins, 1)

	w.Header().Set("ig-set-authorization", "Bearer IGT:2:fake-token")
	w.Header().Set("ig-set-x-mid", "fake-mid")
	writeJSON(w, http.StatusOK, `{"status":"ok","logged_in_user":{"pk":77,"username":"prober"}}`)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.requestCount, 1)
	if s.failed(w, r) {
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeJSON(w, http.StatusForbidden, `{"status":"fail","message":"login_required"}`)
		return
	}
	writeJSON(w, http.StatusOK, `{"status":"ok","user":{"pk":77,"username":"prober"}}`)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.requestCount, 1)
	if s.failed(w, r) {
		return
	}
	atomic.AddInt32(&s.logouts, 1)
	writeJSON(w, http.StatusOK, `{"status":"ok"}`)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.requestCount, 1)
	if s.failed(w, r) {
		return
	}

	raw, _ := io.ReadAll(r.Body)
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, `{"status":"fail","message":"invalid body"}`)
		return
	}
	s.mu.Lock()
	s.timeline = append(s.timeline, body)
	s.mu.Unlock()

	if body["feed_view_mode"] == "following" {
		if _, ok := body["max_id"]; !ok {
			docs := make([]string, 6)
			for i := range docs {
				docs[i] = MediaDoc(100+i, s.primary, int64(1700000000-i*60))
			}
			writeJSON(w, http.StatusOK, fmt.Sprintf(`{"status":"ok","feed_items":%s,"next_max_id":"p2","more_available":true}`, FeedItems(docs...)))
			return
		}
		docs := make([]string, 6)
		for i := range docs {
			docs[i] = MediaDoc(200+i, s.primary, int64(1699990000-i*60))
		}
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"status":"ok","feed_items":%s,"next_max_id":null,"more_available":false}`, FeedItems(docs...)))
		return
	}

	writeJSON(w, http.StatusOK, fmt.Sprintf(`{"status":"ok","feed_items":%s,"next_max_id":"","more_available":false}`, FeedItems(
		MediaDoc(1, "someone", 1700000000),
		MediaDoc(2, s.primary, 1700003000),
		`{"pk":3,"taken_at":1700000100,"user":{"username":"brand"},"dr_ad_type":1}`,
		MediaDoc(4, "another", 1699000000),
		MediaDoc(5, s.primary, 1699500000),
		MediaDoc(6, "someone", 1699400000),
		MediaDoc(7, s.primary, 1699300000),
	)))
}

func (s *Server) handleUsernameInfo(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.requestCount, 1)
	if s.failed(w, r) {
		return
	}
	if r.URL.Path != "/api/v1/users/"+s.primary+"/usernameinfo/" {
		writeJSON(w, http.StatusNotFound, `{"status":"fail","message":"User not found"}`)
		return
	}
	writeJSON(w, http.StatusOK, fmt.Sprintf(
		`{"status":"ok","user":{"pk":%q,"username":%q,"full_name":"Primary Author","follower_count":123456,"media_count":9876}}`,
		PrimaryUserID, s.primary))
}

func (s *Server) handleUserFeed(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.requestCount, 1)
	if s.failed(w, r) {
		return
	}
	if r.URL.Path != "/api/v1/feed/user/"+PrimaryUserID+"/" {
		writeJSON(w, http.StatusNotFound, `{"status":"fail","message":"User not found"}`)
		return
	}
	docs := make([]string, 12)
	for i := range docs {
		docs[i] = MediaDoc(300+i, s.primary, int64(1700000000-i*3600))
	}
	writeJSON(w, http.StatusOK, fmt.Sprintf(`{"status":"ok","items":[%s],"next_max_id":null,"more_available":false}`, strings.Join(docs, ",")))
}

// MediaDoc returns a minimal photo document
func MediaDoc(pk int, author string, takenAt int64) string {
	return fmt.Sprintf(`{"pk":%d,"id":"%d_1","taken_at":%d,"media_type":1,"user":{"pk":7,"username":%q}}`, pk, pk, takenAt, author)
}

// FeedItems wraps media documents as timeline feed_items
func FeedItems(docs ...string) string {
	items := make([]string, len(docs))
	for i, d := range docs {
		items[i] = `{"media_or_ad":` + d + `}`
	}
	return "[" + strings.Join(items, ",") + "]"
}

func sendError(w http.ResponseWriter, code int) {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		writeJSON(w, code, `{"status":"fail","message":"login_required"}`)
	case http.StatusNotFound:
		writeJSON(w, code, `{"status":"fail","message":"Page not found"}`)
	case http.StatusTooManyRequests:
		w.Header().Set("Retry-After", "60")
		writeJSON(w, code, `{"status":"fail","message":"Please wait a few minutes before you try again."}`)
	default:
		writeJSON(w, code, `{"status":"fail","message":"Internal server error"}`)
	}
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

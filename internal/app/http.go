package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mohamedzameer33/blogapp/internal/auth"
	"github.com/mohamedzameer33/blogapp/internal/search"
	"github.com/mohamedzameer33/blogapp/internal/session"
	"github.com/mohamedzameer33/blogapp/internal/store"
)

// maxImageBytes caps a post image upload.
const maxImageBytes = 8 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

func NewHTTPServer(service *Service, corsOrigin string, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// CORS for the browser client is enforced at the HTTP
			// layer; tokens are checked per subscription.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := map[string]any{"store": map[string]any{"status": "ok"}}
		if err := s.service.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks["store"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, status, map[string]any{"ok": status == http.StatusOK, "checks": checks})
		return
	}

	// Auth routes, no session required.
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleSignUp(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleSignIn(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		s.handleRefresh(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		s.handleLogout(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		principal, err := s.service.SessionFromToken(r.Context(), bearerToken(r))
		if err != nil || principal == nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "user": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": principal})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "ws":
		s.handleWebsocket(w, r, parts[2:])
	case "posts":
		s.handlePosts(w, r, parts[2:])
	case "users":
		s.handleUsers(w, r, parts[2:])
	case "profile":
		s.handleProfile(w, r, parts[2:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// Auth handlers

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.SignUp(r.Context(), body.Email, body.Password, body.DisplayName)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
			return
		}
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			writeError(w, http.StatusUnauthorized, "BAD_CREDENTIALS", "Invalid email or password", nil)
			return
		}
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.Logout(r.Context(), bearerToken(r), body.RefreshToken); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Post and comment handlers

func (s *HTTPServer) handlePosts(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		posts, err := s.service.ListPosts(r.Context())
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"posts": posts})

	case len(parts) == 0 && r.Method == http.MethodPost:
		principal, ok := s.requirePrincipal(w, r)
		if !ok {
			return
		}
		input, err := decodePostInput(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		post, err := s.service.CreatePost(r.Context(), principal, input)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, post)

	case len(parts) == 1 && r.Method == http.MethodGet:
		post, err := s.service.GetPost(r.Context(), parts[0])
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, post)

	case len(parts) == 1 && r.Method == http.MethodPut:
		principal, ok := s.requirePrincipal(w, r)
		if !ok {
			return
		}
		input, err := decodePostInput(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		post, err := s.service.UpdatePost(r.Context(), principal, parts[0], input)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, post)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		principal, ok := s.requirePrincipal(w, r)
		if !ok {
			return
		}
		if err := s.service.DeletePost(r.Context(), principal, parts[0]); err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(parts) >= 2 && parts[1] == "comments":
		s.handleComments(w, r, parts[0], parts[2:])

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleComments(w http.ResponseWriter, r *http.Request, postID string, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		comments, err := s.service.ListComments(r.Context(), postID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": comments})

	case len(parts) == 0 && r.Method == http.MethodPost:
		principal, ok := s.requirePrincipal(w, r)
		if !ok {
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.CreateComment(r.Context(), principal, postID, body.Text)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, comment)

	case len(parts) == 1 && r.Method == http.MethodPut:
		principal, ok := s.requirePrincipal(w, r)
		if !ok {
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.UpdateComment(r.Context(), principal, postID, parts[0], body.Text)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, comment)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		principal, ok := s.requirePrincipal(w, r)
		if !ok {
			return
		}
		if err := s.service.DeleteComment(r.Context(), principal, postID, parts[0]); err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// Admin user handlers

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request, parts []string) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		users, err := s.service.ListUsers(r.Context(), principal)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})

	case len(parts) == 2 && parts[1] == "verification" && r.Method == http.MethodPut:
		var body struct {
			IsVerified bool `json:"isVerified"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		user, err := s.service.SetVerification(r.Context(), principal, parts[0], body.IsVerified)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteUser(r.Context(), principal, parts[0]); err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		profile, err := s.service.Profile(r.Context(), principal)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var body struct {
			DisplayName string `json:"displayName"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		profile, err := s.service.UpdateProfile(r.Context(), principal, body.DisplayName)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := search.Query{
		Text:   strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}
	if q.Text == "" {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "q is required", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.service.SearchPosts(q))
}

// Live subscription endpoints. The browser opens a websocket per view:
// /api/ws/posts for the feed, /api/ws/posts/{id}/comments under an open
// post. Each delivery is a full snapshot, not a diff.

func (s *HTTPServer) handleWebsocket(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	switch {
	case len(parts) == 1 && parts[0] == "posts":
		s.streamSnapshots(w, r, func(ctx context.Context, send func(any), fail func(error)) {
			s.service.WatchPosts(ctx,
				func(snap PostsSnapshot) { send(snap) },
				fail,
			)
		})
	case len(parts) == 3 && parts[0] == "posts" && parts[2] == "comments":
		postID := parts[1]
		s.streamSnapshots(w, r, func(ctx context.Context, send func(any), fail func(error)) {
			s.service.WatchComments(ctx, postID,
				func(snap CommentsSnapshot) { send(snap) },
				fail,
			)
		})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// streamSnapshots upgrades the connection and pumps snapshots until the
// client disconnects or the subscription reports an error. A writeMu
// guards the connection: comment snapshots arrive from join goroutines.
func (s *HTTPServer) streamSnapshots(
	w http.ResponseWriter,
	r *http.Request,
	subscribe func(ctx context.Context, send func(any), fail func(error)),
) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var writeMu sync.Mutex
	send := func(payload any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(map[string]any{"type": "snapshot", "data": payload}); err != nil {
			cancel()
		}
	}
	fail := func(err error) {
		status, code, message, _ := mapError(err)
		writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		_ = conn.WriteJSON(map[string]any{"type": "error", "code": code, "error": message, "status": status})
		writeMu.Unlock()
		cancel()
	}

	subscribe(ctx, send, fail)

	// Read loop: the client sends nothing meaningful, reads only
	// surface the close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	_ = conn.Close()
}

// Helpers

func (s *HTTPServer) requirePrincipal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return nil, false
	}
	principal, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return nil, false
	}
	return principal, true
}

func (s *HTTPServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}

		// Websocket upgrades need the raw ResponseWriter: the recorder
		// does not implement http.Hijacker.
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// decodePostInput reads a post mutation. Multipart carries the image
// file alongside title and content; a JSON body carries text only.
func decodePostInput(r *http.Request) (PostInput, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			return PostInput{}, fmt.Errorf("invalid multipart body")
		}
		input := PostInput{
			Title:   r.FormValue("title"),
			Content: r.FormValue("content"),
		}
		file, header, err := r.FormFile("image")
		if err == nil {
			defer file.Close()
			data, readErr := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
			if readErr != nil {
				return PostInput{}, fmt.Errorf("read image: %w", readErr)
			}
			if len(data) > maxImageBytes {
				return PostInput{}, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
			}
			input.Image = data
			input.ImageContentType = header.Header.Get("Content-Type")
		}
		return input, nil
	}

	var body struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		return PostInput{}, err
	}
	return PostInput{Title: body.Title, Content: body.Content}, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrUnavailable) {
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Content store unavailable", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, auth.ErrBadCredentials) {
		return http.StatusUnauthorized, "BAD_CREDENTIALS", "Invalid email or password", nil
	}
	if errors.Is(err, auth.ErrEmailTaken) {
		return http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil
	}
	if errors.Is(err, session.ErrNotFound) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

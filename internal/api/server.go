// Package api exposes the storage gateway over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/auth"
	"github.com/bytevault/bytevault/internal/events"
	"github.com/bytevault/bytevault/internal/gateway"
	"github.com/bytevault/bytevault/internal/logging"
	"github.com/bytevault/bytevault/internal/metrics"
	"github.com/bytevault/bytevault/internal/policy"
	"github.com/bytevault/bytevault/internal/protocol"
	"github.com/bytevault/bytevault/internal/vfs"
)

var rangeRegex = regexp.MustCompile(`bytes=(\d*)-(\d*)`)

// RootSource supplies the current storage root for an account. Backed by
// the accounts table; fronted by the root cache.
type RootSource interface {
	GetStoragePath(ctx context.Context, accountID int) (string, error)
}

// Server wires the gateway, policy gate, auth, and event broadcaster into
// an HTTP handler.
type Server struct {
	gateway     *gateway.Gateway
	gate        *policy.Gate
	auth        *auth.Auth
	settings    account.SettingsService
	roots       RootSource
	rootCache   *vfs.RootCache
	broadcaster *events.Broadcaster
}

// NewServer creates a new server.
func NewServer(
	gw *gateway.Gateway,
	gate *policy.Gate,
	authHandler *auth.Auth,
	settings account.SettingsService,
	roots RootSource,
	rootCache *vfs.RootCache,
	broadcaster *events.Broadcaster,
) *Server {
	return &Server{
		gateway:     gw,
		gate:        gate,
		auth:        authHandler,
		settings:    settings,
		roots:       roots,
		rootCache:   rootCache,
		broadcaster: broadcaster,
	}
}

// Handler returns the HTTP handler with auth, logging, and metrics
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/auth/token", s.auth.HandleLogin)

	mux.HandleFunc("GET /api/v1/list", s.handleList)
	mux.HandleFunc("GET /api/v1/serve", s.handleServe)
	mux.HandleFunc("POST /api/v1/upload", s.handleUpload)
	mux.HandleFunc("POST /api/v1/mkdir", s.handleMkdir)
	mux.HandleFunc("POST /api/v1/delete", s.handleDelete)
	mux.HandleFunc("POST /api/v1/move", s.handleMove)
	mux.HandleFunc("POST /api/v1/move-cross", s.handleCrossMove)
	mux.HandleFunc("GET /api/v1/usage", s.handleUsage)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)

	return metrics.Middleware(logging.Middleware(s.auth.Middleware(mux)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": "1.0"})
}

// session resolves the request's session with the current storage root
// swapped in. Returns nil when the request is unauthenticated.
func (s *Server) session(r *http.Request) (*account.Session, error) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		return nil, nil
	}
	root, ok := s.rootCache.Get(sess.AccountID)
	if !ok {
		var err error
		root, err = s.roots.GetStoragePath(r.Context(), sess.AccountID)
		if err != nil {
			return nil, err
		}
		s.rootCache.Put(sess.AccountID, root)
	}
	sess.StoragePath = root
	return sess, nil
}

// readSession resolves the session and enforces the read-side policy.
func (s *Server) readSession(w http.ResponseWriter, r *http.Request) (*account.Session, bool) {
	sess, err := s.session(r)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "account lookup failed")
		return nil, false
	}
	snap, err := s.gate.Snapshot(r.Context(), sess)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "policy lookup failed")
		return nil, false
	}
	if err := policy.CheckRead(snap); err != nil {
		s.writeGatewayError(w, r, err)
		return nil, false
	}
	return sess, true
}

// writeSession resolves the session and enforces the write-side policy.
func (s *Server) writeSession(w http.ResponseWriter, r *http.Request) (*account.Session, bool) {
	sess, err := s.session(r)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "account lookup failed")
		return nil, false
	}
	snap, err := s.gate.Snapshot(r.Context(), sess)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "policy lookup failed")
		return nil, false
	}
	if err := policy.CheckWrite(snap); err != nil {
		s.writeGatewayError(w, r, err)
		return nil, false
	}
	return sess, true
}

// ─── Listing ────────────────────────────────────────────────────────────────

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.readSession(w, r)
	if !ok {
		return
	}

	settings, err := s.settings.GetSettings(r.Context(), sess.AccountID)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "settings lookup failed")
		return
	}

	q := r.URL.Query()
	resp, err := s.gateway.List(r.Context(), sess, settings,
		vfs.Category(q.Get("category")), q.Get("path"), q.Get("q"))
	if err != nil {
		s.writeGatewayError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ─── Serving ────────────────────────────────────────────────────────────────

func (s *Server) handleServe(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.readSession(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	res, err := s.gateway.OpenFile(r.Context(), sess, vfs.Category(q.Get("category")), q.Get("path"))
	if err != nil {
		s.writeGatewayError(w, r, err)
		return
	}
	defer res.File.Close()

	totalSize := res.Info.Size()
	etag := fmt.Sprintf(`"%x-%x"`, totalSize, res.Info.ModTime().UnixMilli())
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", res.Info.ModTime().UTC().Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "bytes")

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	ct := mime.TypeByExtension(filepath.Ext(res.Name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)

	offset, length, hasRange := parseRangeHeader(r.Header.Get("Range"), totalSize)

	if hasRange {
		if _, err := res.File.Seek(offset, io.SeekStart); err != nil {
			s.sendError(w, http.StatusInternalServerError, "seek failed")
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, totalSize))
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.Header().Set("Content-Length", strconv.FormatInt(totalSize, 10))
		w.WriteHeader(http.StatusOK)
	}

	n, err := io.CopyN(w, res.File, length)
	if err != nil && err != io.EOF {
		logging.Warn("serve transfer error", zap.String("path", r.URL.Path), zap.Error(err))
	}
	metrics.RecordServe(n, err == nil || err == io.EOF)
}

// parseRangeHeader parses a single byte range against the total size.
// Multi-range requests and malformed headers fall back to a full
// response.
func parseRangeHeader(rangeHeader string, totalSize int64) (offset, length int64, hasRange bool) {
	if rangeHeader == "" || strings.Contains(rangeHeader, ",") {
		return 0, totalSize, false
	}

	matches := rangeRegex.FindStringSubmatch(rangeHeader)
	if matches == nil {
		return 0, totalSize, false
	}

	startStr, endStr := matches[1], matches[2]

	if startStr == "" && endStr != "" {
		// Suffix range: last N bytes
		suffix, _ := strconv.ParseInt(endStr, 10, 64)
		offset = totalSize - suffix
		if offset < 0 {
			offset = 0
		}
		return offset, totalSize - offset, true
	}

	if startStr != "" {
		offset, _ = strconv.ParseInt(startStr, 10, 64)
	}

	if endStr != "" {
		end, _ := strconv.ParseInt(endStr, 10, 64)
		length = end - offset + 1
	} else {
		length = totalSize - offset
	}

	if offset >= totalSize {
		return 0, totalSize, false
	}
	if length <= 0 {
		return 0, totalSize, false
	}
	if offset+length > totalSize {
		length = totalSize - offset
	}

	return offset, length, true
}

// ─── Upload ─────────────────────────────────────────────────────────────────

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.writeSession(w, r)
	if !ok {
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "multipart body required")
		return
	}

	files, category, err := s.gateway.Upload(r.Context(), sess, mr)
	if err != nil {
		s.writeGatewayError(w, r, err)
		return
	}

	for _, f := range files {
		s.publishEvent(sess.AccountID, events.EventUpload, string(category), f.Path, "")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(protocol.UploadResponse{OK: true, Files: files})
}

// ─── Mutations ──────────────────────────────────────────────────────────────

func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.writeSession(w, r)
	if !ok {
		return
	}

	var req protocol.MkdirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.gateway.Mkdir(r.Context(), sess, vfs.Category(req.Category), req.Path); err != nil {
		s.writeGatewayError(w, r, err)
		return
	}

	s.publishEvent(sess.AccountID, events.EventMkdir, req.Category, req.Path, "")
	s.sendOK(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.writeSession(w, r)
	if !ok {
		return
	}

	var req protocol.DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.gateway.Delete(r.Context(), sess, vfs.Category(req.Category), req.Path); err != nil {
		s.writeGatewayError(w, r, err)
		return
	}

	s.publishEvent(sess.AccountID, events.EventDelete, req.Category, req.Path, "")
	s.sendOK(w)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.writeSession(w, r)
	if !ok {
		return
	}

	var req protocol.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.gateway.Move(r.Context(), sess, vfs.Category(req.Category), req.From, req.To); err != nil {
		s.writeGatewayError(w, r, err)
		return
	}

	s.publishEvent(sess.AccountID, events.EventMove, req.Category, req.From, req.To)
	s.sendOK(w)
}

func (s *Server) handleCrossMove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.writeSession(w, r)
	if !ok {
		return
	}

	var req protocol.CrossMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.gateway.CrossMove(r.Context(), sess,
		vfs.Category(req.FromCategory), req.FromPath,
		vfs.Category(req.ToCategory), req.ToPath)
	if err != nil {
		s.writeGatewayError(w, r, err)
		return
	}

	s.publishEvent(sess.AccountID, events.EventMove, req.FromCategory, req.FromPath,
		path.Join(req.ToCategory, req.ToPath))
	s.sendOK(w)
}

// ─── Usage ──────────────────────────────────────────────────────────────────

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.readSession(w, r)
	if !ok {
		return
	}

	resp, err := s.gateway.Usage(r.Context(), sess)
	if err != nil {
		s.writeGatewayError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ─── SSE Events ─────────────────────────────────────────────────────────────

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.readSession(w, r)
	if !ok {
		return
	}

	flusher, ok2 := w.(http.Flusher)
	if !ok2 {
		s.sendError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.broadcaster.Subscribe(sess.AccountID)
	defer s.broadcaster.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-ch:
			if !open {
				return
			}
			data, err := events.MarshalEvent(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

func (s *Server) publishEvent(accountID int, eventType, category, p, to string) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Publish(accountID, events.Event{
		Type:     eventType,
		Category: category,
		Path:     p,
		To:       to,
	})
}

// ─── Error mapping ──────────────────────────────────────────────────────────

// writeGatewayError maps gateway error taxonomy to HTTP statuses. Path
// traversal is logged with full detail but the client sees the same
// response as a missing file.
func (s *Server) writeGatewayError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		s.sendError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, gateway.ErrSuspended):
		s.sendError(w, http.StatusForbidden, "account suspended")
	case errors.Is(err, gateway.ErrVaultLocked):
		s.sendError(w, http.StatusForbidden, "vault lockdown active")
	case errors.Is(err, gateway.ErrPathTraversal):
		metrics.RecordTraversalRejection()
		logging.Warn("path traversal rejected",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("url", r.URL.String()))
		s.sendError(w, http.StatusNotFound, "not found")
	case errors.Is(err, gateway.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "not found")
	case errors.Is(err, gateway.ErrIsDirectory):
		s.sendError(w, http.StatusBadRequest, "target is a directory")
	case errors.Is(err, gateway.ErrConflict):
		s.sendError(w, http.StatusConflict, "destination already exists")
	case errors.Is(err, gateway.ErrQuotaExceeded):
		s.sendError(w, http.StatusRequestEntityTooLarge, "storage quota exceeded")
	case errors.Is(err, gateway.ErrTooLarge):
		s.sendError(w, http.StatusRequestEntityTooLarge, "file exceeds maximum upload size")
	case errors.Is(err, multipart.ErrMessageTooLarge):
		s.sendError(w, http.StatusRequestEntityTooLarge, "request too large")
	default:
		logging.Error("request failed",
			zap.String("url", r.URL.String()), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) sendOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(protocol.OKResponse{OK: true})
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

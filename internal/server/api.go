package server

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/Adenrele/Web-Portfolio/internal/qrcode"
	"github.com/Adenrele/Web-Portfolio/internal/similarity"
)

// API result codes
const (
	ResultOK          = 0
	ResultBadRequest  = 1
	ResultUnavailable = 2
	ResultInternal    = 3
)

const maxUploadSize = 10 << 20

// ErrorResponse is a standard error response for the HTTP API
type ErrorResponse struct {
	ResultCode    int    `json:"ResultCode"`
	ResultMessage string `json:"ResultMessage"`
}

// sendErrorResponse sends an error response with the given code and message
func sendErrorResponse(w http.ResponseWriter, status, code int, message string) {
	resp := ErrorResponse{
		ResultCode:    code,
		ResultMessage: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func sendJSON(w http.ResponseWriter, response map[string]interface{}) {
	response["ResultCode"] = ResultOK
	response["ResultMessage"] = "OK"

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleHealth handles the health check endpoint
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string]interface{}{})
}

// handleQR renders a QR code for the url query parameter and returns the
// image. Unless caching is disabled the image is also kept under static/QR.
// Cached images are named by content; file_name picks the stored name only
// for callers listed in [SRV_HTTPLOGINS].
func (s *HTTPServer) handleQR(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	creator, err := qrcode.NewCreator(q.Get("url"), q.Get("file_name"), q.Get("file_type"))
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, ResultBadRequest, err.Error())
		return
	}

	downloadName := creator.FileName
	contentNamed := creator.FileName == "" || !s.authorized(r)
	if contentNamed {
		creator.FileName = qrcode.CacheName(creator.URL, creator.FileType)
	}
	if downloadName == "" {
		downloadName = creator.FileName
	}

	img, err := creator.Create()
	if err != nil {
		s.logger.Error("Failed to create QR code for %q: %v", creator.URL, err)
		sendErrorResponse(w, http.StatusBadRequest, ResultBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := creator.Encode(&buf, img); err != nil {
		s.logger.Error("Failed to encode QR code: %v", err)
		sendErrorResponse(w, http.StatusInternalServerError, ResultInternal, "failed to encode image")
		return
	}

	if !s.cfg.QR.NoCache {
		s.cacheQR(w, creator, img, contentNamed)
	}

	w.Header().Set("Content-Type", creator.ContentType())
	w.Header().Set("Content-Disposition", `inline; filename="`+downloadName+"."+creator.FileType+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// cacheQR saves img unless a content-named copy is already on disk. Failures
// only cost the cache; the image is still returned.
func (s *HTTPServer) cacheQR(w http.ResponseWriter, creator *qrcode.Creator, img image.Image, contentNamed bool) {
	rel := creator.RelPath()
	if !contentNamed || !creator.Exists(s.cfg.Server.StaticFolder) {
		saved, err := creator.Save(s.cfg.Server.StaticFolder, img)
		if err != nil {
			s.logger.Warning("Failed to save QR code: %v", err)
			return
		}
		s.logger.Info("Saved QR code %s", saved)
		rel = saved
	}
	w.Header().Set("X-QR-Path", "/static/"+rel)
}

// handleSimilarity finds the two users with the most similar activity times.
// The CSV comes either as the multipart field "file" or as the raw body.
func (s *HTTPServer) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var src io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			sendErrorResponse(w, http.StatusBadRequest, ResultBadRequest, "missing file")
			return
		}
		defer file.Close()
		src = file
	}

	result, err := similarity.Compute(src)
	if err != nil {
		s.logger.Warning("Similarity request from %s failed: %v", r.RemoteAddr, err)
		sendErrorResponse(w, http.StatusBadRequest, ResultBadRequest, err.Error())
		return
	}

	sendJSON(w, map[string]interface{}{"Result": result})
}

// handleMessages lists archived contact messages, newest first
func (s *HTTPServer) handleMessages(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		sendErrorResponse(w, http.StatusServiceUnavailable, ResultUnavailable, "message archive is disabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			sendErrorResponse(w, http.StatusBadRequest, ResultBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	messages, err := s.deps.Store.ListMessages(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list messages: %v", err)
		sendErrorResponse(w, http.StatusInternalServerError, ResultInternal, "failed to list messages")
		return
	}

	sendJSON(w, map[string]interface{}{"Messages": messages})
}

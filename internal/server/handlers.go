package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/clobrano/youtubedoc/internal/models"
	"github.com/clobrano/youtubedoc/internal/processor"
	"github.com/clobrano/youtubedoc/internal/youtubeurl"
)

const maxFormBytes = 64 << 10

// Form submissions always request the full transcript in English without comments.
var formOptions = processor.Options{
	MaxTranscriptLength: models.DefaultMaxTranscriptLength,
	IncludeComments:     false,
	Language:            models.DefaultLanguage,
}

type pageData struct {
	Examples     []Example
	VideoURL     string
	VideoID      string
	Result       *processor.Result
	ErrorMessage string
	PublishedURL string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", pageData{Examples: Examples})
}

func (s *Server) handleIndexPost(w http.ResponseWriter, r *http.Request) {
	input := s.formInput(w, r)
	res := s.run(r, input, formOptions)
	s.render(w, http.StatusOK, "index.html", pageData{Examples: Examples, VideoURL: input, Result: &res})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !youtubeurl.IsVideoID(id) {
		s.renderInvalidVideo(w, id)
		return
	}
	data := pageData{VideoURL: youtubeurl.WatchURL(id), VideoID: id}
	if url, ok := s.service.Published(r.Context(), id); ok {
		data.PublishedURL = url
	}
	s.render(w, http.StatusOK, "video.html", data)
}

func (s *Server) handleVideoPost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !youtubeurl.IsVideoID(id) {
		s.renderInvalidVideo(w, id)
		return
	}
	url := youtubeurl.WatchURL(id)
	res := s.run(r, url, formOptions)
	s.render(w, http.StatusOK, "video.html", pageData{VideoURL: url, VideoID: id, Result: &res})
}

// handleWatch mirrors youtube.com/watch?v=ID so swapping the host in a link works.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("v")
	switch {
	case id == "":
		s.render(w, http.StatusOK, "video.html", pageData{})
	case !youtubeurl.IsVideoID(id):
		s.render(w, http.StatusBadRequest, "video.html", pageData{ErrorMessage: processor.MsgInvalidURL})
	default:
		s.render(w, http.StatusOK, "video.html", pageData{VideoURL: youtubeurl.WatchURL(id), VideoID: id})
	}
}

func (s *Server) handleWatchPost(w http.ResponseWriter, r *http.Request) {
	input := s.formInput(w, r)
	res := s.run(r, input, formOptions)
	id, _ := youtubeurl.ExtractVideoID(input)
	s.render(w, http.StatusOK, "video.html", pageData{VideoURL: input, VideoID: id, Result: &res})
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	res := youtubeurl.Recognize(r.URL.Query().Get("url"))
	s.metrics.observeRecognition(res.Valid, res.Pattern)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, youtubeurl.Patterns())
}

type docsRequest struct {
	URL                 string `json:"url"`
	IncludeComments     bool   `json:"include_comments"`
	Language            string `json:"language"`
	MaxTranscriptLength int    `json:"max_transcript_length"`
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	var req docsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	res := s.run(r, req.URL, processor.Options{
		MaxTranscriptLength: req.MaxTranscriptLength,
		IncludeComments:     req.IncludeComments,
		Language:            req.Language,
	})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) run(r *http.Request, input string, opts processor.Options) processor.Result {
	rec := youtubeurl.Recognize(input)
	s.metrics.observeRecognition(rec.Valid, rec.Pattern)

	res := s.service.Run(r.Context(), input, opts)
	s.metrics.observeDocument(res.OK, res.Cached)
	return res
}

func (s *Server) formInput(w http.ResponseWriter, r *http.Request) string {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.PostFormValue("input_text")
}

func (s *Server) renderInvalidVideo(w http.ResponseWriter, id string) {
	s.render(w, http.StatusNotFound, "video.html", pageData{VideoID: id, ErrorMessage: processor.MsgInvalidURL})
}

// render executes into a buffer first so a template error still yields a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("failed to render template", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// limit allows perMinute requests per client IP to next.
func (s *Server) limit(perMinute int, next http.HandlerFunc) http.HandlerFunc {
	l := newRateLimiter(perMinute)
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, s.trustProxy)
		if !l.Allow(ip) {
			s.metrics.limited.WithLabelValues(r.Pattern).Inc()
			s.logger.Warn("rate limit exceeded", slog.String("ip", ip), slog.String("path", r.URL.Path))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: l.message()})
			return
		}
		next(w, r)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

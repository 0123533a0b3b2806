package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/constellation/pkg/buildinfo"
	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/palette"
	"github.com/matzehuels/constellation/pkg/pipeline"
	"github.com/matzehuels/constellation/pkg/render"
	"github.com/matzehuels/constellation/pkg/render/sink"
	"github.com/matzehuels/constellation/pkg/view"
)

const maxClickBody = 64 << 10

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// LayoutResponse is the body of the layout endpoint. Message carries the
// empty state text when the layout has no bubbles.
type LayoutResponse struct {
	constellation.Layout
	MatrixHash string `json:"matrix_hash,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ClickRequest is the body of the click endpoint.
type ClickRequest struct {
	TermID      string `json:"term_id"`
	ThinkerID   string `json:"thinker_id"`
	ThinkerName string `json:"thinker_name"`
}

// ClickResponse echoes the click and names the definition view to open.
type ClickResponse struct {
	ClickRequest
	Target string `json:"target"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, _, err := s.fetch(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := matrix.Marshal(m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeBytes(w, http.StatusOK, "application/json", data)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, hash, err := s.fetch(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.runner.Layout(r.Context(), m, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := LayoutResponse{Layout: l, MatrixHash: hash}
	if l.IsEmpty() {
		resp.Message = constellation.EmptyMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := s.requestOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts.Formats = []render.Format{format}
	if err := opts.ValidateForRender(); err != nil {
		writeError(w, r, err)
		return
	}

	m, _, err := s.fetch(r.Context(), opts)
	if err != nil {
		if format == render.FormatSVG && errors.Is(err, errors.ErrCodeNetwork) {
			writeBytes(w, http.StatusBadGateway, format.ContentType(),
				sink.RenderErrorSVG(opts.Layout.Width, opts.Layout.Height))
			return
		}
		writeError(w, r, err)
		return
	}
	l, err := s.runner.Layout(r.Context(), m, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	artifacts, hit, err := s.runner.RenderWithCacheInfo(r.Context(), l, m, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeBytes(w, http.StatusOK, format.ContentType(), artifacts[format])
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClickBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid click body"))
		return
	}
	if err := errors.ValidateID("term", req.TermID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := errors.ValidateID("thinker", req.ThinkerID); err != nil {
		writeError(w, r, err)
		return
	}

	s.clicksMu.Lock()
	s.clicks.Click(matrix.Bubble{TermID: req.TermID, ThinkerID: req.ThinkerID, ThinkerName: req.ThinkerName})
	s.clicksMu.Unlock()

	s.logger.Debug("bubble clicked", "term_id", req.TermID, "thinker_id", req.ThinkerID)
	writeJSON(w, http.StatusOK, ClickResponse{ClickRequest: req, Target: DefinitionTarget(req.TermID, req.ThinkerID)})
}

// DefinitionTarget is the path of the definition view for a term and thinker.
func DefinitionTarget(termID, thinkerID string) string {
	q := url.Values{}
	q.Set("term_id", termID)
	q.Set("thinker_id", thinkerID)
	return "/definitions?" + q.Encode()
}

// fetch loads the matrix. Anything but a rejected query is reported as the
// fixed load failure.
func (s *Server) fetch(ctx context.Context, opts pipeline.Options) (*matrix.Matrix, string, error) {
	m, hash, _, err := s.runner.FetchWithCacheInfo(ctx, opts)
	if err == nil {
		return m, hash, nil
	}
	if errors.HTTPStatus(err) == http.StatusBadRequest {
		return nil, "", err
	}
	s.logger.Error("matrix fetch failed",
		"folder_id", opts.FolderID,
		"term_id", opts.TermID,
		"err", err)
	return nil, "", errors.Wrap(errors.ErrCodeNetwork, err, constellation.LoadFailedMessage)
}

// requestOptions merges query parameters into the server defaults.
func (s *Server) requestOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.opts.Defaults
	opts.Logger = s.logger
	q := r.URL.Query()

	opts.FolderID = q.Get("folder_id")
	opts.TermID = q.Get("term_id")
	if v := q.Get("color_by"); v != "" {
		mode, err := palette.ParseMode(v)
		if err != nil {
			return opts, err
		}
		opts.ColorMode = mode
	}
	if v := q.Get("kind"); v != "" {
		kind, err := pipeline.ParseKind(v)
		if err != nil {
			return opts, err
		}
		opts.Kind = kind
	}
	if v := q.Get("wheel"); v != "" {
		p, err := view.ParseWheelPolicy(v)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid wheel policy %q", v)
		}
		opts.Wheel = p
	}
	if v := q.Get("title"); v != "" {
		opts.Title = v
	}

	var err error
	if opts.Refresh, err = boolParam(q, "refresh", opts.Refresh); err != nil {
		return opts, err
	}
	legend, err := boolParam(q, "legend", !opts.NoLegend)
	if err != nil {
		return opts, err
	}
	opts.NoLegend = !legend
	if opts.Zoom, err = floatParam(q, "zoom", opts.Zoom); err != nil {
		return opts, err
	}
	if opts.Scale, err = floatParam(q, "scale", opts.Scale); err != nil {
		return opts, err
	}

	if err := opts.ValidateForLayout(); err != nil {
		return opts, err
	}
	return opts, nil
}

func boolParam(q url.Values, name string, def bool) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, errors.New(errors.ErrCodeInvalidInput, "%s must be a boolean", name)
	}
	return b, nil
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def, errors.New(errors.ErrCodeInvalidInput, "%s must be a finite number", name)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeBytes(w, status, "application/json", data)
}

func writeBytes(w http.ResponseWriter, status int, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	resp := ErrorResponse{
		Error:     errors.UserMessage(err),
		Code:      string(errors.GetCode(err)),
		RequestID: chimiddleware.GetReqID(r.Context()),
	}
	if resp.Code == "" {
		resp.Error = http.StatusText(status)
	}
	writeJSON(w, status, resp)
}

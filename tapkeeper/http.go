package tapkeeper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/taptarget/observability"
	"github.com/hazyhaar/taptarget/safeurl"
	"github.com/hazyhaar/taptarget/shield"
)

// maxRequestBody bounds POSTed artifacts.
const maxRequestBody = 8 << 20

// Routes returns the HTTP API. When mcpSrv is non-nil it is also served
// over streamable HTTP at /mcp.
//
//	GET  /health
//	POST /api/evaluate   {"page_url", "artifacts"}
//	POST /api/audit      {"url"}
//	GET  /api/runs       ?page_url=&limit=
//	GET  /api/runs/{id}
//	GET  /api/stats
//	GET  /api/metrics    ?name=&since_ms=&limit=
func (k *Keeper) Routes(mcpSrv *mcp.Server) http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.APIStack(k.logger, maxRequestBody) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/evaluate", func(w http.ResponseWriter, req *http.Request) {
			var body evaluateRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("decode: %w", err))
				return
			}
			resp, err := k.evaluateEndpoint()(req.Context(), &body)
			respond(w, http.StatusCreated, resp, err)
		})

		r.Post("/audit", func(w http.ResponseWriter, req *http.Request) {
			var body auditURLRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("decode: %w", err))
				return
			}
			resp, err := k.auditURLEndpoint()(req.Context(), &body)
			respond(w, http.StatusCreated, resp, err)
		})

		r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			resp, err := k.listRunsEndpoint()(req.Context(), &listRunsRequest{
				PageURL: q.Get("page_url"),
				Limit:   queryInt(req, "limit", 0),
			})
			respond(w, http.StatusOK, resp, err)
		})

		r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			resp, err := k.getRunEndpoint()(req.Context(), &getRunRequest{ID: chi.URLParam(req, "id")})
			respond(w, http.StatusOK, resp, err)
		})

		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			resp, err := k.statsEndpoint()(req.Context(), &statsRequest{})
			respond(w, http.StatusOK, resp, err)
		})

		r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
			k.metrics.Flush()
			since := time.UnixMilli(int64(queryInt(req, "since_ms", 0)))
			ms, err := k.metrics.Query(req.Context(), req.URL.Query().Get("name"), since, queryInt(req, "limit", 100))
			if ms == nil {
				ms = []observability.Metric{}
			}
			respond(w, http.StatusOK, ms, err)
		})
	})

	if mcpSrv != nil {
		h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil)
		r.Handle("/mcp", h)
		r.Handle("/mcp/*", h)
	}
	return r
}

func respond(w http.ResponseWriter, code int, resp any, err error) {
	switch {
	case err == nil:
		writeJSON(w, code, resp)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, errInvalid), errors.Is(err, safeurl.ErrBlocked):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

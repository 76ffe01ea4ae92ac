package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/matthieu-foucault/metabase/internal/compiler"
	"github.com/matthieu-foucault/metabase/internal/dialect"
	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/mbqlerrors"
	"github.com/matthieu-foucault/metabase/internal/metadata"
)

// Handler serves the compiler's HTTP surface: MBQL in, native SQL out,
// plus a readiness probe over the metadata cache. Grounded on the
// teacher's Handler, which the same way wraps a cache and dispatches on
// gorilla/mux path variables, with the object-store query builder swapped
// for the registry/cache/compiler trio this spec defines.
type Handler struct {
	registry *dialect.Registry
	cache    *metadata.Cache
	debug    bool
}

func New(registry *dialect.Registry, cache *metadata.Cache, debug bool) *Handler {
	return &Handler{registry: registry, cache: cache, debug: debug}
}

type compileRequest struct {
	Dialect string          `json:"dialect"`
	Query   json.RawMessage `json:"query"`
}

type compileResponse struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// Compile handles POST /api/mbql/{dialect}/compile. The request body
// carries the MBQL outer-query envelope; the response is the compiled
// SQL text plus its bound parameter vector, ready for a caller to hand
// straight to a database/sql-style execute call.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "Malformed request body", err.Error())
		return
	}
	if dialectID := mux.Vars(r)["dialect"]; dialectID != "" {
		req.Dialect = dialectID
	}

	outer, err := mbql.ParseOuterQuery(req.Query)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", "Malformed MBQL query", err.Error())
		return
	}

	sqlText, params, err := compiler.CompileNative(h.registry, req.Dialect, metadata.NewScoped(h.cache), outer, h.debug)
	if err != nil {
		writeCompileError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, compileResponse{SQL: sqlText, Params: params})
}

// writeCompileError maps each mbqlerrors kind to the HTTP status the
// client should react to: a malformed or unsatisfiable query is the
// caller's fault (400), a dangling metadata reference is a 404 (the
// table/field the query names no longer exists), and a formatting
// failure inside the compiler itself is the server's fault (500).
func writeCompileError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *mbqlerrors.UnknownExpression:
		writeError(w, r, http.StatusBadRequest, "UNKNOWN_EXPRESSION", e.Error(), "")
	case *mbqlerrors.UnknownAggregationIndex:
		writeError(w, r, http.StatusBadRequest, "UNKNOWN_AGGREGATION_INDEX", e.Error(), "")
	case *mbqlerrors.MissingJoinInfo:
		writeError(w, r, http.StatusBadRequest, "MISSING_JOIN_INFO", e.Error(), "")
	case *mbqlerrors.InvalidInnerQuery:
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", e.Error(), "")
	case *mbqlerrors.MetadataMiss:
		writeError(w, r, http.StatusNotFound, "METADATA_NOT_FOUND", e.Error(), "")
	case *mbqlerrors.SqlFormatError:
		writeError(w, r, http.StatusInternalServerError, "SQL_FORMAT_ERROR", "Failed to format compiled SQL", e.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Compilation failed", err.Error())
	}
}

// Health handles GET /healthz, reporting whether the metadata cache has
// loaded at least one table.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.cache.Count() == 0 {
		writeError(w, r, http.StatusServiceUnavailable, "CACHE_EMPTY", "Metadata cache not loaded", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

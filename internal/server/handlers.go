package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/leapstack-labs/sqllineage/pkg/analyzer"
	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// maxBodyBytes caps a request body.
const maxBodyBytes = 1 << 20

// QueryRequest is the body shared by every analysis endpoint.
type QueryRequest struct {
	Query        string            `json:"query"`
	Dialect      string            `json:"dialect"`
	TableMapping map[string]string `json:"table_mapping,omitempty"`
	Limit        *int64            `json:"limit,omitempty"`
	Schema       lineage.Schema    `json:"schema,omitempty"`
}

// TablesResponse is returned by /v1/tables.
type TablesResponse struct {
	Tables []string `json:"tables"`
	Error  string   `json:"error,omitempty"`
}

// SingleSelectResponse is returned by /v1/single-select.
type SingleSelectResponse struct {
	IsSingleSelect bool   `json:"is_single_select"`
	Error          string `json:"error,omitempty"`
}

// QueryResponse is returned by /v1/rename and /v1/limit.
type QueryResponse struct {
	Query string `json:"query"`
	Error string `json:"error,omitempty"`
}

// LineageResponse is returned by /v1/lineage.
type LineageResponse struct {
	analyzer.Lineage
	Error string `json:"error,omitempty"`
}

// DialectsResponse is returned by /v1/dialects.
type DialectsResponse struct {
	Dialects []string `json:"dialects"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleDialects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DialectsResponse{Dialects: dialect.List()})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	tables, err := s.analyzer.GetTables(r.Context(), req.Query, req.Dialect)
	resp := TablesResponse{Tables: tables}
	if err != nil {
		resp = TablesResponse{Tables: []string{}, Error: s.failure(r, err)}
	}
	if resp.Tables == nil {
		resp.Tables = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSingleSelect(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	single, err := s.analyzer.IsSingleSelect(r.Context(), req.Query, req.Dialect)
	resp := SingleSelectResponse{IsSingleSelect: single}
	if err != nil {
		resp = SingleSelectResponse{Error: s.failure(r, err)}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	out, err := s.analyzer.RenameTables(r.Context(), req.Query, req.Dialect, req.TableMapping)
	resp := QueryResponse{Query: out}
	if err != nil {
		resp = QueryResponse{Error: s.failure(r, err)}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLimit(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if req.Limit == nil {
		writeJSON(w, http.StatusOK, QueryResponse{Error: "limit is required"})
		return
	}
	out, err := s.analyzer.AddLimit(r.Context(), req.Query, req.Dialect, *req.Limit)
	resp := QueryResponse{Query: out}
	if err != nil {
		resp = QueryResponse{Error: s.failure(r, err)}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	sc := req.Schema
	if len(sc) == 0 {
		sc = s.Schema()
	}
	res, err := s.analyzer.ColumnLineage(r.Context(), req.Query, req.Dialect, sc)
	if err != nil {
		writeJSON(w, http.StatusOK, LineageResponse{
			Lineage: analyzer.Lineage{
				Columns:            []analyzer.ColumnLineage{},
				NonSelectedColumns: []analyzer.ColumnLineage{},
				Errors:             []string{},
			},
			Error: s.failure(r, err),
		})
		return
	}
	writeJSON(w, http.StatusOK, LineageResponse{Lineage: *res})
}

// decode reads the request body, filling in the default dialect. Malformed
// bodies get a 400 and ok is false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (QueryRequest, bool) {
	var req QueryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log(r).Debug("malformed request", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return req, false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return req, false
	}
	if req.Dialect == "" {
		req.Dialect = s.defaultDialect
	}
	return req, true
}

func (s *Server) failure(r *http.Request, err error) string {
	s.log(r).Debug("request failed", "error", err)
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

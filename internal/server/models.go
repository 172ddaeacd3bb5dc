package server

import (
	"github.com/p-blackswan/code-company/internal/history"
	"github.com/p-blackswan/code-company/internal/memory"
	"github.com/p-blackswan/code-company/internal/search"
)

// ErrorResponse is the envelope for anticipated failures. Domain-level
// failures ship as 200 with status "error"; transport-level ones carry
// the matching HTTP code.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RootResponse is the GET / service banner.
type RootResponse struct {
	Status    string   `json:"status"`
	Company   string   `json:"company"`
	Message   string   `json:"message"`
	Endpoints []string `json:"endpoints"`
}

// SaveResponse confirms a state write.
type SaveResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ReadResponse carries the whole state document.
type ReadResponse struct {
	Status string          `json:"status"`
	Data   memory.Document `json:"data"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse carries search results plus how they were obtained.
type SearchResponse struct {
	Status  string          `json:"status"`
	Query   string          `json:"query"`
	Source  string          `json:"source"`
	Results []search.Result `json:"results"`
}

// DecisionRequest is the optional POST /ceo/decision body. Prompt text
// is appended to the evaluation prompt as extra guidance.
type DecisionRequest struct {
	Prompt string `json:"prompt"`
}

// HistoryResponse carries remote run history, newest first.
type HistoryResponse struct {
	Status  string          `json:"status"`
	Count   int             `json:"count"`
	History []history.Entry `json:"history"`
}

// ProjectsResponse carries the local archive, newest first.
type ProjectsResponse struct {
	Status   string                   `json:"status"`
	Count    int                      `json:"count"`
	Projects []memory.ArchivedProject `json:"projects"`
}

// TestResponse is the GET /api/test connectivity probe reply.
type TestResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse is the readiness probe reply with per-check detail.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

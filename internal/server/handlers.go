package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	apierrors "github.com/p-blackswan/code-company/internal/errors"
	"github.com/p-blackswan/code-company/internal/health"
	"github.com/p-blackswan/code-company/internal/history"
	"github.com/p-blackswan/code-company/internal/memory"
	"github.com/p-blackswan/code-company/internal/search"
	"github.com/p-blackswan/code-company/internal/workflow"
)

// Workflow is the orchestrator surface the handlers drive.
type Workflow interface {
	Discover(ctx context.Context) (workflow.DiscoverResult, error)
	Decide(ctx context.Context, guidance string) (workflow.DecideResult, error)
	Execute(ctx context.Context) (workflow.ExecuteResult, error)
	Run(ctx context.Context, trigger string) (workflow.RunSummary, error)
}

// SearchClient serves ad-hoc search requests.
type SearchClient interface {
	Search(ctx context.Context, query string) ([]search.Result, search.Outcome)
	Provider() string
}

// HistoryFetcher reads remote run history.
type HistoryFetcher interface {
	Enabled() bool
	Fetch(ctx context.Context) ([]history.Entry, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	workflow Workflow
	store    *memory.FileStore
	archive  *memory.Archive
	searcher SearchClient
	history  HistoryFetcher
	checker  *health.Checker
	logger   zerolog.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(
	wf Workflow,
	store *memory.FileStore,
	archive *memory.Archive,
	searcher SearchClient,
	hist HistoryFetcher,
	checker *health.Checker,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		workflow: wf,
		store:    store,
		archive:  archive,
		searcher: searcher,
		history:  hist,
		checker:  checker,
		logger:   logger.With().Str("component", "handlers").Logger(),
	}
}

// Root handles GET /.
func (h *Handlers) Root(c *fiber.Ctx) error {
	return c.JSON(RootResponse{
		Status:  "running",
		Company: "Code Company (Beta)",
		Message: "Autonomous software company backend",
		Endpoints: []string{
			"POST /save",
			"GET /read",
			"GET|POST /search",
			"GET /technical/search",
			"POST /ceo/decision",
			"POST /operations/execute",
			"GET /company/run",
			"GET /company/history",
			"GET /api/projects",
			"GET /api/test",
		},
	})
}

// Save handles POST /save: merges the body keys into the state document.
func (h *Handlers) Save(c *fiber.Ctx) error {
	var incoming map[string]json.RawMessage
	if err := c.BodyParser(&incoming); err != nil || len(incoming) == 0 {
		return errorStatus(c, fiber.StatusBadRequest, apierrors.ErrEmptyBody.Error())
	}

	err := h.store.Update(func(doc memory.Document) error {
		for k, v := range incoming {
			doc[k] = v
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(SaveResponse{Status: "success", Message: "Data saved successfully"})
}

// Read handles GET /read: returns the whole state document.
func (h *Handlers) Read(c *fiber.Ctx) error {
	return c.JSON(ReadResponse{Status: "success", Data: h.store.Load()})
}

// Search handles GET and POST /search. The query comes from ?q= or the
// JSON body; search failures surface as sentinel results, never errors.
func (h *Handlers) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" && c.Method() == fiber.MethodPost {
		var req SearchRequest
		if err := c.BodyParser(&req); err == nil {
			query = req.Query
		}
	}
	if query == "" {
		return errorStatus(c, fiber.StatusBadRequest, apierrors.ErrMissingQuery.Error())
	}

	results, outcome := h.searcher.Search(c.UserContext(), query)

	// Record query metadata in the state document, best effort.
	meta := struct {
		Query     string `json:"query"`
		Source    string `json:"source"`
		Count     int    `json:"results_count"`
		Timestamp string `json:"timestamp"`
	}{query, string(outcome), len(results), time.Now().UTC().Format(time.RFC3339)}
	if err := h.store.Update(func(doc memory.Document) error {
		return doc.Set("last_search", meta)
	}); err != nil {
		h.logger.Warn().Err(err).Msg("search metadata write failed")
	}

	return c.JSON(SearchResponse{
		Status:  "success",
		Query:   query,
		Source:  string(outcome),
		Results: results,
	})
}

// TechnicalSearch handles GET /technical/search: the discovery stage.
func (h *Handlers) TechnicalSearch(c *fiber.Ctx) error {
	res, err := h.workflow.Discover(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// CEODecision handles POST /ceo/decision: the decision stage with an
// optional prompt override in the body.
func (h *Handlers) CEODecision(c *fiber.Ctx) error {
	var req DecisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorStatus(c, fiber.StatusBadRequest, "Invalid request body: "+err.Error())
		}
	}

	res, err := h.workflow.Decide(c.UserContext(), req.Prompt)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// OperationsExecute handles POST /operations/execute. Precondition
// failures (no project, not approved) are domain outcomes, not transport
// errors.
func (h *Handlers) OperationsExecute(c *fiber.Ctx) error {
	res, err := h.workflow.Execute(c.UserContext())
	if err != nil {
		if apierrors.IsPrecondition(err) {
			return c.JSON(ErrorResponse{Status: "error", Message: err.Error()})
		}
		return err
	}
	return c.JSON(res)
}

// CompanyRun handles GET /company/run: the full workflow.
func (h *Handlers) CompanyRun(c *fiber.Ctx) error {
	summary, err := h.workflow.Run(c.UserContext(), "http")
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// CompanyHistory handles GET /company/history.
func (h *Handlers) CompanyHistory(c *fiber.Ctx) error {
	if h.history == nil || !h.history.Enabled() {
		return c.JSON(ErrorResponse{Status: "error", Message: "History storage is not configured"})
	}

	entries, err := h.history.Fetch(c.UserContext())
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return c.JSON(HistoryResponse{Status: "success", Count: len(entries), History: entries})
}

// Projects handles GET /api/projects: the local archive, newest first.
func (h *Handlers) Projects(c *fiber.Ctx) error {
	projects, err := h.archive.List()
	if err != nil {
		return err
	}
	if projects == nil {
		projects = []memory.ArchivedProject{}
	}
	return c.JSON(ProjectsResponse{Status: "success", Count: len(projects), Projects: projects})
}

// APITest handles GET /api/test.
func (h *Handlers) APITest(c *fiber.Ctx) error {
	return c.JSON(TestResponse{
		Status:    "success",
		Message:   "Code Company API is reachable",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.UserContext())
	checks := make(map[string]string, len(results))
	for name, status := range results {
		checks[name] = string(status)
	}

	if !health.Ready(results) {
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(ReadyResponse{Status: "not_ready", Checks: checks})
	}
	return c.JSON(ReadyResponse{Status: "ready", Checks: checks})
}

package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/p-blackswan/code-company/internal/errors"
	"github.com/p-blackswan/code-company/internal/history"
	"github.com/p-blackswan/code-company/internal/memory"
	"github.com/p-blackswan/code-company/internal/search"
)

type stubSearcher struct {
	results []search.Result
	outcome search.Outcome
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]search.Result, search.Outcome) {
	s.queries = append(s.queries, query)
	return s.results, s.outcome
}

func (s *stubSearcher) Provider() string { return "stub" }

type stubProvider struct {
	reply string
	err   error
	calls int
}

func (p *stubProvider) Complete(_ context.Context, _, _ string) (string, error) {
	p.calls++
	return p.reply, p.err
}

type stubHistory struct {
	entries []history.Entry
	err     error
}

func (h *stubHistory) Enabled() bool { return true }

func (h *stubHistory) LogRun(_ context.Context, e history.Entry) error {
	h.entries = append(h.entries, e)
	return h.err
}

type stubNotifier struct {
	summaries []RunSummary
}

func (n *stubNotifier) AnnounceRun(_ context.Context, s RunSummary) error {
	n.summaries = append(n.summaries, s)
	return nil
}

type fixture struct {
	orch     *Orchestrator
	store    *memory.FileStore
	archive  *memory.Archive
	searcher *stubSearcher
	provider *stubProvider
	history  *stubHistory
	notifier *stubNotifier
}

func newFixture(t *testing.T, rules Rules) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		store:    memory.NewFileStore(filepath.Join(dir, "memory.json"), zerolog.Nop()),
		archive:  memory.NewArchive(filepath.Join(dir, "projects.json"), zerolog.Nop()),
		searcher: &stubSearcher{outcome: search.OutcomeMock},
		provider: &stubProvider{},
		history:  &stubHistory{},
		notifier: &stubNotifier{},
	}
	f.orch = NewOrchestrator(
		Config{Rules: rules},
		f.store, f.archive, f.searcher, f.provider, f.history,
		zerolog.Nop(),
	)
	f.orch.SetNotifier(f.notifier)
	return f
}

func (f *fixture) currentProject(t *testing.T) (ProjectRecord, bool) {
	t.Helper()
	var rec ProjectRecord
	ok := f.store.Load().Get("current_project", &rec)
	return rec, ok
}

func (f *fixture) putProject(t *testing.T, rec ProjectRecord) {
	t.Helper()
	require.NoError(t, f.store.Update(func(d memory.Document) error {
		return d.Set("current_project", rec)
	}))
}

func TestDiscoverStoresPendingProject(t *testing.T) {
	f := newFixture(t, DefaultRules())
	f.searcher.results = []search.Result{
		{Title: "Build a CLI task runner", Snippet: "Automate chores", URL: "https://example.com/1"},
		{Title: "Second result", Snippet: "ignored", URL: "https://example.com/2"},
	}

	res, err := f.orch.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "Build a CLI task runner", res.Project.ProjectTitle)
	assert.Equal(t, StatusPendingReview, res.Project.Status)

	rec, ok := f.currentProject(t)
	require.True(t, ok)
	assert.Equal(t, "Build a CLI task runner", rec.ProjectTitle)
	assert.Equal(t, "Automate chores", rec.ProblemSummary)
	assert.Equal(t, "https://example.com/1", rec.SourceLink)
	assert.Equal(t, StatusPendingReview, rec.Status)

	var last string
	require.True(t, f.store.Load().Get("last_action", &last))
	assert.Equal(t, "technical_search", last)

	require.Len(t, f.searcher.queries, 1)
	assert.Equal(t, DefaultRules().DiscoveryQuery, f.searcher.queries[0])
}

func TestDiscoverNoResults(t *testing.T) {
	f := newFixture(t, DefaultRules())

	res, err := f.orch.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "error", res.Status)

	_, ok := f.currentProject(t)
	assert.False(t, ok, "nothing should be stored without a result")
}

func TestDecideIdleAutoApproves(t *testing.T) {
	f := newFixture(t, DefaultRules())

	res, err := f.orch.Decide(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DecisionApprove, res.Decision)
	assert.Equal(t, "No active project found. Approving to start new work.", res.Reason)
	assert.Equal(t, "No project", res.ProjectTitle)
	assert.Zero(t, f.provider.calls, "idle approval must not consult the provider")

	rec, ok := f.currentProject(t)
	require.True(t, ok)
	assert.Equal(t, StatusApproved, rec.Status)
}

func TestDecideKeywordFastPath(t *testing.T) {
	f := newFixture(t, DefaultRules())
	f.putProject(t, ProjectRecord{
		ProjectTitle:   "Python Web Scraper",
		ProblemSummary: "Scrape product prices",
		Status:         StatusPendingReview,
	})

	res, err := f.orch.Decide(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DecisionApprove, res.Decision)
	assert.Contains(t, res.Reason, "python")
	assert.Zero(t, f.provider.calls, "keyword match must not consult the provider")

	rec, _ := f.currentProject(t)
	assert.Equal(t, StatusApproved, rec.Status)
}

func TestDecideProviderApproves(t *testing.T) {
	f := newFixture(t, Rules{DiscoveryQuery: "q", ApprovalKeywords: []string{"rust"}})
	f.putProject(t, ProjectRecord{ProjectTitle: "Data pipeline", Status: StatusPendingReview})
	f.provider.reply = `{"decision": "approve", "reason": "Concrete automation work."}`

	res, err := f.orch.Decide(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DecisionApprove, res.Decision)
	assert.Equal(t, "Concrete automation work.", res.Reason)
	assert.Equal(t, 1, f.provider.calls)

	rec, _ := f.currentProject(t)
	assert.Equal(t, StatusApproved, rec.Status)
	assert.Equal(t, DecisionApprove, rec.Decision)
}

func TestDecideProviderRejects(t *testing.T) {
	f := newFixture(t, Rules{DiscoveryQuery: "q"})
	f.putProject(t, ProjectRecord{ProjectTitle: "Philosophy essay", Status: StatusPendingReview})
	f.provider.reply = `{"decision": "reject", "reason": "Not a coding project."}`

	res, err := f.orch.Decide(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DecisionReject, res.Decision)

	rec, _ := f.currentProject(t)
	assert.Equal(t, StatusRejected, rec.Status)
}

func TestDecideDegradedReplyRejects(t *testing.T) {
	f := newFixture(t, Rules{DiscoveryQuery: "q"})
	f.putProject(t, ProjectRecord{ProjectTitle: "Data pipeline", Status: StatusPendingReview})
	f.provider.reply = "Sure! I think you should approve this one."

	res, err := f.orch.Decide(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DecisionReject, res.Decision)
	assert.Equal(t, "No valid JSON detected from model output.", res.Reason)
}

func TestDecideProviderErrorRejects(t *testing.T) {
	f := newFixture(t, Rules{DiscoveryQuery: "q"})
	f.putProject(t, ProjectRecord{ProjectTitle: "Data pipeline", Status: StatusPendingReview})
	f.provider.err = errors.New("upstream unavailable")

	res, err := f.orch.Decide(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DecisionReject, res.Decision)
	assert.Equal(t, "upstream unavailable", res.Reason)

	rec, _ := f.currentProject(t)
	assert.Equal(t, StatusRejected, rec.Status)
}

func TestExecuteWithoutProject(t *testing.T) {
	f := newFixture(t, DefaultRules())

	_, err := f.orch.Execute(context.Background())
	assert.ErrorIs(t, err, apierrors.ErrNoProject)
}

func TestExecuteRequiresApproval(t *testing.T) {
	for _, status := range []Status{StatusPendingReview, StatusRejected, StatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, DefaultRules())
			f.putProject(t, ProjectRecord{ProjectTitle: "Pending work", Status: status})

			_, err := f.orch.Execute(context.Background())
			assert.ErrorIs(t, err, apierrors.ErrNotApproved)
			assert.Zero(t, f.provider.calls)
		})
	}
}

func TestExecuteSuccess(t *testing.T) {
	f := newFixture(t, DefaultRules())
	f.putProject(t, ProjectRecord{ProjectTitle: "Python Web Scraper", Status: StatusApproved})
	f.provider.reply = `{"solution_summary": "A requests-based scraper.",` +
		` "detailed_steps": "Fetch, parse, store.",` +
		` "final_code": "print('hi')",` +
		` "conclusion": "Done."}`

	res, err := f.orch.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "Project executed successfully", res.Message)
	assert.Equal(t, "A requests-based scraper.", res.SolutionSummary)
	assert.Equal(t, "print('hi')", res.FinalCode)

	rec, _ := f.currentProject(t)
	assert.Equal(t, StatusCompleted, rec.Status)
	require.NotNil(t, rec.ExecutionResult)
	assert.Equal(t, "Fetch, parse, store.", rec.ExecutionResult.DetailedSteps)
}

func TestExecuteDegradedReplyKeepsRawText(t *testing.T) {
	f := newFixture(t, DefaultRules())
	f.putProject(t, ProjectRecord{ProjectTitle: "Python Web Scraper", Status: StatusApproved})
	f.provider.reply = "Here is some prose instead of JSON."

	res, err := f.orch.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "Here is some prose instead of JSON.", res.FinalCode)
	assert.Equal(t, "No valid JSON detected from model output.", res.SolutionSummary)
	assert.Equal(t, "Raw text stored instead of structured output.", res.Conclusion)

	rec, _ := f.currentProject(t)
	assert.Equal(t, StatusCompleted, rec.Status)
}

func TestExecuteInvalidJSONSpanKeepsRawText(t *testing.T) {
	f := newFixture(t, DefaultRules())
	f.putProject(t, ProjectRecord{ProjectTitle: "Python Web Scraper", Status: StatusApproved})
	f.provider.reply = `{solution_summary: missing quotes, final_code: print}`

	res, err := f.orch.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, f.provider.reply, res.FinalCode)
	assert.Equal(t, "Partial model response (invalid JSON).", res.SolutionSummary)
	assert.Equal(t, "JSON parsing failed, raw model text used instead.", res.Conclusion)

	rec, _ := f.currentProject(t)
	assert.Equal(t, StatusCompleted, rec.Status)
}

func TestExecuteProviderErrorLeavesProjectApproved(t *testing.T) {
	f := newFixture(t, DefaultRules())
	f.putProject(t, ProjectRecord{ProjectTitle: "Python Web Scraper", Status: StatusApproved})
	f.provider.err = errors.New("timeout")

	res, err := f.orch.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "timeout", res.Message)

	rec, _ := f.currentProject(t)
	assert.Equal(t, StatusApproved, rec.Status, "failed execution must not advance the lifecycle")
}

func TestRunApprovedEndToEnd(t *testing.T) {
	f := newFixture(t, DefaultRules())
	f.searcher.results = []search.Result{
		{Title: "Python CSV deduper", Snippet: "Clean up spreadsheets", URL: "https://example.com/csv"},
	}
	f.provider.reply = `{"solution_summary": "Dedupe with pandas.",` +
		` "detailed_steps": "Load, drop_duplicates, save.",` +
		` "final_code": "import pandas",` +
		` "conclusion": "Works."}`

	summary, err := f.orch.Run(context.Background(), "http")
	require.NoError(t, err)
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, "Code Company (Beta)", summary.Company)
	assert.Equal(t, DecisionApprove, summary.Summary.CEO.Decision)
	assert.Equal(t, "success", summary.Summary.Operations.Status)
	assert.Equal(t, "Python CSV deduper", summary.Summary.Technical.ProjectTitle)

	// Keyword fast path approves, so only the execution call hits the provider.
	assert.Equal(t, 1, f.provider.calls)

	require.Len(t, f.history.entries, 1)
	assert.Equal(t, "Python CSV deduper", f.history.entries[0].ProjectTitle)
	assert.Equal(t, DecisionApprove, f.history.entries[0].CEODecision)
	assert.Equal(t, "success", f.history.entries[0].OperationsStatus)

	archived, err := f.archive.List()
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "Python CSV deduper", archived[0].Title)
	assert.Equal(t, "import pandas", archived[0].DetailsMarkdown)
	assert.NotEmpty(t, archived[0].ID)

	require.Len(t, f.notifier.summaries, 1)
}

func TestRunRejectedSkipsExecution(t *testing.T) {
	f := newFixture(t, Rules{DiscoveryQuery: "anything"})
	f.searcher.results = []search.Result{
		{Title: "Abstract musings", Snippet: "No code here", URL: "https://example.com/a"},
	}
	f.provider.reply = `{"decision": "reject", "reason": "Not actionable."}`

	summary, err := f.orch.Run(context.Background(), "schedule")
	require.NoError(t, err)
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, DecisionReject, summary.Summary.CEO.Decision)
	assert.Equal(t, "skipped", summary.Summary.Operations.Status)
	assert.Equal(t, "Project not approved by CEO.", summary.Details.Operations.Message)

	// The decision call is the only provider round trip.
	assert.Equal(t, 1, f.provider.calls)

	require.Len(t, f.history.entries, 1)
	assert.Equal(t, "skipped", f.history.entries[0].OperationsStatus)

	archived, err := f.archive.List()
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "skipped", archived[0].Status)
}

func TestRunHistoryFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t, DefaultRules())
	f.searcher.results = []search.Result{
		{Title: "Python tidy bot", Snippet: "s", URL: "u"},
	}
	f.provider.reply = `{"solution_summary": "x", "final_code": "y", "conclusion": "z"}`
	f.history.err = errors.New("supabase down")

	summary, err := f.orch.Run(context.Background(), "http")
	require.NoError(t, err)
	assert.Equal(t, "completed", summary.Status)
}

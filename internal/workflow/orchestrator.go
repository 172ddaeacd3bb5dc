package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apierrors "github.com/p-blackswan/code-company/internal/errors"
	"github.com/p-blackswan/code-company/internal/history"
	"github.com/p-blackswan/code-company/internal/llm"
	"github.com/p-blackswan/code-company/internal/memory"
	"github.com/p-blackswan/code-company/internal/metrics"
	"github.com/p-blackswan/code-company/internal/search"
)

// Document keys in the state file.
const (
	currentProjectKey = "current_project"
	lastActionKey     = "last_action"
)

const companyName = "Code Company (Beta)"

// Searcher is the search-provider adapter boundary.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, search.Outcome)
	Provider() string
}

// CompletionProvider is the completion-provider adapter boundary.
type CompletionProvider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// HistoryAppender records run outcomes to the remote history table.
type HistoryAppender interface {
	Enabled() bool
	LogRun(ctx context.Context, e history.Entry) error
}

// RunNotifier announces completed runs to an external channel.
type RunNotifier interface {
	AnnounceRun(ctx context.Context, summary RunSummary) error
}

// Config holds orchestrator settings.
type Config struct {
	Rules            Rules
	DecisionTimeout  time.Duration
	ExecutionTimeout time.Duration
}

// Orchestrator runs the three workflow stages in sequence over the single
// current-project slot. All entry points share one mutex so an HTTP-
// triggered stage can never interleave with a scheduled full run.
type Orchestrator struct {
	mu       sync.Mutex
	cfg      Config
	store    *memory.FileStore
	archive  *memory.Archive
	searcher Searcher
	provider CompletionProvider
	history  HistoryAppender
	notifier RunNotifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewOrchestrator wires the workflow stages together.
func NewOrchestrator(
	cfg Config,
	store *memory.FileStore,
	archive *memory.Archive,
	searcher Searcher,
	provider CompletionProvider,
	hist HistoryAppender,
	logger zerolog.Logger,
) *Orchestrator {
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = 60 * time.Second
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = 90 * time.Second
	}
	if cfg.Rules.DiscoveryQuery == "" {
		cfg.Rules = DefaultRules()
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		archive:  archive,
		searcher: searcher,
		provider: provider,
		history:  hist,
		logger:   logger.With().Str("component", "workflow").Logger(),
	}
}

// SetNotifier attaches an optional run notifier.
func (o *Orchestrator) SetNotifier(n RunNotifier) { o.notifier = n }

// SetMetrics attaches an optional metrics collector.
func (o *Orchestrator) SetMetrics(m *metrics.Metrics) { o.metrics = m }

// Discover runs the discovery stage: search, take the first result, and
// replace the current project slot unconditionally.
func (o *Orchestrator) Discover(ctx context.Context) (DiscoverResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.discover(ctx)
}

func (o *Orchestrator) discover(ctx context.Context) (DiscoverResult, error) {
	start := time.Now()
	defer func() { o.metrics.ObserveStage("discover", time.Since(start).Seconds()) }()

	o.logger.Info().Str("query", o.cfg.Rules.DiscoveryQuery).Msg("discovery stage started")

	results, outcome := o.searcher.Search(ctx, o.cfg.Rules.DiscoveryQuery)
	o.metrics.RecordSearch(string(outcome))
	if len(results) == 0 {
		return DiscoverResult{
			Status:  "error",
			Message: "No results returned from search provider.",
		}, nil
	}

	first := results[0]
	rec := ProjectRecord{
		ProjectTitle:   first.Title,
		ProblemSummary: first.Snippet,
		SourceLink:     first.URL,
		Status:         StatusPendingReview,
	}

	err := o.store.Update(func(doc memory.Document) error {
		if err := doc.Set(currentProjectKey, rec); err != nil {
			return err
		}
		return doc.Set(lastActionKey, "technical_search")
	})
	if err != nil {
		return DiscoverResult{}, err
	}

	o.logger.Info().Str("title", rec.ProjectTitle).Msg("project identified")
	return DiscoverResult{
		Status:  "success",
		Message: "Technical Manager found a project",
		Project: rec,
	}, nil
}

// Decide runs the decision stage. guidance is optional extra instruction
// text appended to the decision prompt.
func (o *Orchestrator) Decide(ctx context.Context, guidance string) (DecideResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.decide(ctx, guidance)
}

func (o *Orchestrator) decide(ctx context.Context, guidance string) (DecideResult, error) {
	start := time.Now()
	defer func() { o.metrics.ObserveStage("decide", time.Since(start).Seconds()) }()

	doc := o.store.Load()
	var rec ProjectRecord
	found := doc.Get(currentProjectKey, &rec)

	var decision, reason string
	switch {
	case !found:
		o.logger.Info().Msg("no current project, approving idle workload")
		decision = DecisionApprove
		reason = "No active project found. Approving to start new work."

	default:
		if kw, ok := o.cfg.Rules.MatchKeyword(rec); ok {
			o.logger.Info().Str("keyword", kw).Msg("keyword match, approved without escalation")
			decision = DecisionApprove
			reason = "The project involves " + kw + " coding — approved."
		} else {
			decision, reason = o.consultProvider(ctx, rec, guidance)
		}
	}

	rec.Decision = decision
	rec.DecisionReason = reason
	if decision == DecisionApprove {
		rec.Status = StatusApproved
	} else {
		rec.Status = StatusRejected
	}

	if err := o.store.Update(func(d memory.Document) error {
		return d.Set(currentProjectKey, rec)
	}); err != nil {
		return DecideResult{}, err
	}

	title := rec.ProjectTitle
	if title == "" {
		title = "No project"
	}
	o.logger.Info().Str("decision", decision).Str("title", title).Msg("decision recorded")
	return DecideResult{
		Status:       "success",
		Decision:     decision,
		Reason:       reason,
		ProjectTitle: title,
	}, nil
}

// consultProvider asks the completion provider for a decision, falling back
// to reject on call failure or unparseable output.
func (o *Orchestrator) consultProvider(ctx context.Context, rec ProjectRecord, guidance string) (string, string) {
	if guidance == "" {
		guidance = o.cfg.Rules.DecisionGuidance
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.DecisionTimeout)
	defer cancel()

	reply, err := o.provider.Complete(callCtx, decisionSystemPrompt, buildDecisionPrompt(rec, guidance))
	if err != nil {
		o.metrics.RecordProviderError("completion", "decide")
		o.logger.Warn().Err(err).Msg("decision provider call failed, rejecting")
		return DecisionReject, err.Error()
	}

	ext := llm.ExtractObject(reply)
	if ext.Degraded {
		o.logger.Warn().Msg("decision reply had no valid JSON, rejecting")
		return DecisionReject, "No valid JSON detected from model output."
	}

	decision := ext.String("decision", DecisionReject)
	reason := ext.String("reason", "No valid reason provided.")
	return decision, reason
}

// Execute runs the execution stage on the approved current project.
// Returns a domain error when no project exists or it is not approved.
func (o *Orchestrator) Execute(ctx context.Context) (ExecuteResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.execute(ctx)
}

func (o *Orchestrator) execute(ctx context.Context) (ExecuteResult, error) {
	start := time.Now()
	defer func() { o.metrics.ObserveStage("execute", time.Since(start).Seconds()) }()

	doc := o.store.Load()
	var rec ProjectRecord
	if !doc.Get(currentProjectKey, &rec) {
		return ExecuteResult{}, apierrors.ErrNoProject
	}
	if rec.Status != StatusApproved {
		return ExecuteResult{}, apierrors.ErrNotApproved
	}

	title := rec.ProjectTitle
	if title == "" {
		title = "Unnamed Project"
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.ExecutionTimeout)
	defer cancel()

	reply, err := o.provider.Complete(callCtx, executionSystemPrompt, buildExecutionPrompt(rec))
	if err != nil {
		o.metrics.RecordProviderError("completion", "execute")
		o.logger.Warn().Err(err).Str("title", title).Msg("execution provider call failed")
		return ExecuteResult{Status: "error", Message: err.Error()}, nil
	}

	var result ExecutionResult
	ext := llm.ExtractObject(reply)
	switch {
	case ext.Degraded && ext.SpanFound:
		result = ExecutionResult{
			SolutionSummary: "Partial model response (invalid JSON).",
			FinalCode:       ext.Raw,
			Conclusion:      "JSON parsing failed, raw model text used instead.",
		}
	case ext.Degraded:
		result = ExecutionResult{
			SolutionSummary: "No valid JSON detected from model output.",
			FinalCode:       ext.Raw,
			Conclusion:      "Raw text stored instead of structured output.",
		}
	default:
		result = ExecutionResult{
			SolutionSummary: ext.String("solution_summary", "No summary provided."),
			DetailedSteps:   ext.String("detailed_steps", ""),
			FinalCode:       ext.String("final_code", "# No code provided."),
			Conclusion:      ext.String("conclusion", "No conclusion provided."),
		}
	}

	rec.ExecutionResult = &result
	rec.Status = StatusCompleted
	if err := o.store.Update(func(d memory.Document) error {
		return d.Set(currentProjectKey, rec)
	}); err != nil {
		return ExecuteResult{}, err
	}

	o.logger.Info().Str("title", title).Msg("project executed")
	return ExecuteResult{
		Status:          "success",
		Message:         "Project executed successfully",
		ProjectTitle:    title,
		SolutionSummary: result.SolutionSummary,
		Conclusion:      result.Conclusion,
		FinalCode:       result.FinalCode,
	}, nil
}

// Run executes the full workflow: discover, decide, execute if approved,
// then best-effort history and archive appends. The trigger label ("http"
// or "schedule") is only used for metrics and logs.
func (o *Orchestrator) Run(ctx context.Context, trigger string) (RunSummary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.logger.Info().Str("trigger", trigger).Msg("full company run started")

	tech, err := o.discover(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	ceo, err := o.decide(ctx, o.cfg.Rules.DecisionGuidance)
	if err != nil {
		return RunSummary{}, err
	}

	var ops ExecuteResult
	if ceo.Decision == DecisionApprove {
		ops, err = o.execute(ctx)
		if err != nil {
			if !apierrors.IsPrecondition(err) {
				return RunSummary{}, err
			}
			ops = ExecuteResult{Status: "error", Message: err.Error()}
		}
	} else {
		ops = ExecuteResult{Status: "skipped", Message: "Project not approved by CEO."}
	}

	o.logRun(ctx, tech, ceo, ops)
	o.archiveRun(tech, ops)

	summary := RunSummary{Status: "completed", Company: companyName}
	summary.Summary.Technical = StageSummary{
		ProjectTitle: orDefault(tech.Project.ProjectTitle, "N/A"),
		Status:       orDefault(string(tech.Project.Status), "N/A"),
	}
	summary.Summary.CEO = StageSummary{
		Decision: orDefault(ceo.Decision, "N/A"),
		Reason:   orDefault(ceo.Reason, "N/A"),
	}
	summary.Summary.Operations = StageSummary{
		Status:  orDefault(ops.Status, "N/A"),
		Message: orDefault(ops.Message, "N/A"),
	}
	summary.Details.Technical = tech
	summary.Details.CEO = ceo
	summary.Details.Operations = ops

	if o.notifier != nil {
		if err := o.notifier.AnnounceRun(ctx, summary); err != nil {
			o.logger.Warn().Err(err).Msg("run announcement failed")
		}
	}

	o.metrics.RecordRun(trigger, orDefault(ceo.Decision, "unknown"))
	o.logger.Info().
		Str("decision", ceo.Decision).
		Str("operations", ops.Status).
		Msg("full company run finished")
	return summary, nil
}

// logRun appends the run outcome to remote history. Failures are logged
// and swallowed; they never affect the run result.
func (o *Orchestrator) logRun(ctx context.Context, tech DiscoverResult, ceo DecideResult, ops ExecuteResult) {
	if o.history == nil || !o.history.Enabled() {
		return
	}
	entry := history.Entry{
		ProjectTitle:     orDefault(tech.Project.ProjectTitle, "N/A"),
		CEODecision:      orDefault(ceo.Decision, "N/A"),
		CEOReason:        orDefault(ceo.Reason, "N/A"),
		OperationsStatus: orDefault(ops.Status, "N/A"),
	}
	if err := o.history.LogRun(ctx, entry); err != nil {
		o.logger.Warn().Err(err).Msg("history logging failed")
	}
}

// archiveRun appends a flattened record to the local archive. Failures are
// logged and swallowed.
func (o *Orchestrator) archiveRun(tech DiscoverResult, ops ExecuteResult) {
	if o.archive == nil {
		return
	}
	title := ops.ProjectTitle
	if title == "" {
		title = tech.Project.ProjectTitle
	}
	rec := memory.ArchivedProject{
		ID:              uuid.New().String(),
		Title:           orDefault(title, "Untitled Project"),
		Summary:         ops.SolutionSummary,
		DetailsMarkdown: ops.FinalCode,
		Status:          orDefault(ops.Status, "unknown"),
		ExecutedAt:      time.Now().UTC(),
		Source:          tech.Project.SourceLink,
	}
	if err := o.archive.Append(rec); err != nil {
		o.logger.Warn().Err(err).Msg("archive append failed")
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Package workflow implements the three-stage company pipeline:
// discovery (technical), decision (ceo) and execution (operations),
// threading a single current-project record through each stage.
package workflow

// Status is the lifecycle state of a project record. Transitions are
// strictly forward: PendingReview → Approved|Rejected → Completed, with
// Completed only reachable from Approved.
type Status string

const (
	StatusPendingReview Status = "Pending CEO Review"
	StatusApproved      Status = "Approved"
	StatusRejected      Status = "Rejected"
	StatusCompleted     Status = "Completed"
)

// Decision values produced by the decision stage.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// ExecutionResult is the structured output of the execution stage.
type ExecutionResult struct {
	SolutionSummary string `json:"solution_summary"`
	DetailedSteps   string `json:"detailed_steps"`
	FinalCode       string `json:"final_code"`
	Conclusion      string `json:"conclusion"`
}

// ProjectRecord is the unit of work held in the current-project slot.
type ProjectRecord struct {
	ProjectTitle    string           `json:"project_title"`
	ProblemSummary  string           `json:"problem_summary"`
	SourceLink      string           `json:"source_link"`
	Status          Status           `json:"status"`
	Decision        string           `json:"ceo_decision,omitempty"`
	DecisionReason  string           `json:"ceo_reason,omitempty"`
	ExecutionResult *ExecutionResult `json:"operations_result,omitempty"`
}

// DiscoverResult is the discovery stage outcome.
type DiscoverResult struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Project ProjectRecord `json:"project"`
}

// DecideResult is the decision stage outcome.
type DecideResult struct {
	Status       string `json:"status"`
	Decision     string `json:"decision"`
	Reason       string `json:"reason"`
	ProjectTitle string `json:"project_title"`
}

// ExecuteResult is the execution stage outcome.
type ExecuteResult struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	ProjectTitle    string `json:"project_title,omitempty"`
	SolutionSummary string `json:"solution_summary,omitempty"`
	Conclusion      string `json:"conclusion,omitempty"`
	FinalCode       string `json:"final_code,omitempty"`
}

// StageSummary is the condensed per-stage view in a run summary.
type StageSummary struct {
	ProjectTitle string `json:"project_title,omitempty"`
	Status       string `json:"status,omitempty"`
	Decision     string `json:"decision,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Message      string `json:"message,omitempty"`
}

// RunSummary is the full-workflow response. Status is "completed" whenever
// the orchestrator itself survives, even if a sub-stage degraded or was
// skipped.
type RunSummary struct {
	Status  string `json:"status"`
	Company string `json:"company"`
	Summary struct {
		Technical  StageSummary `json:"technical"`
		CEO        StageSummary `json:"ceo"`
		Operations StageSummary `json:"operations"`
	} `json:"summary"`
	Details struct {
		Technical  DiscoverResult `json:"technical"`
		CEO        DecideResult   `json:"ceo"`
		Operations ExecuteResult  `json:"operations"`
	} `json:"details"`
}

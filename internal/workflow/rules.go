package workflow

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules is the optional company.yaml configuration: what the discovery
// stage searches for and which keywords let the decision stage approve a
// project without consulting the completion provider.
type Rules struct {
	// DiscoveryQuery is the fixed search used by the discovery stage.
	DiscoveryQuery string `yaml:"discovery_query"`

	// ApprovalKeywords auto-approve a project when any of them appears in
	// the title or summary (case-insensitive substring match).
	ApprovalKeywords []string `yaml:"approval_keywords"`

	// DecisionGuidance is extra instruction text appended to the decision
	// prompt on full runs.
	DecisionGuidance string `yaml:"decision_guidance"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		DiscoveryQuery:   "interesting Python automation project ideas OR open source Python projects to build",
		ApprovalKeywords: []string{"python"},
		DecisionGuidance: "Approve only Python or automation-based projects",
	}
}

// LoadRules reads a YAML rules file, expanding env vars in values. An empty
// path returns the defaults. Fields left empty in the file keep their
// default value.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}

	var loaded Rules
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(raw))), &loaded); err != nil {
		return rules, fmt.Errorf("parse rules file: %w", err)
	}

	if loaded.DiscoveryQuery != "" {
		rules.DiscoveryQuery = loaded.DiscoveryQuery
	}
	if len(loaded.ApprovalKeywords) > 0 {
		rules.ApprovalKeywords = loaded.ApprovalKeywords
	}
	if loaded.DecisionGuidance != "" {
		rules.DecisionGuidance = loaded.DecisionGuidance
	}
	return rules, nil
}

// MatchKeyword returns the first approval keyword found in the record's
// title or summary, case-insensitive.
func (r Rules) MatchKeyword(rec ProjectRecord) (string, bool) {
	title := strings.ToLower(rec.ProjectTitle)
	summary := strings.ToLower(rec.ProblemSummary)
	for _, kw := range r.ApprovalKeywords {
		k := strings.ToLower(kw)
		if k == "" {
			continue
		}
		if strings.Contains(title, k) || strings.Contains(summary, k) {
			return k, true
		}
	}
	return "", false
}

// envVarPattern matches ${VAR_NAME} and $VAR_NAME.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces ${VAR} and $VAR with the corresponding environment
// variable value. Missing vars are replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "${")
		name = strings.TrimSuffix(name, "}")
		name = strings.TrimPrefix(name, "$")
		return os.Getenv(name)
	})
}

package triage

import (
	"regexp"
	"strings"
)

// factor is one weighted scoring rule. Factors are independent: each
// checks the issue and either contributes its (possibly negative) weight
// or does not. Keeping them in a flat table makes the scoring auditable
// and lets heuristics be tuned without restructuring control flow.
type factor struct {
	name   string
	weight float64
	check  func(in Input) (bool, string)
}

var (
	stackTracePattern = regexp.MustCompile(`(?m)^\s+at\s+\S+|\bpanic:\s|\bgoroutine \d+|Traceback \(most recent call last\)|^\s*File "[^"]+", line \d+`)
	codeBlockPattern  = regexp.MustCompile("```|(?m)^ {4}\\S")
	versionPattern    = regexp.MustCompile(`\bv?\d+\.\d+(\.\d+)?\b|\bversion[:\s]`)
	envVarPattern     = regexp.MustCompile(`\b[A-Z][A-Z0-9]*(_[A-Z0-9]+)+\b`)
)

// factors is evaluated in order; the order shows up unchanged in the
// result's factors array.
var factors = []factor{
	{
		name:   "bug_label",
		weight: 0.25,
		check: func(in Input) (bool, string) {
			if label := in.hasLabel("bug", "fix", "defect", "regression"); label != "" {
				return true, "label: " + label
			}
			return false, ""
		},
	},
	{
		name:   "error_keywords_in_title",
		weight: 0.15,
		check: func(in Input) (bool, string) {
			title := strings.ToLower(in.Title)
			for _, kw := range []string{"error", "crash", "exception", "panic", "fails", "failure", "broken"} {
				if strings.Contains(title, kw) {
					return true, "title mentions " + kw
				}
			}
			return false, ""
		},
	},
	{
		name:   "stack_trace",
		weight: 0.2,
		check: func(in Input) (bool, string) {
			if stackTracePattern.MatchString(in.Body) {
				return true, "stack trace in body"
			}
			return false, ""
		},
	},
	{
		name:   "reproduction_steps",
		weight: 0.15,
		check: func(in Input) (bool, string) {
			body := strings.ToLower(in.Body)
			for _, phrase := range []string{"steps to reproduce", "to reproduce", "reproduction steps", "repro:"} {
				if strings.Contains(body, phrase) {
					return true, "reproduction steps described"
				}
			}
			return false, ""
		},
	},
	{
		name:   "expected_vs_actual",
		weight: 0.1,
		check: func(in Input) (bool, string) {
			body := strings.ToLower(in.Body)
			if strings.Contains(body, "expected") && strings.Contains(body, "actual") {
				return true, "expected vs actual framing"
			}
			return false, ""
		},
	},
	{
		name:   "code_block",
		weight: 0.05,
		check: func(in Input) (bool, string) {
			if codeBlockPattern.MatchString(in.Body) {
				return true, "code block present"
			}
			return false, ""
		},
	},
	{
		name:   "version_info",
		weight: 0.05,
		check: func(in Input) (bool, string) {
			if versionPattern.MatchString(in.Body) {
				return true, "version info present"
			}
			return false, ""
		},
	},
	{
		name:   "config_question_phrasing",
		weight: -0.15,
		check: func(in Input) (bool, string) {
			text := strings.ToLower(in.Title + " " + in.Body)
			for _, phrase := range []string{"how do i configure", "how to configure", "how do i set up", "how to set up", "what setting", "which setting"} {
				if strings.Contains(text, phrase) {
					return true, "configuration-question phrasing"
				}
			}
			return false, ""
		},
	},
	{
		name:   "question_label",
		weight: -0.15,
		check: func(in Input) (bool, string) {
			if label := in.hasLabel("question", "help", "support", "discussion"); label != "" {
				return true, "label: " + label
			}
			return false, ""
		},
	},
	{
		name:   "env_var_mentions",
		weight: -0.05,
		check: func(in Input) (bool, string) {
			if envVarPattern.MatchString(in.Body) {
				return true, "environment variables mentioned"
			}
			return false, ""
		},
	},
	{
		name:   "feature_label",
		weight: -0.35,
		check: func(in Input) (bool, string) {
			if label := in.hasLabel("feature", "enhancement", "feature-request", "idea"); label != "" {
				return true, "label: " + label
			}
			return false, ""
		},
	},
	{
		name:   "feature_request_phrasing",
		weight: -0.45,
		check: func(in Input) (bool, string) {
			text := strings.ToLower(in.Title + " " + in.Body)
			for _, phrase := range []string{"would be nice", "would be great", "feature request", "please add", "it would help if", "can you add"} {
				if strings.Contains(text, phrase) {
					return true, "feature-request phrasing"
				}
			}
			return false, ""
		},
	},
}

func (in Input) hasLabel(names ...string) string {
	for _, label := range in.Labels {
		l := strings.ToLower(label)
		for _, name := range names {
			if l == name || strings.Contains(l, name) {
				return label
			}
		}
	}
	return ""
}

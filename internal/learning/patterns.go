package learning

import (
	"regexp"
	"sort"
	"strings"

	"signalhub.app/correlator/internal/domain"
)

// fixPattern tags a diff by what its added lines do. The table is ordered
// and declarative so new tags are a row, not a code path.
type fixPattern struct {
	tag      string
	patterns []*regexp.Regexp
}

var fixPatterns = []fixPattern{
	{
		tag: "null-check",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[!=]=\s*nil\b`),
			regexp.MustCompile(`[!=]==\s*(null|undefined)\b`),
			regexp.MustCompile(`\?\.\w`),
			regexp.MustCompile(`\bis\s+(not\s+)?None\b`),
		},
	},
	{
		tag: "error-handling",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bif err != nil\b`),
			regexp.MustCompile(`\btry\s*[{:]`),
			regexp.MustCompile(`\bcatch\b|\bexcept\b`),
			regexp.MustCompile(`\berrors\.(Is|As|New|Join)\b`),
			regexp.MustCompile(`\.catch\(`),
		},
	},
	{
		tag: "type-fix",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bas\s+[A-Za-z_][\w.]*\b`),
			regexp.MustCompile(`\bsatisfies\s`),
			regexp.MustCompile(`\b(strconv|parseInt|parseFloat|Number)\(`),
			regexp.MustCompile(`:\s*[A-Za-z_][\w.]*(\[\])?\s*[=,)]`),
		},
	},
	{
		tag: "async-fix",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bawait\s`),
			regexp.MustCompile(`\basync\s`),
			regexp.MustCompile(`\.then\(`),
			regexp.MustCompile(`\bgo func\(`),
			regexp.MustCompile(`\bsync\.WaitGroup\b|\bPromise\.(all|race|allSettled)\b`),
		},
	},
	{
		tag: "conditional-logic",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^\s*(if|else if|else\b|switch|case)\b`),
		},
	},
	{
		tag: "test-added",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bfunc Test\w`),
			regexp.MustCompile(`\b(Describe|It|test|it|expect|assert)\s*\(`),
		},
	},
	{
		tag: "import-fix",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^\s*import\b`),
			regexp.MustCompile(`^\s*from\s+\S+\s+import\b`),
			regexp.MustCompile(`\brequire\(`),
		},
	},
	{
		tag: "logging",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(log|logger|slog|logging)\.`),
			regexp.MustCompile(`\bconsole\.(log|warn|error|debug)\(`),
		},
	},
}

// DetectPatterns tags a unified diff by scanning only its added lines.
// Tags come back in table order, at most once each.
func DetectPatterns(diff string) []string {
	var added []string
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			added = append(added, strings.TrimPrefix(line, "+"))
		}
	}
	if len(added) == 0 {
		return nil
	}

	var tags []string
	for _, fp := range fixPatterns {
		if matchesAny(fp.patterns, added) {
			tags = append(tags, fp.tag)
		}
	}
	return tags
}

func matchesAny(patterns []*regexp.Regexp, lines []string) bool {
	for _, p := range patterns {
		for _, line := range lines {
			if p.MatchString(line) {
				return true
			}
		}
	}
	return false
}

type subsystemRule struct {
	name     string
	patterns []*regexp.Regexp
}

// subsystems is scanned in order against the full changed-path list; the
// first rule with any matching path wins. More specific rules go first.
var subsystems = []subsystemRule{
	{"tests", []*regexp.Regexp{
		regexp.MustCompile(`_test\.go$`),
		regexp.MustCompile(`\.(test|spec)\.[jt]sx?$`),
		regexp.MustCompile(`(^|/)(tests?|__tests__)/`),
	}},
	{"database", []*regexp.Regexp{
		regexp.MustCompile(`(^|/)(db|database|migrations?|store)/`),
		regexp.MustCompile(`\.sql$`),
	}},
	{"auth", []*regexp.Regexp{
		regexp.MustCompile(`(^|/)(auth|oauth|sessions?)/`),
		regexp.MustCompile(`(^|/)\w*(auth|login|session)\w*\.\w+$`),
	}},
	{"api", []*regexp.Regexp{
		regexp.MustCompile(`(^|/)(api|routes?|handlers?|controllers?)/`),
	}},
	{"frontend", []*regexp.Regexp{
		regexp.MustCompile(`\.(tsx|jsx|vue|svelte|css|scss)$`),
		regexp.MustCompile(`(^|/)(ui|components|frontend|web|pages)/`),
	}},
	{"infra", []*regexp.Regexp{
		regexp.MustCompile(`(^|/)Dockerfile`),
		regexp.MustCompile(`(^|/)(deploy|infra|terraform|helm|\.github)/`),
		regexp.MustCompile(`\.ya?ml$`),
	}},
	{"docs", []*regexp.Regexp{
		regexp.MustCompile(`\.mdx?$`),
		regexp.MustCompile(`(^|/)docs?/`),
	}},
}

// DetectSubsystem maps changed file paths to a subsystem name. No match is
// an empty string, not an error.
func DetectSubsystem(paths []string) string {
	for _, rule := range subsystems {
		for _, p := range rule.patterns {
			for _, path := range paths {
				if p.MatchString(path) {
					return rule.name
				}
			}
		}
	}
	return ""
}

// AggregatePatterns majority-votes fix patterns across retrieved results:
// a tag is kept when it appears in more than half of them. Output is
// ordered most common first, ties alphabetically.
func AggregatePatterns(fixes []domain.SimilarFix) []string {
	if len(fixes) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, f := range fixes {
		seen := make(map[string]bool, len(f.Fix.FixPatterns))
		for _, tag := range f.Fix.FixPatterns {
			if !seen[tag] {
				seen[tag] = true
				counts[tag]++
			}
		}
	}

	var tags []string
	for tag, n := range counts {
		if n*2 > len(fixes) {
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	return tags
}

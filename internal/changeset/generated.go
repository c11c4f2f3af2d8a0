package changeset

import (
	"regexp"
	"sort"
)

// generatedPatterns recognises lock files, vendored trees and code emitted by
// generators. Keys name the reason a path is considered generated.
var generatedPatterns = map[string]*regexp.Regexp{
	"package-lock":     regexp.MustCompile(`(^|/)package-lock\.json$`),
	"yarn-lock":        regexp.MustCompile(`(^|/)yarn\.lock$`),
	"pnpm-lock":        regexp.MustCompile(`(^|/)pnpm-lock\.yaml$`),
	"npm-shrinkwrap":   regexp.MustCompile(`(^|/)npm-shrinkwrap\.json$`),
	"go-sum":           regexp.MustCompile(`(^|/)go\.sum$`),
	"go-work-sum":      regexp.MustCompile(`(^|/)go\.work\.sum$`),
	"vendor":           regexp.MustCompile(`(^|/)vendor/`),
	"node_modules":     regexp.MustCompile(`(^|/)node_modules/`),
	"generated-go":     regexp.MustCompile(`\.(?:pb|pb\.gw|pb\.json|pb\.grpc)\.go$`),
	"generated-client": regexp.MustCompile(`\.generated\.(?:ts|js|py|go|rs|java)$`),
	"snapshots":        regexp.MustCompile(`\.snap$`),
	"lockfiles":        regexp.MustCompile(`\.lock$`),
	"generated-json":   regexp.MustCompile(`\.swagger\.json$`),
	"minified":         regexp.MustCompile(`\.min\.(?:js|css)$`),
}

var generatedReasons = sortedReasons()

func sortedReasons() []string {
	reasons := make([]string, 0, len(generatedPatterns))
	for reason := range generatedPatterns {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}

// IsGenerated reports whether path looks machine generated and, if so, which
// rule matched.
func IsGenerated(path string) (bool, string) {
	if path == "" {
		return false, ""
	}
	for _, reason := range generatedReasons {
		if generatedPatterns[reason].MatchString(path) {
			return true, reason
		}
	}
	return false, ""
}

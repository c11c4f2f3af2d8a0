package githost

import (
	"fmt"
	"strings"

	vcsurl "github.com/gitsight/go-vcsurl"
)

// ParseRepoURL extracts owner and repository name from any common GitHub
// URL form (https, ssh, scp-like or bare host/path).
func ParseRepoURL(raw string) (owner, repo string, err error) {
	info, err := vcsurl.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse repository url %q: %w", raw, err)
	}
	if info.Username == "" || info.Name == "" {
		return "", "", fmt.Errorf("repository url %q has no owner/name", raw)
	}
	return info.Username, info.Name, nil
}

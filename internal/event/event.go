// Package event resolves the GitHub Actions event that triggered a run.
package event

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrUnsupportedEvent marks events that do not trigger a digest. It is
// informational, not a failure.
var ErrUnsupportedEvent = errors.New("unsupported event")

var (
	supportedNames   = map[string]bool{"pull_request": true, "pull_request_target": true}
	supportedActions = map[string]bool{"opened": true, "synchronize": true}
)

type Event struct {
	Name    string
	Action  string
	Owner   string
	Repo    string
	Number  int
	Author  string
	BaseSHA string
	HeadSHA string
}

func (e Event) String() string {
	return fmt.Sprintf("%s/%s#%d (%s.%s)", e.Owner, e.Repo, e.Number, e.Name, e.Action)
}

// Load reads the payload at path. name is the value of GITHUB_EVENT_NAME.
func Load(path, name string) (Event, error) {
	if strings.TrimSpace(path) == "" {
		return Event{}, errors.New("event path is not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Event{}, fmt.Errorf("read event payload: %w", err)
	}
	return Parse(data, name)
}

// Parse extracts the pull request coordinate from an event payload. Events
// outside the supported set return the decoded event together with an error
// wrapping ErrUnsupportedEvent.
func Parse(payload []byte, name string) (Event, error) {
	if !gjson.ValidBytes(payload) {
		return Event{}, errors.New("event payload is not valid JSON")
	}
	root := gjson.ParseBytes(payload)

	name = strings.TrimSpace(name)
	if name == "" && root.Get("pull_request").Exists() {
		name = "pull_request"
	}

	number := root.Get("pull_request.number").Int()
	if number == 0 {
		number = root.Get("number").Int()
	}
	ev := Event{
		Name:    name,
		Action:  root.Get("action").String(),
		Owner:   root.Get("repository.owner.login").String(),
		Repo:    root.Get("repository.name").String(),
		Number:  int(number),
		Author:  root.Get("pull_request.user.login").String(),
		BaseSHA: root.Get("pull_request.base.sha").String(),
		HeadSHA: root.Get("pull_request.head.sha").String(),
	}

	if !supportedNames[ev.Name] {
		return ev, fmt.Errorf("event %q: %w", ev.Name, ErrUnsupportedEvent)
	}
	if !supportedActions[ev.Action] {
		return ev, fmt.Errorf("action %q on %s: %w", ev.Action, ev.Name, ErrUnsupportedEvent)
	}
	if ev.Owner == "" || ev.Repo == "" || ev.Number <= 0 {
		return ev, errors.New("event payload does not identify a pull request")
	}
	return ev, nil
}

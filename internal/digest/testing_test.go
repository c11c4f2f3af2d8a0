package digest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roivaz/pr-digest/internal/llm"
	"github.com/roivaz/pr-digest/internal/logging"
	"github.com/roivaz/pr-digest/internal/prompts"
)

type reply struct {
	text string
	err  error
}

// scriptedGenerator answers calls in order and records each request.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	calls   []llm.Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	i := len(g.calls) - 1
	if i >= len(g.replies) {
		return "", errors.New("unexpected generative call")
	}
	return g.replies[i].text, g.replies[i].err
}

func observedLogger() (logr.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zapr.NewLogger(zap.New(core)), logs
}

func warnings(logs *observer.ObservedLogs) int {
	return logs.FilterField(zap.String("severity", "warning")).Len()
}

func quiet() logging.Logger { return logging.New(logr.Discard()) }

func strategy(t *testing.T, stage prompts.Stage) *prompts.Strategy {
	t.Helper()
	r, err := prompts.Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	s, err := r.Lookup(stage, "")
	if err != nil {
		t.Fatalf("Lookup %s: %v", stage, err)
	}
	return s
}

const goodEvidence = `{
  "timeline": [{"phase": "Logging", "goal": "Trace requests", "changes": ["main.go: add log import"]}],
  "modulesTouched": ["main"],
  "notablePatterns": ["new dependency on log"],
  "validatedChanges": ["main.go imports log"]
}`

const oneFileDiff = `diff --git a/main.go b/main.go
new file mode 100644
index 0000000..1111111
--- /dev/null
+++ b/main.go
@@ -0,0 +1,3 @@
+package main
+import "log"
+func main() { log.Println("hi") }
`

const fiveFileDiff = `diff --git a/cmd/new.go b/cmd/new.go
new file mode 100644
index 0000000..1111111
--- /dev/null
+++ b/cmd/new.go
@@ -0,0 +1,1 @@
+package cmd
diff --git a/docs/guide.md b/docs/guide.md
new file mode 100644
index 0000000..2222222
--- /dev/null
+++ b/docs/guide.md
@@ -0,0 +1,1 @@
+Guide
diff --git a/old/legacy.go b/old/legacy.go
deleted file mode 100644
index 3333333..0000000
--- a/old/legacy.go
+++ /dev/null
@@ -1,1 +0,0 @@
-package old
diff --git a/pkg/a.go b/pkg/b.go
similarity index 90%
rename from pkg/a.go
rename to pkg/b.go
index 4444444..5555555 100644
--- a/pkg/a.go
+++ b/pkg/b.go
@@ -1,2 +1,2 @@
 package pkg
-var x = 1
+var x = 2
diff --git a/main.go b/main.go
index 6666666..7777777 100644
--- a/main.go
+++ b/main.go
@@ -1,2 +1,3 @@
 package main
+import "log"
 func main() {}
`

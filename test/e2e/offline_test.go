package e2e_test

import (
	"strings"
	"testing"

	"github.com/myles/perch/test/e2e"
)

func TestOfflineLikeArmsRetry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	h := e2e.Setup(t)

	out, err := h.PerchA("post", "like me later")
	if err != nil {
		t.Fatalf("alice post: %v\n%s", err, out)
	}
	id := e2e.ExtractPostID(out)
	if id == "" {
		t.Fatalf("no post ID in: %s", out)
	}

	if err := h.StopServer(); err != nil {
		t.Fatalf("stop server: %v", err)
	}

	// The like lands locally and exits zero; the failed call is recorded.
	out, err = h.PerchA("like", id)
	if err != nil {
		t.Fatalf("offline like should exit zero: %v\n%s", err, out)
	}
	if !strings.Contains(out, "server call failed") || !strings.Contains(out, "retry") {
		t.Fatalf("offline like output: %s", out)
	}

	out, err = h.PerchA("status")
	if err != nil {
		t.Fatalf("alice status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "pending retry: react #"+id) {
		t.Fatalf("status missing pending like: %s", out)
	}

	// The armed action is durable in the cache database.
	row, err := h.QueryCache("alice", "SELECT kind, post_id FROM pending_action WHERE id = 1")
	if err != nil {
		t.Fatalf("query cache: %v", err)
	}
	if row != "react|"+id {
		t.Fatalf("pending_action row = %q, want react|%s", row, id)
	}

	if err := h.StartServer(); err != nil {
		t.Fatalf("restart server: %v\n%s", err, h.ServerLogContents())
	}

	out, err = h.PerchA("retry")
	if err != nil {
		t.Fatalf("alice retry: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Replayed react #"+id) {
		t.Fatalf("retry output: %s", out)
	}

	out, err = h.PerchA("status")
	if err != nil {
		t.Fatalf("alice status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Pending: none") {
		t.Fatalf("pending slot not cleared: %s", out)
	}
	row, err = h.QueryCache("alice", "SELECT COUNT(*) FROM pending_action")
	if err != nil {
		t.Fatalf("query cache: %v", err)
	}
	if row != "0" {
		t.Fatalf("pending_action rows after replay = %s, want 0", row)
	}

	// The replayed like reached the server: bob sees the count.
	if out, err = h.PerchB("timeline", "--refresh"); err != nil {
		t.Fatalf("bob refresh: %v\n%s", err, out)
	}
	out, err = h.PerchB("show", id, "--json")
	if err != nil {
		t.Fatalf("bob show: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"likes": 1`) {
		t.Fatalf("like did not reach the server: %s", out)
	}
}

func TestOfflineDeleteRollsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	h := e2e.Setup(t)

	out, err := h.PerchA("post", "doomed post")
	if err != nil {
		t.Fatalf("alice post: %v\n%s", err, out)
	}
	id := e2e.ExtractPostID(out)

	if err := h.StopServer(); err != nil {
		t.Fatalf("stop server: %v", err)
	}

	out, err = h.PerchA("rm", id)
	if err == nil {
		t.Fatalf("offline rm should exit nonzero: %s", out)
	}
	if !strings.Contains(out, "restored") {
		t.Fatalf("offline rm output: %s", out)
	}

	// The optimistic removal was rolled back.
	out, err = h.PerchA("timeline")
	if err != nil {
		t.Fatalf("alice timeline: %v\n%s", err, out)
	}
	if !strings.Contains(out, "doomed post") {
		t.Fatalf("post missing after rollback: %s", out)
	}
	if !strings.Contains(out, "pending retry: delete #"+id) {
		t.Fatalf("timeline missing pending warning: %s", out)
	}

	if err := h.StartServer(); err != nil {
		t.Fatalf("restart server: %v\n%s", err, h.ServerLogContents())
	}

	out, err = h.PerchA("retry")
	if err != nil {
		t.Fatalf("alice retry: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Replayed delete #"+id) {
		t.Fatalf("retry output: %s", out)
	}

	out, err = h.PerchA("timeline")
	if err != nil {
		t.Fatalf("alice timeline: %v\n%s", err, out)
	}
	if strings.Contains(out, "doomed post") {
		t.Fatalf("post still cached after replayed delete: %s", out)
	}
}

func TestOfflinePostKeepsDraft(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	h := e2e.Setup(t)

	if err := h.StopServer(); err != nil {
		t.Fatalf("stop server: %v", err)
	}

	// No optimistic insert: the draft is only recorded for retry.
	out, err := h.PerchA("post", "queued while down")
	if err == nil {
		t.Fatalf("offline post should exit nonzero: %s", out)
	}
	if !strings.Contains(out, "draft was kept") {
		t.Fatalf("offline post output: %s", out)
	}

	out, err = h.PerchA("status")
	if err != nil {
		t.Fatalf("alice status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "pending retry: submit") {
		t.Fatalf("status missing pending submit: %s", out)
	}

	if err := h.StartServer(); err != nil {
		t.Fatalf("restart server: %v\n%s", err, h.ServerLogContents())
	}

	out, err = h.PerchA("retry")
	if err != nil {
		t.Fatalf("alice retry: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Replayed submit") {
		t.Fatalf("retry output: %s", out)
	}

	out, err = h.PerchA("timeline")
	if err != nil {
		t.Fatalf("alice timeline: %v\n%s", err, out)
	}
	if !strings.Contains(out, "queued while down") {
		t.Fatalf("replayed submit not cached: %s", out)
	}
}

func TestServerRestartKeepsFeed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	h := e2e.Setup(t)

	if out, err := h.PerchA("post", "durable post"); err != nil {
		t.Fatalf("alice post: %v\n%s", err, out)
	}

	if err := h.StopServer(); err != nil {
		t.Fatalf("stop server: %v", err)
	}
	if err := h.StartServer(); err != nil {
		t.Fatalf("restart server: %v\n%s", err, h.ServerLogContents())
	}

	out, err := h.PerchB("timeline", "--refresh")
	if err != nil {
		t.Fatalf("bob refresh: %v\n%s", err, out)
	}
	if !strings.Contains(out, "durable post") {
		t.Fatalf("post lost across server restart: %s", out)
	}
}

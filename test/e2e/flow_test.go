package e2e_test

import (
	"strings"
	"testing"

	"github.com/myles/perch/test/e2e"
)

func TestPostLikeDeleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	h := e2e.Setup(t)

	// Alice posts; the canonical copy is cached without a refresh.
	out, err := h.PerchA("post", "hello from alice")
	if err != nil {
		t.Fatalf("alice post: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Posted #") {
		t.Fatalf("post output missing ID: %s", out)
	}
	id := e2e.ExtractPostID(out)
	if id == "" {
		t.Fatalf("no post ID in: %s", out)
	}

	out, err = h.PerchA("timeline")
	if err != nil {
		t.Fatalf("alice timeline: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hello from alice") {
		t.Fatalf("alice timeline missing post: %s", out)
	}

	out, err = h.PerchA("whoami")
	if err != nil {
		t.Fatalf("alice whoami: %v\n%s", err, out)
	}
	if !strings.Contains(out, "alice") {
		t.Fatalf("whoami missing login: %s", out)
	}

	// Bob pulls the head of the feed and sees the post.
	out, err = h.PerchB("timeline", "--refresh")
	if err != nil {
		t.Fatalf("bob refresh: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hello from alice") {
		t.Fatalf("bob timeline missing alice's post: %s", out)
	}

	out, err = h.PerchB("like", id)
	if err != nil {
		t.Fatalf("bob like: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Liked #") {
		t.Fatalf("like output: %s", out)
	}

	// Deleting someone else's post is refused before any server call.
	out, err = h.PerchB("rm", id)
	if err == nil {
		t.Fatalf("bob rm of alice's post should fail: %s", out)
	}
	if !strings.Contains(out, "not yours") {
		t.Fatalf("rm ownership error: %s", out)
	}

	out, err = h.PerchA("show", id, "--raw")
	if err != nil {
		t.Fatalf("alice show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hello from alice") {
		t.Fatalf("show missing content: %s", out)
	}

	out, err = h.PerchA("rm", id)
	if err != nil {
		t.Fatalf("alice rm: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Deleted #") {
		t.Fatalf("rm output: %s", out)
	}

	out, err = h.PerchA("timeline")
	if err != nil {
		t.Fatalf("alice timeline after rm: %v\n%s", err, out)
	}
	if strings.Contains(out, "hello from alice") {
		t.Fatalf("deleted post still listed: %s", out)
	}
}

func TestPostFromStdin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	h := e2e.Setup(t)

	out, err := h.PerchIn("alice", "piped post body\n", "post", "-")
	if err != nil {
		t.Fatalf("alice post from stdin: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Posted #") {
		t.Fatalf("post output: %s", out)
	}

	out, err = h.PerchA("timeline")
	if err != nil {
		t.Fatalf("alice timeline: %v\n%s", err, out)
	}
	if !strings.Contains(out, "piped post body") {
		t.Fatalf("stdin post not cached: %s", out)
	}
}

func TestNewerAndStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	h := e2e.Setup(t)

	if out, err := h.PerchA("post", "first post"); err != nil {
		t.Fatalf("alice post: %v\n%s", err, out)
	}
	if out, err := h.PerchB("timeline", "--refresh"); err != nil {
		t.Fatalf("bob refresh: %v\n%s", err, out)
	}

	if out, err := h.PerchA("post", "second post"); err != nil {
		t.Fatalf("alice post: %v\n%s", err, out)
	}

	// newer picks up only the post bob has not cached yet.
	out, err := h.PerchB("newer")
	if err != nil {
		t.Fatalf("bob newer: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 new post(s) cached") {
		t.Fatalf("newer output: %s", out)
	}

	out, err = h.PerchB("timeline")
	if err != nil {
		t.Fatalf("bob timeline: %v\n%s", err, out)
	}
	if !strings.Contains(out, "second post") {
		t.Fatalf("bob timeline missing new post: %s", out)
	}

	out, err = h.PerchB("status")
	if err != nil {
		t.Fatalf("bob status: %v\n%s", err, out)
	}
	for _, want := range []string{"Server:", "Account: bob", "Cached:", "Pending: none"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status missing %q: %s", want, out)
		}
	}
}

func TestTimelinePaging(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	h := e2e.Setup(t)

	for _, text := range []string{"page post 1", "page post 2", "page post 3", "page post 4", "page post 5"} {
		if out, err := h.PerchA("post", text); err != nil {
			t.Fatalf("alice post: %v\n%s", err, out)
		}
	}

	pageSize := []string{"PERCH_PAGE_SIZE=2"}

	out, err := h.PerchEnv("bob", pageSize, "timeline", "--refresh")
	if err != nil {
		t.Fatalf("bob refresh: %v\n%s", err, out)
	}
	if got := strings.Count(out, "page post"); got != 2 {
		t.Fatalf("head page rows = %d, want 2:\n%s", got, out)
	}

	// The cursor is persisted, so each invocation resumes the walk.
	out, err = h.PerchEnv("bob", pageSize, "timeline", "--older")
	if err != nil {
		t.Fatalf("bob older: %v\n%s", err, out)
	}
	if got := strings.Count(out, "page post"); got != 4 {
		t.Fatalf("after one older page rows = %d, want 4:\n%s", got, out)
	}

	out, err = h.PerchEnv("bob", pageSize, "timeline", "--older")
	if err != nil {
		t.Fatalf("bob older: %v\n%s", err, out)
	}
	if got := strings.Count(out, "page post"); got != 5 {
		t.Fatalf("after two older pages rows = %d, want 5:\n%s", got, out)
	}

	// Past the end the cursor stays put and the walk reports exhaustion.
	out, err = h.PerchEnv("bob", pageSize, "timeline", "--older")
	if err != nil {
		t.Fatalf("bob older at end: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No more posts.") {
		t.Fatalf("expected end of feed marker: %s", out)
	}
}

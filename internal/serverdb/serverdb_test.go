package serverdb

import (
	"errors"
	"strings"
	"testing"
)

func newTestDB(t *testing.T) *ServerDB {
	t.Helper()
	db, err := Open(":memory:", 1)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// --- User tests ---

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)
	u, err := db.CreateUser("Casey", "correct-horse", "Casey A")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Login != "casey" {
		t.Errorf("login not lowercased: %s", u.Login)
	}
	if u.ID == 0 {
		t.Error("expected nonzero user id")
	}
	if u.Name != "Casey A" {
		t.Errorf("unexpected name: %s", u.Name)
	}
}

func TestCreateUserDuplicateLogin(t *testing.T) {
	db := newTestDB(t)
	_, err := db.CreateUser("dup", "correct-horse", "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.CreateUser("DUP", "other-password", "")
	if !errors.Is(err, ErrLoginTaken) {
		t.Fatalf("expected ErrLoginTaken, got %v", err)
	}
}

func TestCreateUserEmptyLogin(t *testing.T) {
	db := newTestDB(t)
	_, err := db.CreateUser("", "correct-horse", "")
	if err == nil {
		t.Fatal("expected error for empty login")
	}
}

func TestCreateUserEmptyPassword(t *testing.T) {
	db := newTestDB(t)
	_, err := db.CreateUser("casey", "", "")
	if err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestGetUserByID(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	found, err := db.GetUserByID(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.ID != u.ID {
		t.Fatal("user not found by id")
	}
}

func TestGetUserByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	found, err := db.GetUserByID(12345)
	if err != nil {
		t.Fatal(err)
	}
	if found != nil {
		t.Fatal("expected nil for missing user")
	}
}

func TestGetUserByLogin(t *testing.T) {
	db := newTestDB(t)
	db.CreateUser("finder", "correct-horse", "")
	found, err := db.GetUserByLogin("FINDER")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.Login != "finder" {
		t.Fatal("user not found by login")
	}
}

func TestVerifyPassword(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")

	verified, err := db.VerifyPassword("Casey", "correct-horse")
	if err != nil {
		t.Fatal(err)
	}
	if verified == nil || verified.ID != u.ID {
		t.Fatal("expected user for correct password")
	}
}

func TestVerifyPasswordWrong(t *testing.T) {
	db := newTestDB(t)
	db.CreateUser("casey", "correct-horse", "")

	verified, err := db.VerifyPassword("casey", "wrong-horse")
	if err != nil {
		t.Fatal(err)
	}
	if verified != nil {
		t.Fatal("expected nil for wrong password")
	}
}

func TestVerifyPasswordUnknownLogin(t *testing.T) {
	db := newTestDB(t)
	verified, err := db.VerifyPassword("nobody", "correct-horse")
	if err != nil {
		t.Fatal(err)
	}
	if verified != nil {
		t.Fatal("expected nil for unknown login")
	}
}

// --- Token tests ---

func TestGenerateAndVerifyToken(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")

	plaintext, tok, err := db.GenerateToken(u.ID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if !strings.HasPrefix(plaintext, "perch_") {
		t.Errorf("unexpected token prefix: %s", plaintext[:8])
	}
	if len(tok.Prefix) != 8 {
		t.Errorf("unexpected prefix length: %d", len(tok.Prefix))
	}

	verifiedTok, verifiedUser, err := db.VerifyToken(plaintext)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verifiedTok == nil || verifiedTok.ID != tok.ID {
		t.Error("token ID mismatch")
	}
	if verifiedUser == nil || verifiedUser.ID != u.ID {
		t.Error("user ID mismatch")
	}
}

func TestVerifyTokenInvalid(t *testing.T) {
	db := newTestDB(t)
	tok, u, err := db.VerifyToken("perch_invalidtokenhere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != nil || u != nil {
		t.Fatal("expected nil result for invalid token")
	}
}

func TestGenerateTokenUnknownUser(t *testing.T) {
	db := newTestDB(t)
	_, _, err := db.GenerateToken(999)
	if err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestRevokeToken(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	plaintext, tok, _ := db.GenerateToken(u.ID)

	if err := db.RevokeToken(tok.ID, u.ID); err != nil {
		t.Fatal(err)
	}

	verifiedTok, _, err := db.VerifyToken(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if verifiedTok != nil {
		t.Fatal("revoked token should not verify")
	}
}

func TestRevokeTokenWrongUser(t *testing.T) {
	db := newTestDB(t)
	u1, _ := db.CreateUser("owner", "correct-horse", "")
	u2, _ := db.CreateUser("other", "correct-horse", "")
	_, tok, _ := db.GenerateToken(u1.ID)

	err := db.RevokeToken(tok.ID, u2.ID)
	if err == nil {
		t.Fatal("expected error revoking another user's token")
	}
}

// --- Post tests ---

func TestCreatePostAndGet(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "Casey A")

	p, err := db.CreatePost(u.ID, "hello perch", "", "")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if p.ID == 0 {
		t.Error("expected nonzero post id")
	}
	if p.Author != "Casey A" {
		t.Errorf("expected display name as author, got %q", p.Author)
	}
	if !p.Mine {
		t.Error("post should be mine for its author")
	}
	if p.Likes != 0 || p.LikedByMe {
		t.Error("new post should have no likes")
	}
	if p.Published.IsZero() {
		t.Error("published time should be set")
	}
}

func TestCreatePostAuthorFallsBackToLogin(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")

	p, err := db.CreatePost(u.ID, "no display name", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Author != "casey" {
		t.Errorf("expected login as author, got %q", p.Author)
	}
}

func TestCreatePostEmptyContent(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	_, err := db.CreatePost(u.ID, "   ", "", "")
	if err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestCreatePostWithAttachment(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")

	p, err := db.CreatePost(u.ID, "look at this", "/media/abc.png", "image")
	if err != nil {
		t.Fatal(err)
	}
	if p.Attachment == nil {
		t.Fatal("expected attachment")
	}
	if p.Attachment.URL != "/media/abc.png" || string(p.Attachment.Type) != "image" {
		t.Errorf("attachment mismatch: %+v", p.Attachment)
	}
}

func TestGetPostNotFound(t *testing.T) {
	db := newTestDB(t)
	p, err := db.GetPost(12345, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatal("expected nil for missing post")
	}
}

func TestGetPostViewerRelative(t *testing.T) {
	db := newTestDB(t)
	author, _ := db.CreateUser("author", "correct-horse", "")
	viewer, _ := db.CreateUser("viewer", "correct-horse", "")
	p, _ := db.CreatePost(author.ID, "whose post is this", "", "")

	seen, err := db.GetPost(p.ID, viewer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if seen.Mine {
		t.Error("post should not be mine for another viewer")
	}

	seen, _ = db.GetPost(p.ID, author.ID)
	if !seen.Mine {
		t.Error("post should be mine for its author")
	}
}

func TestDeletePost(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	p, _ := db.CreatePost(u.ID, "doomed", "", "")

	if err := db.DeletePost(p.ID, u.ID); err != nil {
		t.Fatal(err)
	}

	found, _ := db.GetPost(p.ID, u.ID)
	if found != nil {
		t.Fatal("deleted post should be gone")
	}
}

func TestDeletePostNotFound(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	err := db.DeletePost(12345, u.ID)
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestDeletePostWrongAuthor(t *testing.T) {
	db := newTestDB(t)
	author, _ := db.CreateUser("author", "correct-horse", "")
	other, _ := db.CreateUser("other", "correct-horse", "")
	p, _ := db.CreatePost(author.ID, "not yours", "", "")

	err := db.DeletePost(p.ID, other.ID)
	if !errors.Is(err, ErrNotPostAuthor) {
		t.Fatalf("expected ErrNotPostAuthor, got %v", err)
	}

	found, _ := db.GetPost(p.ID, author.ID)
	if found == nil {
		t.Fatal("post should survive a rejected delete")
	}
}

func TestPostIDsIncrease(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")

	var last int64
	for i := 0; i < 5; i++ {
		p, err := db.CreatePost(u.ID, "post", "", "")
		if err != nil {
			t.Fatal(err)
		}
		if p.ID <= last {
			t.Fatalf("post IDs should be strictly increasing: %d after %d", p.ID, last)
		}
		last = p.ID
	}
}

// --- Timeline tests ---

func TestTimelinePagination(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	var ids []int64
	for i := 0; i < 5; i++ {
		p, _ := db.CreatePost(u.ID, "post", "", "")
		ids = append(ids, p.ID)
	}

	page1, err := db.Timeline(u.ID, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(page1))
	}
	if page1[0].ID != ids[4] || page1[1].ID != ids[3] {
		t.Fatalf("expected newest first, got %d then %d", page1[0].ID, page1[1].ID)
	}

	page2, err := db.Timeline(u.ID, page1[1].ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(page2))
	}
	if page2[0].ID != ids[2] || page2[1].ID != ids[1] {
		t.Fatalf("second page overlaps or skips: %d then %d", page2[0].ID, page2[1].ID)
	}
}

func TestTimelineEmpty(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	posts, err := db.Timeline(u.ID, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected empty timeline, got %d posts", len(posts))
	}
}

func TestNewer(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	first, _ := db.CreatePost(u.ID, "old", "", "")
	second, _ := db.CreatePost(u.ID, "newer", "", "")
	third, _ := db.CreatePost(u.ID, "newest", "", "")

	posts, err := db.Newer(u.ID, first.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 newer posts, got %d", len(posts))
	}
	if posts[0].ID != second.ID || posts[1].ID != third.ID {
		t.Fatalf("expected oldest first, got %d then %d", posts[0].ID, posts[1].ID)
	}
}

func TestNewerNone(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	p, _ := db.CreatePost(u.ID, "only", "", "")

	posts, err := db.Newer(u.ID, p.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected no newer posts, got %d", len(posts))
	}
}

// --- Like tests ---

func TestLikeAndUnlike(t *testing.T) {
	db := newTestDB(t)
	author, _ := db.CreateUser("author", "correct-horse", "")
	fan, _ := db.CreateUser("fan", "correct-horse", "")
	p, _ := db.CreatePost(author.ID, "likeable", "", "")

	liked, err := db.Like(p.ID, fan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if liked.Likes != 1 || !liked.LikedByMe {
		t.Fatalf("expected likes=1 liked_by_me=true, got %d %v", liked.Likes, liked.LikedByMe)
	}

	// Liking again is idempotent
	liked, err = db.Like(p.ID, fan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if liked.Likes != 1 {
		t.Fatalf("double like should not double count: %d", liked.Likes)
	}

	unliked, err := db.Unlike(p.ID, fan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if unliked.Likes != 0 || unliked.LikedByMe {
		t.Fatalf("expected likes=0 liked_by_me=false, got %d %v", unliked.Likes, unliked.LikedByMe)
	}

	// Unliking again is idempotent
	unliked, err = db.Unlike(p.ID, fan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if unliked.Likes != 0 {
		t.Fatalf("double unlike should not go negative: %d", unliked.Likes)
	}
}

func TestLikeNotFound(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	_, err := db.Like(12345, u.ID)
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestLikeCountsPerUser(t *testing.T) {
	db := newTestDB(t)
	author, _ := db.CreateUser("author", "correct-horse", "")
	fan1, _ := db.CreateUser("fan1", "correct-horse", "")
	fan2, _ := db.CreateUser("fan2", "correct-horse", "")
	p, _ := db.CreatePost(author.ID, "popular", "", "")

	db.Like(p.ID, fan1.ID)
	liked, err := db.Like(p.ID, fan2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if liked.Likes != 2 {
		t.Fatalf("expected 2 likes, got %d", liked.Likes)
	}

	// The author never liked it
	seen, _ := db.GetPost(p.ID, author.ID)
	if seen.LikedByMe {
		t.Error("author did not like the post")
	}
	if seen.Likes != 2 {
		t.Errorf("like count should not depend on viewer: %d", seen.Likes)
	}
}

// --- Media tests ---

func TestRecordAndGetMedia(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")

	m, err := db.RecordMedia("abc123.png", "image/png", 2048, u.ID)
	if err != nil {
		t.Fatal(err)
	}

	found, err := db.GetMedia("abc123.png")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil {
		t.Fatal("media not found")
	}
	if found.ContentType != m.ContentType || found.Size != m.Size || found.UploaderID != u.ID {
		t.Fatalf("media mismatch: %+v", found)
	}
}

func TestGetMediaNotFound(t *testing.T) {
	db := newTestDB(t)
	found, err := db.GetMedia("nope.png")
	if err != nil {
		t.Fatal(err)
	}
	if found != nil {
		t.Fatal("expected nil for missing media")
	}
}

func TestRecordMediaEmptyName(t *testing.T) {
	db := newTestDB(t)
	u, _ := db.CreateUser("casey", "correct-horse", "")
	_, err := db.RecordMedia("", "image/png", 1, u.ID)
	if err == nil {
		t.Fatal("expected error for empty name")
	}
}

// --- Schema version tests ---

func TestSchemaVersion(t *testing.T) {
	db := newTestDB(t)
	v := db.getSchemaVersion()
	if v != ServerSchemaVersion {
		t.Fatalf("expected version %d, got %d", ServerSchemaVersion, v)
	}
}

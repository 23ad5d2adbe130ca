package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/asock/catio-cam/internal/database"
	"github.com/asock/catio-cam/internal/hub"
	"github.com/asock/catio-cam/internal/ingest"
	"github.com/asock/catio-cam/internal/media"
	"github.com/asock/catio-cam/internal/startup"
)

type stubInspector struct {
	info media.Info
}

func (s stubInspector) Inspect(ctx context.Context, path string) media.Info {
	return s.info
}

type stubRenderer struct{}

func (stubRenderer) RenderFrame(ctx context.Context, path, destPath string, duration float64) error {
	return os.WriteFile(destPath, []byte("jpeg-bytes"), 0o644)
}

func (stubRenderer) Placeholder(destPath, title string) error {
	return os.WriteFile(destPath, []byte("<svg>"+title+"</svg>"), 0o644)
}

type testEnv struct {
	t      *testing.T
	db     *database.Database
	hub    *hub.Hub
	server *httptest.Server
	cfg    *startup.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := &startup.Config{
		MediaDir:       filepath.Join(dir, "media"),
		ThumbnailDir:   filepath.Join(dir, "thumbs"),
		MaxUploadBytes: 64 << 20,
		PublishPolicy:  startup.PolicyPublished,
	}
	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		t.Fatalf("mkdir media: %v", err)
	}
	if err := os.MkdirAll(cfg.ThumbnailDir, 0o755); err != nil {
		t.Fatalf("mkdir thumbs: %v", err)
	}

	db, err := database.New(context.Background(), filepath.Join(dir, "catio.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	broadcast := hub.New()
	t.Cleanup(broadcast.CloseAll)

	pipeline := ingest.New(db, stubInspector{info: media.Info{
		Duration: 12.5, Width: 1920, Height: 1080, Codec: "h264",
	}}, stubRenderer{}, broadcast, cfg)

	h := New(db, pipeline, broadcast, cfg)
	server := httptest.NewServer(h.WithUser(h.Router(nil)))
	t.Cleanup(server.Close)

	return &testEnv{t: t, db: db, hub: broadcast, server: server, cfg: cfg}
}

// login creates a session for the given email and returns its cookie
// plus the upserted user.
func (e *testEnv) login(email string, admin bool) (*http.Cookie, *database.User) {
	e.t.Helper()

	body := fmt.Sprintf(`{"email":%q,"name":"Tester","provider":"google","providerId":%q}`, email, email)
	resp, err := http.Post(e.server.URL+"/api/auth/session", "application/json", strings.NewReader(body))
	if err != nil {
		e.t.Fatalf("creating session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		e.t.Fatalf("session status = %d", resp.StatusCode)
	}

	var user database.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		e.t.Fatalf("decoding session user: %v", err)
	}

	if admin {
		if err := e.db.SetAdmin(context.Background(), email, true); err != nil {
			e.t.Fatalf("granting admin: %v", err)
		}
	}

	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			return c, &user
		}
	}
	e.t.Fatal("session cookie not set")
	return nil, nil
}

// seedAsset inserts an asset row and a matching blob on disk.
func (e *testEnv) seedAsset(userID int64, title string, status database.AssetStatus) *database.Asset {
	e.t.Helper()

	stored := fmt.Sprintf("%s-%d.mp4", strings.ToLower(strings.ReplaceAll(title, " ", "-")), userID)
	blob := bytes.Repeat([]byte{0x42}, 4096)
	if err := os.WriteFile(filepath.Join(e.cfg.MediaDir, stored), blob, 0o644); err != nil {
		e.t.Fatalf("writing blob: %v", err)
	}

	asset, err := e.db.InsertAsset(context.Background(), &database.Asset{
		UserID:      userID,
		Title:       title,
		StoredName:  stored,
		Size:        int64(len(blob)),
		Duration:    30,
		ContentType: "video/mp4",
		Status:      status,
	})
	if err != nil {
		e.t.Fatalf("seeding asset: %v", err)
	}
	return asset
}

func (e *testEnv) do(method, path string, body io.Reader, cookie *http.Cookie, contentType string) *http.Response {
	e.t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		e.t.Fatalf("building request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestSessionFlowIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := newTestEnv(t)
	cookie, _ := env.login("whiskers@catio.cam", false)

	resp := env.do("GET", "/api/auth/me", nil, cookie, "")
	var me database.User
	decodeBody(t, resp, &me)
	if me.Email != "whiskers@catio.cam" {
		t.Errorf("me email = %q", me.Email)
	}

	resp = env.do("POST", "/api/auth/logout", nil, cookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	resp = env.do("GET", "/api/auth/me", nil, cookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d, want 401", resp.StatusCode)
	}
}

func TestUploadAndDeliveryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := newTestEnv(t)
	cookie, _ := env.login("uploader@catio.cam", false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", "Rooftop nap")
	mw.WriteField("tags", "Naps, rooftop")
	fw, err := mw.CreateFormFile("file", "nap.mp4")
	if err != nil {
		t.Fatalf("building multipart: %v", err)
	}
	payload := bytes.Repeat([]byte{0xAB}, 8192)
	fw.Write(payload)
	mw.Close()

	resp := env.do("POST", "/api/upload", &buf, cookie, mw.FormDataContentType())
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("upload status = %d, body %s", resp.StatusCode, body)
	}
	var asset database.Asset
	decodeBody(t, resp, &asset)
	if asset.Status != database.StatusPublished {
		t.Errorf("status = %s, want published", asset.Status)
	}
	if asset.Title != "Rooftop nap" {
		t.Errorf("title = %q", asset.Title)
	}
	if asset.Tags != "naps,rooftop" {
		t.Errorf("tags = %q", asset.Tags)
	}

	resp = env.do("GET", fmt.Sprintf("/media/%d", asset.ID), nil, nil, "")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("media status = %d", resp.StatusCode)
	}
	if !bytes.Equal(body, payload) {
		t.Errorf("media body mismatch, got %d bytes", len(body))
	}

	req, _ := http.NewRequest("GET", fmt.Sprintf("%s/media/%d", env.server.URL, asset.ID), nil)
	req.Header.Set("Range", "bytes=0-1023")
	rangeResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("range request: %v", err)
	}
	part, _ := io.ReadAll(rangeResp.Body)
	rangeResp.Body.Close()
	if rangeResp.StatusCode != http.StatusPartialContent {
		t.Fatalf("range status = %d, want 206", rangeResp.StatusCode)
	}
	if len(part) != 1024 {
		t.Errorf("range body = %d bytes, want 1024", len(part))
	}
	if got := rangeResp.Header.Get("Content-Range"); got != fmt.Sprintf("bytes 0-1023/%d", len(payload)) {
		t.Errorf("Content-Range = %q", got)
	}

	resp = env.do("GET", fmt.Sprintf("/thumbnails/%d", asset.ID), nil, nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("thumbnail status = %d", resp.StatusCode)
	}
}

func TestUploadIgnoresFieldsAfterFileIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := newTestEnv(t)
	cookie, _ := env.login("late@catio.cam", false)

	// The title arrives after the file part, so it cannot influence the
	// already-stored asset.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "early.mp4")
	if err != nil {
		t.Fatalf("building multipart: %v", err)
	}
	fw.Write(bytes.Repeat([]byte{0x01}, 2048))
	mw.WriteField("title", "Too late")
	mw.Close()

	resp := env.do("POST", "/api/upload", &buf, cookie, mw.FormDataContentType())
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		t.Fatalf("upload status = %d, want 201", resp.StatusCode)
	}
	var asset database.Asset
	decodeBody(t, resp, &asset)
	if asset.Title != "early.mp4" {
		t.Errorf("title = %q, want fallback to filename since the field trailed the file", asset.Title)
	}
}

func TestUploadRequiresAuthIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := newTestEnv(t)
	resp := env.do("POST", "/api/upload", strings.NewReader("nope"), nil, "multipart/form-data")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestUnpublishedVisibilityIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := newTestEnv(t)
	ownerCookie, owner := env.login("owner@catio.cam", false)
	strangerCookie, _ := env.login("stranger@catio.cam", false)

	asset := env.seedAsset(owner.ID, "Hidden clip", database.StatusProcessing)
	path := fmt.Sprintf("/api/assets/%d", asset.ID)

	resp := env.do("GET", path, nil, nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("anonymous status = %d, want 404", resp.StatusCode)
	}

	resp = env.do("GET", path, nil, strangerCookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("stranger status = %d, want 404", resp.StatusCode)
	}

	resp = env.do("GET", path, nil, ownerCookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner status = %d, want 200", resp.StatusCode)
	}

	resp = env.do("GET", fmt.Sprintf("/media/%d", asset.ID), nil, strangerCookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("stranger media status = %d, want 404", resp.StatusCode)
	}
}

func TestLikeAndCommentIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := newTestEnv(t)
	aliceCookie, alice := env.login("alice@catio.cam", false)
	bobCookie, _ := env.login("bob@catio.cam", false)
	asset := env.seedAsset(alice.ID, "Window watch", database.StatusPublished)

	likePath := fmt.Sprintf("/api/assets/%d/like", asset.ID)

	var like LikeResponse
	resp := env.do("POST", likePath, nil, bobCookie, "")
	decodeBody(t, resp, &like)
	if !like.Liked || like.Likes != 1 {
		t.Errorf("first toggle = %+v, want liked with count 1", like)
	}

	resp = env.do("POST", likePath, nil, bobCookie, "")
	decodeBody(t, resp, &like)
	if like.Liked || like.Likes != 0 {
		t.Errorf("second toggle = %+v, want unliked with count 0", like)
	}

	commentPath := fmt.Sprintf("/api/assets/%d/comments", asset.ID)
	resp = env.do("POST", commentPath, strings.NewReader(`{"body":"so fluffy"}`), bobCookie, "application/json")
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		t.Fatalf("comment status = %d, want 201", resp.StatusCode)
	}
	var comment database.Comment
	decodeBody(t, resp, &comment)
	if comment.Body != "so fluffy" || comment.UserName == "" {
		t.Errorf("comment = %+v", comment)
	}

	resp = env.do("GET", commentPath, nil, nil, "")
	var comments []database.Comment
	decodeBody(t, resp, &comments)
	if len(comments) != 1 {
		t.Fatalf("comments listed = %d, want 1", len(comments))
	}

	// Alice did not write it and is not an admin.
	deletePath := fmt.Sprintf("/api/comments/%d", comment.ID)
	resp = env.do("DELETE", deletePath, nil, aliceCookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign delete status = %d, want 403", resp.StatusCode)
	}

	resp = env.do("DELETE", deletePath, nil, bobCookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("own delete status = %d, want 200", resp.StatusCode)
	}
}

func TestModerationIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := newTestEnv(t)
	adminCookie, _ := env.login("admin@catio.cam", true)
	userCookie, user := env.login("user@catio.cam", false)
	pending := env.seedAsset(user.ID, "Awaiting review", database.StatusProcessing)

	resp := env.do("GET", "/api/admin/pending", nil, userCookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin pending status = %d, want 403", resp.StatusCode)
	}

	resp = env.do("GET", "/api/admin/pending", nil, adminCookie, "")
	var queue []database.Asset
	decodeBody(t, resp, &queue)
	if len(queue) != 1 || queue[0].ID != pending.ID {
		t.Fatalf("pending queue = %+v", queue)
	}

	resp = env.do("POST", fmt.Sprintf("/api/admin/assets/%d/approve", pending.ID), nil, adminCookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d", resp.StatusCode)
	}
	approved, err := env.db.GetAsset(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("reloading asset: %v", err)
	}
	if approved.Status != database.StatusPublished {
		t.Errorf("status after approve = %s", approved.Status)
	}

	resp = env.do("POST", fmt.Sprintf("/api/admin/assets/%d/feature", pending.ID), nil, adminCookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feature status = %d", resp.StatusCode)
	}
	resp = env.do("GET", "/api/assets/featured", nil, nil, "")
	var featured database.Asset
	decodeBody(t, resp, &featured)
	if featured.ID != pending.ID {
		t.Errorf("featured id = %d, want %d", featured.ID, pending.ID)
	}

	blobPath := filepath.Join(env.cfg.MediaDir, pending.StoredName)
	resp = env.do("DELETE", fmt.Sprintf("/api/admin/assets/%d", pending.ID), nil, adminCookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if _, err := os.Stat(blobPath); !os.IsNotExist(err) {
		t.Errorf("blob survived delete: %v", err)
	}
	if _, err := env.db.GetAsset(context.Background(), pending.ID); err == nil {
		t.Error("asset row survived delete")
	}
}

func TestRejectedUploadBroadcastIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := newTestEnv(t)
	adminCookie, admin := env.login("admin@catio.cam", true)
	asset := env.seedAsset(admin.ID, "Blurry mess", database.StatusProcessing)

	resp := env.do("POST", fmt.Sprintf("/api/admin/assets/%d/reject", asset.ID), nil, adminCookie, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reject status = %d", resp.StatusCode)
	}

	rejected, err := env.db.GetAsset(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("reloading asset: %v", err)
	}
	if rejected.Status != database.StatusRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}

	// Rejected assets disappear from the public listing.
	resp = env.do("GET", "/api/assets", nil, nil, "")
	var listed []database.Asset
	decodeBody(t, resp, &listed)
	if len(listed) != 0 {
		t.Errorf("public listing has %d assets, want 0", len(listed))
	}
}

func TestViewCountIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, viewer := env.login("viewer@catio.cam", false)
	asset := env.seedAsset(viewer.ID, "Popular clip", database.StatusPublished)

	path := fmt.Sprintf("/api/assets/%d", asset.ID)
	var got database.Asset
	for i := 1; i <= 3; i++ {
		resp := env.do("GET", path, nil, nil, "")
		decodeBody(t, resp, &got)
		if got.Views != int64(i) {
			t.Errorf("views after visit %d = %d", i, got.Views)
		}
	}
}

func TestStatsAndHealthIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := newTestEnv(t)
	_, one := env.login("one@catio.cam", false)
	env.seedAsset(one.ID, "Clip a", database.StatusPublished)
	env.seedAsset(one.ID, "Clip b", database.StatusProcessing)

	resp := env.do("GET", "/api/stats", nil, nil, "")
	var stats database.HubStats
	decodeBody(t, resp, &stats)
	if stats.PublishedAssets != 1 || stats.ProcessingAssets != 1 || stats.Users != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ActiveConnections != 0 {
		t.Errorf("activeConnections = %d, want 0", stats.ActiveConnections)
	}

	for _, path := range []string{"/health", "/livez", "/readyz", "/version"} {
		resp := env.do("GET", path, nil, nil, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

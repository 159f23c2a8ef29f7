package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/chcemmat/internal/auth"
	"github.com/Kerhoff/chcemmat/internal/bucket"
	"github.com/Kerhoff/chcemmat/internal/metrics"
	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
	"github.com/Kerhoff/chcemmat/internal/repository/memory"
	"github.com/Kerhoff/chcemmat/internal/service"
)

const (
	ownerToken   = "owner-token"
	visitorToken = "visitor-token"
)

// fakeProvider serves fixed sessions keyed by token
type fakeProvider struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session
}

func (p *fakeProvider) GetSession(_ context.Context, token string) (*auth.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[token], nil
}

func (p *fakeProvider) SignUp(_ context.Context, email, password string, metadata map[string]any) (*auth.Result, error) {
	if len(password) < auth.MinPasswordLength {
		return nil, &auth.Error{Code: auth.CodeWeakPassword, Message: "Password should be at least 6 characters."}
	}
	u := auth.User{ID: "new-user", Email: email, Metadata: metadata}
	return &auth.Result{User: u, Session: &auth.Session{AccessToken: "new-token", User: u}}, nil
}

func (p *fakeProvider) SignInWithPassword(context.Context, string, string) (*auth.Result, error) {
	return nil, &auth.Error{Code: auth.CodeInvalidCredentials, Message: "Invalid login credentials"}
}

func (p *fakeProvider) SignOut(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sessions[token]; !ok {
		return &auth.Error{Code: auth.CodeSessionNotFound, Message: "Auth session missing!"}
	}
	delete(p.sessions, token)
	return nil
}

func (p *fakeProvider) UpdateUser(_ context.Context, token string, _ auth.UserAttributes) (*auth.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.sessions[token].User
	return &u, nil
}

// stuckItems fails every item status update
type stuckItems struct {
	repository.ItemRepository
	fail atomic.Bool
}

func (s *stuckItems) Update(ctx context.Context, id string, upd models.ItemUpdate) (*models.Item, error) {
	if s.fail.Load() {
		return nil, &repository.StoreError{Op: "update item", Code: "57014", Message: "canceling statement due to statement timeout"}
	}
	return s.ItemRepository.Update(ctx, id, upd)
}

type fakeMailer struct{ sent []models.ContactMessage }

func (m *fakeMailer) SendContact(_ context.Context, msg models.ContactMessage) (string, error) {
	m.sent = append(m.sent, msg)
	return "msg-1", nil
}

type fakeUploader struct {
	folder      string
	contentType string
	body        []byte
}

func (u *fakeUploader) UploadImage(_ context.Context, folder string, r io.Reader, _ int64, contentType string) (string, error) {
	if contentType != "image/png" {
		return "", fmt.Errorf("%w: %s", bucket.ErrUnsupportedType, contentType)
	}
	u.folder, u.contentType = folder, contentType
	u.body, _ = io.ReadAll(r)
	return "https://cdn.chcemmat.sk/" + folder + "/a.png", nil
}

type testServer struct {
	srv      *httptest.Server
	items    *stuckItems
	mailer   *fakeMailer
	uploader *fakeUploader
	metrics  *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger, _ := test.NewNullLogger()
	store := memory.New()
	provider := &fakeProvider{sessions: map[string]*auth.Session{
		ownerToken:   {AccessToken: ownerToken, User: auth.User{ID: "owner", Email: "owner@example.com", Metadata: map[string]any{"full_name": "Jana"}}},
		visitorToken: {AccessToken: visitorToken, User: auth.User{ID: "visitor", Email: "visitor@example.com"}},
	}}

	ts := &testServer{
		items:    &stuckItems{ItemRepository: store.Items()},
		mailer:   &fakeMailer{},
		uploader: &fakeUploader{},
		metrics:  metrics.NewWithRegistry(prometheus.NewRegistry()),
	}
	svc := service.New(service.Deps{
		Profiles:     store.Profiles(),
		Wishlists:    store.Wishlists(),
		Items:        ts.items,
		Reservations: store.Reservations(),
		Auth:         provider,
		Mailer:       ts.mailer,
		Metrics:      ts.metrics,
		Logger:       logger,
		ShareBaseURL: "https://chcemmat.sk",
	})
	server := NewServer(svc, Options{
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"https://chcemmat.sk"},
		Images:         ts.uploader,
		Metrics:        ts.metrics,
	}, logger)

	ts.srv = httptest.NewServer(server.Handler())
	t.Cleanup(ts.srv.Close)
	return ts
}

type call struct {
	method string
	path   string
	token  string
	lang   string
	body   any
}

func (ts *testServer) do(t *testing.T, c call) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(c.method, ts.srv.URL+c.path, body)
	require.NoError(t, err)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.lang != "" {
		req.Header.Set("Accept-Language", c.lang)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

// seed creates a wishlist with one item owned by the owner session
func (ts *testServer) seed(t *testing.T) (wishlist, item map[string]any) {
	t.Helper()

	resp, wishlist := ts.do(t, call{method: http.MethodPost, path: "/api/wishlists", token: ownerToken,
		body: map[string]any{"title": "Vianoce 2026", "description": "Darčeky"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, item = ts.do(t, call{method: http.MethodPost, path: "/api/wishlists/" + wishlist["id"].(string) + "/items", token: ownerToken,
		body: map[string]any{"title": "Lego Technic", "price": "89.99", "product_url": "https://shop.example.com/lego"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return wishlist, item
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestWishlistAndReservationFlow(t *testing.T) {
	ts := newTestServer(t)
	wishlist, item := ts.seed(t)

	slug := wishlist["share_slug"].(string)
	assert.Len(t, slug, service.ShareSlugLength)
	assert.Equal(t, "https://chcemmat.sk/wishlist/"+slug, wishlist["share_url"])
	assert.Equal(t, true, wishlist["is_public"])
	assert.Equal(t, "available", item["status"])
	assert.Equal(t, "89.99", item["price"])

	itemPath := "/api/items/" + item["id"].(string)

	resp, res := ts.do(t, call{method: http.MethodPost, path: itemPath + "/reserve", body: map[string]any{"reserver_name": "  ", "message": "Veselé Vianoce"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.DefaultReserverName, res["reserver_name"])
	assert.Nil(t, res["reserver_email"])

	resp, body := ts.do(t, call{method: http.MethodPost, path: itemPath + "/reserve"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_reserved", body["code"])
	assert.Equal(t, "Táto položka je už rezervovaná.", body["error"])

	resp, body = ts.do(t, call{method: http.MethodPost, path: itemPath + "/reserve", lang: "en-GB,en;q=0.9"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "This item is already reserved.", body["error"])

	resp, body = ts.do(t, call{method: http.MethodGet, path: itemPath + "/reservation", token: ownerToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reservation := body["reservation"].(map[string]any)
	assert.Equal(t, res["id"], reservation["id"])
	assert.Equal(t, "Veselé Vianoce", reservation["message"])

	resp, _ = ts.do(t, call{method: http.MethodDelete, path: "/api/reservations/" + res["id"].(string), token: ownerToken})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = ts.do(t, call{method: http.MethodGet, path: itemPath + "/reservation", token: ownerToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["reservation"])

	resp, body = ts.do(t, call{method: http.MethodDelete, path: "/api/reservations/" + res["id"].(string), token: ownerToken})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])

	exposition := ts.scrape(t)
	assert.Contains(t, exposition, `chcemmat_http_requests_total{method="POST",route="/api/items/{id}/reserve",status="201"} 1`)
	assert.Contains(t, exposition, `chcemmat_http_requests_total{method="POST",route="/api/items/{id}/reserve",status="409"} 2`)
	assert.Contains(t, exposition, `chcemmat_reservations_total{outcome="already_reserved"} 2`)
}

func TestGetReservation_ContactOnlyForOwner(t *testing.T) {
	ts := newTestServer(t)
	_, item := ts.seed(t)
	itemPath := "/api/items/" + item["id"].(string)

	resp, _ := ts.do(t, call{method: http.MethodPost, path: itemPath + "/reserve",
		body: map[string]any{"reserver_name": "Teta", "reserver_email": "teta@example.com", "message": "Pre Janka"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := ts.do(t, call{method: http.MethodGet, path: itemPath + "/reservation"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, body["reservation"])

	resp, body = ts.do(t, call{method: http.MethodGet, path: itemPath + "/reservation", token: visitorToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reservation := body["reservation"].(map[string]any)
	assert.Equal(t, "Teta", reservation["reserver_name"])
	assert.Nil(t, reservation["reserver_email"])
	assert.Nil(t, reservation["message"])

	resp, body = ts.do(t, call{method: http.MethodGet, path: itemPath + "/reservation", token: ownerToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reservation = body["reservation"].(map[string]any)
	assert.Equal(t, "teta@example.com", reservation["reserver_email"])
	assert.Equal(t, "Pre Janka", reservation["message"])
}

func TestUpdateItem_StatusFollowsReservation(t *testing.T) {
	ts := newTestServer(t)
	_, item := ts.seed(t)
	itemPath := "/api/items/" + item["id"].(string)

	resp, body := ts.do(t, call{method: http.MethodPut, path: itemPath, token: ownerToken, body: map[string]any{"status": "reserved"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid", body["code"])

	resp, _ = ts.do(t, call{method: http.MethodPost, path: itemPath + "/reserve"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = ts.do(t, call{method: http.MethodPut, path: itemPath, token: ownerToken, body: map[string]any{"status": "available"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_reserved", body["code"])

	resp, body = ts.do(t, call{method: http.MethodPut, path: itemPath, token: ownerToken, body: map[string]any{"status": "purchased"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "purchased", body["status"])
}

func (ts *testServer) scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestReserve_IncompleteIsServiceUnavailable(t *testing.T) {
	ts := newTestServer(t)
	_, item := ts.seed(t)
	ts.items.fail.Store(true)

	resp, body := ts.do(t, call{method: http.MethodPost, path: "/api/items/" + item["id"].(string) + "/reserve"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "reservation_incomplete", body["code"])

	ts.items.fail.Store(false)
	resp, _ = ts.do(t, call{method: http.MethodPost, path: "/api/items/" + item["id"].(string) + "/reserve"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "rolled back reservation must not block a retry")
}

func TestSharedWishlist(t *testing.T) {
	ts := newTestServer(t)
	wishlist, _ := ts.seed(t)
	path := "/api/shared/" + wishlist["share_slug"].(string)

	resp, body := ts.do(t, call{method: http.MethodGet, path: path})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["is_owner"])
	assert.Len(t, body["items"], 1)

	_, body = ts.do(t, call{method: http.MethodGet, path: path, token: ownerToken})
	assert.Equal(t, true, body["is_owner"])

	_, body = ts.do(t, call{method: http.MethodGet, path: path, token: visitorToken})
	assert.Equal(t, false, body["is_owner"])

	resp, body = ts.do(t, call{method: http.MethodGet, path: "/api/shared/doesnotexist"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])
}

func TestAuthenticatedRoutes(t *testing.T) {
	ts := newTestServer(t)

	for _, token := range []string{"", "expired-token"} {
		resp, body := ts.do(t, call{method: http.MethodGet, path: "/api/dashboard", token: token})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "unauthorized", body["code"])
	}

	ts.seed(t)
	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/dashboard", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "bearer "+ownerToken)
	dash, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer dash.Body.Close()
	require.Equal(t, http.StatusOK, dash.StatusCode)

	var lists []models.WishlistWithItems
	require.NoError(t, json.NewDecoder(dash.Body).Decode(&lists))
	require.Len(t, lists, 1)
	assert.Len(t, lists[0].Items, 1)
	assert.Contains(t, lists[0].ShareURL, lists[0].ShareSlug)
}

func TestIdentityRoutes(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, call{method: http.MethodGet, path: "/api/me", token: ownerToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Jana", body["full_name"])
	assert.Equal(t, "sk", body["default_language"])

	resp, body = ts.do(t, call{method: http.MethodPut, path: "/api/profile", token: ownerToken, body: map[string]any{"default_language": "en"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "en", body["default_language"])

	resp, body = ts.do(t, call{method: http.MethodPut, path: "/api/profile", token: ownerToken, body: map[string]any{"default_language": "de"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid", body["code"])

	resp, _ = ts.do(t, call{method: http.MethodGet, path: "/api/me"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = ts.do(t, call{method: http.MethodPost, path: "/api/auth/signup", body: map[string]any{"email": "a@b.sk", "password": "123"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, auth.CodeWeakPassword, body["code"])
	assert.Contains(t, body["detail"], "6 characters")

	resp, _ = ts.do(t, call{method: http.MethodPost, path: "/api/auth/signup", body: map[string]any{"email": "a@b.sk", "password": "123456", "full_name": "Anna"}})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = ts.do(t, call{method: http.MethodPost, path: "/api/auth/signin", body: map[string]any{"email": "a@b.sk", "password": "wrong1"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.CodeInvalidCredentials, body["code"])

	resp, body = ts.do(t, call{method: http.MethodPost, path: "/api/auth/signout", token: visitorToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["acknowledged"])

	resp, _ = ts.do(t, call{method: http.MethodPost, path: "/api/auth/signout"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestContact(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, call{method: http.MethodPost, path: "/api/contact", body: map[string]any{"name": "Jana", "email": "", "message": "Ahoj"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid", body["code"])
	assert.NotEmpty(t, body["error"])
	assert.Empty(t, ts.mailer.sent)

	resp, body = ts.do(t, call{method: http.MethodPost, path: "/api/contact", lang: "en",
		body: map[string]any{"name": " Jana ", "email": "jana@example.com", "message": "Ahoj"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "msg-1", body["email_id"])
	assert.Equal(t, "Message sent successfully.", body["message"])
	require.Len(t, ts.mailer.sent, 1)
	assert.Equal(t, "Jana", ts.mailer.sent[0].Name)
}

func TestDecodeErrors(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/contact", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func uploadRequest(t *testing.T, url, contentType string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("folder", bucket.FolderCovers))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="cover.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	return req
}

func TestUploadImage(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.DefaultClient.Do(uploadRequest(t, ts.srv.URL+"/api/images", "image/png"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "https://cdn.chcemmat.sk/covers/a.png", body["url"])
	assert.Equal(t, bucket.FolderCovers, ts.uploader.folder)
	assert.Equal(t, []byte("\x89PNG fake"), ts.uploader.body)

	resp2, err := http.DefaultClient.Do(uploadRequest(t, ts.srv.URL+"/api/images", "application/pdf"))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"already reserved", &service.Error{Kind: service.KindAlreadyReserved}, http.StatusConflict, "already_reserved"},
		{"forbidden", &service.Error{Kind: service.KindForbidden}, http.StatusForbidden, "forbidden"},
		{"inconsistent", &service.Error{Kind: service.KindInconsistentState}, http.StatusInternalServerError, "inconsistent_state"},
		{"store policy", &service.Error{Kind: service.KindStore, Code: repository.CodeInsufficientPrivilege}, http.StatusForbidden, "forbidden"},
		{"store no rows", &service.Error{Kind: service.KindStore, Code: repository.CodeNoRows}, http.StatusNotFound, "not_found"},
		{"store malformed id", &service.Error{Kind: service.KindStore, Code: repository.CodeInvalidTextRepresentation}, http.StatusBadRequest, "invalid"},
		{"store other", &service.Error{Kind: service.KindStore, Code: "08006"}, http.StatusBadGateway, "store"},
		{"store timeout", &service.Error{Kind: service.KindStore, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "store"},
		{"auth exists", &auth.Error{Code: auth.CodeUserAlreadyExists}, http.StatusConflict, auth.CodeUserAlreadyExists},
		{"too large", fmt.Errorf("upload: %w", bucket.ErrTooLarge), http.StatusRequestEntityTooLarge, "too_large"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, bearerToken(r))

	r.Header.Set("Authorization", "Bearer  abc ")
	assert.Equal(t, "abc", bearerToken(r))
}

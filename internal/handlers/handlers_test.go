package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/hire-filter-api/internal/middleware"
	"github.com/Shimizu-Technology/hire-filter-api/internal/models"
	"github.com/Shimizu-Technology/hire-filter-api/internal/services/archive"
	"github.com/Shimizu-Technology/hire-filter-api/internal/services/pdf"
	"github.com/Shimizu-Technology/hire-filter-api/internal/services/upload"
	"github.com/Shimizu-Technology/hire-filter-api/internal/session"
	"github.com/Shimizu-Technology/hire-filter-api/internal/viewer"
)

// stubPages is what the stub extractor "reads" out of each fake PDF body.
var stubPages = map[string][][]string{
	"alice": {{"Senior Go", "engineer"}, {"Kubernetes"}},
	"bob":   {{"Junior designer"}},
	"carol": {{"Senior designer"}},
}

type stubDoc struct{ pages [][]string }

func (d stubDoc) NumPages() int                   { return len(d.pages) }
func (d stubDoc) PageText(p int) ([]string, error) { return d.pages[p-1], nil }

// stubExtractor resolves bodies through stubPages. A non-nil gate holds
// every Open until it is closed.
type stubExtractor struct{ gate chan struct{} }

func (s stubExtractor) Open(data []byte) (pdf.Document, error) {
	if s.gate != nil {
		<-s.gate
	}
	pages, ok := stubPages[string(data)]
	if !ok {
		return nil, errors.New("corrupt pdf")
	}
	return stubDoc{pages: pages}, nil
}

type testServer struct {
	engine   *gin.Engine
	handler  *Handler
	store    *session.MemoryStore
	clientID string
}

func newTestServer(t *testing.T, gate chan struct{}) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := session.NewMemoryStore()
	manager := viewer.NewManager(store, stubExtractor{gate: gate}, viewer.NewBlobs("/api/v1/blobs/"), time.Hour)
	t.Cleanup(manager.Stop)

	h := NewHandler(upload.NewService(archive.NewZipExtractor()), store, manager, 1<<20, "memory")

	r := gin.New()
	r.Use(middleware.ClientID(false))
	r.POST("/api/zip", h.UploadZip)
	r.POST("/api/v1/upload", h.UploadAndSave)
	r.PUT("/api/v1/session", h.SaveSession)
	r.GET("/api/v1/session", h.GetSession)
	r.DELETE("/api/v1/session", h.ClearSession)
	r.POST("/api/v1/viewer", h.OpenViewer)
	r.GET("/api/v1/viewer/:id", h.GetViewer)
	r.DELETE("/api/v1/viewer/:id", h.CloseViewer)
	r.GET("/api/v1/viewer/:id/files/:index/export", h.ExportFileText)
	r.GET("/api/v1/blobs/:handle", h.ServeBlob)
	r.GET("/api/v1/health", h.HealthCheck)
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)

	return &testServer{engine: r, handler: h, store: store, clientID: uuid.NewString()}
}

// do sends a request as the server's client.
func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.AddCookie(&http.Cookie{Name: middleware.ClientCookieName, Value: ts.clientID})
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) saveBatch(t *testing.T, files ...models.CvFile) {
	t.Helper()
	require.NoError(t, ts.store.Save(context.Background(), ts.clientID, files))
}

func (ts *testServer) openViewer(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/viewer", nil, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.ViewerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func (ts *testServer) waitExtracted(t *testing.T, id string) {
	t.Helper()
	s, err := ts.handler.Viewers.Get(ts.clientID, id)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func (ts *testServer) getViewer(t *testing.T, id, query string) models.ViewerResponse {
	t.Helper()
	w := ts.do(t, http.MethodGet, "/api/v1/viewer/"+id+"?q="+query, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.ViewerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func pdfFile(name, raw string) models.CvFile {
	return models.CvFile{Name: name, Type: models.PDFMimeType, Data: base64.StdEncoding.EncodeToString([]byte(raw))}
}

// zipOf builds an archive from name/content pairs.
func zipOf(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// multipartBody wraps data as the "zip" form field. An empty field name
// sends a form with no file at all.
func multipartBody(t *testing.T, field, filename string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "nothing here"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func viewerNames(resp models.ViewerResponse) []string {
	out := make([]string, len(resp.Files))
	for i, f := range resp.Files {
		out[i] = f.Name
	}
	return out
}

func TestUploadZip(t *testing.T) {
	ts := newTestServer(t, nil)
	archiveData := zipOf(t, map[string]string{
		"alice.pdf": "alice",
		"bob.pdf":   "bob",
		"notes.txt": "ignored",
		"photo.png": "ignored",
	})

	body, ct := multipartBody(t, uploadField, "resumes.zip", archiveData)
	w := ts.do(t, http.MethodPost, "/api/zip", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Files, 2)
	for _, f := range resp.Files {
		assert.Equal(t, models.PDFMimeType, f.Type)
		raw, err := base64.StdEncoding.DecodeString(f.Data)
		require.NoError(t, err)
		assert.Equal(t, stubPagesKey(f.Name), string(raw))
	}

	// The stateless endpoint never touches the session slot.
	_, err := ts.store.Load(context.Background(), ts.clientID)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func stubPagesKey(name string) string {
	return name[:len(name)-len(".pdf")]
}

func TestUploadZip_Errors(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		filename   string
		data       []byte
		wantStatus int
		wantError  string
	}{
		{"no file", "", "", nil, http.StatusBadRequest, "No file uploaded"},
		{"wrong field name", "file", "resumes.zip", []byte("x"), http.StatusBadRequest, "No file uploaded"},
		{"not a zip name", uploadField, "resumes.rar", []byte("x"), http.StatusBadRequest, "File must be a ZIP file"},
		{"upper-case extension", uploadField, "RESUMES.ZIP", []byte("x"), http.StatusBadRequest, "File must be a ZIP file"},
		{"corrupt archive", uploadField, "resumes.zip", []byte("definitely not a zip"), http.StatusInternalServerError, "Failed to process ZIP file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			body, ct := multipartBody(t, tt.field, tt.filename, tt.data)
			w := ts.do(t, http.MethodPost, "/api/zip", body, ct)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp models.UploadErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}

	t.Run("no pdfs in archive", func(t *testing.T) {
		ts := newTestServer(t, nil)
		data := zipOf(t, map[string]string{"readme.txt": "hi", "CV.PDF": "upper"})
		body, ct := multipartBody(t, uploadField, "resumes.zip", data)
		w := ts.do(t, http.MethodPost, "/api/zip", body, ct)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"No PDF files found in ZIP"}`, w.Body.String())
	})

	t.Run("not multipart", func(t *testing.T) {
		ts := newTestServer(t, nil)
		w := ts.do(t, http.MethodPost, "/api/zip", bytes.NewBufferString("{}"), "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"No file uploaded"}`, w.Body.String())
	})
}

func TestUploadAndSave_StoresBatchAndReplacesPrevious(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.saveBatch(t, pdfFile("old.pdf", "carol"))
	oldViewer := ts.openViewer(t)

	body, ct := multipartBody(t, uploadField, "resumes.zip", zipOf(t, map[string]string{"alice.pdf": "alice"}))
	w := ts.do(t, http.MethodPost, "/api/v1/upload", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := ts.store.Load(context.Background(), ts.clientID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "alice.pdf", stored[0].Name)

	// The viewer over the old batch is gone.
	w = ts.do(t, http.MethodGet, "/api/v1/viewer/"+oldViewer, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadAndSave_FailureKeepsPreviousBatch(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.saveBatch(t, pdfFile("old.pdf", "carol"))

	body, ct := multipartBody(t, uploadField, "resumes.zip", zipOf(t, map[string]string{"a.txt": "x"}))
	w := ts.do(t, http.MethodPost, "/api/v1/upload", body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)

	stored, err := ts.store.Load(context.Background(), ts.clientID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "old.pdf", stored[0].Name)
}

func TestUploadZip_CountsEmptyPDFEntries(t *testing.T) {
	ts := newTestServer(t, nil)
	data := zipOf(t, map[string]string{"alice.pdf": "alice", "blank.pdf": ""})

	body, ct := multipartBody(t, uploadField, "resumes.zip", data)
	w := ts.do(t, http.MethodPost, "/api/zip", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestUploadZip_OverSizeLimit(t *testing.T) {
	ts := newTestServer(t, nil)
	// Smaller than the multipart envelope alone
	ts.handler.MaxUploadBytes = 64

	body, ct := multipartBody(t, uploadField, "resumes.zip", zipOf(t, map[string]string{"alice.pdf": "alice"}))
	w := ts.do(t, http.MethodPost, "/api/zip", body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, w.Body.String())
}

// failingSaveStore delegates to a real store but refuses every Save.
type failingSaveStore struct{ session.Store }

func (failingSaveStore) Save(context.Context, string, []models.CvFile) error {
	return errors.New("disk full")
}

func TestUploadAndSave_SaveFailureKeepsOpenViewer(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.saveBatch(t, pdfFile("old.pdf", "carol"))
	id := ts.openViewer(t)
	ts.handler.Sessions = failingSaveStore{Store: ts.store}

	body, ct := multipartBody(t, uploadField, "resumes.zip", zipOf(t, map[string]string{"alice.pdf": "alice"}))
	w := ts.do(t, http.MethodPost, "/api/v1/upload", body, ct)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to process ZIP file"}`, w.Body.String())

	// Old batch and its viewer are both still there
	resp := ts.getViewer(t, id, "")
	assert.Equal(t, []string{"old.pdf"}, viewerNames(resp))
	stored, err := ts.store.Load(context.Background(), ts.clientID)
	require.NoError(t, err)
	assert.Equal(t, "old.pdf", stored[0].Name)
}

func TestSessionEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	// Nothing stored yet
	w := ts.do(t, http.MethodGet, "/api/v1/session", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"redirect","redirect":"/"}`, w.Body.String())

	payload := `{"files":[{"name":"alice.pdf","type":"application/pdf","data":"` +
		base64.StdEncoding.EncodeToString([]byte("alice")) + `"}]}`
	w = ts.do(t, http.MethodPut, "/api/v1/session", bytes.NewBufferString(payload), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/session", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "alice.pdf", resp.Files[0].Name)

	w = ts.do(t, http.MethodDelete, "/api/v1/session", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/session", nil, "")
	assert.JSONEq(t, `{"state":"redirect","redirect":"/"}`, w.Body.String())
}

func TestSaveSession_RejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"not json", `nope`, "invalid_request"},
		{"missing files", `{}`, "invalid_request"},
		{"empty files", `{"files":[]}`, "invalid_request"},
		{"missing name", `{"files":[{"type":"application/pdf","data":"YQ=="}]}`, "invalid_request"},
		{"bad base64", `{"files":[{"name":"a.pdf","type":"application/pdf","data":"!!!"}]}`, "invalid_request"},
		{"wrong type", `{"files":[{"name":"a.pdf","type":"image/png","data":"YQ=="}]}`, "invalid_file_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			w := ts.do(t, http.MethodPut, "/api/v1/session", bytes.NewBufferString(tt.payload), "application/json")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantErr)
		})
	}
}

func TestOpenViewer_RedirectsWithoutSession(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodPost, "/api/v1/viewer", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"redirect","redirect":"/"}`, w.Body.String())
	assert.Equal(t, 0, ts.handler.Viewers.Len())
}

func TestViewer_SearchBeforeAndAfterExtraction(t *testing.T) {
	gate := make(chan struct{})
	ts := newTestServer(t, gate)
	ts.saveBatch(t,
		pdfFile("alice.pdf", "alice"),
		pdfFile("bob.pdf", "bob"),
		pdfFile("senior-carol.pdf", "carol"),
	)
	id := ts.openViewer(t)

	// Previews are ready immediately, text is not.
	resp := ts.getViewer(t, id, "")
	assert.Contains(t, []string{viewer.StateReady.String(), viewer.StateExtracting.String()}, resp.State)
	assert.Equal(t, 3, resp.Total)
	for _, f := range resp.Files {
		assert.NotEmpty(t, f.PreviewURL)
		assert.False(t, f.TextReady)
	}

	// Only the file name can match for now.
	resp = ts.getViewer(t, id, "senior")
	assert.Equal(t, []string{"senior-carol.pdf"}, viewerNames(resp))

	close(gate)
	ts.waitExtracted(t, id)

	resp = ts.getViewer(t, id, "SENIOR")
	assert.Equal(t, viewer.StateExtracted.String(), resp.State)
	assert.Equal(t, []string{"alice.pdf", "senior-carol.pdf"}, viewerNames(resp))
	assert.Equal(t, 2, resp.Matched)
	assert.Equal(t, 0, resp.Files[0].Index)
	assert.Equal(t, 2, resp.Files[1].Index)
	assert.False(t, resp.Files[0].NameMatch)
	assert.True(t, resp.Files[0].TextMatch)
	assert.True(t, resp.Files[1].NameMatch)

	resp = ts.getViewer(t, id, "designer")
	assert.Equal(t, []string{"bob.pdf", "senior-carol.pdf"}, viewerNames(resp))

	resp = ts.getViewer(t, id, "rust")
	assert.Empty(t, resp.Files)
	assert.Equal(t, 3, resp.Total)
}

func TestViewer_PreviewBlobLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.saveBatch(t, pdfFile("alice.pdf", "alice"))
	id := ts.openViewer(t)

	preview := ts.getViewer(t, id, "").Files[0].PreviewURL
	w := ts.do(t, http.MethodGet, preview, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
	assert.Equal(t, models.PDFMimeType, w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = ts.do(t, http.MethodDelete, "/api/v1/viewer/"+id, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"redirect","redirect":"/"}`, w.Body.String())

	// Handle released, slot cleared, viewer gone.
	w = ts.do(t, http.MethodGet, preview, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	_, err := ts.store.Load(context.Background(), ts.clientID)
	assert.ErrorIs(t, err, session.ErrNoSession)
	w = ts.do(t, http.MethodGet, "/api/v1/viewer/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Closing twice is harmless.
	w = ts.do(t, http.MethodDelete, "/api/v1/viewer/"+id, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, ts.handler.Viewers.Blobs().Len())
}

func TestViewer_OtherClientGets404(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.saveBatch(t, pdfFile("alice.pdf", "alice"))
	id := ts.openViewer(t)

	ts.clientID = uuid.NewString()
	w := ts.do(t, http.MethodGet, "/api/v1/viewer/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "memory", resp.SessionBackend)
	assert.Equal(t, 0, resp.OpenViewers)
}

func TestDocs(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/docs/openapi.yaml", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0")
	assert.Contains(t, w.Body.String(), "/api/v1/viewer/{id}")

	w = ts.do(t, http.MethodGet, "/api/docs", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger-ui")
}

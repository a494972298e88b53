package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/template"
	"github.com/MeKo-Tech/omr/internal/testutil"
)

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthHandler(t *testing.T) {
	s := NewServer(testConfig(), &fakeRecognizer{}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "test", h.Version)
	assert.True(t, h.Template)
	assert.Positive(t, h.Memory.Goroutines)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "omr_http_requests_total")
}

func TestRecognizeHandler(t *testing.T) {
	fake := &fakeRecognizer{}
	s := NewServer(testConfig(), fake, nil)

	req := multipartRequest(t, "/v1/recognize", map[string]string{"task_id": "abc"},
		part{"images", "a.png", []byte("one")},
		part{"images", "b.jpg", []byte("two")},
	)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[engine.Output](t, rec)
	assert.Equal(t, "abc", out.TaskID)
	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	require.Len(t, in.Sources, 2)
	assert.Equal(t, "a.png", in.Sources[0].Name)
	assert.Equal(t, []byte("two"), in.Sources[1].Data)
}

func TestRecognizeHandlerGeneratesTaskID(t *testing.T) {
	fake := &fakeRecognizer{}
	s := NewServer(testConfig(), fake, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, multipartRequest(t, "/v1/recognize", nil, part{"images", "a.png", []byte("x")}))
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := uuid.Parse(fake.inputs[0].TaskID)
	assert.NoError(t, err)
}

func TestRecognizeHandlerTemplateUpload(t *testing.T) {
	override := &fakeRecognizer{}
	layouts := &fakeLayouts{rec: override}
	base := &fakeRecognizer{}
	s := NewServer(testConfig(), base, layouts.get)

	req := multipartRequest(t, "/v1/recognize", nil,
		part{"template", "exam.yaml", []byte("pages: []")},
		part{"images", "a.png", []byte("x")},
	)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []template.Format{template.FormatYAML}, layouts.formats)
	assert.Equal(t, []byte("pages: []"), layouts.data[0])
	assert.Len(t, override.inputs, 1)
	assert.Empty(t, base.inputs)
}

func TestRecognizeHandlerErrors(t *testing.T) {
	tests := []struct {
		name    string
		server  func() *Server
		req     func(t *testing.T) *http.Request
		status  int
		errCode string
	}{
		{
			name:    "no template",
			server:  func() *Server { return NewServer(testConfig(), nil, nil) },
			req:     func(t *testing.T) *http.Request { return multipartRequest(t, "/v1/recognize", nil, part{"images", "a.png", []byte("x")}) },
			status:  http.StatusBadRequest,
			errCode: "no_template",
		},
		{
			name: "bad template",
			server: func() *Server {
				return NewServer(testConfig(), nil, (&fakeLayouts{err: errors.New("page 0: no fiducials")}).get)
			},
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/v1/recognize", nil, part{"template", "t.json", []byte("{}")}, part{"images", "a.png", []byte("x")})
			},
			status:  http.StatusBadRequest,
			errCode: "invalid_template",
		},
		{
			name:    "uploads disabled",
			server:  func() *Server { return NewServer(testConfig(), &fakeRecognizer{}, nil) },
			req:     func(t *testing.T) *http.Request { return multipartRequest(t, "/v1/recognize", nil, part{"template", "t.json", []byte("{}")}) },
			status:  http.StatusBadRequest,
			errCode: "invalid_template",
		},
		{
			name:    "no images",
			server:  func() *Server { return NewServer(testConfig(), &fakeRecognizer{}, nil) },
			req:     func(t *testing.T) *http.Request { return multipartRequest(t, "/v1/recognize", map[string]string{"task_id": "x"}) },
			status:  http.StatusBadRequest,
			errCode: "invalid_request",
		},
		{
			name:    "not multipart",
			server:  func() *Server { return NewServer(testConfig(), &fakeRecognizer{}, nil) },
			req:     func(*testing.T) *http.Request { return httptest.NewRequest(http.MethodPost, "/v1/recognize", strings.NewReader("x")) },
			status:  http.StatusBadRequest,
			errCode: "invalid_request",
		},
		{
			name:    "wrong method",
			server:  func() *Server { return NewServer(testConfig(), &fakeRecognizer{}, nil) },
			req:     func(*testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/v1/recognize", nil) },
			status:  http.StatusMethodNotAllowed,
			errCode: "method_not_allowed",
		},
		{
			name:    "timeout",
			server:  func() *Server { return NewServer(testConfig(), &fakeRecognizer{err: context.DeadlineExceeded}, nil) },
			req:     func(t *testing.T) *http.Request { return multipartRequest(t, "/v1/recognize", nil, part{"images", "a.png", []byte("x")}) },
			status:  http.StatusGatewayTimeout,
			errCode: "timeout",
		},
		{
			name:    "engine failure",
			server:  func() *Server { return NewServer(testConfig(), &fakeRecognizer{err: errors.New("boom")}, nil) },
			req:     func(t *testing.T) *http.Request { return multipartRequest(t, "/v1/recognize", nil, part{"images", "a.png", []byte("x")}) },
			status:  http.StatusInternalServerError,
			errCode: "processing_error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.server().Handler().ServeHTTP(rec, tt.req(t))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.errCode, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestSecondHandler(t *testing.T) {
	fake := &fakeRecognizer{}
	s := NewServer(testConfig(), fake, nil)

	body := `{"task_id":"s-1","pages":[{"recognizes":[]}],"images":["aGVsbG8="]}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/recognize/second", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "s-1", decode[engine.Output](t, rec).TaskID)
	require.Len(t, fake.second, 1)
	assert.Len(t, fake.second[0].Pages, 1)
}

func TestSecondHandlerErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(testConfig(), nil, nil).Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/v1/recognize/second", strings.NewReader("{}")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s := NewServer(testConfig(), &fakeRecognizer{}, nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/recognize/second", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := `{"images":["` + strings.Repeat("A", 2<<20) + `"]}`
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/recognize/second", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	s = NewServer(testConfig(), &fakeRecognizer{err: engine.ErrEmptyBatch}, nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/recognize/second", strings.NewReader(`{"pages":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecognizeEndToEnd(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Workers = 2
	e, err := engine.New(testutil.SampleScan(1), cfg, engine.Options{})
	require.NoError(t, err)

	page := testutil.RenderPage(&e.Scan().Pages[0], testutil.Marks{"q1": {2}})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.Photograph(page, image.Pt(30, 30), 0)))

	sc := testConfig()
	sc.MaxUploadMB = 20
	s := NewServer(sc, e, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, multipartRequest(t, "/v1/recognize", map[string]string{"task_id": "e2e"},
		part{"images", "sheet.png", buf.Bytes()}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[engine.Output](t, rec)
	assert.Equal(t, engine.CodeOK, out.Code)
	require.Len(t, out.Pages, 1)
	assert.True(t, out.Pages[0].HasPage)
	_, err = base64.StdEncoding.DecodeString(out.Pages[0].ImageRotated)
	assert.NoError(t, err)
	opts := out.Pages[0].Recognizes[0].RecOptions
	require.Len(t, opts, 4)
	require.NotNil(t, opts[2].Value)
	assert.Equal(t, 1, opts[2].Value.Int)
	assert.Equal(t, 0, opts[0].Value.Int)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("a.PDF", nil))
	assert.True(t, isPDF("upload", []byte("%PDF-1.7 ...")))
	assert.False(t, isPDF("a.png", []byte{0x89, 'P', 'N', 'G'}))
}

package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/template"
)

// fakeRecognizer records its inputs and answers with a fixed output.
type fakeRecognizer struct {
	mu     sync.Mutex
	inputs []engine.Input
	second []engine.SecondInput
	err    error
}

func (f *fakeRecognizer) Recognize(_ context.Context, in engine.Input) (*engine.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	out := &engine.Output{TaskID: in.TaskID, Pages: []engine.PageResult{{HasPage: true}}}
	for i, s := range in.Sources {
		out.Images = append(out.Images, engine.ImageStatus{Index: i, Source: s.Name, Code: engine.StatusMatched})
	}
	return out, nil
}

func (f *fakeRecognizer) RecognizeSecond(_ context.Context, in engine.SecondInput) (*engine.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.second = append(f.second, in)
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Output{TaskID: in.TaskID, Pages: make([]engine.PageResult, len(in.Pages))}, nil
}

// fakeLayouts hands out rec and records the requested formats.
type fakeLayouts struct {
	mu      sync.Mutex
	rec     Recognizer
	err     error
	formats []template.Format
	data    [][]byte
}

func (l *fakeLayouts) get(data []byte, format template.Format) (Recognizer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.formats = append(l.formats, format)
	l.data = append(l.data, data)
	if l.err != nil {
		return nil, l.err
	}
	return l.rec, nil
}

func (l *fakeLayouts) requested() []template.Format {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]template.Format(nil), l.formats...)
}

func (f *fakeRecognizer) recorded() []engine.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Input(nil), f.inputs...)
}

type part struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, p := range parts {
		w, err := mw.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func testConfig() Config {
	return Config{CORSOrigin: "*", MaxUploadMB: 1, TimeoutSec: 5, Version: "test"}
}

package support

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/server"
)

// HTTPServer runs the omr HTTP API in-process.
type HTTPServer struct {
	Server *httptest.Server
	Engine *engine.Engine
}

// Close stops the server and releases the engine.
func (s *HTTPServer) Close() {
	s.Server.Close()
	if s.Engine != nil {
		_ = s.Engine.Close()
	}
}

// anOMRServerWithTheExamTemplate starts a server bound to the scenario layout.
func (testCtx *TestContext) anOMRServerWithTheExamTemplate() error {
	if testCtx.Fixture == nil {
		return errors.New("no exam template in this scenario")
	}
	e, err := engine.New(testCtx.Fixture.Scan, engine.DefaultConfig(), engine.Options{})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	cache, err := engine.NewCache(engine.DefaultConfig(), engine.Options{}, 4)
	if err != nil {
		_ = e.Close()
		return fmt.Errorf("create layout cache: %w", err)
	}
	s := server.NewServer(server.Config{
		CORSOrigin:  "https://grading.example",
		MaxUploadMB: 20,
		TimeoutSec:  30,
		Version:     "integration",
	}, e, server.CacheLayouts(cache))
	testCtx.HTTPServer = &HTTPServer{Server: httptest.NewServer(s.Handler()), Engine: e}
	return nil
}

func (testCtx *TestContext) do(req *http.Request) error {
	resp, err := testCtx.HTTPServer.Server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for name := range resp.Header {
		testCtx.LastHTTPHeaders[name] = resp.Header.Get(name)
	}
	return nil
}

func (testCtx *TestContext) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	if testCtx.HTTPServer == nil {
		return nil, errors.New("no server running in this scenario")
	}
	return http.NewRequestWithContext(context.Background(), method, testCtx.HTTPServer.Server.URL+path, body)
}

func (testCtx *TestContext) iSendARequestTo(method, path string) error {
	req, err := testCtx.newRequest(method, path, nil)
	if err != nil {
		return err
	}
	if method == http.MethodOptions {
		req.Header.Set("Origin", "https://grading.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	return testCtx.do(req)
}

// iUploadToRecognize posts the named fixture files as "images"; names are
// {var} placeholders separated by commas. An empty list sends no images.
func (testCtx *TestContext) iUploadToRecognize(files string) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("task_id", "integration"); err != nil {
		return err
	}
	for _, name := range strings.Split(files, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		path := testCtx.substituteVars(name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		fw, err := mw.CreateFormFile("images", filepath.Base(path))
		if err != nil {
			return err
		}
		if _, err := fw.Write(data); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := testCtx.newRequest(http.MethodPost, "/v1/recognize", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadNothing() error {
	return testCtx.iUploadToRecognize("")
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status %d, expected %d\nBody: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseFieldShouldBe(path, expected string) error {
	return jsonFieldEquals(testCtx.LastHTTPResponse, path, expected)
}

func (testCtx *TestContext) theResponseOptionsShouldRead(group string, page int, expected string) error {
	return optionsRead(testCtx.LastHTTPResponse, group, page, expected)
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != expected {
		return fmt.Errorf("header %s is %q, expected %q", name, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain %q\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

// RegisterServerSteps registers the HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an omr server with the exam template$`, testCtx.anOMRServerWithTheExamTemplate)
	sc.Step(`^I send a (GET|OPTIONS|DELETE) request to "([^"]*)"$`, testCtx.iSendARequestTo)
	sc.Step(`^I upload "([^"]*)" to recognize$`, testCtx.iUploadToRecognize)
	sc.Step(`^I upload nothing to recognize$`, testCtx.iUploadNothing)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseFieldShouldBe)
	sc.Step(`^the response options of "([^"]*)" on page (\d+) should read "([^"]*)"$`, testCtx.theResponseOptionsShouldRead)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
}

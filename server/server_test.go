package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medguideai/medguide"
	"github.com/medguideai/medguide/engine"
	"github.com/medguideai/medguide/ingest"
	"github.com/medguideai/medguide/server"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct{}

func (m *mockEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = []float32{float32(len(text)) * 0.01, 1}
	}
	return embeddings, nil
}

type scriptedModel struct {
	responses []*engine.GenerateResponse
	calls     int
}

func (m *scriptedModel) Generate(ctx context.Context, req *engine.GenerateRequest, cb engine.StreamCallback) (*engine.GenerateResponse, error) {
	resp := m.responses[m.calls]
	m.calls++
	if cb != nil && resp.Text != "" {
		if err := cb(ctx, resp.Text); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func newTestServer(t *testing.T, model engine.ModelClient) *httptest.Server {
	t.Helper()
	runtime, err := medguide.NewRuntime(context.Background(),
		medguide.WithModelClient(model),
		medguide.WithEmbedder(&mockEmbedder{}),
		medguide.WithDocumentStore(ingest.NewInMemoryStore()),
	)
	require.NoError(t, err)
	t.Cleanup(runtime.Close)

	srv := server.New(runtime, slog.New(slog.DiscardHandler), ":0")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, &scriptedModel{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, &scriptedModel{responses: []*engine.GenerateResponse{
		{Text: "Hello! How can I help with your health documents?", FinishReason: "stop"},
	}})

	resp, err := http.Post(ts.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	var session struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	resp.Body.Close()
	require.NotEmpty(t, session.ID)

	body := strings.NewReader(`{"message": "Hello"}`)
	resp, err = http.Post(ts.URL+"/sessions/"+session.ID+"/messages", "application/json", body)
	require.NoError(t, err)
	answer := new(bytes.Buffer)
	_, err = answer.ReadFrom(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, answer.String(), "How can I help")

	resp, err = http.Get(ts.URL + "/sessions/" + session.ID + "/messages")
	require.NoError(t, err)
	var transcript []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&transcript))
	resp.Body.Close()
	require.Len(t, transcript, 2)
	require.Equal(t, "user", transcript[0].Role)
	require.Equal(t, "Hello", transcript[0].Content)
	require.Equal(t, "assistant", transcript[1].Role)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/"+session.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGetMissingSession(t *testing.T) {
	ts := newTestServer(t, &scriptedModel{})

	resp, err := http.Get(ts.URL + "/sessions/no-such-session")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDocumentUpload(t *testing.T) {
	ts := newTestServer(t, &scriptedModel{})

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", "Lab Results.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Fasting glucose 92 mg/dL. HbA1c 5.4%."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/documents", mw.FormDataContentType(), buf)
	require.NoError(t, err)
	var result struct {
		Collection string `json:"collection"`
		NumChunks  int    `json:"numChunks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "lab_results", result.Collection)
	require.Equal(t, 1, result.NumChunks)

	resp, err = http.Get(ts.URL + "/collections")
	require.NoError(t, err)
	var collections []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&collections))
	resp.Body.Close()
	require.Equal(t, []string{"lab_results"}, collections)
}

func TestDocumentUploadUnsupportedFormat(t *testing.T) {
	ts := newTestServer(t, &scriptedModel{})

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", "scan.docx")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not really a docx"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/documents", mw.FormDataContentType(), buf)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

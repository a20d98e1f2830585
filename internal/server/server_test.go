package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shouni/gemini-post-kit/internal/metrics"
	"github.com/shouni/gemini-post-kit/internal/store"
	"github.com/shouni/gemini-post-kit/pkg/domain"
	"github.com/shouni/gemini-post-kit/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeGeneration(t *testing.T, w *httptest.ResponseRecorder) generationResponse {
	t.Helper()
	var resp generationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func generationBody(media domain.MediaType) map[string]any {
	return map[string]any{
		"topic":     "Receita rápida de café da manhã saudável",
		"audience":  "Mães ocupadas",
		"tone":      "fun",
		"mediaType": string(media),
	}
}

func TestServer_StaticEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, nil, Options{})
	h := ts.Handler()

	t.Run("health", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("画面を返す", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Gerar post")
		assert.Contains(t, w.Body.String(), "📚 Educativo")
	})

	t.Run("クリアはトピックと参照画像だけを消す", func(t *testing.T) {
		page := doJSON(t, h, http.MethodGet, "/", nil).Body.String()
		assert.Contains(t, page, "function removeReferenceImage(index)")

		start := strings.Index(page, `$("clear").addEventListener`)
		require.NotEqual(t, -1, start)
		end := strings.Index(page[start:], "});")
		require.NotEqual(t, -1, end)
		handler := page[start : start+end]
		assert.Contains(t, handler, `$("topic").value = ""`)
		assert.Contains(t, handler, "references = []")
		assert.NotContains(t, handler, "audience")
	})

	t.Run("選択肢とデフォルト", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/api/options", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Options  domain.Options          `json:"options"`
			Defaults domain.GenerationConfig `json:"defaults"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Options.Tones, 7)
		assert.Len(t, body.Options.AspectRatios, 4)
		assert.Equal(t, domain.ToneProfessional, body.Defaults.Tone)
	})

	t.Run("ランダムなトピック", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/api/topics/random", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, domain.SuggestedTopics, body["topic"])
	})

	t.Run("リクエストIDを引き継ぐ", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

		w = doJSON(t, h, http.MethodGet, "/health", nil)
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})
}

func TestServer_CreateGeneration(t *testing.T) {
	t.Run("受け付けた時点で両方のフラグが立ち、完了後に結果が読める", func(t *testing.T) {
		gen := &mockGenerator{release: make(chan struct{}), imageURL: "data:image/png;base64,iVBORw0KGgo="}
		ts := newTestServer(t, gen, nil, Options{})
		h := ts.Handler()

		w := doJSON(t, h, http.MethodPost, "/api/generations", generationBody(domain.MediaImage))
		require.Equal(t, http.StatusAccepted, w.Code)
		created := decodeGeneration(t, w)
		require.NotEmpty(t, created.ID)
		assert.True(t, created.State.Status.IsGeneratingText)
		assert.True(t, created.State.Status.IsGeneratingMedia)

		close(gen.release)
		ts.Wait()

		w = doJSON(t, h, http.MethodGet, "/api/generations/"+created.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeGeneration(t, w)
		assert.False(t, got.State.Status.IsGeneratingText)
		assert.False(t, got.State.Status.IsGeneratingMedia)
		assert.Equal(t, "Legenda de teste", got.State.Content.Caption)
		assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", got.State.Content.ImageURL)
		assert.Empty(t, got.State.Content.VideoURL)
	})

	t.Run("生成中の同じセッションは 409", func(t *testing.T) {
		gen := &mockGenerator{release: make(chan struct{}), imageURL: "data:image/png;base64,AA=="}
		ts := newTestServer(t, gen, nil, Options{})
		h := ts.Handler()

		body := generationBody(domain.MediaImage)
		body["sessionId"] = "session-1"
		require.Equal(t, http.StatusAccepted, doJSON(t, h, http.MethodPost, "/api/generations", body).Code)
		assert.Equal(t, http.StatusConflict, doJSON(t, h, http.MethodPost, "/api/generations", body).Code)

		close(gen.release)
		ts.Wait()
		assert.Equal(t, http.StatusAccepted, doJSON(t, h, http.MethodPost, "/api/generations", body).Code, "完了後は再生成できる")
	})

	t.Run("トピックが空なら 400 で何も保存しない", func(t *testing.T) {
		ts := newTestServer(t, nil, nil, Options{})
		body := generationBody(domain.MediaImage)
		body["topic"] = "   "
		body["sessionId"] = "empty-topic"

		w := doJSON(t, ts.Handler(), http.MethodPost, "/api/generations", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		_, err := ts.store.Load(t.Context(), "empty-topic")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("未定義の列挙値は 400", func(t *testing.T) {
		ts := newTestServer(t, nil, nil, Options{})
		body := generationBody(domain.MediaImage)
		body["aspectRatio"] = "4:5"

		w := doJSON(t, ts.Handler(), http.MethodPost, "/api/generations", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "aspectRatio")
	})

	t.Run("壊れたJSONは 400", func(t *testing.T) {
		ts := newTestServer(t, nil, nil, Options{})
		req := httptest.NewRequest(http.MethodPost, "/api/generations", strings.NewReader("{"))
		w := httptest.NewRecorder()
		ts.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("キー選択に失敗したら 412 でエラーを返す", func(t *testing.T) {
		keys := &refusingSelector{}
		ts := newTestServer(t, nil, keys, Options{})
		body := generationBody(domain.MediaVideo)
		body["sessionId"] = "video-1"

		w := doJSON(t, ts.Handler(), http.MethodPost, "/api/generations", body)
		require.Equal(t, http.StatusPreconditionFailed, w.Code)
		resp := decodeGeneration(t, w)
		assert.Equal(t, domain.MsgCredentialRequired, resp.State.Status.Error)
		assert.False(t, resp.State.Status.IsGeneratingText)
		assert.False(t, resp.State.Status.IsGeneratingMedia)

		w = doJSON(t, ts.Handler(), http.MethodGet, "/api/generations/video-1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, domain.MsgCredentialRequired, decodeGeneration(t, w).State.Status.Error)
	})

	t.Run("流量制限を超えたら 429", func(t *testing.T) {
		ts := newTestServer(t, nil, nil, Options{RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}})
		h := ts.Handler()

		assert.Equal(t, http.StatusAccepted, doJSON(t, h, http.MethodPost, "/api/generations", generationBody(domain.MediaImage)).Code)
		assert.Equal(t, http.StatusTooManyRequests, doJSON(t, h, http.MethodPost, "/api/generations", generationBody(domain.MediaImage)).Code)
		assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/health", nil).Code, "生成以外のルートは制限しない")
	})
}

func TestServer_GetGenerationNotFound(t *testing.T) {
	ts := newTestServer(t, nil, nil, Options{})
	assert.Equal(t, http.StatusNotFound, doJSON(t, ts.Handler(), http.MethodGet, "/api/generations/unknown", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, ts.Handler(), http.MethodGet, "/api/generations/unknown/download", nil).Code)
}

func TestServer_Download(t *testing.T) {
	t.Run("画像は .png で返す", func(t *testing.T) {
		ts := newTestServer(t, nil, nil, Options{})
		require.NoError(t, ts.store.Save(t.Context(), "img", orchestrator.Snapshot{
			Content: domain.GeneratedContent{ImageURL: "data:image/png;base64,iVBORw0KGgo="},
		}))

		w := doJSON(t, ts.Handler(), http.MethodGet, "/api/generations/img/download", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `attachment; filename="one-ai-1700000000000.png"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, w.Body.Bytes())
	})

	t.Run("動画は取得して .mp4 で返す", func(t *testing.T) {
		ts := newTestServer(t, nil, nil, Options{})
		require.NoError(t, ts.store.Save(t.Context(), "vid", orchestrator.Snapshot{
			Content: domain.GeneratedContent{VideoURL: "https://example.com/v.mp4?key=k"},
		}))

		w := doJSON(t, ts.Handler(), http.MethodGet, "/api/generations/vid/download", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `attachment; filename="one-ai-1700000000000.mp4"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
		assert.Equal(t, "mp4-bytes", w.Body.String())
		assert.Equal(t, []string{"https://example.com/v.mp4?key=k"}, ts.fetcher.urls)
	})

	t.Run("動画の取得に失敗したら 502", func(t *testing.T) {
		ts := newTestServer(t, nil, nil, Options{})
		ts.fetcher.err = errRefused
		require.NoError(t, ts.store.Save(t.Context(), "vid", orchestrator.Snapshot{
			Content: domain.GeneratedContent{VideoURL: "https://example.com/v.mp4"},
		}))

		w := doJSON(t, ts.Handler(), http.MethodGet, "/api/generations/vid/download", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("メディアがなければ 404", func(t *testing.T) {
		ts := newTestServer(t, nil, nil, Options{})
		require.NoError(t, ts.store.Save(t.Context(), "text-only", orchestrator.Snapshot{
			Content: domain.GeneratedContent{Caption: "só texto"},
		}))

		w := doJSON(t, ts.Handler(), http.MethodGet, "/api/generations/text-only/download", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_EnhancePrompt(t *testing.T) {
	ts := newTestServer(t, nil, nil, Options{})

	w := doJSON(t, ts.Handler(), http.MethodPost, "/api/prompts/enhance", map[string]string{"draft": "café"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"prompt":"enhanced: café"}`, w.Body.String())

	w = doJSON(t, ts.Handler(), http.MethodPost, "/api/prompts/enhance", map[string]string{"draft": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"café"}, ts.enhancer.drafts)
}

func pngFile(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, files map[string][]byte, order []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestServer_UploadReferences(t *testing.T) {
	ts := newTestServer(t, nil, nil, Options{})

	t.Run("選択順のまま data URL にする", func(t *testing.T) {
		first, second := pngFile(t, 1, 1), pngFile(t, 2, 2)
		body, contentType := multipartBody(t, map[string][]byte{"a.png": first, "b.png": second}, []string{"a.png", "b.png"})
		req := httptest.NewRequest(http.MethodPost, "/api/references", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		ts.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			ReferenceImages []string `json:"referenceImages"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.ReferenceImages, 2)
		assert.True(t, strings.HasPrefix(resp.ReferenceImages[0], "data:image/png;base64,"))
		assert.NotEqual(t, resp.ReferenceImages[0], resp.ReferenceImages[1])
	})

	t.Run("画像以外は 400", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string][]byte{"a.txt": []byte("hello")}, []string{"a.txt"})
		req := httptest.NewRequest(http.MethodPost, "/api/references", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		ts.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ファイルがなければ 400", func(t *testing.T) {
		body, contentType := multipartBody(t, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/references", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		ts.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := New(Deps{
		Orchestrator:   orchestrator.New(&mockGenerator{imageURL: "data:image/png;base64,AA=="}, nil, orchestrator.WithRecorder(m)),
		Enhancer:       &mockEnhancer{},
		Store:          store.NewMemoryStore(0),
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, Options{})

	require.Equal(t, http.StatusAccepted, doJSON(t, s.Handler(), http.MethodPost, "/api/generations", generationBody(domain.MediaImage)).Code)
	s.Wait()

	w := doJSON(t, s.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gemini_post_kit_http_requests_total")
	assert.Contains(t, w.Body.String(), "gemini_post_kit_generation_branch_total")
	assert.Contains(t, w.Body.String(), `gemini_post_kit_generation_cycles_total{media_type="image",result="completed"} 1`)
}

func TestServer_Metrics_UnknownMediaType(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := New(Deps{
		Orchestrator:   orchestrator.New(&mockGenerator{}, nil, orchestrator.WithRecorder(m)),
		Enhancer:       &mockEnhancer{},
		Store:          store.NewMemoryStore(0),
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, Options{})

	for _, media := range []domain.MediaType{"garbage-xyz", "garbage-abc"} {
		w := doJSON(t, s.Handler(), http.MethodPost, "/api/generations", generationBody(media))
		require.Equal(t, http.StatusBadRequest, w.Code)
	}

	w := doJSON(t, s.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "garbage")
	assert.Contains(t, body, `gemini_post_kit_generation_cycles_total{media_type="invalid",result="rejected"} 2`)
}

func TestMediaLabel(t *testing.T) {
	assert.Equal(t, "image", mediaLabel(""))
	assert.Equal(t, "image", mediaLabel(domain.MediaImage))
	assert.Equal(t, "video", mediaLabel(domain.MediaVideo))
	assert.Equal(t, "invalid", mediaLabel("VIDEO"))
}

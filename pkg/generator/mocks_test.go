package generator

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// --- Mocks ---

type aiCall struct {
	model string
	parts []*genai.Part
	opts  gemini.GenerateOptions
}

// mockAIClient は gemini.GenerativeModel のモックです。
type mockAIClient struct {
	mu       sync.Mutex
	calls    []aiCall
	generate func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

func (m *mockAIClient) GenerateContent(ctx context.Context, model string, prompt string) (*gemini.Response, error) {
	return m.GenerateWithParts(ctx, model, []*genai.Part{{Text: prompt}}, gemini.GenerateOptions{})
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, aiCall{model: model, parts: parts, opts: opts})
	m.mu.Unlock()
	if m.generate != nil {
		return m.generate(model, parts, opts)
	}
	return nil, nil
}

func (m *mockAIClient) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	return "", "", nil
}

func (m *mockAIClient) DeleteFile(ctx context.Context, fileName string) error {
	return nil
}

func (m *mockAIClient) lastCall() aiCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

type contentCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type mockContentModel struct {
	mu       sync.Mutex
	calls    []contentCall
	generate func(model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockContentModel) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, contentCall{model: model, contents: contents, config: config})
	m.mu.Unlock()
	if m.generate != nil {
		return m.generate(model, contents, config)
	}
	return nil, nil
}

func (m *mockContentModel) lastCall() contentCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

type videoCall struct {
	model  string
	prompt string
	image  *genai.Image
	config *genai.GenerateVideosConfig
}

type mockVideoModel struct {
	calls []videoCall
	op    *genai.GenerateVideosOperation
	err   error
}

func (m *mockVideoModel) GenerateVideos(ctx context.Context, model string, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	m.calls = append(m.calls, videoCall{model: model, prompt: prompt, image: image, config: config})
	return m.op, m.err
}

// mockPoller は呼ばれるたびに states を先頭から順に返します。
type mockPoller struct {
	states []*genai.GenerateVideosOperation
	err    error
	polls  int
}

func (m *mockPoller) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation, config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error) {
	m.polls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.states) == 0 {
		return op, nil
	}
	next := m.states[0]
	m.states = m.states[1:]
	return next, nil
}

type mockHTTPClient struct {
	data  []byte
	err   error
	calls int
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	return m.data, m.err
}

type mockReader struct {
	data []byte
	err  error
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(string(m.data))), nil
}

type mockCache struct {
	data map[string]any
}

func (m *mockCache) Get(key string) (any, bool) {
	val, ok := m.data[key]
	return val, ok
}

func (m *mockCache) Set(key string, value any, d time.Duration) {
	m.data[key] = value
}

// --- Helpers ---

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func imageResponse(mimeType string, data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			}},
		}},
	}
}

// aiResponse は gemini クライアントと同じく、最初のテキストパーツを Text に入れて包みます。
func aiResponse(raw *genai.GenerateContentResponse) *gemini.Response {
	resp := &gemini.Response{RawResponse: raw}
	if len(raw.Candidates) > 0 && raw.Candidates[0].Content != nil {
		for _, p := range raw.Candidates[0].Content.Parts {
			if p.Text != "" {
				resp.Text = p.Text
				break
			}
		}
	}
	return resp
}

func doneOperation(uri string) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{
		Name: "operations/done",
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{URI: uri}}},
		},
	}
}

func newAITestClient(t interface{ Fatalf(string, ...any) }, ai *mockAIClient, opts Options) *Client {
	c, err := NewClient(ai, &mockContentModel{}, &mockVideoModel{}, &mockPoller{}, nil, opts)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func newTestClient(t interface{ Fatalf(string, ...any) }, content *mockContentModel, video *mockVideoModel, poller *mockPoller, opts Options) *Client {
	if content == nil {
		content = &mockContentModel{}
	}
	if video == nil {
		video = &mockVideoModel{}
	}
	if poller == nil {
		poller = &mockPoller{}
	}
	c, err := NewClient(&mockAIClient{}, content, video, poller, nil, opts)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

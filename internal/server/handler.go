package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shouni/gemini-post-kit/internal/store"
	"github.com/shouni/gemini-post-kit/pkg/domain"
	"github.com/shouni/gemini-post-kit/pkg/imgutil"
	"github.com/shouni/gemini-post-kit/pkg/orchestrator"
)

// generationRequest は生成リクエストです。SessionID を指定すると同じセッションで再生成します。
type generationRequest struct {
	SessionID string `json:"sessionId"`
	domain.GenerationConfig
}

type generationResponse struct {
	ID    string                `json:"id"`
	State orchestrator.Snapshot `json:"state"`
}

type enhanceRequest struct {
	Draft string `json:"draft"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Options":  domain.FormOptions(),
		"Defaults": domain.DefaultGenerationConfig(),
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"options":  domain.FormOptions(),
		"defaults": domain.DefaultGenerationConfig(),
	})
}

func (s *Server) randomTopic(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"topic": domain.RandomTopic()})
}

// createGeneration は検証とキー選択を同期的に行い、生成自体はバックグラウンドで進めます。
func (s *Server) createGeneration(c *gin.Context) {
	var req generationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = uuid.NewString()
	}

	// 同じセッションの二重実行を防ぐ
	if _, busy := s.inflight.LoadOrStore(id, struct{}{}); busy {
		c.JSON(http.StatusConflict, errorResponse{Error: "generation already in progress"})
		return
	}

	st := s.session(id)
	ctx := c.Request.Context()

	cfg, err := s.deps.Orchestrator.Prepare(ctx, req.GenerationConfig, st)
	if err != nil {
		s.inflight.Delete(id)
		s.countCycle(req.MediaType, "rejected")
		switch {
		case errors.Is(err, orchestrator.ErrCredentialRequired):
			c.JSON(http.StatusPreconditionFailed, generationResponse{ID: id, State: st.Snapshot()})
		case errors.Is(err, domain.ErrEmptyTopic), errors.Is(err, domain.ErrInvalidOption):
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			slog.ErrorContext(ctx, "生成の準備に失敗しました", "error", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to prepare generation"})
		}
		return
	}

	// リクエストが終わってもサイクルは続ける
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if s.opts.CycleTimeout > 0 {
		runCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), s.opts.CycleTimeout)
	} else {
		runCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))
	}

	s.cycles.Add(1)
	if s.deps.Metrics != nil {
		s.deps.Metrics.CyclesInFlight.Inc()
	}
	done := s.deps.Orchestrator.Start(runCtx, cfg, st)
	go func() {
		defer s.cycles.Done()
		<-done
		cancel()
		s.inflight.Delete(id)
		if s.deps.Metrics != nil {
			s.deps.Metrics.CyclesInFlight.Dec()
		}
		s.countCycle(cfg.MediaType, "completed")
	}()

	c.JSON(http.StatusAccepted, generationResponse{ID: id, State: st.Snapshot()})
}

// session は ID に対応する State を返します。初めての ID なら作成して保存先と結びつけます。
func (s *Server) session(id string) *orchestrator.State {
	if v, ok := s.live.Get(id); ok {
		if st, ok := v.(*orchestrator.State); ok {
			s.live.Set(id, st, cache.DefaultExpiration)
			return st
		}
	}
	st := orchestrator.NewState(s.persist(id))
	s.live.Set(id, st, cache.DefaultExpiration)
	return st
}

// persist は状態が変わるたびにスナップショットを保存する Observer です。
func (s *Server) persist(id string) orchestrator.Observer {
	return func(snap orchestrator.Snapshot) {
		if err := s.deps.Store.Save(context.Background(), id, snap); err != nil {
			slog.Warn("生成状態の保存に失敗しました", "id", id, "error", err)
		}
	}
}

func (s *Server) countCycle(media domain.MediaType, result string) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.CyclesTotal.WithLabelValues(mediaLabel(media), result).Inc()
}

// mediaLabel はメトリクスのラベル値を image / video / invalid のいずれかに丸めます。
func mediaLabel(media domain.MediaType) string {
	switch media {
	case "", domain.MediaImage:
		return string(domain.MediaImage)
	case domain.MediaVideo:
		return string(domain.MediaVideo)
	default:
		return "invalid"
	}
}

func (s *Server) loadSnapshot(c *gin.Context) (orchestrator.Snapshot, bool) {
	snap, err := s.deps.Store.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "generation not found"})
			return snap, false
		}
		slog.ErrorContext(c.Request.Context(), "生成状態の読み込みに失敗しました", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load generation"})
		return snap, false
	}
	return snap, true
}

func (s *Server) getGeneration(c *gin.Context) {
	snap, ok := s.loadSnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, generationResponse{ID: c.Param("id"), State: snap})
}

// downloadMedia は表示中のメディアを one-ai-<unix ミリ秒>.<ext> という名前で返します。
func (s *Server) downloadMedia(c *gin.Context) {
	snap, ok := s.loadSnapshot(c)
	if !ok {
		return
	}
	content := snap.Content
	if !content.HasMedia() {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no media to download"})
		return
	}

	var (
		data     []byte
		mimeType string
	)
	if content.VideoURL != "" {
		if s.deps.Fetcher == nil {
			c.JSON(http.StatusNotImplemented, errorResponse{Error: "video download is not configured"})
			return
		}
		b, err := s.deps.Fetcher.FetchBytes(c.Request.Context(), content.VideoURL)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "動画の取得に失敗しました", "error", err)
			c.JSON(http.StatusBadGateway, errorResponse{Error: "failed to fetch video"})
			return
		}
		data, mimeType = b, "video/mp4"
	} else {
		m, b, err := imgutil.ParseDataURL(content.ImageURL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "stored image is corrupted"})
			return
		}
		data, mimeType = b, m
	}

	filename := content.DownloadName(s.now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, mimeType, data)
}

func (s *Server) enhancePrompt(c *gin.Context) {
	var req enhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Draft) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "draft is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": s.deps.Enhancer.EnhancePrompt(c.Request.Context(), req.Draft)})
}

// uploadReferences はアップロードされた画像を選択順のまま data URL にします。
func (s *Server) uploadReferences(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "no files uploaded"})
		return
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		dataURL, err := fileToDataURL(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("%s: %v", fh.Filename, err)})
			return
		}
		urls = append(urls, dataURL)
	}
	c.JSON(http.StatusOK, gin.H{"referenceImages": urls})
}

func fileToDataURL(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("not an image (%s)", mimeType)
	}
	return imgutil.EncodeDataURL(mimeType, data), nil
}

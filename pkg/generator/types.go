package generator

import (
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultTextModel       = "gemini-2.5-flash"
	DefaultImageModel      = "gemini-2.5-flash-image"
	DefaultVideoModel      = "veo-3.1-fast-generate-preview"
	DefaultVideoResolution = "720p"
	DefaultTemperature     = float32(0.8)
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollAttempts = 120

	// refusalPreviewLength は拒否メッセージを画面に出すときの最大文字数です。
	refusalPreviewLength = 100
	cacheKeyReference    = "reference:"
)

var (
	ErrNoTextPayload = errors.New("não foi possível gerar o texto")
	ErrNoImage       = errors.New("Nenhuma imagem gerada. Tente simplificar o tópico ou trocar as referências.")
	ErrNoVideoURI    = errors.New("Vídeo gerado, mas URI não encontrado.")
	ErrPollExhausted = errors.New("video operation did not finish within the poll limit")
)

// authFailureSignature は API キーが無効なときにプロバイダが返すメッセージの断片です。
const authFailureSignature = "Requested entity was not found"

// TextResult はキャプション生成の結果です。レスポンススキーマと同じ形をしています。
type TextResult struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

// Options はモデル名やポーリング間隔など、生成クライアントの挙動を決める設定です。
type Options struct {
	TextModel       string
	ImageModel      string
	VideoModel      string
	VideoResolution string
	// Temperature が nil なら DefaultTemperature を使います。0 も有効な値です。
	Temperature  *float32
	PollInterval time.Duration
	// MaxPollAttempts が 0 以下なら上限なしでポーリングします。
	MaxPollAttempts int
	// APIKey は動画 URI を直接取得できるようにクエリに付与する鍵です。
	APIKey func() string
}

// DefaultOptions は推奨されるデフォルト設定を返します。
func DefaultOptions() Options {
	return Options{
		TextModel:       DefaultTextModel,
		ImageModel:      DefaultImageModel,
		VideoModel:      DefaultVideoModel,
		VideoResolution: DefaultVideoResolution,
		Temperature:     genai.Ptr(DefaultTemperature),
		PollInterval:    DefaultPollInterval,
		MaxPollAttempts: DefaultMaxPollAttempts,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TextModel == "" {
		o.TextModel = def.TextModel
	}
	if o.ImageModel == "" {
		o.ImageModel = def.ImageModel
	}
	if o.VideoModel == "" {
		o.VideoModel = def.VideoModel
	}
	if o.VideoResolution == "" {
		o.VideoResolution = def.VideoResolution
	}
	if o.Temperature == nil {
		o.Temperature = def.Temperature
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	return o
}

// IsAuthFailure は err が API キーの再選択を要する失敗かを判定します。
func IsAuthFailure(err error) bool {
	return err != nil && strings.Contains(err.Error(), authFailureSignature)
}

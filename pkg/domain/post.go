package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrEmptyTopic はトピックが空のまま生成が要求されたことを示します。
	ErrEmptyTopic = errors.New("topic is required")
	// ErrInvalidOption は列挙値として定義されていない値が指定されたことを示します。
	ErrInvalidOption = errors.New("invalid option")
)

// Tone は投稿の語り口です。
type Tone string

const (
	ToneProfessional  Tone = "professional"
	ToneFun           Tone = "fun"
	ToneMinimalist    Tone = "minimalist"
	ToneInspirational Tone = "inspirational"
	ToneWitty         Tone = "witty"
	ToneUrgent        Tone = "urgent"
	ToneEducational   Tone = "educational"
)

// PostGoal は投稿の目的です。
type PostGoal string

const (
	GoalEngagement PostGoal = "engagement"
	GoalSales      PostGoal = "sales"
	GoalAwareness  PostGoal = "awareness"
	GoalEducation  PostGoal = "education"
)

// VisualStyle は画像・動画の画風です。
type VisualStyle string

const (
	StylePhotography VisualStyle = "photography"
	StyleDigitalArt  VisualStyle = "digital_art"
	StyleMinimalist  VisualStyle = "minimalist"
	StyleVintage     VisualStyle = "vintage"
	StyleCyberpunk   VisualStyle = "cyberpunk"
	StyleMagazine    VisualStyle = "magazine"
)

// CaptionLength はキャプションの長さです。
type CaptionLength string

const (
	LengthShort  CaptionLength = "short"
	LengthMedium CaptionLength = "medium"
	LengthLong   CaptionLength = "long"
)

// AspectRatio は生成メディアのアスペクト比です。値はそのままプロバイダに渡します。
type AspectRatio string

const (
	RatioSquare    AspectRatio = "1:1"
	RatioPortrait  AspectRatio = "3:4"
	RatioStory     AspectRatio = "9:16"
	RatioLandscape AspectRatio = "16:9"
)

// MediaType は生成するメディアの種類です。
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// プロンプトに埋め込む値。
var (
	toneValues = map[Tone]string{
		ToneProfessional:  "Profissional",
		ToneFun:           "Divertido",
		ToneMinimalist:    "Minimalista",
		ToneInspirational: "Inspiracional",
		ToneWitty:         "Engraçado/Irônico",
		ToneUrgent:        "Urgente/Escasso",
		ToneEducational:   "Educativo",
	}
	goalValues = map[PostGoal]string{
		GoalEngagement: "Engajamento",
		GoalSales:      "Vendas/Conversão",
		GoalAwareness:  "Reconhecimento de Marca",
		GoalEducation:  "Educação/Valor",
	}
	styleValues = map[VisualStyle]string{
		StylePhotography: "Fotografia Realista",
		StyleDigitalArt:  "Arte Digital/3D",
		StyleMinimalist:  "Minimalista Clean",
		StyleVintage:     "Vintage/Retro",
		StyleCyberpunk:   "Futurista/Cyberpunk",
		StyleMagazine:    "Editorial de Revista",
	}
	lengthValues = map[CaptionLength]string{
		LengthShort:  "Curta (Direta)",
		LengthMedium: "Média (Equilibrada)",
		LengthLong:   "Longa (Storytelling)",
	}
	aspectRatios = []AspectRatio{RatioSquare, RatioPortrait, RatioStory, RatioLandscape}
)

func (t Tone) Value() string          { return toneValues[t] }
func (g PostGoal) Value() string      { return goalValues[g] }
func (s VisualStyle) Value() string   { return styleValues[s] }
func (l CaptionLength) Value() string { return lengthValues[l] }

// GenerationConfig は1回の生成リクエストを表すレコードです。
// 入力側で自由に書き換えられるため、オーケストレーターには Clone したスナップショットを渡します。
type GenerationConfig struct {
	Topic           string        `json:"topic"`
	Audience        string        `json:"audience"`
	Tone            Tone          `json:"tone"`
	Goal            PostGoal      `json:"goal"`
	VisualStyle     VisualStyle   `json:"visualStyle"`
	CaptionLength   CaptionLength `json:"captionLength"`
	AspectRatio     AspectRatio   `json:"aspectRatio"`
	MediaType       MediaType     `json:"mediaType"`
	ReferenceImages []string      `json:"referenceImages"`
}

// DefaultGenerationConfig はフォームの初期状態を返します。
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Tone:            ToneProfessional,
		Goal:            GoalEngagement,
		VisualStyle:     StylePhotography,
		CaptionLength:   LengthMedium,
		AspectRatio:     RatioSquare,
		MediaType:       MediaImage,
		ReferenceImages: []string{},
	}
}

// Clone は参照画像スライスを共有しないコピーを返します。
func (c GenerationConfig) Clone() GenerationConfig {
	out := c
	out.ReferenceImages = slices.Clone(c.ReferenceImages)
	if out.ReferenceImages == nil {
		out.ReferenceImages = []string{}
	}
	return out
}

// WithDefaults は未指定の列挙値をデフォルトで埋めたコピーを返します。
func (c GenerationConfig) WithDefaults() GenerationConfig {
	def := DefaultGenerationConfig()
	out := c.Clone()
	if out.Tone == "" {
		out.Tone = def.Tone
	}
	if out.Goal == "" {
		out.Goal = def.Goal
	}
	if out.VisualStyle == "" {
		out.VisualStyle = def.VisualStyle
	}
	if out.CaptionLength == "" {
		out.CaptionLength = def.CaptionLength
	}
	if out.AspectRatio == "" {
		out.AspectRatio = def.AspectRatio
	}
	if out.MediaType == "" {
		out.MediaType = def.MediaType
	}
	return out
}

// HasTopic は送信可能なトピックが入力されているかを返します。
func (c GenerationConfig) HasTopic() bool {
	return strings.TrimSpace(c.Topic) != ""
}

// Validate はトピックの有無と列挙値の妥当性を検証します。
func (c GenerationConfig) Validate() error {
	if !c.HasTopic() {
		return ErrEmptyTopic
	}
	if _, ok := toneValues[c.Tone]; !ok {
		return fmt.Errorf("%w: tone %q", ErrInvalidOption, c.Tone)
	}
	if _, ok := goalValues[c.Goal]; !ok {
		return fmt.Errorf("%w: goal %q", ErrInvalidOption, c.Goal)
	}
	if _, ok := styleValues[c.VisualStyle]; !ok {
		return fmt.Errorf("%w: visualStyle %q", ErrInvalidOption, c.VisualStyle)
	}
	if _, ok := lengthValues[c.CaptionLength]; !ok {
		return fmt.Errorf("%w: captionLength %q", ErrInvalidOption, c.CaptionLength)
	}
	if !slices.Contains(aspectRatios, c.AspectRatio) {
		return fmt.Errorf("%w: aspectRatio %q", ErrInvalidOption, c.AspectRatio)
	}
	if c.MediaType != MediaImage && c.MediaType != MediaVideo {
		return fmt.Errorf("%w: mediaType %q", ErrInvalidOption, c.MediaType)
	}
	return nil
}

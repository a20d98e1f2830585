package domain

import (
	"fmt"
	"strings"
	"time"
)

// GeneratedContent は1サイクル分の生成結果です。
// ImageURL と VideoURL はどちらか一方だけが埋まります。
type GeneratedContent struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
	ImageURL string   `json:"imageUrl,omitempty"`
	VideoURL string   `json:"videoUrl,omitempty"`
}

// EmptyContent はサイクル開始時の空の結果を返します。
func EmptyContent() GeneratedContent {
	return GeneratedContent{Hashtags: []string{}}
}

// HasMedia は画像か動画のどちらかが生成済みかを返します。
func (c GeneratedContent) HasMedia() bool {
	return c.ImageURL != "" || c.VideoURL != ""
}

// MediaExtension はダウンロード時の拡張子です。動画があれば .mp4、それ以外は .png です。
func (c GeneratedContent) MediaExtension() string {
	if c.VideoURL != "" {
		return ".mp4"
	}
	return ".png"
}

// DownloadName は保存時のファイル名 one-ai-<unix ミリ秒><拡張子> を返します。
func (c GeneratedContent) DownloadName(now time.Time) string {
	return fmt.Sprintf("one-ai-%d%s", now.UnixMilli(), c.MediaExtension())
}

// HashtagText はクリップボードにコピーするハッシュタグ文字列です。
func (c GeneratedContent) HashtagText() string {
	return strings.Join(c.Hashtags, " ")
}

// GenerationStatus はテキストとメディアそれぞれの処理状況です。
// 2つのフラグは互いに独立して変化します。
type GenerationStatus struct {
	IsGeneratingText  bool         `json:"isGeneratingText"`
	IsGeneratingMedia bool         `json:"isGeneratingMedia"`
	Error             string       `json:"error,omitempty"`
	Errors            []ErrorEntry `json:"errors,omitempty"`
}

// IsBusy はどちらかの処理が進行中かを返します。
func (s GenerationStatus) IsBusy() bool {
	return s.IsGeneratingText || s.IsGeneratingMedia
}

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/shouni/gemini-post-kit/pkg/domain"
	"github.com/shouni/gemini-post-kit/pkg/imgutil"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-utils/urlpath"
)

// mediaWriter は生成メディアの保存先です。remoteio.OutputWriter が満たします。
type mediaWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}

type mediaFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// resolveOutputPath は保存先を決めます。未指定かディレクトリ指定なら one-ai-<ミリ秒><拡張子> を使います。
func resolveOutputPath(output string, content domain.GeneratedContent, now time.Time) (string, error) {
	name := content.DownloadName(now)
	switch {
	case output == "":
		return name, nil
	case strings.HasSuffix(output, "/"), strings.HasSuffix(output, string(os.PathSeparator)):
		p, err := urlpath.ResolvePath(output, name)
		if err != nil {
			return "", fmt.Errorf("保存先の解決に失敗しました: %w", err)
		}
		return p, nil
	default:
		return output, nil
	}
}

// selectWriter は保存に使うライターを返します。w が nil ならローカルと GCS を扱う汎用ライターを使います。
func selectWriter(w mediaWriter, gcsEnabled bool, p string) (mediaWriter, error) {
	if urlpath.IsRemoteURI(p) && !gcsEnabled {
		return nil, fmt.Errorf("リモートへの保存には reference.gcs_enabled を有効にしてください: %s", p)
	}
	if w == nil {
		return remoteio.NewUniversalIOWriter(nil, nil), nil
	}
	return w, nil
}

// saveMedia は生成されたメディアを p に書き込みます。動画は URI からダウンロードします。
func saveMedia(ctx context.Context, fetcher mediaFetcher, w mediaWriter, content domain.GeneratedContent, p string) error {
	var (
		data     []byte
		mimeType string
	)
	switch {
	case content.VideoURL != "":
		if fetcher == nil {
			return fmt.Errorf("動画を取得する HTTP クライアントがありません")
		}
		b, err := fetcher.FetchBytes(ctx, content.VideoURL)
		if err != nil {
			return fmt.Errorf("動画のダウンロードに失敗しました: %w", err)
		}
		data, mimeType = b, "video/mp4"
	case content.ImageURL != "":
		m, b, err := imgutil.ParseDataURL(content.ImageURL)
		if err != nil {
			return fmt.Errorf("画像データの解析に失敗しました: %w", err)
		}
		data, mimeType = b, m
	default:
		return fmt.Errorf("保存するメディアがありません")
	}

	if err := w.Write(ctx, p, bytes.NewReader(data), mimeType); err != nil {
		return fmt.Errorf("メディアの保存に失敗しました (%s): %w", path.Base(p), err)
	}
	return nil
}

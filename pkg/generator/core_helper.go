package generator

import (
	"fmt"
	"strings"

	"github.com/shouni/gemini-post-kit/pkg/imgutil"
	"google.golang.org/genai"
)

// RefusalError は画像の代わりに説明文だけが返ってきたことを表します。
type RefusalError struct {
	Text string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("O modelo retornou texto ao invés de imagem: %q", truncateRunes(e.Text, refusalPreviewLength))
}

// imageFromResponse はレスポンスから最初の画像パーツを data URL として取り出します。
// 画像がなくテキストだけがある場合は RefusalError を返します。
func imageFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoImage
	}

	// 最初の候補 (Candidate) のみを利用する。
	candidate := resp.Candidates[0]

	var textFallback strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return imgutil.EncodeDataURL(part.InlineData.MIMEType, part.InlineData.Data), nil
			}
			if part.Text != "" {
				textFallback.WriteString(part.Text)
			}
		}
	}

	if textFallback.Len() > 0 {
		return "", &RefusalError{Text: textFallback.String()}
	}

	// 安全フィルター等によるブロックの確認
	if candidate.FinishReason != "" && candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return "", fmt.Errorf("%w (FinishReason: %s)", ErrNoImage, candidate.FinishReason)
	}
	return "", ErrNoImage
}

package imgutil

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

// DefaultQuality は参照画像を再圧縮するときの JPEG 品質です。
const DefaultQuality = 75

// CompressToJPEG は画像データ（PNG, GIF, JPEG等）をJPEG形式に圧縮します。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ShrinkIfLarger は data が maxBytes を超える場合だけ JPEG に再圧縮します。
// 再圧縮できない、または小さくならない場合は元のデータと MIME タイプをそのまま返します。
func ShrinkIfLarger(data []byte, mimeType string, maxBytes int) ([]byte, string) {
	if maxBytes <= 0 || len(data) <= maxBytes {
		return data, mimeType
	}
	compressed, err := CompressToJPEG(data, DefaultQuality)
	if err != nil || len(compressed) >= len(data) {
		return data, mimeType
	}
	return compressed, "image/jpeg"
}

package imgutil

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotDataURL は data URL として解釈できない文字列であることを示します。
var ErrNotDataURL = errors.New("not a base64 data URL")

var dataURLPattern = regexp.MustCompile(`^data:(.+);base64,(.+)$`)

// IsDataURL は s が data URL の形をしているかを返します。
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURL は data:<mime>;base64,<payload> を MIME タイプとバイト列に分解します。
func ParseDataURL(s string) (string, []byte, error) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return "", nil, ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, fmt.Errorf("base64 デコードに失敗しました: %w", err)
	}
	return m[1], data, nil
}

// EncodeDataURL はバイト列を data URL にします。
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

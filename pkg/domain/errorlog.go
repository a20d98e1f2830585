package domain

import (
	"slices"
	"strings"
)

// 画面に表示するメッセージ。
const (
	MsgTextFailed          = "Falha ao gerar o texto."
	MsgImageFailed         = "Falha ao gerar a imagem."
	MsgImageFailedAppended = "Falha ao gerar imagem."
	MsgVideoFailedPrefix   = "Falha ao gerar vídeo: "
	MsgVideoFailedAppended = "Falha ao gerar vídeo."
	MsgAuthReselect        = "Erro de autenticação. Por favor, selecione sua chave API novamente."
	MsgCredentialRequired  = "É necessário selecionar uma chave API paga para gerar vídeos com Veo."
)

// ErrorKind はエラーの発生元です。
type ErrorKind string

const (
	ErrorKindText       ErrorKind = "text"
	ErrorKindImage      ErrorKind = "image"
	ErrorKindVideo      ErrorKind = "video"
	ErrorKindAuth       ErrorKind = "auth"
	ErrorKindCredential ErrorKind = "credential"
)

// ErrorEntry はエラーログの1件です。
type ErrorEntry struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// ErrorLog はサイクル内で追記のみされるエラーの列です。
// 表示用には到着順にスペース区切りで連結します。
// 認証エラーが含まれる場合は再選択を促すメッセージだけを表示します。
type ErrorLog struct {
	entries []ErrorEntry
}

func (l *ErrorLog) Append(e ErrorEntry) {
	l.entries = append(l.entries, e)
}

func (l *ErrorLog) Reset() {
	l.entries = nil
}

func (l *ErrorLog) Len() int {
	return len(l.entries)
}

// Entries はエントリのコピーを返します。
func (l *ErrorLog) Entries() []ErrorEntry {
	return slices.Clone(l.entries)
}

// String は表示用のメッセージを返します。
// 認証エラーが1件でもあれば、前後に届いた他のエラーに関係なく最後の認証エラーのメッセージだけを返します。
// 他のエントリは Entries で参照できます。
func (l *ErrorLog) String() string {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Kind == ErrorKindAuth {
			return l.entries[i].Message
		}
	}
	msgs := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, " ")
}

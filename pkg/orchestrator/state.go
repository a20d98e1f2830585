package orchestrator

import (
	"slices"
	"sync"
	"time"

	"github.com/shouni/gemini-post-kit/pkg/domain"
)

// Snapshot はある時点の生成状態のコピーです。画面や保存先にはこの形で渡します。
type Snapshot struct {
	Content domain.GeneratedContent `json:"content"`
	Status  domain.GenerationStatus `json:"status"`
	// ReferencesIgnored は動画生成で使われなかった参照画像の枚数です。
	ReferencesIgnored int       `json:"referencesIgnored"`
	Version           uint64    `json:"version"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Observer は状態が変わるたびに呼ばれます。
// 呼び出しは State のロック内で直列に行われるため、Observer から State を操作してはいけません。
type Observer func(Snapshot)

// State は1セッション分の生成結果と処理状況です。
// テキストとメディアの2つの枝から同時に書き込まれるため、すべての更新をミューテックスで直列化します。
type State struct {
	mu          sync.Mutex
	content     domain.GeneratedContent
	textBusy    bool
	mediaBusy   bool
	errs        domain.ErrorLog
	refsIgnored int
	version     uint64
	updatedAt   time.Time
	observers   []Observer
}

// NewState は空の状態を作ります。
func NewState(observers ...Observer) *State {
	return &State{
		content:   domain.EmptyContent(),
		observers: observers,
	}
}

// Subscribe は Observer を追加します。
func (s *State) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Snapshot は現在の状態のコピーを返します。
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IsBusy はどちらかの枝が処理中かを返します。
func (s *State) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textBusy || s.mediaBusy
}

func (s *State) snapshotLocked() Snapshot {
	content := s.content
	content.Hashtags = slices.Clone(s.content.Hashtags)
	if content.Hashtags == nil {
		content.Hashtags = []string{}
	}
	return Snapshot{
		Content: content,
		Status: domain.GenerationStatus{
			IsGeneratingText:  s.textBusy,
			IsGeneratingMedia: s.mediaBusy,
			Error:             s.errs.String(),
			Errors:            s.errs.Entries(),
		},
		ReferencesIgnored: s.refsIgnored,
		Version:           s.version,
		UpdatedAt:         s.updatedAt,
	}
}

// update は fn をロック内で実行し、変更後のスナップショットを Observer に通知します。
func (s *State) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.version++
	s.updatedAt = time.Now()
	if len(s.observers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, o := range s.observers {
		o(snap)
	}
}

// begin はサイクルを開始します。両方のフラグを立て、結果とエラーを空にします。
func (s *State) begin(refsIgnored int) {
	s.update(func() {
		s.textBusy = true
		s.mediaBusy = true
		s.content = domain.EmptyContent()
		s.errs.Reset()
		s.refsIgnored = refsIgnored
	})
}

// rejectCredential はディスパッチ前のキー選択失敗を記録します。フラグと結果には触れません。
func (s *State) rejectCredential() {
	s.update(func() {
		s.errs.Reset()
		s.errs.Append(domain.ErrorEntry{Kind: domain.ErrorKindCredential, Message: domain.MsgCredentialRequired})
	})
}

func (s *State) settleText(caption string, hashtags []string) {
	s.update(func() {
		s.content.Caption = caption
		s.content.Hashtags = slices.Clone(hashtags)
		s.textBusy = false
	})
}

func (s *State) failText() {
	s.update(func() {
		s.errs.Append(domain.ErrorEntry{Kind: domain.ErrorKindText, Message: domain.MsgTextFailed})
		s.textBusy = false
	})
}

func (s *State) settleMedia(media domain.MediaType, url string) {
	s.update(func() {
		if media == domain.MediaVideo {
			s.content.VideoURL = url
		} else {
			s.content.ImageURL = url
		}
		s.mediaBusy = false
	})
}

// failMedia はメディアの失敗を記録します。
// compose は既存のエラーがあるかどうかを受け取り、追記するエントリを返します。
func (s *State) failMedia(compose func(hasPrior bool) domain.ErrorEntry) {
	s.update(func() {
		s.errs.Append(compose(s.errs.Len() > 0))
		s.mediaBusy = false
	})
}

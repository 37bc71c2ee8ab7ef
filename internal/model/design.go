package model

import (
	"encoding/json"
	"time"
)

// Design はユーザーが保存したマルコフ連鎖デザインを表す。
// chainは状態と遷移を含む不透明なペイロードで、サーバー側では解釈しない。
// ユーザー単位の所有権はなく、共有ギャラリーとして扱う。
type Design struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Chain   json.RawMessage `json:"chain"`
	SavedAt time.Time       `json:"savedAt"`
}

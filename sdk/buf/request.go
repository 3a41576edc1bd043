package buf

import (
	"github.com/zintix-labs/gammalab/spec"
)

// SampleRequest 是引擎內部使用的取樣請求。
//
// 這裡只承載「已解碼」的欄位，不做任何合法性校驗；
// 合法性（例如該 SID 是否存在、count 是否可用）應由上層（Generator/Runtime）決定。
type SampleRequest struct {
	UID        string       // 唯一識別碼
	SceneName  string       // 場景名稱
	SceneId    spec.SID     // 場景編號
	Mode       spec.ModeKey // forward / backward
	Count      int          // 要初始化的狀態數
	Alpha      float64      // backward photo-peak 分支機率
	HasAlpha   bool         // 請求是否有指定 alpha（false 時用場景預設值）
	StartState *StartState  // nil = 新抽樣；帶快照 = 回放/續抽
}

// StartState 是由業務端帶入的「引擎可恢復狀態」（可選）。
type StartState struct {
	StartCoreSnap []byte // RNG Core 的起始快照
}

package spec

// SID 是場景設定在目錄中的唯一識別碼。
type SID uint32

// ModeKey 指定粒子初始化的取樣方向。
type ModeKey string

const (
	// ModeForward：在源體積內取樣（排除偵測器），權重恆為 1。
	ModeForward ModeKey = "forward"
	// ModeBackward：在偵測器表面取樣，帶重要性權重。
	ModeBackward ModeKey = "backward"
)

// Known 回報 ModeKey 是否為已知模式。
func (m ModeKey) Known() bool {
	return m == ModeForward || m == ModeBackward
}

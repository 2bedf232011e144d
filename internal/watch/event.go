package watch

// Event 目标文件变化事件
type Event struct {
	// Path 相对于根目录的目标路径
	Path      string `json:"path"`
	Op        string `json:"op"`
	Timestamp int64  `json:"timestamp"`
}

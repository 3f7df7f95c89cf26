package model

import "time"

// Stage 下载任务所处的流水线阶段
type Stage string

const (
	StageQueued      Stage = "queued"      // 已入队，等待工作协程
	StageFetching    Stage = "fetching"    // 正在从服务端拉取加密流
	StageDecrypting  Stage = "decrypting"  // 正在解密
	StageTranscoding Stage = "transcoding" // 正在转码
	StageCompleted   Stage = "completed"   // 终态：成功
	StageFailed      Stage = "failed"      // 终态：失败
)

// Terminal reports whether the stage is a terminal one.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// ProgressEvent 单个曲目的进度事件
// 同一曲目的事件按阶段严格有序；不同曲目之间不保证顺序。
type ProgressEvent struct {
	TrackID   string `json:"trackId"`
	Title     string `json:"title,omitempty"`
	Stage     Stage  `json:"stage"`
	Bytes     int64  `json:"bytes,omitempty"` // 当前阶段已处理的字节数
	Total     int64  `json:"total,omitempty"` // 已知的总字节数，0 表示未知
	Error     string `json:"error,omitempty"` // 仅在 failed 事件中携带
	Timestamp int64  `json:"timestamp"`
}

// NewProgressEvent builds an event stamped with the current time.
func NewProgressEvent(trackID, title string, stage Stage) ProgressEvent {
	return ProgressEvent{
		TrackID:   trackID,
		Title:     title,
		Stage:     stage,
		Timestamp: time.Now().UnixMilli(),
	}
}

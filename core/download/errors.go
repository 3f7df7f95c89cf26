package download

import (
	"errors"
	"fmt"
)

// ErrorKind 失败分类
// 只有 KindConfig 会让整次运行中止，其余都记录在单个曲目的结果里
type ErrorKind string

const (
	KindConfig     ErrorKind = "config"     // 配置校验失败，运行开始前中止
	KindResolution ErrorKind = "resolution" // 内容标识符无法展开成曲目
	KindFetch      ErrorKind = "fetch"      // 网络或会话层面拉取失败
	KindDecrypt    ErrorKind = "decrypt"    // 密钥被拒绝或流被截断
	KindTranscode  ErrorKind = "transcode"  // 源流不是合法容器，或目标编码器不可用
	KindPersist    ErrorKind = "persist"    // 写文件失败
)

// TaskError 单曲目失败的分类错误
type TaskError struct {
	Kind    ErrorKind
	TrackID string
	Err     error
}

func (e *TaskError) Error() string {
	if e.TrackID == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error on track %s: %v", e.Kind, e.TrackID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func newTaskError(kind ErrorKind, trackID string, err error) *TaskError {
	return &TaskError{Kind: kind, TrackID: trackID, Err: err}
}

// KindOf 提取错误的分类，非 TaskError 返回空串
func KindOf(err error) ErrorKind {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

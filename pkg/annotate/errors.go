package annotate

import "fmt"

// Kind 标注类型
type Kind string

const (
	KindEmotion   Kind = "emotion"
	KindIndicator Kind = "indicator"
)

// AnnotationError 情绪或指标识别请求失败
type AnnotationError struct {
	Kind       Kind
	StatusCode int    // HTTP状态码，传输失败时为0
	Body       string // 服务端响应内容
	Cause      error
}

func (e *AnnotationError) Error() string {
	msg := fmt.Sprintf("%s 识别失败", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AnnotationError) Unwrap() error {
	return e.Cause
}

package asr

import (
	"context"
	"time"

	"github.com/ccp-p/conversation-annotator/pkg/models"
)

// ProgressCallback 是进度回调函数，用于通知识别过程的进度
type ProgressCallback func(percent int, message string)

// ASRService 定义了语音识别服务的接口
type ASRService interface {
	// GetResult 提交音频、等待任务结束并返回转写结果
	GetResult(ctx context.Context, callback ProgressCallback) (*models.TranscriptionResult, error)
}

// Clock 轮询使用的时钟，测试中可以替换
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock 返回基于系统时间的时钟
func RealClock() Clock {
	return realClock{}
}

package asr

import (
	"errors"
	"fmt"
)

// ErrPollTimeout 轮询超过最长等待时间
var ErrPollTimeout = errors.New("转写任务等待超时")

// SubmissionError 提交转写任务失败
type SubmissionError struct {
	StatusCode int    // HTTP状态码，传输失败时为0
	Reason     string // 失败原因
	Body       string // 服务端响应内容
	Cause      error
}

func (e *SubmissionError) Error() string {
	msg := "提交转写任务失败: " + e.Reason
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// JobFailedError 服务端报告任务失败
type JobFailedError struct {
	JobID string
	Body  string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("转写任务 %s 失败", e.JobID)
}

// MalformedResultError 任务响应缺少预期的结构
type MalformedResultError struct {
	JobID  string
	Reason string
	Body   string
	Cause  error
}

func (e *MalformedResultError) Error() string {
	msg := fmt.Sprintf("转写任务 %s 结果格式错误: %s", e.JobID, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MalformedResultError) Unwrap() error {
	return e.Cause
}

// PollError 查询任务状态时请求失败
type PollError struct {
	JobID      string
	StatusCode int
	Body       string
	Cause      error
}

func (e *PollError) Error() string {
	msg := fmt.Sprintf("查询转写任务 %s 状态失败", e.JobID)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PollError) Unwrap() error {
	return e.Cause
}

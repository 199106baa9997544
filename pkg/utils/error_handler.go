package utils

import (
	"fmt"
	"sort"
	"sync"
)

// AudioToolsError 是流程错误的基础类型
type AudioToolsError struct {
	Message string
	Cause   error
}

// Error 实现error接口
func (e *AudioToolsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap 支持error chain
func (e *AudioToolsError) Unwrap() error {
	return e.Cause
}

// NewError 创建一个新的AudioToolsError
func NewError(message string, cause error) error {
	return &AudioToolsError{
		Message: message,
		Cause:   cause,
	}
}

// PanicError 表示执行过程中捕获到的panic
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler 执行流程阶段并记录错误统计，可被多个协程同时使用
type ErrorHandler struct {
	mu         sync.Mutex
	ErrorStats map[string]map[string]int // 操作 -> 错误信息 -> 计数
}

// NewErrorHandler 创建新的错误处理器
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{
		ErrorStats: make(map[string]map[string]int),
	}
}

// SafeExecute 安全地执行函数，panic 会被转换为错误，失败时执行清理
func (h *ErrorHandler) SafeExecute(operation string, fn func() error, cleanup func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
		if err == nil {
			return
		}
		h.Record(operation, err)
		if cleanup != nil {
			Debug("执行清理操作: %s", operation)
			cleanup()
		}
		err = NewError(fmt.Sprintf("操作 %s 失败", operation), err)
	}()

	return fn()
}

// Record 记录一次操作失败
func (h *ErrorHandler) Record(operation string, err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ErrorStats[operation] == nil {
		h.ErrorStats[operation] = make(map[string]int)
	}
	h.ErrorStats[operation][err.Error()]++
}

// GetErrorStats 获取错误统计信息的副本
func (h *ErrorHandler) GetErrorStats() map[string]map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	stats := make(map[string]map[string]int, len(h.ErrorStats))
	for op, errs := range h.ErrorStats {
		inner := make(map[string]int, len(errs))
		for msg, n := range errs {
			inner[msg] = n
		}
		stats[op] = inner
	}
	return stats
}

// FailedOperations 返回出现过错误的操作名称（已排序）
func (h *ErrorHandler) FailedOperations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ops := make([]string, 0, len(h.ErrorStats))
	for op := range h.ErrorStats {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// PrintErrorStats 打印错误统计信息
func (h *ErrorHandler) PrintErrorStats() {
	stats := h.GetErrorStats()
	if len(stats) == 0 {
		Info("没有错误记录")
		return
	}

	Info("错误统计:")
	for _, operation := range h.FailedOperations() {
		Info("操作: %s", operation)
		for errMsg, count := range stats[operation] {
			Info("  - %s: %d次", errMsg, count)
		}
	}
}

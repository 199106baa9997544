package ui

import (
	"sync"
)

// ProgressManager 管理各处理阶段的进度条
type ProgressManager struct {
	progressBars map[string]*ProgressBar
	mutex        sync.Mutex
	enabled      bool
	term         *TerminalManager
}

// NewProgressManager 创建新的进度管理器，enabled 为 false 时所有操作都不输出
func NewProgressManager(enabled bool) *ProgressManager {
	return NewProgressManagerWithTerminal(enabled, GetTerminalManager())
}

// NewProgressManagerWithTerminal 创建输出到指定终端的进度管理器
func NewProgressManagerWithTerminal(enabled bool, term *TerminalManager) *ProgressManager {
	return &ProgressManager{
		progressBars: make(map[string]*ProgressBar),
		enabled:      enabled,
		term:         term,
	}
}

// Enabled 是否输出进度
func (pm *ProgressManager) Enabled() bool {
	return pm != nil && pm.enabled
}

// CreateProgressBar 创建并注册一个新的进度条
func (pm *ProgressManager) CreateProgressBar(id string, total int, prefix string, suffix string) *ProgressBar {
	if !pm.Enabled() {
		return nil
	}

	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	// 如果已经存在同名进度条，先完成它
	if bar, exists := pm.progressBars[id]; exists {
		bar.Complete("已被替换")
	}

	bar := newProgressBar(pm.term, total, prefix, suffix)
	pm.progressBars[id] = bar
	return bar
}

// GetProgressBar 获取已存在的进度条
func (pm *ProgressManager) GetProgressBar(id string) *ProgressBar {
	if pm == nil {
		return nil
	}
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	return pm.progressBars[id]
}

// UpdateProgressBar 更新进度条
func (pm *ProgressManager) UpdateProgressBar(id string, current int, suffix string) {
	if !pm.Enabled() {
		return
	}

	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if bar, exists := pm.progressBars[id]; exists {
		bar.Update(current, suffix)
	}
}

// CompleteProgressBar 完成并移除进度条
func (pm *ProgressManager) CompleteProgressBar(id string, suffix string) {
	if !pm.Enabled() {
		return
	}

	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if bar, exists := pm.progressBars[id]; exists {
		bar.Complete(suffix)
		delete(pm.progressBars, id)
	}
}

// Callback 返回驱动指定进度条的回调函数，签名与识别服务的进度回调一致
func (pm *ProgressManager) Callback(id string) func(percent int, message string) {
	return func(percent int, message string) {
		pm.UpdateProgressBar(id, percent, message)
	}
}

// CloseAll 完成所有进度条
func (pm *ProgressManager) CloseAll(suffix string) {
	if !pm.Enabled() {
		return
	}

	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	for _, bar := range pm.progressBars {
		bar.Complete(suffix)
	}
	pm.progressBars = make(map[string]*ProgressBar)
}

package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// TerminalManager 管理终端输出，确保进度条和消息不会混乱
type TerminalManager struct {
	mu  sync.Mutex
	out io.Writer
}

var (
	// 全局终端管理器实例
	globalTerminalManager *TerminalManager
	once                  sync.Once
)

// NewTerminalManager 创建写入指定输出的终端管理器
func NewTerminalManager(out io.Writer) *TerminalManager {
	return &TerminalManager{out: out}
}

// GetTerminalManager 获取写入标准输出的全局终端管理器
func GetTerminalManager() *TerminalManager {
	once.Do(func() {
		globalTerminalManager = NewTerminalManager(os.Stdout)
	})
	return globalTerminalManager
}

// PrintMsg 清除当前行后打印一条消息
func (tm *TerminalManager) PrintMsg(format string, args ...interface{}) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	fmt.Fprint(tm.out, "\033[2K\r")
	fmt.Fprintf(tm.out, format+"\n", args...)
}

// UpdateProgress 覆盖当前行显示进度
func (tm *TerminalManager) UpdateProgress(line string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	fmt.Fprint(tm.out, "\033[2K\r")
	fmt.Fprint(tm.out, line)
}

// Newline 结束当前进度行
func (tm *TerminalManager) Newline() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	fmt.Fprintln(tm.out)
}

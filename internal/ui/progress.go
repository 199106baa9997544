package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
)

// ProgressBar 进度条结构
type ProgressBar struct {
	Total      int       // 总步数
	Current    int       // 当前进度
	Prefix     string    // 前缀
	Suffix     string    // 后缀
	Width      int       // 进度条宽度
	FillChar   string    // 填充字符
	EmptyChar  string    // 空白字符
	StartTime  time.Time // 开始时间
	LastUpdate time.Time // 上次更新时间

	term *TerminalManager
}

// NewProgressBar 创建输出到标准输出的进度条
func NewProgressBar(total int, prefix string, suffix string) *ProgressBar {
	return newProgressBar(GetTerminalManager(), total, prefix, suffix)
}

func newProgressBar(term *TerminalManager, total int, prefix string, suffix string) *ProgressBar {
	if total <= 0 {
		total = 100
	}
	return &ProgressBar{
		Total:      total,
		Current:    0,
		Prefix:     prefix,
		Suffix:     suffix,
		Width:      30,
		FillChar:   "█",
		EmptyChar:  "░",
		StartTime:  time.Now(),
		LastUpdate: time.Now(),
		term:       term,
	}
}

// Update 更新进度，进度不会回退
func (p *ProgressBar) Update(current int, suffix string) {
	if current < p.Current {
		current = p.Current
	}
	if current > p.Total {
		current = p.Total
	}

	p.Current = current
	if suffix != "" {
		p.Suffix = suffix
	}

	p.LastUpdate = time.Now()
	p.draw()
}

// Complete 完成进度条
func (p *ProgressBar) Complete(suffix string) {
	p.Current = p.Total
	p.Update(p.Total, suffix)
	p.term.Newline()
}

// 绘制进度条
func (p *ProgressBar) draw() {
	p.term.UpdateProgress(color.CyanString(p.line(time.Since(p.StartTime))))
}

func (p *ProgressBar) line(elapsed time.Duration) string {
	percent := float64(p.Current) / float64(p.Total)
	filled := int(percent * float64(p.Width))
	if filled > p.Width {
		filled = p.Width
	}

	bar := strings.Repeat(p.FillChar, filled) + strings.Repeat(p.EmptyChar, p.Width-filled)

	return fmt.Sprintf("%s [%s] %3.0f%% | %s | %s",
		p.Prefix, bar, percent*100, formatDuration(elapsed), p.Suffix)
}

// String 返回进度条的字符串表示
func (p *ProgressBar) String() string {
	return p.line(time.Since(p.StartTime))
}

// 格式化持续时间为 MM:SS 格式
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

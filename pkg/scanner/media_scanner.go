package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

// MediaFile 表示一个待转写的媒体文件
type MediaFile struct {
	Path    string    // 文件路径
	Name    string    // 文件名
	Ext     string    // 文件扩展名
	Size    int64     // 文件大小（字节）
	ModTime time.Time // 修改时间
	IsVideo bool      // 是否为视频文件
	IsAudio bool      // 是否为音频文件
}

// IsMedia 是否为已知的音视频格式
func (f MediaFile) IsMedia() bool {
	return f.IsAudio || f.IsVideo
}

// String 返回文件的简要描述
func (f MediaFile) String() string {
	kind := "未知格式"
	switch {
	case f.IsAudio:
		kind = "音频"
	case f.IsVideo:
		kind = "视频"
	}
	return fmt.Sprintf("[%s] %s (%s)", kind, f.Name, utils.FormatFileSize(f.Size))
}

// MediaScanner 根据扩展名识别媒体文件
type MediaScanner struct {
	AudioExtensions []string
	VideoExtensions []string
}

// NewMediaScanner 创建新的媒体扫描器
func NewMediaScanner() *MediaScanner {
	return &MediaScanner{
		AudioExtensions: []string{".mp3", ".wav", ".m4a", ".flac", ".ogg", ".aac", ".webm"},
		VideoExtensions: []string{".mp4", ".mov", ".avi", ".mkv", ".wmv"},
	}
}

// Inspect 读取单个文件的信息
func (s *MediaScanner) Inspect(path string) (MediaFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MediaFile{}, fmt.Errorf("获取文件信息失败: %w", err)
	}
	if info.IsDir() {
		return MediaFile{}, fmt.Errorf("%s 是目录", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	file := MediaFile{
		Path:    path,
		Name:    info.Name(),
		Ext:     ext,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsAudio: contains(s.AudioExtensions, ext),
		IsVideo: contains(s.VideoExtensions, ext),
	}

	if !file.IsMedia() {
		utils.Warn("无法识别的媒体格式: %s，仍会尝试提交", file.Name)
	}
	return file, nil
}

func contains(list []string, ext string) bool {
	for _, e := range list {
		if e == ext {
			return true
		}
	}
	return false
}

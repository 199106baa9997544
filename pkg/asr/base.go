package asr

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

// BaseASR 提供音频加载等基础功能
type BaseASR struct {
	AudioPath  string // 音频文件路径
	FileName   string // 上传时使用的文件名
	FileBinary []byte // 文件二进制内容
	CRC32Hex   string // 文件CRC32校验和（十六进制）
}

// NewBaseASR 创建一个新的BaseASR实例并加载音频
func NewBaseASR(audioPath string) (*BaseASR, error) {
	b := &BaseASR{
		AudioPath: audioPath,
		FileName:  filepath.Base(audioPath),
	}

	if err := b.loadFile(); err != nil {
		return nil, err
	}

	b.CRC32Hex = fmt.Sprintf("%08x", crc32.ChecksumIEEE(b.FileBinary))
	utils.Debug("音频CRC32校验和: %s", b.CRC32Hex)
	return b, nil
}

// loadFile 加载音频文件到内存
func (b *BaseASR) loadFile() error {
	info, err := os.Stat(b.AudioPath)
	if err != nil || info.IsDir() {
		return fmt.Errorf("无效的音频路径: %s", b.AudioPath)
	}

	utils.Info("从文件读取音频数据: %s (%s)", b.AudioPath, utils.FormatFileSize(info.Size()))
	b.FileBinary, err = os.ReadFile(b.AudioPath)
	if err != nil {
		return fmt.Errorf("读取音频文件失败: %w", err)
	}
	if len(b.FileBinary) == 0 {
		return fmt.Errorf("音频文件为空: %s", b.AudioPath)
	}
	return nil
}

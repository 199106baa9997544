package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/ccp-p/conversation-annotator/pkg/models"
	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

// minCueSeconds 起止时间无效时字幕的最短持续时间
const minCueSeconds = 5.0

// SRTExporter 负责将标注片段导出为SRT字幕文件
type SRTExporter struct {
	OutputFile string
}

// NewSRTExporter 创建一个新的SRT导出器
func NewSRTExporter(outputFile string) *SRTExporter {
	return &SRTExporter{
		OutputFile: outputFile,
	}
}

// FormatSRTTime 将秒数格式化为SRT时间格式 (HH:MM:SS,mmm)
func (e *SRTExporter) FormatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))
	hours := totalMs / 3600000
	minutes := (totalMs % 3600000) / 60000
	secs := (totalMs % 60000) / 1000
	milliseconds := totalMs % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, milliseconds)
}

// GenerateSRTContent 生成SRT格式内容，标注行附在每条字幕文本之后
func (e *SRTExporter) GenerateSRTContent(segments []models.AnnotatedSegment) string {
	var srtLines []string

	index := 0
	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		index++

		endTime := segment.End
		if endTime <= segment.Start {
			endTime = segment.Start + minCueSeconds
		}

		srtLines = append(srtLines, fmt.Sprintf("%d", index))
		srtLines = append(srtLines, fmt.Sprintf("%s --> %s", e.FormatSRTTime(segment.Start), e.FormatSRTTime(endTime)))
		srtLines = append(srtLines, text)
		if line := strings.TrimSpace(AnnotationLine(segment)); line != "" {
			srtLines = append(srtLines, line)
		}
		srtLines = append(srtLines, "")
	}

	return strings.Join(srtLines, "\n")
}

// ExportSRT 导出SRT格式字幕文件
func (e *SRTExporter) ExportSRT(segments []models.AnnotatedSegment) (string, error) {
	if err := utils.WriteTextFile(e.OutputFile, e.GenerateSRTContent(segments)); err != nil {
		return "", fmt.Errorf("导出SRT失败: %w", err)
	}

	utils.Info("已导出SRT字幕: %s", e.OutputFile)
	return e.OutputFile, nil
}

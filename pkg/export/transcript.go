package export

import (
	"fmt"
	"strings"

	"github.com/ccp-p/conversation-annotator/pkg/models"
	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

// Render 把标注片段渲染为文本报告。
//
// 每个片段输出一个块：
//
//	[start-end]
//
//	文本
//
//	指标符号 (指标) 情绪符号 (情绪)
//
// 块之间的顺序与输入一致。
func Render(segments []models.AnnotatedSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString("[")
		b.WriteString(seg.Timestamp)
		b.WriteString("]\n\n")
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
		b.WriteString(renderTokens(seg.Indicators, IndicatorSymbol))
		b.WriteString(" ")
		b.WriteString(renderTokens(seg.Emotions, EmotionSymbol))
		b.WriteString("\n\n")
	}
	return b.String()
}

// AnnotationLine 返回片段的标注行，即 Render 块中的最后一行
func AnnotationLine(seg models.AnnotatedSegment) string {
	return renderTokens(seg.Indicators, IndicatorSymbol) + " " + renderTokens(seg.Emotions, EmotionSymbol)
}

func renderTokens(labels []string, symbol func(string) string) string {
	tokens := make([]string, 0, len(labels))
	for _, label := range labels {
		tokens = append(tokens, fmt.Sprintf("%s (%s)", symbol(label), label))
	}
	return strings.Join(tokens, " ")
}

// TranscriptExporter 负责将渲染后的报告写入文本文件
type TranscriptExporter struct {
	OutputFile string
}

// NewTranscriptExporter 创建一个新的文本报告导出器
func NewTranscriptExporter(outputFile string) *TranscriptExporter {
	return &TranscriptExporter{OutputFile: outputFile}
}

// Export 写入报告，已存在的文件会被覆盖
func (e *TranscriptExporter) Export(content string) (string, error) {
	if err := utils.WriteTextFile(e.OutputFile, content); err != nil {
		return "", fmt.Errorf("写入标注文本失败: %w", err)
	}
	utils.Info("已保存标注文本: %s", e.OutputFile)
	return e.OutputFile, nil
}

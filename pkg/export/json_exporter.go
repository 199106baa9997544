package export

import (
	"fmt"
	"strings"

	"github.com/ccp-p/conversation-annotator/pkg/models"
	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

// AnnotatedTranscript 表示导出到JSON的完整标注结果
type AnnotatedTranscript struct {
	RunID    string                    `json:"run_id,omitempty"`
	JobID    string                    `json:"job_id,omitempty"`
	Provider string                    `json:"provider,omitempty"`
	FullText string                    `json:"full_text"` // 所有片段文本拼接
	Segments []models.AnnotatedSegment `json:"segments"`
}

// JSONExporter 负责将标注片段导出为JSON文件
type JSONExporter struct {
	OutputFile string
}

// NewJSONExporter 创建一个新的JSON导出器
func NewJSONExporter(outputFile string) *JSONExporter {
	return &JSONExporter{
		OutputFile: outputFile,
	}
}

// GenerateJSONContent 根据标注片段生成导出结构
func (e *JSONExporter) GenerateJSONContent(segments []models.AnnotatedSegment, meta models.RunResult) AnnotatedTranscript {
	result := AnnotatedTranscript{
		RunID:    meta.RunID,
		JobID:    meta.JobID,
		Provider: meta.Provider,
		Segments: make([]models.AnnotatedSegment, 0, len(segments)),
	}

	texts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if text := strings.TrimSpace(segment.Text); text != "" {
			texts = append(texts, text)
		}
		result.Segments = append(result.Segments, segment)
	}
	result.FullText = strings.Join(texts, " ")

	return result
}

// ExportJSON 导出JSON格式文件
func (e *JSONExporter) ExportJSON(segments []models.AnnotatedSegment, meta models.RunResult) (string, error) {
	content := e.GenerateJSONContent(segments, meta)
	if err := utils.SaveJSONFile(e.OutputFile, content); err != nil {
		return "", fmt.Errorf("导出JSON失败: %w", err)
	}

	utils.Info("已导出JSON文件: %s", e.OutputFile)
	return e.OutputFile, nil
}

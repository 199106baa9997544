// Package merge 按时间区间把情绪与指标标注归属到转写片段上。
package merge

import (
	"github.com/ccp-p/conversation-annotator/pkg/models"
	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

// FullTextTimestamp 没有分段信息时使用的时间戳
const FullTextTimestamp = "0-0"

// Merge 合并转写结果与标注。
//
// 有分段时，标注只有完全落在片段区间内（start >= 片段开始 且 end <= 片段结束）才归属到该片段，
// 跨越片段边界的标注不属于任何片段。没有分段时输出一个 "0-0" 片段，包含完整文本与全部标注。
func Merge(transcription *models.TranscriptionResult, emotions []models.EmotionSpan, indicators []models.IndicatorSpan) []models.AnnotatedSegment {
	if !transcription.HasSegments() {
		segment := models.AnnotatedSegment{
			Timestamp:  FullTextTimestamp,
			Text:       transcription.FullText(),
			Emotions:   make([]string, 0, len(emotions)),
			Indicators: make([]string, 0, len(indicators)),
		}
		for _, e := range emotions {
			segment.Emotions = append(segment.Emotions, e.Emotion)
		}
		for _, i := range indicators {
			segment.Indicators = append(segment.Indicators, i.Entity)
		}
		utils.Info("标注合并完成 (无分段)")
		return []models.AnnotatedSegment{segment}
	}

	annotated := make([]models.AnnotatedSegment, 0, len(transcription.Segments))
	for _, seg := range transcription.Segments {
		out := models.AnnotatedSegment{
			Timestamp:  FormatTimestamp(seg.Start, seg.End),
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			Emotions:   []string{},
			Indicators: []string{},
		}
		for _, e := range emotions {
			if Contains(seg, e.StartTime, e.EndTime) {
				out.Emotions = append(out.Emotions, e.Emotion)
			}
		}
		for _, i := range indicators {
			if Contains(seg, i.Start, i.End) {
				out.Indicators = append(out.Indicators, i.Entity)
			}
		}
		annotated = append(annotated, out)
	}

	utils.WithField("segments", len(annotated)).Info("标注合并完成")
	return annotated
}

// Contains 区间 [start, end] 是否完全落在片段内
func Contains(seg models.Segment, start, end float64) bool {
	return start >= seg.Start && end <= seg.End
}

// FormatTimestamp 格式化为 "start-end"
func FormatTimestamp(start, end float64) string {
	return utils.FormatSeconds(start) + "-" + utils.FormatSeconds(end)
}

package models

// Segment 表示语音识别服务返回的一个带时间边界的转写片段
type Segment struct {
	Start float64 `json:"start"` // 开始时间（秒），缺省为0
	End   float64 `json:"end"`   // 结束时间（秒），缺省为0
	Text  string  `json:"text"`  // 片段文本
}

// TranscriptionResult 表示一次异步转写任务的结果
//
// Segments 非空时按分段处理；否则只有整段文本 Text 可用。
type TranscriptionResult struct {
	JobID      string    `json:"job_id"`               // 产生结果的任务ID
	Provider   string    `json:"provider"`             // 结果所属的服务商
	Text       string    `json:"text,omitempty"`       // 完整文本
	Transcript string    `json:"transcript,omitempty"` // 部分服务商使用的完整文本字段
	Segments   []Segment `json:"segments,omitempty"`   // 分段结果
}

// HasSegments 是否带有分段信息
func (r *TranscriptionResult) HasSegments() bool {
	return r != nil && len(r.Segments) > 0
}

// FullText 返回用于文本分析的完整文本，优先 text 字段，其次 transcript 字段
func (r *TranscriptionResult) FullText() string {
	if r == nil {
		return ""
	}
	if r.Text != "" {
		return r.Text
	}
	return r.Transcript
}

// EmotionSpan 情绪识别结果中的一个带时间的片段
type EmotionSpan struct {
	Emotion   string  `json:"emotion"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// IndicatorSpan 指标实体识别结果中的一个带时间的片段
type IndicatorSpan struct {
	Entity string  `json:"entity"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

// AnnotatedSegment 合并了情绪与指标标注的转写片段
type AnnotatedSegment struct {
	Timestamp  string   `json:"timestamp"` // "start-end"
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Emotions   []string `json:"emotions"`
	Indicators []string `json:"indicators"`
}

// JobStatus 异步转写任务状态
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusFinished   JobStatus = "finished"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal 任务是否已经结束（成功或失败）
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusFailed
}

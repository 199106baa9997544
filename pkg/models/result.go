package models

// RunResult 一次标注流程的结果统计信息
type RunResult struct {
	RunID          string            `json:"run_id"`          // 本次运行ID
	AudioPath      string            `json:"audio_path"`      // 处理的音频文件
	JobID          string            `json:"job_id"`          // 转写任务ID
	Provider       string            `json:"provider"`        // 返回结果的转写服务商
	SegmentCount   int               `json:"segment_count"`   // 输出的片段数
	EmotionCount   int               `json:"emotion_count"`   // 识别出的情绪数
	IndicatorCount int               `json:"indicator_count"` // 识别出的指标数
	Degraded       []string          `json:"degraded"`        // 降级运行的阶段
	OutputFiles    map[string]string `json:"output_files"`    // 输出文件路径
	ProcessTimeMs  int64             `json:"process_time_ms"` // 处理时间（毫秒）
}

// IsDegraded 是否有阶段降级运行
func (r *RunResult) IsDegraded() bool {
	return len(r.Degraded) > 0
}

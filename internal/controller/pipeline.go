package controller

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ccp-p/conversation-annotator/pkg/annotate"
	"github.com/ccp-p/conversation-annotator/pkg/asr"
	"github.com/ccp-p/conversation-annotator/pkg/export"
	"github.com/ccp-p/conversation-annotator/pkg/merge"
	"github.com/ccp-p/conversation-annotator/pkg/models"
	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

// 流程阶段名称
const (
	StageTranscribe = "transcribe"
	StageEmotions   = "emotion_detection"
	StageIndicators = "indicator_detection"
	StageMerge      = "merge"
	StageRender     = "render"
	StageSave       = "save"
	StageExportJSON = "export_json"
	StageExportSRT  = "export_srt"
)

// ErrEmptyTranscript 转写结果中没有可用的文本
var ErrEmptyTranscript = errors.New("转写结果中没有文本")

// Run 对配置中的音频执行完整的标注流程。
//
// 转写失败时直接返回错误，不写输出文件；标注、合并、渲染失败只会降级，
// 输出文件中对应的部分为空。
func (pc *ProcessorController) Run() (*models.RunResult, error) {
	start := time.Now()
	result := &models.RunResult{
		RunID:       uuid.New().String(),
		AudioPath:   pc.Config.AudioPath,
		Degraded:    []string{},
		OutputFiles: make(map[string]string),
	}
	defer func() {
		result.ProcessTimeMs = time.Since(start).Milliseconds()
	}()

	log := utils.WithFields(logrus.Fields{"run_id": result.RunID, "audio": result.AudioPath})
	log.Info("开始处理音频")

	transcription, err := pc.transcribe(log)
	if err != nil {
		return result, err
	}
	result.JobID = transcription.JobID
	result.Provider = transcription.Provider
	log = log.WithField("job_id", transcription.JobID)

	text := transcription.FullText()
	if text == "" {
		log.WithField("stage", StageTranscribe).Errorf("%v", ErrEmptyTranscript)
		return result, ErrEmptyTranscript
	}

	emotions, indicators := pc.annotate(log, text, result)
	if err := pc.ctx.Err(); err != nil {
		log.Warn("处理已取消，不写入输出文件")
		return result, err
	}
	result.EmotionCount = len(emotions)
	result.IndicatorCount = len(indicators)

	var segments []models.AnnotatedSegment
	if err := pc.ErrorHandler.SafeExecute(StageMerge, func() error {
		segments = merge.Merge(transcription, emotions, indicators)
		return nil
	}, func() {
		segments = []models.AnnotatedSegment{}
	}); err != nil {
		log.WithField("stage", StageMerge).Errorf("合并标注失败: %v", err)
		result.Degraded = append(result.Degraded, StageMerge)
	}
	result.SegmentCount = len(segments)

	var content string
	if err := pc.ErrorHandler.SafeExecute(StageRender, func() error {
		content = export.Render(segments)
		return nil
	}, func() {
		content = ""
	}); err != nil {
		log.WithField("stage", StageRender).Errorf("渲染标注文本失败: %v", err)
		result.Degraded = append(result.Degraded, StageRender)
	}

	if err := pc.ErrorHandler.SafeExecute(StageSave, func() error {
		path, err := export.NewTranscriptExporter(pc.Config.OutputFile).Export(content)
		if err != nil {
			return err
		}
		result.OutputFiles["text"] = path
		return nil
	}, nil); err != nil {
		log.WithField("stage", StageSave).Errorf("保存标注文本失败: %v", err)
		return result, err
	}

	pc.exportExtras(log, segments, result)

	log.WithFields(logrus.Fields{
		"segments":   result.SegmentCount,
		"emotions":   result.EmotionCount,
		"indicators": result.IndicatorCount,
		"degraded":   result.Degraded,
	}).Info("处理完成")
	return result, nil
}

// transcribe 提交音频并等待转写结果
func (pc *ProcessorController) transcribe(log *logrus.Entry) (*models.TranscriptionResult, error) {
	log = log.WithField("stage", StageTranscribe)

	const barID = StageTranscribe
	pc.ProgressManager.CreateProgressBar(barID, 100, "语音转写", "准备中...")

	service, err := pc.NewASR(pc.Config.AudioPath)
	if err != nil {
		pc.ProgressManager.CompleteProgressBar(barID, "转写失败")
		log.Errorf("创建识别服务失败: %v", err)
		return nil, fmt.Errorf("创建识别服务失败: %w", err)
	}

	updateBar := pc.ProgressManager.Callback(barID)
	callback := func(percent int, message string) {
		log.Debugf("进度 [%d%%] %s", percent, message)
		updateBar(percent, message)
	}

	transcription, err := service.GetResult(pc.ctx, callback)
	if err != nil {
		pc.ProgressManager.CompleteProgressBar(barID, "转写失败")
		logFailure(log, "转写失败", err)
		return nil, fmt.Errorf("转写失败: %w", err)
	}
	if transcription == nil {
		pc.ProgressManager.CompleteProgressBar(barID, "转写失败")
		return nil, errors.New("识别服务没有返回结果")
	}

	pc.ProgressManager.CompleteProgressBar(barID, "转写完成")
	log.WithFields(logrus.Fields{
		"provider": transcription.Provider,
		"segments": len(transcription.Segments),
	}).Info("转写完成")
	return transcription, nil
}

// annotate 并发执行情绪与指标识别，失败的一方使用空列表
func (pc *ProcessorController) annotate(log *logrus.Entry, text string, result *models.RunResult) ([]models.EmotionSpan, []models.IndicatorSpan) {
	var (
		wg           sync.WaitGroup
		emotions     []models.EmotionSpan
		indicators   []models.IndicatorSpan
		emotionErr   error
		indicatorErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		emotionErr = pc.ErrorHandler.SafeExecute(StageEmotions, func() error {
			var err error
			emotions, err = pc.Annotator.DetectEmotions(pc.ctx, text)
			return err
		}, nil)
	}()
	go func() {
		defer wg.Done()
		indicatorErr = pc.ErrorHandler.SafeExecute(StageIndicators, func() error {
			var err error
			indicators, err = pc.Annotator.DetectIndicators(pc.ctx, text)
			return err
		}, nil)
	}()
	wg.Wait()

	if emotionErr != nil {
		logFailure(log.WithField("stage", StageEmotions), "情绪识别失败，使用空列表", emotionErr)
		result.Degraded = append(result.Degraded, StageEmotions)
		emotions = nil
	}
	if indicatorErr != nil {
		logFailure(log.WithField("stage", StageIndicators), "指标识别失败，使用空列表", indicatorErr)
		result.Degraded = append(result.Degraded, StageIndicators)
		indicators = nil
	}
	if emotions == nil {
		emotions = []models.EmotionSpan{}
	}
	if indicators == nil {
		indicators = []models.IndicatorSpan{}
	}
	return emotions, indicators
}

// exportExtras 按配置导出JSON与SRT文件
func (pc *ProcessorController) exportExtras(log *logrus.Entry, segments []models.AnnotatedSegment, result *models.RunResult) {
	if pc.Config.ExportJSON {
		err := pc.ErrorHandler.SafeExecute(StageExportJSON, func() error {
			exporter := export.NewJSONExporter(utils.SiblingPath(pc.Config.OutputFile, ".json"))
			path, err := exporter.ExportJSON(segments, *result)
			if err == nil {
				result.OutputFiles["json"] = path
			}
			return err
		}, nil)
		if err != nil {
			log.WithField("stage", StageExportJSON).Errorf("导出JSON失败: %v", err)
			result.Degraded = append(result.Degraded, StageExportJSON)
		}
	}

	if pc.Config.ExportSRT {
		err := pc.ErrorHandler.SafeExecute(StageExportSRT, func() error {
			exporter := export.NewSRTExporter(utils.SiblingPath(pc.Config.OutputFile, ".srt"))
			path, err := exporter.ExportSRT(segments)
			if err == nil {
				result.OutputFiles["srt"] = path
			}
			return err
		}, nil)
		if err != nil {
			log.WithField("stage", StageExportSRT).Errorf("导出SRT失败: %v", err)
			result.Degraded = append(result.Degraded, StageExportSRT)
		}
	}
}

// logFailure 记录错误，带上服务端响应内容以便排查
func logFailure(log *logrus.Entry, message string, err error) {
	if body := responseBody(err); body != "" {
		log = log.WithField("response", body)
	}
	log.Errorf("%s: %v", message, err)
}

// responseBody 从错误链中取出服务端响应内容
func responseBody(err error) string {
	var (
		submitErr    *asr.SubmissionError
		jobErr       *asr.JobFailedError
		malformedErr *asr.MalformedResultError
		pollErr      *asr.PollError
		annotateErr  *annotate.AnnotationError
	)
	switch {
	case errors.As(err, &submitErr):
		return submitErr.Body
	case errors.As(err, &jobErr):
		return jobErr.Body
	case errors.As(err, &malformedErr):
		return malformedErr.Body
	case errors.As(err, &pollErr):
		return pollErr.Body
	case errors.As(err, &annotateErr):
		return annotateErr.Body
	}
	return ""
}

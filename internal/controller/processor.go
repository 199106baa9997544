package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/ccp-p/conversation-annotator/internal/ui"
	"github.com/ccp-p/conversation-annotator/pkg/annotate"
	"github.com/ccp-p/conversation-annotator/pkg/asr"
	"github.com/ccp-p/conversation-annotator/pkg/models"
	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

// Annotator 对完整文本做情绪与指标识别
type Annotator interface {
	DetectEmotions(ctx context.Context, text string) ([]models.EmotionSpan, error)
	DetectIndicators(ctx context.Context, text string) ([]models.IndicatorSpan, error)
}

// ASRFactory 为音频文件创建识别服务
type ASRFactory func(audioPath string) (asr.ASRService, error)

// Dependencies 控制器使用的外部组件
type Dependencies struct {
	NewASR    ASRFactory
	Annotator Annotator
}

// DefaultDependencies 根据配置创建访问远程服务的组件
func DefaultDependencies(cfg *models.Config) Dependencies {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}
	jobClient := asr.NewJobClientFromConfig(cfg, httpClient)
	return Dependencies{
		NewASR: func(audioPath string) (asr.ASRService, error) {
			return asr.NewEdenAsyncASR(audioPath, jobClient)
		},
		Annotator: annotate.NewTextAnalysisClientFromConfig(cfg, httpClient),
	}
}

// ProcessorController 处理器控制器，协调各个组件工作
type ProcessorController struct {
	// 配置
	Config *models.Config

	// UI组件
	ProgressManager *ui.ProgressManager

	// 处理组件
	NewASR       ASRFactory
	Annotator    Annotator
	ErrorHandler *utils.ErrorHandler

	// 上下文控制
	ctx        context.Context
	cancelFunc context.CancelFunc

	// 资源管理
	cleanup []func() // 清理函数列表
	mu      sync.Mutex
}

// NewProcessorController 创建处理器控制器
func NewProcessorController(cfg *models.Config, deps Dependencies) (*ProcessorController, error) {
	if cfg == nil {
		return nil, errors.New("配置不能为空")
	}
	if deps.NewASR == nil || deps.Annotator == nil {
		return nil, errors.New("识别服务和标注服务不能为空")
	}

	// 创建上下文，支持取消
	ctx, cancel := context.WithCancel(context.Background())

	pc := &ProcessorController{
		Config:          cfg,
		ProgressManager: ui.NewProgressManager(cfg.ShowProgress),
		NewASR:          deps.NewASR,
		Annotator:       deps.Annotator,
		ErrorHandler:    utils.NewErrorHandler(),
		ctx:             ctx,
		cancelFunc:      cancel,
	}
	pc.addCleanup(cancel)

	if cfg.ShowProgress {
		// 进度条占用终端时日志只写入文件
		utils.EnableTerminalProgress()
		pc.addCleanup(utils.DisableTerminalProgress)
	}

	return pc, nil
}

// Context 返回控制器的根上下文
func (pc *ProcessorController) Context() context.Context {
	return pc.ctx
}

// Cancel 取消正在进行的处理
func (pc *ProcessorController) Cancel() {
	pc.cancelFunc()
}

// 添加清理函数
func (pc *ProcessorController) addCleanup(cleanup func()) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cleanup = append(pc.cleanup, cleanup)
}

// Cleanup 执行所有清理
func (pc *ProcessorController) Cleanup() {
	pc.mu.Lock()
	cleanups := pc.cleanup
	pc.cleanup = nil
	pc.mu.Unlock()

	// 清理进度条
	pc.ProgressManager.CloseAll("已完成")

	// 逆序执行清理函数
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// SetupSignalHandlers 收到 SIGINT/SIGTERM 时取消处理
func (pc *ProcessorController) SetupSignalHandlers() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-c:
			utils.Info("接收到中断信号，正在停止...")
			pc.cancelFunc()
		case <-done:
		}
	}()

	pc.addCleanup(func() {
		signal.Stop(c)
		close(done)
	})
}

// PrintSummary 输出本次运行的统计信息
func PrintSummary(result *models.RunResult) {
	if result == nil {
		return
	}
	fmt.Printf("\n运行ID: %s\n", result.RunID)
	fmt.Printf("音频文件: %s\n", result.AudioPath)
	if result.JobID != "" {
		fmt.Printf("转写任务: %s (%s)\n", result.JobID, result.Provider)
	}
	fmt.Printf("片段数: %d, 情绪: %d, 指标: %d\n", result.SegmentCount, result.EmotionCount, result.IndicatorCount)
	fileTypes := make([]string, 0, len(result.OutputFiles))
	for fileType := range result.OutputFiles {
		fileTypes = append(fileTypes, fileType)
	}
	sort.Strings(fileTypes)
	for _, fileType := range fileTypes {
		fmt.Printf("- %s: %s\n", fileType, result.OutputFiles[fileType])
	}
	fmt.Printf("处理用时: %s\n", utils.FormatTimeDuration(float64(result.ProcessTimeMs)/1000))
	if result.IsDegraded() {
		color.Yellow("降级运行的阶段: %v", result.Degraded)
	}
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/ccp-p/conversation-annotator/internal/controller"
	"github.com/ccp-p/conversation-annotator/pkg/models"
	"github.com/ccp-p/conversation-annotator/pkg/scanner"
	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

// 退出码
const (
	exitOK          = 0
	exitRunFailed   = 1
	exitConfigError = 2
)

var (
	configFile = flag.String("config", "", "配置文件路径")
	audioPath  = flag.String("audio", "", "待处理的音频文件")
	outputFile = flag.String("output", "", "标注文本输出路径 (默认 annotated_transcript.txt)")
	logLevel   = flag.String("log-level", "", "日志级别 (VERBOSE, INFO, WARN 或 debug, info, warn, error)")
	logFile    = flag.String("log-file", "", "日志文件路径 (默认 tool.log)")
	envFile    = flag.String("env", ".env", "包含 "+models.APIKeyEnv+" 的环境变量文件")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	// .env 中的值不会覆盖已有的环境变量
	if err := models.LoadEnv(*envFile); err != nil {
		color.Red("加载环境变量文件失败: %v", err)
		return exitConfigError
	}

	config := loadConfig()

	if err := utils.InitLogger(config.LogLevel, config.LogFile); err != nil {
		color.Red("初始化日志失败: %v", err)
		return exitConfigError
	}

	printWelcome()

	if err := config.ValidateRun(); err != nil {
		var cfgErr *models.ConfigValidationError
		if errors.As(err, &cfgErr) && cfgErr.Field == "APIKey" {
			color.Red("未设置 %s，请在环境变量或 %s 中提供", models.APIKeyEnv, *envFile)
		} else {
			color.Red("配置无效: %v", err)
		}
		utils.Error("配置无效: %v", err)
		return exitConfigError
	}

	pc, err := controller.NewProcessorController(config, controller.DefaultDependencies(config))
	if err != nil {
		color.Red("创建处理器失败: %v", err)
		return exitRunFailed
	}
	defer pc.Cleanup()
	pc.SetupSignalHandlers()

	media, err := scanner.NewMediaScanner().Inspect(config.AudioPath)
	if err != nil {
		color.Red("读取音频文件失败: %v", err)
		return exitConfigError
	}
	fmt.Printf("正在处理: %s\n", media)
	result, err := pc.Run()

	pc.ErrorHandler.PrintErrorStats()
	controller.PrintSummary(result)

	if err != nil {
		color.Red("\n处理失败: %v", err)
		return exitRunFailed
	}

	if result.IsDegraded() {
		color.Yellow("\n处理完成，部分标注不可用")
	} else {
		color.Green("\n处理完成!")
	}
	return exitOK
}

func printWelcome() {
	fmt.Println()
	color.Cyan("================================")
	color.Cyan("      对话转写标注工具          ")
	color.Cyan("================================")
	fmt.Println()
}

func loadConfig() *models.Config {
	fmt.Print("加载配置... ")

	config := models.NewDefaultConfig()

	if *configFile != "" {
		if err := config.LoadFromFile(*configFile); err != nil {
			color.Yellow("警告: 加载配置文件失败: %v，使用默认配置", err)
			config.Reset()
		} else {
			color.Green("成功")
		}
	} else {
		color.Yellow("未指定配置文件，使用默认配置")
	}

	// 命令行参数覆盖配置文件
	if *audioPath != "" {
		config.AudioPath = *audioPath
	}
	if *outputFile != "" {
		config.OutputFile = *outputFile
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	if *logFile != "" {
		config.LogFile = *logFile
	}

	return config
}

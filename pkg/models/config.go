package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// APIKeyEnv 保存API密钥的环境变量名
const APIKeyEnv = "EDEN_API_KEY"

// DefaultBaseURL 默认的服务地址
const DefaultBaseURL = "https://api.edenai.run/v2/"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Config 表示应用程序的配置
type Config struct {
	BaseURL               string  `json:"base_url" validate:"required,url"`                         // 服务基础地址
	AudioPath             string  `json:"audio_path"`                                               // 待处理的音频文件
	OutputFile            string  `json:"output_file" validate:"required"`                          // 标注结果输出文件
	STTProvider           string  `json:"stt_provider" validate:"required"`                         // 语音转写服务商
	STTLanguage           string  `json:"stt_language"`                                             // 语音语言
	STTModel              string  `json:"stt_model"`                                                // 转写模型
	TextProvider          string  `json:"text_provider" validate:"required"`                        // 文本分析服务商
	TextLanguage          string  `json:"text_language"`                                            // 文本语言
	PollIntervalSeconds   float64 `json:"poll_interval_seconds" validate:"gte=0.01,lte=300"`        // 轮询间隔（秒）
	MaxWaitSeconds        float64 `json:"max_wait_seconds" validate:"gtefield=PollIntervalSeconds"` // 最长等待时间（秒）
	RequestTimeoutSeconds float64 `json:"request_timeout_seconds" validate:"gte=1,lte=3600"`        // 单次HTTP请求超时（秒）
	LogLevel              string  `json:"log_level"`                                                // 日志级别
	LogFile               string  `json:"log_file"`                                                 // 日志文件
	ExportJSON            bool    `json:"export_json"`                                              // 是否额外导出JSON
	ExportSRT             bool    `json:"export_srt"`                                               // 是否额外导出SRT字幕
	ShowProgress          bool    `json:"show_progress"`                                            // 显示进度条

	// APIKey 只从环境变量读取，不写入配置文件
	APIKey string `json:"-"`
}

// ConfigValidationError 表示配置验证错误
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("配置验证错误: %s - %s", e.Field, e.Message)
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		BaseURL:               DefaultBaseURL,
		AudioPath:             "",
		OutputFile:            "annotated_transcript.txt",
		STTProvider:           "deepgram",
		STTLanguage:           "en-US",
		STTModel:              "general",
		TextProvider:          "openai",
		TextLanguage:          "en",
		PollIntervalSeconds:   5,
		MaxWaitSeconds:        1800,
		RequestTimeoutSeconds: 120,
		LogLevel:              "INFO",
		LogFile:               "tool.log",
		ExportJSON:            false,
		ExportSRT:             false,
		ShowProgress:          true,
		APIKey:                strings.TrimSpace(os.Getenv(APIKeyEnv)),
	}
}

// LoadEnv 加载 .env 文件到进程环境变量，已存在的环境变量不会被覆盖
func LoadEnv(paths ...string) error {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			continue
		}
		existing = append(existing, p)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("加载环境变量文件失败: %w", err)
	}
	return nil
}

// PollInterval 轮询间隔
func (c *Config) PollInterval() time.Duration {
	return secondsToDuration(c.PollIntervalSeconds)
}

// MaxWait 轮询的最长等待时间
func (c *Config) MaxWait() time.Duration {
	return secondsToDuration(c.MaxWaitSeconds)
}

// RequestTimeout 单次HTTP请求超时
func (c *Config) RequestTimeout() time.Duration {
	return secondsToDuration(c.RequestTimeoutSeconds)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Validate 验证配置是否有效，返回第一个不合法的字段
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return &ConfigValidationError{"Config", err.Error()}
	}
	e := validationErrors[0]
	return &ConfigValidationError{e.StructField(), formatValidationError(e)}
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "不能为空"
	case "url":
		return "不是有效的URL"
	case "gte":
		return "不能小于 " + e.Param()
	case "lte":
		return "不能大于 " + e.Param()
	case "gtefield":
		return "不能小于 " + e.Param()
	default:
		return "无效的值"
	}
}

// ValidateRun 在开始处理前验证运行所需的输入（音频文件与API密钥）
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return &ConfigValidationError{"APIKey", fmt.Sprintf("环境变量 %s 未设置", APIKeyEnv)}
	}
	if c.AudioPath == "" {
		return &ConfigValidationError{"AudioPath", "未指定音频文件"}
	}
	if fi, err := os.Stat(c.AudioPath); err != nil || fi.IsDir() {
		return &ConfigValidationError{"AudioPath", fmt.Sprintf("音频文件不存在: %s", c.AudioPath)}
	}
	return nil
}

// LoadFromFile 从文件加载配置
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("读取配置文件失败: %v", err)
		return err
	}

	err = json.Unmarshal(data, c)
	if err != nil {
		logrus.Errorf("解析配置文件失败: %v", err)
		return err
	}

	if err := c.Validate(); err != nil {
		logrus.Errorf("配置验证失败: %v", err)
		return err
	}

	return nil
}

// SaveToFile 保存配置到文件
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logrus.Errorf("创建目录失败: %v", err)
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		logrus.Errorf("序列化配置失败: %v", err)
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		logrus.Errorf("写入配置文件失败: %v", err)
		return err
	}

	return nil
}

// Update 批量更新配置，验证失败时回滚
func (c *Config) Update(updates map[string]interface{}) error {
	tempConfig := *c

	updateBytes, err := json.Marshal(updates)
	if err != nil {
		logrus.Errorf("序列化更新数据失败: %v", err)
		return err
	}

	if err := json.Unmarshal(updateBytes, c); err != nil {
		*c = tempConfig
		logrus.Errorf("应用配置更新失败: %v", err)
		return err
	}

	if err := c.Validate(); err != nil {
		*c = tempConfig
		logrus.Errorf("配置验证失败: %v", err)
		return err
	}

	return nil
}

// Reset 重置为默认配置
func (c *Config) Reset() {
	*c = *NewDefaultConfig()
}

// PrintConfig 打印当前配置（不包含API密钥）
func (c *Config) PrintConfig() {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		logrus.Errorf("序列化配置失败: %v", err)
		return
	}
	logrus.Info("当前配置:\n" + string(bytes))
}

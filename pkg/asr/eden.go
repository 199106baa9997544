package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ccp-p/conversation-annotator/pkg/models"
	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

const (
	// API_SPEECH_TO_TEXT_ASYNC 异步语音转写接口路径
	API_SPEECH_TO_TEXT_ASYNC = "audio/speech_to_text_async"

	// DefaultPollInterval 默认轮询间隔
	DefaultPollInterval = 5 * time.Second

	// DefaultMaxWait 默认最长等待时间
	DefaultMaxWait = 30 * time.Minute

	maxResponseSize = 32 << 20
)

// ProviderParams 提交给转写服务商的参数
type ProviderParams struct {
	Model          string `json:"model"`
	Punctuate      bool   `json:"punctuate"`
	Diarize        bool   `json:"diarize"`
	DetectTopics   bool   `json:"detect_topics"`
	AutoHighlights bool   `json:"auto_highlights"`
	SmartFormat    bool   `json:"smart_format"`
	Utterances     bool   `json:"utterances"`
	Timestamps     bool   `json:"timestamps"`
}

// DefaultProviderParams 返回固定的转写参数
func DefaultProviderParams(model string) ProviderParams {
	return ProviderParams{
		Model:          model,
		Punctuate:      true,
		Diarize:        true,
		DetectTopics:   false,
		AutoHighlights: false,
		SmartFormat:    true,
		Utterances:     true,
		Timestamps:     true,
	}
}

// JobClientOptions 转写任务客户端的配置
type JobClientOptions struct {
	BaseURL      string
	APIKey       string
	Provider     string
	Language     string
	Params       ProviderParams
	PollInterval time.Duration
	MaxWait      time.Duration // <=0 时使用 DefaultMaxWait
	HTTPClient   *http.Client
	Clock        Clock
}

// JobClient 异步转写任务客户端：提交音频并轮询直到任务结束
type JobClient struct {
	baseURL      string
	apiKey       string
	provider     string
	language     string
	params       ProviderParams
	pollInterval time.Duration
	maxWait      time.Duration
	httpClient   *http.Client
	clock        Clock
}

// NewJobClient 创建转写任务客户端
func NewJobClient(opts JobClientOptions) *JobClient {
	c := &JobClient{
		baseURL:      strings.TrimRight(opts.BaseURL, "/") + "/",
		apiKey:       opts.APIKey,
		provider:     opts.Provider,
		language:     opts.Language,
		params:       opts.Params,
		pollInterval: opts.PollInterval,
		maxWait:      opts.MaxWait,
		httpClient:   opts.HTTPClient,
		clock:        opts.Clock,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.maxWait <= 0 {
		c.maxWait = DefaultMaxWait
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if c.clock == nil {
		c.clock = RealClock()
	}
	return c
}

// NewJobClientFromConfig 根据应用配置创建客户端
func NewJobClientFromConfig(cfg *models.Config, httpClient *http.Client) *JobClient {
	return NewJobClient(JobClientOptions{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Provider:     cfg.STTProvider,
		Language:     cfg.STTLanguage,
		Params:       DefaultProviderParams(cfg.STTModel),
		PollInterval: cfg.PollInterval(),
		MaxWait:      cfg.MaxWait(),
		HTTPClient:   httpClient,
	})
}

type submitResponse struct {
	PublicID string `json:"public_id"`
}

type jobStatusResponse struct {
	Status  string                     `json:"status"`
	Results map[string]json.RawMessage `json:"results"`
}

type providerResult struct {
	Text       string    `json:"text"`
	Transcript string    `json:"transcript"`
	Segments   []segment `json:"segments"`
}

type segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Submit 提交音频，返回任务ID
func (c *JobClient) Submit(ctx context.Context, fileName string, audio []byte) (string, error) {
	body, contentType, err := c.buildSubmitForm(fileName, audio)
	if err != nil {
		return "", &SubmissionError{Reason: "构建表单失败", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+API_SPEECH_TO_TEXT_ASYNC, body)
	if err != nil {
		return "", &SubmissionError{Reason: "创建HTTP请求失败", Cause: err}
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	utils.Info("提交转写任务...")
	status, respBody, err := c.do(req)
	if err != nil {
		utils.Error("发送转写请求失败: %v", err)
		return "", &SubmissionError{Reason: "发送HTTP请求失败", Cause: err}
	}
	if status < 200 || status >= 300 {
		utils.WithField("status_code", status).Errorf("转写请求被拒绝: %s", respBody)
		return "", &SubmissionError{Reason: "服务返回错误状态", StatusCode: status, Body: string(respBody)}
	}
	utils.Debug("转写提交响应: %s", respBody)

	var result submitResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &SubmissionError{Reason: "解析JSON响应失败", StatusCode: status, Body: string(respBody), Cause: err}
	}
	if result.PublicID == "" {
		utils.Error("响应中没有 public_id: %s", respBody)
		return "", &SubmissionError{Reason: "响应中没有 public_id", StatusCode: status, Body: string(respBody)}
	}

	utils.WithField("job_id", result.PublicID).Info("转写任务提交成功")
	return result.PublicID, nil
}

func (c *JobClient) buildSubmitForm(fileName string, audio []byte) (io.Reader, string, error) {
	params, err := json.Marshal(map[string]ProviderParams{c.provider: c.params})
	if err != nil {
		return nil, "", fmt.Errorf("JSON编码失败: %w", err)
	}

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	fields := [][2]string{
		{"providers", c.provider},
		{"language", c.language},
		{"provider_params", string(params)},
		{"show_original_response", "false"},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("写入表单字段失败: %w", err)
		}
	}

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", fmt.Errorf("创建表单文件失败: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("写入文件数据失败: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("关闭表单写入器失败: %w", err)
	}
	return &requestBody, writer.FormDataContentType(), nil
}

// Poll 按固定间隔查询任务状态，直到 finished 或 failed。
// ctx 取消或超过最长等待时间时返回错误。
func (c *JobClient) Poll(ctx context.Context, jobID string, callback ProgressCallback) (*models.TranscriptionResult, error) {
	log := utils.WithField("job_id", jobID)
	start := c.clock.Now()
	deadline := start.Add(c.maxWait)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.clock.After(c.pollInterval):
		}

		status, body, err := c.fetchStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"status": status.Status, "attempt": attempt}).Info("当前任务状态")

		switch models.JobStatus(status.Status) {
		case models.JobStatusFinished:
			result, err := c.extractResult(jobID, status, body)
			if err != nil {
				log.Errorf("转写结果缺少预期字段: %v", err)
				log.Debugf("完整任务响应: %s", body)
				return nil, err
			}
			log.WithField("provider", result.Provider).Info("转写任务完成")
			if callback != nil {
				callback(100, "转写完成")
			}
			return result, nil
		case models.JobStatusFailed:
			log.Errorf("转写任务失败: %s", body)
			return nil, &JobFailedError{JobID: jobID, Body: string(body)}
		}

		elapsed := c.clock.Now().Sub(start)
		if callback != nil {
			progress := 20 + int(float64(elapsed)/float64(c.maxWait)*79)
			if progress > 99 {
				progress = 99
			}
			callback(progress, fmt.Sprintf("任务处理中 (%s)...", status.Status))
		}
		if !c.clock.Now().Before(deadline) {
			log.Errorf("等待 %s 后任务仍未结束", c.maxWait)
			return nil, fmt.Errorf("%w: 任务 %s 等待 %s 后仍为 %q", ErrPollTimeout, jobID, c.maxWait, status.Status)
		}
	}
}

// fetchStatus 查询一次任务状态
func (c *JobClient) fetchStatus(ctx context.Context, jobID string) (*jobStatusResponse, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+API_SPEECH_TO_TEXT_ASYNC+"/"+jobID, nil)
	if err != nil {
		return nil, nil, &PollError{JobID: jobID, Cause: err}
	}
	c.setHeaders(req)

	status, body, err := c.do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		utils.Error("查询转写任务状态失败: %v", err)
		return nil, nil, &PollError{JobID: jobID, Cause: err}
	}
	if status < 200 || status >= 300 {
		utils.WithField("status_code", status).Errorf("查询转写任务状态失败: %s", body)
		return nil, body, &PollError{JobID: jobID, StatusCode: status, Body: string(body)}
	}
	utils.Debug("任务状态响应: %s", body)

	var result jobStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, body, &MalformedResultError{JobID: jobID, Reason: "解析JSON响应失败", Body: string(body), Cause: err}
	}
	return &result, body, nil
}

// extractResult 从 results 中取出服务商的结果。
// 优先使用配置的服务商，否则取排序后的第一个。
func (c *JobClient) extractResult(jobID string, status *jobStatusResponse, body []byte) (*models.TranscriptionResult, error) {
	if len(status.Results) == 0 {
		return nil, &MalformedResultError{JobID: jobID, Reason: "缺少 results", Body: string(body)}
	}

	provider := c.provider
	raw, ok := status.Results[provider]
	if !ok {
		names := make([]string, 0, len(status.Results))
		for name := range status.Results {
			names = append(names, name)
		}
		sort.Strings(names)
		provider = names[0]
		raw = status.Results[provider]
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &MalformedResultError{JobID: jobID, Reason: fmt.Sprintf("results.%s 不是对象", provider), Body: string(body)}
	}

	var pr providerResult
	if err := json.Unmarshal(trimmed, &pr); err != nil {
		return nil, &MalformedResultError{JobID: jobID, Reason: fmt.Sprintf("无法解析 results.%s", provider), Body: string(body), Cause: err}
	}

	result := &models.TranscriptionResult{
		JobID:      jobID,
		Provider:   provider,
		Text:       pr.Text,
		Transcript: pr.Transcript,
	}
	for i, s := range pr.Segments {
		if s.Start > s.End {
			return nil, &MalformedResultError{
				JobID:  jobID,
				Reason: fmt.Sprintf("第%d个片段开始时间 %v 大于结束时间 %v", i, s.Start, s.End),
				Body:   string(body),
			}
		}
		result.Segments = append(result.Segments, models.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return result, nil
}

func (c *JobClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("accept", "application/json")
}

// do 发送请求并读取响应
func (c *JobClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return resp.StatusCode, body, nil
}

// EdenAsyncASR 基于异步转写接口的 ASRService 实现
type EdenAsyncASR struct {
	*BaseASR
	client *JobClient
}

// NewEdenAsyncASR 加载音频并创建识别服务
func NewEdenAsyncASR(audioPath string, client *JobClient) (*EdenAsyncASR, error) {
	if client == nil {
		return nil, errors.New("转写任务客户端不能为空")
	}
	base, err := NewBaseASR(audioPath)
	if err != nil {
		return nil, err
	}
	return &EdenAsyncASR{BaseASR: base, client: client}, nil
}

// GetResult 实现ASRService接口
func (e *EdenAsyncASR) GetResult(ctx context.Context, callback ProgressCallback) (*models.TranscriptionResult, error) {
	if callback != nil {
		callback(5, "正在上传...")
	}

	jobID, err := e.client.Submit(ctx, e.FileName, e.FileBinary)
	if err != nil {
		return nil, err
	}

	if callback != nil {
		callback(20, "等待转写结果...")
	}

	result, err := e.client.Poll(ctx, jobID, callback)
	if err != nil {
		return nil, fmt.Errorf("等待转写任务 %s: %w", jobID, err)
	}
	return result, nil
}

package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ccp-p/conversation-annotator/pkg/models"
	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

const (
	// API_EMOTION_DETECTION 情绪识别接口路径
	API_EMOTION_DETECTION = "text/emotion_detection"

	// API_CUSTOM_NER 自定义实体识别接口路径
	API_CUSTOM_NER = "text/custom_named_entity_recognition"
)

// TextAnalysisClient 封装对文本分析接口的访问
type TextAnalysisClient struct {
	APIKey     string
	BaseURL    string
	Provider   string
	Language   string
	HttpClient *http.Client
}

// EmotionRequest 情绪识别请求
type EmotionRequest struct {
	Providers string `json:"providers"`
	Language  string `json:"language"`
	Text      string `json:"text"`
}

// IndicatorRequest 指标识别请求
type IndicatorRequest struct {
	Providers string   `json:"providers"`
	Text      string   `json:"text"`
	Entities  []string `json:"entities"`
}

// analysisResponse 两个接口共用的响应结构 results.<provider>.items
type analysisResponse[T any] struct {
	Results map[string]struct {
		Items []T `json:"items"`
	} `json:"results"`
}

// NewTextAnalysisClient 创建一个新的文本分析客户端
func NewTextAnalysisClient(apiKey, baseURL, provider, language string, httpClient *http.Client) *TextAnalysisClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &TextAnalysisClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/") + "/",
		Provider:   provider,
		Language:   language,
		HttpClient: httpClient,
	}
}

// NewTextAnalysisClientFromConfig 根据应用配置创建客户端
func NewTextAnalysisClientFromConfig(cfg *models.Config, httpClient *http.Client) *TextAnalysisClient {
	return NewTextAnalysisClient(cfg.APIKey, cfg.BaseURL, cfg.TextProvider, cfg.TextLanguage, httpClient)
}

// DetectEmotions 识别文本中的情绪
func (c *TextAnalysisClient) DetectEmotions(ctx context.Context, text string) ([]models.EmotionSpan, error) {
	utils.Info("正在识别情绪...")
	body, err := c.post(ctx, KindEmotion, API_EMOTION_DETECTION, EmotionRequest{
		Providers: c.Provider,
		Language:  c.Language,
		Text:      text,
	})
	if err != nil {
		return nil, err
	}

	items, err := decodeItems[models.EmotionSpan](c.Provider, body)
	if err != nil {
		return nil, &AnnotationError{Kind: KindEmotion, Body: string(body), Cause: err}
	}
	utils.WithField("count", len(items)).Info("情绪识别完成")
	utils.Debug("识别到的情绪: %+v", items)
	return items, nil
}

// DetectIndicators 使用固定标签集合识别文本中的指标
func (c *TextAnalysisClient) DetectIndicators(ctx context.Context, text string) ([]models.IndicatorSpan, error) {
	utils.Info("正在识别指标...")
	body, err := c.post(ctx, KindIndicator, API_CUSTOM_NER, IndicatorRequest{
		Providers: c.Provider,
		Text:      text,
		Entities:  IndicatorLabels(),
	})
	if err != nil {
		return nil, err
	}

	items, err := decodeItems[models.IndicatorSpan](c.Provider, body)
	if err != nil {
		return nil, &AnnotationError{Kind: KindIndicator, Body: string(body), Cause: err}
	}
	utils.WithField("count", len(items)).Info("指标识别完成")
	utils.Debug("识别到的指标: %+v", items)
	return items, nil
}

// post 发送JSON请求，非2xx状态视为失败
func (c *TextAnalysisClient) post(ctx context.Context, kind Kind, endpoint string, payload interface{}) ([]byte, error) {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, &AnnotationError{Kind: kind, Cause: fmt.Errorf("序列化请求失败: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, bytes.NewBuffer(jsonBytes))
	if err != nil {
		return nil, &AnnotationError{Kind: kind, Cause: fmt.Errorf("创建请求失败: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		utils.WithField("kind", kind).Errorf("发送请求失败: %v", err)
		return nil, &AnnotationError{Kind: kind, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AnnotationError{Kind: kind, StatusCode: resp.StatusCode, Cause: fmt.Errorf("读取响应失败: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		utils.WithField("kind", kind).Errorf("API返回错误状态码: %d, 响应: %s", resp.StatusCode, string(body))
		return nil, &AnnotationError{Kind: kind, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// decodeItems 读取 results.<provider>.items，路径缺失时返回空列表
func decodeItems[T any](provider string, body []byte) ([]T, error) {
	var response analysisResponse[T]
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	result, ok := response.Results[provider]
	if !ok || result.Items == nil {
		return []T{}, nil
	}
	return result.Items, nil
}

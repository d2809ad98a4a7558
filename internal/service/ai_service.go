package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"focusmath_backend/internal/config"
	"net/http"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	openai "github.com/sashabaranov/go-openai"
)

// ResponseSchema 要求模型返回的 JSON 结构
type ResponseSchema struct {
	Name       string
	Definition map[string]any
}

// TextGenerator 调用文本生成模型并返回符合 schema 的 JSON
type TextGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string, schema *ResponseSchema) (json.RawMessage, error)
}

// ErrAIRateLimited 上游返回 429
var ErrAIRateLimited = errors.New("ai provider rate limited")

type AIService struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewAIService 未配置 api_key 时返回 nil，调用方据此禁用题目生成
func NewAIService(cfg config.AIConfig) *AIService {
	if cfg.APIKey == "" {
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AIService{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
	}
}

func (s *AIService) GenerateJSON(ctx context.Context, system, prompt string, schema *ResponseSchema) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	}

	if schema != nil {
		raw, err := json.Marshal(schema.Definition)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schema.Name,
				Schema: json.RawMessage(raw),
				Strict: true,
			},
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %v", ErrAIRateLimited, err)
		}
		return nil, fmt.Errorf("AI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("AI API returned no choices")
	}

	content := json.RawMessage(resp.Choices[0].Message.Content)
	if err := validateJSON(schema, content); err != nil {
		return nil, err
	}
	return content, nil
}

var schemaCache sync.Map // name -> *jsonschema.Schema

// validateJSON 校验模型输出是否符合 schema
func validateJSON(schema *ResponseSchema, raw json.RawMessage) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON from AI: %w", err)
	}
	if schema == nil {
		return nil
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return err
	}
	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("AI response does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schema *ResponseSchema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// jsonschema 需要解析后的值而非 map[string]any 原样
	raw, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var def any
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}

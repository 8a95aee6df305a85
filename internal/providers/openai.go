package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// OpenAIName is the provider identifier.
	OpenAIName = "openai"

	openAIDefaultModel = openai.ChatModelGPT4o
)

// OpenAIConfig holds configuration for the OpenAI vision client.
type OpenAIConfig struct {
	APIKey     string
	Model      string        // default gpt-4o
	BaseURL    string        // optional, for OpenAI-compatible endpoints and tests
	RateLimit  int           // requests per minute (default 60)
	MaxRetries int           // transport retry attempts (default 3)
	RetryDelay time.Duration // base retry delay (default 1s)
	HTTPClient *http.Client  // optional (tests)
}

// OpenAIClient implements Client using the official OpenAI SDK.
type OpenAIClient struct {
	apiKey     string
	model      string
	maxRetries int
	retryDelay time.Duration
	limiter    *RateLimiter
	client     openai.Client
}

// NewOpenAIClient creates a vision client. A missing API key is allowed at
// construction; Configured reports it and every call fails fast.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 60
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are handled explicitly below so that per-call deadlines
		// classify as timeouts rather than being swallowed by the SDK.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		limiter:    NewRateLimiter(cfg.RateLimit),
		client:     openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return OpenAIName }

// Configured reports whether an API key is present.
func (c *OpenAIClient) Configured() bool { return c.apiKey != "" }

// Complete issues one vision call with a per-call deadline.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	result := &Result{PageNumber: req.PageNumber, CallType: req.CallType}
	start := time.Now()

	fail := func(err error) (*Result, error) {
		result.Success = false
		result.ErrorKind = Classify(err)
		result.ErrorMessage = err.Error()
		result.Duration = time.Since(start)
		return result, err
	}

	if !c.Configured() {
		return fail(ErrNotConfigured)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(callCtx); err != nil {
		return fail(fmt.Errorf("rate limit wait: %w", err))
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.Image),
		}),
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(parts))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := retry.DoWithData(
		func() (*openai.ChatCompletion, error) {
			return c.client.Chat.Completions.New(callCtx, params)
		},
		retry.Context(callCtx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// Deadline and cancellation surface immediately; only transport
			// level failures are worth another attempt.
			return callCtx.Err() == nil && Classify(err) == ErrorUnknown
		}),
	)
	if err != nil {
		return fail(fmt.Errorf("vision completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return fail(fmt.Errorf("vision completion: empty response"))
	}

	result.Success = true
	result.Text = resp.Choices[0].Message.Content
	result.InputTokens = int(resp.Usage.PromptTokens)
	result.OutputTokens = int(resp.Usage.CompletionTokens)
	result.Duration = time.Since(start)
	return result, nil
}

// Verify interface
var _ Client = (*OpenAIClient)(nil)

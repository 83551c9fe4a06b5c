// Package openai provides a chat completion node backed by the OpenAI API
// or any OpenAI compatible endpoint.
package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/agentstation/anchor"
)

const defaultModel = "gpt-4o-mini"

// Option configures a Chat node.
type Option func(*options)

type options struct {
	name         string
	apiKey       string
	baseURL      string
	systemPrompt string
	temperature  *float64
	maxTokens    int64
	maxRetries   int
	httpClient   *http.Client
	logger       anchor.Logger
	extra        []openaiopt.RequestOption
}

// WithName sets the node name. It defaults to the model name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithAPIKey sets the API key. Without it the client reads OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithSystemPrompt sends prompt as the system message of every request.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) { o.systemPrompt = prompt }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = &t }
}

// WithMaxTokens limits the completion length.
func WithMaxTokens(n int64) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithMaxRetries sets how often the client retries failed requests.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l anchor.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRequestOptions passes raw client options through.
func WithRequestOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) { o.extra = append(o.extra, opts...) }
}

// Chat sends its input as the user message and returns the content of the
// first choice.
type Chat struct {
	client openai.Client
	model  string
	opts   *options
}

// New creates a chat node for model. An empty model selects gpt-4o-mini.
func New(model string, opts ...Option) *Chat {
	if model == "" {
		model = defaultModel
	}
	o := &options{maxRetries: 2, logger: anchor.NopLogger{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.name == "" {
		o.name = model
	}

	var clientOpts []openaiopt.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, openaiopt.WithHTTPClient(o.httpClient))
	}
	clientOpts = append(clientOpts, openaiopt.WithMaxRetries(o.maxRetries))
	clientOpts = append(clientOpts, o.extra...)

	return &Chat{
		client: openai.NewClient(clientOpts...),
		model:  model,
		opts:   o,
	}
}

// Name implements anchor.Named.
func (c *Chat) Name() string { return c.opts.name }

// Model returns the model identifier sent with each request.
func (c *Chat) Model() string { return c.model }

// Process sends prompt to the model.
func (c *Chat) Process(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: c.messages(prompt),
	}
	if c.opts.temperature != nil {
		params.Temperature = openai.Float(*c.opts.temperature)
	}
	if c.opts.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.opts.maxTokens)
	}

	c.opts.logger.Debug(ctx, "openai request", "model", c.model, "prompt_len", len(prompt))
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(ctx, err)
	}

	if len(completion.Choices) == 0 {
		return "", anchor.NewError(anchor.KindEmptyResponse, "no choices returned")
	}
	content := completion.Choices[0].Message.Content
	if content == "" {
		return "", anchor.NewError(anchor.KindEmptyResponse, "empty message content")
	}
	c.opts.logger.Debug(ctx, "openai response",
		"model", completion.Model,
		"finish_reason", completion.Choices[0].FinishReason,
		"total_tokens", completion.Usage.TotalTokens)
	return content, nil
}

func (c *Chat) messages(prompt string) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if c.opts.systemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(c.opts.systemPrompt))
	}
	return append(msgs, openai.UserMessage(prompt))
}

// classify maps client failures onto anchor error kinds. API responses are
// KindOpenAI; everything else happened on the wire and is KindHTTP.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return anchor.Errorf(anchor.KindOpenAI, "status %d: %w", apiErr.StatusCode, err)
	}
	return anchor.WrapError(anchor.KindHTTP, err)
}

// Package chatbot proxies student questions to an OpenAI compatible chat
// completions API.
package chatbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/irsalhamdi/learnhub/config"
)

// DefaultReply is answered when the model returned no choices.
const DefaultReply = "No response from the chatbot."

var ErrUpstream = errors.New("chat completions API error")

type Client struct {
	http  *resty.Client
	url   string
	model string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewClient(cfg config.Chatbot) *Client {
	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json")

	return &Client{http: rc, url: cfg.URL, model: cfg.Model}
}

// Reply sends one user message and returns the first choice.
func (c *Client) Reply(ctx context.Context, message string) (string, error) {
	var out completionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(completionRequest{
			Model:    c.model,
			Messages: []chatMessage{{Role: "user", Content: message}},
		}).
		SetResult(&out).
		SetError(&out).
		Post(c.url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if out.Error != nil {
		return "", fmt.Errorf("%w: %s: %s", ErrUpstream, out.Error.Type, out.Error.Message)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return DefaultReply, nil
	}
	return out.Choices[0].Message.Content, nil
}

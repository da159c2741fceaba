package ai

import (
	"fmt"
	"strings"
)

// Response is what a provider returns for one generation call. It is either
// PlainText (local backends stream back bare text) or Structured (hosted chat
// APIs wrap the text in a message envelope).
type Response interface {
	isResponse()
}

// PlainText is a bare completion string
type PlainText string

// Structured is a chat-style completion message
type Structured struct {
	Content      string `json:"content"`
	Role         string `json:"role,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
}

func (PlainText) isResponse()  {}
func (Structured) isResponse() {}

// ResponseText normalizes a provider response to the text a caller consumes
func ResponseText(r Response) (string, error) {
	switch v := r.(type) {
	case PlainText:
		return strings.TrimSpace(string(v)), nil
	case Structured:
		return strings.TrimSpace(v.Content), nil
	case *Structured:
		if v == nil {
			return "", fmt.Errorf("nil structured response")
		}
		return strings.TrimSpace(v.Content), nil
	case nil:
		return "", fmt.Errorf("empty response")
	default:
		return "", fmt.Errorf("unsupported response type %T", r)
	}
}

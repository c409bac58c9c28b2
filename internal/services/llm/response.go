package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"hookreel/internal/services"
	"hookreel/internal/textutil"
)

const snippetLimit = 160

type chatCompletionResponse struct {
	Choices []struct {
		Message      replyMessage `json:"message"`
		Delta        replyMessage `json:"delta"`
		Text         string       `json:"text"`
		FinishReason string       `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type replyMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

// decodeReply pulls the text out of a completion body. Providers differ on
// where it lands: message.content, a streamed-style delta, or the legacy
// completions text field.
func decodeReply(body []byte) (string, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", services.Wrap(services.ErrExternalTool, serviceName, "decode reply", snippet(string(body)), err)
	}
	if resp.Error != nil {
		return "", services.Wrap(services.ErrExternalTool, serviceName, "complete", "api error: "+strings.TrimSpace(resp.Error.Message), nil)
	}
	if len(resp.Choices) == 0 {
		return "", services.Wrap(services.ErrTransient, serviceName, "complete", "no choices (response_snippet="+snippet(string(body))+")", nil)
	}
	choice := resp.Choices[0]
	for _, candidate := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
		if text := strings.TrimSpace(candidate); text != "" {
			return text, nil
		}
	}
	detail := fmt.Sprintf("empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		choice.FinishReason, choice.Message.Refusal, snippet(string(body)))
	return "", services.Wrap(services.ErrTransient, serviceName, "complete", detail, nil)
}

// snippet flattens whitespace and shortens content for error messages.
func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	return textutil.Truncate(clean, snippetLimit)
}

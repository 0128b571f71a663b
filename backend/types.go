package backend

import (
	"encoding/json"
	"fmt"
)

// ChatRequest is the payload of the backend's chat endpoint. UserPrompt is
// an opaque string; structured evaluation requests serialize their document
// into it (see transcode.Envelope.EncodedUserPrompt).
type ChatRequest struct {
	UserPrompt       string `json:"user_prompt"`
	ConversationFlow string `json:"conversation_flow"`
	UserID           string `json:"user_id,omitempty"`
	ThreadID         string `json:"thread_id,omitempty"`
}

// ChatResponse is the backend's chat reply. AgentResponse is itself a JSON
// string holding the per-agent chat transcript.
type ChatResponse struct {
	MessageID     string `json:"message_id"`
	ThreadID      string `json:"thread_id"`
	AgentResponse string `json:"agent_response"`
	TokenCount    int    `json:"token_count"`
}

// AgentEvaluation is one agent's contribution extracted from a chat
// transcript.
type AgentEvaluation struct {
	Agent   string `json:"agent"`
	Content string `json:"content"`
	Tokens  int    `json:"tokens"`
}

// agentChat mirrors the transcript's serialized object wrappers, where each
// chat and its message are nested under a "__dict__" key.
type agentChat struct {
	Dict struct {
		ChatName     string `json:"chat_name"`
		ChatResponse struct {
			ChatMessage struct {
				Dict struct {
					Content string `json:"content"`
				} `json:"__dict__"`
			} `json:"chat_message"`
		} `json:"chat_response"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"__dict__"`
}

// ParseAgentEvaluations decodes the AgentResponse transcript into per-agent
// evaluations, returning the summary agent's content separately when
// present. An empty transcript yields no evaluations and no error.
func ParseAgentEvaluations(agentResponse string) ([]AgentEvaluation, string, error) {
	if agentResponse == "" {
		return nil, "", nil
	}
	var chats []agentChat
	if err := json.Unmarshal([]byte(agentResponse), &chats); err != nil {
		return nil, "", fmt.Errorf("backend: parse agent response: %w", err)
	}

	var summary string
	evaluations := make([]AgentEvaluation, 0, len(chats))
	for _, chat := range chats {
		ev := AgentEvaluation{
			Agent:   chat.Dict.ChatName,
			Content: chat.Dict.ChatResponse.ChatMessage.Dict.Content,
			Tokens:  chat.Dict.CompletionTokens,
		}
		evaluations = append(evaluations, ev)
		if ev.Agent == "summary" {
			summary = ev.Content
		}
	}
	return evaluations, summary, nil
}

// PromptFileList is the backend's prompt listing shape.
type PromptFileList struct {
	Files []string `json:"files"`
}

// StatusError reports a non-2xx backend response, preserving the upstream
// status code so front-end handlers can propagate it.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

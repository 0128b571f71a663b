package transcode

import "encoding/json"

// UnknownWorkflow is the conversation_flow sentinel used when a call does
// not name its workflow.
const UnknownWorkflow = "unknown"

// Envelope is the nested document sent to the evaluation backend. UserPrompt
// carries revision_id, identifier, the assembled container array under the
// schema's container field name, and any top-level form fields that were not
// consumed during assembly.
type Envelope struct {
	UserPrompt       map[string]any `json:"user_prompt"`
	ConversationFlow string         `json:"conversation_flow"`
}

// RevisionID returns the revision recorded in the envelope, if any.
func (e *Envelope) RevisionID() string {
	s, _ := e.UserPrompt["revision_id"].(string)
	return s
}

// Identifier returns the correlation identifier recorded in the envelope.
func (e *Envelope) Identifier() string {
	s, _ := e.UserPrompt["identifier"].(string)
	return s
}

// Container returns the assembled array stored under the given container
// field name.
func (e *Envelope) Container(field string) []any {
	arr, _ := e.UserPrompt[field].([]any)
	return arr
}

// EncodedUserPrompt returns the user_prompt section serialized as a JSON
// string, which is how the chat backend expects to receive it.
func (e *Envelope) EncodedUserPrompt() (string, error) {
	b, err := json.Marshal(e.UserPrompt)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

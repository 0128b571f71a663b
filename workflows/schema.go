package workflows

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// EvaluationForm is the form document of the submission-over-criteria
// workflow. Its reflected schema drives the structural transcoder when the
// backend has no revision-specific schema to offer.
type EvaluationForm struct {
	Submissions       []Submission `json:"submissions"`
	Criteria          []Criterion  `json:"criteria"`
	AdditionalContext string       `json:"additional_context,omitempty"`
}

// Submission is one candidate being evaluated.
type Submission struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Criterion is one dimension submissions are scored against.
type Criterion struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// FallbackSchema reflects EvaluationForm into a JSON schema document with
// $defs, serialized for the transcoder's schema parser.
func FallbackSchema() ([]byte, error) {
	r := &jsonschema.Reflector{}
	s := r.Reflect(&EvaluationForm{})
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("workflows: marshal fallback schema: %w", err)
	}
	return data, nil
}

package coach

import "github.com/2beens/apexhq/internal/athlete"

// generateContent request/response bodies of the Gemini REST API, only the
// fields used here.

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema `json:"responseSchema,omitempty"`
}

type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Items       *schema            `json:"items,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// text joins the parts of the first candidate
func (r geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var text string
	for _, part := range r.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

var programSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]*schema{
		"dietPlan": {Type: "STRING"},
		"schedule": {
			Type: "ARRAY",
			Items: &schema{
				Type: "OBJECT",
				Properties: map[string]*schema{
					"title": {Type: "STRING"},
					"type":  {Type: "STRING", Enum: athlete.EventTypeNames()},
					"notes": {Type: "STRING"},
					"dayOffset": {
						Type:        "INTEGER",
						Description: "1 for tomorrow, 2 for day after, etc.",
					},
				},
			},
		},
	},
}

package gemini

// Wire types for the generateContent API.

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string       `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema      `json:"responseSchema,omitempty"`
	ImageConfig      *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

// profileSchema constrains the text model to the cafe profile shape the
// UI renders.
var profileSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]*schema{
		"name":            {Type: "STRING"},
		"location":        {Type: "STRING"},
		"yearEstablished": {Type: "STRING"},
		"description":     {Type: "STRING"},
		"tags":            {Type: "ARRAY", Items: &schema{Type: "STRING"}},
		"averageRating":   {Type: "NUMBER", Description: "Average rating out of 5"},
		"posterPrompt": {
			Type:        "STRING",
			Description: "A detailed visual description of the cafe for an image generator. Focus on lighting, mood, and composition.",
		},
		"reviews": {
			Type: "ARRAY",
			Items: &schema{
				Type: "OBJECT",
				Properties: map[string]*schema{
					"reviewerName": {Type: "STRING"},
					"rating":       {Type: "NUMBER", Description: "Rating out of 5, can be decimal like 3.5"},
					"text":         {Type: "STRING"},
					"date":         {Type: "STRING"},
					"likes":        {Type: "INTEGER"},
				},
			},
		},
	},
}

package completion

// Request is a code completion request. Either Segments or Prompt must be
// set; Prompt is sent to the model verbatim.
type Request struct {
	// Language is the language identifier of the file being edited, e.g.
	// "python". It selects stop words and the snippet comment syntax.
	Language string `json:"language,omitempty"`

	// Segments describe the cursor position.
	Segments *Segments `json:"segments,omitempty"`

	// Prompt bypasses prompt construction.
	Prompt string `json:"prompt,omitempty"`

	// User is an opaque end-user identifier recorded with the event.
	User string `json:"user,omitempty"`

	// Temperature overrides the sampling temperature.
	Temperature *float32 `json:"temperature,omitempty"`

	// Seed makes sampling reproducible.
	Seed *uint64 `json:"seed,omitempty"`
}

// Segments is the editor context around the cursor.
type Segments struct {
	// Prefix is the text before the cursor.
	Prefix string `json:"prefix"`

	// Suffix is the text after the cursor.
	Suffix string `json:"suffix,omitempty"`

	// Filepath is relative to the repository root.
	Filepath string `json:"filepath,omitempty"`

	// GitURL is the remote URL of the repository the file belongs to.
	GitURL string `json:"git_url,omitempty"`
}

// Response is returned by Generate.
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice is one generated continuation.
type Choice struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

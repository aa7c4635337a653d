package openai

import "errors"

var (
	errNoChoices   = errors.New("response contains no choices")
	errNoEmbedding = errors.New("response contains no embedding")
)

package providerfactory

import (
	"strings"

	"kestrel-hq/kestrel/pkg/config"
)

// fimTemplates are fill-in-the-middle templates for well-known code model
// families, matched against the lower-cased model name.
var fimTemplates = []struct {
	family   string
	template string
}{
	{"qwen2.5-coder", "<|fim_prefix|>{prefix}<|fim_suffix|>{suffix}<|fim_middle|>"},
	{"codeqwen", "<fim_prefix>{prefix}<fim_suffix>{suffix}<fim_middle>"},
	{"codegemma", "<|fim_prefix|>{prefix}<|fim_suffix|>{suffix}<|fim_middle|>"},
	{"deepseek-coder", "<｜fim▁begin｜>{prefix}<｜fim▁hole｜>{suffix}<｜fim▁end｜>"},
	{"codellama", "<PRE> {prefix} <SUF>{suffix} <MID>"},
	{"starcoder", "<fim_prefix>{prefix}<fim_suffix>{suffix}<fim_middle>"},
	{"codestral", "[SUFFIX]{suffix}[PREFIX]{prefix}"},
}

// BuildCompletionPrompt returns the prompt and chat templates for an http
// completion role. An explicit prompt_template wins; otherwise a built-in
// template is chosen by model family. A nil prompt template means the
// prefix is sent verbatim.
func BuildCompletionPrompt(cfg *config.HTTPModelConfig) (promptTemplate, chatTemplate *string) {
	if cfg == nil {
		return nil, nil
	}

	if cfg.PromptTemplate != "" {
		t := cfg.PromptTemplate
		promptTemplate = &t
	} else if t, ok := FIMTemplateFor(cfg.ModelName); ok {
		promptTemplate = &t
	}

	if cfg.ChatTemplate != "" {
		t := cfg.ChatTemplate
		chatTemplate = &t
	}

	return promptTemplate, chatTemplate
}

// FIMTemplateFor returns the built-in template for a model name.
func FIMTemplateFor(modelName string) (string, bool) {
	name := strings.ToLower(modelName)
	if name == "" {
		return "", false
	}
	for _, f := range fimTemplates {
		if strings.Contains(name, f.family) {
			return f.template, true
		}
	}
	return "", false
}

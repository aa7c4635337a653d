package completion

// Language describes how to stop generation and how to write a line comment
// for one language.
type Language struct {
	StopWords     []string
	CommentPrefix string
}

var defaultLanguage = Language{
	StopWords:     []string{"\n\n"},
	CommentPrefix: "//",
}

var languages = map[string]Language{
	"python": {
		StopWords:     []string{"\n\n", "\ndef", "\n#", "\nfrom", "\nclass", "\nimport"},
		CommentPrefix: "#",
	},
	"go": {
		StopWords:     []string{"\n\n", "\nfunc", "\n//", "\ntype", "\nvar", "\nconst", "\nimport"},
		CommentPrefix: "//",
	},
	"rust": {
		StopWords:     []string{"\n\n", "\nfn", "\n//", "\nimpl", "\nstruct", "\nenum", "\nmod", "\nuse"},
		CommentPrefix: "//",
	},
	"javascript": {
		StopWords:     []string{"\n\n", "\nfunction", "\n//", "\nclass", "\nexport", "\nimport"},
		CommentPrefix: "//",
	},
	"typescript": {
		StopWords:     []string{"\n\n", "\nfunction", "\n//", "\nclass", "\ninterface", "\ntype", "\nexport", "\nimport"},
		CommentPrefix: "//",
	},
	"java": {
		StopWords:     []string{"\n\n", "\n//", "\npublic", "\nprivate", "\nclass", "\nimport"},
		CommentPrefix: "//",
	},
	"ruby": {
		StopWords:     []string{"\n\n", "\ndef", "\n#", "\nclass", "\nmodule", "\nrequire"},
		CommentPrefix: "#",
	},
	"bash": {
		StopWords:     []string{"\n\n", "\n#"},
		CommentPrefix: "#",
	},
	"lua": {
		StopWords:     []string{"\n\n", "\n--", "\nfunction", "\nlocal"},
		CommentPrefix: "--",
	},
	"sql": {
		StopWords:     []string{"\n\n", "\n--"},
		CommentPrefix: "--",
	},
}

// LookupLanguage returns the settings for id, falling back to a generic
// C-style language.
func LookupLanguage(id string) Language {
	if l, ok := languages[id]; ok {
		return l
	}
	return defaultLanguage
}

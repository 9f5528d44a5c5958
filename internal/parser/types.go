package parser

// FileFacts holds what hal needs to know about one script file
type FileFacts struct {
	Path          string
	Language      string
	Imports       []string          // imported modules, dotted
	ImportAliases map[string]string // alias -> import target (module, optionally module#symbol)
	PathKeys      []string          // config path keys the file reads
	Hash          string            // short content hash
}

// ParseIssue captures non-fatal parser warnings/errors encountered while scanning files.
type ParseIssue struct {
	File     string `json:"file"`
	Language string `json:"language,omitempty"`
	Severity string `json:"severity"` // warning | error
	Message  string `json:"message"`
}

// SourceFile is one source file found beneath a script directory.
type SourceFile struct {
	Path    string // absolute
	RelPath string // forward-slash, relative to the scanned root
}

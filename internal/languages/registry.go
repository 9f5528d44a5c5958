package languages

import "github.com/jhsmit/hal/internal/parser"

// NewDefaultRegistry creates a registry with all supported script parsers
func NewDefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()

	r.Register(NewPythonParser())

	return r
}

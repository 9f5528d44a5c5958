package languages

import (
	"context"
	"strings"

	"github.com/jhsmit/hal/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// pathMappingNames are the attribute/variable names under which scripts reach
// the configured data paths, e.g. cfg.paths["raw"].
var pathMappingNames = map[string]bool{
	"paths": true,
}

// dynamicImportCalls take a module name as their first argument.
var dynamicImportCalls = map[string]bool{
	"importlib.import_module": true,
	"import_module":           true,
	"__import__":              true,
}

// PythonParser implements parsing for Python source files
type PythonParser struct {
	parser *sitter.Parser
}

// NewPythonParser creates a new Python parser
func NewPythonParser() *PythonParser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonParser{parser: p}
}

func (p *PythonParser) Language() string {
	return "python"
}

func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyw"}
}

func (p *PythonParser) Parse(filename string, content []byte) (*parser.FileFacts, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &parser.FileFacts{
		Path:          filename,
		Language:      "python",
		Imports:       make([]string, 0),
		ImportAliases: make(map[string]string),
		PathKeys:      make([]string, 0),
	}

	p.walk(tree.RootNode(), content, result)
	return result, nil
}

func (p *PythonParser) walk(node *sitter.Node, content []byte, result *parser.FileFacts) {
	switch node.Type() {
	case "import_statement":
		imports, aliases := p.extractImport(node, content)
		result.Imports = append(result.Imports, imports...)
		result.ImportAliases = mergeImportAliases(result.ImportAliases, aliases)
		return

	case "import_from_statement":
		imports, aliases := p.extractFromImport(node, content)
		result.Imports = append(result.Imports, imports...)
		result.ImportAliases = mergeImportAliases(result.ImportAliases, aliases)
		return

	case "subscript":
		if key, ok := p.extractSubscriptKey(node, content); ok {
			result.PathKeys = append(result.PathKeys, key)
		}

	case "attribute":
		if key, ok := p.extractAttributeKey(node, content); ok {
			result.PathKeys = append(result.PathKeys, key)
		}

	case "call":
		p.extractCall(node, content, result)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walk(node.Child(i), content, result)
	}
}

func (p *PythonParser) extractImport(node *sitter.Node, content []byte) ([]string, map[string]string) {
	imports := make([]string, 0)
	aliases := make(map[string]string)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			module := strings.TrimSpace(child.Content(content))
			if module != "" {
				imports = append(imports, module)
				aliases[topLevelName(module)] = module
			}
		case "aliased_import":
			module, alias := parsePythonAliasedImport(child.Content(content))
			if module != "" {
				imports = append(imports, module)
			}
			if alias != "" && module != "" {
				aliases[alias] = module
			}
		}
	}
	return imports, aliases
}

// extractFromImport records `from a.b import c`. Relative imports name local
// modules and are skipped.
func (p *PythonParser) extractFromImport(node *sitter.Node, content []byte) ([]string, map[string]string) {
	aliases := make(map[string]string)
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil || moduleNode.Type() == "relative_import" {
		return nil, aliases
	}
	moduleName := strings.TrimSpace(moduleNode.Content(content))
	if moduleName == "" || strings.HasPrefix(moduleName, ".") {
		return nil, aliases
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) != "name" {
			continue
		}
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "aliased_import":
			importedName := ""
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				importedName = strings.TrimSpace(nameNode.Content(content))
			}
			aliasName := ""
			if aliasNode := child.ChildByFieldName("alias"); aliasNode != nil {
				aliasName = strings.TrimSpace(aliasNode.Content(content))
			}
			if aliasName != "" && importedName != "" {
				aliases[aliasName] = fromImportAliasTarget(moduleName, importedName)
			}
		case "dotted_name", "identifier":
			importedName := strings.TrimSpace(child.Content(content))
			if importedName != "" {
				aliases[importedName] = fromImportAliasTarget(moduleName, importedName)
			}
		}
	}

	return []string{moduleName}, aliases
}

// extractSubscriptKey matches paths["key"] and cfg.paths["key"].
func (p *PythonParser) extractSubscriptKey(node *sitter.Node, content []byte) (string, bool) {
	value := node.ChildByFieldName("value")
	if value == nil || !isPathMapping(value, content) {
		return "", false
	}
	index := node.ChildByFieldName("subscript")
	if index == nil || index.Type() != "string" {
		return "", false
	}
	return stringLiteral(index.Content(content))
}

// extractAttributeKey matches cfg.paths.key style access.
func (p *PythonParser) extractAttributeKey(node *sitter.Node, content []byte) (string, bool) {
	object := node.ChildByFieldName("object")
	attr := node.ChildByFieldName("attribute")
	if object == nil || attr == nil || !isPathMapping(object, content) {
		return "", false
	}
	name := strings.TrimSpace(attr.Content(content))
	switch name {
	case "", "get", "items", "keys", "values":
		return "", false
	}
	if parent := node.Parent(); parent != nil && parent.Type() == "call" {
		return "", false
	}
	return name, true
}

// extractCall handles paths.get("key") and dynamic imports.
func (p *PythonParser) extractCall(node *sitter.Node, content []byte, result *parser.FileFacts) {
	function := node.ChildByFieldName("function")
	arguments := node.ChildByFieldName("arguments")
	if function == nil || arguments == nil {
		return
	}
	first := firstPositionalArgument(arguments)
	if first == nil || first.Type() != "string" {
		return
	}
	literal, ok := stringLiteral(first.Content(content))
	if !ok {
		return
	}

	callee := strings.TrimSpace(function.Content(content))
	if dynamicImportCalls[callee] {
		if !strings.HasPrefix(literal, ".") {
			result.Imports = append(result.Imports, literal)
		}
		return
	}

	if function.Type() != "attribute" {
		return
	}
	object := function.ChildByFieldName("object")
	attr := function.ChildByFieldName("attribute")
	if object != nil && attr != nil && attr.Content(content) == "get" && isPathMapping(object, content) {
		result.PathKeys = append(result.PathKeys, literal)
	}
}

func isPathMapping(node *sitter.Node, content []byte) bool {
	switch node.Type() {
	case "identifier":
		return pathMappingNames[node.Content(content)]
	case "attribute":
		attr := node.ChildByFieldName("attribute")
		return attr != nil && pathMappingNames[attr.Content(content)]
	}
	return false
}

func firstPositionalArgument(arguments *sitter.Node) *sitter.Node {
	for i := 0; i < int(arguments.NamedChildCount()); i++ {
		child := arguments.NamedChild(i)
		if child.Type() == "keyword_argument" || child.Type() == "comment" {
			continue
		}
		return child
	}
	return nil
}

// stringLiteral unquotes a plain Python string literal. Formatted, byte and
// concatenated literals are rejected.
func stringLiteral(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	prefix := strings.ToLower(raw[:len(raw)-len(strings.TrimLeft(raw, "rRuUbBfF"))])
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}
	raw = raw[len(prefix):]
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if len(raw) >= 2*len(quote) && strings.HasPrefix(raw, quote) && strings.HasSuffix(raw, quote) {
			inner := raw[len(quote) : len(raw)-len(quote)]
			if strings.Contains(inner, quote) {
				return "", false
			}
			return inner, inner != ""
		}
	}
	return "", false
}

func parsePythonAliasedImport(raw string) (module, alias string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	module, alias = splitAliasByAs(raw)
	if alias == "" {
		alias = topLevelName(module)
	}
	return module, alias
}

func fromImportAliasTarget(moduleName, symbolName string) string {
	moduleName = strings.TrimSpace(moduleName)
	symbolName = strings.TrimSpace(symbolName)
	if moduleName == "" {
		return ""
	}
	if symbolName == "" {
		return moduleName
	}
	return moduleName + "#" + symbolName
}

func topLevelName(module string) string {
	module = strings.TrimSpace(module)
	if idx := strings.Index(module, "."); idx != -1 {
		return module[:idx]
	}
	return module
}

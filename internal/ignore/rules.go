package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// RulesFile holds user ignore rules, one gitignore-style pattern per line.
const RulesFile = ".halignore"

// LoadRules reads dir/.halignore. A missing file yields no rules.
func LoadRules(dir string) ([]string, error) {
	ignorePath := filepath.Join(dir, RulesFile)
	f, err := os.Open(ignorePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", RulesFile)
	}
	defer f.Close()

	rules := make([]string, 0)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", RulesFile)
	}

	return rules, nil
}

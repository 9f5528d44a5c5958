package inventory

import (
	"os"
	"path/filepath"
	"strings"
)

// Stdlib is the set of names that ship with the interpreter.
type Stdlib struct {
	names map[string]bool
}

// NewStdlib builds a set from names.
func NewStdlib(names ...string) *Stdlib {
	s := &Stdlib{names: make(map[string]bool, len(names))}
	s.Add(names...)
	return s
}

func (s *Stdlib) Add(names ...string) {
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			s.names[name] = true
		}
	}
}

// AddDir adds the entries of a standard library directory. File stems lose
// their last extension and any remaining ".py".
func (s *Stdlib) AddDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		s.Add(strings.ReplaceAll(stem, ".py", ""))
	}
	return nil
}

func (s *Stdlib) Contains(name string) bool {
	return s != nil && s.names[name]
}

func (s *Stdlib) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// FallbackStdlib is used when no interpreter can be run.
func FallbackStdlib() *Stdlib {
	return NewStdlib(fallbackStdlibNames...)
}

var fallbackStdlibNames = []string{
	"__future__", "_thread", "abc", "argparse", "array", "ast", "asyncio",
	"atexit", "base64", "binascii", "bisect", "builtins", "bz2", "calendar",
	"cmath", "codecs", "collections", "colorsys", "concurrent", "configparser",
	"contextlib", "contextvars", "copy", "copyreg", "csv", "ctypes",
	"dataclasses", "datetime", "decimal", "difflib", "dis", "distutils",
	"email", "encodings", "enum", "errno", "faulthandler", "fcntl",
	"filecmp", "fileinput", "fnmatch", "fractions", "ftplib", "functools",
	"gc", "getopt", "getpass", "gettext", "glob", "graphlib", "gzip",
	"hashlib", "heapq", "hmac", "html", "http", "imaplib", "importlib",
	"inspect", "io", "ipaddress", "itertools", "json", "keyword", "linecache",
	"locale", "logging", "lzma", "marshal", "math", "mimetypes", "mmap",
	"multiprocessing", "numbers", "operator", "os", "pathlib", "pdb",
	"pickle", "pkgutil", "platform", "plistlib", "pprint", "profile",
	"pstats", "queue", "random", "re", "reprlib", "resource", "secrets",
	"select", "selectors", "shelve", "shlex", "shutil", "signal", "site",
	"socket", "socketserver", "sqlite3", "ssl", "stat", "statistics",
	"string", "struct", "subprocess", "sys", "sysconfig", "tarfile",
	"tempfile", "textwrap", "threading", "time", "timeit", "tkinter",
	"token", "tokenize", "tomllib", "traceback", "types", "typing",
	"unicodedata", "unittest", "urllib", "uuid", "venv", "warnings",
	"weakref", "xml", "zipfile", "zipimport", "zlib", "zoneinfo",
}

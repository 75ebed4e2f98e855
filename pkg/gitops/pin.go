package gitops

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var pinPattern = regexp.MustCompile(`(?m)^ARG VECTORCHORD="[^"]*"`)

// PatternNotFoundError reports a build file without a pin line. The file is
// left untouched when it is returned.
type PatternNotFoundError struct {
	Path string
}

func (e *PatternNotFoundError) Error() string {
	return fmt.Sprintf("no VECTORCHORD version found to update in %s", e.Path)
}

// AlreadyPinnedError reports a pin that already holds the requested version,
// so the rewrite would leave nothing to commit.
type AlreadyPinnedError struct {
	Path    string
	Version string
}

func (e *AlreadyPinnedError) Error() string {
	return fmt.Sprintf("%s already pins VECTORCHORD to %s", e.Path, e.Version)
}

// ReplacePin rewrites the quoted value of every ARG VECTORCHORD line that
// starts a line. All other bytes are preserved. ok is false when no line
// matched, in which case content is returned as is.
func ReplacePin(content []byte, version string) (out []byte, ok bool) {
	if !pinPattern.Match(content) {
		return content, false
	}
	repl := []byte(fmt.Sprintf(`ARG VECTORCHORD="%s"`, version))
	return pinPattern.ReplaceAllLiteral(content, repl), true
}

// RewritePin applies ReplacePin to the file at path and writes the result
// back in place, keeping the file mode. With write=false the file is only
// checked.
func RewritePin(path, version string, write bool) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	updated, ok := ReplacePin(content, version)
	if !ok {
		return &PatternNotFoundError{Path: path}
	}
	if bytes.Equal(updated, content) {
		return &AlreadyPinnedError{Path: path, Version: version}
	}
	if !write {
		return nil
	}
	return writeFileAtomically(path, updated, st.Mode().Perm())
}

// writeFileAtomically writes to a temp file in the destination directory and
// renames it over path.
func writeFileAtomically(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

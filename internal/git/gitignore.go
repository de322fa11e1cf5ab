// Package git keeps local credentials and database files out of version
// control.
package git

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// IsRepository reports whether dir is inside a Git work tree. An empty dir
// means the working directory.
func IsRepository(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// EnsureEntries appends the entries missing from the ignore file at path,
// creating it when needed, and returns the ones it added. Entries are
// compared after trimming surrounding whitespace.
func EnsureEntries(path string, entries []string) ([]string, error) {
	existing, err := readEntries(path)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" || existing[entry] {
			continue
		}
		existing[entry] = true
		missing = append(missing, entry)
	}
	if len(missing) == 0 {
		return nil, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open or create %s: %w", path, err)
	}
	defer file.Close()

	var b strings.Builder
	if needsNewline(path) {
		b.WriteString("\n")
	}
	for _, entry := range missing {
		b.WriteString(entry + "\n")
	}
	if _, err := file.WriteString(b.String()); err != nil {
		return nil, fmt.Errorf("failed to write to %s: %w", path, err)
	}
	return missing, nil
}

func readEntries(path string) (map[string]bool, error) {
	entries := make(map[string]bool)

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		entries[strings.TrimSpace(scanner.Text())] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return entries, nil
}

// needsNewline reports whether the file at path is non-empty and does not
// end with a newline.
func needsNewline(path string) bool {
	data, err := os.ReadFile(path)
	return err == nil && len(data) > 0 && data[len(data)-1] != '\n'
}

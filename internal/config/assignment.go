package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrAssignmentNotFound indicates the assignment directory does not exist.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrRubricNotFound indicates no rubric image is present in the assignment directory.
var ErrRubricNotFound = errors.New("rubric image not found")

// Assignment describes one gradable assignment on disk:
//
//	<root>/<name>/submissions/   student files
//	<root>/<name>/rubric.*       single rubric image (any common format)
//	<root>/<name>/instructions.txt  optional extra grading instructions
type Assignment struct {
	Name            string
	SubmissionsDir  string
	RubricImagePath string
	RubricImage     []byte
	Instructions    string
}

// LoadAssignment resolves and loads the named assignment under root. The
// rubric image is identified by sniffing file contents, not by extension.
func LoadAssignment(root, name string) (Assignment, error) {
	dir := filepath.Join(root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Assignment{}, fmt.Errorf("%w: %s", ErrAssignmentNotFound, dir)
	}

	assignment := Assignment{
		Name:           name,
		SubmissionsDir: filepath.Join(dir, "submissions"),
	}

	rubricPath, err := findRubricImage(dir)
	if err != nil {
		return Assignment{}, err
	}
	assignment.RubricImagePath = rubricPath

	image, err := os.ReadFile(rubricPath)
	if err != nil {
		return Assignment{}, fmt.Errorf("read rubric image: %w", err)
	}
	assignment.RubricImage = image

	instructions, err := os.ReadFile(filepath.Join(dir, "instructions.txt"))
	if err == nil {
		assignment.Instructions = strings.TrimSpace(string(instructions))
	}

	return assignment, nil
}

func findRubricImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read assignment directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		kind, err := mimetype.DetectFile(path)
		if err != nil {
			continue
		}
		if strings.HasPrefix(kind.String(), "image/") {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrRubricNotFound, dir)
}

package submission

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// ErrMissingDir indicates the submissions directory does not exist.
var ErrMissingDir = errors.New("submissions directory not found")

// ErrNoSubmissions indicates the directory holds no eligible files.
var ErrNoSubmissions = errors.New("no submissions found")

// ErrDuplicateIdentity indicates two files resolve to the same student identity.
var ErrDuplicateIdentity = errors.New("duplicate submission identity")

// Submission is one student file awaiting grading. RawText and
// ExtractionError are filled in by the Adapter, not the Loader.
type Submission struct {
	Identity        string
	SourcePath      string
	RawText         string
	ExtractionError string
}

// Loader enumerates submission files and derives their identities.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader constructs a loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{logger: logger.With().Str("component", "submission_loader").Logger()}
}

// List returns the submissions in dir ordered by identity. The ordering is
// deterministic across runs, which resumption depends on. File contents are
// not read here.
func (l *Loader) List(dir string) ([]Submission, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingDir, dir)
		}
		return nil, fmt.Errorf("read submissions directory: %w", err)
	}

	seen := make(map[string]string)
	submissions := make([]Submission, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !eligible(entry.Name()) {
			continue
		}

		identity := IdentityFromFilename(entry.Name())
		if prev, ok := seen[identity]; ok {
			return nil, fmt.Errorf("%w: %q maps to the same identity as %q", ErrDuplicateIdentity, entry.Name(), prev)
		}
		seen[identity] = entry.Name()

		submissions = append(submissions, Submission{
			Identity:   identity,
			SourcePath: filepath.Join(dir, entry.Name()),
		})
	}

	if len(submissions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSubmissions, dir)
	}

	sort.Slice(submissions, func(i, j int) bool {
		return submissions[i].Identity < submissions[j].Identity
	})

	l.logger.Debug().Int("count", len(submissions)).Str("dir", dir).Msg("submissions enumerated")

	return submissions, nil
}

// IdentityFromFilename derives the student identity from a file name.
// The stem is lowercased and separator characters collapse to spaces, so
// "Van_Der-Berg.pdf" becomes "van der berg".
func IdentityFromFilename(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")
	return strings.ToLower(stem)
}

func eligible(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

package main

import (
	"errors"
	"os"

	typsync "github.com/typsync/typsync"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage       = errors.New("usage: typsync [flags] <input.md>")
	ErrReadInput   = errors.New("failed to read markdown file")
	ErrReadQuery   = errors.New("failed to read query file")
	ErrWriteOutput = errors.New("failed to write output")
)

// Exit codes for the typsync CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, 3=I/O.
const (
	ExitSuccess = 0
	ExitGeneral = 1
	ExitUsage   = 2
	ExitIO      = 3
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrReadQuery) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	if errors.Is(err, ErrUsage) ||
		errors.Is(err, typsync.ErrEmptyMarkdown) ||
		errors.Is(err, typsync.ErrDocumentTooBig) {
		return ExitUsage
	}

	return ExitGeneral
}

package core

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SyncErrorBadInput           = "DIRSYNC_BAD_INPUT"
	SyncErrorConnectionFailed   = "DIRSYNC_CONNECTION_FAILED"
	SyncErrorInvalidMappings    = "DIRSYNC_INVALID_FIELD_MAPPINGS"
	SyncErrorInvalidGroupFilter = "DIRSYNC_INVALID_GROUP_FILTER"
	SyncErrorWriteFailed        = "DIRSYNC_WRITE_FAILED"
	SyncErrorInternal           = "DIRSYNC_INTERNAL_ERROR"
)

// Process exit codes for run-fatal failure categories. Per-entity and
// vocabulary failures never reach an exit code.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitConnection     = 2
	ExitInvalidMapping = 3
	ExitInvalidFilter  = 4
)

func ConnectionError(service string, cause error) error {
	err := goerrors.Wrap(cause, goerrors.CategoryExternal, "core: "+service+" is unreachable").
		WithTextCode(SyncErrorConnectionFailed).
		WithCode(ExitConnection)
	return err
}

func InvalidMappingsError(collection Collection, issues []MappingIssue) error {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Code)
	}
	return goerrors.New("core: invalid field mappings for "+string(collection), goerrors.CategoryValidation).
		WithTextCode(SyncErrorInvalidMappings).
		WithCode(ExitInvalidMapping).
		WithMetadata(map[string]any{
			"collection": string(collection),
			"issues":     messages,
		})
}

func InvalidGroupFilterError(message string) error {
	return goerrors.New("core: invalid group filter: "+message, goerrors.CategoryBadInput).
		WithTextCode(SyncErrorInvalidGroupFilter).
		WithCode(ExitInvalidFilter)
}

func InternalError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithTextCode(SyncErrorInternal).
		WithCode(ExitFailure)
}

// ExitCode maps a run error to the process exit code contract:
// 0 success, 2 connection failure, 3 invalid field mappings,
// 4 invalid group filter, 1 anything else.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return ExitFailure
	}
	switch strings.TrimSpace(richErr.TextCode) {
	case SyncErrorConnectionFailed:
		return ExitConnection
	case SyncErrorInvalidMappings:
		return ExitInvalidMapping
	case SyncErrorInvalidGroupFilter:
		return ExitInvalidFilter
	default:
		if richErr.Code > 0 {
			return richErr.Code
		}
		return ExitFailure
	}
}

package dfapi

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/serum-errors/go-serum"
)

const (
	ECodeAlreadyExists  = "dataforge-error-already-exists"
	ECodeCatalogInvalid = "dataforge-error-catalog-invalid"
	ECodeCatalogParse   = "dataforge-error-catalog-parse"
	ECodeCatalogVersion = "dataforge-error-catalog-version"
	ECodeDatasetInvalid = "dataforge-error-dataset-invalid"
	ECodeGit            = "dataforge-error-git"
	ECodeHttp           = "dataforge-error-http"
	ECodeInternal       = "dataforge-error-internal"
	ECodeInvalid        = "dataforge-error-invalid"
	ECodeIo             = "dataforge-error-io"
	ECodeMissing        = "dataforge-error-missing"
	ECodeName           = "dataforge-error-name"
	ECodeSearch         = "dataforge-error-searching-filesystem"
	ECodeSerialization  = "dataforge-error-serialization"
	ECodeUnknown        = "dataforge-error-unknown"
	ECodeWarehouse      = "dataforge-error-warehouse"
)

// TerminalError emits an error on stdout as json, and halts immediately.
// In most cases, you should not use this method, and there will be a better place to send errors
// that will be more guaranteed to fit any protocols and scripts better;
// however, this is sometimes used in init methods (where we know no other protocol yet).
func TerminalError(err serum.ErrorInterface, exitCode int) {
	json.NewEncoder(os.Stdout).Encode(struct {
		Error serum.ErrorInterface `json:"error"`
	}{err})
	os.Exit(exitCode)
}

// ErrorUnknown is returned when an unknown error occurs
//
// Errors:
//
//    - dataforge-error-unknown --
func ErrorUnknown(msgTmpl string, cause error) error {
	return serum.Errorf(ECodeUnknown, "%s: %w", msgTmpl, cause)
}

// ErrorInternal is for miscellaneous errors that should be handled internally.
// In most cases, prefer to use more specific errors.
// Can be used when an end user is not expected to have viable intervention strategies.
//
// Errors:
//
//    - dataforge-error-internal --
func ErrorInternal(msgTmpl string, cause error) error {
	return serum.Errorf(ECodeInternal, "%s: %w", msgTmpl, cause)
}

// ErrorIo wraps generic I/O errors from the Go stdlib
//
// Errors:
//
//    - dataforge-error-io --
func ErrorIo(context string, path string, cause error) error {
	result := serum.Errorf(ECodeIo, "io error: %s: %w", context, cause)
	addDetails(result, [][2]string{{"context", context}, {"path", path}})
	return result
}

// ErrorSerialization is returned when a serialization or deserialization error occurs
//
// Errors:
//
//    - dataforge-error-serialization --
func ErrorSerialization(context string, cause error) error {
	result := serum.Errorf(ECodeSerialization,
		"serialization error: %s: %w", context, cause)
	addDetails(result, [][2]string{
		{"context", context},
	})
	return result
}

// ErrorInvalid is returned when something is invalid.
// In most cases, prefer to use more specific errors.
// The caller must format the message string.
//
// Errors:
//
//    - dataforge-error-invalid --
func ErrorInvalid(message string, deets ...[2]string) error {
	opts := make([]serum.WithConstruction, 0, len(deets)+1)
	for _, d := range deets {
		opts = append(opts, serum.WithDetail(d[0], d[1]))
	}
	opts = append(opts, serum.WithMessageLiteral(message))
	return serum.Error(ECodeInvalid, opts...)
}

// ErrorSearchingFilesystem is returned when an error occurs during search
//
// Errors:
//
//    - dataforge-error-searching-filesystem --
func ErrorSearchingFilesystem(searchingFor string, cause error) error {
	result := serum.Errorf(ECodeSearch,
		"error while searching filesystem for %s: %w", searchingFor, cause)
	addDetails(result, [][2]string{
		{"searchingFor", searchingFor},
		// the cause is presumed to have any path(s) relevant.
	})
	return result
}

// ErrorCatalogParse is returned when parsing of a catalog file fails
//
// Errors:
//
//    - dataforge-error-catalog-parse --
func ErrorCatalogParse(path string, cause error) error {
	result := serum.Errorf(ECodeCatalogParse,
		"parsing of catalog file %q failed: %w", path, cause)
	addDetails(result, [][2]string{
		{"path", path},
	})
	return result
}

// ErrorCatalogInvalid is returned when a catalog contains invalid data
//
// Errors:
//
//    - dataforge-error-catalog-invalid --
func ErrorCatalogInvalid(path string, reason string) error {
	return serum.Error(ECodeCatalogInvalid,
		serum.WithMessageTemplate("invalid catalog file {{path|q}}: {{reason}}"),
		serum.WithDetail("path", path),
		serum.WithDetail("reason", reason),
	)
}

// ErrorCatalogVersion is returned when a remote catalog was written in a
// newer format than this library supports.
//
// Errors:
//
//    - dataforge-error-catalog-version -- if the catalog format is too new to read.
func ErrorCatalogVersion(supported, actual int64) error {
	return serum.Error(ECodeCatalogVersion,
		serum.WithMessageTemplate("library supports catalog format version {{supported}}, but the remote catalog has version {{actual}} -- please update"),
		serum.WithDetail("supported", fmt.Sprintf("%d", supported)),
		serum.WithDetail("actual", fmt.Sprintf("%d", actual)),
	)
}

// ErrorDatasetInvalid is returned when a dataset directory contains invalid data
//
// Errors:
//
//    - dataforge-error-dataset-invalid --
func ErrorDatasetInvalid(path string, reason string) error {
	return serum.Error(ECodeDatasetInvalid,
		serum.WithMessageTemplate("invalid dataset at {{path|q}}: {{reason}}"),
		serum.WithDetail("path", path),
		serum.WithDetail("reason", reason),
	)
}

// ErrorTableMissing is returned when a named table cannot be found in a dataset
//
// Errors:
//
//    - dataforge-error-missing --
func ErrorTableMissing(name string, available string) error {
	return serum.Error(ECodeMissing,
		serum.WithMessageTemplate("table {{name|q}} not found, available tables: {{available}}"),
		serum.WithDetail("name", name),
		serum.WithDetail("available", available),
	)
}

// ErrorFileAlreadyExists is used when a file already exists
//
// Errors:
//
//    - dataforge-error-already-exists --
func ErrorFileAlreadyExists(path string) error {
	return serum.Error(ECodeAlreadyExists,
		serum.WithMessageTemplate("file already exists at path: {{path|q}}"),
		serum.WithDetail("path", path),
	)
}

// ErrorFileMissing is used when an expected file does not exist
//
// Errors:
//
//    - dataforge-error-missing --
func ErrorFileMissing(path string) error {
	return serum.Error(ECodeMissing,
		serum.WithMessageTemplate("file missing at path: {{path|q}}"),
		serum.WithDetail("path", path),
	)
}

// ErrorName is returned when a dataset, table, or column name is not in
// canonical underscore form.
//
// Errors:
//
//    - dataforge-error-name --
func ErrorName(name string, reason string) error {
	return serum.Error(ECodeName,
		serum.WithMessageTemplate("name {{name|q}} is invalid: {{reason}}"),
		serum.WithDetail("name", name),
		serum.WithDetail("reason", reason),
	)
}

// ErrorHttp is returned when a remote catalog request fails
//
// Errors:
//
//    - dataforge-error-http --
func ErrorHttp(context string, uri string, cause error) error {
	result := serum.Errorf(ECodeHttp, "http error: %s: %w", context, cause)
	addDetails(result, [][2]string{
		{"context", context},
		{"uri", uri},
	})
	return result
}

// ErrorGit is returned when a go-git error occurs
//
// Errors:
//
//    - dataforge-error-git --
func ErrorGit(context string, cause error) error {
	result := serum.Errorf(ECodeGit, "git error: %s: %w", context, cause)
	addDetails(result, [][2]string{
		{"context", context},
	})
	return result
}

// ErrorWarehouse is returned when a transfer against the S3 warehouse fails
//
// Errors:
//
//    - dataforge-error-warehouse --
func ErrorWarehouse(context string, key string, cause error) error {
	result := serum.Errorf(ECodeWarehouse, "warehouse error: %s: %w", context, cause)
	addDetails(result, [][2]string{
		{"context", context},
		{"key", key},
	})
	return result
}

// addDetails is a helper method to get around the fact that doing a type coercion within
// an exported function is not currently allowed by serum.
// We won't need this if serum supports an equivalent to %w in message templates OR
// supports adding details when using serum.Errorf
func addDetails(err error, details [][2]string) {
	s := err.(*serum.ErrorValue)
	s.Data.Details = append(s.Data.Details, details...)
}

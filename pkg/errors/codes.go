package errors

import (
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the "<MODULE>_<nnn>" convention.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal      ErrorCode = "COMMON_001"
	ErrCodeBadRequest    ErrorCode = "COMMON_002"
	ErrCodeNotFound      ErrorCode = "COMMON_005"
	ErrCodeConflict      ErrorCode = "COMMON_006"
	ErrCodeValidation    ErrorCode = "COMMON_010"
	ErrCodeSerialization ErrorCode = "COMMON_011"
	ErrCodeStorage       ErrorCode = "COMMON_012"
	ErrCodeMessaging     ErrorCode = "COMMON_013"
)

// Forcefield engine error codes
const (
	ErrCodeIncompatible      ErrorCode = "FF_001"
	ErrCodeMissingForceField ErrorCode = "FF_002"
	ErrCodeMissingComponent  ErrorCode = "FF_003"
	ErrCodeMissingFunction   ErrorCode = "FF_004"
	ErrCodeMissingProperty   ErrorCode = "FF_005"
	ErrCodeDuplicateFunction ErrorCode = "FF_006"
	ErrCodeDependency        ErrorCode = "FF_007"
	ErrCodeVersion           ErrorCode = "FF_008"
	ErrCodeProgramBug        ErrorCode = "FF_009"
)

// Molecule error codes
const (
	ErrCodeMoleculeNotFound ErrorCode = "MOL_004"
	ErrCodeMoleculeInvalid  ErrorCode = "MOL_003"
)

// Session error codes
const (
	ErrCodeSessionNotFound ErrorCode = "SES_001"
	ErrCodeSessionExists   ErrorCode = "SES_002"
)

// Aliases used at call sites.
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")

	CodeInternal      = ErrCodeInternal
	CodeInvalidParam  = ErrCodeBadRequest
	CodeNotFound      = ErrCodeNotFound
	CodeConflict      = ErrCodeConflict
	CodeValidation    = ErrCodeValidation
	CodeSerialization = ErrCodeSerialization
	CodeStorage       = ErrCodeStorage
	CodeMessaging     = ErrCodeMessaging

	CodeIncompatible      = ErrCodeIncompatible
	CodeMissingForceField = ErrCodeMissingForceField
	CodeMissingComponent  = ErrCodeMissingComponent
	CodeMissingFunction   = ErrCodeMissingFunction
	CodeMissingProperty   = ErrCodeMissingProperty
	CodeDuplicateFunction = ErrCodeDuplicateFunction
	CodeDependency        = ErrCodeDependency
	CodeVersion           = ErrCodeVersion
	CodeProgramBug        = ErrCodeProgramBug

	CodeMoleculeNotFound = ErrCodeMoleculeNotFound
	CodeMoleculeInvalid  = ErrCodeMoleculeInvalid

	CodeSessionNotFound = ErrCodeSessionNotFound
	CodeSessionExists   = ErrCodeSessionExists
)

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:      "internal error",
	ErrCodeBadRequest:    "invalid argument",
	ErrCodeNotFound:      "resource not found",
	ErrCodeConflict:      "resource conflict",
	ErrCodeValidation:    "validation failed",
	ErrCodeSerialization: "serialization failed",
	ErrCodeStorage:       "snapshot storage error",
	ErrCodeMessaging:     "event publishing error",

	ErrCodeIncompatible:      "incompatible value",
	ErrCodeMissingForceField: "missing forcefield",
	ErrCodeMissingComponent:  "missing energy component",
	ErrCodeMissingFunction:   "missing function",
	ErrCodeMissingProperty:   "missing property",
	ErrCodeDuplicateFunction: "duplicate function",
	ErrCodeDependency:        "dependency error",
	ErrCodeVersion:           "unsupported format version",
	ErrCodeProgramBug:        "program bug",

	ErrCodeMoleculeNotFound: "molecule not found",
	ErrCodeMoleculeInvalid:  "invalid molecule",

	ErrCodeSessionNotFound: "session not found",
	ErrCodeSessionExists:   "session already exists",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsCallerError reports whether code describes a condition caused by the
// caller's input rather than by a broken invariant or the environment.
func IsCallerError(code ErrorCode) bool {
	switch code {
	case ErrCodeInternal, ErrCodeSerialization, ErrCodeStorage, ErrCodeMessaging, ErrCodeProgramBug:
		return false
	}
	_, known := ErrorCodeMessage[code]
	return known
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending

// Package fpserrors defines the typed status codes returned to clients
// of the content-key delivery pipeline.
//
// The taxonomy mirrors the card status-word taxonomy in pkg/ntag424/errors.go:
// one typed error carrying a fixed code, a human description, and
// errors.As-friendly classifier helpers instead of string matching. The
// core set of values (OK through NotImplementedErr below) are fixed by
// the original FPSStatus enum and must not be renumbered; everything
// past it is an extension this server defines for conditions the core
// enum doesn't distinguish.
package fpserrors

import (
	"errors"
	"fmt"
)

// Code is one of the fixed negative status values the pipeline can report
// for a single operation.
type Code int32

const (
	// CodeOK indicates the operation completed and produced a CKC.
	CodeOK Code = 0

	CodeSPCVersionErr         Code = -42580
	CodeParserErr             Code = -42581
	CodeMissingRequiredTagErr Code = -42583
	CodeParamErr              Code = -42585
	CodeMemoryErr             Code = -42586
	CodeVersionErr            Code = -42590
	CodeDupTagErr             Code = -42591
	CodeInternalErr           Code = -42601
	CodeClientSecurityLevelErr Code = -42604
	CodeInvalidCertificateErr Code = -42605
	CodeNotImplementedErr     Code = -42612

	// Extension codes: conditions the core enum above leaves
	// undifferentiated from ParamErr/InternalErr. No pipeline stage
	// returns them, so a result's status is always one of the core
	// codes above.
	CodeNoSupportedKeyFormatsErr Code = -52000
	CodeKeyDurationErr           Code = -52001
	CodeInvalidRentalErr         Code = -52002
	CodeInvalidOfflineErr        Code = -52003
	CodeCertExpiredErr           Code = -52004
	CodeCertRevokedErr           Code = -52005
	CodeHDCPTypeErr              Code = -52006
	CodeCheckInErr               Code = -52007
)

var descriptions = map[Code]string{
	CodeOK:                     "ok",
	CodeSPCVersionErr:          "unsupported SPC version",
	CodeParserErr:              "malformed TLLV framing",
	CodeMissingRequiredTagErr:  "required TLLV tag absent from SPC",
	CodeParamErr:               "invalid or malformed parameter",
	CodeMemoryErr:              "allocation or buffer size failure",
	CodeVersionErr:             "unsupported protocol version",
	CodeDupTagErr:              "duplicate TLLV tag",
	CodeInternalErr:            "internal processing error",
	CodeClientSecurityLevelErr: "client security level insufficient for requested content",
	CodeInvalidCertificateErr:  "invalid, expired, or revoked certificate",
	CodeNotImplementedErr:      "operation not implemented",

	CodeNoSupportedKeyFormatsErr: "no supported key format reported by client",
	CodeKeyDurationErr:           "invalid key duration parameters",
	CodeInvalidRentalErr:         "invalid rental/lease parameters",
	CodeInvalidOfflineErr:        "invalid offline HLS parameters",
	CodeCertExpiredErr:           "certificate expired",
	CodeCertRevokedErr:           "certificate revoked",
	CodeHDCPTypeErr:              "HDCP requirement not satisfiable",
	CodeCheckInErr:               "check-in parameters rejected",
}

func (c Code) String() string {
	if s, ok := descriptions[c]; ok {
		return s
	}
	return "unknown status"
}

// Status is the error type threaded through every pipeline stage. Cause,
// when present, is the lower-level error that produced Code and is
// reachable via errors.Unwrap for log enrichment; it is never surfaced to
// the client.
type Status struct {
	Code  Code
	Cause error
}

func New(code Code) *Status {
	return &Status{Code: code}
}

func Wrap(code Code, cause error) *Status {
	return &Status{Code: code, Cause: cause}
}

func (s *Status) Error() string {
	if s.Cause != nil {
		return fmt.Sprintf("%s (%d): %v", s.Code, s.Code, s.Cause)
	}
	return fmt.Sprintf("%s (%d)", s.Code, s.Code)
}

func (s *Status) Unwrap() error {
	return s.Cause
}

// CodeOf extracts the status code from err, defaulting to CodeInternalErr
// for any error not produced by this package — mirrors the original
// SDK's behavior of never returning an unmapped status to the client.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var st *Status
	if errors.As(err, &st) {
		return st.Code
	}
	return CodeInternalErr
}

// Is reports whether err's status code equals code.
func Is(err error, code Code) bool {
	var st *Status
	return errors.As(err, &st) && st.Code == code
}

func IsParamErr(err error) bool              { return Is(err, CodeParamErr) }
func IsSPCVersionErr(err error) bool          { return Is(err, CodeSPCVersionErr) }
func IsDupTagErr(err error) bool              { return Is(err, CodeDupTagErr) }
func IsClientSecurityLevelErr(err error) bool { return Is(err, CodeClientSecurityLevelErr) }
func IsHDCPTypeErr(err error) bool            { return Is(err, CodeHDCPTypeErr) }
func IsCheckInErr(err error) bool             { return Is(err, CodeCheckInErr) }
func IsNoSupportedKeyFormatsErr(err error) bool {
	return Is(err, CodeNoSupportedKeyFormatsErr)
}

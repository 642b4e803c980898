package oai

import (
	"errors"
	"fmt"
	"strings"
)

// Code is an OAI-PMH error code.
type Code string

const (
	CodeBadArgument             Code = "badArgument"
	CodeBadResumptionToken      Code = "badResumptionToken"
	CodeBadVerb                 Code = "badVerb"
	CodeCannotDisseminateFormat Code = "cannotDisseminateFormat"
	CodeIDDoesNotExist          Code = "idDoesNotExist"
	CodeNoRecordsMatch          Code = "noRecordsMatch"
	CodeNoMetadataFormats       Code = "noMetadataFormats"
	CodeNoSetHierarchy          Code = "noSetHierarchy"
)

// ErrHarvestingDisabled is returned by Engine.Handle when the repository
// has harvesting switched off.  It is not a protocol error.
var ErrHarvestingDisabled = errors.New("oai: harvesting is disabled")

// Error is one protocol error.  It renders as <error code="...">.
type Error struct {
	Code    Code   `xml:"code,attr"`
	Message string `xml:",chardata"`
}

func (e Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Errors is a non-empty list of protocol errors reported together.
type Errors []Error

func (es Errors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// protocolErrors extracts the protocol error list from err, if err is one.
func protocolErrors(err error) (Errors, bool) {
	var list Errors
	if errors.As(err, &list) {
		return list, true
	}
	var one Error
	if errors.As(err, &one) {
		return Errors{one}, true
	}
	return nil, false
}

func newError(code Code, format string, args ...any) Error {
	return Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	errBadResumptionToken = Error{Code: CodeBadResumptionToken, Message: "the resumption token is invalid or has expired"}
	errNoRecordsMatch     = Error{Code: CodeNoRecordsMatch, Message: "the combination of arguments results in an empty list"}
	errNoSetHierarchy     = Error{Code: CodeNoSetHierarchy, Message: "this repository does not support sets"}
	errNoMetadataFormats  = Error{Code: CodeNoMetadataFormats, Message: "there are no metadata formats available for the specified item"}
)

func errCannotDisseminate(prefix string) Error {
	return newError(CodeCannotDisseminateFormat, "the metadata format %q is not supported by the item or the repository", prefix)
}

func errIDDoesNotExist(id string) Error {
	return newError(CodeIDDoesNotExist, "the identifier %q is unknown or illegal in this repository", id)
}

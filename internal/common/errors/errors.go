// Package errors provides the standardized error type shared by calculators,
// wizards, the platform client, the HTTP API and the Zeebe workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidNumber        ErrorCode = "INVALID_NUMBER"
	ErrCodeUnknownTool          ErrorCode = "UNKNOWN_TOOL"

	ErrCodeUnknownWizard        ErrorCode = "UNKNOWN_WIZARD"
	ErrCodeWizardStepIncomplete ErrorCode = "WIZARD_STEP_INCOMPLETE"
	ErrCodeWizardNotComplete    ErrorCode = "WIZARD_NOT_COMPLETE"
	ErrCodeSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"

	ErrCodePlatformInvokeFailed ErrorCode = "PLATFORM_INVOKE_FAILED"
	ErrCodePlatformTimeout      ErrorCode = "PLATFORM_TIMEOUT"
	ErrCodePlatformUnauthorized ErrorCode = "PLATFORM_UNAUTHORIZED"
	ErrCodeUploadInProgress     ErrorCode = "UPLOAD_IN_PROGRESS"

	ErrCodeHistorySaveFailed  ErrorCode = "HISTORY_SAVE_FAILED"
	ErrCodeBulkActionFailed   ErrorCode = "BULK_ACTION_FAILED"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Field     string                 `json:"field,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches on code so callers can use errors.Is against a sentinel.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation       = &StandardError{Code: ErrCodeValidationFailed}
	ErrMissingField     = &StandardError{Code: ErrCodeMissingRequiredField}
	ErrStepIncomplete   = &StandardError{Code: ErrCodeWizardStepIncomplete}
	ErrSessionNotFound  = &StandardError{Code: ErrCodeSessionNotFound}
	ErrUploadInProgress = &StandardError{Code: ErrCodeUploadInProgress}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports a user-facing input problem on a single field.
func NewValidationError(field, message string) *StandardError {
	e := newError(ErrCodeValidationFailed, message, "", false)
	e.Field = field
	return e
}

// NewMissingFieldError reports one or more empty required fields.
func NewMissingFieldError(fields ...string) *StandardError {
	e := newError(ErrCodeMissingRequiredField, "Bitte füllen Sie alle Pflichtfelder aus", strings.Join(fields, ", "), false)
	if len(fields) == 1 {
		e.Field = fields[0]
	}
	return e
}

// NewInvalidNumberError reports a field that could not be parsed as a number.
func NewInvalidNumberError(field, raw string) *StandardError {
	e := newError(ErrCodeInvalidNumber, "Bitte geben Sie eine gültige Zahl ein", fmt.Sprintf("%s=%q", field, raw), false)
	e.Field = field
	return e
}

func NewUnknownToolError(toolID string) *StandardError {
	return newError(ErrCodeUnknownTool, "Rechner nicht gefunden", "toolId: "+toolID, false)
}

func NewUnknownWizardError(wizardID string) *StandardError {
	return newError(ErrCodeUnknownWizard, "Formular nicht gefunden", "wizardId: "+wizardID, false)
}

// NewStepIncompleteError is returned when next() is attempted with empty required fields.
func NewStepIncompleteError(step int, fields []string) *StandardError {
	e := newError(ErrCodeWizardStepIncomplete, "Bitte füllen Sie alle Pflichtfelder aus", strings.Join(fields, ", "), false)
	e.Metadata = map[string]interface{}{"step": step, "fields": fields}
	return e
}

func NewWizardNotCompleteError(current, total int) *StandardError {
	return newError(ErrCodeWizardNotComplete, "Das Dokument kann erst im letzten Schritt erstellt werden",
		fmt.Sprintf("step %d of %d", current, total), false)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Sitzung nicht gefunden oder abgelaufen", "sessionId: "+sessionID, false)
}

// NewPlatformError wraps a failed remote function or entity call.
func NewPlatformError(function string, status int, err error) *StandardError {
	code := ErrCodePlatformInvokeFailed
	retryable := status == 0 || status >= http.StatusInternalServerError
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		code = ErrCodePlatformUnauthorized
		retryable = false
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	e := newError(code, "Fehler bei der Anfrage: "+function, details, retryable)
	e.Metadata = map[string]interface{}{"function": function, "status": status}
	return e
}

func NewPlatformTimeoutError(function string, err error) *StandardError {
	e := newError(ErrCodePlatformTimeout, "Zeitüberschreitung bei der Anfrage: "+function, err.Error(), true)
	e.Metadata = map[string]interface{}{"function": function}
	return e
}

func NewUploadInProgressError() *StandardError {
	return newError(ErrCodeUploadInProgress, "Ein Upload läuft bereits", "", false)
}

func NewHistorySaveFailedError(err error) *StandardError {
	return newError(ErrCodeHistorySaveFailed, "Fehler beim Speichern der Berechnung", err.Error(), true)
}

func NewBulkActionFailedError(action string, err error) *StandardError {
	e := newError(ErrCodeBulkActionFailed, "Aktion fehlgeschlagen: "+action, err.Error(), true)
	e.Metadata = map[string]interface{}{"action": action}
	return e
}

func NewNotificationFailedError(channel string, err error) *StandardError {
	e := newError(ErrCodeNotificationFailed, "Benachrichtigung konnte nicht gesendet werden", err.Error(), true)
	e.Metadata = map[string]interface{}{"channel": channel}
	return e
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Ein unerwarteter Fehler ist aufgetreten", err.Error(), false)
}

// ==========================
// 4. Conversion helpers
// ==========================

// AsStandard normalizes any error into a *StandardError.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// UserMessage flattens an error into the toast text shown to the user.
func UserMessage(err error) string {
	stdErr := AsStandard(err)
	if stdErr == nil {
		return ""
	}
	switch stdErr.Code {
	case ErrCodePlatformInvokeFailed, ErrCodePlatformTimeout, ErrCodeBulkActionFailed, ErrCodeHistorySaveFailed:
		if stdErr.Details != "" {
			return stdErr.Message + ": " + stdErr.Details
		}
	}
	return stdErr.Message
}

// HTTPStatus maps an error code onto an HTTP status code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeMissingRequiredField, ErrCodeInvalidNumber,
		ErrCodeWizardStepIncomplete, ErrCodeWizardNotComplete:
		return http.StatusUnprocessableEntity
	case ErrCodeUnknownTool, ErrCodeUnknownWizard, ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodePlatformUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeUploadInProgress:
		return http.StatusConflict
	case ErrCodePlatformTimeout:
		return http.StatusGatewayTimeout
	case ErrCodePlatformInvokeFailed, ErrCodeBulkActionFailed, ErrCodeHistorySaveFailed, ErrCodeNotificationFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// GetRetryCount returns the recommended Zeebe retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePlatformInvokeFailed, ErrCodeHistorySaveFailed, ErrCodeBulkActionFailed, ErrCodeNotificationFailed:
		return 3
	case ErrCodePlatformTimeout:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}
	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// GetErrorCategory groups codes for log aggregation.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "PLATFORM") || codeStr == string(ErrCodeUploadInProgress):
		return "PLATFORM"
	case strings.HasPrefix(codeStr, "WIZARD") || strings.Contains(codeStr, "SESSION"):
		return "WIZARD"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "FIELD") || strings.Contains(codeStr, "NUMBER"):
		return "VALIDATION"
	case strings.Contains(codeStr, "HISTORY") || strings.Contains(codeStr, "BULK"):
		return "PERSISTENCE"
	default:
		return "OTHER"
	}
}

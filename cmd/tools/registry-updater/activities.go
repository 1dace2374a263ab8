package main

import (
	"time"

	"immo-workers/internal/common/errors"
	runcalculator "immo-workers/internal/workers/calculation/run-calculator"
	senddocumentemail "immo-workers/internal/workers/communication/send-document-email"
	generatedocument "immo-workers/internal/workers/document/generate-document"
	"immo-workers/pkg/registry"
)

// builtinActivities describes the job workers compiled into worker-manager.
func builtinActivities() []registry.Activity {
	calcSchema := runcalculator.GetInputSchema()
	docSchema := generatedocument.GetInputSchema()
	mailSchema := senddocumentemail.GetInputSchema()

	return []registry.Activity{
		{
			ID:                   "run-calculator",
			DisplayName:          "Immobilienrechner ausführen",
			Description:          "Runs a calculator by tool ID and optionally stores the result in the user's history",
			Category:             "calculation",
			Version:              "1.0.0",
			TaskType:             runcalculator.TaskType,
			ImplementationStatus: registry.StatusCompleted,
			InputSchema:          &calcSchema,
			OutputVariables:      []string{"calculationToolId", "calculationResult", "calculationDisplay", "calculationId"},
			ErrorCodes: codes(
				errors.ErrCodeValidationFailed,
				errors.ErrCodeMissingRequiredField,
				errors.ErrCodeInvalidNumber,
				errors.ErrCodeUnknownTool,
				errors.ErrCodeHistorySaveFailed,
			),
			Timeout: duration(runcalculator.DefaultConfig().Timeout),
			Retries: 3,
			Tags:    []string{"calculator"},
		},
		{
			ID:                   "generate-document",
			DisplayName:          "Dokument erzeugen",
			Description:          "Validates complete wizard form data and generates the document on the platform",
			Category:             "document",
			Version:              "1.0.0",
			TaskType:             generatedocument.TaskType,
			ImplementationStatus: registry.StatusCompleted,
			InputSchema:          &docSchema,
			OutputVariables:      []string{"documentId", "documentType", "documentUrl"},
			ErrorCodes: codes(
				errors.ErrCodeValidationFailed,
				errors.ErrCodeUnknownWizard,
				errors.ErrCodePlatformInvokeFailed,
				errors.ErrCodePlatformTimeout,
			),
			Timeout: duration(generatedocument.DefaultConfig().Timeout),
			Retries: 3,
			Tags:    []string{"wizard", "platform"},
		},
		{
			ID:                   "send-document-email",
			DisplayName:          "Dokument per E-Mail melden",
			Description:          "Mails the user a download link for a generated document via SES",
			Category:             "communication",
			Version:              "1.0.0",
			TaskType:             senddocumentemail.TaskType,
			ImplementationStatus: registry.StatusCompleted,
			InputSchema:          &mailSchema,
			OutputVariables:      []string{"emailMessageId", "emailSentAt"},
			ErrorCodes: codes(
				errors.ErrCodeValidationFailed,
				errors.ErrCodeNotificationFailed,
			),
			Timeout: duration(senddocumentemail.DefaultConfig().Timeout),
			Retries: 3,
			Tags:    []string{"email", "ses"},
		},
	}
}

func codes(cs ...errors.ErrorCode) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

func duration(d time.Duration) string {
	return d.String()
}

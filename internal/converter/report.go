package converter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
	"github.com/LosLebos/SAFT-T-Portugal/internal/xsdvalidator"
	"github.com/LosLebos/SAFT-T-Portugal/pkg/utils"
)

// generatedName labels issues of the generated document in the error log.
const generatedName = "generated SAF-T document"

// errorLogEntries lists every problem of a run: file failures, one entry per
// violation of each rejected row, validation issues of the generated
// document and, last, a run-level error not covered by those.
func errorLogEntries(result *Result, runErr error) []utils.ErrorLogEntry {
	now := result.EndTime
	var entries []utils.ErrorLogEntry

	for _, f := range result.Files {
		name := filepath.Base(f.FilePath)
		if f.Error != nil && !errors.Is(f.Error, ErrRowsRejected) {
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:    now,
				FileName:     name,
				ErrorType:    utils.ErrorTypeFile,
				ErrorMessage: f.Error.Error(),
			})
		}

		for _, rej := range f.Rejected {
			violations := validation.Violations(rej.Err)
			if len(violations) == 0 {
				violations = []error{rej.Err}
			}
			for _, v := range violations {
				entry := utils.ErrorLogEntry{
					Timestamp:    now,
					FileName:     name,
					ErrorType:    utils.ErrorTypeRow,
					ErrorMessage: v.Error(),
					RowNumber:    rej.Row,
				}
				switch {
				case validation.IsFieldError(v):
					fe := validation.FieldErrors(v)[0]
					entry.FieldName = fe.Field
					if fe.Value != nil {
						entry.FieldValue = fmt.Sprint(fe.Value)
					}
				case validation.IsAssertionError(v):
					ae := validation.AssertionErrors(v)[0]
					entry.ErrorType = utils.ErrorTypeRule
					entry.FieldName = strings.Join(ae.Fields, ", ")
				}
				entries = append(entries, entry)
			}
		}
	}

	if result.Output != nil {
		for _, issue := range result.Output.Validation.Issues {
			errorType := utils.ErrorTypeSchema
			if issue.Class == xsdvalidator.ClassSyntax {
				errorType = utils.ErrorTypeSyntax
			}
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:    now,
				FileName:     generatedName,
				ErrorType:    errorType,
				ErrorMessage: issue.Message,
				Line:         issue.Line,
				Column:       issue.Column,
				Element:      issue.Element,
			})
		}
	}

	if runErr != nil && !errors.Is(runErr, ErrIngestFailed) && !errors.Is(runErr, ErrInvalidDocument) {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     generatedName,
			ErrorType:    utils.ErrorTypeRun,
			ErrorMessage: runErr.Error(),
		})
	}

	return entries
}

// summarize converts a result into the processing summary.
func summarize(result *Result) utils.ProcessingSummary {
	summary := utils.ProcessingSummary{
		RunID:      result.RunID,
		Owner:      result.Owner,
		StartTime:  result.StartTime,
		EndTime:    result.EndTime,
		TotalFiles: len(result.Files),
	}

	for _, f := range result.Files {
		summary.TotalRows += f.Rows
		summary.AcceptedRows += f.Accepted
		summary.RejectedRows += len(f.Rejected)

		if f.Error != nil {
			errorType := utils.ErrorTypeFile
			if errors.Is(f.Error, ErrRowsRejected) {
				errorType = utils.ErrorTypeRow
			}
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    f.FilePath,
				ErrorMessage: f.Error.Error(),
				ErrorType:    errorType,
			})
			continue
		}

		summary.SuccessfulFiles++
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   f.FilePath,
			Profile:     f.Profile,
			Kind:        f.Kind.String(),
			ArchivePath: f.ArchivePath,
			Rows:        f.Rows,
			Accepted:    f.Accepted,
			Rejected:    len(f.Rejected),
			ProcessTime: f.ProcessingTime,
		})
	}

	if out := result.Output; out != nil {
		summary.OutputFile = out.OutputFile
		summary.ValidationIssues = len(out.Validation.Issues)
		if out.AuditFile != nil && out.AuditFile.GeneralLedgerEntries != nil {
			summary.Transactions = out.AuditFile.GeneralLedgerEntries.NumberOfEntries
		}
	}

	return summary
}

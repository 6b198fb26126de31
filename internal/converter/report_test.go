package converter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/LosLebos/SAFT-T-Portugal/internal/mapping"
	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
	"github.com/LosLebos/SAFT-T-Portugal/pkg/utils"
)

func TestErrorLogEntries_RowViolations(t *testing.T) {
	rowErr := multierr.Combine(
		&validation.FieldError{Entity: "Customer", Field: "CustomerTaxID", Rule: validation.RuleFormat, Value: "12", Message: "must be 9 digits"},
		&validation.AssertionError{Entity: "Customer", Rule: "self-billing", Fields: []string{"SelfBillingIndicator", "CustomerTaxID"}, Message: "conflict"},
	)
	result := &Result{
		EndTime: time.Now(),
		Files: []FileResult{{
			FilePath: "/in/clientes.csv",
			Error:    ErrRowsRejected,
			Rejected: []mapping.RowError{
				{Row: 4, Err: rowErr},
				{Row: 7, Err: errors.New("unparseable date")},
			},
		}},
	}

	entries := errorLogEntries(result, nil)
	require.Len(t, entries, 3)

	assert.Equal(t, utils.ErrorTypeRow, entries[0].ErrorType)
	assert.Equal(t, "CustomerTaxID", entries[0].FieldName)
	assert.Equal(t, "12", entries[0].FieldValue)
	assert.Equal(t, 4, entries[0].RowNumber)

	assert.Equal(t, utils.ErrorTypeRule, entries[1].ErrorType)
	assert.Equal(t, "SelfBillingIndicator, CustomerTaxID", entries[1].FieldName)
	assert.Empty(t, entries[1].FieldValue)

	assert.Equal(t, utils.ErrorTypeRow, entries[2].ErrorType)
	assert.Empty(t, entries[2].FieldName)
	assert.Equal(t, 7, entries[2].RowNumber)
	assert.Equal(t, "clientes.csv", entries[2].FileName)
}

package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	fm.Now = func() time.Time { return time.Date(2024, time.January, 15, 14, 30, 22, 0, time.UTC) }
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	for _, name := range []string{"b_fornecedores.xlsx", "a_clientes.CSV", "notes.txt", ".hidden.csv", "~$b_fornecedores.xlsx"} {
		touch(t, filepath.Join(fm.InputDir, name), "x")
	}
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "sub.csv"), 0755))
	touch(t, filepath.Join(fm.InputDir, "nested", "c_produtos.csv"), "x")

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "a_clientes.CSV"),
		filepath.Join(fm.InputDir, "b_fornecedores.xlsx"),
	}, files)

	files, err = fm.DiscoverInputFiles(".txt")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(fm.InputDir, "notes.txt")}, files)

	files, err = fm.DiscoverInputFilesRecursive(".csv")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "a_clientes.CSV"),
		filepath.Join(fm.InputDir, "nested", "c_produtos.csv"),
	}, files)

	fm.InputDir = filepath.Join(t.TempDir(), "missing")
	_, err = fm.DiscoverInputFiles()
	require.Error(t, err)
}

func TestArchiveInputFile(t *testing.T) {
	fm := newTestManager(t)

	first := filepath.Join(fm.InputDir, "clientes.csv")
	touch(t, first, "one")
	archived, err := fm.ArchiveInputFile(first)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "clientes.csv"), archived)
	assert.False(t, FileExists(first))

	touch(t, first, "two")
	archived, err = fm.ArchiveInputFile(first)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "clientes_20240115_143022.csv"), archived)

	touch(t, first, "three")
	archived, err = fm.ArchiveInputFile(first)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "clientes_20240115_143022_2.csv"), archived)

	data, err := os.ReadFile(filepath.Join(fm.InputArchiveDir, "clientes.csv"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data), "existing archive entries are never overwritten")
}

func TestArchiveWithTimestampSubdirs(t *testing.T) {
	fm := newTestManager(t)
	fm.UseTimestampSubdirs = true

	out := filepath.Join(fm.OutputDir, "SAFT.xml")
	touch(t, out, "<AuditFile/>")
	archived, err := fm.ArchiveOutputFile(out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputArchiveDir, "2024", "01", "15", "SAFT.xml"), archived)
	assert.True(t, FileExists(out), "output files are copied, not moved")
}

func TestArchiveDisabled(t *testing.T) {
	fm := newTestManager(t)
	fm.ArchiveOnSuccess = false

	in := filepath.Join(fm.InputDir, "clientes.csv")
	touch(t, in, "x")
	archived, err := fm.ArchiveInputFile(in)
	require.NoError(t, err)
	assert.Equal(t, in, archived)
	assert.True(t, FileExists(in))
}

func TestGenerateOutputFileName(t *testing.T) {
	fm := newTestManager(t)

	tests := []struct {
		name   string
		format string
		params map[string]string
		want   string
	}{
		{
			name:   "default format",
			format: "SAFT_{nif}_{fiscal_year}_{timestamp}.xml",
			params: map[string]string{"nif": "999000001", "fiscal_year": "2023"},
			want:   "SAFT_999000001_2023_20240115_143022.xml",
		},
		{
			name:   "extension added",
			format: "saft_{date}_{time}",
			want:   "saft_20240115_143022.xml",
		},
		{
			name:   "separators in values",
			format: "{owner}.xml",
			params: map[string]string{"owner": "../etc"},
			want:   ".._etc.xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fm.OutputFileName(tt.format, tt.params))
		})
	}

	name := GenerateOutputFileName("{uuid}", nil)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}\.xml$`), name)
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteErrorLog([]ErrorLogEntry{
		{FileName: "clientes.csv", ErrorType: ErrorTypeRow, ErrorMessage: "invalid Customer.CustomerTaxID", RowNumber: 4, FieldName: "CustomerTaxID", FieldValue: "12"},
		{FileName: "SAFT.xml", ErrorType: ErrorTypeSchema, ErrorMessage: "not a valid value", Line: 7, Column: 5, Element: "FiscalYear"},
	}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Total Errors: 2")
	assert.Contains(t, content, "Row Number:     4")
	assert.Contains(t, content, "Value:          12")
	assert.Contains(t, content, "Location:       L7:C5")
	assert.Contains(t, content, "Element:        FiscalYear")
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, time.January, 15, 14, 30, 0, 0, time.UTC)

	path, err := WriteSummaryLog(ProcessingSummary{
		RunID:           "run-1",
		Owner:           "padaria",
		StartTime:       start,
		EndTime:         start.Add(2 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalRows:       10,
		AcceptedRows:    9,
		RejectedRows:    1,
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "clientes.csv", Profile: "clientes", Kind: "Customer", Rows: 10, Accepted: 9, Rejected: 1}},
		FailedFilesList: []FailedFileInfo{{InputFile: "x.csv", ErrorType: ErrorTypeFile, ErrorMessage: "no matching profile"}},
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, "processing_summary_20240115_143000.txt", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Duration:       2s")
	assert.Contains(t, content, "SAF-T File:         (none)")
	assert.Contains(t, content, "Profile:      clientes (Customer)")
	assert.Contains(t, content, "Error: no matching profile")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SAFT.xml")

	require.NoError(t, WriteFile(path, []byte("<a/>")))
	require.NoError(t, WriteFile(path, []byte("<b/>")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<b/>", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	err = WriteFile(filepath.Join(dir, "missing", "x.xml"), nil)
	require.Error(t, err)
}

func TestCleanOldArchives(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "2020", "old.csv")
	fresh := filepath.Join(dir, "fresh.csv")
	touch(t, old, "x")
	touch(t, fresh, "x")
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := CleanOldArchives(dir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, FileExists(old))
	assert.True(t, FileExists(fresh))
}

func TestAcceptInput(t *testing.T) {
	assert.True(t, acceptInput("a.XLSX", nil))
	assert.False(t, acceptInput("a.xls", nil))
	assert.False(t, acceptInput("~$a.xlsx", nil))
	assert.True(t, acceptInput("a.json", []string{".JSON"}))
	assert.False(t, acceptInput(".clientes.csv", nil))
}

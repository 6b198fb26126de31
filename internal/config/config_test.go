package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

const mainYAML = `
input_dir: ./in
store: sqlite
sqlite_path: ./data/saft.db
owner: padaria
total_debit: "123.00"
header:
  company_id: "999000001"
  tax_registration_number: 999000001
  company_name: Demo Company SA
  address:
    address_detail: Rua Ficticia 123
    city: Lisboa
    postal_code: 1000-001
  fiscal_year: 2023
  product_company_tax_id: "500000000"
  product_id: SAFT-T-Portugal/LosLebos
  product_version: 1.0.0
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMainConfig_Defaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", mainYAML)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./in", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./profiles", cfg.ProfilesDir)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "padaria", cfg.Owner)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.Pretty())
	assert.Equal(t, "S", cfg.TaxonomyReference)
	assert.Equal(t, "SAFT_{nif}_{fiscal_year}_{timestamp}.xml", cfg.OutputFileFormat)
	assert.Equal(t, "PT", cfg.Header.Address.Country)
	assert.Equal(t, saft.GlobalTaxEntity, cfg.Header.TaxEntity)

	debit, credit, err := cfg.Totals()
	require.NoError(t, err)
	assert.Equal(t, "123.00", saft.FormatMoney(debit))
	assert.True(t, credit.IsZero())
}

func TestLoadMainConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SAFT_STORE", "memory")
	t.Setenv("SAFT_OWNER", "from-env")
	t.Setenv("SAFT_XSD_PATH", "/schemas/saft.xsd")
	t.Setenv("SAFT_OUTPUT_DIR", "/tmp/out")

	path := writeFile(t, t.TempDir(), "config.yaml", mainYAML)
	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, "from-env", cfg.Owner)
	assert.Equal(t, "/schemas/saft.xsd", cfg.XSDPath)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env")))
	require.NoError(t, LoadEnv(""))

	t.Setenv("SAFT_LOG_LEVEL", "")
	os.Unsetenv("SAFT_LOG_LEVEL")
	envPath := writeFile(t, dir, ".env", "SAFT_LOG_LEVEL=debug\n")
	require.NoError(t, LoadEnv(envPath))
	assert.Equal(t, "debug", os.Getenv("SAFT_LOG_LEVEL"))
}

func TestMainConfig_ValidateCollectsProblems(t *testing.T) {
	cfg, err := ParseMainConfig([]byte(`
store: postgres
log_level: loud
log_format: xml
taxonomy_reference: X
total_credit: abc
header:
  start_date: 2023/01/01
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, fragment := range []string{"store must be", "unknown log level", "log_format", "taxonomy_reference", "total_credit", "fiscal_year", "start_date"} {
		assert.Contains(t, err.Error(), fragment)
	}
}

func TestParseMainConfig_PrettyPrintFalse(t *testing.T) {
	cfg, err := ParseMainConfig([]byte("pretty_print: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Pretty())
}

func TestHeaderConfig_BuildHeader(t *testing.T) {
	cfg, err := ParseMainConfig([]byte(mainYAML))
	require.NoError(t, err)

	created := time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)
	header, err := cfg.Header.BuildHeader(created)
	require.NoError(t, err)

	assert.Equal(t, saft.AuditFileVersion, header.AuditFileVersion)
	assert.Equal(t, "2023-01-01", header.StartDate.String())
	assert.Equal(t, "2023-12-31", header.EndDate.String())
	assert.Equal(t, "2024-01-15", header.DateCreated.String())
	assert.Equal(t, saft.CurrencyCode, header.CurrencyCode)
	assert.Equal(t, saft.BasisAccounting, header.TaxAccountingBasis)

	bad := cfg.Header
	bad.Address.PostalCode = "1000"
	_, err = bad.BuildHeader(created)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PostalCode")
}

const customerProfileYAML = `
profile_name: customers-erp
target_model: Customer
file_matching_patterns: [clientes, customers]
csv_settings:
  delimiter: ";"
  encoding: ISO-8859-1
mappings:
  "Cod Cliente": CustomerID
  "NIF": CustomerTaxID
  "Nome": CompanyName
defaults:
  BillingAddress.Country: PT
`

const supplierProfileJSON = `{
  "profile_name": "suppliers",
  "target_model": "Supplier",
  "file_matching_patterns": ["fornecedores"],
  "source": "xlsx",
  "sheet": "Fornecedores",
  "mappings": {"Codigo": "SupplierID", "NIF": "SupplierTaxID"}
}`

func TestLoadProfileConfigs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "customers.yaml", customerProfileYAML)
	writeFile(t, dir, "suppliers.json", supplierProfileJSON)
	writeFile(t, dir, "notes.txt", "ignored")

	profiles, err := LoadProfileConfigs(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	customers := profiles[0]
	assert.Equal(t, "customers-erp", customers.ProfileName)
	assert.Equal(t, []string{"Cod Cliente", "NIF", "Nome"}, []string{
		customers.Mappings[0].Column, customers.Mappings[1].Column, customers.Mappings[2].Column,
	})
	assert.Equal(t, ";", customers.CSVSettings.Delimiter)
	assert.Equal(t, 1, customers.CSVSettings.HeaderRows)
	assert.Equal(t, 2, customers.CSVSettings.DataStartRow)
	assert.Equal(t, "ISO-8859-1", customers.CSVSettings.Encoding)
	assert.Equal(t, filepath.Join(dir, "customers.yaml"), customers.Path())

	kind, err := customers.Kind()
	require.NoError(t, err)
	assert.Equal(t, saft.KindCustomer, kind)

	suppliers := profiles[1]
	assert.Equal(t, "Fornecedores", suppliers.Sheet)
	assert.Equal(t, SourceXLSX, suppliers.SourceFor("fornecedores.csv"))
	assert.Equal(t, "SupplierTaxID", suppliers.Mappings[1].Target)
}

func TestLoadProfileConfigs_Errors(t *testing.T) {
	t.Run("duplicate names", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.yaml", customerProfileYAML)
		writeFile(t, dir, "b.yml", customerProfileYAML)
		_, err := LoadProfileConfigs(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "defined in both")
	})

	t.Run("unknown target model", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "bad.yaml", "target_model: Invoice\nmappings:\n  A: B\n")
		_, err := LoadProfileConfigs(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.yaml")
	})

	t.Run("bad source", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "p.yaml", customerProfileYAML+"source: ods\n")
		_, err := LoadProfileConfigs(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source must be csv or xlsx")
	})
}

func TestLoadProfileConfig_NameFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "products.yaml", "target_model: Product\nmappings:\n  Codigo: ProductCode\n")
	profile, err := LoadProfileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "products", profile.ProfileName)
}

func TestMatchProfile(t *testing.T) {
	customers, err := ParseProfileConfig([]byte(customerProfileYAML))
	require.NoError(t, err)
	suppliers, err := ParseProfileConfig([]byte(supplierProfileJSON))
	require.NoError(t, err)
	profiles := []*ProfileConfig{customers, suppliers}

	tests := []struct {
		name     string
		file     string
		profile  string
		expected string
		wantErr  bool
	}{
		{"pattern match", "/in/CLIENTES_2023.csv", "", "customers-erp", false},
		{"second profile", "fornecedores.xlsx", "", "suppliers", false},
		{"explicit name", "anything.csv", "suppliers", "suppliers", false},
		{"no match", "produtos.csv", "", "", true},
		{"unknown name", "clientes.csv", "nope", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := MatchProfile(profiles, tt.file, tt.profile)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.ProfileName)
		})
	}
}

func TestSourceFor(t *testing.T) {
	p := &ProfileConfig{}
	assert.Equal(t, SourceCSV, p.SourceFor("a.csv"))
	assert.Equal(t, SourceXLSX, p.SourceFor("a.XLSX"))
	assert.Equal(t, SourceCSV, p.SourceFor("a.txt"))
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &MainConfig{
		InputDir:         filepath.Join(root, "in"),
		OutputDir:        filepath.Join(root, "out"),
		InputArchiveDir:  filepath.Join(root, "archive", "in"),
		OutputArchiveDir: filepath.Join(root, "archive", "out"),
	}
	require.NoError(t, cfg.EnsureDirectories())
	for _, dir := range []string{cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir} {
		assert.DirExists(t, dir)
	}
}

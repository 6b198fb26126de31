// =============================================================================
// SAF-T PT Generator - Configuration Module
// =============================================================================
//
// This module handles loading and parsing of YAML configuration files.
// It supports two levels of configuration:
//   1. Main configuration (config.yaml): global settings, the company header
//      and the entity store
//   2. Mapping profiles (profiles/*.yaml|*.yml|*.json): how the columns of one
//      kind of input file become one kind of SAF-T entity
//
// CONFIGURATION HIERARCHY:
//   - Main config values are loaded first, then defaults fill the gaps
//   - Environment variables (optionally from a .env file) override both
//   - Each input file is matched to exactly one profile by file name
//
// ENVIRONMENT OVERRIDES:
//   SAFT_XSD_PATH, SAFT_STORE, SAFT_SQLITE_PATH, SAFT_OWNER, SAFT_LOG_LEVEL,
//   SAFT_OUTPUT_DIR
//
// =============================================================================

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/LosLebos/SAFT-T-Portugal/internal/log"
	"github.com/LosLebos/SAFT-T-Portugal/internal/mapping"
	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/store"
)

// Source formats a profile can read.
const (
	SourceCSV  = "csv"
	SourceXLSX = "xlsx"
)

// ErrInvalidConfig matches every error returned by MainConfig.Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig represents the main application configuration.
// This is loaded from config.yaml in the application root directory.
type MainConfig struct {
	// InputDir is scanned for CSV and XLSX files to ingest.
	InputDir string `yaml:"input_dir"`

	// OutputDir receives generated SAF-T files, error logs and summaries.
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after a successful run.
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every generated SAF-T file.
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ProfilesDir contains the mapping profiles.
	ProfilesDir string `yaml:"profiles_dir"`

	// XSDPath is the SAFTPT1_04_01.xsd every generated file is checked against.
	XSDPath string `yaml:"xsd_path"`

	// Store selects the entity store backend: "memory" or "sqlite".
	Store string `yaml:"store"`

	// SQLitePath is the database file used when Store is "sqlite".
	SQLitePath string `yaml:"sqlite_path"`

	// Owner scopes every stored entity. One owner is one company.
	Owner string `yaml:"owner"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`

	// OutputFileFormat names generated files.
	// Placeholders: {uuid}, {timestamp}, {nif}, {fiscal_year}
	// Default: "SAFT_{nif}_{fiscal_year}_{timestamp}.xml"
	OutputFileFormat string `yaml:"output_file_format"`

	// MaxConcurrency limits how many input files are ingested at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps ingesting other files when one file has
	// rejected rows or cannot be read. The SAF-T file is still only written
	// when it passes schema validation.
	ContinueOnError bool `yaml:"continue_on_error"`

	// RecursiveInput also discovers files in subdirectories of InputDir.
	RecursiveInput bool `yaml:"recursive_input"`

	// PrettyPrint indents the generated XML. Default: true
	PrettyPrint *bool `yaml:"pretty_print"`

	// MetricsFile, when set, receives the run metrics in the Prometheus
	// text exposition format.
	MetricsFile string `yaml:"metrics_file"`

	// TaxonomyReference is written to GeneralLedgerAccounts. Default: "S"
	TaxonomyReference string `yaml:"taxonomy_reference"`

	// TotalDebit and TotalCredit are copied to GeneralLedgerEntries as given.
	TotalDebit  string `yaml:"total_debit"`
	TotalCredit string `yaml:"total_credit"`

	// Header describes the company the file is produced for.
	Header HeaderConfig `yaml:"header"`
}

// HeaderConfig is the `header:` block of config.yaml.
type HeaderConfig struct {
	CompanyID                 string        `yaml:"company_id"`
	TaxRegistrationNumber     int           `yaml:"tax_registration_number"`
	TaxAccountingBasis        string        `yaml:"tax_accounting_basis"`
	CompanyName               string        `yaml:"company_name"`
	BusinessName              string        `yaml:"business_name"`
	Address                   AddressConfig `yaml:"address"`
	FiscalYear                int           `yaml:"fiscal_year"`
	StartDate                 string        `yaml:"start_date"`
	EndDate                   string        `yaml:"end_date"`
	TaxEntity                 string        `yaml:"tax_entity"`
	ProductCompanyTaxID       string        `yaml:"product_company_tax_id"`
	SoftwareCertificateNumber int           `yaml:"software_certificate_number"`
	ProductID                 string        `yaml:"product_id"`
	ProductVersion            string        `yaml:"product_version"`
	HeaderComment             string        `yaml:"header_comment"`
	Telephone                 string        `yaml:"telephone"`
	Fax                       string        `yaml:"fax"`
	Email                     string        `yaml:"email"`
	Website                   string        `yaml:"website"`
}

// AddressConfig is the company address inside the header block.
type AddressConfig struct {
	BuildingNumber string `yaml:"building_number"`
	StreetName     string `yaml:"street_name"`
	AddressDetail  string `yaml:"address_detail"`
	City           string `yaml:"city"`
	PostalCode     string `yaml:"postal_code"`
	Region         string `yaml:"region"`
	Country        string `yaml:"country"`
}

// =============================================================================
// PROFILE CONFIGURATION STRUCTURE
// =============================================================================

// ProfileConfig is one mapping profile plus the information needed to find
// and read its input files.
type ProfileConfig struct {
	mapping.Profile `yaml:",inline"`

	// FileMatchingPatterns are case-insensitive substrings of the input file
	// name. A file belongs to the first profile (by name) with a match.
	FileMatchingPatterns []string `yaml:"file_matching_patterns" json:"file_matching_patterns"`

	// Source is "csv" or "xlsx". When empty it follows the file extension.
	Source string `yaml:"source" json:"source"`

	// Sheet is the XLSX worksheet to read. Default: the first sheet.
	Sheet string `yaml:"sheet" json:"sheet"`

	// CSVSettings controls CSV parsing for this profile.
	CSVSettings CSVSettings `yaml:"csv_settings" json:"csv_settings"`

	// path is the file the profile was loaded from.
	path string
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character that separates fields.
	// Common values: ",", ";", "|", "\t" (or "tab")
	Delimiter string `yaml:"delimiter" json:"delimiter"`

	// HeaderRows is the number of rows that make up the header.
	// Multi-line headers are joined column-wise with a space.
	HeaderRows int `yaml:"header_rows" json:"header_rows"`

	// DataStartRow is the 1-based row number where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row" json:"data_start_row"`

	// Encoding is the character encoding of the file.
	// Common values: "UTF-8", "ISO-8859-1", "Windows-1252"
	Encoding string `yaml:"encoding" json:"encoding"`

	// LazyQuotes tolerates quotes inside unquoted fields. Default: true
	LazyQuotes *bool `yaml:"lazy_quotes" json:"lazy_quotes"`

	// Comment, when set, skips lines starting with this character.
	Comment string `yaml:"comment" json:"comment"`
}

// Path returns the file the profile was loaded from.
func (p *ProfileConfig) Path() string {
	return p.path
}

// Matches reports whether fileName belongs to this profile.
func (p *ProfileConfig) Matches(fileName string) bool {
	base := strings.ToLower(filepath.Base(fileName))
	for _, pattern := range p.FileMatchingPatterns {
		if pattern != "" && strings.Contains(base, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// SourceFor returns the source format used to read fileName.
func (p *ProfileConfig) SourceFor(fileName string) string {
	if p.Source != "" {
		return strings.ToLower(p.Source)
	}
	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		return SourceXLSX
	}
	return SourceCSV
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadEnv loads environment variables from an env file.
//
// PARAMETERS:
//   - path: the env file. A missing file is not an error.
//
// Variables already present in the process environment are not overwritten.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the config.yaml file.
//
// RETURNS:
//   - A pointer to the MainConfig struct with defaults and environment
//     overrides applied.
//   - An error if the file cannot be read or parsed, or fails validation.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := ParseMainConfig(data)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ParseMainConfig decodes config.yaml contents and applies defaults and
// environment overrides. It does not validate.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)
	applyMainConfigDefaults(&config)

	return &config, nil
}

// applyEnvOverrides replaces config values with SAFT_* environment variables.
func applyEnvOverrides(config *MainConfig) {
	overrides := []struct {
		name   string
		target *string
	}{
		{"SAFT_XSD_PATH", &config.XSDPath},
		{"SAFT_STORE", &config.Store},
		{"SAFT_SQLITE_PATH", &config.SQLitePath},
		{"SAFT_OWNER", &config.Owner},
		{"SAFT_LOG_LEVEL", &config.LogLevel},
		{"SAFT_OUTPUT_DIR", &config.OutputDir},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.name); ok && value != "" {
			*o.target = value
		}
	}
}

// applyMainConfigDefaults sets default values for any unset configuration fields.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.XSDPath == "" {
		config.XSDPath = "./schemas/SAFTPT1_04_01.xsd"
	}
	if config.Store == "" {
		config.Store = store.BackendMemory
	}
	if config.SQLitePath == "" {
		config.SQLitePath = "./saft.db"
	}
	if config.Owner == "" {
		config.Owner = "default"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.OutputFileFormat == "" {
		config.OutputFileFormat = "SAFT_{nif}_{fiscal_year}_{timestamp}.xml"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.PrettyPrint == nil {
		pretty := true
		config.PrettyPrint = &pretty
	}
	if config.TaxonomyReference == "" {
		config.TaxonomyReference = string(saft.TaxonomySNC)
	}
	if config.Header.TaxAccountingBasis == "" {
		config.Header.TaxAccountingBasis = string(saft.BasisAccounting)
	}
	if config.Header.TaxEntity == "" {
		config.Header.TaxEntity = saft.GlobalTaxEntity
	}
	if config.Header.Address.Country == "" {
		config.Header.Address.Country = "PT"
	}
}

// Validate checks the configuration and reports every problem at once.
// Company data in the header block is checked later, by saft.Header.Validate,
// when the header is built.
func (c *MainConfig) Validate() error {
	var problems []string

	switch strings.ToLower(c.Store) {
	case store.BackendMemory, store.BackendSQLite:
	default:
		problems = append(problems, fmt.Sprintf("store must be %q or %q, got %q", store.BackendMemory, store.BackendSQLite, c.Store))
	}
	if strings.EqualFold(c.Store, store.BackendSQLite) && c.SQLitePath == "" {
		problems = append(problems, "sqlite_path is required for the sqlite store")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		problems = append(problems, fmt.Sprintf("log_format must be text or json, got %q", c.LogFormat))
	}
	if !saft.TaxonomyReference(c.TaxonomyReference).IsValid() {
		problems = append(problems, fmt.Sprintf("taxonomy_reference must be one of S, M, N, O, got %q", c.TaxonomyReference))
	}
	for name, value := range map[string]string{"total_debit": c.TotalDebit, "total_credit": c.TotalCredit} {
		if value == "" {
			continue
		}
		if _, err := saft.ParseMoney(value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if c.Header.FiscalYear == 0 {
		problems = append(problems, "header.fiscal_year is required")
	}
	for name, value := range map[string]string{"header.start_date": c.Header.StartDate, "header.end_date": c.Header.EndDate} {
		if value == "" {
			continue
		}
		if _, err := saft.ParseDate(value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// EnsureDirectories creates the input, output and archive directories.
func (c *MainConfig) EnsureDirectories() error {
	for _, dir := range []string{c.InputDir, c.OutputDir, c.InputArchiveDir, c.OutputArchiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Pretty reports whether the generated XML is indented.
func (c *MainConfig) Pretty() bool {
	return c.PrettyPrint == nil || *c.PrettyPrint
}

// LoggerConfig returns the log.Config described by log_level and log_format.
func (c *MainConfig) LoggerConfig() (log.Config, error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.Config{}, err
	}
	cfg := log.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.LogFormat
	return cfg, nil
}

// Totals returns the configured ledger totals, zero when unset.
func (c *MainConfig) Totals() (debit, credit decimal.Decimal, err error) {
	debit, credit = decimal.Zero, decimal.Zero
	if c.TotalDebit != "" {
		if debit, err = saft.ParseMoney(c.TotalDebit); err != nil {
			return debit, credit, fmt.Errorf("failed to parse total_debit: %w", err)
		}
	}
	if c.TotalCredit != "" {
		if credit, err = saft.ParseMoney(c.TotalCredit); err != nil {
			return debit, credit, fmt.Errorf("failed to parse total_credit: %w", err)
		}
	}
	return debit, credit, nil
}

// =============================================================================
// HEADER CONSTRUCTION
// =============================================================================

// BuildHeader converts the header block into a validated saft.Header.
//
// PARAMETERS:
//   - created: the DateCreated value, normally the run time
//
// StartDate and EndDate default to the first and last day of FiscalYear.
func (h HeaderConfig) BuildHeader(created time.Time) (saft.Header, error) {
	start := saft.NewDate(h.FiscalYear, time.January, 1)
	end := saft.NewDate(h.FiscalYear, time.December, 31)

	var err error
	if h.StartDate != "" {
		if start, err = saft.ParseDate(h.StartDate); err != nil {
			return saft.Header{}, fmt.Errorf("failed to parse header start_date: %w", err)
		}
	}
	if h.EndDate != "" {
		if end, err = saft.ParseDate(h.EndDate); err != nil {
			return saft.Header{}, fmt.Errorf("failed to parse header end_date: %w", err)
		}
	}

	header := saft.Header{
		AuditFileVersion:      saft.AuditFileVersion,
		CompanyID:             h.CompanyID,
		TaxRegistrationNumber: h.TaxRegistrationNumber,
		TaxAccountingBasis:    saft.TaxAccountingBasis(h.TaxAccountingBasis),
		CompanyName:           h.CompanyName,
		BusinessName:          h.BusinessName,
		CompanyAddress: saft.Address{
			BuildingNumber: h.Address.BuildingNumber,
			StreetName:     h.Address.StreetName,
			AddressDetail:  h.Address.AddressDetail,
			City:           h.Address.City,
			PostalCode:     h.Address.PostalCode,
			Region:         h.Address.Region,
			Country:        h.Address.Country,
		},
		FiscalYear:                h.FiscalYear,
		StartDate:                 start,
		EndDate:                   end,
		CurrencyCode:              saft.CurrencyCode,
		DateCreated:               saft.DateOf(created),
		TaxEntity:                 h.TaxEntity,
		ProductCompanyTaxID:       h.ProductCompanyTaxID,
		SoftwareCertificateNumber: h.SoftwareCertificateNumber,
		ProductID:                 h.ProductID,
		ProductVersion:            h.ProductVersion,
		HeaderComment:             h.HeaderComment,
		Telephone:                 h.Telephone,
		Fax:                       h.Fax,
		Email:                     h.Email,
		Website:                   h.Website,
	}

	if err := header.Validate(); err != nil {
		return saft.Header{}, fmt.Errorf("failed to build header: %w", err)
	}
	return header, nil
}

// =============================================================================
// PROFILE LOADING
// =============================================================================

// LoadProfileConfigs loads all mapping profiles from a directory.
//
// PARAMETERS:
//   - profilesDir: The directory containing profile files.
//
// RETURNS:
//   - The profiles sorted by file name.
//   - An error if the directory cannot be read or any profile is invalid.
func LoadProfileConfigs(profilesDir string) ([]*ProfileConfig, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(profilesDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan profiles directory: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	profiles := make([]*ProfileConfig, 0, len(files))
	seen := make(map[string]string)
	for _, file := range files {
		profile, err := LoadProfileConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %s: %w", filepath.Base(file), err)
		}
		if other, dup := seen[profile.ProfileName]; dup {
			return nil, fmt.Errorf("profile %q defined in both %s and %s", profile.ProfileName, other, filepath.Base(file))
		}
		seen[profile.ProfileName] = filepath.Base(file)
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// LoadProfileConfig loads and validates a single profile file.
func LoadProfileConfig(path string) (*ProfileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	profile, err := ParseProfileConfig(data)
	if err != nil {
		return nil, err
	}
	profile.path = path
	if profile.ProfileName == "" {
		profile.ProfileName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	applyProfileDefaults(profile)
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// ParseProfileConfig decodes a profile. JSON is detected by a leading '{'.
func ParseProfileConfig(data []byte) (*ProfileConfig, error) {
	var profile ProfileConfig
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse JSON profile: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML profile: %w", err)
	}
	return &profile, nil
}

// applyProfileDefaults sets default values for unset CSV settings.
func applyProfileDefaults(profile *ProfileConfig) {
	s := &profile.CSVSettings
	if s.Delimiter == "" {
		s.Delimiter = ","
	}
	if s.HeaderRows <= 0 {
		s.HeaderRows = 1
	}
	if s.DataStartRow <= 0 {
		s.DataStartRow = s.HeaderRows + 1
	}
	if s.Encoding == "" {
		s.Encoding = "UTF-8"
	}
	if s.LazyQuotes == nil {
		lazy := true
		s.LazyQuotes = &lazy
	}
}

// Validate checks the mapping profile and the source settings.
func (p *ProfileConfig) Validate() error {
	if err := p.Profile.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(p.Source) {
	case "", SourceCSV, SourceXLSX:
	default:
		return fmt.Errorf("invalid profile %q: source must be csv or xlsx, got %q", p.ProfileName, p.Source)
	}
	if p.CSVSettings.DataStartRow <= p.CSVSettings.HeaderRows {
		return fmt.Errorf("invalid profile %q: data_start_row %d must come after %d header row(s)",
			p.ProfileName, p.CSVSettings.DataStartRow, p.CSVSettings.HeaderRows)
	}
	return nil
}

// MatchProfile returns the first profile whose patterns match fileName, or
// the profile named name when name is not empty.
func MatchProfile(profiles []*ProfileConfig, fileName, name string) (*ProfileConfig, error) {
	for _, p := range profiles {
		if name != "" {
			if p.ProfileName == name {
				return p, nil
			}
			continue
		}
		if p.Matches(fileName) {
			return p, nil
		}
	}
	if name != "" {
		return nil, fmt.Errorf("no profile named %q", name)
	}
	return nil, fmt.Errorf("no matching profile for file: %s", filepath.Base(fileName))
}

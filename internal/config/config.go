package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every run of the package refresher.
type Config struct {
	// PackagePath is the root of the installer source tree (contains setup.exe
	// and the office/data content folders).
	PackagePath string `yaml:"package_path"`
	// ApplicationName is the display name of the catalog application whose
	// deployment type is synchronized after a content refresh.
	ApplicationName string `yaml:"application_name"`
	// DownloadConfig is the name of the deployment-tool XML configuration file
	// inside the package directory, passed to `setup.exe /download`.
	DownloadConfig string `yaml:"download_config"`
	// VendorPageURL is the download confirmation page scanned for the
	// manual-download link of the deployment tool.
	VendorPageURL string `yaml:"vendor_page_url"`
	// TempDir is where the downloaded self-extractor and its extraction
	// directory are placed.
	TempDir string `yaml:"temp_dir"`
	// CatalogURL is the base URL of the management catalog admin service.
	CatalogURL string `yaml:"catalog_url"`
	// CatalogToken is an optional bearer token for catalog requests.
	CatalogToken string `yaml:"catalog_token,omitempty"`
	// SkipDetection disables rewriting the detection clause of the deployment
	// type. Content redistribution is requested either way.
	SkipDetection bool `yaml:"skip_detection"`
	// Timeout is the duration allowed for a single HTTP request to the vendor
	// page or the catalog. Binary downloads and tool invocations are not
	// bounded by it.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for refresher settings.
	DefaultConfigFilename = "odt-sync-settings.yaml"

	// DefaultVendorPageURL is the deployment-tool download confirmation page.
	DefaultVendorPageURL = "https://www.microsoft.com/en-us/download/confirmation.aspx?id=49117"

	// DefaultDownloadConfig is the deployment-tool configuration file name.
	DefaultDownloadConfig = "configuration.xml"

	// DefaultTimeout is the default duration for catalog and page requests.
	DefaultTimeout = 2 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errPackagePathRequired is returned when the package directory is missing.
	errPackagePathRequired = errors.New("package path must be provided")
	// errApplicationNameRequired is returned when the catalog application name is missing.
	errApplicationNameRequired = errors.New("application name must be provided")
	// errCatalogURLRequired is returned when the catalog base URL is missing.
	errCatalogURLRequired = errors.New("catalog URL must be provided")
)

// Default returns a configuration populated with defaults for every field
// that has a sensible one. PackagePath, ApplicationName and CatalogURL have
// no defaults and must be filled in by the caller.
func Default() *Config {
	return &Config{
		DownloadConfig: DefaultDownloadConfig,
		VendorPageURL:  DefaultVendorPageURL,
		TempDir:        filepath.Join(os.TempDir(), "odt-sync"),
		SkipDetection:  true,
		Timeout:        DefaultTimeout,
	}
}

// Read parses configuration from the provided path without validating it.
// Callers that override fields afterwards (e.g. from CLI flags) validate later.
func Read(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	// Unmarshal over defaults so omitted fields keep their default values,
	// including the skip-detection default of true.
	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return cfg, nil
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may carry a catalog token.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
// It also fills defaults for optional fields that were left empty.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.PackagePath == "" {
		return errPackagePathRequired
	}

	if cfg.ApplicationName == "" {
		return errApplicationNameRequired
	}

	if cfg.CatalogURL == "" {
		return errCatalogURLRequired
	}

	if _, err := url.ParseRequestURI(cfg.CatalogURL); err != nil {
		return fmt.Errorf("invalid catalog URL: %w", err)
	}

	if cfg.VendorPageURL == "" {
		cfg.VendorPageURL = DefaultVendorPageURL
	}

	if _, err := url.ParseRequestURI(cfg.VendorPageURL); err != nil {
		return fmt.Errorf("invalid vendor page URL: %w", err)
	}

	if cfg.DownloadConfig == "" {
		cfg.DownloadConfig = DefaultDownloadConfig
	}

	if cfg.TempDir == "" {
		cfg.TempDir = filepath.Join(os.TempDir(), "odt-sync")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return nil
}

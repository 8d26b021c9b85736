package catalog

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"
)

const (
	// HiveLocalMachine is the registry hive holding the installed product version.
	HiveLocalMachine = "HKEY_LOCAL_MACHINE"

	// OperatorGreaterEquals asserts installed version >= clause version.
	OperatorGreaterEquals = "GreaterEquals"

	// officeConfigurationKey is the registry key written by the click-to-run
	// installer on every target machine.
	officeConfigurationKey = `Software\Microsoft\Office\ClickToRun\Configuration`

	// officeVersionValue is the registry value holding the reported product version.
	officeVersionValue = "VersionToReport"
)

// RegistryVersionClause is a registry-based version-comparison detection rule.
type RegistryVersionClause struct {
	Hive      string `json:"hive"`
	Key       string `json:"key"`
	ValueName string `json:"valueName"`
	Operator  string `json:"operator"`
	Version   string `json:"version"`
	Is64Bit   bool   `json:"is64Bit"`
}

// NewOfficeVersionClause builds the detection clause asserting that the
// installed click-to-run version is at least contentVersion. Malformed
// version strings are rejected up front rather than pushed to the catalog.
func NewOfficeVersionClause(contentVersion string) (*RegistryVersionClause, error) {
	if _, err := goversion.NewVersion(contentVersion); err != nil {
		return nil, fmt.Errorf("invalid content version %q: %w", contentVersion, err)
	}

	return &RegistryVersionClause{
		Hive:      HiveLocalMachine,
		Key:       officeConfigurationKey,
		ValueName: officeVersionValue,
		Operator:  OperatorGreaterEquals,
		Version:   contentVersion,
		Is64Bit:   true,
	}, nil
}

package catalog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// errNoDetectionSetting is returned when the deployment descriptor holds no
// simple-setting detection clause to replace.
var errNoDetectionSetting = errors.New("no simple setting in enhanced detection method")

// appDigest models the slice of the deployment descriptor XML we care about:
// the logical names of the simple settings inside the enhanced detection method.
type appDigest struct {
	XMLName        xml.Name `xml:"AppMgmtDigest"`
	DeploymentType struct {
		Installer struct {
			CustomData struct {
				EnhancedDetectionMethod struct {
					Settings struct {
						SimpleSettings []struct {
							LogicalName string `xml:"LogicalName,attr"`
							DataType    string `xml:"DataType,attr"`
						} `xml:"SimpleSetting"`
					} `xml:"Settings"`
				} `xml:"EnhancedDetectionMethod"`
			} `xml:"CustomData"`
		} `xml:"Installer"`
	} `xml:"DeploymentType"`
}

// SimpleSettingLogicalName parses the deployment descriptor and returns the
// logical name of the existing simple-setting detection clause. When several
// settings are present, the first one is the clause this pipeline maintains.
func SimpleSettingLogicalName(descriptor string) (string, error) {
	if strings.TrimSpace(descriptor) == "" {
		return "", fmt.Errorf("parse deployment descriptor: %w", errNoDetectionSetting)
	}

	var digest appDigest
	if err := xml.Unmarshal([]byte(descriptor), &digest); err != nil {
		return "", fmt.Errorf("parse deployment descriptor: %w", err)
	}

	settings := digest.DeploymentType.Installer.CustomData.EnhancedDetectionMethod.Settings.SimpleSettings
	if len(settings) == 0 {
		return "", errNoDetectionSetting
	}

	return settings[0].LogicalName, nil
}

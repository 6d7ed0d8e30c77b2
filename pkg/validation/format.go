package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/mac-forecast/pkg/constants"
)

// SupportedOutputFormats lists the output formats the CLI can render.
var SupportedOutputFormats = []string{constants.OutputFormatPretty, constants.OutputFormatCSV}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	for _, supported := range SupportedOutputFormats {
		if format == supported {
			return nil
		}
	}
	return fmt.Errorf("expected output format of %s, got %q",
		strings.Join(SupportedOutputFormats, " or "), format)
}

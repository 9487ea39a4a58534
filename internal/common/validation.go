package common

import (
	"fmt"
	"slices"
	"strings"

	"resumatch/internal/config"
	"resumatch/internal/utils"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat applies the configured default format to cmdConfig
// and validates the result
func ResolveOutputFormat(cmdConfig *CommandConfig, app config.AppConfig) error {
	if cmdConfig.OutputFormat == "" {
		cmdConfig.OutputFormat = app.DefaultFormat
	}
	return ValidateOutputFormat(cmdConfig.OutputFormat, app.SupportedFormats)
}

// ValidateDocumentFiles checks every path against the allowed extensions
func ValidateDocumentFiles(files []string, allowedExtensions []string) error {
	var rejected []string
	for _, f := range files {
		if !utils.HasAllowedExtension(f, allowedExtensions) {
			rejected = append(rejected, f)
		}
	}
	if len(rejected) > 0 {
		return fmt.Errorf("unsupported document type for %s. Allowed extensions: %s",
			strings.Join(rejected, ", "), strings.Join(allowedExtensions, " "))
	}
	return nil
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}

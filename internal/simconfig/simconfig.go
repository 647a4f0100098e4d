// Renders ONE simulator settings files from mustache templates.
package simconfig

import (
	"fmt"
	"os"

	"github.com/cbroglie/mustache"
)

// Values substituted into a settings template.
type Settings struct {
	CentroidFile string
	NumHosts int
	Duration int64
	MaxX float64
	MaxY float64
	ExternalMovementFile string
	MessageFreq int
	SocialInterests int
	InterestSpace int
	SecondsToZero int
	LeafDirectory string
}

// Context exposes the settings under the template key names.
func (s Settings) Context() map[string]interface{} {
	return map[string]interface{}{
		"centroidFile": s.CentroidFile,
		"num_hosts": s.NumHosts,
		"duration": s.Duration,
		"max_x": s.MaxX,
		"max_y": s.MaxY,
		"external_movement_file": s.ExternalMovementFile,
		"message_freq": s.MessageFreq,
		"social_interests": s.SocialInterests,
		"interest_space": s.InterestSpace,
		"secondsToZero": s.SecondsToZero,
		"max_host_addr": s.NumHosts - 1,
		"leaf_directory": s.LeafDirectory,
	}
}

// Renders a template string.
func Render(template string, s Settings) (string, error) {
	tmpl, err := mustache.ParseString(template)
	if err != nil {
		return "", fmt.Errorf("failed to parse settings template: %w", err)
	}
	return tmpl.Render(s.Context())
}

// Renders templatePath into outputPath.
// templatePath: the mustache template
// outputPath: the settings file to write
// s: the values to substitute
// Returns any errors
func RenderFile(templatePath string, outputPath string, s Settings) error {
	tmpl, err := mustache.ParseFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to parse settings template %s: %w", templatePath, err)
	}
	rendered, err := tmpl.Render(s.Context())
	if err != nil {
		return fmt.Errorf("failed to render settings template %s: %w", templatePath, err)
	}
	return os.WriteFile(outputPath, []byte(rendered), 0o644)
}

package profiles

import "fmt"

// Profile is a named preset of transcription parameters a client can
// select per connection.
type Profile struct {
	Name     string `yaml:"name"`
	Backend  string `yaml:"backend,omitempty"`
	Model    string `yaml:"model,omitempty"`
	Language string `yaml:"language,omitempty"`
	BeamSize int    `yaml:"beam_size,omitempty"`
}

// Validate checks the profile is usable.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name required")
	}
	if p.BeamSize < 0 {
		return fmt.Errorf("profile %q: beam_size must not be negative", p.Name)
	}
	return nil
}

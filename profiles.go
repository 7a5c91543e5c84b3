package docassist

import (
	"fmt"
	"sort"

	"github.com/Desarso/docassist/completion"
	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/normalize"
	"github.com/Desarso/docassist/prompt"
	"github.com/Desarso/docassist/sessions"
)

// Builtin profile names.
const (
	ProfileTutor   = "tutor"
	ProfileVision  = "vision"
	ProfileSummary = "summary"
)

var builtinProfiles = map[string]sessions.Profile{
	ProfileTutor: {
		Name:        ProfileTutor,
		Title:       "A-Level Tutor",
		Instruction: prompt.TutorInstruction,
		Params:      completion.Params{Temperature: models.Float(0.6)},
		MultiTurn:   true,
		Accepts:     []models.DeclaredType{models.DeclaredImage, models.DeclaredPDF},

		RetainAttachments: true,
	},
	ProfileVision: {
		Name:        ProfileVision,
		Title:       "Image Question",
		Instruction: prompt.TutorInstruction,
		Params:      completion.Params{Temperature: models.Float(0.6)},
		Accepts:     []models.DeclaredType{models.DeclaredImage},

		RetainAttachments: true,
	},
	ProfileSummary: {
		Name:              ProfileSummary,
		Title:             "Article Summary",
		Instruction:       prompt.SummaryInstruction,
		Params:            completion.Params{Temperature: models.Float(0)},
		Accepts:           []models.DeclaredType{models.DeclaredPDF},
		ReferencesCutoff:  true,
		RetainAttachments: true,
	},
}

// ProfileNames lists the builtin profiles in a stable order.
func ProfileNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile resolves a builtin profile with the configured model and
// overrides applied. An empty name selects the server default.
func (c *Config) Profile(name string) (sessions.Profile, error) {
	if name == "" {
		name = c.Server.DefaultProfile
	}
	base, ok := builtinProfiles[name]
	if !ok {
		return sessions.Profile{}, fmt.Errorf("unknown profile %q", name)
	}

	profile := base
	profile.Accepts = append([]models.DeclaredType(nil), base.Accepts...)
	profile.ReferencesMarker = normalize.DefaultReferencesMarker
	profile.Params.Model = c.Provider.Model
	if profile.Params.Model == "" {
		profile.Params.Model = DefaultModel(c.Provider.Name)
	}

	o, ok := c.Profiles[name]
	if !ok {
		return profile, nil
	}
	if o.Model != "" {
		profile.Params.Model = o.Model
	}
	if o.Temperature != nil {
		profile.Params.Temperature = models.Float(*o.Temperature)
	}
	if o.MaxTokens > 0 {
		profile.Params.MaxTokens = o.MaxTokens
	}
	if o.MaxDocumentChars > 0 {
		profile.Policy.MaxDocumentChars = o.MaxDocumentChars
	}
	if o.ReferencesCutoff != nil {
		profile.ReferencesCutoff = *o.ReferencesCutoff
	}
	if o.ReferencesMarker != "" {
		profile.ReferencesMarker = o.ReferencesMarker
	}
	if o.RetainAttachments != nil {
		profile.RetainAttachments = *o.RetainAttachments
	}
	return profile, nil
}

// ResolvedProfiles returns every profile with overrides applied, the
// default profile first.
func (c *Config) ResolvedProfiles() []sessions.Profile {
	profiles := make([]sessions.Profile, 0, len(builtinProfiles))
	if p, err := c.Profile(c.Server.DefaultProfile); err == nil {
		profiles = append(profiles, p)
	}
	for _, name := range ProfileNames() {
		if name == c.Server.DefaultProfile {
			continue
		}
		p, _ := c.Profile(name)
		profiles = append(profiles, p)
	}
	return profiles
}

// Package profile loads the user's resume, job preferences, and personal
// details, and assembles them into the context string handed to the
// computer-use agent.
package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// AutomationSettings controls the auto-apply behavior of a run.
type AutomationSettings struct {
	AutoApplyAfterSearch  bool `json:"auto_apply_after_search"`
	MaxApplicationsPerRun int  `json:"max_applications_per_run"`
	ApplicationDelaySecs  int  `json:"application_delay_seconds"`
	RequireApproval       bool `json:"require_manual_approval"`
}

// Preferences is the user's job search configuration.
type Preferences struct {
	TargetRoles        []string           `json:"target_roles"`
	JobBoards          []string           `json:"job_boards"`
	Locations          []string           `json:"locations"`
	SalaryMinimum      string             `json:"salary_minimum"`
	RemoteOnly         bool               `json:"remote_only"`
	ExcludedCompanies  []string           `json:"excluded_companies"`
	AutomationSettings AutomationSettings `json:"automation_settings"`
}

// PersonalInfo is the applicant data used to fill forms.
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	LinkedIn string `json:"linkedin"`
	GitHub   string `json:"github"`
}

// Profile is everything loaded from the user directory.
type Profile struct {
	ResumeText   string
	Preferences  Preferences
	PersonalInfo PersonalInfo
}

var defaultTargetRoles = []string{
	"Software Engineer",
	"Full Stack Developer",
	"Backend Developer",
	"Frontend Developer",
}

// Queries returns the search queries for a run: target roles from
// preferences, or a generic software-role set when none are configured.
func (p *Profile) Queries() []string {
	if len(p.Preferences.TargetRoles) > 0 {
		return p.Preferences.TargetRoles
	}
	return defaultTargetRoles
}

// Load reads resume, preferences, and personal info from userDir. Missing
// files and malformed JSON are errors: the bot must not run half-configured.
func Load(userDir string) (*Profile, error) {
	resumePath, err := findResume(userDir)
	if err != nil {
		return nil, err
	}

	resume, err := ExtractResume(resumePath)
	if err != nil {
		return nil, err
	}
	slog.Info("profile: resume loaded",
		slog.String("path", resumePath),
		slog.Int("chars", len(resume)))

	var prefs Preferences
	if err := loadJSON(filepath.Join(userDir, "job_preferences.json"), &prefs); err != nil {
		return nil, err
	}

	var info PersonalInfo
	if err := loadJSON(filepath.Join(userDir, "personal_info.json"), &info); err != nil {
		return nil, err
	}

	return &Profile{ResumeText: resume, Preferences: prefs, PersonalInfo: info}, nil
}

// findResume locates the resume file in userDir, preferring resume.pdf and
// falling back to any file named resume.* with a supported extension.
func findResume(userDir string) (string, error) {
	for _, name := range []string{"resume.pdf", "resume.docx", "resume.txt"} {
		p := filepath.Join(userDir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	matches, _ := filepath.Glob(filepath.Join(userDir, "*Resume*"))
	for _, m := range matches {
		switch strings.ToLower(filepath.Ext(m)) {
		case ".pdf", ".docx", ".doc", ".txt":
			return m, nil
		}
	}
	return "", fmt.Errorf("profile: no resume found in %s", userDir)
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("profile: read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("profile: parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// BuildContext assembles the AI context string: resume first, then the
// preference and personal-info JSON so the agent can judge fit and fill
// forms. Truncated to the configured maximum.
func (p *Profile) BuildContext() string {
	prefs, _ := json.MarshalIndent(p.Preferences, "", "  ")
	info, _ := json.MarshalIndent(p.PersonalInfo, "", "  ")

	var b strings.Builder
	b.WriteString("RESUME:\n")
	b.WriteString(p.ResumeText)
	b.WriteString("\n\nJOB PREFERENCES:\n")
	b.Write(prefs)
	b.WriteString("\n\nPERSONAL INFO:\n")
	b.Write(info)

	return engine.TruncateRunes(b.String(), engine.Cfg.MaxContextChars, "\n[truncated]")
}

package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"talentloop/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("yaml", "any", &YAMLFormatter{})
	registry.RegisterFormatter("text", "JobList", &JobsTextFormatter{})
	registry.RegisterFormatter("markdown", "JobList", &JobsMarkdownFormatter{})
	registry.RegisterFormatter("text", "ApplicationList", &ApplicationsTextFormatter{})
	registry.RegisterFormatter("text", "Profile", &ProfileTextFormatter{})
	registry.RegisterFormatter("text", "SystemCheckReport", &SystemCheckTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := DataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats in sorted order
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

// DataType names the registry key used for data
func DataType(data any) string {
	switch data.(type) {
	case types.Scorecard:
		return "Scorecard"
	case []types.Job:
		return "JobList"
	case []types.Application:
		return "ApplicationList"
	case types.Profile:
		return "Profile"
	case types.SystemCheckReport:
		return "SystemCheckReport"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// YAMLFormatter handles YAML formatting for any data type
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return "any"
}

// JobsTextFormatter lists jobs one per block
type JobsTextFormatter struct{}

func (f *JobsTextFormatter) Format(data any) (string, error) {
	jobs, ok := data.([]types.Job)
	if !ok {
		return "", fmt.Errorf("expected []Job, got %T", data)
	}
	if len(jobs) == 0 {
		return "No jobs found.\n", nil
	}

	var output strings.Builder
	for _, job := range jobs {
		saved := ""
		if job.Saved {
			saved = " [saved]"
		}
		output.WriteString(fmt.Sprintf("%s  %s at %s%s\n", job.ID, job.Title, job.Company, saved))
		details := nonEmpty(job.Location, job.Type, job.Salary, job.Experience)
		if len(details) > 0 {
			output.WriteString("    " + strings.Join(details, " | ") + "\n")
		}
		if len(job.Tags) > 0 {
			output.WriteString("    Skills: " + strings.Join(job.Tags, ", ") + "\n")
		}
	}
	return output.String(), nil
}

func (f *JobsTextFormatter) SupportedType() string {
	return "JobList"
}

// JobsMarkdownFormatter renders jobs as a markdown table
type JobsMarkdownFormatter struct{}

func (f *JobsMarkdownFormatter) Format(data any) (string, error) {
	jobs, ok := data.([]types.Job)
	if !ok {
		return "", fmt.Errorf("expected []Job, got %T", data)
	}

	var output strings.Builder
	output.WriteString("| ID | Title | Company | Location | Skills |\n")
	output.WriteString("|----|-------|---------|----------|--------|\n")
	for _, job := range jobs {
		output.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			job.ID, job.Title, job.Company, job.Location, strings.Join(job.Tags, ", ")))
	}
	return output.String(), nil
}

func (f *JobsMarkdownFormatter) SupportedType() string {
	return "JobList"
}

// ApplicationsTextFormatter lists applications with their status
type ApplicationsTextFormatter struct{}

func (f *ApplicationsTextFormatter) Format(data any) (string, error) {
	apps, ok := data.([]types.Application)
	if !ok {
		return "", fmt.Errorf("expected []Application, got %T", data)
	}
	if len(apps) == 0 {
		return "No applications yet.\n", nil
	}

	var output strings.Builder
	for _, app := range apps {
		title := app.JobID
		if app.Job != nil {
			title = fmt.Sprintf("%s at %s", app.Job.Title, app.Job.Company)
		}
		output.WriteString(fmt.Sprintf("%s  %-40s %s\n", app.ID, title, app.Status))
	}
	return output.String(), nil
}

func (f *ApplicationsTextFormatter) SupportedType() string {
	return "ApplicationList"
}

// ProfileTextFormatter renders the signed-in user's profile
type ProfileTextFormatter struct{}

func (f *ProfileTextFormatter) Format(data any) (string, error) {
	p, ok := data.(types.Profile)
	if !ok {
		return "", fmt.Errorf("expected Profile, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("Name:      %s\n", strings.TrimSpace(p.FirstName+" "+p.LastName)))
	output.WriteString(fmt.Sprintf("Email:     %s\n", p.Email))
	if p.Phone != "" {
		output.WriteString(fmt.Sprintf("Phone:     %s\n", p.Phone))
	}
	if p.PreferredLanguage != "" {
		output.WriteString(fmt.Sprintf("Language:  %s\n", p.PreferredLanguage))
	}
	if p.Timezone != "" {
		output.WriteString(fmt.Sprintf("Timezone:  %s\n", p.Timezone))
	}
	return output.String(), nil
}

func (f *ProfileTextFormatter) SupportedType() string {
	return "Profile"
}

// SystemCheckTextFormatter renders the step list of a system check
type SystemCheckTextFormatter struct{}

func (f *SystemCheckTextFormatter) Format(data any) (string, error) {
	report, ok := data.(types.SystemCheckReport)
	if !ok {
		return "", fmt.Errorf("expected SystemCheckReport, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== SYSTEM CHECK ===\n")
	for _, step := range report.Steps {
		mark := "FAIL"
		if step.Passed {
			mark = " OK "
		}
		output.WriteString(fmt.Sprintf("[%s] %s", mark, step.Name))
		if step.Detail != "" {
			output.WriteString(" - " + step.Detail)
		}
		output.WriteString("\n")
	}
	if report.Passed {
		output.WriteString("\nAll checks passed. You are ready for the interview.\n")
	} else {
		output.WriteString("\nSome checks failed. Fix them before starting the interview.\n")
	}
	return output.String(), nil
}

func (f *SystemCheckTextFormatter) SupportedType() string {
	return "SystemCheckReport"
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

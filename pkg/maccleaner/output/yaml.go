package output

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlDoc is the generic YAML shape for documents without a payload.
type yamlDoc struct {
	Title     string        `yaml:"title,omitempty"`
	Sections  []yamlSection `yaml:"sections,omitempty"`
	Files     []yamlFile    `yaml:"files,omitempty"`
	Processes []ProcessRow  `yaml:"processes,omitempty"`
	TotalSize int64         `yaml:"total_size,omitempty"`
	Warnings  []string      `yaml:"warnings,omitempty"`
}

type yamlSection struct {
	Title string     `yaml:"title,omitempty"`
	Facts []yamlFact `yaml:"facts"`
}

type yamlFact struct {
	Label  string `yaml:"label"`
	Value  string `yaml:"value"`
	Status string `yaml:"status,omitempty"`
}

type yamlFile struct {
	Path      string    `yaml:"path"`
	Size      int64     `yaml:"size"`
	SizeHuman string    `yaml:"size_human"`
	ModTime   time.Time `yaml:"mod_time,omitempty"`
}

// YAMLFormatter formats a document as YAML. Like the JSON formatter it
// emits the payload verbatim when one is present.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, d *Document) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	var err error
	if d.Payload != nil {
		err = encoder.Encode(d.Payload)
	} else {
		err = encoder.Encode(f.buildOutput(d))
	}
	if err != nil {
		return err
	}
	return encoder.Close()
}

// buildOutput converts a Document to the YAML output structure.
func (f *YAMLFormatter) buildOutput(d *Document) yamlDoc {
	sections := make([]yamlSection, len(d.Sections))
	for i, sec := range d.Sections {
		facts := make([]yamlFact, len(sec.Facts))
		for j, fact := range sec.Facts {
			facts[j] = yamlFact{
				Label:  fact.Label,
				Value:  fact.Value,
				Status: string(fact.Status),
			}
		}
		sections[i] = yamlSection{Title: sec.Title, Facts: facts}
	}

	files := make([]yamlFile, len(d.Files))
	for i, file := range d.Files {
		files[i] = yamlFile{
			Path:      file.Path,
			Size:      file.Size,
			SizeHuman: humanBytes(file.Size),
			ModTime:   file.ModTime,
		}
	}

	return yamlDoc{
		Title:     d.Title,
		Sections:  sections,
		Files:     files,
		Processes: d.Processes,
		TotalSize: d.TotalSize(),
		Warnings:  d.Warnings,
	}
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)

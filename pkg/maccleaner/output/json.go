package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// jsonDoc is the generic JSON shape for documents without a payload.
type jsonDoc struct {
	Title     string        `json:"title,omitempty"`
	Sections  []jsonSection `json:"sections,omitempty"`
	Files     []jsonFile    `json:"files,omitempty"`
	Processes []ProcessRow  `json:"processes,omitempty"`
	TotalSize int64         `json:"total_size,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
}

type jsonSection struct {
	Title string     `json:"title,omitempty"`
	Facts []jsonFact `json:"facts"`
}

type jsonFact struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Status string `json:"status,omitempty"`
}

type jsonFile struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	ModTime   time.Time `json:"mod_time,omitzero"`
}

// JSONFormatter formats a document as a single indented JSON object.
// A document payload takes precedence over the generic structure, so
// commands with a typed report emit it verbatim.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, d *Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if d.Payload != nil {
		return encoder.Encode(d.Payload)
	}
	return encoder.Encode(buildJSONDoc(d))
}

func buildJSONDoc(d *Document) jsonDoc {
	sections := make([]jsonSection, len(d.Sections))
	for i, sec := range d.Sections {
		facts := make([]jsonFact, len(sec.Facts))
		for j, fact := range sec.Facts {
			facts[j] = jsonFact{
				Label:  fact.Label,
				Value:  fact.Value,
				Status: string(fact.Status),
			}
		}
		sections[i] = jsonSection{Title: sec.Title, Facts: facts}
	}

	files := make([]jsonFile, len(d.Files))
	for i, file := range d.Files {
		files[i] = buildJSONFile(file)
	}

	return jsonDoc{
		Title:     d.Title,
		Sections:  sections,
		Files:     files,
		Processes: d.Processes,
		TotalSize: d.TotalSize(),
		Warnings:  d.Warnings,
	}
}

func buildJSONFile(file FileRow) jsonFile {
	return jsonFile{
		Path:      file.Path,
		Size:      file.Size,
		SizeHuman: humanBytes(file.Size),
		ModTime:   file.ModTime,
	}
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats the file table as newline-delimited JSON, one
// compact object per line. This format suits streaming tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, d *Document) error {
	for _, file := range d.Files {
		data, err := json.Marshal(buildJSONFile(file))
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)

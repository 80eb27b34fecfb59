package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/bucketglob/pkg/crawler"
	"github.com/3leaps/bucketglob/pkg/match"
)

// Format selects how a glob result is rendered.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSONL, FormatTable, FormatYAML:
		return f, nil
	case "":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("%w: %q (expected jsonl, table or yaml)", ErrUnknownFormat, s)
	}
}

// Render writes res to w in the given format. env is only used by the JSONL
// records.
func Render(ctx context.Context, w io.Writer, format Format, env Envelope, res *crawler.Result) error {
	switch format {
	case FormatJSONL, "":
		jw := NewJSONLWriter(w, env)
		defer func() { _ = jw.Close() }()
		return WriteResult(ctx, jw, res)
	case FormatTable:
		return RenderTable(w, res)
	case FormatYAML:
		return RenderYAML(w, res)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteResult emits one object record per match, in result order, followed
// by a summary record.
func WriteResult(ctx context.Context, w Writer, res *crawler.Result) error {
	for _, obj := range res.Objects {
		if err := w.WriteObject(ctx, NewObjectRecord(obj)); err != nil {
			return err
		}
	}
	return w.WriteSummary(ctx, NewSummaryRecord(res.Summary))
}

// RenderTable writes matches as an aligned table followed by a one-line total.
func RenderTable(w io.Writer, res *crawler.Result) error {
	if len(res.Objects) == 0 {
		_, err := fmt.Fprintln(w, "No objects matched.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Size", "Modified"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, obj := range res.Objects {
		modified := ""
		if !obj.LastModified.IsZero() {
			modified = obj.LastModified.UTC().Format("2006-01-02 15:04:05")
		}
		table.Append([]string{obj.Key, match.FormatSize(obj.Size), modified})
	}
	table.Render()

	_, err := fmt.Fprintf(w, "\n%d object(s), %s total, %d page(s) in %s\n",
		len(res.Objects), match.FormatSize(res.Summary.BytesTotal), res.Summary.Pages,
		res.Summary.Duration.Round(time.Millisecond))
	return err
}

// yamlObject mirrors ObjectRecord with yaml tags.
type yamlObject struct {
	Key          string `yaml:"key"`
	Size         int64  `yaml:"size"`
	ETag         string `yaml:"etag,omitempty"`
	LastModified string `yaml:"last_modified,omitempty"`
}

type yamlSummary struct {
	Branches       int      `yaml:"branches"`
	Prefixes       []string `yaml:"prefixes,flow"`
	Pages          int64    `yaml:"pages"`
	ObjectsListed  int64    `yaml:"objects_listed"`
	ObjectsMatched int64    `yaml:"objects_matched"`
	BytesTotal     int64    `yaml:"bytes_total"`
	Duration       string   `yaml:"duration"`
}

type yamlDocument struct {
	Objects []yamlObject `yaml:"objects"`
	Summary yamlSummary  `yaml:"summary"`
}

// RenderYAML writes the result as a single YAML document.
func RenderYAML(w io.Writer, res *crawler.Result) error {
	doc := yamlDocument{
		Objects: make([]yamlObject, 0, len(res.Objects)),
		Summary: yamlSummary{
			Branches:       res.Summary.Branches,
			Prefixes:       res.Summary.Prefixes,
			Pages:          res.Summary.Pages,
			ObjectsListed:  res.Summary.ObjectsListed,
			ObjectsMatched: res.Summary.ObjectsMatched,
			BytesTotal:     res.Summary.BytesTotal,
			Duration:       res.Summary.Duration.String(),
		},
	}
	for _, obj := range res.Objects {
		yo := yamlObject{Key: obj.Key, Size: obj.Size, ETag: obj.ETag}
		if !obj.LastModified.IsZero() {
			yo.LastModified = obj.LastModified.UTC().Format(time.RFC3339)
		}
		doc.Objects = append(doc.Objects, yo)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return &WriteError{Op: "encode_yaml", Err: err}
	}
	if err := enc.Close(); err != nil {
		return &WriteError{Op: "encode_yaml", Err: err}
	}
	return nil
}

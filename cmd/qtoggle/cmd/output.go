package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rajtan/qtoggleserver"
)

// format identifies a CLI output format.
type format string

const (
	// formatText is the default human-readable output.
	formatText format = "text"
	// formatJSON is line-delimited or indented JSON output.
	formatJSON format = "json"
	// formatYAML is YAML output.
	formatYAML format = "yaml"
)

// resolveFormat validates the --output flag value, defaulting to text.
func resolveFormat(s string) (format, error) {
	switch f := format(strings.ToLower(s)); f {
	case "":
		return formatText, nil
	case formatText, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be one of: text, json, yaml", s)
	}
}

// writeValue renders a single value in the selected format. Text output
// prints one field per line with labels derived from the value's JSON
// tags.
func writeValue(w io.Writer, f format, v any) error {
	switch f {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case formatYAML:
		data, err := yaml.MarshalWithOptions(v,
			yaml.Indent(2),
			yaml.IndentSequence(false),
		)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return writeFields(w, v)
	}
}

// writeEvent renders one event in the selected format. JSON output is
// compact, one object per line, so streamed events stay line-delimited;
// YAML output separates events as documents.
func writeEvent(w io.Writer, f format, ev *qtoggleserver.Event) error {
	switch f {
	case formatJSON:
		return json.NewEncoder(w).Encode(ev)
	case formatYAML:
		data, err := yaml.MarshalWithOptions(ev,
			yaml.Indent(2),
			yaml.IndentSequence(false),
		)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, "---\n"); err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		_, err := fmt.Fprintln(w, eventLine(ev))
		return err
	}
}

// eventLine formats an event as a single text line: the type followed by
// its params as key=value pairs in stable key order.
func eventLine(ev *qtoggleserver.Event) string {
	var b strings.Builder
	b.WriteString(string(ev.Type))

	keys := make([]string, 0, len(ev.Params))
	for k := range ev.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, ev.Params[k])
	}

	return b.String()
}

// writeFields prints struct fields as "Label: value" lines, deriving
// labels from JSON tags the same way table headers are usually built.
func writeFields(w io.Writer, v any) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		_, err := fmt.Fprintln(w, v)
		return err
	}

	caser := cases.Title(language.English)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Tag.Get("json")
		if idx := strings.Index(name, ","); idx >= 0 {
			name = name[:idx]
		}
		if name == "" || name == "-" {
			name = field.Name
		}
		label := caser.String(strings.ReplaceAll(name, "_", " "))

		if _, err := fmt.Fprintf(w, "%s: %v\n", label, rv.Field(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

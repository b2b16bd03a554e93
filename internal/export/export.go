// Package export writes scan results to files in JSON, CSV or YAML.
//
// Every format keeps the order of the result set, which is the order in
// which hosts were resolved.
package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/anstrom/portprowler/internal/errors"
	"github.com/anstrom/portprowler/internal/scanning"
)

const (
	dirPerm  = 0750
	filePerm = 0644

	jsonIndent = "    "
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

var csvHeader = []string{"IP", "Port", "Service"}

// Formats returns the supported format names.
func Formats() []string {
	return []string{string(FormatJSON), string(FormatCSV), string(FormatYAML)}
}

// ParseFormat parses a format name, case-insensitively. "yml" is accepted
// for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", errors.NewConfigFieldError(errors.CodeFormatInvalid,
			fmt.Sprintf("unsupported output format %q (want one of %s)", s, strings.Join(Formats(), ", ")),
			"format", s)
	}
}

// Write encodes set to w in the given format.
func Write(w io.Writer, set *scanning.ScanResultSet, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, set)
	case FormatCSV:
		return WriteCSV(w, set)
	case FormatYAML:
		return WriteYAML(w, set)
	default:
		return errors.NewConfigFieldError(errors.CodeFormatInvalid,
			fmt.Sprintf("unsupported output format %q", format), "format", string(format))
	}
}

// WriteFile writes set to path, creating parent directories as needed.
func WriteFile(path string, set *scanning.ScanResultSet, format Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return errors.WrapExportError(errors.CodeDirectoryCreate, path, string(format), err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return errors.WrapExportError(errors.CodeExportFailed, path, string(format), err)
	}

	bw := bufio.NewWriter(f)
	if err := Write(bw, set, format); err != nil {
		_ = f.Close()
		return errors.WrapExportError(errors.CodeExportFailed, path, string(format), err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return errors.WrapExportError(errors.CodeExportFailed, path, string(format), err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapExportError(errors.CodeExportFailed, path, string(format), err)
	}
	return nil
}

// WriteJSON writes an object keyed by host whose values are lists of
// [port, service] pairs, indented by four spaces.
func WriteJSON(w io.Writer, set *scanning.ScanResultSet) error {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, res := range set.Results() {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := json.Marshal(res.Host.String())
		if err != nil {
			return err
		}
		compact.Write(key)
		compact.WriteByte(':')

		compact.WriteByte('[')
		for j, port := range res.OpenPorts {
			if j > 0 {
				compact.WriteByte(',')
			}
			service, err := json.Marshal(port.Service)
			if err != nil {
				return err
			}
			compact.WriteByte('[')
			compact.WriteString(strconv.Itoa(int(port.Port)))
			compact.WriteByte(',')
			compact.Write(service)
			compact.WriteByte(']')
		}
		compact.WriteByte(']')
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", jsonIndent); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := w.Write(out.Bytes())
	return err
}

// ReadJSON parses the output of WriteJSON, keeping the host order.
func ReadJSON(r io.Reader) (*scanning.ScanResultSet, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	set := scanning.NewScanResultSet()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected host key, got %v", tok)
		}
		host, err := netip.ParseAddr(key)
		if err != nil {
			return nil, fmt.Errorf("invalid host %q: %w", key, err)
		}

		var pairs [][]json.RawMessage
		if err := dec.Decode(&pairs); err != nil {
			return nil, fmt.Errorf("host %s: %w", key, err)
		}

		outcomes := make([]scanning.PortOutcome, 0, len(pairs))
		for _, pair := range pairs {
			if len(pair) != 2 {
				return nil, fmt.Errorf("host %s: expected [port, service], got %d elements", key, len(pair))
			}
			var port uint16
			if err := json.Unmarshal(pair[0], &port); err != nil {
				return nil, fmt.Errorf("host %s: invalid port: %w", key, err)
			}
			var service string
			if err := json.Unmarshal(pair[1], &service); err != nil {
				return nil, fmt.Errorf("host %s: invalid service: %w", key, err)
			}
			outcomes = append(outcomes, scanning.PortOutcome{Port: port, Open: true, Service: service})
		}
		set.Add(scanning.NewTargetResult(host, outcomes, nil))
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return set, nil
}

// WriteCSV writes one IP,Port,Service row per open port.
func WriteCSV(w io.Writer, set *scanning.ScanResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, res := range set.Results() {
		host := res.Host.String()
		for _, port := range res.OpenPorts {
			if err := cw.Write([]string{host, strconv.Itoa(int(port.Port)), port.Service}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteYAML writes the same mapping as WriteJSON as a YAML document, with
// each [port, service] pair in flow style.
func WriteYAML(w io.Writer, set *scanning.ScanResultSet) error {
	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, res := range set.Results() {
		ports := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, port := range res.OpenPorts {
			ports.Content = append(ports.Content, &yaml.Node{
				Kind:  yaml.SequenceNode,
				Tag:   "!!seq",
				Style: yaml.FlowStyle,
				Content: []*yaml.Node{
					{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(int(port.Port))},
					{Kind: yaml.ScalarNode, Tag: "!!str", Value: port.Service},
				},
			})
		}
		if len(ports.Content) == 0 {
			ports.Style = yaml.FlowStyle
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: res.Host.String()},
			ports,
		)
	}
	if len(doc.Content) == 0 {
		doc.Style = yaml.FlowStyle
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

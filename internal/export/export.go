// Package export writes flattened resource trees as JSONL or as
// length-delimited protobuf Structs, and ships the result to destinations.
package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jcolombo/paymo/internal/idgen"
)

type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatProto Format = "protodelim"
)

// Version is the export layout version written in every header.
const Version = "1"

// ParseFormat accepts "jsonl" (the default when empty) or "protodelim".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSONL:
		return FormatJSONL, nil
	case FormatProto, "proto":
		return FormatProto, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType is the MIME type uploaded alongside the payload.
func (f Format) ContentType() string {
	if f == FormatProto {
		return "application/x-protobuf"
	}
	return "application/x-ndjson"
}

// Header is the first record of every export.
type Header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

const (
	typeHeader = "header"
	typeRecord = "record"
)

func newHeader(entity string, count int) (Header, error) {
	id, err := idgen.ExportID()
	if err != nil {
		return Header{}, fmt.Errorf("export id: %w", err)
	}
	return Header{
		Version:   Version,
		Type:      typeHeader,
		ID:        id,
		Entity:    entity,
		Timestamp: time.Now().UTC(),
		Count:     count,
	}, nil
}

// Write encodes records of one entity type in format f.
func Write(w io.Writer, f Format, entity string, records []map[string]any) (Header, error) {
	h, err := newHeader(entity, len(records))
	if err != nil {
		return Header{}, err
	}
	switch f {
	case FormatJSONL:
		err = writeJSONL(w, h, records)
	case FormatProto:
		err = writeProto(w, h, records)
	default:
		err = fmt.Errorf("unknown export format %q", f)
	}
	if err != nil {
		return Header{}, err
	}
	return h, nil
}

func writeJSONL(w io.Writer, h Header, records []map[string]any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for i, r := range records {
		if err := enc.Encode(record{Type: typeRecord, Data: r}); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return nil
}

// Read decodes an export written by Write.
func Read(r io.Reader, f Format) (Header, []map[string]any, error) {
	switch f {
	case FormatJSONL:
		return readJSONL(r)
	case FormatProto:
		return readProto(r)
	}
	return Header{}, nil, fmt.Errorf("unknown export format %q", f)
}

func readJSONL(r io.Reader) (Header, []map[string]any, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	dec.UseNumber()

	var h Header
	if err := dec.Decode(&h); err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, nil, fmt.Errorf("empty export")
		}
		return Header{}, nil, fmt.Errorf("decode header: %w", err)
	}
	if h.Type != typeHeader {
		return Header{}, nil, fmt.Errorf("first record has type %q, want header", h.Type)
	}

	records := make([]map[string]any, 0, h.Count)
	for {
		var rec record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Header{}, nil, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		if rec.Type != typeRecord {
			return Header{}, nil, fmt.Errorf("record %d has type %q", len(records), rec.Type)
		}
		records = append(records, rec.Data)
	}
	return h, records, nil
}

package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"
)

// The protobuf layout mirrors JSONL: one delimited Struct per line, the first
// carrying the header fields.
func writeProto(w io.Writer, h Header, records []map[string]any) error {
	hs, err := structpb.NewStruct(map[string]any{
		"version":   h.Version,
		"type":      h.Type,
		"id":        h.ID,
		"entity":    h.Entity,
		"timestamp": h.Timestamp.Format(time.RFC3339Nano),
		"count":     h.Count,
	})
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := protodelim.MarshalTo(w, hs); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		data, err := structpb.NewStruct(normalizeMap(r))
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		msg := &structpb.Struct{Fields: map[string]*structpb.Value{
			"type": structpb.NewStringValue(typeRecord),
			"data": structpb.NewStructValue(data),
		}}
		if _, err := protodelim.MarshalTo(w, msg); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return nil
}

func readProto(r io.Reader) (Header, []map[string]any, error) {
	br := bufio.NewReader(r)

	hs := &structpb.Struct{}
	if err := protodelim.UnmarshalFrom(br, hs); err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, nil, fmt.Errorf("empty export")
		}
		return Header{}, nil, fmt.Errorf("decode header: %w", err)
	}
	hm := hs.AsMap()
	h := Header{
		Version: stringField(hm, "version"),
		Type:    stringField(hm, "type"),
		ID:      stringField(hm, "id"),
		Entity:  stringField(hm, "entity"),
	}
	if h.Type != typeHeader {
		return Header{}, nil, fmt.Errorf("first record has type %q, want header", h.Type)
	}
	if n, ok := hm["count"].(float64); ok {
		h.Count = int(n)
	}
	if ts := stringField(hm, "timestamp"); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Header{}, nil, fmt.Errorf("decode header timestamp: %w", err)
		}
		h.Timestamp = t
	}

	records := make([]map[string]any, 0, h.Count)
	for {
		msg := &structpb.Struct{}
		err := protodelim.UnmarshalFrom(br, msg)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Header{}, nil, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		m := msg.AsMap()
		if t := stringField(m, "type"); t != typeRecord {
			return Header{}, nil, fmt.Errorf("record %d has type %q", len(records), t)
		}
		data, _ := m["data"].(map[string]any)
		records = append(records, data)
	}
	return h, records, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

// normalize converts hydrated values into the types structpb accepts.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64, float32, int, int32, int64, uint32, uint64:
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case map[string]any:
		return normalizeMap(t)
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = normalizeMap(m)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	}
	return fmt.Sprint(v)
}

package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed descriptors/*.toml
var descriptorsFS embed.FS

// fileDescriptor is the TOML shape of a descriptor file.
type fileDescriptor struct {
	Key          string                 `toml:"key"`
	Label        string                 `toml:"label"`
	Path         string                 `toml:"path"`
	ResponseKey  string                 `toml:"response_key"`
	NoIdentity   bool                   `toml:"no_identity"`
	Required     []string               `toml:"required"`
	Capabilities Capabilities           `toml:"capabilities"`
	Precondition Precondition           `toml:"precondition"`
	Fields       map[string]fileField   `toml:"fields"`
	Includes     map[string]fileInclude `toml:"includes"`
	Where        map[string][]string    `toml:"where"`
}

type fileField struct {
	Type       string `toml:"type"`
	ReadOnly   bool   `toml:"read_only"`
	CreateOnly bool   `toml:"create_only"`
}

type fileInclude struct {
	Entity     string `toml:"entity"`
	Collection bool   `toml:"collection"`
}

// Parse decodes one TOML descriptor document. Filter rules keyed "field"
// form the allow list; keys of the form "!field" form the deny list.
func Parse(data []byte) (*Descriptor, error) {
	var fd fileDescriptor
	md, err := toml.Decode(string(data), &fd)
	if err != nil {
		return nil, fmt.Errorf("decoding descriptor: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("descriptor %s: unknown keys %s", fd.Key, strings.Join(keys, ", "))
	}

	d := &Descriptor{
		Key:          fd.Key,
		Label:        fd.Label,
		Path:         fd.Path,
		ResponseKey:  fd.ResponseKey,
		NoIdentity:   fd.NoIdentity,
		Required:     fd.Required,
		Capabilities: fd.Capabilities,
		Precondition: fd.Precondition,
		Fields:       make(map[string]Field, len(fd.Fields)),
		Includes:     make(map[string]Include, len(fd.Includes)),
		FilterRules:  make(map[string]FilterRule),
	}
	for name, f := range fd.Fields {
		d.Fields[name] = Field{Name: name, Type: f.Type, ReadOnly: f.ReadOnly, CreateOnly: f.CreateOnly}
	}
	for name, inc := range fd.Includes {
		d.Includes[name] = Include{Name: name, Entity: inc.Entity, Collection: inc.Collection}
	}
	for key, ops := range fd.Where {
		if field, deny := strings.CutPrefix(key, "!"); deny {
			rule := d.FilterRules[field]
			rule.Disallowed = append(rule.Disallowed, ops...)
			d.FilterRules[field] = rule
			continue
		}
		rule := d.FilterRules[key]
		rule.Allowed = append(rule.Allowed, ops...)
		d.FilterRules[key] = rule
	}
	return d, nil
}

// LoadFS parses every *.toml file in dir of fsys, in name order.
func LoadFS(fsys fs.FS, dir string) ([]*Descriptor, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor dir: %w", err)
	}
	var out []*Descriptor
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".toml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		d, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Load registers every descriptor from fsys/dir into a new registry. In
// strict mode cross-descriptor references are validated as well.
func Load(fsys fs.FS, dir string, opts ...Option) (*Registry, error) {
	descriptors, err := LoadFS(fsys, dir)
	if err != nil {
		return nil, err
	}
	r := NewRegistry(opts...)
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	if r.strict {
		if err := r.ValidateAll(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadDefault loads the descriptors bundled with the SDK.
func LoadDefault(opts ...Option) (*Registry, error) {
	return Load(descriptorsFS, "descriptors", opts...)
}

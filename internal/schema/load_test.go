package schema

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

const sampleDescriptor = `
key = "project"
label = "Project"
path = "projects"
required = ["name"]

[fields]
name = { type = "text" }
client_id = { type = "resource:client", read_only = true, create_only = true }
description = { type = "html" }

[includes]
client = { entity = "client" }
tasks = { entity = "task", collection = true }

[where]
name = ["=", "like"]
"!description" = ["in", "range"]
`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(sampleDescriptor))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.Key != "project" || d.Path != "projects" || d.Label != "Project" {
		t.Errorf("header = %q/%q/%q", d.Key, d.Path, d.Label)
	}
	if !d.IsReadOnly("client_id") || !d.IsCreateOnly("client_id") {
		t.Error("client_id should be read-only and create-only")
	}
	inc, ok := d.Include("tasks")
	if !ok || !inc.Collection || inc.Entity != "task" {
		t.Errorf("tasks include = %+v, %v", inc, ok)
	}
	if got := d.FilterRules["name"].Allowed; len(got) != 2 {
		t.Errorf("name allow list = %v", got)
	}
	if got := d.FilterRules["description"].Disallowed; len(got) != 2 || got[0] != "in" {
		t.Errorf("description deny list = %v", got)
	}
	if d.EnvelopeKey() != "projects" {
		t.Errorf("EnvelopeKey() = %q, want projects", d.EnvelopeKey())
	}
}

func TestParse_UnknownKeys(t *testing.T) {
	_, err := Parse([]byte("key = \"x\"\nlabel = \"X\"\npath = \"xs\"\nbogus = 1\n"))
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("Parse() error = %v, want unknown key error", err)
	}
}

func TestLoadDefault_Strict(t *testing.T) {
	reg, err := LoadDefault(WithStrict(true))
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	for _, key := range []string{"project", "task", "tasklist", "client", "booking", "usertask", "estimateitem", "invoiceitem", "timeentry", "currency"} {
		if _, ok := reg.Get(key); !ok {
			t.Errorf("default registry is missing %q", key)
		}
	}
	booking, _ := reg.Get("booking")
	if booking.Precondition.IsZero() {
		t.Error("booking should declare a fetch precondition")
	}
	currency, _ := reg.Get("currency")
	if currency.HasField("id") {
		t.Error("currency is exempt from the implicit id")
	}
	if d, ok := reg.ByPath("entries"); !ok || d.Key != "timeentry" {
		t.Errorf("ByPath(entries) = %v, %v", d, ok)
	}
}

func TestLoad_StrictRejectsDanglingInclude(t *testing.T) {
	fsys := fstest.MapFS{
		"d/project.toml": {Data: []byte(sampleDescriptor)},
	}
	_, err := Load(fsys, "d", WithStrict(true))
	var de *DescriptorError
	if !errors.As(err, &de) {
		t.Fatalf("Load() error = %v, want *DescriptorError", err)
	}
	if !strings.Contains(err.Error(), "unknown entity") {
		t.Errorf("error = %v, want unknown entity", err)
	}

	if _, err := Load(fsys, "d"); err != nil {
		t.Errorf("non-strict Load() error = %v", err)
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	d := &Descriptor{Key: "client"}
	if err := r.Register(d); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(d); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestValidateDescriptor(t *testing.T) {
	for _, tc := range []struct {
		name    string
		d       *Descriptor
		wantSub string
	}{
		{
			name:    "missing sections",
			d:       &Descriptor{Key: "x"},
			wantSub: "label is required",
		},
		{
			name: "field include clash",
			d: &Descriptor{Key: "x", Label: "X", Path: "xs",
				Fields:   map[string]Field{"client": {Type: "integer"}},
				Includes: map[string]Include{"client": {Entity: "client"}}},
			wantSub: "both a field and an include",
		},
		{
			name: "create only without read only",
			d: &Descriptor{Key: "x", Label: "X", Path: "xs",
				Fields: map[string]Field{"a": {Type: "integer", CreateOnly: true}}},
			wantSub: "create_only requires read_only",
		},
		{
			name: "bad operator",
			d: &Descriptor{Key: "x", Label: "X", Path: "xs",
				Fields:      map[string]Field{"a": {Type: "integer"}},
				FilterRules: map[string]FilterRule{"a": {Allowed: []string{"~"}}}},
			wantSub: "unknown operator",
		},
		{
			name: "required references unknown field",
			d: &Descriptor{Key: "x", Label: "X", Path: "xs",
				Fields:   map[string]Field{"a": {Type: "integer"}},
				Required: []string{"a|b"}},
			wantSub: "unknown field b",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDescriptor(tc.d)
			if err == nil || !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("ValidateDescriptor() = %v, want error containing %q", err, tc.wantSub)
			}
		})
	}
}

func TestRequirementFields(t *testing.T) {
	got := RequirementFields("start_time||date")
	if len(got) != 2 || got[0] != "start_time" || got[1] != "date" {
		t.Errorf("RequirementFields = %v", got)
	}
}

// Package schematest provides a small, stable schema registry for tests.
package schematest

import (
	"testing"

	"github.com/jcolombo/paymo/internal/schema"
)

var fixtures = []string{`
key = "project"
label = "Project"
path = "projects"
required = ["name"]

[fields]
name = { type = "text" }
description = { type = "html" }
client_id = { type = "resource:client" }
active = { type = "boolean" }
budget_hours = { type = "decimal" }
billing = { type = "enum:pph|tph|none" }
users = { type = "collection:user" }
code = { type = "text", read_only = true }
created_on = { type = "datetime", read_only = true }

[includes]
client = { entity = "client" }
tasks = { entity = "task", collection = true }
tasklists = { entity = "tasklist", collection = true }

[where]
name = ["=", "!=", "like", "not like", "in", "not in"]
"!description" = ["=", "in", "not in", "range"]
`, `
key = "client"
label = "Client"
path = "clients"
required = ["name"]

[fields]
name = { type = "text" }
email = { type = "email" }
active = { type = "boolean" }

[includes]
projects = { entity = "project", collection = true }
`, `
key = "task"
label = "Task"
path = "tasks"
required = ["name", "tasklist_id|project_id"]

[fields]
name = { type = "text" }
project_id = { type = "resource:project", read_only = true, create_only = true }
tasklist_id = { type = "resource:tasklist" }
user_id = { type = "resource:user" }
hours = { type = "decimal" }
status = { type = "enum:open|closed|blocked" }
complete = { type = "boolean" }
due_date = { type = "date" }
invoiced = { type = "boolean", read_only = true }

[includes]
project = { entity = "project" }
tasklist = { entity = "tasklist" }
user = { entity = "user" }
`, `
key = "tasklist"
label = "Task List"
path = "tasklists"

[fields]
name = { type = "text" }
project_id = { type = "resource:project", read_only = true, create_only = true }

[includes]
project = { entity = "project" }
tasks = { entity = "task", collection = true }
`, `
key = "user"
label = "User"
path = "users"

[capabilities]
no_delete = true

[fields]
name = { type = "text" }
email = { type = "email" }
`, `
key = "booking"
label = "Booking"
path = "bookings"

[precondition]
any_of = ["user_task_id", "task_id", "project_id", "user_id"]
paired = ["start_date", "end_date"]

[fields]
user_task_id = { type = "integer", read_only = true, create_only = true }
task_id = { type = "resource:task", read_only = true }
project_id = { type = "resource:project", read_only = true }
user_id = { type = "resource:user", read_only = true }
start_date = { type = "date" }
end_date = { type = "date" }
hours_per_day = { type = "decimal" }
`, `
key = "currency"
label = "Currency"
path = "currencies"
no_identity = true

[capabilities]
no_create = true
no_update = true
no_delete = true
no_fetch = true

[fields]
code = { type = "text", read_only = true }
name = { type = "text", read_only = true }
`}

// New returns a strict registry holding the fixture entities project,
// client, task, tasklist, user, booking and currency.
func New(t testing.TB) *schema.Registry {
	t.Helper()
	r := schema.NewRegistry(schema.WithStrict(true))
	for _, src := range fixtures {
		d, err := schema.Parse([]byte(src))
		if err != nil {
			t.Fatalf("parsing fixture: %v", err)
		}
		if err := r.Register(d); err != nil {
			t.Fatalf("registering fixture: %v", err)
		}
	}
	if err := r.ValidateAll(); err != nil {
		t.Fatalf("validating fixtures: %v", err)
	}
	return r
}

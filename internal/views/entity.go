// Package views holds one configuration-driven screen per entity type.
//
// Each Entity describes its endpoints, form fields and table columns; a
// View binds an Entity to an API client and performs the list and edit
// operations against it.
package views

import (
	"encoding/json"
	"strings"

	"github.com/me/gestion/internal/apiclient"
	"github.com/me/gestion/pkg/model"
)

// Field is one form input of an entity.
type Field struct {
	Name       string // JSON key in the request body
	Flag       string // CLI flag name
	Usage      string
	Required   bool
	Multi      bool   // comma-separated list, sent as a JSON array
	Default    string // sent when the value is empty on create
	CreateOnly bool   // ignored on update
}

// Column is one table column.
type Column struct {
	Header string
	Key    string
	Format func(v any) string // nil means model.FormatValue
}

func (c Column) render(r model.Record) string {
	if c.Format != nil {
		return c.Format(r[c.Key])
	}
	return model.FormatValue(r[c.Key])
}

// Entity configures one screen.
type Entity struct {
	Name       string // command name, e.g. "personnel"
	Title      string
	Page       model.Page
	ListPath   string
	CreatePath string
	UpdatePath string // contains "{id}"
	PatchPath  string // contains "{id}"; empty when partial updates are unsupported
	DeletePath string // contains "{id}"
	Fields     []Field
	Columns    []Column
}

// Path substitutes id into a path template.
func Path(template, id string) string {
	return strings.ReplaceAll(template, "{id}", id)
}

// Personnel is the staff screen.
var Personnel = Entity{
	Name:       "personnel",
	Title:      "Personnel",
	Page:       model.PagePersonnel,
	ListPath:   "/personnel/all",
	CreatePath: "/personnel/add",
	UpdatePath: "/personnel/{id}",
	PatchPath:  "/personnel/{id}",
	DeletePath: "/personnel/{id}",
	Fields: []Field{
		{Name: "matricule", Flag: "matricule", Usage: "Service number", Required: true},
		{Name: "nom", Flag: "nom", Usage: "Name", Required: true},
		{Name: "qualification", Flag: "qualification", Usage: "Qualification"},
		{Name: "affectation", Flag: "affectation", Usage: "Posting"},
		{Name: "sections", Flag: "sections", Usage: "Section IDs (comma-separated)", Multi: true},
	},
	Columns: []Column{
		{Header: "ID", Key: "id"},
		{Header: "MATRICULE", Key: "matricule"},
		{Header: "NOM", Key: "nom"},
		{Header: "QUALIFICATION", Key: "qualification"},
		{Header: "AFFECTATION", Key: "affectation"},
		{Header: "SECTIONS", Key: "sections", Format: SectionList},
	},
}

// AssignPath links a personnel record to a section.
const AssignPath = "/personnel/assign_section"

// Sections is the unit sections screen.
var Sections = Entity{
	Name:       "section",
	Title:      "Sections",
	Page:       model.PageSection,
	ListPath:   "/section/all",
	CreatePath: "/section/add",
	UpdatePath: "/section/update/{id}",
	DeletePath: "/section/delete/{id}",
	Fields: []Field{
		{Name: "code_section", Flag: "code", Usage: "Section code"},
		{Name: "label", Flag: "label", Usage: "Label", Required: true},
		{Name: "unit", Flag: "unit", Usage: "Unit", Required: true},
		{Name: "type", Flag: "type", Usage: "Section type", Required: true},
	},
	Columns: []Column{
		{Header: "ID", Key: "id"},
		{Header: "LABEL", Key: "label"},
		{Header: "TYPE", Key: "type"},
		{Header: "UNIT", Key: "unit"},
		{Header: "PERSONNELS", Key: "personnels", Format: orDash},
	},
}

// Users is the account administration screen. Accounts are created
// through the signup endpoint without adopting the returned token.
var Users = Entity{
	Name:       "user",
	Title:      "Users",
	Page:       model.PageUsers,
	ListPath:   "/auth/users",
	CreatePath: apiclient.SignupPath,
	UpdatePath: "/auth/users/{id}",
	DeletePath: "/auth/users/{id}",
	Fields: []Field{
		{Name: "firstname", Flag: "firstname", Usage: "First name", Required: true},
		{Name: "lastname", Flag: "lastname", Usage: "Last name", Required: true},
		{Name: "email", Flag: "email", Usage: "Email address", Required: true, CreateOnly: true},
		{Name: "password", Flag: "password", Usage: "Password", Required: true, CreateOnly: true},
		{Name: "role", Flag: "role", Usage: "Role (" + string(model.RoleUser) + ", " + string(model.RoleAdmin) + ")", Required: true, Default: string(model.RoleUser)},
	},
	Columns: []Column{
		{Header: "ID", Key: "id"},
		{Header: "FIRSTNAME", Key: "firstname"},
		{Header: "LASTNAME", Key: "lastname"},
		{Header: "EMAIL", Key: "email"},
		{Header: "ROLE", Key: "role"},
	},
}

// Entities lists every screen in display order.
func Entities() []Entity {
	return []Entity{Personnel, Sections, Users}
}

// SectionList renders a personnel record's sections. Elements may be
// section objects (shown by label, then nom) or plain identifiers.
func SectionList(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, s := range t {
			parts = append(parts, sectionName(s))
		}
		if len(parts) == 0 {
			return "-"
		}
		return strings.Join(parts, ", ")
	case string:
		if strings.TrimSpace(t) != "" {
			return t
		}
	}
	return "-"
}

func sectionName(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return model.FormatValue(v)
	}
	for _, key := range []string{"label", "nom"} {
		if s := model.FormatValue(obj[key]); s != "" {
			return s
		}
	}
	data, _ := json.Marshal(obj)
	return string(data)
}

func orDash(v any) string {
	if v == nil {
		return "-"
	}
	return model.FormatValue(v)
}

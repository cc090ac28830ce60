package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/me/gestion/pkg/model"
)

// Requester performs API calls. *apiclient.Client satisfies it.
type Requester interface {
	Get(ctx context.Context, path string) model.Result
	Post(ctx context.Context, path string, payload map[string]any) model.Result
	Put(ctx context.Context, path string, payload map[string]any) model.Result
	Patch(ctx context.Context, path string, payload map[string]any) model.Result
	Delete(ctx context.Context, path string) model.Result
}

// View binds an Entity to a client.
type View struct {
	Client Requester
	Entity Entity
}

// New creates a view.
func New(client Requester, entity Entity) *View {
	return &View{Client: client, Entity: entity}
}

// List fetches every record.
func (v *View) List(ctx context.Context) ([]model.Record, model.Result) {
	res := v.Client.Get(ctx, v.Entity.ListPath)
	return res.Records("data"), res
}

// Create submits a new record. Missing required fields fail without a
// request.
func (v *View) Create(ctx context.Context, values map[string]string) model.Result {
	if missing := v.missing(values, true); len(missing) > 0 {
		return missingResult(missing)
	}
	return v.Client.Post(ctx, v.Entity.CreatePath, v.payload(values, true, false))
}

// Update replaces record id.
func (v *View) Update(ctx context.Context, id string, values map[string]string) model.Result {
	if missing := v.missing(values, false); len(missing) > 0 {
		return missingResult(missing)
	}
	return v.Client.Put(ctx, Path(v.Entity.UpdatePath, id), v.payload(values, false, false))
}

// Patch updates only the non-empty fields of record id.
func (v *View) Patch(ctx context.Context, id string, values map[string]string) model.Result {
	if v.Entity.PatchPath == "" {
		return model.Failure(model.KindClient, 0, fmt.Sprintf("%s does not support partial updates", v.Entity.Name))
	}
	payload := v.payload(values, false, true)
	if len(payload) == 0 {
		return model.Failure(model.KindClient, 0, "nothing to update")
	}
	return v.Client.Patch(ctx, Path(v.Entity.PatchPath, id), payload)
}

// Delete removes record id.
func (v *View) Delete(ctx context.Context, id string) model.Result {
	return v.Client.Delete(ctx, Path(v.Entity.DeletePath, id))
}

// Assign links a personnel record to a section.
func Assign(ctx context.Context, client Requester, personnelID, sectionID string) model.Result {
	if strings.TrimSpace(personnelID) == "" || strings.TrimSpace(sectionID) == "" {
		return model.Failure(model.KindClient, 0, "personnel and section IDs are required")
	}
	return client.Post(ctx, AssignPath, map[string]any{
		"personnel_id": personnelID,
		"section_id":   sectionID,
	})
}

// Missing returns the flags of required fields that have no value on
// create. A field with a default is satisfied on create but not on update.
func (v *View) Missing(values map[string]string) []string {
	return v.missing(values, true)
}

func (v *View) missing(values map[string]string, create bool) []string {
	var missing []string
	for _, f := range v.Entity.Fields {
		if !create && f.CreateOnly {
			continue
		}
		if strings.TrimSpace(values[f.Name]) != "" || (create && f.Default != "") {
			continue
		}
		if f.Required {
			missing = append(missing, f.Flag)
		}
	}
	return missing
}

// Payload builds a create request body from form values.
func (v *View) Payload(values map[string]string) map[string]any {
	return v.payload(values, true, false)
}

// payload builds a request body. Defaults fill empty fields on create
// only. When partial is set, empty fields are left out.
func (v *View) payload(values map[string]string, create, partial bool) map[string]any {
	payload := make(map[string]any, len(v.Entity.Fields))
	for _, f := range v.Entity.Fields {
		if !create && f.CreateOnly {
			continue
		}
		raw := strings.TrimSpace(values[f.Name])
		if partial && raw == "" {
			continue
		}
		if raw == "" && create {
			raw = f.Default
		}
		if !f.Multi {
			payload[f.Name] = raw
			continue
		}
		items := []any{}
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		payload[f.Name] = items
	}
	return payload
}

func missingResult(missing []string) model.Result {
	return model.Failure(model.KindClient, 0, "missing required fields: "+strings.Join(missing, ", "))
}

// Render writes records as a table.
func (v *View) Render(w io.Writer, records []model.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("No %s found.", strings.ToLower(v.Entity.Title))))
		return err
	}

	headers := make([]string, len(v.Entity.Columns))
	for i, c := range v.Entity.Columns {
		headers[i] = c.Header
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(v.Entity.Columns))
		for i, c := range v.Entity.Columns {
			row[i] = c.render(r)
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, titleStyle.Render(v.Entity.Title)+"\n"+t.String())
	return err
}

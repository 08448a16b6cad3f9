// Package templates resolves notification templates, layering each user's JSON
// merge patch over the built-in base template before rendering.
package templates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"hookflo/internal/platform/models"
)

const GenericTemplateID = "generic"

type Template struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	SlackText string `json:"slack_text"`
}

type Rendered struct {
	Subject   string
	Body      string
	SlackText string
}

// Data is what every template is executed against.
type Data struct {
	Platform string
	Webhook  string
	Event    map[string]interface{}
}

var base = map[string]Template{
	GenericTemplateID: {
		ID:        GenericTemplateID,
		Subject:   `[Hookflo] {{.Platform}} event for {{.Webhook}}`,
		Body:      "Event received from {{.Platform}}:\n\n{{json .Event}}",
		SlackText: "*{{.Platform}}* event on _{{.Webhook}}_\n```{{json .Event}}```",
	},
	"stripe-payment": {
		ID:        "stripe-payment",
		Subject:   `Stripe {{field .Event "type"}}`,
		Body:      "Amount: {{field .Event \"data.object.amount\"}} {{field .Event \"data.object.currency\"}}\nStatus: {{field .Event \"data.object.status\"}}\nCustomer: {{field .Event \"data.object.customer\"}}",
		SlackText: ":credit_card: Stripe *{{field .Event \"type\"}}*: {{field .Event \"data.object.amount\"}} {{field .Event \"data.object.currency\"}}",
	},
	"github-push": {
		ID:        "github-push",
		Subject:   `GitHub push to {{field .Event "repository.full_name"}}`,
		Body:      "Ref: {{field .Event \"ref\"}}\nPusher: {{field .Event \"pusher.name\"}}\nCompare: {{field .Event \"compare\"}}",
		SlackText: ":octocat: {{field .Event \"pusher.name\"}} pushed to *{{field .Event \"repository.full_name\"}}* ({{field .Event \"ref\"}})",
	},
	"clerk-user": {
		ID:        "clerk-user",
		Subject:   `Clerk {{field .Event "type"}}`,
		Body:      "User: {{field .Event \"data.id\"}}\nEmail: {{field .Event \"data.email_addresses.0.email_address\"}}",
		SlackText: ":bust_in_silhouette: Clerk *{{field .Event \"type\"}}* for {{field .Event \"data.id\"}}",
	},
	"supabase-row": {
		ID:        "supabase-row",
		Subject:   `Supabase {{field .Event "type"}} on {{field .Event "table"}}`,
		Body:      "Schema: {{field .Event \"schema\"}}\nRecord:\n{{json (field .Event \"record\")}}",
		SlackText: ":zap: Supabase *{{field .Event \"type\"}}* on `{{field .Event \"table\"}}`",
	},
}

// BaseIDs lists the built-in template ids.
func BaseIDs() []string {
	ids := make([]string, 0, len(base))
	for id := range base {
		ids = append(ids, id)
	}
	return ids
}

// DefaultFor picks the base template that best matches a platform.
func DefaultFor(platform string) string {
	switch platform {
	case "stripe":
		return "stripe-payment"
	case "github":
		return "github-push"
	case "clerk":
		return "clerk-user"
	case "supabase":
		return "supabase-row"
	}
	return GenericTemplateID
}

var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrInvalidPatch    = errors.New("invalid template patch")
)

type CustomizationStore interface {
	GetCustomization(ctx context.Context, userID, templateID string) (*models.TemplateCustomization, error)
	UpsertCustomization(ctx context.Context, c *models.TemplateCustomization) error
}

type Registry struct {
	store CustomizationStore
}

func NewRegistry(store CustomizationStore) *Registry {
	return &Registry{store: store}
}

// Resolve returns the base template for templateID (generic when unknown) with
// the user's customization applied.
func (r *Registry) Resolve(ctx context.Context, userID, templateID string) (Template, error) {
	tmpl, ok := base[templateID]
	if !ok {
		tmpl = base[GenericTemplateID]
	}
	if r.store == nil || userID == "" {
		return tmpl, nil
	}

	custom, err := r.store.GetCustomization(ctx, userID, tmpl.ID)
	if err != nil {
		return Template{}, fmt.Errorf("load template customization: %w", err)
	}
	if custom == nil {
		return tmpl, nil
	}
	return ApplyPatch(tmpl, []byte(custom.Patch))
}

// Customize validates patch against the base template and stores it for the user.
func (r *Registry) Customize(ctx context.Context, userID, templateID string, patch []byte) (Template, error) {
	tmpl, ok := base[templateID]
	if !ok {
		return Template{}, fmt.Errorf("%w %q", ErrUnknownTemplate, templateID)
	}
	merged, err := ApplyPatch(tmpl, patch)
	if err != nil {
		return Template{}, err
	}
	if _, err := merged.Render(Data{}); err != nil {
		return Template{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if err := r.store.UpsertCustomization(ctx, &models.TemplateCustomization{
		UserID:     userID,
		TemplateID: templateID,
		Patch:      string(patch),
	}); err != nil {
		return Template{}, err
	}
	return merged, nil
}

// ApplyPatch layers an RFC 7386 merge patch over tmpl. The id is not patchable.
func ApplyPatch(tmpl Template, patch []byte) (Template, error) {
	doc, err := json.Marshal(tmpl)
	if err != nil {
		return Template{}, err
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return Template{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	var out Template
	if err := json.Unmarshal(merged, &out); err != nil {
		return Template{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	out.ID = tmpl.ID
	return out, nil
}

func (t Template) Render(data Data) (*Rendered, error) {
	subject, err := execute(t.ID+".subject", t.Subject, data)
	if err != nil {
		return nil, err
	}
	body, err := execute(t.ID+".body", t.Body, data)
	if err != nil {
		return nil, err
	}
	slack, err := execute(t.ID+".slack_text", t.SlackText, data)
	if err != nil {
		return nil, err
	}
	return &Rendered{Subject: subject, Body: body, SlackText: slack}, nil
}

var funcs = template.FuncMap{
	"field": field,
	"json": func(v interface{}) string {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}
		return string(b)
	},
}

func execute(name, text string, data Data) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// field walks a dotted path through decoded JSON. Numeric segments index arrays.
// Missing paths yield an empty string.
func field(event map[string]interface{}, path string) interface{} {
	var cur interface{} = event
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			next, ok := node[part]
			if !ok {
				return ""
			}
			cur = next
		case []interface{}:
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err != nil || idx < 0 || idx >= len(node) {
				return ""
			}
			cur = node[idx]
		default:
			return ""
		}
	}
	if cur == nil {
		return ""
	}
	return cur
}

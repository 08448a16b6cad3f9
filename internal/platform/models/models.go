package models

// TemplateCustomization is a user's JSON merge patch over a base notification template.
type TemplateCustomization struct {
	UserID     string `json:"user_id"`
	TemplateID string `json:"template_id"`
	Patch      string `json:"patch"`
	UpdatedAt  int64  `json:"updated_at"`
}

// UsageCounter counts verified deliveries for one user in one period.
type UsageCounter struct {
	UserID    string `json:"user_id"`
	Period    string `json:"period"` // day, month
	PeriodKey string `json:"period_key"`
	Count     int    `json:"count"`
}

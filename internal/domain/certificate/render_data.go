package certificate

import "time"

// DateLayout is the day/month/year format printed on certificates
const DateLayout = "02/01/2006"

// RenderData is the transient data a certificate template is rendered from.
// It is built per issuance and never persisted.
type RenderData struct {
	ID    string
	Name  string
	Grade string
	// Date is the issuance date formatted with DateLayout
	Date string
	// Medal is the emblem image as a data URI. It is inserted into the
	// template without escaping.
	Medal string
}

// NewRenderData builds the render data for a recipient issued at issuedAt
func NewRenderData(r *Recipient, issuedAt time.Time, medal string) RenderData {
	return RenderData{
		ID:    r.ID,
		Name:  r.Name,
		Grade: r.Grade,
		Date:  issuedAt.Format(DateLayout),
		Medal: medal,
	}
}

// Values returns the escaped template fields keyed by placeholder name
func (d RenderData) Values() map[string]string {
	return map[string]string{
		"id":    d.ID,
		"name":  d.Name,
		"grade": d.Grade,
		"date":  d.Date,
	}
}

// RawValues returns the template fields that must not be escaped
func (d RenderData) RawValues() map[string]string {
	return map[string]string{
		"medal": d.Medal,
	}
}

package templates

import (
	"time"
)

// Brand is the sender identity rendered into every email.
type Brand struct {
	CompanyName string
	AppName     string
	SupportURL  string
}

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithSupportURL(url string) Option { return func(d *EmailData) { d.SupportURL = url } }

// NewBaseEmailData fills the common fields from brand, then applies opts.
func NewBaseEmailData(brand Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:  name,
		Email: email,
		Type:  typ,

		CompanyName: brand.CompanyName,
		AppName:     brand.AppName,
		SupportURL:  brand.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(brand Brand, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(brand, Welcome, name, email, opts...))
}

package domain

// Platform is the vendor's public platform description.
type Platform struct {
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	CustomDomain     string `json:"custom_domain,omitempty"`
	Website          string `json:"website"`
	LoginRedirectURL string `json:"login_redirect_url"`
	RemoveBranding   bool   `json:"remove_branding"`
}

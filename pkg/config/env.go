package config

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// IsDevelopment reports whether the server runs with development defaults.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// IsProductionLike returns true for staging and production.
// Use this when you need to enforce production-like configuration requirements.
func (c *ServerConfig) IsProductionLike() bool {
	return c.Environment == EnvStaging || c.Environment == EnvProduction
}

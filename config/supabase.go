package config

import "strings"

// SupabaseConfig contains configuration for the managed auth/database/storage
// platform. The service never exposes these keys to callers; the anon key is
// used for password-grant sign-in, the service role key for administrative
// account creation and storage signing.
type SupabaseConfig struct {
	URL            string `env:"URL,required"`
	AnonKey        string `env:"ANON_KEY,required"`
	ServiceRoleKey string `env:"SERVICE_ROLE_KEY,required"`
	StorageBucket  string `env:"STORAGE_BUCKET,required"`
}

// BaseURL returns the platform URL without a trailing slash.
func (s *SupabaseConfig) BaseURL() string {
	return strings.TrimRight(s.URL, "/")
}

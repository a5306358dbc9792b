package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Routes lists the target paths the probes exercise. Any of them can be
// replaced from a YAML file when the target application uses other paths.
type Routes struct {
	Login        string   `yaml:"login"`
	Register     string   `yaml:"register"`
	Profile      string   `yaml:"profile"`
	SetPassword  string   `yaml:"set_password"`
	Upload       string   `yaml:"upload"`
	PluginUpload string   `yaml:"plugin_upload"`
	Campaigns    string   `yaml:"campaigns"`
	ErrorPage    string   `yaml:"error_page"`
	AdminSchemas string   `yaml:"admin_schemas"`
	AdminPages   []string `yaml:"admin_pages"`
	EnvFiles     []string `yaml:"env_files"`
	Disclosure   []string `yaml:"disclosure"`
}

// DefaultRoutes returns the paths of a stock Laravel SaaS application.
func DefaultRoutes() Routes {
	return Routes{
		Login:        "/api/auth/login",
		Register:     "/register",
		Profile:      "/api/user/profile",
		SetPassword:  "/welcome/set-password",
		Upload:       "/livewire/upload-file",
		PluginUpload: "/admin/plugins/upload",
		Campaigns:    "/api/v1/campaigns",
		ErrorPage:    "/error/test",
		AdminSchemas: "/api/v1/admin/schemas",
		AdminPages:   []string{"/admin", "/admin/dashboard", "/admin/users", "/admin/settings"},
		EnvFiles:     []string{"/.env.example", "/.env", "/env.example", "/.env.backup", "/.env.old"},
		Disclosure:   []string{"/api/settings", "/api/v1/health", "/.git/config", "/composer.json", "/package.json"},
	}
}

// LoadRoutes reads overrides from path on top of DefaultRoutes.
// Unknown keys are rejected so a typo does not silently keep a default.
func LoadRoutes(path string) (Routes, error) {
	r := DefaultRoutes()
	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("config: read routes %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return r, fmt.Errorf("%w: routes %s: %v", ErrInvalidConfig, path, err)
	}
	if err := r.Validate(); err != nil {
		return r, err
	}
	return r, nil
}

// Validate checks that every route is an absolute path.
func (r Routes) Validate() error {
	single := map[string]string{
		"login":         r.Login,
		"register":      r.Register,
		"profile":       r.Profile,
		"set_password":  r.SetPassword,
		"upload":        r.Upload,
		"plugin_upload": r.PluginUpload,
		"campaigns":     r.Campaigns,
		"error_page":    r.ErrorPage,
		"admin_schemas": r.AdminSchemas,
	}
	for name, p := range single {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%w: route %s must start with /: %q", ErrInvalidConfig, name, p)
		}
	}
	for name, list := range map[string][]string{
		"admin_pages": r.AdminPages,
		"env_files":   r.EnvFiles,
		"disclosure":  r.Disclosure,
	} {
		for _, p := range list {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("%w: route %s must start with /: %q", ErrInvalidConfig, name, p)
			}
		}
	}
	return nil
}

// Join appends path to a base URL without doubling the slash.
func Join(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

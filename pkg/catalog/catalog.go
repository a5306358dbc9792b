// Package catalog lists the available suites in their fixed run order and
// builds them from shared settings.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/EcMarius/secprobe/pkg/accesscontrol"
	"github.com/EcMarius/secprobe/pkg/attackconfig"
	"github.com/EcMarius/secprobe/pkg/bizlogic"
	"github.com/EcMarius/secprobe/pkg/finding"
	"github.com/EcMarius/secprobe/pkg/massassignment"
	"github.com/EcMarius/secprobe/pkg/ratelimit"
	"github.com/EcMarius/secprobe/pkg/securitymisconfig"
	"github.com/EcMarius/secprobe/pkg/suite"
	"github.com/EcMarius/secprobe/pkg/upload"
)

// Sentinel errors for selection.
var (
	ErrUnknownSuite    = errors.New("catalog: unknown suite")
	ErrUnknownPriority = errors.New("catalog: unknown priority")
)

// Suite keys.
const (
	KeyMassAssignment = "mass-assignment"
	KeyRateLimiting   = "rate-limiting"
	KeyAdminAuth      = "admin-authorization"
	KeyFileUpload     = "file-upload"
	KeyBusinessLogic  = "business-logic"
	KeyConfigSecurity = "config-security"
)

// Deps are the settings every suite is built from.
type Deps struct {
	attackconfig.Base

	// AdminToken is a regular user's token for the admin authorization
	// suite. Empty means the suite registers its own account.
	AdminToken string
}

// Entry describes one suite.
type Entry struct {
	Key         string
	Name        string
	Severity    finding.Severity
	Description string
	Build       func(Deps) suite.Suite
}

var entries = []Entry{
	{
		Key:         KeyMassAssignment,
		Name:        massassignment.SuiteName,
		Severity:    finding.Critical,
		Description: "Privilege fields accepted at registration or profile update",
		Build: func(d Deps) suite.Suite {
			cfg := massassignment.DefaultConfig(d.Target)
			cfg.Base = d.Base
			return massassignment.New(cfg).Suite()
		},
	},
	{
		Key:         KeyRateLimiting,
		Name:        ratelimit.SuiteName,
		Severity:    finding.High,
		Description: "Brute force on login, registration and password tokens",
		Build: func(d Deps) suite.Suite {
			cfg := ratelimit.DefaultConfig(d.Target)
			cfg.Base = d.Base
			// Rate limit probes are spaced twice as far apart so a
			// lockout from one does not bleed into the next.
			cfg.Pacing = 2 * d.Pacing
			return ratelimit.New(cfg).Suite()
		},
	},
	{
		Key:         KeyAdminAuth,
		Name:        accesscontrol.SuiteName,
		Severity:    finding.Critical,
		Description: "Admin endpoints reachable with a regular user account",
		Build: func(d Deps) suite.Suite {
			cfg := accesscontrol.DefaultConfig(d.Target)
			cfg.Base = d.Base
			cfg.Token = d.AdminToken
			return accesscontrol.New(cfg).Suite()
		},
	},
	{
		Key:         KeyFileUpload,
		Name:        upload.SuiteName,
		Severity:    finding.Critical,
		Description: "Dangerous file types and oversized uploads",
		Build: func(d Deps) suite.Suite {
			cfg := upload.DefaultConfig(d.Target)
			cfg.Base = d.Base
			return upload.NewTester(cfg).Suite()
		},
	},
	{
		Key:         KeyBusinessLogic,
		Name:        bizlogic.SuiteName,
		Severity:    finding.High,
		Description: "Organization roles, plan caching and trial resets",
		Build: func(d Deps) suite.Suite {
			cfg := bizlogic.DefaultConfig(d.Target)
			cfg.Base = d.Base
			return bizlogic.NewTester(cfg).Suite()
		},
	},
	{
		Key:         KeyConfigSecurity,
		Name:        securitymisconfig.SuiteName,
		Severity:    finding.Medium,
		Description: "Exposed env files, debug mode, headers and CORS",
		Build: func(d Deps) suite.Suite {
			cfg := securitymisconfig.DefaultConfig(d.Target)
			cfg.Base = d.Base
			return securitymisconfig.NewScanner(cfg).Suite()
		},
	},
}

// priorities are the fixed groups offered besides a full run.
var priorities = map[string][]string{
	"critical": {KeyMassAssignment, KeyFileUpload, KeyAdminAuth},
	"high":     {KeyRateLimiting, KeyBusinessLogic, KeyConfigSecurity},
}

// All returns every suite in run order.
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Keys returns the suite keys in run order.
func Keys() []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Lookup finds a suite by key.
func Lookup(key string) (Entry, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, e := range entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Select returns the suites named by keys in run order, each at most once.
// No keys selects every suite.
func Select(keys []string) ([]Entry, error) {
	if len(keys) == 0 {
		return All(), nil
	}
	want := map[string]bool{}
	for _, k := range keys {
		e, ok := Lookup(k)
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownSuite, k, strings.Join(Keys(), ", "))
		}
		want[e.Key] = true
	}
	var out []Entry
	for _, e := range entries {
		if want[e.Key] {
			out = append(out, e)
		}
	}
	return out, nil
}

// Priority returns a fixed priority group ("critical" or "high") in the
// group's own order.
func Priority(name string) ([]Entry, error) {
	keys, ok := priorities[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: critical, high)", ErrUnknownPriority, name)
	}
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		e, _ := Lookup(k)
		out = append(out, e)
	}
	return out, nil
}

// Build constructs the suites of entries in order.
func Build(list []Entry, d Deps) []suite.Suite {
	out := make([]suite.Suite, 0, len(list))
	for _, e := range list {
		out = append(out, e.Build(d))
	}
	return out
}

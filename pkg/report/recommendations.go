package report

// advice maps suite names to the fixed remediation steps printed when that
// suite reported a vulnerability.
var advice = map[string][]string{
	"Mass Assignment Vulnerabilities": {
		"Remove sensitive fields from User model $fillable array",
		"Use $guarded to protect role_id, verified, bypass_* fields",
	},
	"Rate Limiting": {
		"Implement rate limiting on /api/auth/login endpoint",
		"Add throttling to registration and token endpoints",
	},
	"Admin Authorization": {
		"Add admin role checks to all admin endpoints",
		"Implement proper authorization middleware",
	},
	"File Upload Security": {
		"Validate upload MIME type and extension server-side",
		"Enforce a maximum upload size",
	},
	"Business Logic": {
		"Ignore client-supplied team_role and organization_id at registration",
		"Reject trial field changes in profile updates",
	},
	"Configuration Security": {
		"Block public access to .env and repository files",
		"Set APP_DEBUG=false and add missing security headers",
	},
}

// Advice returns the remediation steps for a suite name, nil when none are
// known.
func Advice(suite string) []string {
	return advice[suite]
}

// Recommendations returns the deduplicated advice for every suite with at
// least one vulnerable record, in first-seen order.
func Recommendations(r RunReport) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range r.Suites {
		if s.Passed() {
			continue
		}
		for _, a := range advice[s.Name] {
			if seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// Package finding provides the severity levels shared by the suite catalog
// and the console.
//
// Usage:
//
//	sev, err := finding.ParseSeverity("critical")
//	fmt.Println(sev.Label()) // CRITICAL
package finding

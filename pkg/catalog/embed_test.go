package catalog

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// suitePackages are the directories behind the catalog entries.
var suitePackages = []string{
	"massassignment", "ratelimit", "accesscontrol",
	"upload", "bizlogic", "securitymisconfig",
}

// baseFieldNames are declared once in attackconfig.Base.
var baseFieldNames = map[string]bool{
	"Target":  true,
	"Client":  true,
	"Session": true,
	"Routes":  true,
	"Pacing":  true,
	"Logger":  true,
	"RunTag":  true,
}

// TestSuiteConfigsEmbedBase parses every suite package and checks that its
// Config embeds attackconfig.Base instead of re-declaring the shared fields.
func TestSuiteConfigsEmbedBase(t *testing.T) {
	t.Parallel()
	for _, pkg := range suitePackages {
		dir := filepath.Join("..", pkg)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err, pkg)

		found := false
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
				continue
			}
			f, err := parser.ParseFile(token.NewFileSet(), filepath.Join(dir, name), nil, 0)
			require.NoError(t, err, name)

			ast.Inspect(f, func(n ast.Node) bool {
				ts, ok := n.(*ast.TypeSpec)
				if !ok || (ts.Name.Name != "Config" && ts.Name.Name != "TesterConfig") {
					return true
				}
				st, ok := ts.Type.(*ast.StructType)
				if !ok {
					return false
				}
				found = true

				hasBase := false
				var redeclared []string
				for _, field := range st.Fields.List {
					if len(field.Names) == 0 {
						if sel, ok := field.Type.(*ast.SelectorExpr); ok && sel.Sel.Name == "Base" {
							hasBase = true
						}
					}
					for _, ident := range field.Names {
						if baseFieldNames[ident.Name] {
							redeclared = append(redeclared, ident.Name)
						}
					}
				}
				assert.True(t, hasBase, "%s.%s does not embed attackconfig.Base", pkg, ts.Name.Name)
				assert.Empty(t, redeclared, "%s.%s re-declares base fields", pkg, ts.Name.Name)
				return false
			})
		}
		assert.True(t, found, "%s has no Config type", pkg)
	}
}

func TestSuitePackagesMatchCatalog(t *testing.T) {
	t.Parallel()
	assert.Len(t, suitePackages, len(All()))
}

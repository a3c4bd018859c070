package storehouse

import (
	"path/filepath"
	"strings"
)

// ResolveTarget joins rel onto root and returns the cleaned absolute path.
//
// Only normalization is applied. A rel containing ".." segments can resolve
// outside root; callers that need confinement must check the result.
func ResolveTarget(root, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", Errorf(KindValidation, CodePathMissing, nil, "path cannot be empty")
	}

	abs, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return "", Errorf(KindIO, CodeCheckExists, err, "resolve target %s: %v", rel, err)
	}

	return abs, nil
}

// IsWithin reports whether target lies inside root once both are cleaned.
func IsWithin(root, target string) bool {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

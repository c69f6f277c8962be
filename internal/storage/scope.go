package storage

import (
	"strings"

	"tenant-storage-core/backend/internal/platform/apperr"
)

// TenantRoot is the first segment of every canonical path.
const TenantRoot = "orgs"

// DefaultMaxDepth bounds the number of caller-controlled path segments.
const DefaultMaxDepth = 10

// Scoper turns caller-relative paths into canonical tenant paths of the form
// orgs/<org-id>/<rest>. It is the only producer of paths handed to a backend.
type Scoper struct {
	MaxDepth int
}

// Prefix returns the canonical prefix for orgID, with a trailing slash.
func Prefix(orgID string) string {
	return TenantRoot + "/" + orgID + "/"
}

// Scope validates raw and returns it scoped under orgID.
//
// Traversal segments, absolute paths and paths deeper than MaxDepth are validation errors
// regardless of organization. A path already under another tenant's prefix is a permission
// error; it is never rewritten. A path already under orgID's prefix is returned unchanged.
func (s Scoper) Scope(raw, orgID string) (string, error) {
	const op = "storage.Scope"
	segs, err := s.validate(raw)
	if err != nil {
		return "", err
	}
	if err := checkOrg(orgID); err != nil {
		return "", err
	}
	// A bare "orgs" is an ordinary name; "orgs/" starts a tenant prefix.
	if segs[0] == TenantRoot && (len(segs) > 1 || strings.HasSuffix(raw, "/")) {
		if len(segs) < 2 || segs[1] != orgID {
			return "", apperr.PermissionDenied(op, "path belongs to another organization")
		}
		if len(segs) <= 2 {
			return "", apperr.Validation(op, "path names the tenant root")
		}
		return strings.Join(segs, "/"), nil
	}
	return Prefix(orgID) + strings.Join(segs, "/"), nil
}

// ScopeDir is Scope for directory prefixes: an empty path or the tenant prefix itself names
// the tenant root. The result has no trailing slash.
func (s Scoper) ScopeDir(raw, orgID string) (string, error) {
	if err := checkOrg(orgID); err != nil {
		return "", err
	}
	root := TenantRoot + "/" + orgID
	if raw == "" || strings.TrimSuffix(raw, "/") == root {
		return root, nil
	}
	return s.Scope(raw, orgID)
}

func checkOrg(orgID string) error {
	if orgID == "" || orgID == "." || orgID == ".." || strings.ContainsAny(orgID, `/\`) {
		return apperr.PermissionDenied("storage.Scope", "no organization context")
	}
	return nil
}

func (s Scoper) validate(raw string) ([]string, error) {
	const op = "storage.Scope"
	if raw == "" {
		return nil, apperr.Validation(op, "path is empty")
	}
	if strings.HasPrefix(raw, "/") {
		return nil, apperr.Validation(op, "absolute paths are not allowed")
	}
	if strings.Contains(raw, `\`) {
		return nil, apperr.Validation(op, "backslashes are not allowed in paths")
	}
	if strings.ContainsRune(raw, 0) {
		return nil, apperr.Validation(op, "path contains a NUL byte")
	}
	segs := strings.Split(strings.TrimSuffix(raw, "/"), "/")
	for _, seg := range segs {
		switch seg {
		case "..":
			return nil, apperr.Validation(op, "path traversal is not allowed")
		case "", ".":
			return nil, apperr.Validation(op, "path contains an empty segment")
		}
	}
	depth := len(segs)
	if segs[0] == TenantRoot && len(segs) >= 2 {
		depth -= 2
	}
	if depth > s.maxDepth() {
		return nil, apperr.Validation(op, "path exceeds maximum depth")
	}
	return segs, nil
}

func (s Scoper) maxDepth() int {
	if s.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return s.MaxDepth
}

// Package catalog lists the PII manifests of every persisted type. The server and the
// check-manifests command register them at startup.
package catalog

import (
	"go.uber.org/zap"

	membership "tenant-storage-core/backend/internal/membership/domain"
	organization "tenant-storage-core/backend/internal/organization/domain"
	"tenant-storage-core/backend/internal/pii"
	project "tenant-storage-core/backend/internal/project/domain"
	user "tenant-storage-core/backend/internal/user/domain"
)

// Manifests returns the manifests of all persisted types.
func Manifests() []pii.Manifest {
	return []pii.Manifest{
		user.Manifest,
		organization.Manifest,
		membership.Manifest,
		project.Manifest,
	}
}

// Check registers every manifest against policy. The returned registry is nil on error.
func Check(policy pii.Policy, log *zap.Logger) (*pii.Registry, error) {
	reg := pii.NewRegistry(policy, log)
	if err := reg.RegisterAll(Manifests()...); err != nil {
		return nil, err
	}
	return reg, nil
}

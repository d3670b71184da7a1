package metadata

import (
	"context"
	"fmt"

	"github.com/marmos91/dittoshare/pkg/metadata/errors"
)

// UpgradeStep migrates a store from one schema version to the next.
type UpgradeStep func(ctx context.Context) error

// Versioned is the part of a Store that ApplyUpgrades drives.
type Versioned interface {
	SchemaVersion(ctx context.Context) (uint32, error)
	SetSchemaVersion(ctx context.Context, v uint32) error
}

// ApplyUpgrades runs steps[v] for every version v from the stored version
// up to current, recording each new version as it goes. Version 0, a
// version above current and a gap in steps are ErrUnsupportedVersion.
func ApplyUpgrades(ctx context.Context, s Versioned, current uint32, steps map[uint32]UpgradeStep) (from, to uint32, err error) {
	from, err = s.SchemaVersion(ctx)
	if err != nil {
		return 0, 0, err
	}
	if from == 0 || from > current {
		return from, from, errors.NewUnsupportedVersionError(from, current)
	}

	for v := from; v < current; v++ {
		step, ok := steps[v]
		if !ok {
			return from, v, errors.NewUnsupportedVersionError(v, current)
		}
		if err := step(ctx); err != nil {
			return from, v, fmt.Errorf("upgrade schema %d -> %d: %w", v, v+1, err)
		}
		if err := s.SetSchemaVersion(ctx, v+1); err != nil {
			return from, v, err
		}
	}
	return from, current, nil
}

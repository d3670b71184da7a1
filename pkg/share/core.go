// Package share is the metadata core of a replicated file share.
//
// A Core owns one share root on disk: the instance identity fixed at
// creation, the metadata store describing every file and directory, the
// blob store holding one object per regular file, and the transaction log
// that keeps the two consistent across crashes.
//
// Mutations are serialized by a single mutex and follow the same pipeline:
// allocate ids, durably log the intent, apply the blob effect, commit the
// metadata, then drop the log record. Open replays any record left behind
// before the share accepts calls, and each mutation does the same for
// records an earlier call failed to drop.
package share

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittoshare/internal/logger"
	"github.com/marmos91/dittoshare/internal/telemetry"
	"github.com/marmos91/dittoshare/pkg/blob"
	blobfs "github.com/marmos91/dittoshare/pkg/blob/fs"
	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/metadata/store/rdb"
	"github.com/marmos91/dittoshare/pkg/metrics"
	"github.com/marmos91/dittoshare/pkg/staticdata"
	"github.com/marmos91/dittoshare/pkg/txlog"
)

// ErrClosed is returned by operations on a closed Core.
var ErrClosed = errors.New("share is closed")

// Outcome tells whether Open created a new share or restored one.
type Outcome int

const (
	Created Outcome = iota + 1
	Restored
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Restored:
		return "restored"
	default:
		return "unknown"
	}
}

// StoreOpener opens the metadata store of the share whose internal data
// directory is appDir.
type StoreOpener func(ctx context.Context, appDir string) (metadata.Store, error)

// BlobOpener opens the blob store of a share.
type BlobOpener func(ctx context.Context, appDir string, inst staticdata.Instance) (blob.Store, error)

// Options configures Open.
type Options struct {
	// Root is the share directory. It is created when absent.
	Root string

	// Name is the instance name used when creating the share. It is
	// ignored, with a warning, when the share already exists.
	Name string

	// StrangePaths allows \ : * ? " < > | in names.
	StrangePaths bool

	// OpenStore defaults to SQLiteStore.
	OpenStore StoreOpener

	// OpenBlobs defaults to FilesystemBlobs.
	OpenBlobs BlobOpener

	// Metrics is optional.
	Metrics metrics.ShareMetrics

	// Clock stamps new entries. Defaults to time.Now.
	Clock func() time.Time
}

// SQLiteStore opens the SQLite database at <appDir>/database.
func SQLiteStore(ctx context.Context, appDir string) (metadata.Store, error) {
	var cfg rdb.Config
	cfg.ApplyDefaults(appDir)
	s, err := rdb.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FilesystemBlobs stores blobs under <appDir>/files.
func FilesystemBlobs(_ context.Context, appDir string, _ staticdata.Instance) (blob.Store, error) {
	s, err := blobfs.New(blobfs.Config{BasePath: filepath.Join(appDir, FilesDir)})
	if err != nil {
		return nil, err
	}
	return blob.Instrument(s, "fs", metrics.NewBlobMetrics()), nil
}

// Core is an open share.
type Core struct {
	root    string
	appDir  string
	inst    staticdata.Instance
	strange bool
	outcome Outcome
	now     func() time.Time
	metrics metrics.ShareMetrics

	store  metadata.Store
	blobs  blob.Store
	txlog  *txlog.Log
	closed atomic.Bool

	// mu serializes mutations. Reads rely on store isolation instead.
	mu sync.Mutex

	// instIdx is this instance's row in the store, resolved on the first
	// mutation. Guarded by mu.
	instIdx uint64
}

// Open creates the share at opts.Root if it does not exist, or restores
// it otherwise. Failures are *UserError or *SystemError.
func Open(ctx context.Context, opts Options) (_ *Core, err error) {
	if opts.Root == "" {
		return nil, userErr(metadata.ErrInvalidArgument, "", "share root is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, systemErr(err, "could not resolve share root %q", opts.Root)
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanOpen, telemetry.Path(root))
	defer span.End()

	c := &Core{
		root:    root,
		appDir:  AppDir(root),
		strange: opts.StrangePaths,
		now:     opts.Clock,
		metrics: opts.Metrics,
	}
	if c.now == nil {
		c.now = time.Now
	}

	_, err = os.Stat(root)
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		err = c.create(ctx, opts)
	case err != nil:
		err = systemErr(err, "could not access share root %s", root)
	default:
		err = c.restore(ctx, opts)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	telemetry.SetAttributes(ctx, telemetry.Share(c.inst.Name), telemetry.Instance(c.InstanceFilename()))
	logger.Info("Share opened",
		logger.Share(c.inst.Name),
		logger.Instance(c.InstanceFilename()),
		logger.KeyRoot, root,
		logger.KeyOutcome, c.outcome.String())
	return c, nil
}

func (c *Core) create(ctx context.Context, opts Options) (err error) {
	if opts.Name == "" {
		return userErr(metadata.ErrInvalidArgument, c.root, "share does not exist, specify a name to create a new share")
	}
	if !ValidateFilename(opts.Name, c.strange) {
		return userErr(metadata.ErrInvalidArgument, "", "instance name %q contains invalid characters", opts.Name)
	}

	inst, err := staticdata.NewInstance(opts.Name)
	if err != nil {
		return systemErr(err, "could not generate instance id")
	}
	c.inst = inst

	if err := os.Mkdir(c.root, 0o755); err != nil {
		return systemErr(err, "could not create share root %s", c.root)
	}
	defer func() {
		if err == nil {
			return
		}
		_ = c.closeResources()
		if rmErr := os.RemoveAll(c.root); rmErr != nil {
			logger.Warn("Could not remove partially created share", logger.KeyRoot, c.root, logger.Err(rmErr))
		}
	}()

	for _, dir := range []string{
		c.appDir,
		filepath.Join(c.appDir, FilesDir),
		filepath.Join(c.appDir, TransactionsDir),
	} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			return systemErr(err, "could not create directory %s", dir)
		}
	}

	staticPath := filepath.Join(c.appDir, StaticName)
	if err := staticdata.Save(staticPath, inst); err != nil {
		return systemErr(err, "could not create file %s", staticPath)
	}
	readmePath := filepath.Join(c.root, ReadmeName)
	if err := os.WriteFile(readmePath, []byte(readmeText), 0o644); err != nil {
		return systemErr(err, "could not create file %s", readmePath)
	}

	if err := c.openResources(ctx, opts); err != nil {
		return err
	}
	if err := c.store.Bootstrap(ctx, metadata.NewRootEntry(c.now())); err != nil {
		return systemErr(err, "could not initialize metadata store")
	}

	c.outcome = Created
	return nil
}

func (c *Core) restore(ctx context.Context, opts Options) (err error) {
	if opts.Name != "" {
		logger.Warn("Share exists, ignoring instance name", logger.KeyRoot, c.root, logger.Share(opts.Name))
	}

	inst, err := staticdata.Load(filepath.Join(c.appDir, StaticName))
	if err != nil {
		return systemErr(err, "could not read static data, file may be corrupt")
	}
	c.inst = inst

	if err := c.openResources(ctx, opts); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = c.closeResources()
		}
	}()

	from, to, err := c.store.Upgrade(ctx)
	if err != nil {
		return systemErr(err, "could not open metadata store")
	}
	if from != to {
		logger.Info("Upgraded metadata schema", logger.Share(inst.Name), "from", from, "to", to)
	}

	if _, err := c.recover(ctx); err != nil {
		return systemErr(err, "transaction recovery failed")
	}

	c.outcome = Restored
	return nil
}

func (c *Core) openResources(ctx context.Context, opts Options) error {
	openStore := opts.OpenStore
	if openStore == nil {
		openStore = SQLiteStore
	}
	openBlobs := opts.OpenBlobs
	if openBlobs == nil {
		openBlobs = FilesystemBlobs
	}

	store, err := openStore(ctx, c.appDir)
	if err != nil {
		return systemErr(err, "could not open metadata store")
	}
	c.store = store

	blobs, err := openBlobs(ctx, c.appDir, c.inst)
	if err != nil {
		return systemErr(err, "could not open blob store")
	}
	c.blobs = blobs

	log, err := txlog.Open(filepath.Join(c.appDir, TransactionsDir))
	if err != nil {
		return systemErr(err, "could not open transaction log")
	}
	c.txlog = log
	return nil
}

func (c *Core) closeResources() error {
	var errs []error
	if c.txlog != nil {
		errs = append(errs, c.txlog.Close())
	}
	if c.blobs != nil {
		errs = append(errs, c.blobs.Close())
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	return errors.Join(errs...)
}

// Close releases the store, blob and log handles. Further calls return
// ErrClosed.
func (c *Core) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeResources()
}

// GetRoot returns the absolute share root.
func (c *Core) GetRoot() string { return c.root }

// Instance returns the instance identity.
func (c *Core) Instance() staticdata.Instance { return c.inst }

// InstanceFilename returns the instance name and id as used in file names.
func (c *Core) InstanceFilename() string { return c.inst.Filename() }

// Outcome reports whether Open created or restored the share.
func (c *Core) Outcome() Outcome { return c.outcome }

// GetUser returns the effective user id of the process.
func (c *Core) GetUser() int { return os.Geteuid() }

// GetGroup returns the effective group id of the process.
func (c *Core) GetGroup() int { return os.Getegid() }

// HealthCheck verifies the metadata and blob stores are reachable.
func (c *Core) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.store.HealthCheck(ctx); err != nil {
		return systemErr(err, "metadata store unhealthy")
	}
	if err := c.blobs.HealthCheck(ctx); err != nil {
		return systemErr(err, "blob store unhealthy")
	}
	return nil
}

func (c *Core) String() string {
	return fmt.Sprintf("%s (%s)", c.InstanceFilename(), c.root)
}

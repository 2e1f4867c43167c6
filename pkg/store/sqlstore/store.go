// Package sqlstore implements [store.Store] with GORM.
//
// The same implementation backs the on-device entity store (SQLite, see
// [OpenSQLite]) and the reference server (PostgreSQL, see [OpenPostgres]).
// Every mutation runs in a single transaction; the resulting changes are
// published to the store notifier only after the transaction commits, so a
// live query never observes a rolled back write.
//
// Foreign keys are checked by the store rather than by database
// constraints: a child must reference parents that live in its own
// workspace, and deletes cascade explicitly so that every removed row can
// be reported to subscribers.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/logger"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// CurrentSchemaVersion is recorded by Migrate.
const CurrentSchemaVersion = 1

const memoryDSN = ":memory:"

// Store implements store.Store on a GORM database.
type Store struct {
	db      *gorm.DB
	changes *store.Notifier
	log     zerolog.Logger
}

var _ store.Store = (*Store)(nil)

type options struct {
	logger        zerolog.Logger
	slowThreshold time.Duration
}

type Option func(*options)

// WithLogger sets the logger used for the store and its SQL statements.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSlowThreshold logs statements slower than d at warn level.
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) { o.slowThreshold = d }
}

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop(), slowThreshold: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func gormConfig(o options) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.NewGormLogger(o.logger, o.slowThreshold),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// OpenSQLite opens the on-device store at path. The path ":memory:" opens a
// private in-memory database, which is what the tests use.
func OpenSQLite(path string, opts ...Option) (*Store, error) {
	o := buildOptions(opts)
	dsn := path
	if path != memoryDSN && !strings.Contains(path, "?") {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(o))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; an in-memory database additionally
	// exists only on the connection that created it.
	sqlDB.SetMaxOpenConns(1)
	return New(db, opts...), nil
}

// OpenPostgres opens the server store.
func OpenPostgres(dsn string, opts ...Option) (*Store, error) {
	o := buildOptions(opts)
	db, err := gorm.Open(postgres.Open(dsn), gormConfig(o))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return New(db, opts...), nil
}

// New wraps an open GORM connection.
func New(db *gorm.DB, opts ...Option) *Store {
	o := buildOptions(opts)
	return &Store{
		db:      db,
		changes: store.NewNotifier(),
		log:     o.logger,
	}
}

func (s *Store) Changes() *store.Notifier {
	return s.changes
}

// Migrate creates or extends the schema and records CurrentSchemaVersion.
// A database written by a newer version is refused.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.Profile{},
		&models.ProfilePoint{},
		&models.Dataset{},
		&models.Text{},
		&models.AnnotatedDataset{},
		&models.AnnotatedText{},
		&models.DataPoint{},
		&models.MigrationMapping{},
		&models.WorkspaceUsage{},
		&models.SchemaVersion{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", translate(err))
	}

	var version models.SchemaVersion
	err := db.Take(&version, "id = ?", 1).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return translate(err)
	case version.Version > CurrentSchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", version.Version, CurrentSchemaVersion)
	case version.Version == CurrentSchemaVersion:
		return nil
	}

	version = models.SchemaVersion{ID: 1, Version: CurrentSchemaVersion, AppliedAt: time.Now().UTC()}
	if err := db.Save(&version).Error; err != nil {
		return translate(err)
	}
	s.log.Info().Int("version", CurrentSchemaVersion).Msg("schema migrated")
	return nil
}

// SchemaVersion returns the recorded schema version, or 0 before Migrate.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version models.SchemaVersion
	err := s.db.WithContext(ctx).Take(&version, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, translate(err)
	}
	return version.Version, nil
}

// EnsureLocalWorkspace creates the on-device workspace row if it is missing
// and returns it.
func (s *Store) EnsureLocalWorkspace(ctx context.Context) (*models.Workspace, error) {
	ws := models.LocalWorkspace()
	err := s.db.WithContext(ctx).
		Where("id = ?", models.LocalWorkspaceID).
		FirstOrCreate(&ws).Error
	if err != nil {
		return nil, translate(err)
	}
	return &ws, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// changeSet collects the changes of one transaction.
type changeSet []store.Change

func (c *changeSet) add(collection models.EntityType, op models.ChangeOperation, id fmt.Stringer, ws models.WorkspaceID) {
	ch := store.Change{Collection: collection, Op: op, WorkspaceID: ws}
	if id != nil {
		ch.ID = id.String()
	}
	*c = append(*c, ch)
}

// write runs fn in a transaction and publishes the collected changes after
// a successful commit.
func (s *Store) write(ctx context.Context, fn func(tx *gorm.DB, changes *changeSet) error) error {
	var changes changeSet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, &changes)
	})
	if err != nil {
		return translate(err)
	}
	for _, c := range changes {
		s.changes.Publish(c)
	}
	return nil
}

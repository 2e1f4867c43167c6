package hybrid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/client"
	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
	"github.com/ItIsGreg/Raki-sub002/pkg/workspace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// MigratedWorkspaceName is the name of the cloud workspace created when the
// user has none to migrate into.
const MigratedWorkspaceName = "Migrated Workspace"

type MigrationOptions struct {
	// Target is the cloud workspace to migrate into. When zero the active
	// cloud workspace is used, then the target of an earlier migration,
	// then the workspace the user would land in after sign-in. A new
	// workspace is created when none of those exist.
	Target models.WorkspaceID
}

// PhaseReport counts the entities of one collection.
type PhaseReport struct {
	Phase      int               `json:"phase"`
	EntityType models.EntityType `json:"entity_type"`
	Created    int               `json:"created"`
	Skipped    int               `json:"skipped"`
}

type MigrationReport struct {
	Target     models.Workspace `json:"target"`
	Phases     []PhaseReport    `json:"phases"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

func (r *MigrationReport) Created() int {
	n := 0
	for _, p := range r.Phases {
		n += p.Created
	}
	return n
}

func (r *MigrationReport) Skipped() int {
	n := 0
	for _, p := range r.Phases {
		n += p.Skipped
	}
	return n
}

// PartialMigrationError reports the entity a migration stopped at. The
// entities created before it keep their mappings, so the next attempt
// resumes where this one stopped.
type PartialMigrationError struct {
	Phase      int
	EntityType models.EntityType
	LocalID    string
	Cause      error
}

func (e *PartialMigrationError) Error() string {
	return fmt.Sprintf("migration stopped in phase %d (%s) at %s: %v", e.Phase, e.EntityType, e.LocalID, e.Cause)
}

func (e *PartialMigrationError) Unwrap() error { return e.Cause }

// IdempotencyKey identifies the cloud create of one local entity.
func IdempotencyKey(target models.WorkspaceID, entity models.EntityType, localID string) string {
	return fmt.Sprintf("%s:%s:%s", target, entity, localID)
}

// MigrateLocalDataToCloud copies the local workspace into a cloud workspace.
//
// Collections are copied parents first, one phase at a time. Every created
// entity is recorded in the local mapping table right away and skipped by
// later attempts, and every create carries an idempotency key, so the
// migration can be retried after any failure without duplicating data.
// Local data is never modified. On success the target becomes the active
// workspace. The report is returned alongside a *PartialMigrationError too.
func (s *Service) MigrateLocalDataToCloud(ctx context.Context, opts MigrationOptions) (*MigrationReport, error) {
	sess := s.sessions.Current()
	if _, ok := s.sessions.Token(); !ok || sess == nil {
		return nil, fmt.Errorf("migrate: %w", constants.ErrUnauthenticated)
	}

	s.migrating.Lock()
	defer s.migrating.Unlock()

	target, err := s.migrationTarget(ctx, opts, sess.User.ID)
	if err != nil {
		return nil, fmt.Errorf("migrate: resolve target: %w", err)
	}
	log := s.log.With().Str("workspace", target.ID.String()).Logger()
	log.Info().Msg("migration started")

	m := &migration{
		s:        s,
		target:   target.ID,
		limiter:  rate.NewLimiter(s.limit, s.burst),
		mappings: make(map[mappingKey]string),
	}
	if err := m.loadMappings(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	report := &MigrationReport{Target: *target, StartedAt: time.Now().UTC()}
	for i, entity := range models.MigrationOrder {
		phase := PhaseReport{Phase: i + 1, EntityType: entity}
		err := m.runPhase(ctx, &phase)
		report.Phases = append(report.Phases, phase)
		log.Info().
			Int("phase", phase.Phase).
			Str("entity", string(entity)).
			Int("created", phase.Created).
			Int("skipped", phase.Skipped).
			Err(err).
			Msg("migration phase finished")
		if err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}
	}
	report.FinishedAt = time.Now().UTC()

	if err := s.resolver.Set(ctx, *target); err != nil {
		return report, fmt.Errorf("migrate: switch to target: %w", err)
	}
	log.Info().Int("created", report.Created()).Int("skipped", report.Skipped()).Msg("migration finished")
	return report, nil
}

func (s *Service) migrationTarget(ctx context.Context, opts MigrationOptions, user models.UserID) (*models.Workspace, error) {
	if !opts.Target.IsZero() {
		return s.remote.GetWorkspace(ctx, opts.Target)
	}
	if active := s.resolver.Active(); !active.IsLocal() {
		return &active, nil
	}

	previous, err := s.local.MappingTargets(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range previous {
		ws, err := s.remote.GetWorkspace(ctx, id)
		switch {
		case err == nil:
			return ws, nil
		case errors.Is(err, constants.ErrNotFound), errors.Is(err, constants.ErrForbidden):
			continue
		default:
			return nil, err
		}
	}

	workspaces, err := s.remote.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.local.RecentWorkspaces(ctx, user)
	if err != nil {
		return nil, err
	}
	if ws, ok := workspace.Pick(workspaces, recent); ok {
		return &ws, nil
	}

	ws := &models.Workspace{Name: MigratedWorkspaceName, StorageType: models.StorageCloud}
	if err := s.remote.CreateWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

type mappingKey struct {
	entity  models.EntityType
	localID string
}

type migration struct {
	s       *Service
	target  models.WorkspaceID
	limiter *rate.Limiter

	mu       sync.RWMutex
	mappings map[mappingKey]string
}

func (m *migration) loadMappings(ctx context.Context) error {
	rows, err := m.s.local.ListMappings(ctx, m.target)
	if err != nil {
		return fmt.Errorf("load mappings: %w", err)
	}
	for _, row := range rows {
		m.mappings[mappingKey{row.EntityType, row.LocalID}] = row.CloudID
	}
	return nil
}

func (m *migration) cloudID(entity models.EntityType, localID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.mappings[mappingKey{entity, localID}]
	return id, ok
}

func (m *migration) record(ctx context.Context, entity models.EntityType, localID, cloudID string) error {
	if err := m.s.local.SaveMapping(ctx, &models.MigrationMapping{
		TargetWorkspaceID: m.target,
		EntityType:        entity,
		LocalID:           localID,
		CloudID:           cloudID,
		Phase:             entity.Phase(),
	}); err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	m.mu.Lock()
	m.mappings[mappingKey{entity, localID}] = cloudID
	m.mu.Unlock()
	return nil
}

// task creates one local entity in the cloud and returns its cloud id.
type task struct {
	localID string
	create  func(ctx context.Context) (string, error)
}

func (m *migration) runPhase(ctx context.Context, phase *PhaseReport) error {
	tasks, err := m.tasks(ctx, phase.EntityType)
	if err != nil {
		return &PartialMigrationError{Phase: phase.Phase, EntityType: phase.EntityType, Cause: err}
	}

	var created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.s.concurrency)
	for _, t := range tasks {
		t := t
		if _, done := m.cloudID(phase.EntityType, t.localID); done {
			phase.Skipped++
			continue
		}
		g.Go(func() error {
			fail := func(err error) error {
				return &PartialMigrationError{Phase: phase.Phase, EntityType: phase.EntityType, LocalID: t.localID, Cause: err}
			}
			if err := m.limiter.Wait(gctx); err != nil {
				return fail(err)
			}
			key := IdempotencyKey(m.target, phase.EntityType, t.localID)
			cloudID, err := t.create(client.WithIdempotencyKey(gctx, key))
			if err != nil {
				return fail(err)
			}
			if err := m.record(ctx, phase.EntityType, t.localID, cloudID); err != nil {
				return fail(err)
			}
			created.Add(1)
			return nil
		})
	}
	err = g.Wait()
	phase.Created = int(created.Load())
	return err
}

// parent rewrites a local foreign key to the cloud id of the parent.
func parent[K any](m *migration, entity models.EntityType, local fmt.Stringer, parse func(string) (K, error)) (K, error) {
	var zero K
	cloudID, ok := m.cloudID(entity, local.String())
	if !ok {
		return zero, store.Integrity(entity, "%s %s has not been migrated", entity, local)
	}
	return parse(cloudID)
}

func (m *migration) tasks(ctx context.Context, entity models.EntityType) ([]task, error) {
	local, remote, ws := m.s.local, m.s.remote, models.LocalWorkspaceID

	switch entity {
	case models.EntityProfile:
		rows, err := local.ListProfiles(ctx, ws)
		return build(rows, err, func(row models.Profile) task {
			return task{localID: row.ID.String(), create: func(ctx context.Context) (string, error) {
				row.ID, row.WorkspaceID = models.ProfileID{}, m.target
				err := remote.CreateProfile(ctx, &row)
				return row.ID.String(), err
			}}
		})

	case models.EntityProfilePoint:
		rows, err := local.ListProfilePoints(ctx, ws, models.ProfileID{})
		return build(rows, err, func(row models.ProfilePoint) task {
			return task{localID: row.ID.String(), create: func(ctx context.Context) (string, error) {
				profileID, err := parent(m, models.EntityProfile, row.ProfileID, models.ParseProfileID)
				if err != nil {
					return "", err
				}
				row.ID, row.WorkspaceID, row.ProfileID = models.ProfilePointID{}, m.target, profileID
				row.PreviousPointID, row.NextPointID = models.ProfilePointID{}, models.ProfilePointID{}
				err = remote.CreateProfilePoint(ctx, &row)
				return row.ID.String(), err
			}}
		})

	case models.EntityDataset:
		rows, err := local.ListDatasets(ctx, ws)
		return build(rows, err, func(row models.Dataset) task {
			return task{localID: row.ID.String(), create: func(ctx context.Context) (string, error) {
				row.ID, row.WorkspaceID = models.DatasetID{}, m.target
				err := remote.CreateDataset(ctx, &row)
				return row.ID.String(), err
			}}
		})

	case models.EntityText:
		rows, err := local.ListTexts(ctx, ws, models.DatasetID{})
		return build(rows, err, func(row models.Text) task {
			return task{localID: row.ID.String(), create: func(ctx context.Context) (string, error) {
				datasetID, err := parent(m, models.EntityDataset, row.DatasetID, models.ParseDatasetID)
				if err != nil {
					return "", err
				}
				row.ID, row.WorkspaceID, row.DatasetID = models.TextID{}, m.target, datasetID
				err = remote.CreateText(ctx, &row)
				return row.ID.String(), err
			}}
		})

	case models.EntityAnnotatedDataset:
		rows, err := local.ListAnnotatedDatasets(ctx, ws)
		return build(rows, err, func(row models.AnnotatedDataset) task {
			return task{localID: row.ID.String(), create: func(ctx context.Context) (string, error) {
				datasetID, err := parent(m, models.EntityDataset, row.DatasetID, models.ParseDatasetID)
				if err != nil {
					return "", err
				}
				profileID, err := parent(m, models.EntityProfile, row.ProfileID, models.ParseProfileID)
				if err != nil {
					return "", err
				}
				row.ID, row.WorkspaceID = models.AnnotatedDatasetID{}, m.target
				row.DatasetID, row.ProfileID = datasetID, profileID
				err = remote.CreateAnnotatedDataset(ctx, &row)
				return row.ID.String(), err
			}}
		})

	case models.EntityAnnotatedText:
		rows, err := local.ListAnnotatedTexts(ctx, ws, models.AnnotatedDatasetID{})
		return build(rows, err, func(row models.AnnotatedText) task {
			return task{localID: row.ID.String(), create: func(ctx context.Context) (string, error) {
				adID, err := parent(m, models.EntityAnnotatedDataset, row.AnnotatedDatasetID, models.ParseAnnotatedDatasetID)
				if err != nil {
					return "", err
				}
				textID, err := parent(m, models.EntityText, row.TextID, models.ParseTextID)
				if err != nil {
					return "", err
				}
				row.ID, row.WorkspaceID = models.AnnotatedTextID{}, m.target
				row.AnnotatedDatasetID, row.TextID = adID, textID
				err = remote.CreateAnnotatedText(ctx, &row)
				return row.ID.String(), err
			}}
		})

	case models.EntityDataPoint:
		rows, err := local.ListDataPoints(ctx, ws, models.AnnotatedTextID{})
		return build(rows, err, func(row models.DataPoint) task {
			return task{localID: row.ID.String(), create: func(ctx context.Context) (string, error) {
				atID, err := parent(m, models.EntityAnnotatedText, row.AnnotatedTextID, models.ParseAnnotatedTextID)
				if err != nil {
					return "", err
				}
				var pointID models.ProfilePointID
				if !row.ProfilePointID.IsZero() {
					if pointID, err = parent(m, models.EntityProfilePoint, row.ProfilePointID, models.ParseProfilePointID); err != nil {
						return "", err
					}
				}
				row.ID, row.WorkspaceID = models.DataPointID{}, m.target
				row.AnnotatedTextID, row.ProfilePointID = atID, pointID
				err = remote.CreateDataPoint(ctx, &row)
				return row.ID.String(), err
			}}
		})
	}
	return nil, fmt.Errorf("%s is not migrated", entity)
}

func build[T any](rows []T, err error, fn func(T) task) ([]task, error) {
	if err != nil {
		return nil, fmt.Errorf("read local rows: %w", err)
	}
	tasks := make([]task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, fn(row))
	}
	return tasks, nil
}

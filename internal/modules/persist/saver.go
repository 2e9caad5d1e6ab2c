// Package persist writes flow results to per-user collections without
// holding up the response that produced them.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/flow"
	"github.com/yungbote/careerprep-backend/internal/platform/ctxutil"
	"github.com/yungbote/careerprep-backend/internal/platform/envutil"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
	"github.com/yungbote/careerprep-backend/internal/realtime"
)

var errSaturated = errors.New("too many pending writes")

// Item is one record to store: the flow output plus correlation fields.
type Item struct {
	Payload     any
	Correlation map[string]any
}

type Appender interface {
	Append(ctx context.Context, tx *gorm.DB, records []*domain.Record) ([]*domain.Record, error)
}

type Publisher interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
}

type Config struct {
	Timeout     time.Duration
	MaxInFlight int64
}

func ConfigFromEnv() Config {
	return Config{
		Timeout:     envutil.Duration("PERSIST_TIMEOUT", 10*time.Second),
		MaxInFlight: envutil.Int64("PERSIST_MAX_INFLIGHT", 32),
	}
}

type Saver struct {
	log     *logger.Logger
	repo    Appender
	pub     Publisher
	sem     *semaphore.Weighted
	timeout time.Duration
	wg      sync.WaitGroup
	now     func() time.Time
}

// NewSaver builds a Saver. pub may be nil, in which case outcomes are only logged.
func NewSaver(log *logger.Logger, repo Appender, pub Publisher, cfg Config) *Saver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 32
	}
	return &Saver{
		log:     log.With("service", "RecordSaver"),
		repo:    repo,
		pub:     pub,
		sem:     semaphore.NewWeighted(cfg.MaxInFlight),
		timeout: cfg.Timeout,
		now:     time.Now,
	}
}

// Save stores items in the background and returns at once. The write
// outlives ctx cancellation but not the saver timeout. Failures are logged
// and pushed to the user as a record.save_failed event; nothing is retried.
func (s *Saver) Save(ctx context.Context, userID uuid.UUID, collection string, items ...Item) {
	if len(items) == 0 {
		return
	}
	records, err := s.records(ctx, userID, collection, items)
	if err != nil {
		s.failed(ctx, userID, collection, err)
		return
	}
	if !s.sem.TryAcquire(1) {
		s.failed(ctx, userID, collection, errSaturated)
		return
	}

	s.wg.Add(1)
	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)

		wctx, cancel := context.WithTimeout(bg, s.timeout)
		defer cancel()
		if _, err := s.repo.Append(wctx, nil, records); err != nil {
			s.failed(bg, userID, collection, err)
			return
		}
		s.saved(bg, userID, collection, records)
	}()
}

// SaveSync stores items and waits for the write. It returns a
// *flow.PersistenceError on failure.
func (s *Saver) SaveSync(ctx context.Context, userID uuid.UUID, collection string, items ...Item) ([]*domain.Record, error) {
	records, err := s.records(ctx, userID, collection, items)
	if err != nil {
		return nil, &flow.PersistenceError{Collection: collection, Cause: err}
	}
	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.repo.Append(wctx, nil, records)
	if err != nil {
		perr := &flow.PersistenceError{Collection: collection, Cause: err}
		s.logFailure(ctx, userID, perr)
		return nil, perr
	}
	return out, nil
}

// Wait blocks until every background write has finished.
func (s *Saver) Wait() {
	s.wg.Wait()
}

func (s *Saver) records(ctx context.Context, userID uuid.UUID, collection string, items []Item) ([]*domain.Record, error) {
	if userID == uuid.Nil {
		return nil, errors.New("missing user id")
	}
	if err := domain.CheckCollection(collection); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]*domain.Record, 0, len(items))
	for i, it := range items {
		raw, err := json.Marshal(it.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode item %d: %w", i, err)
		}
		rec := &domain.Record{
			ID:         uuid.Must(uuid.NewV7()),
			UserID:     userID,
			Collection: collection,
			Payload:    datatypes.JSON(raw),
			CreatedAt:  now,
		}
		if corr := ctxutil.AnnotateTrace(ctx, copyMap(it.Correlation)); len(corr) > 0 {
			rec.Correlation = datatypes.JSONMap(corr)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Saver) failed(ctx context.Context, userID uuid.UUID, collection string, cause error) {
	perr := &flow.PersistenceError{Collection: collection, Cause: cause}
	s.logFailure(ctx, userID, perr)
	s.publish(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventRecordSaveFailed,
		Data: ctxutil.AnnotateTrace(ctx, map[string]any{
			"collection": collection,
			"kind":       string(flow.KindPersistence),
			"message":    "Your result was generated but could not be saved.",
		}),
	})
}

func (s *Saver) logFailure(ctx context.Context, userID uuid.UUID, perr *flow.PersistenceError) {
	kv := []any{"collection", perr.Collection, "user_id", userID.String(), "error", perr.Error()}
	s.log.Error("record save failed", append(kv, ctxutil.TraceFields(ctx)...)...)
}

func copyMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Saver) saved(ctx context.Context, userID uuid.UUID, collection string, records []*domain.Record) {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID.String())
	}
	s.log.Debug("records saved", "collection", collection, "user_id", userID.String(), "count", len(records))
	s.publish(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventRecordSaved,
		Data:    map[string]any{"collection": collection, "ids": ids},
	})
}

func (s *Saver) publish(ctx context.Context, msg realtime.SSEMessage) {
	if s.pub == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.pub.Publish(pctx, msg); err != nil {
		s.log.Warn("publish save event failed", "event", msg.Event, "error", err)
	}
}

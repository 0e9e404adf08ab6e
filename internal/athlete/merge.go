package athlete

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Merge precondition and failure kinds, distinguishable with errors.Is so
// callers can show specific messages.
var (
	// ErrSameAthlete is returned when source and target are the same id.
	ErrSameAthlete = errors.New("source and target athlete are the same")
	// ErrAthleteNotFound is returned when either side does not exist.
	ErrAthleteNotFound = errors.New("athlete not found")
	// ErrReassignMismatch is returned when the reassignment touched a
	// different number of results than the source owned. The source
	// athlete is left in place so the operation can be retried.
	ErrReassignMismatch = errors.New("reassigned result count mismatch")
)

// ResultStore is the write interface a merge needs from the result store.
// ReassignResults must be a single failure-atomic operation, not a
// fetch-then-update loop.
type ResultStore interface {
	CountByAthlete(ctx context.Context, athleteID string) (int, error)
	ReassignResults(ctx context.Context, fromID, toID string) (int64, error)
}

// AthleteStore is the read/delete interface a merge needs from the
// athlete roster.
type AthleteStore interface {
	GetByID(ctx context.Context, id string) (*Athlete, error)
	Delete(ctx context.Context, id string) error
}

// MergePreview summarizes both sides of a proposed merge so the caller
// can confirm before committing. The merge is irreversible by design.
type MergePreview struct {
	SourceID      string `json:"source_id"`
	SourceName    string `json:"source_name"`
	SourceResults int    `json:"source_results"`
	TargetID      string `json:"target_id"`
	TargetName    string `json:"target_name"`
	TargetResults int    `json:"target_results"`
}

// MergeOutcome reports a completed merge.
type MergeOutcome struct {
	SourceID     string `json:"source_id"`
	SourceName   string `json:"source_name"`
	TargetID     string `json:"target_id"`
	TargetName   string `json:"target_name"`
	MovedResults int64  `json:"moved_results"`
	TargetTotal  int    `json:"target_total"`
}

// Merger folds one athlete's entire result history into another's and
// deletes the duplicate, as an all-or-nothing operation.
type Merger struct {
	athletes AthleteStore
	results  ResultStore
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMerger creates a merger over the given stores.
func NewMerger(athletes AthleteStore, results ResultStore, logger *slog.Logger) *Merger {
	return &Merger{
		athletes: athletes,
		results:  results,
		logger:   logger.With(slog.String("component", "merger")),
		locks:    make(map[string]*sync.Mutex),
	}
}

// pairLock returns the mutex for an unordered id pair, so repeated merges
// of the same two athletes serialize. Merges that share only one athlete
// across different pairs are not serialized here; if one moves rows out
// from under the other, the moved-count verification in Merge fails the
// loser with ErrReassignMismatch instead of deleting its source. Locks
// are never removed: a process sees few distinct pairs in its lifetime.
func (m *Merger) pairLock(a, b string) *sync.Mutex {
	if b < a {
		a, b = b, a
	}
	key := a + "|" + b

	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	m.locks[key] = l
	return l
}

// Preview returns the pre-merge summary after validating preconditions.
// No mutation occurs.
func (m *Merger) Preview(ctx context.Context, sourceID, targetID string) (*MergePreview, error) {
	source, target, err := m.checkPreconditions(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}

	sourceCount, err := m.results.CountByAthlete(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("counting source results: %w", err)
	}
	targetCount, err := m.results.CountByAthlete(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("counting target results: %w", err)
	}

	return &MergePreview{
		SourceID:      sourceID,
		SourceName:    source.FullName(),
		SourceResults: sourceCount,
		TargetID:      targetID,
		TargetName:    target.FullName(),
		TargetResults: targetCount,
	}, nil
}

// Merge reassigns every result of the source athlete to the target and
// deletes the source record. Preconditions are rejected before any
// mutation. The delete only runs after the reassignment verifiably moved
// exactly the source's pre-merge result count; on mismatch the source
// record survives and the whole operation can be re-run (a re-run after an
// interruption sees zero source results and completes the delete).
func (m *Merger) Merge(ctx context.Context, sourceID, targetID string) (*MergeOutcome, error) {
	lock := m.pairLock(sourceID, targetID)
	lock.Lock()
	defer lock.Unlock()

	source, target, err := m.checkPreconditions(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}

	sourceCount, err := m.results.CountByAthlete(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("counting source results: %w", err)
	}
	targetCount, err := m.results.CountByAthlete(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("counting target results: %w", err)
	}

	moved, err := m.results.ReassignResults(ctx, sourceID, targetID)
	if err != nil {
		return nil, fmt.Errorf("reassigning results from %s to %s: %w", sourceID, targetID, err)
	}
	if moved != int64(sourceCount) {
		return nil, fmt.Errorf("%w: moved %d, source had %d (source athlete %s retained)",
			ErrReassignMismatch, moved, sourceCount, sourceID)
	}

	if err := m.athletes.Delete(ctx, sourceID); err != nil {
		return nil, fmt.Errorf("deleting source athlete %s after reassigning %d results: %w",
			sourceID, moved, err)
	}

	m.logger.Info("merged athletes",
		slog.String("source_id", sourceID),
		slog.String("target_id", targetID),
		slog.Int64("moved_results", moved),
	)

	return &MergeOutcome{
		SourceID:     sourceID,
		SourceName:   source.FullName(),
		TargetID:     targetID,
		TargetName:   target.FullName(),
		MovedResults: moved,
		TargetTotal:  targetCount + int(moved),
	}, nil
}

// checkPreconditions validates ids and loads both athlete records.
func (m *Merger) checkPreconditions(ctx context.Context, sourceID, targetID string) (source, target *Athlete, err error) {
	if sourceID == targetID {
		return nil, nil, fmt.Errorf("%w: %s", ErrSameAthlete, sourceID)
	}
	source, err = m.athletes.GetByID(ctx, sourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading source: %w", err)
	}
	if source == nil {
		return nil, nil, fmt.Errorf("source %w: %s", ErrAthleteNotFound, sourceID)
	}
	target, err = m.athletes.GetByID(ctx, targetID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading target: %w", err)
	}
	if target == nil {
		return nil, nil, fmt.Errorf("target %w: %s", ErrAthleteNotFound, targetID)
	}
	return source, target, nil
}

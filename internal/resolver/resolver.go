// Package resolver computes the real-world state of the task a notification is
// linked to: whether it was already completed, and enrichment fields (plant,
// garden, due date, priority, category) for the email templates.
//
// Resolution is fail-open throughout: any lookup error degrades to "not
// completed, no enrichment" so the reminder still goes out. A slightly stale
// reminder beats a silently dropped one.
package resolver

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
)

// RecordStore is the slice of the record store the resolver needs.
type RecordStore interface {
	GetRecordByID(ctx context.Context, table, id string) (map[string]any, error)
	EarliestTaskCompletion(ctx context.Context, taskID string) (*time.Time, error)
}

// Outcome tags the result of probing one candidate table.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeErrorIgnored
)

// ProbeResult records what happened at each candidate table during plant
// resolution.
type ProbeResult struct {
	Table   string
	Outcome Outcome
}

// probeTarget pairs a candidate table with the name columns to try, in order.
type probeTarget struct {
	table       string
	nameColumns []string
}

// Plant names live in different tables depending on how old the installation
// is; probed in order, first non-empty name wins.
var plantTables = []probeTarget{
	{table: "plants", nameColumns: []string{"name", "nickname"}},
	{table: "user_plants", nameColumns: []string{"name", "nickname"}},
	{table: "plantas", nameColumns: []string{"nome", "apelido"}},
}

var environmentNameColumns = []string{"name", "nome", "title", "label"}

// Resolver resolves TaskContexts against the record store.
type Resolver struct {
	store  RecordStore
	logger *logrus.Logger
}

func New(store RecordStore, logger *logrus.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve determines completion state and enrichment fields for the task
// linked to n. When the linkage cannot be established the notification
// proceeds as a plain reminder with an empty context.
func (r *Resolver) Resolve(ctx context.Context, n models.Notification) models.TaskContext {
	table := n.TaskTable
	if table == "" {
		table = stringField(n.Payload, "task_table")
	}
	taskID := n.TaskID
	if taskID == "" {
		taskID = stringField(n.Payload, "task_id")
	}
	if table == "" || taskID == "" {
		return models.TaskContext{}
	}

	record, err := r.store.GetRecordByID(ctx, table, taskID)
	if err != nil {
		r.logger.Debugf("Task lookup failed for %s/%s, proceeding without context: %v", table, taskID, err)
		return models.TaskContext{}
	}
	if record == nil {
		return models.TaskContext{}
	}

	var tc models.TaskContext
	switch table {
	case "user_tasks":
		tc.IsCompleted = stringField(record, "status") == "completed" || boolField(record, "completed")
		tc.CompletedAt = timeField(record, "completed_at")
		if !tc.IsCompleted {
			// Older installations log completions in a separate table instead
			// of flipping the task row.
			if ts, err := r.store.EarliestTaskCompletion(ctx, taskID); err != nil {
				r.logger.Debugf("Completion log lookup failed for task %s: %v", taskID, err)
			} else if ts != nil {
				tc.IsCompleted = true
				tc.CompletedAt = ts
			}
		}
	default:
		// todos, and any unknown linkage table with the same shape
		tc.IsCompleted = boolField(record, "completed") || stringField(record, "status") == "completed"
		tc.CompletedAt = timeField(record, "completed_at")
	}

	tc.TaskTitle = stringField(record, "title", "name")
	tc.TaskDueDate = timeField(record, "due_date", "due_at")
	tc.TaskPriority = stringField(record, "priority")
	tc.TaskCategory = stringField(record, "category", "task_type")

	tc.PlantName = stringField(record, "plant_name")
	var envRef string
	if tc.PlantName == "" {
		if plantID := stringField(record, "plant_id"); plantID != "" {
			var probes []ProbeResult
			tc.PlantName, envRef, probes = r.probePlant(ctx, plantID)
			for _, p := range probes {
				if p.Outcome == OutcomeErrorIgnored {
					r.logger.Debugf("Plant probe on %s errored for plant %s, trying next candidate", p.Table, plantID)
				}
			}
		}
	}
	if envRef != "" {
		tc.GardenName = r.lookupEnvironment(ctx, envRef)
	}

	return tc
}

// probePlant tries each candidate plant table in order and short-circuits on
// the first record with a non-empty name. Per-candidate failures are tolerated.
func (r *Resolver) probePlant(ctx context.Context, plantID string) (name, envRef string, probes []ProbeResult) {
	for _, target := range plantTables {
		record, err := r.store.GetRecordByID(ctx, target.table, plantID)
		if err != nil {
			probes = append(probes, ProbeResult{Table: target.table, Outcome: OutcomeErrorIgnored})
			continue
		}
		if record == nil {
			probes = append(probes, ProbeResult{Table: target.table, Outcome: OutcomeNotFound})
			continue
		}
		n := stringField(record, target.nameColumns...)
		if n == "" {
			probes = append(probes, ProbeResult{Table: target.table, Outcome: OutcomeNotFound})
			continue
		}
		probes = append(probes, ProbeResult{Table: target.table, Outcome: OutcomeFound})
		return n, stringField(record, "environment_id", "garden_id"), probes
	}
	return "", "", probes
}

func (r *Resolver) lookupEnvironment(ctx context.Context, envID string) string {
	record, err := r.store.GetRecordByID(ctx, "environments", envID)
	if err != nil {
		r.logger.Debugf("Environment lookup failed for %s: %v", envID, err)
		return ""
	}
	if record == nil {
		return ""
	}
	return stringField(record, environmentNameColumns...)
}

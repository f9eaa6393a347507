package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/process"
)

// DefaultMongoDatabase is used when no database name is given.
const DefaultMongoDatabase = "lanemap"

const mongoTimeout = 5 * time.Second

// Mongo is a Store backed by MongoDB.
type Mongo struct {
	client    *mongo.Client
	owned     bool // disconnect on Close
	actor     string
	workflows *mongo.Collection
	steps     *mongo.Collection
	rows      *mongo.Collection
	audit     *mongo.Collection
	counters  *mongo.Collection
}

var _ Store = (*Mongo)(nil)

type mongoStepDoc struct {
	ID          int64                `bson:"_id"`
	WorkflowID  int64                `bson:"workflow_id"`
	Name        string               `bson:"name"`
	Kind        string               `bson:"kind"`
	Address     string               `bson:"address"`
	Status      string               `bson:"status,omitempty"`
	Connections []process.Connection `bson:"connections,omitempty"`
	ModifiedAt  time.Time            `bson:"modified_at"`
	ModifiedBy  string               `bson:"modified_by"`
}

type mongoRowDoc struct {
	WorkflowID int64  `bson:"workflow_id"`
	Letter     string `bson:"letter"`
	Name       string `bson:"name"`
}

// ConnectMongo connects to uri and returns a store using dbName. The client
// is disconnected by Close.
func ConnectMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongo")
	}
	m := NewMongo(client, dbName)
	m.owned = true
	return m, nil
}

// NewMongo returns a store using an existing client. dbName defaults to
// DefaultMongoDatabase.
func NewMongo(client *mongo.Client, dbName string) *Mongo {
	if dbName == "" {
		dbName = DefaultMongoDatabase
	}
	db := client.Database(dbName)
	return &Mongo{
		client:    client,
		workflows: db.Collection("workflows"),
		steps:     db.Collection("activities"),
		rows:      db.Collection("swimlanes"),
		audit:     db.Collection("activity_audit_log"),
		counters:  db.Collection("counters"),
	}
}

// SetActor sets the name recorded in audit entries and modified_by.
func (m *Mongo) SetActor(actor string) { m.actor = actor }

func (m *Mongo) actorName() string {
	if m.actor == "" {
		return DefaultActor
	}
	return m.actor
}

// nextID allocates the next integer id for a collection.
func (m *Mongo) nextID(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStorage, err, "allocate %s id", name)
	}
	return doc.Seq, nil
}

// Workflows lists workflow documents.
func (m *Mongo) Workflows(ctx context.Context) ([]process.Workflow, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	cur, err := m.workflows.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list workflows")
	}
	out := []process.Workflow{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode workflows")
	}
	return out, nil
}

// CreateWorkflow inserts a workflow document with the next id.
func (m *Mongo) CreateWorkflow(ctx context.Context, name, description string) (process.Workflow, error) {
	name, description, err := normalizeWorkflow(name, description)
	if err != nil {
		return process.Workflow{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	id, err := m.nextID(ctx, "workflows")
	if err != nil {
		return process.Workflow{}, err
	}
	wf := process.Workflow{ID: id, Name: name, Description: description}
	if _, err := m.workflows.InsertOne(ctx, wf); err != nil {
		return process.Workflow{}, errors.Wrap(errors.ErrCodeStorage, err, "create workflow")
	}
	return wf, nil
}

func (m *Mongo) workflow(ctx context.Context, id int64) (process.Workflow, error) {
	var wf process.Workflow
	err := m.workflows.FindOne(ctx, bson.M{"_id": id}).Decode(&wf)
	if err == mongo.ErrNoDocuments {
		return wf, workflowNotFound(id)
	}
	if err != nil {
		return wf, errors.Wrap(errors.ErrCodeStorage, err, "load workflow %d", id)
	}
	return wf, nil
}

// Snapshot reads a workflow with its swimlanes and steps.
func (m *Mongo) Snapshot(ctx context.Context, workflowID int64) (process.Snapshot, []process.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	wf, err := m.workflow(ctx, workflowID)
	if err != nil {
		return process.Snapshot{}, nil, err
	}

	cur, err := m.steps.Find(ctx, bson.M{"workflow_id": workflowID},
		options.Find().SetSort(bson.D{{Key: "address", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return process.Snapshot{}, nil, errors.Wrap(errors.ErrCodeStorage, err, "load steps")
	}
	var docs []mongoStepDoc
	if err := cur.All(ctx, &docs); err != nil {
		return process.Snapshot{}, nil, errors.Wrap(errors.ErrCodeStorage, err, "decode steps")
	}

	snap := process.Snapshot{Workflow: wf, Steps: make([]process.Step, 0, len(docs))}
	for _, d := range docs {
		snap.Steps = append(snap.Steps, process.Step{
			ID:          d.ID,
			Name:        d.Name,
			Kind:        process.ParseKind(d.Kind),
			Address:     d.Address,
			Status:      d.Status,
			Connections: d.Connections,
		})
	}

	rcur, err := m.rows.Find(ctx, bson.M{"workflow_id": workflowID},
		options.Find().SetSort(bson.D{{Key: "letter", Value: 1}}))
	if err != nil {
		return process.Snapshot{}, nil, errors.Wrap(errors.ErrCodeStorage, err, "load rows")
	}
	var rows []mongoRowDoc
	if err := rcur.All(ctx, &rows); err != nil {
		return process.Snapshot{}, nil, errors.Wrap(errors.ErrCodeStorage, err, "decode rows")
	}
	for _, r := range rows {
		snap.Rows = append(snap.Rows, process.Row{Letter: r.Letter, Name: r.Name})
	}
	return snap, nil, nil
}

// CreateStep inserts a step document.
func (m *Mongo) CreateStep(ctx context.Context, workflowID int64, step process.Step) (process.Step, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	if _, err := m.workflow(ctx, workflowID); err != nil {
		return process.Step{}, err
	}
	step = prepareStep(step)
	id, err := m.nextID(ctx, "activities")
	if err != nil {
		return process.Step{}, err
	}
	step.ID = id

	doc := mongoStepDoc{
		ID:          step.ID,
		WorkflowID:  workflowID,
		Name:        step.Name,
		Kind:        string(step.Kind),
		Address:     step.Address,
		Status:      step.Status,
		Connections: step.Connections,
		ModifiedAt:  time.Now().UTC(),
		ModifiedBy:  m.actorName(),
	}
	if _, err := m.steps.InsertOne(ctx, doc); err != nil {
		return process.Step{}, errors.Wrap(errors.ErrCodeStorage, err, "create step")
	}
	entry := newAuditEntry(step.ID, ActionCreate, m.actorName(), map[string]any{
		"name": step.Name, "grid_location": step.Address,
	})
	if _, err := m.audit.InsertOne(ctx, entry); err != nil {
		return process.Step{}, errors.Wrap(errors.ErrCodeStorage, err, "write audit entry")
	}
	return step, nil
}

// UpdateStepAddress sets the step address and appends an audit document.
func (m *Mongo) UpdateStepAddress(ctx context.Context, stepID int64, address string) (string, error) {
	norm, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res, err := m.steps.UpdateByID(ctx, stepID, bson.M{
		"$set": bson.M{
			"address":     norm,
			"modified_at": time.Now().UTC(),
			"modified_by": m.actorName(),
		},
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "update step %d", stepID)
	}
	if res.MatchedCount == 0 {
		return "", stepNotFound(stepID)
	}

	entry := newAuditEntry(stepID, ActionUpdatePosition, m.actorName(), map[string]any{"grid_location": norm})
	if _, err := m.audit.InsertOne(ctx, entry); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "write audit entry")
	}
	return norm, nil
}

// DeleteStep deletes a step document.
func (m *Mongo) DeleteStep(ctx context.Context, stepID int64) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res, err := m.steps.DeleteOne(ctx, bson.M{"_id": stepID})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete step %d", stepID)
	}
	if res.DeletedCount == 0 {
		return stepNotFound(stepID)
	}
	if _, err := m.audit.InsertOne(ctx, newAuditEntry(stepID, ActionDelete, m.actorName(), nil)); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write audit entry")
	}
	return nil
}

// SaveRow upserts a swimlane document.
func (m *Mongo) SaveRow(ctx context.Context, workflowID int64, row process.Row) (process.Row, error) {
	row, err := NormalizeRow(row)
	if err != nil {
		return process.Row{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	if _, err := m.workflow(ctx, workflowID); err != nil {
		return process.Row{}, err
	}
	_, err = m.rows.UpdateOne(ctx,
		bson.M{"workflow_id": workflowID, "letter": row.Letter},
		bson.M{"$set": bson.M{"name": row.Name}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return process.Row{}, errors.Wrap(errors.ErrCodeStorage, err, "save row %s", row.Letter)
	}
	return row, nil
}

// Audit reads the audit documents for a step.
func (m *Mongo) Audit(ctx context.Context, stepID int64) ([]AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	cur, err := m.audit.Find(ctx, bson.M{"step_id": stepID}, options.Find().SetSort(bson.D{{Key: "at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load audit")
	}
	var out []AuditEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode audit")
	}
	return out, nil
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	if !m.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

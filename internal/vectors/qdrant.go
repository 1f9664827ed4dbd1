package vectors

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
)

// DefaultCollection is the Qdrant collection holding focus items
const DefaultCollection = "focus"

// payload keys
const (
	payloadProfileID = "profile_id"
	payloadDocument  = "document"
)

// Store implements Index on top of Qdrant
type Store struct {
	client     *qdrant.Client
	collection string
}

// Config for the Qdrant store
type Config struct {
	Host       string // Qdrant host, default "localhost"
	Port       int    // Qdrant gRPC port, default 6334
	UseTLS     bool
	Collection string // defaults to DefaultCollection
}

// NewStore connects to Qdrant
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	return &Store{client: client, collection: cfg.Collection}, nil
}

// Close closes the Qdrant connection
func (s *Store) Close() error {
	return s.client.Close()
}

// EnsureCollection creates the focus collection if it does not exist yet
func (s *Store) EnsureCollection(ctx context.Context, dimension uint64) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert mirrors entries into the index, keyed by the relational ids
func (s *Store) Upsert(ctx context.Context, entries []Entry) error {
	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		payload := map[string]any{payloadDocument: e.Document}
		for k, v := range e.Payload {
			payload[k] = v
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(e.ID.String()),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: toQdrantPayload(payload),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return &IndexSyncError{Op: "upsert", Err: models.WrapTimeout("index upsert", err)}
	}

	return nil
}

// Delete removes entries by id
func (s *Store) Delete(ctx context.Context, ids []uuid.UUID) error {
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id.String())
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: pointIDs,
				},
			},
		},
	})
	if err != nil {
		return &IndexSyncError{Op: "delete", Err: models.WrapTimeout("index delete", err)}
	}

	return nil
}

// GetByIDs fetches entries by id, payload included
func (s *Store) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Result, error) {
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id.String())
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, models.WrapTimeout("index get", fmt.Errorf("failed to get points: %w", err))
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		r, err := retrievedToResult(p.Id, 0, p.Payload)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	return results, nil
}

// Query runs a nearest-neighbor search scoped to one profile
func (s *Store) Query(ctx context.Context, profileID uuid.UUID, vector []float32, limit uint64) ([]Result, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadProfileID, profileID.String()),
		},
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         filter,
	})
	if err != nil {
		return nil, models.WrapTimeout("index query", fmt.Errorf("semantic search failed: %w", err))
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		r, err := retrievedToResult(p.Id, p.Score, p.Payload)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	return results, nil
}

func retrievedToResult(id *qdrant.PointId, score float32, payload map[string]*qdrant.Value) (Result, error) {
	parsed, err := uuid.Parse(id.GetUuid())
	if err != nil {
		return Result{}, fmt.Errorf("unexpected point id %q: %w", id.GetUuid(), err)
	}

	fields := fromQdrantPayload(payload)
	document, _ := fields[payloadDocument].(string)
	delete(fields, payloadDocument)

	return Result{
		ID:       parsed,
		Score:    score,
		Document: document,
		Payload:  fields,
	}, nil
}

func toQdrantPayload(payload map[string]any) map[string]*qdrant.Value {
	result := make(map[string]*qdrant.Value)
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			result[k] = qdrant.NewValueString(val)
		case int:
			result[k] = qdrant.NewValueInt(int64(val))
		case int64:
			result[k] = qdrant.NewValueInt(val)
		case float64:
			result[k] = qdrant.NewValueDouble(val)
		case float32:
			result[k] = qdrant.NewValueDouble(float64(val))
		case bool:
			result[k] = qdrant.NewValueBool(val)
		}
	}
	return result
}

func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any)
	for k, v := range payload {
		switch val := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			result[k] = val.StringValue
		case *qdrant.Value_IntegerValue:
			result[k] = val.IntegerValue
		case *qdrant.Value_DoubleValue:
			result[k] = val.DoubleValue
		case *qdrant.Value_BoolValue:
			result[k] = val.BoolValue
		}
	}
	return result
}

// Ensure Store implements the Index interface
var _ Index = (*Store)(nil)

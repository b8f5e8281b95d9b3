// Package qdrant provides a NarrativeMemory implementation using Qdrant.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
	"github.com/ersonp/loremaster/internal/infrastructure/config"
)

// EventIndex implements ports.NarrativeMemory and ports.CollectionManager.
// Every point carries its game ID so recall never crosses games.
type EventIndex struct {
	client     pb.CollectionsClient
	points     pb.PointsClient
	collection string
	embedder   ports.Embedder
	conn       *grpc.ClientConn
}

// NewEventIndex connects to Qdrant.
func NewEventIndex(cfg config.QdrantConfig, embedder ports.Embedder) (*EventIndex, error) {
	if cfg.Host == "" {
		return nil, errors.New("qdrant host is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	index := newEventIndex(pb.NewCollectionsClient(conn), pb.NewPointsClient(conn), cfg.Collection, embedder)
	index.conn = conn
	return index, nil
}

func newEventIndex(collections pb.CollectionsClient, points pb.PointsClient, collection string, embedder ports.Embedder) *EventIndex {
	return &EventIndex{
		client:     collections,
		points:     points,
		collection: collection,
		embedder:   embedder,
	}
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the gRPC connection.
func (r *EventIndex) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (r *EventIndex) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	_, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err == nil {
		return nil
	}

	_, err = r.client.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// DeleteCollection removes the collection and every indexed event.
func (r *EventIndex) DeleteCollection(ctx context.Context) error {
	_, err := r.client.Delete(ctx, &pb.DeleteCollection{
		CollectionName: r.collection,
	})
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return nil
}

// pointID derives a stable UUID from an event ID so re-indexing is idempotent.
func pointID(eventID string) string {
	if _, err := uuid.Parse(eventID); err == nil {
		return eventID
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("loremaster:event:"+eventID)).String()
}

// Remember embeds and stores a committed event.
func (r *EventIndex) Remember(ctx context.Context, event entities.CanonicalEvent) error {
	vector, err := r.embedder.Embed(ctx, event.Content)
	if err != nil {
		return fmt.Errorf("embedding event %s: %w", event.ID, err)
	}

	witnesses := make([]*pb.Value, 0, len(event.Witnesses))
	for _, w := range event.Witnesses {
		witnesses = append(witnesses, stringValue(w))
	}

	point := &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{
				Uuid: pointID(event.ID),
			},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{
					Data: vector,
				},
			},
		},
		Payload: map[string]*pb.Value{
			"game_id":     stringValue(event.GameID),
			"event_id":    stringValue(event.ID),
			"turn":        {Kind: &pb.Value_IntegerValue{IntegerValue: int64(event.Turn)}},
			"event_type":  stringValue(string(event.Type)),
			"content":     stringValue(event.Content),
			"speaker":     stringValue(event.Speaker),
			"location_id": stringValue(event.LocationID),
			"witnesses":   {Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: witnesses}}},
			"timestamp":   stringValue(event.Timestamp.Format(time.RFC3339)),
		},
	}

	wait := true
	_, err = r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         []*pb.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upserting point: %w", err)
	}

	return nil
}

// Recall performs a semantic search over one game's events.
func (r *EventIndex) Recall(ctx context.Context, gameID, query string, limit int) ([]entities.CanonicalEvent, error) {
	if limit <= 0 || query == "" {
		return nil, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				{
					ConditionOneOf: &pb.Condition_Field{
						Field: &pb.FieldCondition{
							Key: "game_id",
							Match: &pb.Match{
								MatchValue: &pb.Match_Keyword{
									Keyword: gameID,
								},
							},
						},
					},
				},
			},
		},
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	events := make([]entities.CanonicalEvent, 0, len(resp.Result))
	for _, point := range resp.Result {
		events = append(events, payloadToEvent(point.Payload))
	}
	return events, nil
}

// payloadToEvent converts a point payload back to a CanonicalEvent.
func payloadToEvent(payload map[string]*pb.Value) entities.CanonicalEvent {
	event := entities.CanonicalEvent{
		ID:         getStringValue(payload, "event_id"),
		GameID:     getStringValue(payload, "game_id"),
		Turn:       int(getIntValue(payload, "turn")),
		Type:       entities.EventType(getStringValue(payload, "event_type")),
		Content:    getStringValue(payload, "content"),
		Speaker:    getStringValue(payload, "speaker"),
		LocationID: getStringValue(payload, "location_id"),
		Witnesses:  []string{},
	}
	if ts, err := time.Parse(time.RFC3339, getStringValue(payload, "timestamp")); err == nil {
		event.Timestamp = ts
	}
	if v, ok := payload["witnesses"]; ok {
		for _, w := range v.GetListValue().GetValues() {
			event.Witnesses = append(event.Witnesses, w.GetStringValue())
		}
	}
	return event
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

// Helper functions for payload extraction.
func getStringValue(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func getIntValue(payload map[string]*pb.Value, key string) int64 {
	if v, ok := payload[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}

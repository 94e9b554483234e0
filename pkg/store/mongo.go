package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/graphio"
	"github.com/poagraph/poagraph/pkg/observability"
	"github.com/poagraph/poagraph/pkg/poa"
)

// graphDoc is the Mongo document for one stored graph. Embedding the
// graphio wire type reuses its bson tags, so graphs land as structured
// documents rather than opaque blobs and stay queryable server-side.
type graphDoc struct {
	Name      string        `bson:"name"`
	Digest    string        `bson:"digest"`
	Nodes     int           `bson:"nodes"`
	Sequences int           `bson:"sequences"`
	Size      int64         `bson:"size"`
	Graph     graphio.Graph `bson:"graph"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

// Mongo is a Store backed by a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ Store = (*Mongo)(nil)

// OpenMongo connects to the given MongoDB deployment and prepares the
// graphs collection, including its unique name index.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	coll := client.Database(database).Collection("graphs")
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("creating name index: %w", err)
	}

	return &Mongo{client: client, coll: coll}, nil
}

// Save upserts the graph under the given name.
func (m *Mongo) Save(ctx context.Context, name string, g *poa.Graph) (GraphInfo, error) {
	start := time.Now()
	info, err := m.save(ctx, name, g)
	observability.Store().OnSave(ctx, "mongo", name, info.SizeBytes, time.Since(start), err)
	return info, err
}

func (m *Mongo) save(ctx context.Context, name string, g *poa.Graph) (GraphInfo, error) {
	if err := pkgerrors.ValidateGraphName(name); err != nil {
		return GraphInfo{}, err
	}
	doc, err := graphio.MarshalGraph(g)
	if err != nil {
		return GraphInfo{}, err
	}
	digest := digestOf(doc)
	nodes := g.NodeCount() - 2 // sentinels excluded
	now := time.Now().UTC()

	set := bson.M{
		"digest":     digest,
		"nodes":      nodes,
		"sequences":  g.SequenceCount(),
		"size":       int64(len(doc)),
		"graph":      graphio.FromGraph(g),
		"updated_at": now,
	}
	_, err = m.coll.UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return GraphInfo{}, fmt.Errorf("upserting graph: %w", err)
	}

	return GraphInfo{
		Name:      name,
		Digest:    digest,
		Nodes:     nodes,
		Sequences: g.SequenceCount(),
		SizeBytes: int64(len(doc)),
		UpdatedAt: now,
	}, nil
}

// Load reconstructs the named graph and verifies it against the stored
// digest.
func (m *Mongo) Load(ctx context.Context, name string) (*poa.Graph, error) {
	start := time.Now()
	g, err := m.load(ctx, name)
	observability.Store().OnLoad(ctx, "mongo", name, time.Since(start), err)
	return g, err
}

func (m *Mongo) load(ctx context.Context, name string) (*poa.Graph, error) {
	var doc graphDoc
	err := m.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.New(pkgerrors.ErrCodeGraphNotFound, "graph %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying graph: %w", err)
	}

	g, err := graphio.ToGraph(doc.Graph)
	if err != nil {
		return nil, err
	}
	canonical, err := graphio.MarshalGraph(g)
	if err != nil {
		return nil, err
	}
	if digestOf(canonical) != doc.Digest {
		return nil, pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "stored graph %q fails its digest check", name)
	}
	return g, nil
}

// List returns metadata for every stored graph, ordered by name. Graph
// bodies are projected away.
func (m *Mongo) List(ctx context.Context) ([]GraphInfo, error) {
	opts := options.Find().
		SetProjection(bson.M{"graph": 0}).
		SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying graphs: %w", err)
	}
	defer cur.Close(ctx)

	var infos []GraphInfo
	for cur.Next(ctx) {
		var doc graphDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding graph document: %w", err)
		}
		infos = append(infos, GraphInfo{
			Name:      doc.Name,
			Digest:    doc.Digest,
			Nodes:     doc.Nodes,
			Sequences: doc.Sequences,
			SizeBytes: doc.Size,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return infos, cur.Err()
}

// Delete removes the named graph.
func (m *Mongo) Delete(ctx context.Context, name string) error {
	err := m.delete(ctx, name)
	observability.Store().OnDelete(ctx, "mongo", name, err)
	return err
}

func (m *Mongo) delete(ctx context.Context, name string) error {
	result, err := m.coll.DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("deleting graph: %w", err)
	}
	if result.DeletedCount == 0 {
		return pkgerrors.New(pkgerrors.ErrCodeGraphNotFound, "graph %q not found", name)
	}
	return nil
}

// Close disconnects from the deployment.
func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}

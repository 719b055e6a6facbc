package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Jis87-63/moz-digital-store/internal/catalog"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/database"
)

// DefaultPollInterval is used when change streams are unavailable and no
// interval was configured.
const DefaultPollInterval = 5 * time.Second

// Options tune the catalog collections.
type Options struct {
	// PollInterval drives change detection on servers without change
	// streams, such as a standalone mongod.
	PollInterval time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type document[T any] interface {
	key() string
	// stamped reports whether the document carries its own timestamps.
	stamped() bool
	toDomain(now time.Time) T
}

// collection holds what every typed repository does the same way: decoding
// documents, mapping them to domain values and following changes.
type collection[T any, D document[T]] struct {
	coll     *mongo.Collection
	resource string
	opts     Options

	// firstSeen pins the substituted timestamp of unstamped documents so
	// that rereading an unchanged document yields an equal value.
	mu        sync.Mutex
	firstSeen map[string]time.Time
}

func newCollection[T any, D document[T]](coll *mongo.Collection, resource string, opts Options) *collection[T, D] {
	return &collection[T, D]{
		coll:      coll,
		resource:  resource,
		opts:      opts.withDefaults(),
		firstSeen: make(map[string]time.Time),
	}
}

func (c *collection[T, D]) now() time.Time {
	return c.opts.Now().UTC()
}

func (c *collection[T, D]) trace(ctx context.Context, op string) (context.Context, func(error)) {
	return database.TraceOperation(ctx, database.SystemMongo, op, c.coll.Name())
}

func (c *collection[T, D]) find(ctx context.Context, filter any, opts ...*options.FindOptions) (_ []T, err error) {
	ctx, end := c.trace(ctx, "find")
	defer func() { end(err) }()

	cursor, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.resource, err)
	}
	var docs []D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.resource, err)
	}

	now := c.now()
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		out = append(out, c.toDomain(d, now))
	}
	return out, nil
}

func (c *collection[T, D]) findOne(ctx context.Context, filter any, key string) (_ *T, err error) {
	ctx, end := c.trace(ctx, "findOne")
	defer func() { end(err) }()

	var doc D
	if err := c.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound(c.resource, key)
		}
		return nil, fmt.Errorf("get %s: %w", c.resource, err)
	}
	v := c.toDomain(doc, c.now())
	return &v, nil
}

// toDomain maps d, defaulting missing timestamps to the time d was first read.
func (c *collection[T, D]) toDomain(d D, now time.Time) T {
	if d.stamped() {
		return d.toDomain(now)
	}
	c.mu.Lock()
	seen, ok := c.firstSeen[d.key()]
	if !ok {
		seen = now
		c.firstSeen[d.key()] = now
	}
	c.mu.Unlock()
	return d.toDomain(seen)
}

func (c *collection[T, D]) findByID(ctx context.Context, id string) (*T, error) {
	return c.findOne(ctx, bson.M{"_id": id}, id)
}

func (c *collection[T, D]) count(ctx context.Context, filter any) (int, error) {
	n, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.resource, err)
	}
	return int(n), nil
}

func (c *collection[T, D]) insert(ctx context.Context, doc D, key string) (err error) {
	ctx, end := c.trace(ctx, "insertOne")
	defer func() { end(err) }()

	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists(c.resource, "key", key)
		}
		return fmt.Errorf("insert %s: %w", c.resource, err)
	}
	return nil
}

func (c *collection[T, D]) replace(ctx context.Context, id string, doc D) (err error) {
	ctx, end := c.trace(ctx, "replaceOne")
	defer func() { end(err) }()

	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists(c.resource, "key", id)
		}
		return fmt.Errorf("update %s: %w", c.resource, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound(c.resource, id)
	}
	return nil
}

func (c *collection[T, D]) update(ctx context.Context, id string, set bson.M) (err error) {
	ctx, end := c.trace(ctx, "updateOne")
	defer func() { end(err) }()

	res, err := c.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s: %w", c.resource, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound(c.resource, id)
	}
	return nil
}

func (c *collection[T, D]) delete(ctx context.Context, id string) (err error) {
	ctx, end := c.trace(ctx, "deleteOne")
	defer func() { end(err) }()

	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.resource, err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound(c.resource, id)
	}
	return nil
}

// changes follows the collection's change stream. When the server cannot
// open one, or the stream dies, it falls back to polling.
func (c *collection[T, D]) changes(ctx context.Context) (<-chan struct{}, error) {
	log := c.opts.Logger.With(slog.String("collection", c.coll.Name()))

	stream, err := c.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WarnContext(ctx, "change streams unavailable, polling instead",
			slog.String("error", err.Error()),
			slog.Duration("interval", c.opts.PollInterval),
		)
		return catalog.Poll(ctx, c.opts.PollInterval), nil
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer stream.Close(context.WithoutCancel(ctx))

		for stream.Next(ctx) {
			catalog.Signal(ch)
		}
		if ctx.Err() != nil {
			return
		}
		if err := stream.Err(); err != nil {
			log.WarnContext(ctx, "change stream closed, polling instead", slog.String("error", err.Error()))
		}
		for range catalog.Poll(ctx, c.opts.PollInterval) {
			catalog.Signal(ch)
		}
	}()
	return ch, nil
}

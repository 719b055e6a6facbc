package mongo

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
)

// SupportRepository stores contact form submissions.
type SupportRepository struct {
	c *collection[domain.SupportMessage, supportDoc]
}

func NewSupportRepository(db *mongo.Database, opts Options) *SupportRepository {
	return &SupportRepository{c: newCollection[domain.SupportMessage, supportDoc](db.Collection(SupportMessagesCollection), "support message", opts)}
}

// Create stores m unread.
func (r *SupportRepository) Create(ctx context.Context, m *domain.SupportMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.c.now()
	}
	m.IsRead = false
	return r.c.insert(ctx, supportFromDomain(m), m.ID)
}

// List returns messages newest first and the total count.
func (r *SupportRepository) List(ctx context.Context, offset, limit int) ([]domain.SupportMessage, int, error) {
	total, err := r.c.count(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(newestFirst).SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	items, err := r.c.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *SupportRepository) MarkRead(ctx context.Context, id string) error {
	return r.c.update(ctx, id, bson.M{"isRead": true})
}

package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkwellhq/inkwell/internal/domain"
	pkgkafka "github.com/inkwellhq/inkwell/pkg/kafka"
)

// Kafka topics for domain events.
var (
	TopicUserRegistered  = pkgkafka.Topic("user", "registered")
	TopicNoteShared      = pkgkafka.Topic("note", "shared")
	TopicFriendRequested = pkgkafka.Topic("friend", "requested")
	TopicFriendAccepted  = pkgkafka.Topic("friend", "accepted")
)

// Aggregate type constants.
const (
	AggregateTypeUser       = "user"
	AggregateTypeNote       = "note"
	AggregateTypeFriendship = "friendship"
)

// Source identifier for events originating from this service.
const SourceAPI = "inkwell-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// NoteSharedData is the payload for a note.shared event. It carries note and
// share identifiers only, never note content.
type NoteSharedData struct {
	ShareID     string `json:"share_id"`
	NoteID      string `json:"note_id"`
	OwnerID     string `json:"owner_id"`
	RecipientID string `json:"recipient_id"`
	Permission  string `json:"permission"`
}

// FriendshipData is the payload for friend.requested and friend.accepted events.
type FriendshipData struct {
	ID          string `json:"id"`
	RequesterID string `json:"requester_id"`
	AddresseeID string `json:"addressee_id"`
	Status      string `json:"status"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishNoteShared publishes a note.shared event.
func (p *Producer) PublishNoteShared(ctx context.Context, share *domain.NoteShare) error {
	data := NoteSharedData{
		ShareID:     share.ID,
		NoteID:      share.NoteID,
		OwnerID:     share.OwnerID,
		RecipientID: share.RecipientID,
		Permission:  share.Permission,
	}

	event, err := pkgkafka.NewEvent(TopicNoteShared, share.NoteID, AggregateTypeNote, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create note.shared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicNoteShared, event); err != nil {
		return fmt.Errorf("publish note.shared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published note.shared event",
		slog.String("note_id", share.NoteID),
		slog.String("recipient_id", share.RecipientID),
	)

	return nil
}

// PublishFriendRequested publishes a friend.requested event.
func (p *Producer) PublishFriendRequested(ctx context.Context, f *domain.Friendship) error {
	return p.publishFriendship(ctx, TopicFriendRequested, f)
}

// PublishFriendAccepted publishes a friend.accepted event.
func (p *Producer) PublishFriendAccepted(ctx context.Context, f *domain.Friendship) error {
	return p.publishFriendship(ctx, TopicFriendAccepted, f)
}

func (p *Producer) publishFriendship(ctx context.Context, topic string, f *domain.Friendship) error {
	data := FriendshipData{
		ID:          f.ID,
		RequesterID: f.RequesterID,
		AddresseeID: f.AddresseeID,
		Status:      f.Status,
	}

	event, err := pkgkafka.NewEvent(topic, f.ID, AggregateTypeFriendship, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published friendship event",
		slog.String("topic", topic),
		slog.String("friendship_id", f.ID),
	)

	return nil
}

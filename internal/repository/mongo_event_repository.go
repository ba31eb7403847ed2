package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/prohmpiriya/event-invitations/internal/domain"
)

const (
	eventsCollection = "events"
	// guarded writes retry when a concurrent writer changes the document between
	// the failed guard and the diagnostic read
	maxGuardedAttempts = 3
)

var errContended = errors.New("event changed concurrently, retry the request")

// RSVPs are stored as an array so emails never become field paths
type rsvpDocument struct {
	Email       string    `bson:"email"`
	Status      string    `bson:"status"`
	RespondedAt time.Time `bson:"responded_at"`
}

type subEventDocument struct {
	Name         string `bson:"name"`
	StartTime    string `bson:"start_time"`
	EndTime      string `bson:"end_time"`
	Location     string `bson:"location"`
	Instructions string `bson:"instructions"`
	Note         string `bson:"note"`
}

type mediaDocument struct {
	Schedule string   `bson:"schedule"`
	Map      string   `bson:"map"`
	Gallery  []string `bson:"gallery"`
}

type eventDocument struct {
	ID             string             `bson:"_id"`
	Name           string             `bson:"name"`
	OrganizerEmail string             `bson:"organizer_email"`
	Description    string             `bson:"description"`
	Location       string             `bson:"location"`
	EventDate      string             `bson:"event_date"`
	StartTime      string             `bson:"start_time"`
	EndTime        string             `bson:"end_time"`
	IsPublic       *bool              `bson:"is_public,omitempty"`
	AdditionalInfo string             `bson:"additional_info"`
	Note           string             `bson:"note"`
	Instructions   string             `bson:"instructions"`
	Invitees       []string           `bson:"invitees"`
	SubEvents      []subEventDocument `bson:"sub_events"`
	RSVPs          []rsvpDocument     `bson:"rsvps"`
	Media          mediaDocument      `bson:"media"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

func toSubEventDocuments(subs []domain.SubEvent) []subEventDocument {
	out := make([]subEventDocument, 0, len(subs))
	for _, s := range subs {
		out = append(out, subEventDocument(s))
	}
	return out
}

func toEventDocument(e *domain.Event, now time.Time) *eventDocument {
	isPublic := e.IsPublic
	doc := &eventDocument{
		ID:             e.ID,
		Name:           e.Name,
		OrganizerEmail: e.OrganizerEmail,
		Description:    e.Description,
		Location:       e.Location,
		EventDate:      e.EventDate,
		StartTime:      e.StartTime,
		EndTime:        e.EndTime,
		IsPublic:       &isPublic,
		AdditionalInfo: e.AdditionalInfo,
		Note:           e.Note,
		Instructions:   e.Instructions,
		Invitees:       append([]string{}, e.Invitees...),
		SubEvents:      toSubEventDocuments(e.SubEvents),
		RSVPs:          make([]rsvpDocument, 0, len(e.RSVPs)),
		Media: mediaDocument{
			Schedule: e.Media.Schedule,
			Map:      e.Media.Map,
			Gallery:  append([]string{}, e.Media.Gallery...),
		},
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	for email, status := range e.RSVPs {
		doc.RSVPs = append(doc.RSVPs, rsvpDocument{Email: email, Status: string(status), RespondedAt: now})
	}
	return doc
}

func (d *eventDocument) toDomain() *domain.Event {
	e := &domain.Event{
		ID:             d.ID,
		Name:           d.Name,
		OrganizerEmail: d.OrganizerEmail,
		Description:    d.Description,
		Location:       d.Location,
		EventDate:      d.EventDate,
		StartTime:      d.StartTime,
		EndTime:        d.EndTime,
		IsPublic:       d.IsPublic == nil || *d.IsPublic,
		AdditionalInfo: d.AdditionalInfo,
		Note:           d.Note,
		Instructions:   d.Instructions,
		Invitees:       d.Invitees,
		SubEvents:      make([]domain.SubEvent, 0, len(d.SubEvents)),
		RSVPs:          make(map[string]domain.RSVPStatus, len(d.RSVPs)),
		Media: domain.Media{
			Schedule: d.Media.Schedule,
			Map:      d.Media.Map,
			Gallery:  d.Media.Gallery,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, s := range d.SubEvents {
		e.SubEvents = append(e.SubEvents, domain.SubEvent(s))
	}
	for _, r := range d.RSVPs {
		e.RSVPs[r.Email] = domain.RSVPStatus(r.Status)
	}
	e.Normalize()
	return e
}

// MongoEventRepository stores events in the events collection
type MongoEventRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoEventRepository creates a repository over db.events
func NewMongoEventRepository(db *mongo.Database) *MongoEventRepository {
	return &MongoEventRepository{coll: db.Collection(eventsCollection), now: time.Now}
}

// EnsureIndexes creates the lookup indexes used by List
func (r *MongoEventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "organizer_email", Value: 1}}},
		{Keys: bson.D{{Key: "invitees", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create event indexes: %w", err)
	}
	return nil
}

func (r *MongoEventRepository) Create(ctx context.Context, event *domain.Event) error {
	now := r.now().UTC()
	event.ID = uuid.New().String()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Normalize()

	if _, err := r.coll.InsertOne(ctx, toEventDocument(event, now)); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *MongoEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var doc eventDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoEventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	query := bson.M{}
	if filter.Organizer != "" {
		query["organizer_email"] = domain.NormalizeEmail(filter.Organizer)
	}
	if filter.Invitee != "" {
		query["invitees"] = domain.NormalizeEmail(filter.Invitee)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	events := make([]*domain.Event, 0, len(docs))
	for i := range docs {
		events = append(events, docs[i].toDomain())
	}
	return events, nil
}

// findAndUpdate applies update to the document matching filter and returns it post-update.
// A nil event with nil error means the filter matched nothing.
func (r *MongoEventRepository) findAndUpdate(ctx context.Context, filter bson.M, update interface{}) (*domain.Event, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc eventDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoEventRepository) Update(ctx context.Context, id string, patch *domain.EventPatch) (*domain.Event, error) {
	set := bson.M{"updated_at": r.now().UTC()}
	setString := func(field string, v *string) {
		if v != nil {
			set[field] = *v
		}
	}
	setString("name", patch.Name)
	setString("description", patch.Description)
	setString("location", patch.Location)
	setString("event_date", patch.EventDate)
	setString("start_time", patch.StartTime)
	setString("end_time", patch.EndTime)
	setString("additional_info", patch.AdditionalInfo)
	setString("note", patch.Note)
	setString("instructions", patch.Instructions)
	if patch.IsPublic != nil {
		set["is_public"] = *patch.IsPublic
	}
	if patch.SubEvents != nil {
		set["sub_events"] = toSubEventDocuments(*patch.SubEvents)
	}

	filter := bson.M{"_id": id}
	update := bson.M{"$set": set}
	if patch.Invitees != nil {
		invitees := domain.NormalizeEmails(*patch.Invitees)
		if err := domain.ValidateInvitees(invitees); err != nil {
			return nil, err
		}
		set["invitees"] = invitees
		update["$pull"] = bson.M{"rsvps": bson.M{"email": bson.M{"$nin": invitees}}}
		filter["organizer_email"] = bson.M{"$nin": invitees}
	}

	event, err := r.findAndUpdate(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if event != nil {
		return event, nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrEventNotFound
	}
	return nil, domain.NewValidationError("invitees", "organizer cannot be invited to their own event")
}

func (r *MongoEventRepository) AddInvitee(ctx context.Context, id, email string) (*domain.Event, error) {
	email = domain.NormalizeEmail(email)
	filter := bson.M{
		"_id":             id,
		"organizer_email": bson.M{"$ne": email},
		"invitees":        bson.M{"$ne": email},
	}
	update := bson.M{
		"$push": bson.M{"invitees": email},
		"$set":  bson.M{"updated_at": r.now().UTC()},
	}

	for attempt := 0; attempt < maxGuardedAttempts; attempt++ {
		event, err := r.findAndUpdate(ctx, filter, update)
		if err != nil || event != nil {
			return event, err
		}
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := diagnoseInvite(current, email); err != nil {
			return nil, err
		}
	}
	return nil, errContended
}

func (r *MongoEventRepository) RemoveInvitee(ctx context.Context, id, email string) (*domain.Event, error) {
	email = domain.NormalizeEmail(email)
	update := bson.M{
		"$pull": bson.M{
			"invitees": email,
			"rsvps":    bson.M{"email": email},
		},
		"$set": bson.M{"updated_at": r.now().UTC()},
	}

	event, err := r.findAndUpdate(ctx, bson.M{"_id": id, "invitees": email}, update)
	if err != nil || event != nil {
		return event, err
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrEventNotFound
	}
	return nil, domain.ErrNotInvited
}

func (r *MongoEventRepository) SetRSVPStatus(ctx context.Context, id, email string, status domain.RSVPStatus) (*domain.Event, bool, error) {
	if status != domain.RSVPAccepted && status != domain.RSVPDeclined {
		return nil, false, domain.ErrInvalidRSVPStatus
	}
	email = domain.NormalizeEmail(email)

	for attempt := 0; attempt < maxGuardedAttempts; attempt++ {
		now := r.now().UTC()

		// answer an entry that was stored as pending
		event, err := r.findAndUpdate(ctx,
			bson.M{
				"_id":      id,
				"invitees": email,
				"rsvps":    bson.M{"$elemMatch": bson.M{"email": email, "status": string(domain.RSVPPending)}},
			},
			bson.M{"$set": bson.M{
				"rsvps.$.status":       string(status),
				"rsvps.$.responded_at": now,
				"updated_at":           now,
			}},
		)
		if err != nil {
			return nil, false, err
		}
		if event != nil {
			return event, true, nil
		}

		// first answer for this invitee
		event, err = r.findAndUpdate(ctx,
			bson.M{
				"_id":         id,
				"invitees":    email,
				"rsvps.email": bson.M{"$ne": email},
			},
			bson.M{
				"$push": bson.M{"rsvps": rsvpDocument{Email: email, Status: string(status), RespondedAt: now}},
				"$set":  bson.M{"updated_at": now},
			},
		)
		if err != nil {
			return nil, false, err
		}
		if event != nil {
			return event, true, nil
		}

		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		changed, err := diagnoseRSVP(current, email, status)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return current, false, nil
		}
	}
	return nil, false, errContended
}

func (r *MongoEventRepository) AppendPlan(ctx context.Context, id, line string) (*domain.Event, error) {
	literal := bson.D{{Key: "$literal", Value: line}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "additional_info", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$additional_info", ""}}}, ""}}},
				literal,
				bson.D{{Key: "$concat", Value: bson.A{"$additional_info", "\n", literal}}},
			}}}},
			{Key: "updated_at", Value: r.now().UTC()},
		}}},
	}

	event, err := r.findAndUpdate(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

func (r *MongoEventRepository) SetMedia(ctx context.Context, id string, kind domain.MediaKind, path string) (*domain.Event, error) {
	now := r.now().UTC()
	var update bson.M
	switch kind {
	case domain.MediaSchedule:
		update = bson.M{"$set": bson.M{"media.schedule": path, "updated_at": now}}
	case domain.MediaMap:
		update = bson.M{"$set": bson.M{"media.map": path, "updated_at": now}}
	default:
		update = bson.M{"$push": bson.M{"media.gallery": path}, "$set": bson.M{"updated_at": now}}
	}

	event, err := r.findAndUpdate(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

func (r *MongoEventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

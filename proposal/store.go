package proposal

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/huzaifa321s/proposal-maker/logger"
)

// ErrNotFound is returned when a proposal id does not exist.
var ErrNotFound = errors.New("proposal not found")

// ErrMissingFields is returned when a create call lacks required fields.
var ErrMissingFields = errors.New("required fields missing")

// Proposal mirrors the record the pipeline's extract feeds into. Persisting
// is the caller's decision; the pipeline itself never writes here.
type Proposal struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	ClientName           string             `bson:"clientName" json:"clientName"`
	ClientEmail          string             `bson:"clientEmail,omitempty" json:"clientEmail,omitempty"`
	ProjectTitle         string             `bson:"projectTitle" json:"projectTitle"`
	BusinessDescription  string             `bson:"businessDescription,omitempty" json:"businessDescription,omitempty"`
	ProposedSolution     string             `bson:"proposedSolution,omitempty" json:"proposedSolution,omitempty"`
	DevelopmentPlatforms []string           `bson:"developmentPlatforms" json:"developmentPlatforms"`
	ProjectDuration      string             `bson:"projectDuration,omitempty" json:"projectDuration,omitempty"`
	ChargeAmount         float64            `bson:"chargeAmount,omitempty" json:"chargeAmount,omitempty"`
	AdvancePercent       float64            `bson:"advancePercent,omitempty" json:"advancePercent,omitempty"`
	AdditionalCosts      string             `bson:"additionalCosts,omitempty" json:"additionalCosts,omitempty"`
	TimelineMilestones   string             `bson:"timelineMilestones,omitempty" json:"timelineMilestones,omitempty"`
	CallOutcome          string             `bson:"callOutcome" json:"callOutcome"`
	Terms                string             `bson:"terms,omitempty" json:"terms,omitempty"`
	YourName             string             `bson:"yourName" json:"yourName"`
	YourEmail            string             `bson:"yourEmail,omitempty" json:"yourEmail,omitempty"`
	YourPhone            string             `bson:"yourPhone,omitempty" json:"yourPhone,omitempty"`
	Date                 string             `bson:"date" json:"date"`
	Status               string             `bson:"status" json:"status"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// BDM is one business development manager in the directory.
type BDM struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
}

// Page is one page of proposals, newest first.
type Page struct {
	Items      []Proposal
	TotalCount int64
}

// Store is the mongo-backed persistence gateway.
type Store struct {
	client    *mongo.Client
	proposals *mongo.Collection
	bdms      *mongo.Collection
	log       *logger.Logger
}

func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(database)
	return &Store{
		client:    client,
		proposals: db.Collection("proposals"),
		bdms:      db.Collection("bdms"),
		log:       logger.New(),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Create validates required fields, applies defaults, and inserts the record.
func (s *Store) Create(ctx context.Context, p *Proposal) (*Proposal, error) {
	if p.ClientName == "" || p.ProjectTitle == "" || p.YourName == "" {
		return nil, ErrMissingFields
	}

	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.CallOutcome == "" {
		p.CallOutcome = "Interested"
	}
	if p.Status == "" {
		p.Status = "Pending"
	}
	if p.Date == "" {
		p.Date = now.Format("2006-01-02")
	}
	if p.DevelopmentPlatforms == nil {
		p.DevelopmentPlatforms = []string{}
	}

	if _, err := s.proposals.InsertOne(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns one page of proposals sorted by creation time descending.
func (s *Store) List(ctx context.Context, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	total, err := s.proposals.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cur, err := s.proposals.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := []Proposal{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return &Page{Items: items, TotalCount: total}, nil
}

// GetByID fetches one proposal, ErrNotFound when the id is unknown.
func (s *Store) GetByID(ctx context.Context, id string) (*Proposal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var p Proposal
	err = s.proposals.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies a partial field set and returns the updated record.
func (s *Store) Update(ctx context.Context, id string, fields map[string]any) (*Proposal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	delete(fields, "_id")
	delete(fields, "createdAt")
	fields["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p Proposal
	err = s.proposals.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes one proposal and returns the deleted record.
func (s *Store) Delete(ctx context.Context, id string) (*Proposal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var p Proposal
	err = s.proposals.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListBDMs returns the whole directory sorted by name.
func (s *Store) ListBDMs(ctx context.Context) ([]BDM, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.bdms.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := []BDM{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

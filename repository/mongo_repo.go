package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tieubaoca/contract-analyzer/types"
)

type mongoJobRepo struct {
	collection *mongo.Collection
}

// NewMongoJobRepo backs the job registry with a Mongo collection.
func NewMongoJobRepo(db *mongo.Database) JobRepo {
	return &mongoJobRepo{collection: db.Collection("jobs")}
}

func (r *mongoJobRepo) Save(ctx context.Context, job *types.Job) error {
	_, err := r.collection.InsertOne(ctx, job)
	return err
}

func (r *mongoJobRepo) Get(ctx context.Context, jobID string) (*types.Job, error) {
	var job types.Job
	err := r.collection.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *mongoJobRepo) Update(ctx context.Context, job *types.Job) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"job_id": job.JobID}, job,
		options.Replace().SetUpsert(false))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoSessionRepo struct {
	collection *mongo.Collection
}

// NewMongoSessionRepo backs the chat session registry with a Mongo
// collection.
func NewMongoSessionRepo(db *mongo.Database) SessionRepo {
	return &mongoSessionRepo{collection: db.Collection("chat_sessions")}
}

func (r *mongoSessionRepo) Save(ctx context.Context, session *types.ChatSession) error {
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *mongoSessionRepo) Get(ctx context.Context, sessionID string) (*types.ChatSession, error) {
	var session types.ChatSession
	err := r.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *mongoSessionRepo) Update(ctx context.Context, session *types.ChatSession) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"session_id": session.SessionID}, session,
		options.Replace().SetUpsert(false))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

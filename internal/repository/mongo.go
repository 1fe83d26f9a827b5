package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studentpics/internal/store"
	"studentpics/internal/students"
)

const (
	studentsCollection = "students"
	teachersCollection = "teachers"
)

// Mongo stores students and teachers as documents keyed by _id.
type Mongo struct {
	conn     *store.Mongo
	students *mongo.Collection
	teachers *mongo.Collection
}

// NewMongo binds the repository to the connection's database.
func NewMongo(conn *store.Mongo) *Mongo {
	return newMongoFromDB(conn, conn.DB)
}

func newMongoFromDB(conn *store.Mongo, db *mongo.Database) *Mongo {
	return &Mongo{
		conn:     conn,
		students: db.Collection(studentsCollection),
		teachers: db.Collection(teachersCollection),
	}
}

func (m *Mongo) GetStudent(ctx context.Context, email string) (*students.StudentRecord, error) {
	var rec students.StudentRecord
	err := m.students.FindOne(ctx, bson.D{{Key: "_id", Value: email}}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &rec, nil
}

func (m *Mongo) UpsertPicture(ctx context.Context, email, pictureURL, filename string) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "picture_url", Value: pictureURL},
		{Key: "picture_filename", Value: filename},
	}}}
	_, err := m.students.UpdateOne(ctx, bson.D{{Key: "_id", Value: email}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert student: %w", err)
	}
	return nil
}

func (m *Mongo) ListStudents(ctx context.Context) ([]students.StudentRecord, error) {
	cur, err := m.students.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer cur.Close(ctx)

	var recs []students.StudentRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode students: %w", err)
	}
	return recs, nil
}

func (m *Mongo) GetTeacher(ctx context.Context, username string) (*students.TeacherRecord, error) {
	var t students.TeacherRecord
	err := m.teachers.FindOne(ctx, bson.D{{Key: "_id", Value: username}}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return &t, nil
}

func (m *Mongo) AddTeacher(ctx context.Context, username string) error {
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: time.Now().UTC()}}}}
	_, err := m.teachers.UpdateOne(ctx, bson.D{{Key: "_id", Value: username}}, update, options.Update().SetUpsert(true))
	return err
}

func (m *Mongo) Healthy(ctx context.Context) bool {
	if m.conn == nil || m.conn.Client == nil {
		return false
	}
	return m.conn.Client.Ping(ctx, nil) == nil
}

func (m *Mongo) Close() error { return m.conn.Close() }

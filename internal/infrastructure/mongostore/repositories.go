package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	_ interfaces.SubjectRepository       = (*subjectRepository)(nil)
	_ interfaces.StudentRepository       = (*studentRepository)(nil)
	_ interfaces.AllocationRepository    = (*allocationRepository)(nil)
	_ interfaces.SnapshotRepository      = (*snapshotRepository)(nil)
	_ interfaces.ChangeRequestRepository = (*changeRequestRepository)(nil)
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// findOne decodes a single document into out and reports whether one was
// found.
func findOne(ctx context.Context, coll *mongo.Collection, filter interface{}, out interface{}, opts ...*options.FindOneOptions) (bool, error) {
	err := coll.FindOne(ctx, filter, opts...).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func findAll[D any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]D, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

type subjectRepository struct{ coll *mongo.Collection }

func (r *subjectRepository) Create(ctx context.Context, subject *domain.Subject) error {
	ensureID(&subject.SubjectID)
	now := time.Now().UTC()
	subject.CreatedAt, subject.UpdatedAt = now, now
	for i := range subject.Sections {
		subject.Sections[i].SubjectID = subject.SubjectID
	}

	if _, err := r.coll.InsertOne(ctx, newSubjectDoc(subject)); err != nil {
		return fmt.Errorf("failed to create subject: %w", err)
	}
	return nil
}

func (r *subjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	var doc subjectDoc
	found, err := findOne(ctx, r.coll, bson.M{"_id": id.String()}, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc.toDomain()
}

func (r *subjectRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Subject, error) {
	if len(ids) == 0 {
		return []*domain.Subject{}, nil
	}
	docs, err := findAll[subjectDoc](ctx, r.coll, bson.M{"_id": bson.M{"$in": idStrings(ids)}})
	if err != nil {
		return nil, fmt.Errorf("failed to get subjects: %w", err)
	}
	return subjectsToDomain(docs)
}

func (r *subjectRepository) List(ctx context.Context) ([]*domain.Subject, error) {
	docs, err := findAll[subjectDoc](ctx, r.coll, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjectsToDomain(docs)
}

func subjectsToDomain(docs []subjectDoc) ([]*domain.Subject, error) {
	out := make([]*domain.Subject, 0, len(docs))
	for _, d := range docs {
		s, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

type studentRepository struct{ coll *mongo.Collection }

func (r *studentRepository) Create(ctx context.Context, student *domain.Student) error {
	ensureID(&student.StudentID)
	now := time.Now().UTC()
	student.CreatedAt, student.UpdatedAt = now, now
	for i := range student.Preferences {
		student.Preferences[i].StudentID = student.StudentID
	}

	if _, err := r.coll.InsertOne(ctx, newStudentDoc(student)); err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

func (r *studentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	var doc studentDoc
	found, err := findOne(ctx, r.coll, bson.M{"_id": id.String()}, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc.toDomain()
}

func (r *studentRepository) ListWithPreferences(ctx context.Context) ([]*domain.Student, error) {
	docs, err := findAll[studentDoc](ctx, r.coll,
		bson.M{"preferences.0": bson.M{"$exists": true}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	out := make([]*domain.Student, 0, len(docs))
	for _, d := range docs {
		s, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *studentRepository) SavePreferences(ctx context.Context, student *domain.Student) error {
	update := bson.M{"$set": bson.M{
		"preferences":              idStrings(rankedPreferenceIDs(student.Preferences)),
		"preferences_locked":       student.PreferencesLocked,
		"preferences_submitted_at": student.PreferencesSubmittedAt,
		"updated_at":               time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": student.StudentID.String()}, update)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("student %s not found", student.StudentID)
	}
	return nil
}

func (r *studentRepository) MarkAllocated(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": idStrings(ids)}},
		bson.M{"$set": bson.M{"allocated": true}})
	if err != nil {
		return fmt.Errorf("failed to mark students allocated: %w", err)
	}
	return nil
}

func (r *studentRepository) ResetAllocated(ctx context.Context) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"allocated": true},
		bson.M{"$set": bson.M{"allocated": false}})
	if err != nil {
		return fmt.Errorf("failed to reset allocated flags: %w", err)
	}
	return nil
}

type allocationRepository struct{ coll *mongo.Collection }

var allocationOrder = options.Find().SetSort(bson.D{{Key: "assigned_at", Value: 1}, {Key: "_id", Value: 1}})

func (r *allocationRepository) list(ctx context.Context, filter bson.M) ([]*domain.Allocation, error) {
	docs, err := findAll[allocationDoc](ctx, r.coll, filter, allocationOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	out := make([]*domain.Allocation, 0, len(docs))
	for _, d := range docs {
		a, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *allocationRepository) List(ctx context.Context) ([]*domain.Allocation, error) {
	return r.list(ctx, bson.M{})
}

func (r *allocationRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*domain.Allocation, error) {
	return r.list(ctx, bson.M{"subject_id": subjectID.String()})
}

func (r *allocationRepository) GetByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Allocation, error) {
	var doc allocationDoc
	found, err := findOne(ctx, r.coll, bson.M{"student_id": studentID.String()}, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc.toDomain()
}

func (r *allocationRepository) ReplaceAll(ctx context.Context, allocs []*domain.Allocation) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}
	if len(allocs) == 0 {
		return nil
	}

	docs := make([]interface{}, len(allocs))
	for i, a := range allocs {
		ensureID(&a.AllocationID)
		docs[i] = newAllocationDoc(a)
	}
	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to insert allocations: %w", err)
	}
	return nil
}

func (r *allocationRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to delete allocations: %w", err)
	}
	return nil
}

func (r *allocationRepository) Reassign(ctx context.Context, studentID, fromSubject uuid.UUID, to *domain.Allocation) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{
		"student_id": studentID.String(),
		"subject_id": fromSubject.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to remove allocation: %w", err)
	}
	ensureID(&to.AllocationID)
	if _, err := r.coll.InsertOne(ctx, newAllocationDoc(to)); err != nil {
		return fmt.Errorf("failed to store reassigned allocation: %w", err)
	}
	return nil
}

type snapshotRepository struct{ coll *mongo.Collection }

func (r *snapshotRepository) Create(ctx context.Context, snapshot *domain.Snapshot) error {
	ensureID(&snapshot.SnapshotID)
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	for i := range snapshot.Allocations {
		snapshot.Allocations[i].SnapshotID = snapshot.SnapshotID
		snapshot.Allocations[i].Position = i
	}
	if _, err := r.coll.InsertOne(ctx, newSnapshotDoc(snapshot)); err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Snapshot, error) {
	var doc snapshotDoc
	found, err := findOne(ctx, r.coll, bson.M{"_id": id.String()}, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc.toDomain()
}

func (r *snapshotRepository) List(ctx context.Context) ([]*domain.Snapshot, error) {
	docs, err := findAll[snapshotDoc](ctx, r.coll, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	out := make([]*domain.Snapshot, 0, len(docs))
	for _, d := range docs {
		s, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

type changeRequestRepository struct{ coll *mongo.Collection }

func (r *changeRequestRepository) Create(ctx context.Context, req *domain.ChangeRequest) error {
	ensureID(&req.RequestID)
	now := time.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	if req.Status == "" {
		req.Status = domain.ChangeRequestPending
	}
	if _, err := r.coll.InsertOne(ctx, newChangeRequestDoc(req)); err != nil {
		return fmt.Errorf("failed to create change request: %w", err)
	}
	return nil
}

func (r *changeRequestRepository) get(ctx context.Context, filter bson.M) (*domain.ChangeRequest, error) {
	var doc changeRequestDoc
	found, err := findOne(ctx, r.coll, filter, &doc,
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get change request: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc.toDomain()
}

func (r *changeRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChangeRequest, error) {
	return r.get(ctx, bson.M{"_id": id.String()})
}

func (r *changeRequestRepository) GetPendingByStudent(ctx context.Context, studentID uuid.UUID) (*domain.ChangeRequest, error) {
	return r.get(ctx, bson.M{
		"student_id": studentID.String(),
		"status":     string(domain.ChangeRequestPending),
	})
}

func (r *changeRequestRepository) List(ctx context.Context, status domain.ChangeRequestStatus) ([]*domain.ChangeRequest, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	docs, err := findAll[changeRequestDoc](ctx, r.coll, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list change requests: %w", err)
	}
	out := make([]*domain.ChangeRequest, 0, len(docs))
	for _, d := range docs {
		cr, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, nil
}

func (r *changeRequestRepository) Update(ctx context.Context, req *domain.ChangeRequest) error {
	req.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": req.RequestID.String()}, newChangeRequestDoc(req))
	if err != nil {
		return fmt.Errorf("failed to update change request: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("change request %s not found", req.RequestID)
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/hashicorp/go-multierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bqdesc-backupper/internal/description"
	"bqdesc-backupper/internal/errors"
)

// FirestoreDB keeps records as native Firestore documents
type FirestoreDB struct {
	client *firestore.Client
}

// NewFirestoreDB creates a Firestore client. An empty project id is detected
// from the environment.
func NewFirestoreDB(ctx context.Context, config FirestoreConfig) (*FirestoreDB, error) {
	projectID := config.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}

	var opts []option.ClientOption
	if config.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}

	var client *firestore.Client
	var err error
	if config.DatabaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, config.DatabaseID, opts...)
	} else {
		client, err = firestore.NewClient(ctx, projectID, opts...)
	}
	if err != nil {
		return nil, errors.WrapError(err, "failed to create Firestore client")
	}

	return &FirestoreDB{client: client}, nil
}

// Get reads one document
func (f *FirestoreDB) Get(ctx context.Context, collection, id string) (*description.Record, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, errors.NewNotFoundError(
			fmt.Sprintf("document does not exist. collection=%s document_id=%s", collection, id), err)
	}
	if err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to read %s/%s", collection, id))
	}

	var record description.Record
	if err := snap.DataTo(&record); err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("failed to decode %s/%s", collection, id), err)
	}
	return &record, nil
}

// Set writes one document, replacing any previous content
func (f *FirestoreDB) Set(ctx context.Context, collection, id string, record *description.Record) error {
	if _, err := f.client.Collection(collection).Doc(id).Set(ctx, record); err != nil {
		return errors.WrapError(err, fmt.Sprintf("failed to write %s/%s", collection, id))
	}
	return nil
}

// List reads every document of a collection
func (f *FirestoreDB) List(ctx context.Context, collection string) ([]Document, error) {
	snaps, err := f.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to list %s", collection))
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		doc := Document{ID: snap.Ref.ID}
		var record description.Record
		if err := snap.DataTo(&record); err != nil {
			doc.Err = errors.NewValidationError(fmt.Sprintf("failed to decode %s/%s", collection, snap.Ref.ID), err)
		} else {
			doc.Record = &record
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Collections lists the root collections of the database
func (f *FirestoreDB) Collections(ctx context.Context) ([]string, error) {
	refs, err := f.client.Collections(ctx).GetAll()
	if err != nil {
		return nil, errors.WrapError(err, "failed to list collections")
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

// CopyCollection copies every document of src into dst with a BulkWriter.
// Documents are copied as raw data so fields unknown to Record survive.
func (f *FirestoreDB) CopyCollection(ctx context.Context, src, dst string) (int, error) {
	snaps, err := f.client.Collection(src).Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.WrapError(err, fmt.Sprintf("failed to list %s", src))
	}

	bw := f.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(snaps))
	var result *multierror.Error
	for _, snap := range snaps {
		job, err := bw.Set(f.client.Collection(dst).Doc(snap.Ref.ID), snap.Data())
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", snap.Ref.ID, err))
			continue
		}
		jobs = append(jobs, job)
	}
	bw.End()

	copied := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		copied++
	}

	if err := result.ErrorOrNil(); err != nil {
		return copied, errors.WrapError(err, fmt.Sprintf("failed to copy %s to %s", src, dst))
	}
	return copied, nil
}

// Close releases the client
func (f *FirestoreDB) Close() error {
	return f.client.Close()
}

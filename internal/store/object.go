package store

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"bqdesc-backupper/internal/description"
	"bqdesc-backupper/internal/errors"
)

const documentSuffix = ".json"

// Bucket is a flat key/blob namespace such as a directory or a cloud bucket
type Bucket interface {
	// Read returns a NotFound error when key does not exist
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	// Keys lists every key starting with prefix
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Location describes the bucket for logs
	Location() string
	Close() error
}

// ObjectDB stores each document as <collection>/<id>.json in a Bucket,
// optionally compressed
type ObjectDB struct {
	bucket     Bucket
	compressor Compressor
}

// NewObjectDB creates an ObjectDB. A nil compressor stores plain JSON.
func NewObjectDB(bucket Bucket, compressor Compressor) *ObjectDB {
	if compressor == nil {
		compressor = noneCompressor{}
	}
	return &ObjectDB{bucket: bucket, compressor: compressor}
}

func (o *ObjectDB) key(collection, id string) string {
	return path.Join(collection, id+documentSuffix+o.compressor.Extension())
}

// Get reads and decodes one document
func (o *ObjectDB) Get(ctx context.Context, collection, id string) (*description.Record, error) {
	data, err := o.bucket.Read(ctx, o.key(collection, id))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError(
				fmt.Sprintf("document does not exist. collection=%s document_id=%s", collection, id), err)
		}
		return nil, err
	}
	return o.decode(data)
}

// Set encodes and writes one document
func (o *ObjectDB) Set(ctx context.Context, collection, id string, record *description.Record) error {
	data, err := description.MarshalRecord(record)
	if err != nil {
		return err
	}
	compressed, err := o.compressor.Compress(data)
	if err != nil {
		return err
	}
	return o.bucket.Write(ctx, o.key(collection, id), compressed)
}

// List reads every document under collection/, sorted by id
func (o *ObjectDB) List(ctx context.Context, collection string) ([]Document, error) {
	prefix := collection + "/"
	keys, err := o.bucket.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	suffix := documentSuffix + o.compressor.Extension()
	var docs []Document
	for _, key := range keys {
		name := strings.TrimPrefix(key, prefix)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, suffix) {
			continue
		}
		doc := Document{ID: strings.TrimSuffix(name, suffix)}

		data, err := o.bucket.Read(ctx, key)
		if err != nil {
			return nil, err
		}
		doc.Record, doc.Err = o.decode(data)
		docs = append(docs, doc)
	}
	return docs, nil
}

// CopyCollection copies every document of src into dst byte for byte, so
// documents that do not decode are kept as they are
func (o *ObjectDB) CopyCollection(ctx context.Context, src, dst string) (int, error) {
	prefix := src + "/"
	keys, err := o.bucket.Keys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	sort.Strings(keys)

	suffix := documentSuffix + o.compressor.Extension()
	copied := 0
	for _, key := range keys {
		name := strings.TrimPrefix(key, prefix)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, suffix) {
			continue
		}
		data, err := o.bucket.Read(ctx, key)
		if err != nil {
			return copied, err
		}
		if err := o.bucket.Write(ctx, path.Join(dst, name), data); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

// Collections returns the distinct top-level directories of the bucket
func (o *ObjectDB) Collections(ctx context.Context) ([]string, error) {
	keys, err := o.bucket.Keys(ctx, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var collections []string
	for _, key := range keys {
		i := strings.Index(key, "/")
		if i <= 0 {
			continue
		}
		name := key[:i]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		collections = append(collections, name)
	}
	sort.Strings(collections)
	return collections, nil
}

// Close closes the bucket
func (o *ObjectDB) Close() error {
	return o.bucket.Close()
}

func (o *ObjectDB) decode(data []byte) (*description.Record, error) {
	plain, err := o.compressor.Decompress(data)
	if err != nil {
		return nil, err
	}
	return description.UnmarshalRecord(plain)
}

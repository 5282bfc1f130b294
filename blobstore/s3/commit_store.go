package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/blobarena/blobstore"
)

// PointerName is the base name of the blobs CommitStore keeps in DynamoDB.
const PointerName = "CURRENT"

// CommitStore implements blobstore.Store backed by S3, with DynamoDB holding
// the CURRENT pointers. S3 cannot compare-and-swap an object, so pointer
// updates go through conditional DynamoDB writes and concurrent publishers
// cannot silently overwrite each other.
//
// Every directory gets its own pointer history. Table schema:
//   - Partition key: base_uri (string) - baseURI plus the pointer's directory
//   - Sort key: version (number) - the snapshot sequence of the target, or
//     the next free version for targets not named after a sequence
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name blobarena-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	store     *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

var (
	_ blobstore.Store             = (*CommitStore)(nil)
	_ blobstore.ConditionalPutter = (*CommitStore)(nil)
)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentModification is returned when another writer committed the
// same pointer version first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// NewCommitStore creates a new S3+DynamoDB commit store. baseURI (for
// example "s3://bucket/prefix") namespaces the pointers in the table.
func NewCommitStore(store *Store, ddbClient DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		store:     store,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

func isPointer(name string) bool {
	return path.Base(name) == PointerName
}

func (s *CommitStore) partition(name string) string {
	return s.baseURI + "#" + path.Dir(name)
}

// Open opens a blob. Pointer blobs are read from DynamoDB.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if !isPointer(name) {
		return s.store.Open(ctx, name)
	}
	version, target, err := s.latest(ctx, s.partition(name))
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, fmt.Errorf("blob %s: %w", name, blobstore.ErrNotFound)
	}
	return &pointerBlob{content: []byte(target)}, nil
}

// Put writes a blob. Pointer blobs are committed as a new version. A commit
// of an older snapshot than the newest committed one is recorded but not
// served. Put fails with ErrConcurrentModification if another writer
// committed a different target under the same version.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	if isPointer(name) {
		return s.commit(ctx, s.partition(name), string(data))
	}
	return s.store.Put(ctx, name, data)
}

// PutIfNotExists creates a data blob with a conditional S3 write.
func (s *CommitStore) PutIfNotExists(ctx context.Context, name string, data []byte) error {
	if isPointer(name) {
		return fmt.Errorf("pointer %s: %w", name, errors.ErrUnsupported)
	}
	return s.store.PutIfNotExists(ctx, name, data)
}

// Create creates a writable data blob.
func (s *CommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if isPointer(name) {
		return nil, fmt.Errorf("pointer %s: %w", name, errors.ErrUnsupported)
	}
	return s.store.Create(ctx, name)
}

// Delete deletes a data blob. Pointer history is kept.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	if isPointer(name) {
		return nil
	}
	return s.store.Delete(ctx, name)
}

// List lists data blobs with prefix.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.store.List(ctx, prefix)
}

// latest queries DynamoDB for the newest committed version of a pointer.
func (s *CommitStore) latest(ctx context.Context, partition string) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: partition},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to query DynamoDB: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in DynamoDB")
	}
	targetAttr, ok := item["target"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid target attribute in DynamoDB")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse version: %w", err)
	}

	return version, targetAttr.Value, nil
}

// commit stores target as a version of the pointer.
func (s *CommitStore) commit(ctx context.Context, partition, target string) error {
	version, ok := sequenceOf(target)
	if !ok {
		current, _, err := s.latest(ctx, partition)
		if err != nil {
			return err
		}
		version = current + 1
	}

	_, err := s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: partition},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
			"target":   &types.AttributeValueMemberS{Value: target},
		},
		ConditionExpression:                 aws.String("attribute_not_exists(version)"),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			if prev, ok := condErr.Item["target"].(*types.AttributeValueMemberS); ok && prev.Value == target {
				return nil
			}
			return ErrConcurrentModification
		}
		return fmt.Errorf("failed to commit version to DynamoDB: %w", err)
	}

	return nil
}

// sequenceOf returns the positive number a snapshot blob is named after,
// e.g. 7 for "items/00000007.blob".
func sequenceOf(target string) (uint64, bool) {
	digits, _, _ := strings.Cut(path.Base(target), ".")
	seq, err := strconv.ParseUint(digits, 10, 64)
	return seq, err == nil && seq > 0
}

// pointerBlob serves the content of a pointer read from DynamoDB.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Close() error {
	return nil
}

func (b *pointerBlob) Size() int64 {
	return int64(len(b.content))
}

func (b *pointerBlob) Bytes() ([]byte, error) {
	return b.content, nil
}

func (b *pointerBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *pointerBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || off >= int64(len(b.content)) {
		return nil, io.EOF
	}
	end := min(off+length, int64(len(b.content)))
	return io.NopCloser(bytes.NewReader(b.content[off:end])), nil
}

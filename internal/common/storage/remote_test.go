package storage_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymigrate/internal/common/storage"
)

// fakeS3 is an in-memory bucket store that pages ListObjectsV2 results.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]map[string][]byte
	pageSize int
	deletes  int
	putErr   error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]map[string][]byte{}, pageSize: 2}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket := aws.ToString(in.Bucket)
	if f.objects[bucket] == nil {
		f.objects[bucket] = map[string][]byte{}
	}
	f.objects[bucket][aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for key := range f.objects[aws.ToString(in.Bucket)] {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		fmt.Sscanf(*in.ContinuationToken, "%d", &start)
	}
	end := start + f.pageSize
	if end > len(keys) {
		end = len(keys)
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, key := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for _, obj := range in.Delete.Objects {
		delete(f.objects[aws.ToString(in.Bucket)], aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) keys(bucket string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for key := range f.objects[bucket] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func TestS3StorageUploadAndEmpty(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := storage.NewS3StorageWithClient(fake)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.UploadTestCase(ctx, "tests", 11, i, []byte("in"), []byte("out")))
	}
	require.NoError(t, s.UploadTestCase(ctx, "tests", 110, 1, []byte("other"), []byte("other")))
	require.NoError(t, s.UploadFile(ctx, "tests", "/test_cases/11/custom_checker", []byte("bin")))

	assert.Equal(t, []byte("in"), fake.objects["tests"]["test_cases/11/02"])
	assert.Equal(t, []byte("bin"), fake.objects["tests"]["test_cases/11/custom_checker"])

	require.NoError(t, s.EmptyProblem(ctx, "tests", 11))
	assert.Equal(t, []string{"test_cases/110/01", "test_cases/110/01.a"}, fake.keys("tests"))
	assert.Equal(t, 1, fake.deletes)

	// Nothing left under the prefix means no delete request.
	require.NoError(t, s.EmptyProblem(ctx, "tests", 11))
	assert.Equal(t, 1, fake.deletes)
}

func TestS3StoragePropagatesPutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	s := storage.NewS3StorageWithClient(fake)

	err := s.UploadTestCase(context.Background(), "tests", 1, 1, []byte("a"), []byte("b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Error(t, s.UploadTestCase(context.Background(), "", 1, 1, nil, nil))
}

// fakeMinio mimics the channel-based minio listing and removal API.
type fakeMinio struct {
	mu        sync.Mutex
	objects   map[string][]byte
	removeErr map[string]error
}

func (f *fakeMinio) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = data
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (f *fakeMinio) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for full := range f.objects {
		key := strings.TrimPrefix(full, bucket+"/")
		if key != full && strings.HasPrefix(key, opts.Prefix) {
			keys = append(keys, key)
		}
	}
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		ch <- minio.ObjectInfo{Key: key}
	}
	close(ch)
	return ch
}

func (f *fakeMinio) RemoveObjects(ctx context.Context, bucket string, objectsCh <-chan minio.ObjectInfo, _ minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError {
	errCh := make(chan minio.RemoveObjectError, 16)
	go func() {
		defer close(errCh)
		for obj := range objectsCh {
			f.mu.Lock()
			err := f.removeErr[obj.Key]
			if err == nil {
				delete(f.objects, bucket+"/"+obj.Key)
			}
			f.mu.Unlock()
			if err != nil {
				errCh <- minio.RemoveObjectError{ObjectName: obj.Key, Err: err}
			}
		}
	}()
	return errCh
}

func TestR2StorageUploadAndEmpty(t *testing.T) {
	ctx := context.Background()
	fake := &fakeMinio{objects: map[string][]byte{}}
	s := storage.NewR2StorageWithClient(fake)

	require.NoError(t, s.UploadTestCase(ctx, "bucket", 3, 1, []byte("1"), []byte("2")))
	require.NoError(t, s.UploadTestCase(ctx, "bucket", 3, 12, []byte("3"), []byte("4")))
	require.NoError(t, s.UploadTestCase(ctx, "bucket", 33, 1, []byte("5"), []byte("6")))
	assert.Equal(t, []byte("4"), fake.objects["bucket/test_cases/3/12.a"])

	require.NoError(t, s.EmptyProblem(ctx, "bucket", 3))
	assert.Len(t, fake.objects, 2)
	assert.Contains(t, fake.objects, "bucket/test_cases/33/01")
}

func TestR2StorageReportsRemoveFailures(t *testing.T) {
	ctx := context.Background()
	fake := &fakeMinio{
		objects:   map[string][]byte{},
		removeErr: map[string]error{"test_cases/3/01.a": errors.New("locked")},
	}
	s := storage.NewR2StorageWithClient(fake)
	require.NoError(t, s.UploadTestCase(ctx, "bucket", 3, 1, []byte("1"), []byte("2")))

	err := s.EmptyProblem(ctx, "bucket", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 deletes failed")
}

type fakeBlobs struct {
	blobs     map[string][]byte
	deleteErr error
}

func (f *fakeBlobs) UploadBuffer(ctx context.Context, container, blob string, data []byte) error {
	f.blobs[container+"/"+blob] = append([]byte(nil), data...)
	return nil
}

func (f *fakeBlobs) ListBlobNames(ctx context.Context, container, prefix string) ([]string, error) {
	var names []string
	for full := range f.blobs {
		name := strings.TrimPrefix(full, container+"/")
		if name != full && strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeBlobs) DeleteBlob(ctx context.Context, container, blob string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.blobs, container+"/"+blob)
	return nil
}

func TestAzureStorageUploadAndEmpty(t *testing.T) {
	ctx := context.Background()
	fake := &fakeBlobs{blobs: map[string][]byte{}}
	s := storage.NewAzureStorageWithClient(fake)

	require.NoError(t, s.UploadTestCase(ctx, "c", 8, 1, []byte("in"), []byte("out")))
	require.NoError(t, s.UploadTestCase(ctx, "c", 8, 1, []byte("in2"), []byte("out2")))
	require.NoError(t, s.UploadFile(ctx, "c", storage.ProblemObjectKey(8, storage.CheckerSourceName), []byte("int main(){}")))
	assert.Equal(t, []byte("in2"), fake.blobs["c/test_cases/8/01"])
	assert.Len(t, fake.blobs, 3)

	require.NoError(t, s.EmptyProblem(ctx, "c", 8))
	assert.Empty(t, fake.blobs)

	fake.deleteErr = errors.New("lease held")
	require.NoError(t, s.UploadTestCase(ctx, "c", 8, 1, []byte("in"), []byte("out")))
	assert.Error(t, s.EmptyProblem(ctx, "c", 8))
}

// fakeDrive models a folder tree keyed by parent id and child name.
type fakeDrive struct {
	nextID   int
	children map[string]map[string]string
	folders  map[string]bool
	content  map[string][]byte
	creates  int
	updates  int
	trashed  []string
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		children: map[string]map[string]string{},
		folders:  map[string]bool{},
		content:  map[string][]byte{},
	}
}

func (f *fakeDrive) add(parentID, name string, folder bool) string {
	f.nextID++
	id := fmt.Sprintf("id%d", f.nextID)
	if f.children[parentID] == nil {
		f.children[parentID] = map[string]string{}
	}
	f.children[parentID][name] = id
	f.folders[id] = folder
	return id
}

func (f *fakeDrive) FindChild(ctx context.Context, parentID, name string, folder bool) (string, bool, error) {
	id, ok := f.children[parentID][name]
	if !ok || f.folders[id] != folder {
		return "", false, nil
	}
	return id, true, nil
}

func (f *fakeDrive) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	return f.add(parentID, name, true), nil
}

func (f *fakeDrive) CreateFile(ctx context.Context, parentID, name string, data []byte) error {
	f.creates++
	f.content[f.add(parentID, name, false)] = data
	return nil
}

func (f *fakeDrive) UpdateFile(ctx context.Context, fileID string, data []byte) error {
	f.updates++
	f.content[fileID] = data
	return nil
}

// Trash hides the item from FindChild, as the trashed=false query does.
func (f *fakeDrive) Trash(ctx context.Context, fileID string) error {
	f.trashed = append(f.trashed, fileID)
	for parent, kids := range f.children {
		for name, id := range kids {
			if id == fileID {
				delete(f.children[parent], name)
			}
		}
	}
	return nil
}

func (f *fakeDrive) lookup(parentID string, names ...string) (string, bool) {
	id := parentID
	for _, name := range names {
		next, ok := f.children[id][name]
		if !ok {
			return "", false
		}
		id = next
	}
	return id, true
}

func TestGDriveStorageUploadReusesFoldersAndFiles(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDrive()
	s := storage.NewGDriveStorageWithAPI(fake, "root")

	require.NoError(t, s.UploadTestCase(ctx, "tests", 4, 1, []byte("a"), []byte("b")))
	require.NoError(t, s.UploadTestCase(ctx, "tests", 4, 2, []byte("c"), []byte("d")))
	require.NoError(t, s.UploadTestCase(ctx, "tests", 4, 1, []byte("a2"), []byte("b2")))

	assert.Equal(t, 4, fake.creates)
	assert.Equal(t, 2, fake.updates)
	assert.Len(t, fake.children["root"], 1)

	id, ok := fake.lookup("root", "tests", "test_cases", "4", "01")
	require.True(t, ok)
	assert.Equal(t, []byte("a2"), fake.content[id])
}

func TestGDriveStorageEmptyProblemNeverCreates(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDrive()
	s := storage.NewGDriveStorageWithAPI(fake, "root")

	require.NoError(t, s.EmptyProblem(ctx, "tests", 4))
	assert.Empty(t, fake.children["root"])

	require.NoError(t, s.UploadTestCase(ctx, "tests", 4, 1, []byte("a"), []byte("b")))
	require.NoError(t, s.UploadTestCase(ctx, "tests", 5, 1, []byte("a"), []byte("b")))
	folderID, ok := fake.lookup("root", "tests", "test_cases", "4")
	require.True(t, ok)
	require.NoError(t, s.EmptyProblem(ctx, "tests", 4))

	assert.Equal(t, []string{folderID}, fake.trashed)
	_, ok = fake.lookup("root", "tests", "test_cases", "4")
	assert.False(t, ok)
	_, ok = fake.lookup("root", "tests", "test_cases", "5", "01.a")
	assert.True(t, ok)
}

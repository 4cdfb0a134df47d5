package server

import (
	"context"
	"errors"
	"io"
	"sync"
)

// fakeBlobStore records uploads and can be told to fail.
type fakeBlobStore struct {
	ref    ObjectRef
	err    error
	calls  int
	gotLen int64
}

func (f *fakeBlobStore) Upload(_ context.Context, body io.Reader, size int64, _ string) (ObjectRef, error) {
	f.calls++
	f.gotLen = size
	if f.err != nil {
		return ObjectRef{}, f.err
	}
	// Drain like a real store would.
	_, _ = io.Copy(io.Discard, body)
	return f.ref, nil
}

// fakeImageStore keeps records in memory, newest last.
type fakeImageStore struct {
	mu      sync.Mutex
	records []ImageRecord
	err     error
}

func (f *fakeImageStore) Insert(_ context.Context, rec *ImageRecord) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeImageStore) Latest(_ context.Context) (ImageRecord, error) {
	if f.err != nil {
		return ImageRecord{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		return ImageRecord{}, ErrNoImages
	}
	return f.records[len(f.records)-1], nil
}

func (f *fakeImageStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeUserStore enforces email uniqueness like the real table does.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]UserAccount
	err   error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]UserAccount)}
}

func (f *fakeUserStore) Create(_ context.Context, u *UserAccount) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return ErrEmailTaken
	}
	f.users[u.Email] = *u
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (UserAccount, error) {
	if f.err != nil {
		return UserAccount{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return UserAccount{}, ErrUserNotFound
	}
	return u, nil
}

// recordingNotifier captures broadcast events synchronously.
type recordingNotifier struct {
	mu     sync.Mutex
	events [][2]string // imageURL, publicID
}

func (n *recordingNotifier) NewImage(imageURL, publicID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, [2]string{imageURL, publicID})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

var errBoom = errors.New("boom")

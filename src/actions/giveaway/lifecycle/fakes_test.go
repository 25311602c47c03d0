package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/stake-plus/giveaways/src/actions/giveaway/eligibility"
)

type fakeNotifier struct {
	mu        sync.Mutex
	next      int
	posted    map[string]Announcement
	updates   []Announcement
	deleted   []string
	messages  []string
	dms       map[string][]string
	postErr   error
	updateErr error
	deleteErr error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{posted: map[string]Announcement{}, dms: map[string][]string{}}
}

func (f *fakeNotifier) PostAnnouncement(_ context.Context, _ string, a Announcement) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", f.postErr
	}
	f.next++
	id := fmt.Sprintf("m%d", f.next)
	f.posted[id] = a
	return id, nil
}

func (f *fakeNotifier) UpdateAnnouncement(_ context.Context, _, _ string, a Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, a)
	return nil
}

func (f *fakeNotifier) DeleteAnnouncement(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeNotifier) PostMessage(_ context.Context, _, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, content)
	return nil
}

func (f *fakeNotifier) DirectMessage(_ context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

type recordedEvent struct {
	kind   string
	id     string
	fields map[string]interface{}
}

type fakeSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *fakeSink) Emit(_ context.Context, kind, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{kind: kind, id: id, fields: fields})
	return nil
}

func (s *fakeSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.kind
	}
	return out
}

type levelTable map[string]int

func (l levelTable) Level(_ context.Context, _, userID string) (int, error) {
	return l[userID], nil
}

var _ Eligibility = (*eligibility.Evaluator)(nil)

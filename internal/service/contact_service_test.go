package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/portfolio/backend/internal/mailer"
	"github.com/portfolio/backend/internal/model"
	"github.com/portfolio/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// mockMessageRepository is an in-memory stub for testing.
// ---------------------------------------------------------------------------

type mockMessageRepository struct {
	appendFunc   func(ctx context.Context, msg *model.StoredMessage) (int64, error)
	listFunc     func(ctx context.Context) ([]*model.StoredMessage, error)
	markReadFunc func(ctx context.Context, id int64) error
	appended     []*model.StoredMessage
}

func (m *mockMessageRepository) Append(ctx context.Context, msg *model.StoredMessage) (int64, error) {
	m.appended = append(m.appended, msg)
	if m.appendFunc != nil {
		return m.appendFunc(ctx, msg)
	}
	return msg.ID, nil
}

func (m *mockMessageRepository) List(ctx context.Context) ([]*model.StoredMessage, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return m.appended, nil
}

func (m *mockMessageRepository) MarkRead(ctx context.Context, id int64) error {
	if m.markReadFunc != nil {
		return m.markReadFunc(ctx, id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// mockNotifier
// ---------------------------------------------------------------------------

type mockNotifier struct {
	contactFunc func(ctx context.Context, sub model.ContactSubmission) ([]mailer.Receipt, error)
	visitFunc   func(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error)
	contacts    []model.ContactSubmission
	visits      []model.VisitEvent
}

func (m *mockNotifier) NotifyContact(ctx context.Context, sub model.ContactSubmission) ([]mailer.Receipt, error) {
	m.contacts = append(m.contacts, sub)
	if m.contactFunc != nil {
		return m.contactFunc(ctx, sub)
	}
	return []mailer.Receipt{{MessageID: "<a@x>"}, {MessageID: "<b@x>"}}, nil
}

func (m *mockNotifier) NotifyVisit(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error) {
	m.visits = append(m.visits, ev)
	if m.visitFunc != nil {
		return m.visitFunc(ctx, ev)
	}
	return mailer.Receipt{MessageID: "<v@x>"}, nil
}

func sampleSubmission() model.ContactSubmission {
	return model.ContactSubmission{
		Name:      "Jane Doe",
		Email:     "jane@example.com",
		Message:   "Hello!",
		Timestamp: "2024-01-01T00:00:00Z",
	}
}

// ---------------------------------------------------------------------------
// Submit tests
// ---------------------------------------------------------------------------

func TestContactService_Submit_StoresThenNotifies(t *testing.T) {
	repo := &mockMessageRepository{}
	var storedBeforeSend bool
	notifier := &mockNotifier{
		contactFunc: func(ctx context.Context, sub model.ContactSubmission) ([]mailer.Receipt, error) {
			storedBeforeSend = len(repo.appended) == 1
			return []mailer.Receipt{{}, {}}, nil
		},
	}
	svc := NewContactService(repo, notifier, nil)

	res, err := svc.Submit(context.Background(), sampleSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !storedBeforeSend {
		t.Error("expected the message to be stored before notifications are sent")
	}
	if len(repo.appended) != 1 {
		t.Fatalf("expected 1 append, got %d", len(repo.appended))
	}
	saved := repo.appended[0]
	if saved.Read {
		t.Error("expected new message to be unread")
	}
	if saved.Email != "jane@example.com" || saved.Name != "Jane Doe" || saved.Timestamp != "2024-01-01T00:00:00Z" {
		t.Errorf("unexpected stored message: %+v", saved)
	}
	if res.ID != saved.ID || res.ID == 0 {
		t.Errorf("expected result id %d, got %d", saved.ID, res.ID)
	}
	if len(res.Receipts) != 2 {
		t.Errorf("expected 2 receipts, got %d", len(res.Receipts))
	}
}

func TestContactService_Submit_UsesRepositoryID(t *testing.T) {
	repo := &mockMessageRepository{
		appendFunc: func(ctx context.Context, msg *model.StoredMessage) (int64, error) {
			return 99, nil
		},
	}
	res, err := NewContactService(repo, &mockNotifier{}, nil).Submit(context.Background(), sampleSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != 99 {
		t.Errorf("expected id 99, got %d", res.ID)
	}
}

func TestContactService_Submit_WithoutStore(t *testing.T) {
	notifier := &mockNotifier{}
	res, err := NewContactService(nil, notifier, nil).Submit(context.Background(), sampleSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != 0 {
		t.Errorf("expected zero id without a store, got %d", res.ID)
	}
	if len(notifier.contacts) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.contacts))
	}
}

func TestContactService_Submit_StorageErrorSkipsNotify(t *testing.T) {
	diskErr := errors.New("disk full")
	repo := &mockMessageRepository{
		appendFunc: func(ctx context.Context, msg *model.StoredMessage) (int64, error) {
			return 0, diskErr
		},
	}
	notifier := &mockNotifier{}
	_, err := NewContactService(repo, notifier, nil).Submit(context.Background(), sampleSubmission())
	if !errors.Is(err, ErrStorage) || !errors.Is(err, diskErr) {
		t.Fatalf("expected ErrStorage wrapping disk error, got %v", err)
	}
	if len(notifier.contacts) != 0 {
		t.Error("expected no notification after a storage failure")
	}
}

func TestContactService_Submit_TransportError(t *testing.T) {
	repo := &mockMessageRepository{}
	notifier := &mockNotifier{
		contactFunc: func(ctx context.Context, sub model.ContactSubmission) ([]mailer.Receipt, error) {
			return nil, mailer.ErrSendFailed
		},
	}
	res, err := NewContactService(repo, notifier, nil).Submit(context.Background(), sampleSubmission())
	if !errors.Is(err, ErrTransport) || !errors.Is(err, mailer.ErrSendFailed) {
		t.Fatalf("expected ErrTransport wrapping ErrSendFailed, got %v", err)
	}
	if res == nil || res.ID == 0 {
		t.Error("expected the stored id to be reported alongside the send failure")
	}
	if len(repo.appended) != 1 {
		t.Error("expected the message to stay stored")
	}
}

func TestContactService_Submit_IDsStrictlyIncrease(t *testing.T) {
	repo := &mockMessageRepository{}
	svc := NewContactService(repo, &mockNotifier{}, nil).(*contactServiceImpl)
	fixed := time.UnixMilli(1704067200000)
	svc.ids.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(context.Background(), sampleSubmission()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	want := []int64{1704067200000, 1704067200001, 1704067200002}
	for i, m := range repo.appended {
		if m.ID != want[i] {
			t.Errorf("append %d: expected id %d, got %d", i, want[i], m.ID)
		}
	}
}

// ---------------------------------------------------------------------------
// List / MarkRead tests
// ---------------------------------------------------------------------------

func TestContactService_List(t *testing.T) {
	repo := &mockMessageRepository{
		listFunc: func(ctx context.Context) ([]*model.StoredMessage, error) {
			return []*model.StoredMessage{{ID: 1}, {ID: 2}}, nil
		},
	}
	got, err := NewContactService(repo, &mockNotifier{}, nil).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 messages, got %d", len(got))
	}
}

func TestContactService_List_Errors(t *testing.T) {
	if _, err := NewContactService(nil, &mockNotifier{}, nil).List(context.Background()); !errors.Is(err, ErrStoreDisabled) {
		t.Errorf("expected ErrStoreDisabled, got %v", err)
	}
	repo := &mockMessageRepository{
		listFunc: func(ctx context.Context) ([]*model.StoredMessage, error) {
			return nil, errors.New("decode")
		},
	}
	if _, err := NewContactService(repo, &mockNotifier{}, nil).List(context.Background()); !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func TestContactService_MarkRead(t *testing.T) {
	var gotID int64
	repo := &mockMessageRepository{
		markReadFunc: func(ctx context.Context, id int64) error {
			gotID = id
			if id == 404 {
				return repository.ErrNotFound
			}
			return nil
		},
	}
	svc := NewContactService(repo, &mockNotifier{}, nil)

	if err := svc.MarkRead(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != 7 {
		t.Errorf("expected id 7, got %d", gotID)
	}
	if err := svc.MarkRead(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := NewContactService(nil, &mockNotifier{}, nil).MarkRead(context.Background(), 1); !errors.Is(err, ErrStoreDisabled) {
		t.Errorf("expected ErrStoreDisabled, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// VisitService
// ---------------------------------------------------------------------------

func TestVisitService_Track(t *testing.T) {
	notifier := &mockNotifier{}
	ev := model.VisitEvent{UserAgent: "Unknown", Referrer: "Direct Visit", Timestamp: "2024-01-01T00:00:00Z"}
	r, err := NewVisitService(notifier).Track(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MessageID != "<v@x>" {
		t.Errorf("unexpected receipt %+v", r)
	}
	if len(notifier.visits) != 1 || notifier.visits[0] != ev {
		t.Errorf("expected the event to be forwarded, got %+v", notifier.visits)
	}
}

func TestVisitService_Track_Error(t *testing.T) {
	notifier := &mockNotifier{
		visitFunc: func(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error) {
			return mailer.Receipt{}, mailer.ErrSendFailed
		},
	}
	_, err := NewVisitService(notifier).Track(context.Background(), model.VisitEvent{})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

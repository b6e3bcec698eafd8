package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	brokermock "github.com/lxp-platform/fabric/api/internal/broker/mock"
	"github.com/lxp-platform/fabric/api/internal/domain"
	repomock "github.com/lxp-platform/fabric/api/internal/repository/mock"
	sessionmock "github.com/lxp-platform/fabric/api/internal/sessionstore/mock"
	"github.com/lxp-platform/fabric/api/internal/streamhub"
	"github.com/lxp-platform/fabric/api/internal/usecase"
)

func TestSubmitTask_RejectsUnknownFunction(t *testing.T) {
	pub := &brokermock.Publisher{}
	docs := &repomock.DocumentStore{}
	uc := usecase.NewSubmitTask(pub, docs, zap.NewNop())

	_, err := uc.Execute(context.Background(), "not-a-function", domain.SubmitRequest{UserID: "u1"})
	if !errors.Is(err, domain.ErrInvalidFunction) {
		t.Fatalf("expected ErrInvalidFunction, got %v", err)
	}
}

func TestSubmitTask_RejectsEmptyUserID(t *testing.T) {
	pub := &brokermock.Publisher{}
	docs := &repomock.DocumentStore{}
	uc := usecase.NewSubmitTask(pub, docs, zap.NewNop())

	_, err := uc.Execute(context.Background(), "assist", domain.SubmitRequest{})
	if !errors.Is(err, domain.ErrEmptyUserID) {
		t.Fatalf("expected ErrEmptyUserID, got %v", err)
	}
}

func TestSubmitTask_RejectsUnknownSubFunction(t *testing.T) {
	pub := &brokermock.Publisher{}
	docs := &repomock.DocumentStore{}
	uc := usecase.NewSubmitTask(pub, docs, zap.NewNop())

	_, err := uc.Execute(context.Background(), "assist", domain.SubmitRequest{UserID: "u1", SubFunction: "bogus"})
	if !errors.Is(err, domain.ErrInvalidSubFunction) {
		t.Fatalf("expected ErrInvalidSubFunction, got %v", err)
	}
}

func TestSubmitTask_PublishesTaskAndReturnsIDs(t *testing.T) {
	pub := &brokermock.Publisher{}
	docs := &repomock.DocumentStore{}
	uc := usecase.NewSubmitTask(pub, docs, zap.NewNop())

	resp, err := uc.Execute(context.Background(), "assist", domain.SubmitRequest{UserID: "u1", Prompt: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.JobID == "" || resp.ThreadID == "" {
		t.Fatalf("expected non-empty job/thread ids, got %+v", resp)
	}
	if len(pub.Tasks) != 1 {
		t.Fatalf("expected 1 published task, got %d", len(pub.Tasks))
	}
	if pub.Tasks[0].Function != domain.FunctionAssist {
		t.Errorf("expected assist function, got %s", pub.Tasks[0].Function)
	}
}

func TestSubmitTask_PublishFailurePropagates(t *testing.T) {
	pub := &brokermock.Publisher{
		PublishTaskFn: func(ctx context.Context, task *domain.Task) error {
			return domain.ErrBrokerUnavailable
		},
	}
	docs := &repomock.DocumentStore{}
	uc := usecase.NewSubmitTask(pub, docs, zap.NewNop())

	_, err := uc.Execute(context.Background(), "assist", domain.SubmitRequest{UserID: "u1"})
	if !errors.Is(err, domain.ErrBrokerUnavailable) {
		t.Fatalf("expected ErrBrokerUnavailable, got %v", err)
	}
}

func TestStartSession_ReturnsGreetingFromHub(t *testing.T) {
	pub := &brokermock.Publisher{
		PublishTaskFn: func(ctx context.Context, task *domain.Task) error {
			return nil
		},
	}
	docs := &repomock.DocumentStore{}
	hub := streamhub.New()

	// Intercept the publish and simulate the worker's reply by publishing
	// a greeting chunk on the session filter right away.
	pub.PublishTaskFn = func(ctx context.Context, task *domain.Task) error {
		go hub.Publish(task.SessionID, domain.Result{
			SessionID: task.SessionID,
			Event:     domain.EventGreeting,
			Chunk:     "hello, welcome",
		})
		return nil
	}

	uc := usecase.NewStartSession(pub, docs, hub, time.Second, zap.NewNop())

	resp, err := uc.Execute(context.Background(), domain.SessionStartRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Greeting != "hello, welcome" {
		t.Errorf("expected greeting chunk, got %q", resp.Greeting)
	}
}

func TestStartSession_TimesOutWithoutGreeting(t *testing.T) {
	pub := &brokermock.Publisher{}
	docs := &repomock.DocumentStore{}
	hub := streamhub.New()

	uc := usecase.NewStartSession(pub, docs, hub, 20*time.Millisecond, zap.NewNop())

	_, err := uc.Execute(context.Background(), domain.SessionStartRequest{UserID: "u1"})
	if !errors.Is(err, domain.ErrGreetingTimeout) {
		t.Fatalf("expected ErrGreetingTimeout, got %v", err)
	}
}

func TestSendChat_RejectsClosedSession(t *testing.T) {
	pub := &brokermock.Publisher{}
	sessions := &sessionmock.Store{
		States: map[string]*domain.SessionState{
			"s1": {SessionID: "s1", Status: domain.SessionClosed},
		},
	}
	uc := usecase.NewSendChat(pub, sessions, zap.NewNop())

	_, err := uc.Execute(context.Background(), domain.ChatRequest{SessionID: "s1", SellerMsg: "hi"})
	if !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSendChat_RejectsUnknownSession(t *testing.T) {
	pub := &brokermock.Publisher{}
	sessions := &sessionmock.Store{}
	uc := usecase.NewSendChat(pub, sessions, zap.NewNop())

	_, err := uc.Execute(context.Background(), domain.ChatRequest{SessionID: "missing", SellerMsg: "hi"})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSendChat_PublishesOnOpenSession(t *testing.T) {
	pub := &brokermock.Publisher{}
	sessions := &sessionmock.Store{
		States: map[string]*domain.SessionState{
			"s1": {SessionID: "s1", Status: domain.SessionAwaitingTurn},
		},
	}
	uc := usecase.NewSendChat(pub, sessions, zap.NewNop())

	resp, err := uc.Execute(context.Background(), domain.ChatRequest{SessionID: "s1", SellerMsg: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "message published" {
		t.Errorf("unexpected status: %s", resp.Status)
	}
	if len(pub.Tasks) != 1 {
		t.Fatalf("expected 1 published task, got %d", len(pub.Tasks))
	}
	if pub.Tasks[0].SubFunction != "chat" {
		t.Errorf("expected sub_function chat, got %s", pub.Tasks[0].SubFunction)
	}
}

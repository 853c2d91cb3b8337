//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Conn is a live transport handle owned by exactly one session. Deliver and
// Ping are non-blocking best-effort operations; Close is idempotent and
// unblocks the connection's read loop so teardown can run.
type Conn interface {
	Deliver(ctx context.Context, e event.DomainEvent) error
	Ping() error
	Close(reason string) error
}

// ITokenVerifier resolves an opaque credential into a stable user id.
type ITokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// IMessageStore is the persistence surface the routing core consumes.
// It must be safe for concurrent use; transactional integrity is its
// responsibility, not the core's.
type IMessageStore interface {
	AddMessage(ctx context.Context, senderID, receiverID, text string) (domain.Message, error)
	RecentMessages(ctx context.Context, userID string, limit int) ([]domain.Message, error)
}

// IUserDirectory is the user-directory surface the core consumes: receiver
// validation and the persisted online flag.
type IUserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	SetOnline(ctx context.Context, userID string, online bool) error
}

type WorkerName string

// Worker doesn't protect itself: panics and restarts are the supervisor's job.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

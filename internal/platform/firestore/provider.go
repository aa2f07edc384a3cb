package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bazaar-mobile/api/internal/platform/config"
)

const (
	dialTimeout        = 10 * time.Second
	txAttempts         = 5
	txTimeout          = 15 * time.Second
	healthCollection   = "_health"
	healthDocument     = "ping"
	emulatorHostEnv    = "FIRESTORE_EMULATOR_HOST"
	fallbackProjectEnv = "GOOGLE_CLOUD_PROJECT"
)

// ErrProviderClosed is returned once Close has been called.
var ErrProviderClosed = errors.New("firestore: provider is closed")

// TxFunc runs inside a Firestore transaction and may be invoked again on contention.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// Provider owns the process-wide Firestore client. The client is dialled on first use so that
// the memory backend and unit tests never touch the network.
type Provider struct {
	projectID    string
	emulatorHost string
	extraOpts    []option.ClientOption
	txAttempts   int
	txTimeout    time.Duration

	mu     sync.Mutex
	client *firestore.Client
	closed bool
}

// ProviderOption customises a Provider.
type ProviderOption func(*Provider)

// WithClientOptions appends options passed to firestore.NewClient.
func WithClientOptions(opts ...option.ClientOption) ProviderOption {
	return func(p *Provider) { p.extraOpts = append(p.extraOpts, opts...) }
}

// WithTransactionPolicy overrides retry attempts and the upper bound on transaction duration.
func WithTransactionPolicy(attempts int, timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		if attempts > 0 {
			p.txAttempts = attempts
		}
		if timeout > 0 {
			p.txTimeout = timeout
		}
	}
}

// NewProvider resolves the project and emulator settings; GOOGLE_CLOUD_PROJECT and
// FIRESTORE_EMULATOR_HOST fill in blanks.
func NewProvider(cfg config.FirestoreConfig, opts ...ProviderOption) *Provider {
	p := &Provider{
		projectID:    firstNonEmpty(cfg.ProjectID, os.Getenv(fallbackProjectEnv)),
		emulatorHost: firstNonEmpty(cfg.EmulatorHost, os.Getenv(emulatorHostEnv)),
		txAttempts:   txAttempts,
		txTimeout:    txTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Client returns the shared client. Dial failures are returned to the caller and retried on the next call.
func (p *Provider) Client(ctx context.Context) (*firestore.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.closed:
		return nil, ErrProviderClosed
	case p.client != nil:
		return p.client, nil
	case p.projectID == "":
		return nil, errors.New("firestore: project id is required")
	}

	opts := append([]option.ClientOption(nil), p.extraOpts...)
	if p.emulatorHost != "" {
		opts = append(opts,
			option.WithEndpoint(p.emulatorHost),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	client, err := firestore.NewClient(dialCtx, p.projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	p.client = client
	return client, nil
}

// Ping reads a sentinel document. NotFound still proves the backend answered.
func (p *Provider) Ping(ctx context.Context) error {
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Collection(healthCollection).Doc(healthDocument).Get(ctx); err != nil {
		wrapped := WrapError("firestore.ping", err)
		if repoErr := (*Error)(nil); errors.As(wrapped, &repoErr) && repoErr.IsNotFound() {
			return nil
		}
		return wrapped
	}
	return nil
}

// RunTransaction runs fn with the provider's retry policy. The transaction is bounded by the
// policy timeout unless ctx already expires sooner.
func (p *Provider) RunTransaction(ctx context.Context, fn TxFunc) error {
	if fn == nil {
		return WrapError("transaction", errors.New("firestore: transaction function is nil"))
	}
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > p.txTimeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.txTimeout)
		defer cancel()
	}
	return WrapError("transaction", client.RunTransaction(ctx, fn, firestore.MaxAttempts(p.txAttempts)))
}

// Close releases the client. The provider cannot be reused afterwards.
func (p *Provider) Close(context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.client == nil {
		return nil
	}
	client := p.client
	p.client = nil
	return client.Close()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

package fiscal_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vfarias/gestor-api/internal/application/fiscal"
	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
	"github.com/vfarias/gestor-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes em memória compartilhados pelos testes do pacote
// ──────────────────────────────────────────────────────────────────────────────

type memDocs struct {
	mu    sync.Mutex
	docs  map[string]*entity.FiscalDocument
	items map[string][]*entity.FiscalDocumentItem
	serie map[string]int64
}

func newMemDocs() *memDocs {
	return &memDocs{
		docs:  make(map[string]*entity.FiscalDocument),
		items: make(map[string][]*entity.FiscalDocumentItem),
		serie: make(map[string]int64),
	}
}

func (m *memDocs) Create(_ context.Context, doc *entity.FiscalDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocs) CreateItem(_ context.Context, item *entity.FiscalDocumentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.DocumentID] = append(m.items[item.DocumentID], &cp)
	return nil
}

func (m *memDocs) GetByID(_ context.Context, id string) (*entity.FiscalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (m *memDocs) GetItems(_ context.Context, documentID string) ([]*entity.FiscalDocumentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.FiscalDocumentItem(nil), m.items[documentID]...), nil
}

func (m *memDocs) Update(_ context.Context, doc *entity.FiscalDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; !ok {
		return fmt.Errorf("documento %s não existe", doc.ID)
	}
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocs) NextNumber(_ context.Context, documentType, series string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := documentType + "/" + series
	m.serie[key]++
	return m.serie[key], nil
}

func (m *memDocs) ListStaleProcessing(_ context.Context, olderThan time.Time, limit int) ([]*entity.FiscalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.FiscalDocument
	for _, doc := range m.docs {
		if doc.Status == entity.StatusProcessing && doc.UpdatedAt.Before(olderThan) {
			cp := *doc
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memDocs) GetStatusProjection(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return m.GetByID(ctx, id)
}

type memEvents struct {
	mu     sync.Mutex
	events []*entity.FiscalEvent
}

func (m *memEvents) Append(_ context.Context, event *entity.FiscalEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *event
	m.events = append(m.events, &cp)
	return nil
}

func (m *memEvents) ListByDocument(_ context.Context, documentID string) ([]*entity.FiscalEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.FiscalEvent
	for _, ev := range m.events {
		if ev.DocumentID == documentID {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memQueue struct {
	mu      sync.Mutex
	entries []*entity.TransmissionQueueEntry
}

func (m *memQueue) Create(_ context.Context, entry *entity.TransmissionQueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.DocumentID == entry.DocumentID && e.Status == entity.QueueStatusPending {
			return fmt.Errorf("entrada pendente duplicada para %s", entry.DocumentID)
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memQueue) GetByID(_ context.Context, id string) (*entity.TransmissionQueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memQueue) HasPendingForDocument(_ context.Context, documentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.DocumentID == documentID && e.Status == entity.QueueStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memQueue) ListPending(_ context.Context, documentType string, limit int) ([]*entity.TransmissionQueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TransmissionQueueEntry
	for _, e := range m.entries {
		if e.DocumentType == documentType && e.Status == entity.QueueStatusPending {
			cp := *e
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memQueue) Resolve(_ context.Context, id, status, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id && e.Status == entity.QueueStatusPending {
			now := time.Now()
			e.Status = status
			e.LastError = lastError
			e.ResolvedAt = &now
		}
	}
	return nil
}

// all devolve uma cópia de todas as entradas (inclusive resolvidas).
func (m *memQueue) all() []*entity.TransmissionQueueEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.TransmissionQueueEntry, 0, len(m.entries))
	for _, e := range m.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// fakeTx executa o callback direto sobre os fakes, sem transação real.
type fakeTx struct {
	docs   *memDocs
	events *memEvents
	queue  *memQueue
}

func (t *fakeTx) Run(_ context.Context, fn func(
	docs repository.FiscalDocumentRepository,
	events repository.FiscalEventRepository,
	queue repository.TransmissionQueueRepository,
) error) error {
	return fn(t.docs, t.events, t.queue)
}

// fakeCerts responde sempre o mesmo veredito de certificado.
type fakeCerts struct {
	ok     bool
	reason string
	err    error
}

func (c *fakeCerts) IsSubmittable(context.Context, string) (bool, string, error) {
	return c.ok, c.reason, c.err
}

// fakeGateway devolve resultados roteirizados e registra as chamadas.
type fakeGateway struct {
	mu           sync.Mutex
	submitResult *fiscal.GatewayResult
	submitErr    error
	cancelResult *fiscal.GatewayResult
	cancelErr    error
	queryResult  *fiscal.GatewayResult
	queryErr     error
	submitCalls  int
	cancelCalls  int
	queryCalls   int
}

func (g *fakeGateway) Submit(context.Context, *entity.FiscalDocument, []*entity.FiscalDocumentItem) (*fiscal.GatewayResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitCalls++
	return g.submitResult, g.submitErr
}

func (g *fakeGateway) Cancel(context.Context, *entity.FiscalDocument, string) (*fiscal.GatewayResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelCalls++
	return g.cancelResult, g.cancelErr
}

func (g *fakeGateway) QueryStatus(context.Context, *entity.FiscalDocument) (*fiscal.GatewayResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queryCalls++
	return g.queryResult, g.queryErr
}

// fakeNotifier registra as notificações de mudança.
type fakeNotifier struct {
	mu      sync.Mutex
	changes []string // "docID:status"
}

func (n *fakeNotifier) DocumentChanged(documentID, status string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, documentID+":"+status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ambiente de teste
// ──────────────────────────────────────────────────────────────────────────────

type lifecycleEnv struct {
	docs      *memDocs
	events    *memEvents
	queue     *memQueue
	certs     *fakeCerts
	notifier  *fakeNotifier
	lifecycle *fiscal.LifecycleUseCase
}

func newLifecycleEnv() *lifecycleEnv {
	docs := newMemDocs()
	events := &memEvents{}
	queue := &memQueue{}
	certs := &fakeCerts{ok: true}
	notifier := &fakeNotifier{}
	tx := &fakeTx{docs: docs, events: events, queue: queue}
	log := logger.New(logger.Config{Env: "test", Level: "error"})
	return &lifecycleEnv{
		docs:      docs,
		events:    events,
		queue:     queue,
		certs:     certs,
		notifier:  notifier,
		lifecycle: fiscal.NewLifecycleUseCase(tx, docs, queue, certs, notifier, log),
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "test", Level: "error"})
}

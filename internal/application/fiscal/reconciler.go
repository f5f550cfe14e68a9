package fiscal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
	"github.com/vfarias/gestor-api/pkg/logger"
)

const defaultReconcileBatch = 50

// Reconciler é o mecanismo de autocura contra notificações perdidas: a
// autoridade é assíncrona e pode nunca empurrar o desfecho final. A cada tick
// procura documentos parados em processing além do limiar de staleness e
// re-dirige cada um via consulta de situação no gateway — consulta, não
// retransmissão, para não arriscar dupla emissão na autoridade.
//
// Single-flight: um tick ainda em voo faz o próximo disparo do timer ser
// pulado, não enfileirado (evita tempestade de reconsultas).
type Reconciler struct {
	docs      repository.FiscalDocumentRepository
	events    repository.FiscalEventRepository
	gateway   Gateway
	lifecycle *LifecycleUseCase
	log       *logger.Logger

	interval   time.Duration
	staleAfter time.Duration
	batch      int

	running atomic.Bool
	now     func() time.Time
}

// NewReconciler constrói o reconciliador. interval e staleAfter vêm da
// configuração (padrões 30s e 5m).
func NewReconciler(
	docs repository.FiscalDocumentRepository,
	events repository.FiscalEventRepository,
	gateway Gateway,
	lifecycle *LifecycleUseCase,
	log *logger.Logger,
	interval, staleAfter time.Duration,
) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	return &Reconciler{
		docs:       docs,
		events:     events,
		gateway:    gateway,
		lifecycle:  lifecycle,
		log:        log,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      defaultReconcileBatch,
		now:        time.Now,
	}
}

// WithClock troca o relógio (testes).
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Run roda o loop de reconciliação até o contexto ser cancelado.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Dur("stale_after", r.staleAfter).
		Msg("reconciliador iniciado")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reconciliador encerrado")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick executa uma varredura. Devolve imediatamente se outra ainda estiver em
// andamento (tick pulado, não enfileirado).
func (r *Reconciler) Tick(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		r.log.Debug().Msg("tick anterior ainda em andamento; pulando")
		return
	}
	defer r.running.Store(false)

	olderThan := r.now().Add(-r.staleAfter)
	docs, err := r.docs.ListStaleProcessing(ctx, olderThan, r.batch)
	if err != nil {
		r.log.Error().Err(err).Msg("erro varrendo documentos travados")
		return
	}
	if len(docs) == 0 {
		return
	}

	r.log.Info().Int("count", len(docs)).Msg("re-dirigindo documentos travados em processing")
	for _, doc := range docs {
		if ctx.Err() != nil {
			return
		}
		result, err := r.gateway.QueryStatus(ctx, doc)
		if err != nil {
			// Falha transitória: o documento continua processing e será
			// revisitado no próximo tick após o limiar. A tentativa fica
			// registrada no histórico do documento.
			r.log.Warn().Err(err).Str("document_id", doc.ID).
				Msg("consulta de situação falhou; documento segue em processing")
			if appendErr := r.events.Append(ctx, &entity.FiscalEvent{
				ID:              uuid.New().String(),
				DocumentID:      doc.ID,
				Kind:            entity.EventStatusCheck,
				Description:     "consulta de situação falhou: " + err.Error(),
				ResultingStatus: doc.Status,
				CreatedAt:       r.now(),
			}); appendErr != nil {
				r.log.Error().Err(appendErr).Str("document_id", doc.ID).
					Msg("erro registrando evento de consulta falha")
			}
			continue
		}
		if err := r.lifecycle.ApplyGatewayResult(ctx, doc.ID, nil, result); err != nil {
			r.log.Error().Err(err).Str("document_id", doc.ID).
				Msg("erro aplicando resultado da reconciliação")
		}
	}
}

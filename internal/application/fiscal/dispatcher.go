package fiscal

import (
	"context"
	"time"

	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
	"github.com/vfarias/gestor-api/pkg/logger"
)

const defaultDispatchBatch = 20

// Dispatcher consome a fila de transmissão: drena entradas pending em ordem de
// criação, por tipo de documento (NFC-e e NFS-e são filas independentes ainda
// que compartilhem armazenamento), invoca o gateway e devolve o desfecho para
// a máquina de estados. Entrada resolvida nunca é revisitada; erro de
// transporte vira registro permanente e a recuperação fica com o reconciliador.
type Dispatcher struct {
	queue     repository.TransmissionQueueRepository
	docs      repository.FiscalDocumentRepository
	gateway   Gateway
	lifecycle *LifecycleUseCase
	log       *logger.Logger
	interval  time.Duration
	batch     int
}

// NewDispatcher constrói o consumidor da fila.
func NewDispatcher(
	queue repository.TransmissionQueueRepository,
	docs repository.FiscalDocumentRepository,
	gateway Gateway,
	lifecycle *LifecycleUseCase,
	log *logger.Logger,
	interval time.Duration,
) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Dispatcher{
		queue:     queue,
		docs:      docs,
		gateway:   gateway,
		lifecycle: lifecycle,
		log:       log,
		interval:  interval,
		batch:     defaultDispatchBatch,
	}
}

// Run roda o loop de consumo até o contexto ser cancelado.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info().Dur("interval", d.interval).Msg("dispatcher da fila de transmissão iniciado")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("dispatcher encerrado")
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain processa um lote de entradas pendentes de cada tipo de documento,
// em ordem de criação dentro do tipo.
func (d *Dispatcher) Drain(ctx context.Context) {
	for _, docType := range []string{entity.DocumentTypeNFCe, entity.DocumentTypeNFSe} {
		entries, err := d.queue.ListPending(ctx, docType, d.batch)
		if err != nil {
			d.log.Error().Err(err).Str("type", docType).Msg("erro listando fila de transmissão")
			continue
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				return
			}
			d.process(ctx, entry)
		}
	}
}

// process executa uma entrada: submit ou cancel contra o gateway.
func (d *Dispatcher) process(ctx context.Context, entry *entity.TransmissionQueueEntry) {
	doc, err := d.docs.GetByID(ctx, entry.DocumentID)
	if err != nil || doc == nil {
		d.log.Error().Err(err).Str("entry_id", entry.ID).Str("document_id", entry.DocumentID).
			Msg("documento da entrada não encontrado")
		_ = d.lifecycle.ApplyGatewayFailure(ctx, entry, err)
		return
	}

	var result *GatewayResult
	switch entry.Action {
	case entity.QueueActionSubmit:
		items, itemsErr := d.docs.GetItems(ctx, doc.ID)
		if itemsErr != nil {
			_ = d.lifecycle.ApplyGatewayFailure(ctx, entry, itemsErr)
			return
		}
		result, err = d.gateway.Submit(ctx, doc, items)
	case entity.QueueActionCancel:
		result, err = d.gateway.Cancel(ctx, doc, entry.CancelReason)
	default:
		d.log.Error().Str("entry_id", entry.ID).Str("action", entry.Action).
			Msg("ação desconhecida na fila")
		_ = d.queue.Resolve(ctx, entry.ID, entity.QueueStatusError, "ação desconhecida: "+entry.Action)
		return
	}
	if err != nil {
		// Falha de rede/indisponibilidade: entrada marcada error, documento
		// permanece como está; o reconciliador assume a partir daqui.
		_ = d.lifecycle.ApplyGatewayFailure(ctx, entry, err)
		return
	}

	if applyErr := d.lifecycle.ApplyGatewayResult(ctx, doc.ID, entry, result); applyErr != nil {
		d.log.Error().Err(applyErr).Str("entry_id", entry.ID).
			Msg("erro aplicando resultado do gateway")
	}
}

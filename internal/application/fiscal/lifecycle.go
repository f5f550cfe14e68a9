package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vfarias/gestor-api/internal/domain"
	"github.com/vfarias/gestor-api/internal/domain/entity"
	"github.com/vfarias/gestor-api/internal/domain/repository"
	"github.com/vfarias/gestor-api/pkg/logger"
)

// LifecycleUseCase é a máquina de estados do ciclo de transmissão.
//
// Transições legais: pending → processing → {authorized, rejected};
// authorized → canceled. Qualquer outra é rejeitada com PreconditionError,
// nunca ignorada em silêncio.
//
// Serialização por documento: o invariante "nunca duas entradas pending na
// fila para o mesmo documento" substitui um lock — Submit/Cancel falham rápido
// em vez de enfileirar duplicado (duplicata na autoridade é problema de
// conformidade, não só bug). Entre documentos distintos as operações são
// independentes e podem correr em paralelo.
type LifecycleUseCase struct {
	tx       TxRunner
	docs     repository.FiscalDocumentRepository
	queue    repository.TransmissionQueueRepository
	certs    CertificateChecker
	notifier ChangeNotifier
	log      *logger.Logger
	now      func() time.Time
}

// NewLifecycleUseCase constrói a máquina de estados. notifier pode ser nil.
func NewLifecycleUseCase(
	tx TxRunner,
	docs repository.FiscalDocumentRepository,
	queue repository.TransmissionQueueRepository,
	certs CertificateChecker,
	notifier ChangeNotifier,
	log *logger.Logger,
) *LifecycleUseCase {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &LifecycleUseCase{
		tx:       tx,
		docs:     docs,
		queue:    queue,
		certs:    certs,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// WithClock troca o relógio (testes).
func (uc *LifecycleUseCase) WithClock(now func() time.Time) *LifecycleUseCase {
	uc.now = now
	return uc
}

// Submit valida as pré-condições e coloca o documento em processing:
// evento submission + entrada submit na fila, tudo numa transação.
// Em falha de pré-condição nenhuma mutação acontece.
func (uc *LifecycleUseCase) Submit(ctx context.Context, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return domain.ErrNotFound
	}

	if !entity.CanTransition(doc.Status, entity.StatusProcessing) {
		return domain.NewPreconditionError(domain.PreconditionIllegalTransition,
			fmt.Sprintf("documento em %q não pode ser transmitido", doc.Status))
	}

	items, err := uc.docs.GetItems(ctx, documentID)
	if err != nil {
		return err
	}
	if err := validateFiscalFields(doc, items); err != nil {
		return err
	}

	// Certificado inválido é bloqueio duro: nada de evento nem fila.
	ok, reason, err := uc.certs.IsSubmittable(ctx, doc.DocumentType)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewPreconditionError(domain.PreconditionCertificateInvalid, reason)
	}

	pending, err := uc.queue.HasPendingForDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if pending {
		return domain.NewPreconditionError(domain.PreconditionPendingEntry,
			"já existe transmissão pendente para o documento")
	}

	now := uc.now()
	err = uc.tx.Run(ctx, func(
		docs repository.FiscalDocumentRepository,
		events repository.FiscalEventRepository,
		queue repository.TransmissionQueueRepository,
	) error {
		// Recheca dentro da transação: duas chamadas concorrentes de Submit
		// não podem enfileirar duas vezes.
		pending, err := queue.HasPendingForDocument(ctx, documentID)
		if err != nil {
			return err
		}
		if pending {
			return domain.NewPreconditionError(domain.PreconditionPendingEntry,
				"já existe transmissão pendente para o documento")
		}

		doc.Status = entity.StatusProcessing
		doc.UpdatedAt = now
		if err := docs.Update(ctx, doc); err != nil {
			return err
		}
		if err := events.Append(ctx, &entity.FiscalEvent{
			ID:              uuid.New().String(),
			DocumentID:      doc.ID,
			Kind:            entity.EventSubmission,
			Description:     "documento enviado para transmissão",
			ResultingStatus: entity.StatusProcessing,
			CreatedAt:       now,
		}); err != nil {
			return err
		}
		return queue.Create(ctx, &entity.TransmissionQueueEntry{
			ID:           uuid.New().String(),
			DocumentID:   doc.ID,
			DocumentType: doc.DocumentType,
			Action:       entity.QueueActionSubmit,
			Status:       entity.QueueStatusPending,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return err
	}

	uc.log.Info().Str("document_id", doc.ID).Str("type", doc.DocumentType).
		Msg("documento enfileirado para transmissão")
	uc.notifier.DocumentChanged(doc.ID, doc.Status)
	return nil
}

// Cancel enfileira o cancelamento de um documento autorizado. O status só muda
// para canceled quando o gateway confirmar (ApplyGatewayResult); até lá o
// documento segue authorized. Cancelar qualquer outro status é pré-condição
// violada, com zero efeitos colaterais.
func (uc *LifecycleUseCase) Cancel(ctx context.Context, documentID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.NewPreconditionError(domain.PreconditionEmptyReason,
			"cancelamento exige motivo")
	}

	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return domain.ErrNotFound
	}
	if !entity.CanTransition(doc.Status, entity.StatusCanceled) {
		return domain.NewPreconditionError(domain.PreconditionIllegalTransition,
			fmt.Sprintf("só documento authorized pode ser cancelado (atual: %q)", doc.Status))
	}

	pending, err := uc.queue.HasPendingForDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if pending {
		return domain.NewPreconditionError(domain.PreconditionPendingEntry,
			"já existe transmissão pendente para o documento")
	}

	now := uc.now()
	err = uc.tx.Run(ctx, func(
		_ repository.FiscalDocumentRepository,
		_ repository.FiscalEventRepository,
		queue repository.TransmissionQueueRepository,
	) error {
		pending, err := queue.HasPendingForDocument(ctx, documentID)
		if err != nil {
			return err
		}
		if pending {
			return domain.NewPreconditionError(domain.PreconditionPendingEntry,
				"já existe transmissão pendente para o documento")
		}
		return queue.Create(ctx, &entity.TransmissionQueueEntry{
			ID:           uuid.New().String(),
			DocumentID:   doc.ID,
			DocumentType: doc.DocumentType,
			Action:       entity.QueueActionCancel,
			CancelReason: reason,
			Status:       entity.QueueStatusPending,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return err
	}

	uc.log.Info().Str("document_id", doc.ID).Msg("cancelamento enfileirado")
	return nil
}

// ApplyGatewayResult aplica o desfecho devolvido pelo gateway ao documento e à
// entrada da fila. entry pode ser nil (caminho do reconciliador, que consulta
// sem entrada nova). Idempotente: um resultado que não representa transição
// legal vira no máximo um evento informativo de status_check — nunca um erro
// exposto ao usuário.
func (uc *LifecycleUseCase) ApplyGatewayResult(ctx context.Context, documentID string, entry *entity.TransmissionQueueEntry, result *GatewayResult) error {
	if result == nil {
		return fmt.Errorf("resultado do gateway nulo")
	}
	if entry != nil {
		documentID = entry.DocumentID
	}
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return domain.ErrNotFound
	}

	target := ""
	kind := entity.EventStatusCheck
	description := "consulta de situação na autoridade"
	switch result.Status {
	case GatewayAuthorized:
		target = entity.StatusAuthorized
		kind = entity.EventAuthorization
		description = "documento autorizado pela autoridade"
	case GatewayRejected:
		target = entity.StatusRejected
		kind = entity.EventRejection
		description = "documento rejeitado pela autoridade"
	case GatewayCanceled:
		target = entity.StatusCanceled
		kind = entity.EventCancellation
		description = "cancelamento homologado pela autoridade"
	case GatewayPending:
		// autoridade ainda processando: status não muda
	default:
		return fmt.Errorf("status de gateway desconhecido: %q", result.Status)
	}

	now := uc.now()
	transitioned := target != "" && entity.CanTransition(doc.Status, target)
	if target != "" && !transitioned {
		// Inconsistência de reconciliação: o documento já foi resolvido por
		// outro caminho. No-op no status, evento informativo no histórico.
		uc.log.Debug().Str("document_id", doc.ID).Str("status", doc.Status).
			Str("gateway_status", result.Status).
			Msg("resultado do gateway para documento já resolvido; ignorando status")
		kind = entity.EventStatusCheck
		description = fmt.Sprintf("resultado %q recebido com documento já em %q", result.Status, doc.Status)
	}

	err = uc.tx.Run(ctx, func(
		docs repository.FiscalDocumentRepository,
		events repository.FiscalEventRepository,
		queue repository.TransmissionQueueRepository,
	) error {
		if transitioned {
			doc.Status = target
			if target == entity.StatusCanceled {
				canceledAt := now
				doc.CanceledAt = &canceledAt
				if entry != nil && entry.CancelReason != "" {
					doc.CancelReason = entry.CancelReason
				}
			}
		}
		// Artefatos são de propriedade do gateway; a máquina só persiste.
		if result.Payload != "" {
			doc.Payload = result.Payload
		}
		if result.RawResponse != "" {
			doc.AuthorityResponse = result.RawResponse
		}
		if result.Protocol != "" {
			doc.Protocol = result.Protocol
		}
		if result.AccessKey != "" {
			doc.AccessKey = result.AccessKey
		}
		doc.UpdatedAt = now
		if err := docs.Update(ctx, doc); err != nil {
			return err
		}

		if err := events.Append(ctx, &entity.FiscalEvent{
			ID:               uuid.New().String(),
			DocumentID:       doc.ID,
			Kind:             kind,
			Description:      description,
			AuthorityMessage: result.Message,
			ResultingStatus:  doc.Status,
			CreatedAt:        now,
		}); err != nil {
			return err
		}

		// A entrega teve sucesso sempre que a autoridade respondeu — mesmo
		// que o desfecho de negócio seja rejeição. Entrada resolvida nunca é
		// revisitada.
		if entry != nil && !entry.Resolved() {
			return queue.Resolve(ctx, entry.ID, entity.QueueStatusSuccess, "")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if transitioned {
		uc.log.Info().Str("document_id", doc.ID).Str("status", doc.Status).
			Str("protocol", doc.Protocol).Msg("status do documento atualizado")
		uc.notifier.DocumentChanged(doc.ID, doc.Status)
	}
	return nil
}

// ApplyGatewayFailure registra falha de transporte na entrada da fila.
// O documento não regride: segue em processing para o reconciliador re-dirigir
// via nova consulta (a entrada com erro vira registro permanente de auditoria).
func (uc *LifecycleUseCase) ApplyGatewayFailure(ctx context.Context, entry *entity.TransmissionQueueEntry, cause error) error {
	if entry == nil {
		return fmt.Errorf("entrada da fila nula")
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	uc.log.Warn().Str("document_id", entry.DocumentID).Str("entry_id", entry.ID).
		Str("cause", msg).Msg("falha de transporte na transmissão")
	return uc.queue.Resolve(ctx, entry.ID, entity.QueueStatusError, msg)
}

// validateFiscalFields checa os campos fiscais obrigatórios antes de qualquer
// mutação: itens presentes, discriminação e código de serviço por item,
// totais não negativos.
func validateFiscalFields(doc *entity.FiscalDocument, items []*entity.FiscalDocumentItem) error {
	if len(items) == 0 {
		return domain.NewPreconditionError(domain.PreconditionMissingField, "documento sem itens")
	}
	for _, it := range items {
		if strings.TrimSpace(it.Description) == "" {
			return domain.NewPreconditionError(domain.PreconditionMissingField,
				"item sem discriminação")
		}
		if strings.TrimSpace(it.ServiceCode) == "" {
			return domain.NewPreconditionError(domain.PreconditionMissingField,
				"item sem código de serviço/tributação")
		}
	}
	if doc.GrossAmount.LessThan(decimal.Zero) || doc.TaxAmount.LessThan(decimal.Zero) ||
		doc.Total.LessThan(decimal.Zero) {
		return domain.NewPreconditionError(domain.PreconditionMissingField,
			"totais negativos")
	}
	return nil
}

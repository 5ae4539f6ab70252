package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flockly/event-platform/internal/apperr"
	"github.com/flockly/event-platform/internal/model"
	"github.com/flockly/event-platform/internal/proofstore"
	"github.com/flockly/event-platform/internal/store"
	"github.com/flockly/event-platform/pkg/logger"
	"github.com/flockly/event-platform/pkg/metrics"
)

// RegistrationService is the registration ledger: it decides admissions
// against event capacity and records them.
type RegistrationService struct {
	store    store.RegistrationStore
	proofs   proofstore.Store
	validate *validator.Validate
	logger   *logger.Logger
}

// NewRegistrationService creates a new registration service. proofs may be
// nil, in which case screenshot references are stored inline.
func NewRegistrationService(st store.RegistrationStore, proofs proofstore.Store, log *logger.Logger) *RegistrationService {
	return &RegistrationService{
		store:    st,
		proofs:   proofs,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log,
	}
}

// Register admits one registration. The capacity check and the counter
// increment happen as a single serialized decision inside the store, so the
// registered count can never exceed capacity.
func (s *RegistrationService) Register(ctx context.Context, req *model.RegisterRequest) (*model.Registration, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid registration", err)
	}

	proofRef, err := proofstore.Resolve(ctx, s.proofs, req.TransactionScreenshot)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid transaction screenshot", err)
	}

	reg := &model.Registration{
		ID:             uuid.Must(uuid.NewV7()).String(),
		EventID:        model.Ref(req.EventID.String()),
		Name:           req.Name,
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		ProofOfPayment: proofRef,
		RegisteredAt:   time.Now().UTC(),
	}

	if err := s.store.Admit(ctx, reg); err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindCapacityExceeded:
			metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeFull).Inc()
		case apperr.KindDuplicateRegistration:
			metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		case apperr.KindNotFound:
			// Unknown event; not an admission outcome.
		default:
			metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeAdmitted).Inc()
	s.logger.Info("registration admitted",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", reg.EventID.String()),
	)
	return reg, nil
}

// ListByEvent returns an event's registrations in admission order.
func (s *RegistrationService) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return s.store.ListRegistrationsByEvent(ctx, eventID)
}

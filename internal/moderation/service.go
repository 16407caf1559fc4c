package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/zikenn26/CampusHub/internal/domain/audit"
	"github.com/zikenn26/CampusHub/internal/domain/material"
	"github.com/zikenn26/CampusHub/internal/domain/notification"
	"github.com/zikenn26/CampusHub/internal/domain/user"
	"github.com/zikenn26/CampusHub/internal/observability"
)

var (
	// actor lacks the verifier capability
	ErrNotVerifier = errors.New("only verifiers may moderate")
	// resubmission attempted by someone who is not the uploader
	ErrNotUploader = errors.New("only the uploader may resubmit")

	ErrInvalidDecision = errors.New("decision must be approve or reject")

	ErrInvalidStatus = errors.New("unknown review status")
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type DecisionRequest struct {
	Decision Decision `json:"decision" binding:"required,oneof=approve reject"`
	Note     string   `json:"note" binding:"omitempty,max=1000"`
}

type QueueFilter struct {
	// Status lets a verifier inspect decided slices; zero means pending.
	Status       material.ReviewStatus
	DepartmentID *string
	Limit        int
	Offset       int
}

type MaterialStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetByID(ctx context.Context, id string) (material.Material, error)
	ListQueue(ctx context.Context, status material.ReviewStatus, departmentID *string, limit, offset int) ([]material.Material, int, error)
	DecideTx(ctx context.Context, tx pgx.Tx, id string, status material.ReviewStatus, verifierID string, note *string) (material.Material, error)
	ResubmitTx(ctx context.Context, tx pgx.Tx, id string) (material.Material, error)
}

type AuditStore interface {
	AppendTx(ctx context.Context, tx pgx.Tx, e audit.Entry) error
}

type NotificationStore interface {
	EnqueueTx(ctx context.Context, tx pgx.Tx, n notification.Notification) error
}

// Service owns the review workflow. Capability checks happen here, at
// the operation boundary, before anything touches the database; the
// state transition, the audit entry and the outbox row commit or roll
// back as one transaction.
type Service struct {
	materials MaterialStore
	audits    AuditStore
	outbox    NotificationStore
	prom      *observability.Prom
	log       *slog.Logger
}

func NewService(materials MaterialStore, audits AuditStore, outbox NotificationStore, prom *observability.Prom, log *slog.Logger) *Service {
	return &Service{
		materials: materials,
		audits:    audits,
		outbox:    outbox,
		prom:      prom,
		log:       log,
	}
}

// Queue lists pending materials oldest first. Non-moderators are
// rejected before any read happens.
func (s *Service) Queue(ctx context.Context, actor user.User, f QueueFilter) ([]material.Material, int, error) {
	if !actor.Role.CanModerate() {
		return nil, 0, ErrNotVerifier
	}

	status := f.Status

	if status == "" {
		status = material.StatusPending
	}

	if !status.IsValid() {
		return nil, 0, ErrInvalidStatus
	}

	limit := f.Limit

	if limit <= 0 {
		limit = 50
	}

	if limit > 200 {
		limit = 200
	}

	offset := f.Offset

	if offset < 0 {
		offset = 0
	}

	return s.materials.ListQueue(ctx, status, f.DepartmentID, limit, offset)
}

// Decide settles a pending material. Exactly one decision can ever
// win: the update only matches a pending row, so a second verifier
// gets material.ErrNotPending and nothing is written for them.
func (s *Service) Decide(ctx context.Context, actor user.User, materialID string, req DecisionRequest) (material.Material, error) {
	if !actor.Role.CanModerate() {
		return material.Material{}, ErrNotVerifier
	}

	var target material.ReviewStatus
	var action audit.Action

	switch req.Decision {
	case DecisionApprove:
		target = material.StatusApproved
		action = audit.ActionMaterialApproved
	case DecisionReject:
		target = material.StatusRejected
		action = audit.ActionMaterialRejected
	default:
		return material.Material{}, ErrInvalidDecision
	}

	tx, err := s.materials.BeginTx(ctx)

	if err != nil {
		return material.Material{}, err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	var note *string

	if req.Note != "" {
		note = &req.Note
	}

	m, err := s.materials.DecideTx(ctx, tx, materialID, target, actor.ID, note)

	if err != nil {
		if errors.Is(err, material.ErrNotPending) {
			s.countDecision("conflict")
		}

		return material.Material{}, err
	}

	err = s.audits.AppendTx(ctx, tx, audit.New(actor.ID, action, audit.TargetMaterial, m.ID, req.Note))

	if err != nil {
		return material.Material{}, err
	}

	err = s.outbox.EnqueueTx(ctx, tx, s.decisionNotification(m, target, req.Note))

	if err != nil {
		return material.Material{}, err
	}

	err = tx.Commit(ctx)

	if err != nil {
		return material.Material{}, err
	}

	s.countDecision(string(target))

	if s.log != nil {
		s.log.InfoContext(ctx, "material decided",
			"material_id", m.ID,
			"decision", target,
			"verifier_id", actor.ID,
		)
	}

	return m, nil
}

// Resubmit puts the actor's own rejected material back in the queue.
// Admins may resubmit on an uploader's behalf.
func (s *Service) Resubmit(ctx context.Context, actor user.User, materialID string) (material.Material, error) {
	existing, err := s.materials.GetByID(ctx, materialID)

	if err != nil {
		return material.Material{}, err
	}

	if existing.UploaderID != actor.ID && actor.Role != user.RoleAdmin {
		return material.Material{}, ErrNotUploader
	}

	tx, err := s.materials.BeginTx(ctx)

	if err != nil {
		return material.Material{}, err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	m, err := s.materials.ResubmitTx(ctx, tx, materialID)

	if err != nil {
		return material.Material{}, err
	}

	err = s.audits.AppendTx(ctx, tx, audit.New(actor.ID, audit.ActionMaterialResubmitted, audit.TargetMaterial, m.ID, ""))

	if err != nil {
		return material.Material{}, err
	}

	err = tx.Commit(ctx)

	if err != nil {
		return material.Material{}, err
	}

	if s.log != nil {
		s.log.InfoContext(ctx, "material resubmitted",
			"material_id", m.ID,
			"actor_id", actor.ID,
		)
	}

	return m, nil
}

func (s *Service) decisionNotification(m material.Material, target material.ReviewStatus, note string) notification.Notification {
	verb := "approved"

	if target == material.StatusRejected {
		verb = "rejected"
	}

	body := fmt.Sprintf("Your material %q was %s.", m.Title, verb)

	if note != "" {
		body += " Reviewer note: " + note
	}

	id := m.ID

	return notification.New(notification.CreateRequest{
		Kind:        notification.KindMaterialDecided,
		RecipientID: m.UploaderID,
		MaterialID:  &id,
		Subject:     fmt.Sprintf("Material %s: %s", verb, m.Title),
		Body:        body,
	})
}

func (s *Service) countDecision(outcome string) {
	if s.prom != nil {
		s.prom.DecisionsTotal.WithLabelValues(outcome).Inc()
	}
}

package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/class-treasury-api/internal/models"
	"github.com/noah-isme/class-treasury-api/internal/schema"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

type paymentRepo interface {
	Find(ctx context.Context, collectionID, studentID string) (*models.Payment, error)
	Upsert(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, collectionID, studentID string) error
}

type collectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Collection, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type historyAppender interface {
	Append(ctx context.Context, entry *models.HistoryEntry) error
}

// RecordPaymentRequest is the payload for recording or editing one student's
// payment. A zero amount with all answers blank removes the payment.
type RecordPaymentRequest struct {
	CollectionID string            `json:"collection_id" validate:"required"`
	StudentID    string            `json:"student_id" validate:"required"`
	Amount       float64           `json:"amount" validate:"gte=0"`
	Answers      map[string]string `json:"custom_field_values"`
}

// CopyPaymentsRequest copies recorded payments from one collection to another.
type CopyPaymentsRequest struct {
	SourceCollectionID string `json:"source_collection_id" validate:"required"`
	TargetCollectionID string `json:"target_collection_id" validate:"required"`
	Overwrite          bool   `json:"overwrite"`
}

// CopyPaymentsResult summarises a copy run.
type CopyPaymentsResult struct {
	Copied  int `json:"copied"`
	Skipped int `json:"skipped"`
}

// PaymentProjection is a student's payment with its derived figures attached.
type PaymentProjection struct {
	StudentID   string   `json:"student_id"`
	StudentName string   `json:"student_name"`
	Amount      float64  `json:"amount"`
	AmountDue   float64  `json:"amount_due"`
	Paid        bool     `json:"paid"`
	Display     string   `json:"display,omitempty"`
	Lines       []string `json:"lines,omitempty"`
}

// PaymentService applies payment transitions and keeps the history ledger in
// step with them.
type PaymentService struct {
	payments    paymentRepo
	collections collectionReader
	students    studentReader
	history     historyAppender
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(payments paymentRepo, collections collectionReader, students studentReader, history historyAppender, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		payments:    payments,
		collections: collections,
		students:    students,
		history:     history,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// paymentExists decides whether a submission still counts as a payment: a
// positive amount, or at least one answer with non-blank content.
func paymentExists(amount float64, answers models.AnswerSet) bool {
	if amount > 0 {
		return true
	}
	for _, value := range answers {
		if strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}

func trimAnswers(raw map[string]string) models.AnswerSet {
	if len(raw) == 0 {
		return nil
	}
	answers := make(models.AnswerSet, len(raw))
	for fieldID, value := range raw {
		if strings.TrimSpace(value) == "" {
			continue
		}
		answers[fieldID] = value
	}
	if len(answers) == 0 {
		return nil
	}
	return answers
}

// Record applies one recorder transition. The resulting state is derived from
// the submission alone; history entries are raised only when the numeric
// amount changes, so pure answer edits stay silent in the ledger.
func (s *PaymentService) Record(ctx context.Context, req RecordPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	collection, err := s.collections.FindByID(ctx, req.CollectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	if collection.Status != models.CollectionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrRemitted, "collection has been remitted; payments are read-only")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	previous, err := s.payments.Find(ctx, req.CollectionID, req.StudentID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	answers := trimAnswers(req.Answers)
	exists := paymentExists(req.Amount, answers)

	switch {
	case previous == nil && !exists:
		// Nothing recorded, nothing submitted.
		return nil, nil
	case previous != nil && !exists:
		if err := s.payments.Delete(ctx, req.CollectionID, req.StudentID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove payment")
		}
		s.appendHistory(ctx, models.HistoryPaymentRemove, student, collection, nil, &previous.Amount)
		return nil, nil
	}

	payment := &models.Payment{
		CollectionID: req.CollectionID,
		StudentID:    req.StudentID,
		Amount:       req.Amount,
		Answers:      answers,
		RecordedAt:   time.Now().UTC(),
	}
	if err := s.payments.Upsert(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	switch {
	case previous == nil:
		// A fresh record with amount 0 carries no money movement, so the
		// ledger stays silent until an amount actually lands.
		if payment.Amount != 0 {
			s.appendHistory(ctx, models.HistoryPaymentAdd, student, collection, &payment.Amount, nil)
		}
	case previous.Amount != payment.Amount:
		s.appendHistory(ctx, models.HistoryPaymentUpdate, student, collection, &payment.Amount, &previous.Amount)
	}
	return payment, nil
}

func (s *PaymentService) appendHistory(ctx context.Context, historyType models.HistoryType, student *models.Student, collection *models.Collection, amount, previous *float64) {
	entry := &models.HistoryEntry{
		Type:           historyType,
		StudentID:      student.ID,
		StudentName:    student.FullName,
		CollectionID:   collection.ID,
		CollectionName: collection.Name,
		Amount:         amount,
		PreviousAmount: previous,
	}
	s.metrics.RecordPaymentTransition(string(historyType))
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append history entry",
			zap.String("type", string(historyType)),
			zap.String("collection_id", collection.ID),
			zap.String("student_id", student.ID),
			zap.Error(err))
	}
}

// AmountDue computes what one student owes given their recorded answers.
func (s *PaymentService) AmountDue(ctx context.Context, collectionID, studentID string) (float64, error) {
	collection, err := s.collections.FindByID(ctx, collectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	payment, _ := collection.PaymentOf(studentID)
	return schema.ResolveAmountDue(collection.CustomFields, payment.Answers, collection.TargetAmount), nil
}

// Roster projects the whole included-student roster against a collection:
// amount due, paid flag and a compact display line per student.
func (s *PaymentService) Roster(ctx context.Context, collectionID string) ([]PaymentProjection, error) {
	collection, err := s.collections.FindByID(ctx, collectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	roster, err := s.rosterStudents(ctx, collection)
	if err != nil {
		return nil, err
	}

	projections := make([]PaymentProjection, 0, len(roster))
	for _, student := range roster {
		payment, paid := collection.PaymentOf(student.ID)
		projection := PaymentProjection{
			StudentID:   student.ID,
			StudentName: student.FullName,
			Paid:        paid,
			AmountDue:   schema.ResolveAmountDue(collection.CustomFields, payment.Answers, collection.TargetAmount),
		}
		if paid {
			projection.Amount = payment.Amount
			projection.Display = schema.DisplayString(collection.CustomFields, payment.Answers)
			projection.Lines = schema.DisplayLines(collection.CustomFields, payment.Answers)
		}
		projections = append(projections, projection)
	}
	return projections, nil
}

// rosterStudents resolves the students a collection applies to. An empty
// included list means every active student.
func (s *PaymentService) rosterStudents(ctx context.Context, collection *models.Collection) ([]models.Student, error) {
	if len(collection.IncludedStudentIDs) == 0 {
		active := true
		students, _, err := s.students.List(ctx, models.StudentFilter{Active: &active, Unpaged: true})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
		}
		return students, nil
	}
	students := make([]models.Student, 0, len(collection.IncludedStudentIDs))
	for _, id := range collection.IncludedStudentIDs {
		student, err := s.students.FindByID(ctx, id)
		if err != nil {
			if err == sql.ErrNoRows {
				// Deleted students silently drop off the roster.
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		students = append(students, *student)
	}
	return students, nil
}

// Breakdown tallies selected option values per field across all payments.
func (s *PaymentService) Breakdown(ctx context.Context, collectionID string) (map[string]map[string]int, error) {
	collection, err := s.collections.FindByID(ctx, collectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	return schema.Breakdown(collection.CustomFields, collection.Payments), nil
}

// MarkAllPaid records, for every roster student without a payment yet, a
// payment of their computed amount due. Students already paid are untouched.
func (s *PaymentService) MarkAllPaid(ctx context.Context, collectionID string) (int, error) {
	collection, err := s.collections.FindByID(ctx, collectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	if collection.Status != models.CollectionStatusActive {
		return 0, appErrors.Clone(appErrors.ErrRemitted, "collection has been remitted; payments are read-only")
	}
	roster, err := s.rosterStudents(ctx, collection)
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range roster {
		student := &roster[i]
		if _, paid := collection.PaymentOf(student.ID); paid {
			continue
		}
		due := schema.ResolveAmountDue(collection.CustomFields, nil, collection.TargetAmount)
		if due <= 0 {
			continue
		}
		payment := &models.Payment{
			CollectionID: collection.ID,
			StudentID:    student.ID,
			Amount:       due,
			RecordedAt:   time.Now().UTC(),
		}
		if err := s.payments.Upsert(ctx, payment); err != nil {
			return marked, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
		}
		s.appendHistory(ctx, models.HistoryPaymentAdd, student, collection, &payment.Amount, nil)
		marked++
	}
	return marked, nil
}

// MarkAllUnpaid removes every recorded payment of a collection, one ledger
// entry per removal.
func (s *PaymentService) MarkAllUnpaid(ctx context.Context, collectionID string) (int, error) {
	collection, err := s.collections.FindByID(ctx, collectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	if collection.Status != models.CollectionStatusActive {
		return 0, appErrors.Clone(appErrors.ErrRemitted, "collection has been remitted; payments are read-only")
	}

	removed := 0
	for _, payment := range collection.Payments {
		student, err := s.students.FindByID(ctx, payment.StudentID)
		if err != nil {
			if err != sql.ErrNoRows {
				return removed, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
			}
			student = &models.Student{ID: payment.StudentID}
		}
		if err := s.payments.Delete(ctx, collection.ID, payment.StudentID); err != nil {
			return removed, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove payment")
		}
		amount := payment.Amount
		s.appendHistory(ctx, models.HistoryPaymentRemove, student, collection, nil, &amount)
		removed++
	}
	return removed, nil
}

// CopyPayments copies recorded payments between collections. Answers travel
// with the amounts; field ids that do not exist in the target schema simply
// resolve to nothing there.
func (s *PaymentService) CopyPayments(ctx context.Context, req CopyPaymentsRequest) (*CopyPaymentsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid copy payload")
	}
	if req.SourceCollectionID == req.TargetCollectionID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "source and target collection must differ")
	}

	source, err := s.collections.FindByID(ctx, req.SourceCollectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "source collection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source collection")
	}
	target, err := s.collections.FindByID(ctx, req.TargetCollectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target collection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target collection")
	}
	if target.Status != models.CollectionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrRemitted, "target collection has been remitted; payments are read-only")
	}

	result := &CopyPaymentsResult{}
	for _, payment := range source.Payments {
		existing, paid := target.PaymentOf(payment.StudentID)
		if paid && !req.Overwrite {
			result.Skipped++
			continue
		}

		student, err := s.students.FindByID(ctx, payment.StudentID)
		if err != nil {
			if err == sql.ErrNoRows {
				result.Skipped++
				continue
			}
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}

		copied := &models.Payment{
			CollectionID: target.ID,
			StudentID:    payment.StudentID,
			Amount:       payment.Amount,
			Answers:      payment.Answers,
			RecordedAt:   time.Now().UTC(),
		}
		if err := s.payments.Upsert(ctx, copied); err != nil {
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to copy payment")
		}
		if !paid {
			s.appendHistory(ctx, models.HistoryPaymentAdd, student, target, &copied.Amount, nil)
		} else if existing.Amount != copied.Amount {
			s.appendHistory(ctx, models.HistoryPaymentUpdate, student, target, &copied.Amount, &existing.Amount)
		}
		result.Copied++
	}
	return result, nil
}

package service

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/class-treasury-api/internal/models"
	"github.com/noah-isme/class-treasury-api/pkg/export"
	"github.com/noah-isme/class-treasury-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type rosterProjector interface {
	Roster(ctx context.Context, collectionID string) ([]PaymentProjection, error)
	Breakdown(ctx context.Context, collectionID string) (map[string]map[string]int, error)
}

type historyLister interface {
	List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error)
}

type fundsProvider interface {
	Funds(ctx context.Context) (*models.FundsSummary, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds export datasets and persists rendered files behind
// signed download URLs.
type ExportService struct {
	collections collectionReader
	projections rosterProjector
	history     historyLister
	funds       fundsProvider
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Collections collectionReader
	Projections rosterProjector
	History     historyLister
	Funds       fundsProvider
	Storage     fileStorage
	Signer      *storage.SignedURLSigner
	CSV         csvRenderer
	PDF         pdfRenderer
	Logger      *zap.Logger
	Config      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		collections: params.Collections,
		projections: params.Projections,
		history:     params.History,
		funds:       params.Funds,
		storage:     params.Storage,
		csv:         csv,
		pdf:         pdf,
		signer:      params.Signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	if job.Params.CollectionID != nil {
		scope = sanitizeFilename(*job.Params.CollectionID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", job.Type, scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypePayments:
		return s.buildPaymentsDataset(ctx, job.Params)
	case models.ExportTypeBreakdown:
		return s.buildBreakdownDataset(ctx, job.Params)
	case models.ExportTypeHistory:
		return s.buildHistoryDataset(ctx)
	case models.ExportTypeFunds:
		return s.buildFundsDataset(ctx)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildPaymentsDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	if params.CollectionID == nil {
		return export.Dataset{}, "", fmt.Errorf("payments export requires a collection")
	}
	collection, err := s.collections.FindByID(ctx, *params.CollectionID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	roster, err := s.projections.Roster(ctx, collection.ID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := make([]map[string]string, 0, len(roster))
	for _, projection := range roster {
		status := "Unpaid"
		if projection.Paid {
			status = "Paid"
		}
		rows = append(rows, map[string]string{
			"Student":     projection.StudentName,
			"Amount Due":  fmt.Sprintf("%.2f", projection.AmountDue),
			"Amount Paid": fmt.Sprintf("%.2f", projection.Amount),
			"Status":      status,
			"Details":     projection.Display,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Amount Due", "Amount Paid", "Status", "Details"},
		Rows:    rows,
	}
	return dataset, fmt.Sprintf("Payment Sheet %s", collection.Name), nil
}

func (s *ExportService) buildBreakdownDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	if params.CollectionID == nil {
		return export.Dataset{}, "", fmt.Errorf("breakdown export requires a collection")
	}
	collection, err := s.collections.FindByID(ctx, *params.CollectionID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	breakdown, err := s.projections.Breakdown(ctx, collection.ID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	fieldNames := make([]string, 0, len(breakdown))
	for name := range breakdown {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)

	var rows []map[string]string
	for _, fieldName := range fieldNames {
		values := make([]string, 0, len(breakdown[fieldName]))
		for value := range breakdown[fieldName] {
			values = append(values, value)
		}
		sort.Strings(values)
		for _, value := range values {
			rows = append(rows, map[string]string{
				"Field":  fieldName,
				"Choice": value,
				"Count":  fmt.Sprintf("%d", breakdown[fieldName][value]),
			})
		}
	}
	dataset := export.Dataset{
		Headers: []string{"Field", "Choice", "Count"},
		Rows:    rows,
	}
	return dataset, fmt.Sprintf("Breakdown %s", collection.Name), nil
}

func (s *ExportService) buildHistoryDataset(ctx context.Context) (export.Dataset, string, error) {
	entries, _, err := s.history.List(ctx, models.HistoryFilter{PageSize: 1000})
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, map[string]string{
			"Time":       entry.CreatedAt.Format("2006-01-02 15:04"),
			"Type":       string(entry.Type),
			"Student":    entry.StudentName,
			"Collection": entry.CollectionName,
			"Amount":     formatOptionalAmount(entry.Amount),
			"Previously": formatOptionalAmount(entry.PreviousAmount),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Time", "Type", "Student", "Collection", "Amount", "Previously"},
		Rows:    rows,
	}
	return dataset, "Payment History", nil
}

func (s *ExportService) buildFundsDataset(ctx context.Context) (export.Dataset, string, error) {
	summary, _, err := s.funds.Funds(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(summary.Collections)+1)
	for _, onHand := range summary.Collections {
		rows = append(rows, map[string]string{
			"Collection": onHand.CollectionName,
			"Collected":  fmt.Sprintf("%.2f", onHand.Collected),
			"Payers":     fmt.Sprintf("%d", onHand.PayerCount),
		})
	}
	rows = append(rows, map[string]string{
		"Collection": "TOTAL ON HAND",
		"Collected":  fmt.Sprintf("%.2f", summary.TotalOnHand),
	})
	dataset := export.Dataset{
		Headers: []string{"Collection", "Collected", "Payers"},
		Rows:    rows,
	}
	return dataset, "Funds On Hand", nil
}

func formatOptionalAmount(amount *float64) string {
	if amount == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *amount)
}

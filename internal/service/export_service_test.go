package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-treasury-api/internal/models"
	"github.com/noah-isme/class-treasury-api/pkg/storage"
)

type mockProjector struct {
	roster    []PaymentProjection
	breakdown map[string]map[string]int
}

func (m *mockProjector) Roster(ctx context.Context, collectionID string) ([]PaymentProjection, error) {
	return m.roster, nil
}

func (m *mockProjector) Breakdown(ctx context.Context, collectionID string) (map[string]map[string]int, error) {
	return m.breakdown, nil
}

type mockHistoryLister struct {
	entries []models.HistoryEntry
}

func (m *mockHistoryLister) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error) {
	return m.entries, len(m.entries), nil
}

type mockFundsProvider struct {
	summary models.FundsSummary
}

func (m *mockFundsProvider) Funds(ctx context.Context) (*models.FundsSummary, bool, error) {
	summary := m.summary
	return &summary, false, nil
}

func newExportFixture(t *testing.T) *ExportService {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	collections := &mockCollectionReader{collections: map[string]*models.Collection{
		"col-1": {ID: "col-1", Name: "Class Shirts", Status: models.CollectionStatusActive},
	}}
	projector := &mockProjector{
		roster: []PaymentProjection{
			{StudentID: "stu-1", StudentName: "Ana Cruz", Amount: 150, AmountDue: 150, Paid: true, Display: "Shirt: Small"},
			{StudentID: "stu-2", StudentName: "Ben Reyes", AmountDue: 100},
		},
		breakdown: map[string]map[string]int{
			"Shirt": {"Small": 3, "Large": 1},
		},
	}
	history := &mockHistoryLister{entries: []models.HistoryEntry{
		{Type: models.HistoryPaymentAdd, StudentName: "Ana Cruz", CollectionName: "Class Shirts", Amount: amountPtr(150), CreatedAt: time.Now()},
	}}
	funds := &mockFundsProvider{summary: models.FundsSummary{
		TotalOnHand: 150,
		Collections: []models.CollectionOnHand{{CollectionID: "col-1", CollectionName: "Class Shirts", Collected: 150, PayerCount: 1}},
	}}

	return NewExportService(ExportServiceParams{
		Collections: collections,
		Projections: projector,
		History:     history,
		Funds:       funds,
		Storage:     store,
		Signer:      storage.NewSignedURLSigner("test-secret", time.Hour),
		Config:      ExportConfig{APIPrefix: "/api/v1"},
	})
}

func collectionID(id string) *string { return &id }

func TestGeneratePaymentsCSV(t *testing.T) {
	svc := newExportFixture(t)

	job := &models.ExportJob{
		ID:     "job-1",
		Type:   models.ExportTypePayments,
		Params: models.ExportJobParams{CollectionID: collectionID("col-1"), Format: models.ExportFormatCSV},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, result.URL, "/api/v1/exports/download/")
	assert.NotEmpty(t, result.Token)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	raw, err := os.ReadFile(file.Name())
	require.NoError(t, err)

	content := string(raw)
	assert.Contains(t, content, "Student,Amount Due,Amount Paid,Status,Details")
	assert.Contains(t, content, "Ana Cruz,150.00,150.00,Paid,Shirt: Small")
	assert.Contains(t, content, "Ben Reyes,100.00,0.00,Unpaid,")
}

func TestGenerateBreakdownCSVSortsRows(t *testing.T) {
	svc := newExportFixture(t)

	job := &models.ExportJob{
		ID:     "job-2",
		Type:   models.ExportTypeBreakdown,
		Params: models.ExportJobParams{CollectionID: collectionID("col-1"), Format: models.ExportFormatCSV},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	raw, err := os.ReadFile(file.Name())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Field,Choice,Count", lines[0])
	assert.Equal(t, "Shirt,Large,1", lines[1])
	assert.Equal(t, "Shirt,Small,3", lines[2])
}

func TestGenerateFundsPDF(t *testing.T) {
	svc := newExportFixture(t)

	job := &models.ExportJob{
		ID:     "job-3",
		Type:   models.ExportTypeFunds,
		Params: models.ExportJobParams{Format: models.ExportFormatPDF},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatPDF, result.Format)
	assert.Equal(t, ".pdf", filepath.Ext(result.RelativePath))
}

func TestGeneratePaymentsWithoutCollectionFails(t *testing.T) {
	svc := newExportFixture(t)

	job := &models.ExportJob{
		ID:     "job-4",
		Type:   models.ExportTypePayments,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestParseTokenRoundTrip(t *testing.T) {
	svc := newExportFixture(t)

	job := &models.ExportJob{
		ID:     "job-5",
		Type:   models.ExportTypeHistory,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-5", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

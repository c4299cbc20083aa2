package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cpaportal/internal/models"
	"cpaportal/internal/validation"
)

const (
	reminderSubject        = "Reminder: please upload your tax documents"
	maxReminderTemplateLen = 10000
)

// DocumentProvider supplies the document and client data shown on the
// dashboards.
type DocumentProvider interface {
	RecentUploads(ctx context.Context, userID int64) ([]models.RecentUpload, error)
	UploadStats(ctx context.Context, userID int64) (models.UploadStats, error)
	AllUploads(ctx context.Context) ([]models.AdminUpload, error)
	AdminUploadStats(ctx context.Context) (models.AdminUploadStats, error)
	Clients(ctx context.Context) ([]models.ClientSummary, error)
	ClientDocumentCategories(ctx context.Context, clientID int) ([]models.DocumentCategory, error)
	CategoryDocuments(ctx context.Context, clientID int, category string, years []int) ([]models.DocumentDetail, error)
}

// TemplateStore persists the reminder email body
type TemplateStore interface {
	ReminderTemplate(ctx context.Context) (string, error)
	SetReminderTemplate(ctx context.Context, template string) error
}

// ClientDashboard is the data behind the client portal landing page
type ClientDashboard struct {
	ClientName    string
	RecentUploads []models.RecentUpload
	UploadStats   models.UploadStats
}

// AdminDashboard is the data behind the admin landing page
type AdminDashboard struct {
	AdminName        string
	UploadStats      models.AdminUploadStats
	Clients          []models.ClientSummary
	AllUploads       []models.AdminUpload
	ReminderTemplate string
}

// DashboardService assembles dashboard data and sends document reminders
type DashboardService struct {
	docs     DocumentProvider
	settings TemplateStore
	notifier Notifier
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(docs DocumentProvider, settings TemplateStore, notifier Notifier) *DashboardService {
	return &DashboardService{docs: docs, settings: settings, notifier: notifier}
}

// ClientDashboard returns the dashboard for a signed-in client
func (s *DashboardService) ClientDashboard(ctx context.Context, user *models.User) (*ClientDashboard, error) {
	uploads, err := s.docs.RecentUploads(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load uploads: %w", err)
	}
	stats, err := s.docs.UploadStats(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load upload stats: %w", err)
	}

	return &ClientDashboard{
		ClientName:    user.DisplayName(),
		RecentUploads: uploads,
		UploadStats:   stats,
	}, nil
}

// AdminDashboard returns the dashboard for a signed-in administrator
func (s *DashboardService) AdminDashboard(ctx context.Context, user *models.User) (*AdminDashboard, error) {
	stats, err := s.docs.AdminUploadStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load upload stats: %w", err)
	}
	clients, err := s.docs.Clients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}
	uploads, err := s.docs.AllUploads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load uploads: %w", err)
	}
	template, err := s.settings.ReminderTemplate(ctx)
	if err != nil {
		return nil, err
	}

	name := "Admin"
	if user != nil {
		name = user.DisplayName()
	}

	return &AdminDashboard{
		AdminName:        name,
		UploadStats:      stats,
		Clients:          clients,
		AllUploads:       uploads,
		ReminderTemplate: template,
	}, nil
}

// FindClient returns the client with the given id, or nil
func (s *DashboardService) FindClient(ctx context.Context, clientID int) (*models.ClientSummary, error) {
	clients, err := s.docs.Clients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}
	for i := range clients {
		if clients[i].ID == clientID {
			return &clients[i], nil
		}
	}
	return nil, nil
}

// ClientDocuments returns a client and its per-category document counts.
// The client is nil when the id is unknown.
func (s *DashboardService) ClientDocuments(ctx context.Context, clientID int) (*models.ClientSummary, []models.DocumentCategory, error) {
	client, err := s.FindClient(ctx, clientID)
	if err != nil || client == nil {
		return nil, nil, err
	}
	docs, err := s.docs.ClientDocumentCategories(ctx, clientID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load document categories: %w", err)
	}
	return client, docs, nil
}

// CategoryDocuments lists a client's documents in one category
func (s *DashboardService) CategoryDocuments(ctx context.Context, clientID int, category string, years []int) ([]models.DocumentDetail, error) {
	docs, err := s.docs.CategoryDocuments(ctx, clientID, category, years)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	return docs, nil
}

// SendReminders emails the selected clients. content overrides the stored
// reminder template when non-empty. It returns how many clients matched.
func (s *DashboardService) SendReminders(ctx context.Context, clientIDs []int, content string) (int, error) {
	clients, err := s.docs.Clients(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load clients: %w", err)
	}

	body := content
	if body == "" {
		body, err = s.settings.ReminderTemplate(ctx)
		if err != nil {
			return 0, err
		}
	}

	selected := make(map[int]bool, len(clientIDs))
	for _, id := range clientIDs {
		selected[id] = true
	}

	sent := 0
	for _, client := range clients {
		if !selected[client.ID] {
			continue
		}
		sent++
		err := s.notifier.SendGenericEmail(ctx, client.Email, reminderSubject, body)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrTransient) {
			log.Printf("Reminder to client %d not delivered: %v", client.ID, err)
			continue
		}
		return sent, fmt.Errorf("failed to send reminder: %w", err)
	}

	return sent, nil
}

// UpdateReminderTemplate stores a new reminder email body
func (s *DashboardService) UpdateReminderTemplate(ctx context.Context, template string) error {
	if err := validation.ValidateRequired("template", template, maxReminderTemplateLen); err != nil {
		return err
	}
	return s.settings.SetReminderTemplate(ctx, template)
}

// MockDocumentProvider serves fixed sample data until a document store exists
type MockDocumentProvider struct {
	now func() time.Time
}

// NewMockDocumentProvider creates the sample-data provider
func NewMockDocumentProvider() *MockDocumentProvider {
	return &MockDocumentProvider{now: time.Now}
}

func (p *MockDocumentProvider) daysAgo(n int) time.Time {
	return p.now().AddDate(0, 0, -n)
}

// taxYear is the year currently being filed
func (p *MockDocumentProvider) taxYear() int {
	return p.now().Year() - 1
}

func (p *MockDocumentProvider) RecentUploads(ctx context.Context, userID int64) ([]models.RecentUpload, error) {
	year := p.taxYear()
	return []models.RecentUpload{
		{FileName: fmt.Sprintf("W2_%d.pdf", year), FileType: "W2", UploadDate: p.daysAgo(1), Status: "Processed"},
		{FileName: "1099_R_Retirement.pdf", FileType: "1099-R", UploadDate: p.daysAgo(2), Status: "Processing"},
		{FileName: "SSA_1099_SocialSecurity.pdf", FileType: "SSA-1099", UploadDate: p.daysAgo(3), Status: "Processed"},
		{FileName: fmt.Sprintf("529_Contributions_%d.pdf", year), FileType: "529 Contributions", UploadDate: p.daysAgo(4), Status: "Processed"},
		{FileName: "IRA_Contributions.pdf", FileType: "IRA Contributions", UploadDate: p.daysAgo(5), Status: "Processing"},
		{FileName: "Estimated_Tax_Q4.pdf", FileType: "Estimated Taxes Paid", UploadDate: p.daysAgo(6), Status: "Processed"},
		{FileName: "Foreign_Income_Statement.pdf", FileType: "Foreign Income", UploadDate: p.daysAgo(7), Status: "Processing"},
		{FileName: "Rental_Property_Expenses.pdf", FileType: "Rental Property", UploadDate: p.daysAgo(8), Status: "Processed"},
		{FileName: fmt.Sprintf("Business_Income_%d.pdf", year), FileType: "Business Income/Expenses", UploadDate: p.daysAgo(9), Status: "Processed"},
		{FileName: "Schedule_K1.pdf", FileType: "Schedule K-1", UploadDate: p.daysAgo(10), Status: "Processed"},
	}, nil
}

func (p *MockDocumentProvider) UploadStats(ctx context.Context, userID int64) (models.UploadStats, error) {
	return models.UploadStats{
		TotalUploads:   28,
		ProcessedFiles: 22,
		PendingFiles:   6,
		CurrentTaxYear: p.taxYear(),
	}, nil
}

func (p *MockDocumentProvider) AllUploads(ctx context.Context) ([]models.AdminUpload, error) {
	year := p.taxYear()
	return []models.AdminUpload{
		{ID: 1, FileName: fmt.Sprintf("W2_%d.pdf", year), FileType: "W2", ClientName: "John Doe", UploadDate: p.daysAgo(1), Status: "Processed"},
		{ID: 2, FileName: "1099_INT_Chase.pdf", FileType: "1099 Int", ClientName: "Jane Smith", UploadDate: p.daysAgo(2), Status: "Processing"},
		{ID: 3, FileName: "Schedule_K1_Partnership.pdf", FileType: "Schedule K-1", ClientName: "Mike Johnson", UploadDate: p.daysAgo(3), Status: "Processed"},
		{ID: 4, FileName: "1098_Mortgage_Interest.pdf", FileType: "1098", ClientName: "Sarah Wilson", UploadDate: p.daysAgo(4), Status: "Processed"},
		{ID: 5, FileName: "Business_Expenses_Q4.pdf", FileType: "Business Income/Expenses", ClientName: "David Brown", UploadDate: p.daysAgo(5), Status: "Processing"},
		{ID: 6, FileName: "Rental_Income_Statement.pdf", FileType: "Rental Property", ClientName: "Lisa Davis", UploadDate: p.daysAgo(6), Status: "Processed"},
		{ID: 7, FileName: fmt.Sprintf("Foreign_Income_%d.pdf", year), FileType: "Foreign Income", ClientName: "Robert Miller", UploadDate: p.daysAgo(7), Status: "Processing"},
		{ID: 8, FileName: "IRA_Contribution_Receipt.pdf", FileType: "IRA Contributions", ClientName: "Emily Garcia", UploadDate: p.daysAgo(8), Status: "Processed"},
	}, nil
}

func (p *MockDocumentProvider) AdminUploadStats(ctx context.Context) (models.AdminUploadStats, error) {
	return models.AdminUploadStats{
		TotalUploadsThisWeek: 15,
		CurrentTaxYear:       p.taxYear(),
		FilterPeriod:         "week",
		StartDate:            p.daysAgo(7),
	}, nil
}

func (p *MockDocumentProvider) Clients(ctx context.Context) ([]models.ClientSummary, error) {
	return []models.ClientSummary{
		{ID: 1, Name: "John Doe", Email: "john.doe@email.com", Initials: "JD", DocumentCount: 8, LastUpload: p.daysAgo(1)},
		{ID: 2, Name: "Jane Smith", Email: "jane.smith@email.com", Initials: "JS", DocumentCount: 12, LastUpload: p.daysAgo(2)},
		{ID: 3, Name: "Mike Johnson", Email: "mike.johnson@email.com", Initials: "MJ", DocumentCount: 6, LastUpload: p.daysAgo(3)},
		{ID: 4, Name: "Sarah Wilson", Email: "sarah.wilson@email.com", Initials: "SW", DocumentCount: 10, LastUpload: p.daysAgo(4)},
		{ID: 5, Name: "David Brown", Email: "david.brown@email.com", Initials: "DB", DocumentCount: 15, LastUpload: p.daysAgo(5)},
		{ID: 6, Name: "Lisa Davis", Email: "lisa.davis@email.com", Initials: "LD", DocumentCount: 9, LastUpload: p.daysAgo(6)},
		{ID: 7, Name: "Robert Miller", Email: "robert.miller@email.com", Initials: "RM", DocumentCount: 7, LastUpload: p.daysAgo(7)},
		{ID: 8, Name: "Emily Garcia", Email: "emily.garcia@email.com", Initials: "EG", DocumentCount: 11, LastUpload: p.daysAgo(8)},
	}, nil
}

func (p *MockDocumentProvider) ClientDocumentCategories(ctx context.Context, clientID int) ([]models.DocumentCategory, error) {
	return []models.DocumentCategory{
		{Category: "W2", DocumentCount: 2, LastUpdated: p.daysAgo(1)},
		{Category: "1099 Int", DocumentCount: 3, LastUpdated: p.daysAgo(2)},
		{Category: "1098", DocumentCount: 1, LastUpdated: p.daysAgo(3)},
		{Category: "Schedule K-1", DocumentCount: 1, LastUpdated: p.daysAgo(4)},
		{Category: "Business Income/Expenses", DocumentCount: 4, LastUpdated: p.daysAgo(5)},
	}, nil
}

func (p *MockDocumentProvider) CategoryDocuments(ctx context.Context, clientID int, category string, years []int) ([]models.DocumentDetail, error) {
	return []models.DocumentDetail{
		{ID: 1, FileName: category + "_Document_1.pdf", UploadDate: p.daysAgo(1), FileSize: "2.3 MB", Status: "Processed"},
		{ID: 2, FileName: category + "_Document_2.pdf", UploadDate: p.daysAgo(3), FileSize: "1.8 MB", Status: "Processed"},
		{ID: 3, FileName: category + "_Document_3.pdf", UploadDate: p.daysAgo(5), FileSize: "3.1 MB", Status: "Processing"},
	}, nil
}

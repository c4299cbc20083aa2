package models

import "time"

// RecentUpload is a document shown on the client dashboard
type RecentUpload struct {
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	UploadDate time.Time `json:"uploadDate"`
	Status     string    `json:"status"`
}

// UploadStats summarises a client's uploads for the current tax year
type UploadStats struct {
	TotalUploads   int `json:"totalUploads"`
	ProcessedFiles int `json:"processedFiles"`
	PendingFiles   int `json:"pendingFiles"`
	CurrentTaxYear int `json:"currentTaxYear"`
}

// AdminUpload is an upload row on the admin dashboard
type AdminUpload struct {
	ID         int       `json:"id"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	ClientName string    `json:"clientName"`
	UploadDate time.Time `json:"uploadDate"`
	Status     string    `json:"status"`
}

// AdminUploadStats summarises uploads for the admin filter period
type AdminUploadStats struct {
	TotalUploadsThisWeek int       `json:"totalUploadsThisWeek"`
	CurrentTaxYear       int       `json:"currentTaxYear"`
	FilterPeriod         string    `json:"filterPeriod"`
	StartDate            time.Time `json:"startDate"`
}

// ClientSummary is a client row on the admin dashboard
type ClientSummary struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Initials      string    `json:"initials"`
	DocumentCount int       `json:"documentCount"`
	LastUpload    time.Time `json:"lastUpload"`
}

// DocumentCategory is a per-category document count for one client
type DocumentCategory struct {
	Category      string    `json:"category"`
	DocumentCount int       `json:"documentCount"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// DocumentDetail is a single document inside a category
type DocumentDetail struct {
	ID         int       `json:"id"`
	FileName   string    `json:"fileName"`
	UploadDate time.Time `json:"uploadDate"`
	FileSize   string    `json:"fileSize"`
	Status     string    `json:"status"`
}

// NotificationSettings are the per-user notification toggles
type NotificationSettings struct {
	EmailNotifications         bool
	SMSNotifications           bool
	FileProcessedNotifications bool
	TaxDeadlineReminders       bool
	AppointmentReminders       bool
}

// Testimonial is shown on the marketing home page
type Testimonial struct {
	Name    string
	Company string
	Message string
	Rating  int
}

// ServiceOffering is a card on the marketing services page
type ServiceOffering struct {
	Title       string
	Icon        string
	Description string
}

package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/meeting-intelligence/internal/logger"
	"github.com/yourusername/meeting-intelligence/internal/models"
)

// SeedLeads seeds a handful of demo CRM leads for local development, so a
// freshly migrated database has something a seeded Meeting can reference.
func SeedLeads(db *gorm.DB) {
	log := logger.WithComponent("database")

	leads := []models.Lead{
		{CRMID: "crm-demo-001", Name: "Dana Whitfield", Email: "dana@northwind.example", Company: "Northwind Traders"},
		{CRMID: "crm-demo-002", Name: "Marcus Oyelaran", Email: "marcus@initech.example", Company: "Initech"},
	}

	for _, lead := range leads {
		var existing models.Lead
		result := db.Where("crm_id = ?", lead.CRMID).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := db.Create(&lead).Error; err != nil {
				log.Error().Err(err).Str("crm_id", lead.CRMID).Msg("Failed to seed lead")
				continue
			}
			log.Info().Str("crm_id", lead.CRMID).Msg("Seeded lead")
		}
	}
}

// SeedDemoMeeting seeds one scheduled meeting against the first seeded lead,
// useful for exercising POST /meetings/{id}/start against a fresh database.
func SeedDemoMeeting(db *gorm.DB) {
	log := logger.WithComponent("database")

	var lead models.Lead
	if err := db.Where("crm_id = ?", "crm-demo-001").First(&lead).Error; err != nil {
		log.Warn().Err(err).Msg("No seed lead found, skipping demo meeting")
		return
	}

	var existing models.Meeting
	result := db.Where("calendar_event_id = ?", "demo-calendar-event-001").First(&existing)
	if result.Error != gorm.ErrRecordNotFound {
		return
	}

	meeting := models.Meeting{
		CalendarEventID: "demo-calendar-event-001",
		LeadID:          &lead.ID,
		Title:           "Demo discovery call",
		StartTime:       time.Now().Add(time.Hour),
		EndTime:         time.Now().Add(2 * time.Hour),
		Attendees:       models.StringSlice{lead.Email, "rep@ourcompany.example"},
		Status:          models.MeetingScheduled,
	}
	if err := db.Create(&meeting).Error; err != nil {
		log.Error().Err(err).Msg("Failed to seed demo meeting")
		return
	}
	log.Info().Str("meeting_id", meeting.ID.String()).Msg("Seeded demo meeting")
}

// SeedAll runs every seed routine.
func SeedAll(db *gorm.DB) {
	SeedLeads(db)
	SeedDemoMeeting(db)
}

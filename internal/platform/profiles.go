package platform

import (
	"errors"

	"linkup/backend/internal/models"

	"gorm.io/gorm"
)

// Profiles resolves user ids to display summaries for participant and sender
// payloads.
type Profiles interface {
	Summary(userID string) (models.ProfileSummary, error)
	Summaries(userIDs []string) (map[string]models.ProfileSummary, error)
}

// GormProfiles reads the users table maintained by the profile service.
type GormProfiles struct {
	db *gorm.DB
}

func NewGormProfiles(db *gorm.DB) *GormProfiles {
	return &GormProfiles{db: db}
}

func (p *GormProfiles) Summary(userID string) (models.ProfileSummary, error) {
	var user models.User
	err := p.db.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// A missing profile row must not break chat payloads.
		return models.ProfileSummary{UserID: userID, DisplayName: "Unknown user"}, nil
	}
	if err != nil {
		return models.ProfileSummary{}, err
	}
	return user.Summary(), nil
}

func (p *GormProfiles) Summaries(userIDs []string) (map[string]models.ProfileSummary, error) {
	out := make(map[string]models.ProfileSummary, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var users []models.User
	if err := p.db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	for _, id := range userIDs {
		if _, ok := out[id]; !ok {
			out[id] = models.ProfileSummary{UserID: id, DisplayName: "Unknown user"}
		}
	}
	return out, nil
}

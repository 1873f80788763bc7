package service

import (
	"context"

	"gorm.io/gorm"

	"tourguard/api/internal/model"
	"tourguard/api/internal/policy"
)

// ProfileService owns the identity records
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService creates a new profile service
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// Provision inserts the identity record for a freshly created user. It runs
// on the registration transaction handle: a parse error here aborts the
// whole signup. full_name defaults to "User", role to tourist; every other
// missing field persists as NULL.
func (s *ProfileService) Provision(tx *gorm.DB, userID uint, meta model.SignupMetadata) (*model.Profile, error) {
	role := model.RoleTourist
	if meta.Role != "" {
		parsed, err := model.ParseRole(meta.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	fullName := meta.FullName
	if fullName == "" {
		fullName = "User"
	}

	profile := model.Profile{
		UserID:                userID,
		FullName:              fullName,
		Role:                  role,
		Phone:                 nullable(meta.Phone),
		EmergencyContactName:  nullable(meta.EmergencyContactName),
		EmergencyContactPhone: nullable(meta.EmergencyContactPhone),
		Country:               nullable(meta.Country),
	}

	if err := tx.Create(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Get returns the profile for a user id, policy-checked against the caller.
func (s *ProfileService) Get(ctx context.Context, caller policy.Caller, userID uint) (*model.Profile, error) {
	var profile model.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	if err := policy.Authorize((policy.Profiles{}).Can(caller, policy.ActionSelect, profile)); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update applies the owner-editable fields. Only the owner may update;
// elevated roles read profiles but never write them.
func (s *ProfileService) Update(ctx context.Context, caller policy.Caller, req *model.UpdateProfileRequest) (*model.Profile, error) {
	var profile model.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", caller.UserID).First(&profile).Error; err != nil {
		return nil, err
	}
	if err := policy.Authorize((policy.Profiles{}).Can(caller, policy.ActionUpdate, profile)); err != nil {
		return nil, err
	}

	// absent fields stay untouched, "" clears a nullable column
	updates := map[string]interface{}{}
	if req.FullName != nil && *req.FullName != "" {
		updates["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		updates["phone"] = nullable(*req.Phone)
	}
	if req.EmergencyContactName != nil {
		updates["emergency_contact_name"] = nullable(*req.EmergencyContactName)
	}
	if req.EmergencyContactPhone != nil {
		updates["emergency_contact_phone"] = nullable(*req.EmergencyContactPhone)
	}
	if req.Country != nil {
		updates["country"] = nullable(*req.Country)
	}
	if len(updates) == 0 {
		return &profile, nil
	}

	if err := s.db.WithContext(ctx).Model(&profile).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Where("user_id = ?", caller.UserID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// List returns all identity records; elevated roles only.
func (s *ProfileService) List(ctx context.Context, caller policy.Caller) ([]model.Profile, error) {
	if !caller.Elevated() {
		return nil, policy.ErrDenied
	}

	var profiles []model.Profile
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetByUserID fetches a profile without a policy check, for internal use
// (enriching feed messages with display names).
func (s *ProfileService) GetByUserID(ctx context.Context, userID uint) (*model.Profile, error) {
	var profile model.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

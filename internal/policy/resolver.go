package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"tourguard/api/internal/model"
)

// RoleResolver looks up a caller's role from their profile row.
//
// It is the trusted equivalent of a security-definer function: the lookup
// runs against the service's own unrestricted DB handle, so evaluating a
// policy never recurses into the row checks the role is used to define.
// Results are cached briefly; Invalidate must be called when a profile's
// role changes.
type RoleResolver struct {
	db    *gorm.DB
	cache *gocache.Cache
}

// NewRoleResolver creates a resolver with the given cache TTL.
func NewRoleResolver(db *gorm.DB, ttl time.Duration) *RoleResolver {
	return &RoleResolver{
		db:    db,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Resolve returns the role for a user id. A user without a profile yields
// the zero role and no error: the caller is treated as role-less and every
// elevated check fails closed.
func (r *RoleResolver) Resolve(ctx context.Context, userID uint) (model.AppRole, error) {
	key := fmt.Sprintf("%d", userID)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(model.AppRole), nil
	}

	var profile model.Profile
	err := r.db.WithContext(ctx).Select("role").Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	r.cache.Set(key, profile.Role, gocache.DefaultExpiration)
	return profile.Role, nil
}

// CallerFor resolves a full Caller for the given user id.
func (r *RoleResolver) CallerFor(ctx context.Context, userID uint) (Caller, error) {
	role, err := r.Resolve(ctx, userID)
	if err != nil {
		return Caller{}, err
	}
	return Caller{UserID: userID, Role: role}, nil
}

// Invalidate drops the cached role for a user.
func (r *RoleResolver) Invalidate(userID uint) {
	r.cache.Delete(fmt.Sprintf("%d", userID))
}

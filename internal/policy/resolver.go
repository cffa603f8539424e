package policy

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/go-contracts/gate"
	"github.com/diewo77/go-contracts/internal/models"
)

// DBProfileResolver loads a user's profile and permissions with gorm.
type DBProfileResolver struct {
	DB *gorm.DB
}

func NewDBProfileResolver(db *gorm.DB) *DBProfileResolver {
	return &DBProfileResolver{DB: db}
}

// Resolve returns nil without error for unknown users and users without a profile.
func (r *DBProfileResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Preload("Profile.Permissions").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.Profile == nil {
		return nil, nil
	}
	perms := make([]gate.Permission, len(user.Profile.Permissions))
	for i, p := range user.Profile.Permissions {
		perms[i] = gate.Permission(p.Code())
	}
	return gate.NewStaticProfile(user.Profile.ID, user.Profile.Name, perms...), nil
}

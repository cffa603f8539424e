package db

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/execution"
	"github.com/diewo77/go-contracts/internal/models"
)

// SeedPermissions creates every resource:action pair the API checks.
func SeedPermissions(db *gorm.DB) error {
	permissions := []struct {
		ResourceType string
		Action       string
		Description  string
	}{
		{"*", "*", "Full system access"},
		{"contract", "*", "All contract actions"},
		{"contract", "list", "List contracts and RFQs"},
		{"contract", "view", "View contract details"},
		{"contract", "create", "Create contracts and RFQs"},
		{"service_event", "*", "All service event actions"},
		{"service_event", "list", "List service events"},
		{"service_event", "view", "View service events"},
		{"service_event", "create", "Schedule service events"},
		{"service_event", "transition", "Change service event status"},
		{"master_data", "list", "Read tax rates, categories, templates and catalog"},
	}
	for _, p := range permissions {
		perm := models.Permission{ResourceType: p.ResourceType, Action: p.Action, Description: p.Description}
		if err := db.Where("resource_type = ? AND action = ?", p.ResourceType, p.Action).FirstOrCreate(&perm).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedProfiles creates the system profiles and resets their permissions.
func SeedProfiles(db *gorm.DB) error {
	if err := SeedPermissions(db); err != nil {
		return err
	}
	profiles := []struct {
		Name        string
		Description string
		Permissions []string
	}{
		{"admin", "Tenant administrator with all permissions", []string{"*:*"}},
		{"operator", "Creates contracts and runs service events", []string{"contract:*", "service_event:*", "master_data:list"}},
		{"viewer", "Read-only access", []string{"contract:list", "contract:view", "service_event:list", "service_event:view", "master_data:list"}},
	}
	for _, p := range profiles {
		profile := models.Profile{Name: p.Name, Description: p.Description, IsSystem: true}
		if err := db.Where("name = ?", p.Name).FirstOrCreate(&profile).Error; err != nil {
			return err
		}
		var perms []models.Permission
		for _, code := range p.Permissions {
			resource, action, _ := strings.Cut(code, ":")
			var perm models.Permission
			if err := db.Where("resource_type = ? AND action = ?", resource, action).First(&perm).Error; err == nil {
				perms = append(perms, perm)
			}
		}
		if err := db.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return err
		}
	}
	return nil
}

// Seed creates permissions and system profiles.
func Seed(db *gorm.DB) error {
	return SeedProfiles(db)
}

// DemoTenant is the name of the tenant created by SeedDemo.
const DemoTenant = "Demo Facilities"

// SeedDemo creates a demo tenant with an admin and an operator user (both
// using password), master data and transition rules. Running it twice
// changes nothing.
func SeedDemo(db *gorm.DB, password string) error {
	if err := Seed(db); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		tenant := models.Tenant{Name: DemoTenant, Currency: "INR"}
		if err := tx.Where("name = ?", tenant.Name).FirstOrCreate(&tenant).Error; err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		for email, profile := range map[string]string{"admin@example.com": "admin", "operator@example.com": "operator"} {
			if err := seedUser(tx, tenant.ID, email, profile, string(hash)); err != nil {
				return err
			}
		}

		rates := map[string]models.TaxRate{}
		ratesByID := map[string]models.TaxRate{}
		for _, r := range []models.TaxRate{{Name: "GST", Rate: 18}, {Name: "CGST", Rate: 9}, {Name: "SGST", Rate: 9}} {
			r.TenantID = tenant.ID
			if err := tx.Where("tenant_id = ? AND name = ?", tenant.ID, r.Name).FirstOrCreate(&r).Error; err != nil {
				return err
			}
			rates[r.Name] = r
			ratesByID[r.ID] = r
		}

		cats := map[string]models.Category{}
		for _, name := range []string{"Cleaning", "HVAC", "Security"} {
			c := models.Category{TenantID: tenant.ID, Name: name}
			if err := tx.Where("tenant_id = ? AND name = ?", tenant.ID, name).FirstOrCreate(&c).Error; err != nil {
				return err
			}
			cats[name] = c
		}

		catalog := []models.CatalogBlock{
			{CategoryID: cats["Cleaning"].ID, Name: "Deep cleaning", Price: 1000, Cycle: string(contract.CycleMonthly), TaxRateIDs: models.ToJSON([]string{rates["GST"].ID})},
			{CategoryID: cats["HVAC"].ID, Name: "AC servicing", Price: 2500, Cycle: string(contract.CycleQuarterly), TaxRateIDs: models.ToJSON([]string{rates["CGST"].ID, rates["SGST"].ID})},
			{CategoryID: cats["Security"].ID, Name: "Night guard", Price: 18000, Cycle: string(contract.CyclePostpaid), TaxRateIDs: models.ToJSON([]string{rates["GST"].ID})},
		}
		items := make([]contract.LineItem, 0, len(catalog))
		for _, b := range catalog {
			b.TenantID = tenant.ID
			if err := tx.Where("tenant_id = ? AND name = ?", tenant.ID, b.Name).FirstOrCreate(&b).Error; err != nil {
				return err
			}
			items = append(items, b.LineItem(ratesByID))
		}

		tpl := models.ContractTemplate{
			TenantID:    tenant.ID,
			Name:        "Annual facility maintenance",
			Description: "Cleaning and HVAC for twelve months",
			Currency:    "INR",
			Blocks:      models.ToJSON(items[:2]),
		}
		if err := tx.Where("tenant_id = ? AND name = ?", tenant.ID, tpl.Name).FirstOrCreate(&tpl).Error; err != nil {
			return err
		}

		inspection := []struct{ from, to execution.Status }{
			{execution.StatusScheduled, execution.StatusInProgress},
			{execution.StatusScheduled, execution.StatusCancelled},
			{execution.StatusInProgress, execution.StatusCompleted},
			{execution.StatusOverdue, execution.StatusInProgress},
			{execution.StatusOverdue, execution.StatusCancelled},
		}
		for _, t := range inspection {
			rule := models.TransitionRule{TenantID: tenant.ID, EventType: "inspection", FromStatus: string(t.from), ToStatus: string(t.to)}
			if err := tx.Where(&rule).FirstOrCreate(&rule).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func seedUser(tx *gorm.DB, tenantID uint, email, profileName, hash string) error {
	var profile models.Profile
	if err := tx.Where("name = ?", profileName).First(&profile).Error; err != nil {
		return fmt.Errorf("profile %s: %w", profileName, err)
	}
	var user models.User
	err := tx.Where("email = ?", email).First(&user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	user = models.User{TenantID: tenantID, Email: email, Name: profileName, Password: hash, ProfileID: &profile.ID}
	return tx.Create(&user).Error
}

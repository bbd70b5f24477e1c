// Package seed provisions the fixed plan catalog and an optional
// bootstrap company with its admin user on first start.
package seed

import (
	"errors"
	"strings"
	"time"

	authdomain "github.com/Ethronics/ecosnap-sub001/internal/auth/domain"
	"github.com/Ethronics/ecosnap-sub001/internal/auth/password"
	companydomain "github.com/Ethronics/ecosnap-sub001/internal/company/domain"
	"github.com/Ethronics/ecosnap-sub001/internal/config"
	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	subscriptiondomain "github.com/Ethronics/ecosnap-sub001/internal/subscription/domain"
	usagedomain "github.com/Ethronics/ecosnap-sub001/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// defaultPlans is the fixed catalog. Limits only ever change here.
func defaultPlans() []plandomain.Plan {
	return []plandomain.Plan{
		{
			Name:              plandomain.PlanFree,
			MaxDomains:        1,
			MaxEmployees:      5,
			RequestsPerDay:    100,
			DataRetentionDays: 7,
			PriceCents:        0,
		},
		{
			Name:              plandomain.PlanPro,
			MaxDomains:        5,
			MaxEmployees:      25,
			RequestsPerDay:    1000,
			DataRetentionDays: 30,
			PriceCents:        2900,
		},
		{
			Name:              plandomain.PlanPremium,
			MaxDomains:        20,
			MaxEmployees:      100,
			RequestsPerDay:    10000,
			DataRetentionDays: 90,
			PriceCents:        9900,
		},
	}
}

// EnsurePlans inserts any plan tier that does not exist yet. Existing
// rows are left alone so operators can tune limits in place.
func EnsurePlans(conn *gorm.DB, genID *snowflake.Node) error {
	for _, plan := range defaultPlans() {
		var existing plandomain.Plan
		err := conn.Where("name = ?", plan.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		plan.ID = genID.Generate()
		plan.Currency = "USD"
		if err := conn.Create(&plan).Error; err != nil {
			return err
		}
	}
	return nil
}

// EnsureBootstrap creates the default company, its admin user, a Free
// subscription and an empty usage row. It is a no-op once the company
// exists or when no admin credentials are configured.
func EnsureBootstrap(conn *gorm.DB, genID *snowflake.Node, cfg config.Config) error {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPass == "" {
		return nil
	}

	companySlug := slug.Make(cfg.BootstrapCompany)
	var company companydomain.Company
	err := conn.Where("slug = ?", companySlug).First(&company).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	company = companydomain.Company{
		ID:        genID.Generate(),
		Name:      cfg.BootstrapCompany,
		Slug:      companySlug,
		IsDefault: true,
	}
	hash, err := password.Hash(cfg.BootstrapAdminPass)
	if err != nil {
		return err
	}
	admin := authdomain.User{
		ID:           genID.Generate(),
		CompanyID:    company.ID,
		Name:         "Administrator",
		Email:        strings.ToLower(cfg.BootstrapAdminEmail),
		PasswordHash: hash,
		Role:         authdomain.RoleAdmin,
	}

	var freePlan plandomain.Plan
	if err := conn.Where("name = ?", plandomain.PlanFree).First(&freePlan).Error; err != nil {
		return err
	}
	subscription := subscriptiondomain.Subscription{
		ID:        genID.Generate(),
		CompanyID: company.ID,
		PlanID:    freePlan.ID,
		Status:    subscriptiondomain.StatusActive,
		StartedAt: now,
		ExpiresAt: now.Add(30 * 24 * time.Hour),
	}
	usage := usagedomain.Usage{CompanyID: company.ID}

	return conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&company).Error; err != nil {
			return err
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		if err := tx.Create(&subscription).Error; err != nil {
			return err
		}
		return tx.Create(&usage).Error
	})
}

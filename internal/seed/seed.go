// Package seed bootstraps the sellable plan catalog on startup.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	subdomain "github.com/crewbase/crewbase/internal/subscription/domain"
)

type planConfig struct {
	Name         string
	Description  string
	PlanType     subdomain.PlanType
	MonthlyPrice float64
	YearlyPrice  float64
	IsPopular    bool
	Features     []string
}

// Feature switches shipped with the product. Standard gets the first
// fourteen, Premium all of them.
var featureCatalog = []string{
	"Manage Leads and Customer Data",
	"Add and Manage Team Members",
	"Create Quick Reply Message Templates",
	"Organize Leads Using Custom Tags",
	"Track Sales Pipeline and Progress",
	"Manage and Track Support Tickets",
	"Access Business Insights Dashboard",
	"Export Business Reports and Data",
	"Bulk Import Leads from CSV File",
	"Set and Manage Task Reminders",
	"Schedule and Manage Business Events",
	"Sync Files with Google Drive",
	"Create and Manage Departments Easily",
	"Save and Store Business Images",
	"Sync Conversations Across Multiple Devices",
	"Integrate and Manage Facebook Lead",
	"Sync Events with Google Calendar",
}

func planCatalog() []planConfig {
	return []planConfig{
		{
			Name:         "Standard",
			Description:  "Basic features for small teams",
			PlanType:     subdomain.PlanTypeStandard,
			MonthlyPrice: 599,
			YearlyPrice:  479,
			Features:     featureCatalog[:14],
		},
		{
			Name:         "Premium",
			Description:  "Advanced features for growing teams",
			PlanType:     subdomain.PlanTypePremium,
			MonthlyPrice: 799,
			YearlyPrice:  639,
			IsPopular:    true,
			Features:     featureCatalog,
		},
	}
}

// EnsurePlans seeds the plan catalog once. An already-populated plans
// table is left untouched.
func EnsurePlans(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&subdomain.Plan{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		for _, cfg := range planCatalog() {
			plan := subdomain.Plan{
				ID:           node.Generate(),
				Name:         cfg.Name,
				Description:  cfg.Description,
				PlanType:     cfg.PlanType,
				MonthlyPrice: cfg.MonthlyPrice,
				YearlyPrice:  cfg.YearlyPrice,
				IsActive:     true,
				IsPopular:    cfg.IsPopular,
			}
			if err := tx.Create(&plan).Error; err != nil {
				return err
			}

			for _, name := range cfg.Features {
				feature := subdomain.PlanFeature{
					ID:        node.Generate(),
					PlanID:    plan.ID,
					Name:      name,
					IsEnabled: true,
				}
				if err := tx.Create(&feature).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

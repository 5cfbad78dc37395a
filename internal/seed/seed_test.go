package seed

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/crewbase/crewbase/internal/subscription/domain"
	"github.com/crewbase/crewbase/pkg/db"
)

func seedDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Plan{}, &domain.PlanFeature{}))
	return conn
}

func TestEnsurePlansSeedsCatalog(t *testing.T) {
	conn := seedDB(t)
	require.NoError(t, EnsurePlans(conn))

	var plans []domain.Plan
	require.NoError(t, conn.Order("monthly_price ASC").Find(&plans).Error)
	require.Len(t, plans, 2)

	standard, premium := plans[0], plans[1]
	require.Equal(t, "Standard", standard.Name)
	require.Equal(t, domain.PlanTypeStandard, standard.PlanType)
	require.InDelta(t, 599, standard.MonthlyPrice, 0)
	require.InDelta(t, 479, standard.YearlyPrice, 0)
	require.True(t, standard.IsActive)
	require.False(t, standard.IsPopular)

	require.Equal(t, "Premium", premium.Name)
	require.True(t, premium.IsPopular)

	var count int64
	require.NoError(t, conn.Model(&domain.PlanFeature{}).
		Where("plan_id = ?", standard.ID).Count(&count).Error)
	require.EqualValues(t, 14, count)

	require.NoError(t, conn.Model(&domain.PlanFeature{}).
		Where("plan_id = ?", premium.ID).Count(&count).Error)
	require.EqualValues(t, 17, count)

	var departments domain.PlanFeature
	require.NoError(t, conn.
		Where("plan_id = ? AND name = ?", premium.ID, "Create and Manage Departments Easily").
		First(&departments).Error)
	require.True(t, departments.IsEnabled)
}

func TestEnsurePlansIsIdempotent(t *testing.T) {
	conn := seedDB(t)
	require.NoError(t, EnsurePlans(conn))
	require.NoError(t, EnsurePlans(conn))

	var plans, features int64
	require.NoError(t, conn.Model(&domain.Plan{}).Count(&plans).Error)
	require.NoError(t, conn.Model(&domain.PlanFeature{}).Count(&features).Error)
	require.EqualValues(t, 2, plans)
	require.EqualValues(t, 31, features)
}

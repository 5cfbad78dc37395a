package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	orgdomain "github.com/crewbase/crewbase/internal/organization/domain"
	subdomain "github.com/crewbase/crewbase/internal/subscription/domain"
)

func (s *Server) GetPlanDetail(c *gin.Context) {
	plans, err := s.subSvc.ListPlans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "PLAN_DETAIL", plans)
}

type purchasePlanRequest struct {
	OrganizationID string `json:"organizationId"`
	PlanID         string `json:"planId"`
	BillingCycle   string `json:"billingCycle"`
	MemberCount    int    `json:"memberCount"`
}

func (s *Server) PurchasePlan(c *gin.Context) {
	identityID, ok := identityIDFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("TOKEN_REQUIRED", http.StatusUnauthorized))
		return
	}

	var req purchasePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orgID, err := snowflake.ParseString(strings.TrimSpace(req.OrganizationID))
	if err != nil {
		AbortWithError(c, orgdomain.ErrNotFound)
		return
	}
	planID, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
	if err != nil {
		AbortWithError(c, subdomain.ErrPlanNotFound)
		return
	}

	cycle, err := subdomain.ParseBillingCycle(req.BillingCycle)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sub, err := s.subSvc.Purchase(c.Request.Context(), identityID, subdomain.PurchaseRequest{
		OrganizationID: orgID,
		PlanID:         planID,
		BillingCycle:   cycle,
		MemberCount:    req.MemberCount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "PLAN_PURCHASED_SUCCESSFULLY", sub)
}

package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	orgdomain "github.com/crewbase/crewbase/internal/organization/domain"
)

type registerOrganizationRequest struct {
	OrganizationName string `json:"organizationName"`
	Country          string `json:"country"`
}

func (s *Server) RegisterOrganization(c *gin.Context) {
	identityID, ok := identityIDFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("TOKEN_REQUIRED", http.StatusUnauthorized))
		return
	}

	var req registerOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	detail, err := s.orgSvc.Register(c.Request.Context(), identityID, orgdomain.RegisterRequest{
		Name:    strings.TrimSpace(req.OrganizationName),
		Country: strings.TrimSpace(req.Country),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "ORGANIZATION_REGISTERED_SUCCESSFULLY", detail)
}

func (s *Server) OrganizationNameCheck(c *gin.Context) {
	name := strings.TrimSpace(c.Query("organizationName"))
	if name == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	available, err := s.orgSvc.NameAvailable(c.Request.Context(), name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !available {
		respond(c, http.StatusBadRequest, "ORGANIZATION_NAME_UNAVAILABLE", gin.H{"isAvailable": false})
		return
	}
	respond(c, http.StatusOK, "ORGANIZATION_NAME_AVAILABLE", gin.H{"isAvailable": true})
}

func (s *Server) SubdomainNameCheck(c *gin.Context) {
	subdomainName := strings.TrimSpace(c.Query("subdomain"))
	if subdomainName == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	available, err := s.orgSvc.SubdomainAvailable(c.Request.Context(), subdomainName)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !available {
		respond(c, http.StatusBadRequest, "SUBDOMAIN_UNAVAILABLE", gin.H{"isAvailable": false})
		return
	}
	respond(c, http.StatusOK, "SUBDOMAIN_AVAILABLE", gin.H{"isAvailable": true})
}

func (s *Server) GetOrganizationDetail(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("USER_AUTHENTICATION_REQUIRED", http.StatusBadRequest))
		return
	}

	detail, err := s.orgSvc.Detail(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "ORGANIZATION_DETAIL", detail)
}

type editOrganizationRequest struct {
	OrganizationName string  `json:"organizationName"`
	Country          string  `json:"country"`
	ImageURL         *string `json:"organizationImage"`
	ImageKey         *string `json:"organizationImageKey"`
}

func (s *Server) EditOrganization(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("USER_AUTHENTICATION_REQUIRED", http.StatusBadRequest))
		return
	}

	var req editOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	detail, err := s.orgSvc.Edit(c.Request.Context(), orgID, orgdomain.EditRequest{
		Name:     strings.TrimSpace(req.OrganizationName),
		Country:  strings.TrimSpace(req.Country),
		ImageURL: req.ImageURL,
		ImageKey: req.ImageKey,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "ORGANIZATION_EDITED_SUCCESSFULLY", detail)
}

type createDepartmentRequest struct {
	DepartmentName        string `json:"departmentName"`
	DepartmentDescription string `json:"departmentDescription"`
}

func (s *Server) CreateDepartment(c *gin.Context) {
	identityID, orgID, ok := memberFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("USER_AUTHENTICATION_REQUIRED", http.StatusBadRequest))
		return
	}

	var req createDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dept, err := s.orgSvc.CreateDepartment(c.Request.Context(), identityID, orgID, orgdomain.DepartmentRequest{
		Name:        strings.TrimSpace(req.DepartmentName),
		Description: strings.TrimSpace(req.DepartmentDescription),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, "DEPARTMENT_CREATED_SUCCESSFULLY", dept)
}

func (s *Server) GetDepartments(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("USER_AUTHENTICATION_REQUIRED", http.StatusBadRequest))
		return
	}

	depts, err := s.orgSvc.ListDepartments(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "DEPARTMENTS_FETCHED_SUCCESSFULLY", depts)
}

type updateDepartmentRequest struct {
	DepartmentID          string  `json:"departmentId"`
	DepartmentName        *string `json:"departmentName"`
	DepartmentDescription *string `json:"departmentDescription"`
}

func (s *Server) UpdateDepartment(c *gin.Context) {
	identityID, orgID, ok := memberFrom(c)
	if !ok {
		AbortWithError(c, newAPIError("USER_AUTHENTICATION_REQUIRED", http.StatusBadRequest))
		return
	}

	var req updateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	departmentID, err := snowflake.ParseString(strings.TrimSpace(req.DepartmentID))
	if err != nil {
		AbortWithError(c, orgdomain.ErrDepartmentNotFound)
		return
	}

	dept, err := s.orgSvc.UpdateDepartment(c.Request.Context(), identityID, orgID, departmentID, orgdomain.UpdateDepartmentRequest{
		Name:        req.DepartmentName,
		Description: req.DepartmentDescription,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "DEPARTMENT_UPDATED_SUCCESSFULLY", dept)
}

func memberFrom(c *gin.Context) (identityID, orgID snowflake.ID, ok bool) {
	identityID, ok = identityIDFrom(c)
	if !ok {
		return 0, 0, false
	}
	orgID, ok = orgIDFrom(c)
	if !ok {
		return 0, 0, false
	}
	return identityID, orgID, true
}

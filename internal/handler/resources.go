package handler

import (
	"github.com/songzhibin97/portfolio/pkg/log"
	"github.com/songzhibin97/portfolio/pkg/portfolio"
)

// Collection names, one per resource type
const (
	CollectionDetail     = "Detail"
	CollectionTechStack  = "TechStack"
	CollectionProject    = "Project"
	CollectionExperience = "Experience"
	CollectionUser       = "User"
)

// NewDetailHandler serves /detail
func NewDetailHandler(repo portfolio.Repository[portfolio.Detail], logger log.Logger) *CRUDHandler[portfolio.Detail, portfolio.DetailUpdate] {
	return NewCRUDHandler[portfolio.Detail, portfolio.DetailUpdate]("/detail", repo, logger)
}

// NewTechStackHandler serves /tech-stack
func NewTechStackHandler(repo portfolio.Repository[portfolio.TechStack], logger log.Logger) *CRUDHandler[portfolio.TechStack, portfolio.TechStackUpdate] {
	return NewCRUDHandler[portfolio.TechStack, portfolio.TechStackUpdate]("/tech-stack", repo, logger)
}

// NewProjectHandler serves /projects
func NewProjectHandler(repo portfolio.Repository[portfolio.Project], logger log.Logger) *CRUDHandler[portfolio.Project, portfolio.ProjectUpdate] {
	return NewCRUDHandler[portfolio.Project, portfolio.ProjectUpdate]("/projects", repo, logger)
}

// NewExperienceHandler serves /experiences
func NewExperienceHandler(repo portfolio.Repository[portfolio.Experience], logger log.Logger) *CRUDHandler[portfolio.Experience, portfolio.ExperienceUpdate] {
	return NewCRUDHandler[portfolio.Experience, portfolio.ExperienceUpdate]("/experiences", repo, logger)
}

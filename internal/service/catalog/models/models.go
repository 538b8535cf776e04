package models

import "github.com/queueease/booking-service/internal/domain"

// ListInstitutionsRequest фильтры каталога
type ListInstitutionsRequest struct {
	Type   *string
	Search string
}

// InstitutionResponse учреждение со списком услуг
type InstitutionResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Address  string            `json:"address"`
	Image    string            `json:"image"`
	Services []ServiceResponse `json:"services"`
}

// ServiceResponse услуга учреждения
type ServiceResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	EstimatedTime int    `json:"estimatedTime"` // минуты
	InstitutionID string `json:"institutionId"`
}

// InstitutionListResponse список учреждений
type InstitutionListResponse struct {
	Institutions []InstitutionResponse `json:"institutions"`
	Total        int                   `json:"total"`
}

// FromDomainService конвертирует domain.Service в ServiceResponse
func FromDomainService(s *domain.Service) ServiceResponse {
	return ServiceResponse{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		EstimatedTime: s.EstimatedTimeMinutes,
		InstitutionID: s.InstitutionID,
	}
}

// FromDomainInstitution конвертирует domain.Institution в InstitutionResponse.
// ManagerIDs наружу не отдаются
func FromDomainInstitution(i *domain.Institution) *InstitutionResponse {
	services := make([]ServiceResponse, 0, len(i.Services))
	for _, s := range i.Services {
		services = append(services, FromDomainService(s))
	}

	return &InstitutionResponse{
		ID:       i.ID,
		Name:     i.Name,
		Type:     string(i.Type),
		Address:  i.Address,
		Image:    i.Image,
		Services: services,
	}
}

// FromDomainInstitutionList конвертирует список учреждений
func FromDomainInstitutionList(institutions []*domain.Institution) *InstitutionListResponse {
	result := make([]InstitutionResponse, 0, len(institutions))
	for _, i := range institutions {
		result = append(result, *FromDomainInstitution(i))
	}

	return &InstitutionListResponse{
		Institutions: result,
		Total:        len(result),
	}
}

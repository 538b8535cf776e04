package domain

import "strings"

// InstitutionType is the kind of organization offering services
type InstitutionType string

const (
	InstitutionHospital   InstitutionType = "hospital"
	InstitutionGovernment InstitutionType = "government"
	InstitutionTemple     InstitutionType = "temple"
)

// IsValid reports whether t is a known institution type
func (t InstitutionType) IsValid() bool {
	switch t {
	case InstitutionHospital, InstitutionGovernment, InstitutionTemple:
		return true
	}
	return false
}

// QueuePrefix returns the default queue number prefix for services of this type
func (t InstitutionType) QueuePrefix() string {
	switch t {
	case InstitutionHospital:
		return "H"
	case InstitutionGovernment:
		return "G"
	case InstitutionTemple:
		return "T"
	}
	return "Q"
}

// Institution is an organization offering bookable services
type Institution struct {
	ID         string
	Name       string
	Type       InstitutionType
	Address    string
	Image      string
	ManagerIDs []string // staff allowed to run institution-side operations
	Services   []*Service
}

// Service is a bookable activity owned by exactly one institution
type Service struct {
	ID                   string
	InstitutionID        string
	Name                 string
	Description          string
	EstimatedTimeMinutes int
	QueuePrefix          string // empty = derived from the institution type
}

// IsManager reports whether userID belongs to the institution staff
func (i *Institution) IsManager(userID string) bool {
	for _, id := range i.ManagerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// FindService returns the owned service with the given id, or nil
func (i *Institution) FindService(serviceID string) *Service {
	for _, s := range i.Services {
		if s.ID == serviceID {
			return s
		}
	}
	return nil
}

// Owns reports whether the institution offers the service
func (i *Institution) Owns(serviceID string) bool {
	return i.FindService(serviceID) != nil
}

// QueuePrefixFor returns the uppercase letter code used in queue numbers of s
func (i *Institution) QueuePrefixFor(s *Service) string {
	if s != nil && s.QueuePrefix != "" {
		return strings.ToUpper(s.QueuePrefix)
	}
	return i.Type.QueuePrefix()
}

// InstitutionFilter narrows catalog listings
type InstitutionFilter struct {
	Type   *InstitutionType
	Search string // case-insensitive match on name or address
}

// Matches applies the filter to an institution
func (f InstitutionFilter) Matches(i *Institution) bool {
	if f.Type != nil && i.Type != *f.Type {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(i.Name), q) ||
		strings.Contains(strings.ToLower(i.Address), q)
}

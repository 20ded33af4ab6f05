package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"experiencehub/internal/core/domain"
)

// Seed is the fixture format for running against memory repositories.
type Seed struct {
	Users []struct {
		ID             string `yaml:"id"`
		Email          string `yaml:"email"`
		Role           string `yaml:"role"`
		OrganizationID string `yaml:"organization_id"`
		StudentID      string `yaml:"student_id"`
	} `yaml:"users"`

	Experiences []struct {
		ID             string `yaml:"id"`
		Title          string `yaml:"title"`
		OrganizationID string `yaml:"organization_id"`
		StudentID      string `yaml:"student_id"`
		StudentUserID  string `yaml:"student_user_id"`
		Status         string `yaml:"status"`
	} `yaml:"experiences"`

	Portfolios []struct {
		ID          string `yaml:"id"`
		StudentID   string `yaml:"student_id"`
		OwnerUserID string `yaml:"owner_user_id"`
		Title       string `yaml:"title"`
		IsPublic    bool   `yaml:"is_public"`
	} `yaml:"portfolios"`
}

func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &seed, nil
}

func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return ParseSeed(data)
}

// Apply writes the fixtures into the given repositories.
func (s *Seed) Apply(users *MemoryUserRepository, experiences *MemoryExperienceRepository, portfolios *MemoryPortfolioRepository) error {
	for _, u := range s.Users {
		role, ok := domain.ParseRole(u.Role)
		if !ok {
			return fmt.Errorf("seed user %s: unknown role %q", u.ID, u.Role)
		}
		users.Save(domain.Identity{
			UserID:         domain.UserID(u.ID),
			Email:          u.Email,
			Role:           role,
			OrganizationID: domain.OrganizationID(u.OrganizationID),
			StudentID:      domain.StudentID(u.StudentID),
		})
	}

	for _, e := range s.Experiences {
		status := domain.StatusPending
		if e.Status != "" {
			parsed, err := domain.ParseVerificationStatus(e.Status)
			if err != nil {
				return fmt.Errorf("seed experience %s: %w", e.ID, err)
			}
			status = parsed
		}
		experiences.Save(domain.Experience{
			ID:             domain.ExperienceID(e.ID),
			Title:          e.Title,
			OrganizationID: domain.OrganizationID(e.OrganizationID),
			StudentID:      domain.StudentID(e.StudentID),
			StudentUserID:  domain.UserID(e.StudentUserID),
			Status:         status,
		})
	}

	for _, p := range s.Portfolios {
		portfolios.Save(domain.Portfolio{
			ID:          domain.PortfolioID(p.ID),
			StudentID:   domain.StudentID(p.StudentID),
			OwnerUserID: domain.UserID(p.OwnerUserID),
			Title:       p.Title,
			IsPublic:    p.IsPublic,
		})
	}
	return nil
}

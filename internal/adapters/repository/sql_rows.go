package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/okian/vmatch/internal/domain/model"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanVolunteer(sc scanner) (model.VolunteerProfile, error) {
	var (
		v                 model.VolunteerProfile
		skills, interests string
		loc               sql.NullString
		status            string
	)
	err := sc.Scan(&v.ID, &v.UserID, &v.Name, &v.Email, &skills, &interests, &loc, &status,
		&v.Availability.HoursPerWeek, &v.TotalHours, &v.ImpactScore, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return model.VolunteerProfile{}, err
	}
	v.Availability.Status = model.AvailabilityStatus(status)
	if err := decodeJSON(skills, &v.Skills); err != nil {
		return model.VolunteerProfile{}, fmt.Errorf("volunteer %s skills: %w", v.ID, err)
	}
	if err := decodeJSON(interests, &v.Interests); err != nil {
		return model.VolunteerProfile{}, fmt.Errorf("volunteer %s interests: %w", v.ID, err)
	}
	if v.Location, err = decodeLocation(loc); err != nil {
		return model.VolunteerProfile{}, fmt.Errorf("volunteer %s location: %w", v.ID, err)
	}
	return v, nil
}

func scanProject(sc scanner) (model.Project, error) {
	var (
		p            model.Project
		tags, skills string
		loc          sql.NullString
		status       string
	)
	err := sc.Scan(&p.ID, &p.OrganizationID, &p.Title, &p.Description, &p.Category, &tags, &skills, &loc,
		&p.HoursPerWeek, &p.DurationWeeks, &p.Capacity, &p.AppliedCount, &status, &p.ContactEmail,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Project{}, err
	}
	p.Status = model.ProjectStatus(status)
	if err := decodeJSON(tags, &p.Tags); err != nil {
		return model.Project{}, fmt.Errorf("project %s tags: %w", p.ID, err)
	}
	if err := decodeJSON(skills, &p.Skills); err != nil {
		return model.Project{}, fmt.Errorf("project %s skills: %w", p.ID, err)
	}
	if p.Location, err = decodeLocation(loc); err != nil {
		return model.Project{}, fmt.Errorf("project %s location: %w", p.ID, err)
	}
	return p, nil
}

func scanApplication(sc scanner) (model.Application, error) {
	var (
		a      model.Application
		status string
	)
	if err := sc.Scan(&a.ID, &a.ProjectID, &a.VolunteerID, &status, &a.Message, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return model.Application{}, err
	}
	a.Status = model.ApplicationStatus(status)
	return a, nil
}

func encodeVolunteer(v model.VolunteerProfile) (skills, interests string, loc sql.NullString, err error) { //nolint:gocritic // hugeParam
	if skills, err = encodeJSON(v.Skills); err != nil {
		return "", "", loc, err
	}
	if interests, err = encodeJSON(v.Interests); err != nil {
		return "", "", loc, err
	}
	loc, err = encodeLocation(v.Location)
	return skills, interests, loc, err
}

func encodeProject(p model.Project) (tags, skills string, loc sql.NullString, err error) { //nolint:gocritic // hugeParam
	if tags, err = encodeJSON(p.Tags); err != nil {
		return "", "", loc, err
	}
	if skills, err = encodeJSON(p.Skills); err != nil {
		return "", "", loc, err
	}
	loc, err = encodeLocation(p.Location)
	return tags, skills, loc, err
}

func encodeJSON[T any](vs []T) (string, error) {
	if vs == nil {
		vs = []T{}
	}
	b, err := json.Marshal(vs)
	if err != nil {
		return "", fmt.Errorf("encode column: %w", err)
	}
	return string(b), nil
}

func decodeJSON[T any](s string, out *[]T) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return err
	}
	if len(*out) == 0 {
		*out = nil
	}
	return nil
}

func encodeLocation(c *model.Coordinates) (sql.NullString, error) {
	if c == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode location: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeLocation(s sql.NullString) (*model.Coordinates, error) {
	if !s.Valid || s.String == "" {
		return nil, nil //nolint:nilnil // absent coordinates are nil
	}
	var c model.Coordinates
	if err := json.Unmarshal([]byte(s.String), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Course is a catalog entry.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Duration    int       `json:"duration"`
	Level       string    `json:"level,omitempty"`
	Topics      []string  `json:"topics,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Enrollment is the user's membership in a course, with progress.
type Enrollment struct {
	EnrollmentID string    `json:"enrollmentId"`
	Progress     float64   `json:"progress"`
	Completed    bool      `json:"completed"`
	EnrolledAt   time.Time `json:"enrolledAt,omitempty"`
	LastAccessed time.Time `json:"lastAccessed,omitempty"`
	Course       Course    `json:"course"`
}

// Courses lists the catalog.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := c.Do(ctx, http.MethodGet, "/api/courses", nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// Course fetches a single course.
func (c *Client) Course(ctx context.Context, courseID string) (*Course, error) {
	var course Course
	if err := c.Do(ctx, http.MethodGet, "/api/courses/"+courseID, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse adds a course to the catalog.
func (c *Client) CreateCourse(ctx context.Context, course *Course) (*Course, error) {
	var created Course
	if err := c.Do(ctx, http.MethodPost, "/api/courses", course, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCourse replaces a course's catalog entry.
func (c *Client) UpdateCourse(ctx context.Context, course *Course) error {
	return c.Do(ctx, http.MethodPut, "/api/courses/"+course.ID, course, nil)
}

// DeleteCourse removes a course from the catalog.
func (c *Client) DeleteCourse(ctx context.Context, courseID string) error {
	return c.Do(ctx, http.MethodDelete, "/api/courses/"+courseID, nil, nil)
}

// Enroll enrolls the current user in a course.
func (c *Client) Enroll(ctx context.Context, courseID string) (*Enrollment, error) {
	var enrollment Enrollment
	path := fmt.Sprintf("/api/courses/%s/enroll", courseID)
	if err := c.Do(ctx, http.MethodPost, path, nil, &enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Enrollments lists the current user's enrollments.
func (c *Client) Enrollments(ctx context.Context) ([]Enrollment, error) {
	var enrollments []Enrollment
	if err := c.Do(ctx, http.MethodGet, "/api/enrollments", nil, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// UpdateProgress records course progress for the current user.
func (c *Client) UpdateProgress(ctx context.Context, courseID string, progress float64, completed bool) error {
	body := struct {
		Progress  float64 `json:"progress"`
		Completed bool    `json:"completed"`
	}{Progress: progress, Completed: completed}

	path := fmt.Sprintf("/api/courses/%s/progress", courseID)
	return c.Do(ctx, http.MethodPut, path, body, nil)
}

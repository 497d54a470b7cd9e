// internal/service/intake/service.go

package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/metrics"
	complaintService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/complaint"
	geoService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/geo"
)

// NoLocation is the address recorded when neither an address nor
// coordinates were supplied
const NoLocation = "Location not provided"

// Draft is a complaint as submitted by a citizen
type Draft struct {
	SubmitterID string   `json:"user_id"`
	IssueType   string   `json:"issue_type"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Address     string   `json:"address"`
	ImagePath   string   `json:"image_path"`
	Image       []byte   `json:"image,omitempty"`
}

// Suggestion pre-fills a submission form
type Suggestion struct {
	IssueType  complaint.IssueType `json:"issueType,omitempty"`
	Confidence float64             `json:"confidence"`
	Department string              `json:"department,omitempty"`
	Address    *geo.Address        `json:"address,omitempty"`
}

// Config contains configuration for the intake service
type Config struct {
	MinConfidence float64
	Now           func() time.Time
	NewID         func() string
	Logger        *slog.Logger
}

// Service turns citizen drafts into stored complaints
type Service struct {
	writer     complaint.Writer
	validator  *complaintService.Validator
	geocoder   *geoService.FallbackGeocoder
	classifier complaint.Classifier
	drafter    complaint.Drafter
	config     Config
	logger     *slog.Logger
}

// NewService creates a new intake service. classifier and drafter may be nil.
func NewService(
	writer complaint.Writer,
	validator *complaintService.Validator,
	geocoder *geoService.FallbackGeocoder,
	classifier complaint.Classifier,
	drafter complaint.Drafter,
	config Config,
) *Service {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NewID == nil {
		config.NewID = func() string { return uuid.New().String() }
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		writer:     writer,
		validator:  validator,
		geocoder:   geocoder,
		classifier: classifier,
		drafter:    drafter,
		config:     config,
		logger:     logger,
	}
}

// Suggest classifies a photo and resolves coordinates into an address.
// Upstream failures yield an empty suggestion rather than an error.
func (s *Service) Suggest(ctx context.Context, image []byte, coords *complaint.LatLng) Suggestion {
	var suggestion Suggestion

	if c, ok := s.classify(ctx, image); ok {
		suggestion.IssueType = c.IssueType
		suggestion.Confidence = c.Confidence
		suggestion.Department = complaintService.DepartmentFor(c.IssueType)
	}

	if coords != nil {
		addr := s.geocoder.Resolve(ctx, coords.Lat, coords.Lng)
		suggestion.Address = &addr
	}

	return suggestion
}

// Submit validates a draft, fills in derived fields and stores it.
// A human-entered issue type always wins over the classifier.
func (s *Service) Submit(ctx context.Context, d Draft) (complaint.Complaint, error) {
	now := s.config.Now().UTC()

	issueType := strings.TrimSpace(d.IssueType)
	if issueType == "" {
		if c, ok := s.classify(ctx, d.Image); ok {
			issueType = string(c.IssueType)
		}
	}

	record := complaint.Record{
		ID:          s.config.NewID(),
		IssueType:   issueType,
		Status:      string(complaint.StatusPending),
		Priority:    string(complaint.PriorityNormal),
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		Address:     d.Address,
		Description: d.Description,
		ImagePath:   d.ImagePath,
		SubmitterID: d.SubmitterID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	c, err := s.validator.Normalize(record)
	if err != nil {
		return complaint.Complaint{}, err
	}

	if c.Location.Address == "" {
		c.Location.Address = NoLocation
		if c.Location.Coords != nil {
			c.Location.Address = s.geocoder.Resolve(ctx, c.Location.Coords.Lat, c.Location.Coords.Lng).DisplayAddress
		}
	}

	c.FormalComplaint = s.draft(ctx, c, now)

	if err := s.writer.Create(ctx, c); err != nil {
		if complaint.IsUpstreamUnavailable(err) {
			return complaint.Complaint{}, err
		}
		return complaint.Complaint{}, complaint.NewUpstreamUnavailable("complaint store", err)
	}

	s.logger.Info("complaint submitted",
		"complaint_id", c.ID,
		"issue_type", c.IssueType,
		"department", c.Department,
	)

	return c, nil
}

func (s *Service) classify(ctx context.Context, image []byte) (complaint.Classification, bool) {
	if s.classifier == nil || len(image) == 0 {
		return complaint.Classification{}, false
	}

	c, err := s.classifier.Classify(ctx, image)
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("classifier").Inc()
		s.logger.Warn("image classification failed", "error", err)
		return complaint.Classification{}, false
	}
	if c.Confidence < s.config.MinConfidence {
		return complaint.Classification{}, false
	}
	if _, ok := complaint.ParseIssueType(string(c.IssueType)); !ok {
		return complaint.Classification{}, false
	}
	return c, true
}

func (s *Service) draft(ctx context.Context, c complaint.Complaint, now time.Time) string {
	if s.drafter != nil {
		letter, err := s.drafter.Draft(ctx, c)
		if err == nil && strings.TrimSpace(letter) != "" {
			return letter
		}
		if err == nil {
			err = errors.New("empty draft")
		}
		metrics.UpstreamFailures.WithLabelValues("drafter").Inc()
		s.logger.Warn("drafting formal complaint failed, using template",
			"complaint_id", c.ID,
			"error", err,
		)
	}
	return FormalLetter(c, now)
}

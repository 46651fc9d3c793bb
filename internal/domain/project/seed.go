package project

import (
	"context"
	"time"

	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/metrics"
)

// DemoProjectID is the document id of the seeded demo project.
const DemoProjectID = "demo-resort"

// DemoProject returns the sample project written for a new user.
func DemoProject() Project {
	series := metrics.Series{
		{Label: "Wk 1", CumulativeVolume: 1200, ProgressPercent: 10, CutVolume: 400, FillVolume: 200},
		{Label: "Wk 2", CumulativeVolume: 2100, ProgressPercent: 22, CutVolume: 800, FillVolume: 350},
		{Label: "Wk 3", CumulativeVolume: 3400, ProgressPercent: 35, CutVolume: 1200, FillVolume: 500},
		{Label: "Wk 4", CumulativeVolume: 4100, ProgressPercent: 48, CutVolume: 1500, FillVolume: 800},
	}
	return Project{
		ID:          DemoProjectID,
		ClientName:  "Anjuna Cliffside Resort",
		ProjectName: "Phase 1: Foundation & Grading",
		Status:      StatusActive,
		LastFlight:  time.Date(2025, 10, 24, 0, 0, 0, 0, time.UTC),
		Metrics:     series,
		Summary:     metrics.Summarize(series),
		Media: []Media{
			{
				Kind:         MediaVideo,
				Title:        "October FPV Tour (Cinematic)",
				Date:         "Oct 24, 2025",
				ThumbnailURL: "https://placehold.co/600x400/1c1614/f59e0b?text=FPV+TOUR",
			},
			{
				Kind:         MediaImage,
				Title:        "Roof Inspection Stills",
				Date:         "Oct 22, 2025",
				ThumbnailURL: "https://placehold.co/600x400/1c1614/f5f3ef?text=ROOF+INSPECTION",
			},
		},
		Links: map[string]string{
			LinkThreeD: "#",
			LinkCloud:  "#",
		},
		Files: []File{
			{Name: "Survey_Report_Wk4.pdf", Kind: "PDF Report", Date: "Oct 25, 2025", URL: "#"},
			{Name: "Site_Point_Cloud.laz", Kind: "LiDAR Data", Date: "Oct 24, 2025", URL: "#"},
			{Name: "Orthomosaic_HighRes.tiff", Kind: "GeoTIFF Map", Date: "Oct 22, 2025", URL: "#"},
		},
	}
}

// Seed writes the demo project into a user's collection.
func (s *Service) Seed(ctx context.Context, appID, uid string) (*Project, error) {
	p, err := s.upsert(ctx, appID, uid, DemoProject())
	if err != nil {
		return nil, err
	}
	s.logger.Info("seed written", "uid", uid, "project_id", p.ID)
	if s.activity != nil {
		s.activity.Record(ctx, uid, "", activity.TypeSeedWritten, "Wrote demo project "+p.ID)
	}
	return p, nil
}

package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/groundlink/missionmap/pkg/core"
)

// LogExport is the root JSON structure written on Close
type LogExport struct {
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Missions  []MissionJSON `json:"missions"`
	Tracks    []TrackJSON   `json:"tracks"`
}

// MissionJSON is one finalized mission
type MissionJSON struct {
	ID        uint             `json:"id"`
	SessionID string           `json:"sessionId"`
	Kind      core.MissionKind `json:"kind"`
	Message   string           `json:"message"`
	Points    []core.GeoPoint  `json:"points"`
	Geometry  string           `json:"geometry"`
	LengthM   float64          `json:"lengthM,omitempty"`
	AreaM2    float64          `json:"areaM2,omitempty"`
	Time      time.Time        `json:"time"`
}

// TrackJSON holds every fix for one role as [unixMillis, lat, lng, heading|null]
type TrackJSON struct {
	Role      core.Role `json:"role"`
	Positions [][]any   `json:"positions"`
}

// exportJSON writes the log to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport(time.Now())

	timestamp := b.startTime.Format("20060102_150405")
	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("missionlog_%s.json.gz", timestamp)
	} else {
		filename = fmt.Sprintf("missionlog_%s.json", timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport(end time.Time) LogExport {
	export := LogExport{
		StartTime: b.startTime,
		EndTime:   end,
		Missions:  make([]MissionJSON, 0, len(b.missions)),
		Tracks:    make([]TrackJSON, 0, len(b.positions)),
	}

	for _, m := range b.missions {
		export.Missions = append(export.Missions, MissionJSON{
			ID:        m.ID,
			SessionID: m.SessionID,
			Kind:      m.Kind,
			Message:   m.Message,
			Points:    m.Points,
			Geometry:  m.Geometry,
			LengthM:   m.LengthM,
			AreaM2:    m.AreaM2,
			Time:      m.Time,
		})
	}

	for _, role := range core.Roles {
		fixes, ok := b.positions[role]
		if !ok {
			continue
		}
		track := TrackJSON{Role: role, Positions: make([][]any, 0, len(fixes))}
		for _, f := range fixes {
			var heading any
			if f.Heading != nil {
				heading = *f.Heading
			}
			track.Positions = append(track.Positions, []any{
				f.Time.UnixMilli(), f.Position.Lat, f.Position.Lng, heading,
			})
		}
		export.Tracks = append(export.Tracks, track)
	}

	return export
}

func (b *Backend) writeJSON(path string, data LogExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data LogExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

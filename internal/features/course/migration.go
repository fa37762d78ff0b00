package course

import (
	"bytes"
	"fmt"

	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/pkg/database/migrations"
)

func init() {
	migrations.Register("course_details_unwrap_string_roadmaps", NormalizeRoadmaps)
}

// NormalizeRoadmaps rewrites roadmaps that were stored as a JSON string holding
// a serialized array, or as null, into a plain JSON array.
func NormalizeRoadmaps(db *gorm.DB) error {
	update := db.Session(&gorm.Session{NewDB: true})

	var courses []Course
	if err := db.Select("id", "roadmap").FindInBatches(&courses, 200, func(_ *gorm.DB, _ int) error {
		for _, c := range courses {
			raw := bytes.TrimSpace(c.Roadmap)
			if len(raw) > 0 && raw[0] == '[' {
				continue
			}
			rm, err := c.Chapters()
			if err != nil {
				return fmt.Errorf("course %s: %w", c.ID, err)
			}
			if err := update.Model(&Course{}).Where("id = ?", c.ID).UpdateColumn("roadmap", mustJSON(rm)).Error; err != nil {
				return err
			}
		}
		return nil
	}).Error; err != nil {
		return err
	}
	return nil
}

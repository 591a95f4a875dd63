package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"lesson-progress-service/internal/domain"
)

// CatalogFile is the YAML layout used by `seed --file` and catalog.file.
type CatalogFile struct {
	Users     []domain.User     `yaml:"users"`
	Courses   []domain.Course   `yaml:"courses"`
	Lessons   []domain.Lesson   `yaml:"lessons"`
	Questions []domain.Question `yaml:"questions"`
}

// LoadCatalog reads a catalog file and fills question course ids from their lessons.
func LoadCatalog(path string) (CatalogFile, error) {
	var file CatalogFile
	data, err := os.ReadFile(path)
	if err != nil {
		return file, err
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	courses := make(map[string]string, len(file.Lessons))
	for _, l := range file.Lessons {
		courses[l.ID] = l.CourseID
	}
	for i, q := range file.Questions {
		if q.ID == "" || q.LessonID == "" {
			return file, fmt.Errorf("catalog %s: question %d needs id and lesson_id", path, i)
		}
		if q.CourseID == "" {
			file.Questions[i].CourseID = courses[q.LessonID]
		}
	}
	return file, nil
}

package store

import (
	"context"
	"sort"
	"strings"

	"hermes/internal/models"

	"github.com/google/uuid"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// DefaultSearchThreshold - минимальная похожесть названия для SearchTasks
const DefaultSearchThreshold = 60

type TaskMatch struct {
	Task  *models.Task `json:"task"`
	Score int          `json:"score"`
}

// SearchTasks ранжирует задачи владельца по похожести названия на query.
// Вхождение подстроки считается полным совпадением. projectID == nil - поиск по всем проектам.
func (s *Store) SearchTasks(ctx context.Context, owner uuid.UUID, projectID *uuid.UUID, query string, threshold int) ([]TaskMatch, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []TaskMatch{}, nil
	}
	if threshold <= 0 {
		threshold = DefaultSearchThreshold
	}

	tasks, err := s.Tasks.List(ctx, owner)
	if err != nil {
		return nil, err
	}

	matches := []TaskMatch{}
	for _, task := range tasks {
		if projectID != nil && task.ProjectID != *projectID {
			continue
		}
		title := strings.ToLower(task.Title)
		score := 100
		if !strings.Contains(title, query) {
			score = fuzzy.Ratio(query, title)
		}
		if score >= threshold {
			matches = append(matches, TaskMatch{Task: task, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

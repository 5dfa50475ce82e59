package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to
// the Postgres searcher. Either backend may be nil.
type Service struct {
	meili *Meili
	pg    *PgSearch
}

func NewService(meili *Meili, pg *PgSearch) *Service {
	return &Service{meili: meili, pg: pg}
}

func (s *Service) Search(q Query) Response {
	if s == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}
	if s.pg == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.pg.Search(q)
	if err != nil {
		log.Printf("search: postgres search error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPost pushes a post into the index, fire-and-forget.
func (s *Service) IndexPost(record PostRecord) {
	if s == nil || s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPost(record); err != nil {
			log.Printf("search: index post %s: %v", record.ID, err)
		}
	}()
}

// DeletePost removes a post from the index, fire-and-forget.
func (s *Service) DeletePost(id string) {
	if s == nil || s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePost(id); err != nil {
			log.Printf("search: delete post %s: %v", id, err)
		}
	}()
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}

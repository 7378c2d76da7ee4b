package store

import "github.com/starford/tasknote/internal/models"

// Reconcile merges a server representation of a task into the locally held
// one after a mutation:
//   - identity, completion, schedule and effort fields: server wins
//   - Notes: local wins unless the server explicitly sent notes
//   - Highlights: local wins (they only exist on search results)
func Reconcile(server, local models.Task) models.Task {
	merged := server.Clone()
	if server.Notes == nil {
		merged.Notes = local.Clone().Notes
	}
	if server.Highlights == nil && local.Highlights != nil {
		merged.Highlights = local.Clone().Highlights
	}
	return merged
}

// ApplyCompletion copies only the completion pair from the server's answer to
// a toggle, leaving every other local field as is.
func ApplyCompletion(server models.Task) func(*models.Task) {
	return func(t *models.Task) {
		t.Completed = server.Completed
		t.CompletedAt = nil
		if server.CompletedAt != nil {
			at := *server.CompletedAt
			t.CompletedAt = &at
		}
	}
}

package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/roasbeef/lexdesk/internal/auth"
	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/roasbeef/lexdesk/internal/summary"
	"github.com/stretchr/testify/require"
)

// newTestClient serves mux over httptest and returns a client for it.
func newTestClient(t *testing.T, mux *http.ServeMux) *lexapi.Client {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := lexapi.NewClient(lexapi.Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	return client
}

// slowSummaries answers summary requests after a delay, counting hits per
// document. Document 9 always fails.
type slowSummaries struct {
	mu   sync.Mutex
	hits map[string]int
}

func (s *slowSummaries) handle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	s.hits[id]++
	s.mu.Unlock()

	time.Sleep(100 * time.Millisecond)

	if id == "9" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "No text available for summarization",
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]string{
		"summary": "summary of " + id,
	})
}

func (s *slowSummaries) count(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hits[id]
}

func TestSummarizeAllRepeatedIDs(t *testing.T) {
	backend := &slowSummaries{hits: make(map[string]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/summary/{id}", backend.handle)

	svc := summary.NewService(
		summary.DefaultConfig(), summary.NewStore(),
		newTestClient(t, mux), auth.StaticProvider("jwt"),
		nil, nil, nil,
	)
	defer svc.Close()

	results := summarizeAll(
		context.Background(), svc, []int64{7, 7, 8, 7}, 4,
	)
	require.Len(t, results, 4)
	require.Zero(t, countFailed(results))

	for i, id := range []int64{7, 7, 8, 7} {
		require.Equal(t, id, results[i].DocumentID)
		require.Empty(t, results[i].Error)
	}
	require.Equal(t, "summary of 7", results[0].Summary)
	require.Equal(t, "summary of 7", results[1].Summary)
	require.Equal(t, "summary of 8", results[2].Summary)
	require.Equal(t, "summary of 7", results[3].Summary)

	require.Equal(t, 1, backend.count("7"))
	require.Equal(t, 1, backend.count("8"))
}

func TestSummarizeAllRepeatedFailure(t *testing.T) {
	backend := &slowSummaries{hits: make(map[string]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/summary/{id}", backend.handle)

	svc := summary.NewService(
		summary.DefaultConfig(), summary.NewStore(),
		newTestClient(t, mux), auth.StaticProvider("jwt"),
		nil, nil, nil,
	)
	defer svc.Close()

	results := summarizeAll(context.Background(), svc, []int64{9, 9}, 2)
	require.Equal(t, 2, countFailed(results))
	for _, r := range results {
		require.Equal(t, "No text available for summarization", r.Error)
	}
}

func TestSummarizeOneCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/summary/{id}", func(
		w http.ResponseWriter, r *http.Request) {

		<-r.Context().Done()
	})

	svc := summary.NewService(
		summary.DefaultConfig(), summary.NewStore(),
		newTestClient(t, mux), auth.StaticProvider("jwt"),
		nil, nil, nil,
	)
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(),
		50*time.Millisecond)
	defer cancel()

	out := summarizeOne(ctx, svc, 3)
	require.Equal(t, "summary request cancelled", out.Error)
	require.False(t, svc.HasActiveRequest(3))
}

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/codex-account-lifecycle/internal/adapters/services/wiki"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/access"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/offboard"
	"github.com/ogurasousui/codex-account-lifecycle/internal/core/reconcile"
	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/httpapi"
	"github.com/ogurasousui/codex-account-lifecycle/internal/platform/report"
)

type memoryDirectory struct {
	mu      sync.Mutex
	records map[string]*account.Record
}

func newMemoryDirectory(records ...*account.Record) *memoryDirectory {
	byKey := make(map[string]*account.Record, len(records))
	for _, r := range records {
		byKey[r.Key] = r
	}
	return &memoryDirectory{records: byKey}
}

func (d *memoryDirectory) ReadAll(context.Context) (map[string]*account.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]*account.Record, len(d.records))
	for key, record := range d.records {
		out[key] = record.Clone()
	}
	return out, nil
}

func (d *memoryDirectory) Upsert(_ context.Context, record *account.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[record.Key] = record.Clone()
	return nil
}

func (d *memoryDirectory) Exists(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.records[key]
	return ok, nil
}

// wikiServer は wiki サービスの挙動を模倣するステートフルなテストサーバー
// です。グループからの除外と無効化を実際に状態へ反映します。
type wikiServer struct {
	mu          sync.Mutex
	groups      map[string][]string
	deactivated map[string]bool
}

func newWikiServer(groups map[string][]string) *wikiServer {
	return &wikiServer{groups: groups, deactivated: map[string]bool{}}
}

func (s *wikiServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/wiki/rest/api/group", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		type group struct {
			Name string `json:"name"`
		}
		var results []group
		for name := range s.groups {
			results = append(results, group{Name: name})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	})

	mux.HandleFunc("/wiki/rest/api/group/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/wiki/rest/api/group/"), "/member")
		var results []map[string]string
		for _, member := range s.groups[name] {
			results = append(results, map[string]string{
				"username":    member,
				"displayName": strings.ToUpper(member),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	})

	mux.HandleFunc("/wiki/rest/api/user/memberof", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		username := r.URL.Query().Get("username")
		type group struct {
			Name string `json:"name"`
		}
		var results []group
		for name, members := range s.groups {
			for _, member := range members {
				if member == username {
					results = append(results, group{Name: name})
				}
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	})

	mux.HandleFunc("/admin/rest/um/1/user/group/direct", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		username := r.URL.Query().Get("username")
		group := r.URL.Query().Get("groupname")
		kept := s.groups[group][:0]
		for _, member := range s.groups[group] {
			if member != username {
				kept = append(kept, member)
			}
		}
		s.groups[group] = kept
	})

	mux.HandleFunc("/admin/rest/um/1/user/access", func(http.ResponseWriter, *http.Request) {})

	mux.HandleFunc("/admin/rest/um/1/user/deactivate", func(_ http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.deactivated[r.URL.Query().Get("username")] = true
	})

	return mux
}

func TestOffboardThenReconcile(t *testing.T) {
	t.Parallel()

	server := newWikiServer(map[string][]string{
		"engineers": {"alicewiki", "bobwiki"},
	})
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	logger := zerolog.Nop()
	api := httpapi.NewClient(ts.URL, "admin", "secret", logger)
	adapter := wiki.NewAdapter(wiki.NewClient(api, logger), logger)

	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	directory := newMemoryDirectory(
		&account.Record{
			Key:    "alice",
			Status: account.StatusActive,
			ServiceAccounts: map[account.ServiceKind]string{
				account.KindWiki: "alicewiki",
			},
			UpdatedAt: now,
		},
		&account.Record{
			Key:    "bob",
			Status: account.StatusActive,
			ServiceAccounts: map[account.ServiceKind]string{
				account.KindWiki: "bobwiki",
			},
			UpdatedAt: now,
		},
	)

	ctx := context.Background()

	svc := offboard.NewService(directory, []access.Adapter{adapter}, offboard.Config{Logger: logger})
	snapshot, err := directory.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll returned error: %v", err)
	}

	result, err := svc.Offboard(ctx, snapshot, offboard.Request{
		PersonKey:    "alice",
		TargetStatus: account.StatusSuspended,
		Services:     []account.ServiceKind{account.KindWiki},
	})
	if err != nil {
		t.Fatalf("Offboard returned error: %v", err)
	}
	if !result.Updated || !result.Persisted || len(result.Failed) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	server.mu.Lock()
	if len(server.groups["engineers"]) != 1 || server.groups["engineers"][0] != "bobwiki" {
		t.Fatalf("unexpected group members %v", server.groups["engineers"])
	}
	if !server.deactivated["alicewiki"] {
		t.Fatal("expected alicewiki to be deactivated")
	}
	server.mu.Unlock()

	updated, err := directory.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll returned error: %v", err)
	}
	alice := updated["alice"]
	if alice.Status != account.StatusSuspended {
		t.Fatalf("unexpected status %s", alice.Status)
	}
	if _, ok := alice.AccountRef(account.KindWiki); ok {
		t.Fatal("expected wiki reference to be removed")
	}

	outputDir := t.TempDir()
	sink, err := report.NewFileSink(outputDir, logger)
	if err != nil {
		t.Fatalf("NewFileSink returned error: %v", err)
	}

	reporter := reconcile.NewReporter(reconcile.Config{
		Adapters: []access.Adapter{adapter},
		Sink:     sink,
		Logger:   logger,
	})
	if err := reporter.Run(ctx, updated); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	csvBytes, err := os.ReadFile(filepath.Join(outputDir, "WikiUsers.csv"))
	if err != nil {
		t.Fatalf("failed to read accounts artifact: %v", err)
	}
	if !strings.Contains(string(csvBytes), "bobwiki") {
		t.Fatalf("expected bobwiki in artifact, got %q", csvBytes)
	}
	if strings.Contains(string(csvBytes), "alicewiki") {
		t.Fatalf("did not expect alicewiki in artifact, got %q", csvBytes)
	}

	summaryBytes, err := os.ReadFile(filepath.Join(outputDir, reconcile.DirectorySummaryFile))
	if err != nil {
		t.Fatalf("failed to read directory artifact: %v", err)
	}
	var summary map[string]struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(summaryBytes, &summary); err != nil {
		t.Fatalf("failed to decode directory artifact: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("unexpected summary size %d", len(summary))
	}
	if summary["alice"].Status != "suspended" {
		t.Fatalf("unexpected alice status %q", summary["alice"].Status)
	}
}

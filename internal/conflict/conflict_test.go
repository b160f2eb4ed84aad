package conflict

import (
	"testing"
	"time"

	"github.com/marcus/trail/internal/models"
	"github.com/marcus/trail/internal/store"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestCheckTruthTable(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		cloud time.Time
		marks store.SyncMarks
		want  bool
	}{
		{
			name:  "remote newer and local pending",
			cloud: base.Add(time.Hour),
			marks: store.SyncMarks{
				LastSyncedAt:      timePtr(base),
				LocalLastModified: timePtr(base.Add(time.Minute)),
			},
			want: true,
		},
		{
			name:  "remote newer but no local changes",
			cloud: base.Add(time.Hour),
			marks: store.SyncMarks{
				LastSyncedAt: timePtr(base),
			},
			want: false,
		},
		{
			name:  "local pending but remote unchanged",
			cloud: base,
			marks: store.SyncMarks{
				LastSyncedAt:      timePtr(base),
				LocalLastModified: timePtr(base.Add(time.Minute)),
			},
			want: false,
		},
		{
			name:  "local changes already synced",
			cloud: base.Add(time.Hour),
			marks: store.SyncMarks{
				LastSyncedAt:      timePtr(base),
				LocalLastModified: timePtr(base.Add(-time.Minute)),
			},
			want: false,
		},
		{
			name:  "fresh client with empty marks",
			cloud: base,
			marks: store.SyncMarks{},
			want:  false,
		},
		{
			name:  "never synced but local changes exist",
			cloud: base,
			marks: store.SyncMarks{
				LocalLastModified: timePtr(base.Add(-time.Hour)),
			},
			want: true,
		},
		{
			name:  "zero cloud timestamp",
			cloud: time.Time{},
			marks: store.SyncMarks{
				LastSyncedAt:      timePtr(base),
				LocalLastModified: timePtr(base.Add(time.Minute)),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			desc := d.Check(tt.cloud, tt.marks)
			if (desc != nil) != tt.want {
				t.Fatalf("conflict: got %v, want %v", desc != nil, tt.want)
			}
			wantState := Idle
			if tt.want {
				wantState = ConflictDetected
			}
			if d.State() != wantState {
				t.Fatalf("state: got %v, want %v", d.State(), wantState)
			}
		})
	}
}

func TestDescriptorCarriesBothTimestamps(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := base.Add(time.Minute)

	d := NewDetector()
	desc := d.Check(base.Add(time.Hour), store.SyncMarks{
		LastSyncedAt:      timePtr(base),
		LocalLastModified: timePtr(local),
	})
	if desc == nil {
		t.Fatalf("expected conflict")
	}
	if !desc.CloudLastModified.Equal(base.Add(time.Hour)) {
		t.Fatalf("cloud timestamp: got %v", desc.CloudLastModified)
	}
	if !desc.LocalLastModified.Equal(local) {
		t.Fatalf("local timestamp: got %v", desc.LocalLastModified)
	}
	if d.Current() == nil {
		t.Fatalf("detector lost its descriptor")
	}
}

type resolveRemote struct {
	payload models.SyncPayload
	saves   []models.SyncPayload
}

func (r *resolveRemote) SavePayload(p models.SyncPayload) error {
	r.saves = append(r.saves, p)
	return nil
}
func (r *resolveRemote) LoadPayload() (models.SyncPayload, error) { return r.payload, nil }
func (r *resolveRemote) SaveCardIndex(models.CardIndex) error     { return nil }
func (r *resolveRemote) LoadCardIndex() (models.CardIndex, error) { return models.EmptyCardIndex(), nil }
func (r *resolveRemote) SaveCardContent(string, string) error     { return nil }
func (r *resolveRemote) LoadCardContent(string) (string, error)   { return "", nil }
func (r *resolveRemote) Ping() error                              { return nil }

func setupResolver(t *testing.T, rm *resolveRemote) (*Resolver, *store.Store) {
	t.Helper()
	st, err := store.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return &Resolver{Store: st, Remote: rm, Detector: NewDetector()}, st
}

func TestDownloadOverwritesLocal(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rm := &resolveRemote{payload: models.SyncPayload{
		Progress:  map[string][]string{"cloud": {"c1"}},
		UpdatedAt: stamp,
	}}
	r, st := setupResolver(t, rm)

	if err := st.CompleteNode("local", "n1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	r.Detector.Check(stamp, mustMarks(t, st))

	if _, err := r.Download(); err != nil {
		t.Fatalf("download: %v", err)
	}

	all, err := st.GetAllProgress()
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if _, ok := all["local"]; ok {
		t.Fatalf("local progress survived download resolution")
	}
	if _, ok := all["cloud"]; !ok {
		t.Fatalf("cloud progress missing after download")
	}
	if r.Detector.State() != Idle {
		t.Fatalf("detector not cleared after download")
	}
}

func TestUploadForcesLocalState(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rm := &resolveRemote{payload: models.SyncPayload{UpdatedAt: stamp}}
	r, st := setupResolver(t, rm)

	if err := st.CompleteNode("local", "n1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	r.Detector.Check(stamp, mustMarks(t, st))

	if _, err := r.Upload(); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if len(rm.saves) != 1 {
		t.Fatalf("remote writes: got %d, want 1", len(rm.saves))
	}
	if _, ok := rm.saves[0].Progress["local"]; !ok {
		t.Fatalf("uploaded payload missing local progress: %v", rm.saves[0].Progress)
	}
	if r.Detector.State() != Idle {
		t.Fatalf("detector not cleared after upload")
	}

	marks := mustMarks(t, st)
	if marks.LastSyncedAt == nil {
		t.Fatalf("upload did not record sync time")
	}
}

func mustMarks(t *testing.T, st *store.Store) store.SyncMarks {
	t.Helper()
	marks, err := st.GetSyncMarks()
	if err != nil {
		t.Fatalf("get marks: %v", err)
	}
	return marks
}

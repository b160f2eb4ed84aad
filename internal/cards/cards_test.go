package cards

import (
	"errors"
	"testing"
	"time"

	"github.com/marcus/trail/internal/models"
	"github.com/marcus/trail/internal/store"
)

func setupService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st), st
}

func TestCreateAssignsID(t *testing.T) {
	svc, _ := setupService(t)

	card, err := svc.Create("Goroutines", "lightweight threads", []string{"go"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if card.ID == "" {
		t.Fatalf("card id not assigned")
	}
	if card.Title != "Goroutines" {
		t.Fatalf("title: got %q", card.Title)
	}
	if len(card.Summary) != 1 || card.Summary[0] != "lightweight threads" {
		t.Fatalf("summary: got %v", card.Summary)
	}

	other, err := svc.Create("Channels", "", nil)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if other.ID == card.ID {
		t.Fatalf("duplicate card ids")
	}
}

func TestLinkAndUnlink(t *testing.T) {
	svc, _ := setupService(t)

	a, err := svc.Create("A", "", nil)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := svc.Create("B", "", nil)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	if err := svc.Link(a.ID, b.ID, models.LinkRelated, "see also"); err != nil {
		t.Fatalf("link: %v", err)
	}
	// Linking the same pair again replaces, not duplicates
	if err := svc.Link(a.ID, b.ID, models.LinkRelated, "updated label"); err != nil {
		t.Fatalf("relink: %v", err)
	}

	got, err := svc.Get(a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Links) != 1 {
		t.Fatalf("links: got %d, want 1", len(got.Links))
	}
	if got.Links[0].Label != "updated label" {
		t.Fatalf("label: got %q", got.Links[0].Label)
	}

	if err := svc.Unlink(a.ID, b.ID, models.LinkRelated); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	got, err = svc.Get(a.ID)
	if err != nil {
		t.Fatalf("get after unlink: %v", err)
	}
	if len(got.Links) != 0 {
		t.Fatalf("links after unlink: got %v", got.Links)
	}
}

func TestVisibleLinksFiltersDanglingAndHidden(t *testing.T) {
	svc, st := setupService(t)

	a, err := svc.Create("A", "", nil)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := svc.Create("B", "", nil)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	a.Links = []models.Link{
		{TargetID: b.ID, Type: models.LinkRelated},
		{TargetID: "no-such-card", Type: models.LinkRelated},
		{TargetID: b.ID, Type: models.LinkChild, IsHidden: true},
	}
	if err := st.PutCard(a); err != nil {
		t.Fatalf("put: %v", err)
	}

	links, err := svc.VisibleLinks(a)
	if err != nil {
		t.Fatalf("visible links: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("visible links: got %d, want 1 (%v)", len(links), links)
	}
	if links[0].TargetID != b.ID {
		t.Fatalf("surviving link: got %v", links[0])
	}
}

func TestDanglingLinkSurvivesDelete(t *testing.T) {
	svc, _ := setupService(t)

	a, err := svc.Create("A", "", nil)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := svc.Create("B", "", nil)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	if err := svc.Link(a.ID, b.ID, models.LinkRelated, ""); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := svc.Delete(b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := svc.Get(a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Links) != 1 {
		t.Fatalf("stored links: got %d, want the dangling link kept", len(got.Links))
	}
	visible, err := svc.VisibleLinks(got)
	if err != nil {
		t.Fatalf("visible links: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("visible links: got %v, want none", visible)
	}
}

type fakeCardRemote struct {
	index       models.CardIndex
	contents    map[string]string
	failContent map[string]bool

	savedIndex    *models.CardIndex
	savedContents map[string]string
}

func (f *fakeCardRemote) SavePayload(models.SyncPayload) error     { return nil }
func (f *fakeCardRemote) LoadPayload() (models.SyncPayload, error) { return models.EmptyPayload(), nil }
func (f *fakeCardRemote) Ping() error                              { return nil }

func (f *fakeCardRemote) SaveCardIndex(index models.CardIndex) error {
	f.savedIndex = &index
	return nil
}

func (f *fakeCardRemote) LoadCardIndex() (models.CardIndex, error) {
	return f.index, nil
}

func (f *fakeCardRemote) SaveCardContent(cardID, body string) error {
	if f.savedContents == nil {
		f.savedContents = map[string]string{}
	}
	f.savedContents[cardID] = body
	return nil
}

func (f *fakeCardRemote) LoadCardContent(cardID string) (string, error) {
	if f.failContent[cardID] {
		return "", errors.New("fetch failed")
	}
	return f.contents[cardID], nil
}

func TestPushUploadsIndexAndContents(t *testing.T) {
	svc, _ := setupService(t)

	card, err := svc.Create("A", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.SetContent(card.ID, "# body"); err != nil {
		t.Fatalf("set content: %v", err)
	}

	rm := &fakeCardRemote{}
	if err := svc.Push(rm); err != nil {
		t.Fatalf("push: %v", err)
	}

	if rm.savedIndex == nil {
		t.Fatalf("index not uploaded")
	}
	if _, ok := rm.savedIndex.Cards[card.ID]; !ok {
		t.Fatalf("index missing card: %v", rm.savedIndex.Cards)
	}
	if rm.savedIndex.LastModified.IsZero() {
		t.Fatalf("index LastModified not stamped")
	}
	if rm.savedContents[card.ID] != "# body" {
		t.Fatalf("content not uploaded: %v", rm.savedContents)
	}
}

func TestPullToleratesFailedContentFetch(t *testing.T) {
	svc, st := setupService(t)

	rm := &fakeCardRemote{
		index: models.CardIndex{
			LastModified: time.Now().UTC().Truncate(time.Second),
			Cards: map[string]models.Card{
				"good": {ID: "good", Title: "Good"},
				"bad":  {ID: "bad", Title: "Bad"},
			},
		},
		contents:    map[string]string{"good": "good body"},
		failContent: map[string]bool{"bad": true},
	}

	n, err := svc.Pull(rm)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if n != 2 {
		t.Fatalf("pulled cards: got %d, want 2", n)
	}

	body, err := st.GetCardContent("good")
	if err != nil {
		t.Fatalf("get good content: %v", err)
	}
	if body != "good body" {
		t.Fatalf("good content: got %q", body)
	}
	// The failed fetch degrades to an empty body, not a failed pull
	body, err = st.GetCardContent("bad")
	if err != nil {
		t.Fatalf("get bad content: %v", err)
	}
	if body != "" {
		t.Fatalf("bad content: got %q, want empty", body)
	}
}

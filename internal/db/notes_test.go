package db

import "testing"

func newTestDB(t *testing.T) (*DB, int64) {
	t.Helper()

	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	account, err := database.CreateAccount("tester", "password123")
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return database, account.ID
}

func addNote(t *testing.T, database *DB, accountID int64, content string) *Note {
	t.Helper()
	n := &Note{AccountID: accountID, Content: content}
	if err := database.CreateNote(n); err != nil {
		t.Fatalf("failed to create note: %v", err)
	}
	return n
}

func TestListNotesTagFilter(t *testing.T) {
	database, accountID := newTestDB(t)

	tagged := addNote(t, database, accountID, "tagged")
	addNote(t, database, accountID, "untagged")

	tag, err := database.FindOrCreateTag("work", 0, accountID)
	if err != nil {
		t.Fatalf("failed to create tag: %v", err)
	}
	if err := database.AssociateTag(tag.ID, tagged.ID); err != nil {
		t.Fatalf("failed to associate tag: %v", err)
	}

	byTag, err := database.ListNotes(ListNotesOptions{AccountID: accountID, TagID: tag.ID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byTag) != 1 || byTag[0].ID != tagged.ID {
		t.Errorf("expected only the tagged note, got %+v", byTag)
	}

	noTag, err := database.ListNotes(ListNotesOptions{AccountID: accountID, WithoutTag: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(noTag) != 1 || noTag[0].Content != "untagged" {
		t.Errorf("expected only the untagged note, got %+v", noTag)
	}
}

func TestListNotesSearchReachesAttachmentPaths(t *testing.T) {
	database, accountID := newTestDB(t)

	n := addNote(t, database, accountID, "nothing matching here")
	if _, err := database.CreateAttachment(n.ID, "scan.pdf", "/files/uuid-taxreturn.pdf", 100); err != nil {
		t.Fatalf("failed to create attachment: %v", err)
	}
	addNote(t, database, accountID, "other")

	found, err := database.ListNotes(ListNotesOptions{
		AccountID:   accountID,
		SearchTerms: []string{"taxreturn"},
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != n.ID {
		t.Errorf("expected attachment-path match, got %+v", found)
	}
}

func TestListNotesLinkFilter(t *testing.T) {
	database, accountID := newTestDB(t)

	linked := addNote(t, database, accountID, "see https://example.com")
	addNote(t, database, accountID, "plain text")

	found, err := database.ListNotes(ListNotesOptions{AccountID: accountID, WithLink: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != linked.ID {
		t.Errorf("expected only the note with a URL, got %+v", found)
	}
}

func TestListNotesLinkFilterReplacesSearch(t *testing.T) {
	database, accountID := newTestDB(t)

	linked := addNote(t, database, accountID, "bookmark https://example.com/cool")
	addNote(t, database, accountID, "plain text")

	found, err := database.ListNotes(ListNotesOptions{
		AccountID:   accountID,
		SearchTerms: []string{"nomatch"},
		WithLink:    true,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != linked.ID {
		t.Errorf("expected the URL-bearing note despite the search text, got %+v", found)
	}
}

func TestListNotesPagination(t *testing.T) {
	database, accountID := newTestDB(t)
	for i := 0; i < 5; i++ {
		addNote(t, database, accountID, "note")
	}

	page1, err := database.ListNotes(ListNotesOptions{AccountID: accountID, Page: 1, Size: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	page3, err := database.ListNotes(ListNotesOptions{AccountID: accountID, Page: 3, Size: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page1) != 2 || len(page3) != 1 {
		t.Errorf("expected pages of 2 and 1, got %d and %d", len(page1), len(page3))
	}
}

func TestFindOrCreateTagReusesRow(t *testing.T) {
	database, accountID := newTestDB(t)

	first, err := database.FindOrCreateTag("work", 0, accountID)
	if err != nil {
		t.Fatalf("find-or-create failed: %v", err)
	}
	second, err := database.FindOrCreateTag("work", 0, accountID)
	if err != nil {
		t.Fatalf("find-or-create failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the same tag row, got %d and %d", first.ID, second.ID)
	}

	// Same name under a different parent is a distinct tag.
	nested, err := database.FindOrCreateTag("work", first.ID, accountID)
	if err != nil {
		t.Fatalf("find-or-create failed: %v", err)
	}
	if nested.ID == first.ID {
		t.Error("expected a distinct row for a different parent")
	}
}

func TestDeleteOrphanTags(t *testing.T) {
	database, accountID := newTestDB(t)

	n := addNote(t, database, accountID, "note")
	kept, _ := database.FindOrCreateTag("kept", 0, accountID)
	orphan, _ := database.FindOrCreateTag("orphan", 0, accountID)
	if err := database.AssociateTag(kept.ID, n.ID); err != nil {
		t.Fatalf("associate failed: %v", err)
	}

	deleted, err := database.DeleteOrphanTags(accountID)
	if err != nil {
		t.Fatalf("orphan cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 orphan collected, got %d", deleted)
	}
	if tag, _ := database.GetTag("orphan", 0, accountID); tag != nil {
		t.Errorf("orphan tag still present: %+v", tag)
	}
	if tag, _ := database.GetTag("kept", 0, accountID); tag == nil {
		t.Error("referenced tag must be retained")
	}
	_ = orphan
}

func TestWithTxRollsBack(t *testing.T) {
	database, accountID := newTestDB(t)

	errBoom := func(tx *DB) error {
		if err := tx.CreateNote(&Note{AccountID: accountID, Content: "doomed"}); err != nil {
			return err
		}
		return errRollback
	}
	if err := database.WithTx(errBoom); err != errRollback {
		t.Fatalf("expected rollback error, got %v", err)
	}

	notes, err := database.ListNotes(ListNotesOptions{AccountID: accountID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("expected rollback to discard the note, got %+v", notes)
	}
}

var errRollback = &rollbackError{}

type rollbackError struct{}

func (*rollbackError) Error() string { return "rollback" }

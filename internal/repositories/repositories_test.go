package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/interview-simulator/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Document{}, &models.Session{}, &models.Turn{}, &models.Report{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newSession() *models.Session {
	return &models.Session{
		Persona:            models.PersonaNeutral,
		JobDescriptionText: "Backend engineer",
		ResumeText:         "Five years of Go",
		SeedQuestions:      []string{"Q1", "Q2", "Q3"},
		State:              models.StateAwaitingAnswer,
	}
}

func TestSessionCreateStoresFirstTurn(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	turns := NewTurnRepository(db)
	ctx := context.Background()

	session := newSession()
	first := &models.Turn{Speaker: models.SpeakerInterviewer, Kind: models.TurnSeed, Text: "Q1"}
	if err := sessions.Create(ctx, session, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.ID == uuid.Nil {
		t.Fatal("expected session id to be assigned")
	}

	stored, err := sessions.FindByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(stored.SeedQuestions) != 3 || stored.SeedQuestions[2] != "Q3" {
		t.Fatalf("unexpected seed questions: %#v", stored.SeedQuestions)
	}

	list, err := turns.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(list) != 1 || list[0].SequenceNumber != 1 || list[0].Text != "Q1" {
		t.Fatalf("unexpected transcript: %#v", list)
	}
}

func TestSessionSaveAppendsInOrder(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	turns := NewTurnRepository(db)
	ctx := context.Background()

	session := newSession()
	if err := sessions.Create(ctx, session, &models.Turn{Speaker: models.SpeakerInterviewer, Kind: models.TurnSeed, Text: "Q1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := turns.Append(ctx, &models.Turn{SessionID: session.ID, Speaker: models.SpeakerCandidate, Kind: models.TurnAnswer, Text: "A1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	session.CurrentSeedIndex = 1
	if err := sessions.Save(ctx, session, &models.Turn{Speaker: models.SpeakerInterviewer, Kind: models.TurnSeed, Text: "Q2"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	list, err := turns.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(list))
	}
	for i, turn := range list {
		if turn.SequenceNumber != i+1 {
			t.Fatalf("turn %d has sequence %d", i, turn.SequenceNumber)
		}
	}

	last, err := turns.Last(ctx, session.ID)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last.Text != "Q2" {
		t.Fatalf("expected last turn Q2, got %q", last.Text)
	}

	stored, err := sessions.FindByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.CurrentSeedIndex != 1 {
		t.Fatalf("expected index 1, got %d", stored.CurrentSeedIndex)
	}
}

func TestSessionSavePersistsZeroValues(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	ctx := context.Background()

	session := newSession()
	session.FollowUpAsked = true
	if err := sessions.Create(ctx, session, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	session.FollowUpAsked = false
	if err := sessions.Save(ctx, session, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stored, err := sessions.FindByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.FollowUpAsked {
		t.Fatal("expected follow-up flag to be cleared")
	}
}

func TestSessionNotFound(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	ctx := context.Background()

	if _, err := sessions.FindByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	missing := newSession()
	missing.ID = uuid.New()
	if err := sessions.Save(ctx, missing, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Save, got %v", err)
	}
}

func TestReportUpsertAndPendingSessions(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	reports := NewReportRepository(db)
	ctx := context.Background()

	done := newSession()
	now := time.Now()
	done.CurrentSeedIndex = 3
	done.Completed = true
	done.State = models.StateCompleted
	done.CompletedAt = &now
	if err := sessions.Create(ctx, done, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := sessions.Create(ctx, newSession(), nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pending, err := sessions.FindCompletedWithoutReport(ctx, 10)
	if err != nil {
		t.Fatalf("FindCompletedWithoutReport: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != done.ID {
		t.Fatalf("expected only the completed session, got %#v", pending)
	}

	if _, err := reports.FindBySessionID(ctx, done.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before upsert, got %v", err)
	}

	if err := reports.Upsert(ctx, &models.Report{SessionID: done.ID, Summary: "first", Strengths: []string{"clear"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := reports.Upsert(ctx, &models.Report{SessionID: done.ID, Summary: "second", Risks: []string{"vague"}}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	report, err := reports.FindBySessionID(ctx, done.ID)
	if err != nil {
		t.Fatalf("FindBySessionID: %v", err)
	}
	if report.Summary != "second" || len(report.Risks) != 1 {
		t.Fatalf("expected replaced report, got %#v", report)
	}

	pending, err = sessions.FindCompletedWithoutReport(ctx, 10)
	if err != nil {
		t.Fatalf("FindCompletedWithoutReport: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending sessions, got %d", len(pending))
	}
}

func TestDocumentRepository(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepository(db)
	ctx := context.Background()

	jd := &models.Document{OriginalFileName: "jd.txt", FileType: models.DocumentJobDescription, TextExtracted: "Go role"}
	cv := &models.Document{OriginalFileName: "cv.pdf", FileType: models.DocumentResume, TextExtracted: "Gopher"}
	for _, d := range []*models.Document{jd, cv} {
		if err := docs.Create(ctx, d); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	found, err := docs.FindByIDs(ctx, []uuid.UUID{jd.ID, cv.ID})
	if err != nil {
		t.Fatalf("FindByIDs: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(found))
	}

	if _, err := docs.FindByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreMatchesRepositoryContract(t *testing.T) {
	store := NewMemoryStore()
	sessions := store.Sessions()
	turns := store.Turns()
	reports := store.Reports()
	ctx := context.Background()

	session := newSession()
	if err := sessions.Create(ctx, session, &models.Turn{Speaker: models.SpeakerInterviewer, Kind: models.TurnSeed, Text: "Q1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := turns.Append(ctx, &models.Turn{SessionID: session.ID, Speaker: models.SpeakerCandidate, Kind: models.TurnAnswer, Text: "A1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	session.SeedQuestions[0] = "changed"
	stored, err := sessions.FindByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.SeedQuestions[0] != "Q1" {
		t.Fatalf("store shares slice with caller: %q", stored.SeedQuestions[0])
	}

	list, err := turns.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(list) != 2 || list[1].SequenceNumber != 2 {
		t.Fatalf("unexpected transcript: %#v", list)
	}

	if err := turns.Append(ctx, &models.Turn{SessionID: uuid.New(), Text: "orphan"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}

	stored.Completed = true
	stored.State = models.StateCompleted
	stored.CurrentSeedIndex = 3
	if err := sessions.Save(ctx, stored, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	pending, err := sessions.FindCompletedWithoutReport(ctx, 5)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending session, got %d (%v)", len(pending), err)
	}

	if err := reports.Upsert(ctx, &models.Report{SessionID: session.ID, Summary: "ok"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	pending, _ = sessions.FindCompletedWithoutReport(ctx, 5)
	if len(pending) != 0 {
		t.Fatalf("expected no pending sessions after report, got %d", len(pending))
	}
}
